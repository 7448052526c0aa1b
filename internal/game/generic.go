package game

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/tug-of-war-backend/internal/types"
)

const GenericGameType = "generic"

// Generic is the general-purpose adapter: it relays player events to the
// controller and lets the controller drive the phase. It keeps no score.
type Generic struct {
	teams []int
	uids  map[string]int // uid -> team
}

func NewGeneric() Adapter { return &Generic{} }

func (g *Generic) OnInit(h Host, cfg Config) error {
	n := cfg.TeamCount
	if n < 0 {
		return Reject(ReasonInvalidTeamCount)
	}
	if n == 0 {
		n = 1
	}
	g.teams = make([]int, n)
	g.uids = make(map[string]int)
	return nil
}

// AdmitJoin forbids late join.
func (g *Generic) AdmitJoin(phase Phase) error {
	if phase != PhaseJoin {
		return Reject(ReasonGameStarted)
	}
	return nil
}

func (g *Generic) OnPlayerJoin(h Host, p *Player) error {
	p.TeamIndex = LeastFilled(g.teams)
	g.teams[p.TeamIndex]++
	g.uids[p.UID] = p.TeamIndex
	h.SendController(types.RosterEvent{Type: "playerJoined", UID: p.UID, Username: p.Username, TeamIndex: p.TeamIndex})
	return nil
}

func (g *Generic) CheckResume(_ Player, teamOverride *int) error {
	if teamOverride != nil && (*teamOverride < 0 || *teamOverride >= len(g.teams)) {
		return Reject(ReasonInvalidTeamIndex)
	}
	return nil
}

func (g *Generic) OnPlayerResume(h Host, p *Player, teamOverride *int) error {
	if err := g.CheckResume(*p, teamOverride); err != nil {
		return err
	}
	team, known := g.uids[p.UID]
	if !known {
		team = p.TeamIndex
		if team < 0 || team >= len(g.teams) {
			team = LeastFilled(g.teams)
		}
		g.teams[team]++
	}
	if teamOverride != nil {
		g.teams[team]--
		team = *teamOverride
		g.teams[team]++
	}
	g.uids[p.UID] = team
	p.TeamIndex = team
	h.SendController(types.RosterEvent{Type: "playerResumed", UID: p.UID, Username: p.Username, TeamIndex: team})
	return nil
}

func (g *Generic) OnPlayerReady(h Host, p Player) {
	h.SendPlayer(p.ConnID, types.Phase{Type: "phase", Phase: string(h.Phase())})
}

func (g *Generic) OnPlayerLeave(h Host, p Player) {
	h.SendController(types.RosterEvent{Type: "playerLeft", UID: p.UID, Username: p.Username, TeamIndex: p.TeamIndex})
}

func (g *Generic) OnPlayerMsg(h Host, p Player, ev types.PlayerEvent) {
	if h.Phase() != PhaseActive {
		return
	}
	h.SendController(types.Relay{Type: "playerEvent", UID: p.UID, Payload: ev})
}

func (g *Generic) OnControllerMsg(h Host, ev types.ControllerEvent) {
	switch ev.Kind {
	case types.KindPhase:
		h.SetPhase(Phase(ev.Phase))
	case types.KindGameOver:
		h.SetPhase(PhaseEnded)
	default:
		h.Logger().Debug("generic adapter ignores controller event", zap.String("kind", ev.Kind))
	}
}

func (g *Generic) OnForcedEnd(h Host) { h.SetPhase(PhaseEnded) }

func (g *Generic) OnSessionEnd(h Host) {}

func (g *Generic) Snapshot(h Host) any {
	return map[string]any{"phase": h.Phase(), "teamSizes": g.teams}
}
