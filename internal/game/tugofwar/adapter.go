package tugofwar

import (
	"errors"

	"go.uber.org/zap"

	"github.com/DoyleJ11/tug-of-war-backend/internal/engine"
	"github.com/DoyleJ11/tug-of-war-backend/internal/game"
	"github.com/DoyleJ11/tug-of-war-backend/internal/results"
	"github.com/DoyleJ11/tug-of-war-backend/internal/types"
)

const GameType = "tugOfWar"

const (
	resultWon  = "won"
	resultLost = "lost"
)

// Adapter is the authoritative tug-of-war state machine for one session.
type Adapter struct {
	state   engine.State
	results map[string]results.PlayerResult // cached at finalize, by uid
	created bool
}

func New() game.Adapter { return &Adapter{} }

func Register(c *game.Catalog) { c.Register(GameType, New) }

var _ game.Adapter = (*Adapter)(nil)

func (a *Adapter) OnInit(h game.Host, cfg game.Config) error {
	if cfg.TeamCount != 0 && cfg.TeamCount != engine.TeamCount {
		return game.Reject(game.ReasonInvalidTeamCount)
	}
	a.state = engine.NewEmptyState(cfg.BestOf)
	a.created = true
	return nil
}

// AdmitJoin allows late join while active; only ended closes the door.
func (a *Adapter) AdmitJoin(phase game.Phase) error {
	if phase == game.PhaseEnded {
		return game.Reject(game.ReasonGameEnded)
	}
	return nil
}

func (a *Adapter) OnPlayerJoin(h game.Host, p *game.Player) error {
	_, next, err := engine.Apply(a.state, engine.Command{
		Type: engine.CmdJoin,
		UID:  p.UID,
		Name: p.Username,
		At:   h.Now(),
	})
	if err != nil {
		return rejection(err)
	}
	a.state = next

	m := a.state.Members[p.UID]
	p.TeamIndex = m.Team
	p.Seat = m.Seat
	h.SendController(types.RosterEvent{Type: "playerJoined", UID: m.UID, Username: m.Name, TeamIndex: m.Team})
	return nil
}

func (a *Adapter) CheckResume(_ game.Player, teamOverride *int) error {
	if teamOverride != nil && (*teamOverride < 0 || *teamOverride >= engine.TeamCount) {
		return game.Reject(game.ReasonInvalidTeamIndex)
	}
	return nil
}

func (a *Adapter) OnPlayerResume(h game.Host, p *game.Player, teamOverride *int) error {
	_, next, err := engine.Apply(a.state, engine.Command{
		Type: engine.CmdResume,
		UID:  p.UID,
		Team: teamOverride,
		At:   h.Now(),
	})
	if errors.Is(err, engine.ErrUnknownMember) {
		// The session knows this identity but we lost its meta; rebuild it
		// on the team the session remembers rather than failing the resume.
		h.Logger().Warn("resume for identity without meta", zap.String("uid", p.UID))
		team := p.TeamIndex
		if teamOverride != nil {
			team = *teamOverride
		}
		_, next, err = engine.Apply(a.state, engine.Command{
			Type: engine.CmdJoin,
			UID:  p.UID,
			Name: p.Username,
			Team: &team,
			At:   h.Now(),
		})
	}
	if err != nil {
		return rejection(err)
	}
	a.state = next

	m := a.state.Members[p.UID]
	p.TeamIndex = m.Team
	p.Seat = m.Seat
	h.SendController(types.RosterEvent{Type: "playerResumed", UID: m.UID, Username: m.Name, TeamIndex: m.Team, Taps: m.Taps})
	return nil
}

func (a *Adapter) OnPlayerReady(h game.Host, p game.Player) {
	h.SendPlayer(p.ConnID, types.Snapshot{Type: "snapshot", State: a.playerView(p)})
	if res, ok := a.results[p.UID]; ok {
		h.SendPlayer(p.ConnID, gameResult(res))
	}
}

func (a *Adapter) OnPlayerLeave(h game.Host, p game.Player) {
	taps := 0
	if m, ok := a.state.Members[p.UID]; ok {
		taps = m.Taps
	}
	h.SendController(types.RosterEvent{Type: "playerLeft", UID: p.UID, Username: p.Username, TeamIndex: p.TeamIndex, Taps: taps})
}

func (a *Adapter) OnPlayerMsg(h game.Host, p game.Player, ev types.PlayerEvent) {
	if ev.Kind != types.KindTap {
		h.Logger().Debug("dropping unknown player event", zap.String("kind", ev.Kind), zap.String("uid", p.UID))
		return
	}
	events, next, err := engine.Apply(a.state, engine.Command{Type: engine.CmdTap, UID: p.UID, Count: ev.Count})
	if err != nil {
		// Outside active, taps vanish without a reply.
		h.Logger().Debug("tap dropped", zap.String("uid", p.UID), zap.Error(err))
		return
	}
	a.state = next
	for _, e := range events {
		h.SendController(types.Tap{
			Type:      "tap",
			UID:       e.UID,
			Username:  p.Username,
			TeamIndex: e.Team,
			Count:     e.Count,
			Taps:      e.Taps,
		})
	}
}

func (a *Adapter) OnControllerMsg(h game.Host, ev types.ControllerEvent) {
	switch ev.Kind {
	case types.KindPhase:
		phase := game.Phase(ev.Phase)
		if phase == game.PhaseEnded {
			a.finalize(h, nil)
			return
		}
		a.apply(h, engine.Command{Type: engine.CmdSetPhase, Phase: phase, At: h.Now()})

	case types.KindRoundEnd:
		a.apply(h, engine.Command{Type: engine.CmdRoundEnd, Team: ev.WinnerTeamIndex, RoundIndex: ev.RoundIndex})

	case types.KindRoundStarting:
		a.apply(h, engine.Command{Type: engine.CmdRoundStarting, RoundIndex: ev.RoundIndex, BufferSeconds: ev.BufferSeconds})

	case types.KindRoundLive:
		a.apply(h, engine.Command{Type: engine.CmdRoundLive, RoundIndex: ev.RoundIndex})

	case types.KindGameOver:
		a.finalize(h, ev.WinnerTeamIndex)

	default:
		h.SendController(types.InvalidRequest(game.ReasonUnknownKind))
	}
}

func (a *Adapter) OnForcedEnd(h game.Host) {
	h.Logger().Info("forcing match end")
	a.finalize(h, nil)
}

// OnSessionEnd decides an undecided match on teardown. An empty room has
// nothing worth recording.
func (a *Adapter) OnSessionEnd(h game.Host) {
	if !a.created || a.state.Phase == game.PhaseEnded || len(a.state.Members) == 0 {
		return
	}
	a.finalize(h, nil)
}

// apply runs a non-terminal command and fans its events out.
func (a *Adapter) apply(h game.Host, cmd engine.Command) {
	events, next, err := engine.Apply(a.state, cmd)
	if err != nil {
		h.Logger().Debug("controller command rejected", zap.String("cmd", string(cmd.Type)), zap.Error(err))
		h.SendController(types.Error{Type: "error", Kind: types.ErrorKindInvalid, Reason: "rejected", Message: err.Error()})
		return
	}
	a.state = next
	for _, e := range events {
		a.emit(h, e)
	}
}

func (a *Adapter) emit(h game.Host, e engine.Event) {
	switch e.Type {
	case engine.EvtPhaseChanged:
		h.SetPhase(e.Phase)

	case engine.EvtRoundEnded:
		for _, p := range h.Players() {
			result := resultLost
			if p.TeamIndex == e.Team {
				result = resultWon
			}
			h.SendPlayer(p.ConnID, types.RoundEnd{Type: "roundEnd", Result: result, RoundIndex: e.RoundIndex, WinnerTeamIndex: e.Team})
		}

	case engine.EvtRoundStarting:
		h.BroadcastPlayers(types.RoundStarting{Type: "roundStarting", RoundIndex: e.RoundIndex, BufferSeconds: e.BufferSeconds})

	case engine.EvtRoundLive:
		h.BroadcastPlayers(types.RoundLive{Type: "roundLive", RoundIndex: e.RoundIndex})
	}
}

// finalize decides the match once, caches every identity's result, delivers
// it to live players and hands the document to persistence.
func (a *Adapter) finalize(h game.Host, explicit *int) {
	if a.state.Phase == game.PhaseEnded {
		return
	}
	_, next, err := engine.Apply(a.state, engine.Command{Type: engine.CmdGameOver, Team: explicit, At: h.Now()})
	if err != nil {
		h.Logger().Warn("finalize rejected", zap.Error(err))
		return
	}
	a.state = next
	winner := *a.state.Winner

	entries := a.entries()
	a.results = results.Outcomes(entries, winner)

	h.SetPhase(game.PhaseEnded)
	for _, p := range h.Players() {
		if res, ok := a.results[p.UID]; ok {
			h.SendPlayer(p.ConnID, gameResult(res))
		}
	}
	h.SendController(a.summary())

	h.Logger().Info("match decided",
		zap.Int("winning_team", winner),
		zap.Ints("team_taps", teamSlice(engine.TeamTaps(a.state))),
		zap.Int("players", len(entries)))

	h.Finalize(results.BuildDocument(h.Code(), winner, a.state.StartedAt, a.state.EndedAt, entries, a.results))
}

func (a *Adapter) entries() []results.Entry {
	members := engine.SortedMembers(a.state)
	out := make([]results.Entry, 0, len(members))
	for _, m := range members {
		out = append(out, results.Entry{
			UID:      m.UID,
			Name:     m.Name,
			Team:     m.Team,
			Taps:     m.Taps,
			JoinedAt: m.FirstSeenAt,
		})
	}
	return out
}

// Result returns the cached outcome for uid once the match is decided.
func (a *Adapter) Result(uid string) (results.PlayerResult, bool) {
	res, ok := a.results[uid]
	return res, ok
}

func gameResult(r results.PlayerResult) types.GameResult {
	return types.GameResult{Type: "gameResult", State: r.State, Team: r.Team, Taps: r.Taps, TTR: r.TTR, GTR: r.GTR}
}

func rejection(err error) error {
	switch {
	case errors.Is(err, engine.ErrDuplicateName):
		return game.Reject(game.ReasonDuplicateUsername)
	case errors.Is(err, engine.ErrGameEnded):
		return game.Reject(game.ReasonGameEnded)
	case errors.Is(err, engine.ErrMissingName):
		return game.Reject(game.ReasonMissingUsername)
	case errors.Is(err, engine.ErrInvalidTeam):
		return game.Reject(game.ReasonInvalidTeamIndex)
	}
	return err
}

func teamSlice(v [engine.TeamCount]int) []int { return v[:] }
