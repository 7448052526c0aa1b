package tugofwar

import (
	"github.com/DoyleJ11/tug-of-war-backend/internal/engine"
	"github.com/DoyleJ11/tug-of-war-backend/internal/game"
	"github.com/DoyleJ11/tug-of-war-backend/internal/results"
)

type memberView struct {
	UID       string `json:"uid"`
	Name      string `json:"name"`
	Taps      int    `json:"taps"`
	Seat      int    `json:"seat"`
	Connected bool   `json:"connected"`
}

type teamView struct {
	Index   int          `json:"index"`
	Taps    int          `json:"taps"`
	Members []memberView `json:"members"`
}

type controllerView struct {
	Phase       game.Phase `json:"phase"`
	BestOf      int        `json:"bestOf"`
	RoundIndex  int        `json:"roundIndex"`
	RoundsWon   []int      `json:"roundsWon"`
	WinningTeam *int       `json:"winningTeam,omitempty"`
	Teams       []teamView `json:"teams"`
}

type playerView struct {
	Phase      game.Phase `json:"phase"`
	UID        string     `json:"uid"`
	Username   string     `json:"username"`
	TeamIndex  int        `json:"teamIndex"`
	Taps       int        `json:"taps"`
	RoundIndex int        `json:"roundIndex"`
	RoundsWon  []int      `json:"roundsWon"`
}

type summaryView struct {
	Type        string                 `json:"type"` // "gameOver"
	WinningTeam int                    `json:"winningTeam"`
	TeamTaps    []int                  `json:"teamTaps"`
	RoundsWon   []int                  `json:"roundsWon"`
	Players     []results.PlayerResult `json:"players"`
}

func (a *Adapter) Snapshot(h game.Host) any {
	live := make(map[string]bool)
	for _, p := range h.Players() {
		live[p.UID] = true
	}

	taps := engine.TeamTaps(a.state)
	teams := make([]teamView, engine.TeamCount)
	for i := range teams {
		teams[i] = teamView{Index: i, Taps: taps[i], Members: []memberView{}}
	}
	for _, m := range engine.SortedMembers(a.state) {
		teams[m.Team].Members = append(teams[m.Team].Members, memberView{
			UID:       m.UID,
			Name:      m.Name,
			Taps:      m.Taps,
			Seat:      m.Seat,
			Connected: live[m.UID],
		})
	}

	return controllerView{
		Phase:       a.state.Phase,
		BestOf:      a.state.BestOf,
		RoundIndex:  a.state.RoundIndex,
		RoundsWon:   teamSlice(a.state.RoundsWon),
		WinningTeam: a.state.Winner,
		Teams:       teams,
	}
}

func (a *Adapter) playerView(p game.Player) playerView {
	v := playerView{
		Phase:      a.state.Phase,
		UID:        p.UID,
		Username:   p.Username,
		TeamIndex:  p.TeamIndex,
		RoundIndex: a.state.RoundIndex,
		RoundsWon:  teamSlice(a.state.RoundsWon),
	}
	if m, ok := a.state.Members[p.UID]; ok {
		v.Taps = m.Taps
	}
	return v
}

func (a *Adapter) summary() summaryView {
	players := make([]results.PlayerResult, 0, len(a.results))
	for _, m := range engine.SortedMembers(a.state) {
		if res, ok := a.results[m.UID]; ok {
			players = append(players, res)
		}
	}
	return summaryView{
		Type:        "gameOver",
		WinningTeam: *a.state.Winner,
		TeamTaps:    teamSlice(engine.TeamTaps(a.state)),
		RoundsWon:   teamSlice(a.state.RoundsWon),
		Players:     players,
	}
}
