package results

import (
	"sort"
	"time"
)

const (
	StateWinner = "winner"
	StateLoser  = "loser"
)

// Entry is one identity's contribution to the final standings.
type Entry struct {
	UID      string
	Name     string
	Team     int
	Taps     int
	JoinedAt time.Time
}

type Rank struct {
	GTR int // global
	TTR int // within team
}

// PlayerResult is the cached per-identity outcome delivered as gameResult.
type PlayerResult struct {
	UID   string `json:"uid"`
	Team  int    `json:"team"`
	Taps  int    `json:"taps"`
	State string `json:"state"`
	TTR   int    `json:"ttr"`
	GTR   int    `json:"gtr"`
}

// ComputeRanks orders by taps desc, join time asc, name asc. uid breaks any
// remaining tie so the result never depends on input order.
func ComputeRanks(entries []Entry) map[string]Rank {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Taps != b.Taps {
			return a.Taps > b.Taps
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.UID < b.UID
	})

	ranks := make(map[string]Rank, len(sorted))
	perTeam := make(map[int]int)
	for i, e := range sorted {
		perTeam[e.Team]++
		ranks[e.UID] = Rank{GTR: i + 1, TTR: perTeam[e.Team]}
	}
	return ranks
}

// Outcomes combines ranks with the decided winner into cached per-uid results.
func Outcomes(entries []Entry, winner int) map[string]PlayerResult {
	ranks := ComputeRanks(entries)
	out := make(map[string]PlayerResult, len(entries))
	for _, e := range entries {
		state := StateLoser
		if e.Team == winner {
			state = StateWinner
		}
		r := ranks[e.UID]
		out[e.UID] = PlayerResult{
			UID:   e.UID,
			Team:  e.Team,
			Taps:  e.Taps,
			State: state,
			TTR:   r.TTR,
			GTR:   r.GTR,
		}
	}
	return out
}
