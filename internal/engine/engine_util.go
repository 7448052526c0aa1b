package engine

import (
	"sort"

	"github.com/DoyleJ11/tug-of-war-backend/internal/game"
)

func NewEmptyState(bestOf int) State {
	if bestOf < 1 {
		bestOf = 3
	}
	if bestOf%2 == 0 {
		bestOf++
	}
	return State{
		Phase:    game.PhaseJoin,
		BestOf:   bestOf,
		Members:  map[string]*Member{},
		NameKeys: map[string]string{},
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func FoldName(name string) string { return game.FoldName(name) }

func TeamSizes(s State) [TeamCount]int {
	var sizes [TeamCount]int
	for _, m := range s.Members {
		sizes[m.Team]++
	}
	return sizes
}

func TeamTaps(s State) [TeamCount]int {
	var taps [TeamCount]int
	for _, m := range s.Members {
		taps[m.Team] += m.Taps
	}
	return taps
}

func LeastFilled(s State) int {
	sizes := TeamSizes(s)
	return game.LeastFilled(sizes[:])
}

// SortedMembers returns members in seat order.
func SortedMembers(s State) []*Member {
	out := make([]*Member, 0, len(s.Members))
	for _, m := range s.Members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seat < out[j].Seat })
	return out
}
