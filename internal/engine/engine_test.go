package engine

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DoyleJ11/tug-of-war-backend/internal/game"
)

var t0 = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func intp(v int) *int { return &v }

func mustApply(t *testing.T, s State, cmd Command) ([]Event, State) {
	t.Helper()
	events, next, err := Apply(s, cmd)
	if err != nil {
		t.Fatalf("Apply(%s): unexpected err %v", cmd.Type, err)
	}
	return events, next
}

func join(t *testing.T, s State, uid, name string) State {
	t.Helper()
	_, next := mustApply(t, s, Command{Type: CmdJoin, UID: uid, Name: name, At: t0})
	return next
}

func TestJoin_LeastFilledTieGoesToTeamZero(t *testing.T) {
	s := NewEmptyState(3)
	s = join(t, s, "u1", "Ann")
	s = join(t, s, "u2", "Ben")

	if got := s.Members["u1"].Team; got != 0 {
		t.Fatalf("Ann: want team 0, got %d", got)
	}
	if got := s.Members["u2"].Team; got != 1 {
		t.Fatalf("Ben: want team 1, got %d", got)
	}
}

func TestJoin_TeamSizesNeverDifferByMoreThanOne(t *testing.T) {
	s := NewEmptyState(3)
	for i := 0; i < 25; i++ {
		s = join(t, s, fmt.Sprintf("u%d", i), fmt.Sprintf("player%d", i))
		sizes := TeamSizes(s)
		if d := sizes[0] - sizes[1]; d < 0 || d > 1 {
			t.Fatalf("after %d joins: unbalanced sizes %v", i+1, sizes)
		}
	}
}

func TestJoin_DuplicateName(t *testing.T) {
	cases := []struct {
		name    string
		uid     string
		join    string
		wantErr error
	}{
		{name: "different identity same case", uid: "u2", join: "Ann", wantErr: ErrDuplicateName},
		{name: "different identity other case", uid: "u2", join: "aNN", wantErr: ErrDuplicateName},
		{name: "same identity joins twice", uid: "u1", join: "ann", wantErr: ErrAlreadyMember},
		{name: "blank name", uid: "u3", join: "   ", wantErr: ErrMissingName},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := join(t, NewEmptyState(3), "u1", "Ann")
			_, _, err := Apply(s, Command{Type: CmdJoin, UID: tc.uid, Name: tc.join, At: t0})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestJoin_RejectedAfterEnd(t *testing.T) {
	s := NewEmptyState(3)
	s.Phase = game.PhaseEnded
	_, _, err := Apply(s, Command{Type: CmdJoin, UID: "u1", Name: "Ann", At: t0})
	if !errors.Is(err, ErrGameEnded) {
		t.Fatalf("want ErrGameEnded, got %v", err)
	}
}

func TestResume_StickyTeamUnlessOverridden(t *testing.T) {
	s := join(t, NewEmptyState(3), "u1", "Ann")

	_, s = mustApply(t, s, Command{Type: CmdResume, UID: "u1", At: t0.Add(time.Minute)})
	if s.Members["u1"].Team != 0 {
		t.Fatalf("resume without override moved team to %d", s.Members["u1"].Team)
	}
	if !s.Members["u1"].FirstSeenAt.Equal(t0) {
		t.Fatalf("resume changed FirstSeenAt")
	}

	_, s = mustApply(t, s, Command{Type: CmdResume, UID: "u1", Team: intp(1), At: t0})
	if s.Members["u1"].Team != 1 {
		t.Fatalf("override ignored: team %d", s.Members["u1"].Team)
	}

	_, _, err := Apply(s, Command{Type: CmdResume, UID: "nobody", At: t0})
	if !errors.Is(err, ErrUnknownMember) {
		t.Fatalf("want ErrUnknownMember, got %v", err)
	}
}

func TestTap_OnlyCountsWhileActive(t *testing.T) {
	phases := []struct {
		phase   game.Phase
		counted bool
	}{
		{game.PhaseJoin, false},
		{game.PhaseActive, true},
		{game.PhaseEnded, false},
	}

	for _, tc := range phases {
		t.Run(string(tc.phase), func(t *testing.T) {
			s := join(t, NewEmptyState(3), "u1", "Ann")
			s.Phase = tc.phase
			_, next, err := Apply(s, Command{Type: CmdTap, UID: "u1", Count: 4})
			if tc.counted && err != nil {
				t.Fatalf("unexpected err %v", err)
			}
			if !tc.counted && !errors.Is(err, ErrNotActive) {
				t.Fatalf("want ErrNotActive, got %v", err)
			}
			want := 0
			if tc.counted {
				want = 4
			}
			if got := next.Members["u1"].Taps; got != want {
				t.Fatalf("taps: want %d, got %d", want, got)
			}
		})
	}
}

func TestTap_ClampsToOne(t *testing.T) {
	s := join(t, NewEmptyState(3), "u1", "Ann")
	s.Phase = game.PhaseActive
	for _, c := range []int{0, -7} {
		events, next := mustApply(t, s, Command{Type: CmdTap, UID: "u1", Count: c})
		s = next
		if events[0].Count != 1 {
			t.Fatalf("count %d: want clamp to 1, got %d", c, events[0].Count)
		}
	}
	if s.Members["u1"].Taps != 2 {
		t.Fatalf("want 2 taps, got %d", s.Members["u1"].Taps)
	}

	_, _, err := Apply(s, Command{Type: CmdTap, UID: "ghost", Count: 3})
	if !errors.Is(err, ErrUnknownMember) {
		t.Fatalf("want ErrUnknownMember, got %v", err)
	}
}

func TestSetPhase_Monotonic(t *testing.T) {
	s := NewEmptyState(3)
	events, s := mustApply(t, s, Command{Type: CmdSetPhase, Phase: game.PhaseActive, At: t0})
	if !ContainsEvent(events, EvtPhaseChanged) || s.StartedAt != t0 {
		t.Fatalf("join->active: events %+v started %v", events, s.StartedAt)
	}

	if _, _, err := Apply(s, Command{Type: CmdSetPhase, Phase: game.PhaseJoin}); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("active->join: want ErrIllegalTransition, got %v", err)
	}

	events, s = mustApply(t, s, Command{Type: CmdSetPhase, Phase: game.PhaseEnded, At: t0.Add(time.Minute)})
	if !ContainsEvent(events, EvtMatchDecided) || s.Phase != game.PhaseEnded || s.Winner == nil {
		t.Fatalf("active->ended should decide the match: %+v", events)
	}

	if _, _, err := Apply(s, Command{Type: CmdSetPhase, Phase: game.PhaseActive}); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("ended->active: want ErrIllegalTransition, got %v", err)
	}
}

func TestRoundSignals_DoNotChangePhase(t *testing.T) {
	s := NewEmptyState(3)
	s.Phase = game.PhaseActive

	_, s = mustApply(t, s, Command{Type: CmdRoundEnd, Team: intp(1), RoundIndex: 1})
	_, s = mustApply(t, s, Command{Type: CmdRoundStarting, RoundIndex: 2, BufferSeconds: 3})
	_, s = mustApply(t, s, Command{Type: CmdRoundLive, RoundIndex: 2})

	if s.Phase != game.PhaseActive {
		t.Fatalf("round signals changed phase to %s", s.Phase)
	}
	if s.RoundsWon != [TeamCount]int{0, 1} || s.RoundIndex != 2 {
		t.Fatalf("unexpected round state: won=%v index=%d", s.RoundsWon, s.RoundIndex)
	}

	if _, _, err := Apply(s, Command{Type: CmdRoundEnd, Team: intp(5)}); !errors.Is(err, ErrInvalidTeam) {
		t.Fatalf("want ErrInvalidTeam, got %v", err)
	}
}

func TestResolveWinner_AllBranches(t *testing.T) {
	build := func(members ...Member) State {
		s := NewEmptyState(3)
		for i := range members {
			m := members[i]
			s.Members[m.UID] = &m
		}
		return s
	}

	cases := []struct {
		name     string
		state    State
		explicit *int
		want     int
	}{
		{
			name:     "explicit winner wins over taps",
			state:    build(Member{UID: "a", Team: 0, Taps: 50}, Member{UID: "b", Team: 1}),
			explicit: intp(1),
			want:     1,
		},
		{
			name:     "out of range explicit falls through",
			state:    build(Member{UID: "a", Team: 0}, Member{UID: "b", Team: 1, Taps: 2}),
			explicit: intp(7),
			want:     1,
		},
		{
			name:  "higher tap total",
			state: build(Member{UID: "a", Team: 0, Taps: 3}, Member{UID: "b", Team: 1, Taps: 9}),
			want:  1,
		},
		{
			name:  "tied taps, more members",
			state: build(Member{UID: "a", Team: 1, Taps: 4}, Member{UID: "b", Team: 1}, Member{UID: "c", Team: 0, Taps: 4}),
			want:  1,
		},
		{
			name:  "full tie defaults to team zero",
			state: build(Member{UID: "a", Team: 0, Taps: 4}, Member{UID: "b", Team: 1, Taps: 4}),
			want:  0,
		},
		{
			name:  "empty session",
			state: build(),
			want:  0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveWinner(tc.state, tc.explicit); got != tc.want {
				t.Fatalf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestGameOver_OnlyOnce(t *testing.T) {
	s := join(t, NewEmptyState(3), "u1", "Ann")
	s.Phase = game.PhaseActive
	_, s = mustApply(t, s, Command{Type: CmdGameOver, At: t0})

	_, _, err := Apply(s, Command{Type: CmdGameOver, Team: intp(1), At: t0})
	if !errors.Is(err, ErrGameEnded) {
		t.Fatalf("want ErrGameEnded, got %v", err)
	}
	if *s.Winner != 0 {
		t.Fatalf("winner changed to %d", *s.Winner)
	}
}

func TestNewEmptyState_BestOfIsOdd(t *testing.T) {
	for in, want := range map[int]int{0: 3, 1: 1, 4: 5, 5: 5} {
		if got := NewEmptyState(in).BestOf; got != want {
			t.Fatalf("bestOf %d: got %d, want %d", in, got, want)
		}
	}
}
