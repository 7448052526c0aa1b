package game

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/DoyleJ11/tug-of-war-backend/internal/results"
	"github.com/DoyleJ11/tug-of-war-backend/internal/types"
)

type Phase string

const (
	PhaseJoin   Phase = "join"
	PhaseActive Phase = "active"
	PhaseEnded  Phase = "ended"
)

// Rank orders phases; a session never moves to a lower rank.
func (p Phase) Rank() int {
	switch p {
	case PhaseJoin:
		return 0
	case PhaseActive:
		return 1
	case PhaseEnded:
		return 2
	default:
		return -1
	}
}

func (p Phase) Valid() bool { return p.Rank() >= 0 }

// Config is what a controller asked for when it opened the session.
type Config struct {
	GameType  string
	Location  string
	Capacity  int
	TeamCount int
	BestOf    int
}

// Player is one live connection bound to an identity.
type Player struct {
	ConnID    string
	UID       string
	Username  string
	TeamIndex int
	Seat      int
}

// Host is the session as seen by an adapter. All methods must be called from
// the session's own goroutine, which is the only goroutine that runs hooks.
type Host interface {
	Code() string
	Phase() Phase
	// SetPhase broadcasts the new phase; regressions are ignored.
	SetPhase(p Phase)
	SendPlayer(connID string, msg any)
	BroadcastPlayers(msg any)
	SendController(msg any)
	Players() []Player
	// Finalize hands a result document to the persistence side channel.
	Finalize(doc results.Document)
	Now() time.Time
	Logger() *zap.Logger
}

// Adapter is the capability set every game type implements. The session
// never looks inside adapter state.
type Adapter interface {
	OnInit(h Host, cfg Config) error
	// AdmitJoin gates fresh joins on the current phase.
	AdmitJoin(phase Phase) error
	// OnPlayerJoin registers a new identity and sets p.TeamIndex.
	OnPlayerJoin(h Host, p *Player) error
	// CheckResume validates a resume without changing state. The host runs
	// it before it evicts the identity's current connection.
	CheckResume(p Player, teamOverride *int) error
	// OnPlayerResume rebinds an existing identity. teamOverride, when set,
	// replaces the sticky team.
	OnPlayerResume(h Host, p *Player, teamOverride *int) error
	// OnPlayerReady runs after the accept reply was delivered to p.
	OnPlayerReady(h Host, p Player)
	OnPlayerLeave(h Host, p Player)
	OnPlayerMsg(h Host, p Player, ev types.PlayerEvent)
	OnControllerMsg(h Host, ev types.ControllerEvent)
	OnForcedEnd(h Host)
	OnSessionEnd(h Host)
	Snapshot(h Host) any
}

// LeastFilled returns the index of the smallest team, lowest index on ties.
func LeastFilled(sizes []int) int {
	best := 0
	for i, n := range sizes {
		if n < sizes[best] {
			best = i
		}
	}
	return best
}

// FoldName is the case-insensitive key used for username uniqueness.
func FoldName(name string) string {
	return cases.Fold().String(name)
}
