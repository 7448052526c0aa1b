package results

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Document is the immutable match record handed to the durable store.
type Document struct {
	GameRoomCode          string                  `json:"gameRoomCode"`
	WinningTeam           int                     `json:"winningTeam"`
	TimeStarted           time.Time               `json:"timeStarted"`
	TimeEnded             time.Time               `json:"timeEnded"`
	NumberOfPlayersJoined int                     `json:"numberOfPlayersJoined"`
	TeamAPlayers          map[string]PlayerResult `json:"teamAPlayers"`
	TeamBPlayers          map[string]PlayerResult `json:"teamBPlayers"`
}

// BuildDocument splits cached outcomes into the two team maps keyed by name.
func BuildDocument(code string, winner int, started, ended time.Time, entries []Entry, outcomes map[string]PlayerResult) Document {
	doc := Document{
		GameRoomCode:          code,
		WinningTeam:           winner,
		TimeStarted:           started.UTC(),
		TimeEnded:             ended.UTC(),
		NumberOfPlayersJoined: len(entries),
		TeamAPlayers:          make(map[string]PlayerResult),
		TeamBPlayers:          make(map[string]PlayerResult),
	}
	for _, e := range entries {
		res, ok := outcomes[e.UID]
		if !ok {
			continue
		}
		if e.Team == 0 {
			doc.TeamAPlayers[e.Name] = res
		} else {
			doc.TeamBPlayers[e.Name] = res
		}
	}
	return doc
}

// Key derives the store key from room code and end time. The ulid suffix
// keeps keys unique when a code is reused within the same second.
func Key(doc Document) string {
	ended := doc.TimeEnded
	if ended.IsZero() {
		ended = time.Now().UTC()
	}
	id := ulid.MustNew(ulid.Timestamp(ended), ulid.DefaultEntropy())
	return fmt.Sprintf("results/%s/%s-%s.json",
		strings.ToUpper(doc.GameRoomCode),
		ended.Format("20060102T150405Z"),
		strings.ToLower(id.String()),
	)
}
