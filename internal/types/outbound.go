package types

// Server -> client messages. Every struct carries its own Type so it can be
// marshalled directly onto the socket.

type Created struct {
	Type       string `json:"type"` // "created"
	Ok         bool   `json:"ok"`
	Reason     string `json:"reason,omitempty"`
	Code       string `json:"code,omitempty"`
	Reattached bool   `json:"reattached,omitempty"`
	Snapshot   any    `json:"snapshot,omitempty"`
}

// JoinResult is used for both "joinResult" and "resumeResult".
type JoinResult struct {
	Type        string `json:"type"`
	Ok          bool   `json:"ok"`
	Reason      string `json:"reason,omitempty"`
	Code        string `json:"code,omitempty"`
	UID         string `json:"uid,omitempty"`
	Username    string `json:"username,omitempty"`
	TeamIndex   *int   `json:"teamIndex,omitempty"`
	ResumeToken string `json:"resumeToken,omitempty"`
	Phase       string `json:"phase,omitempty"`
}

type Phase struct {
	Type  string `json:"type"` // "phase"
	Phase string `json:"phase"`
}

type RoundEnd struct {
	Type            string `json:"type"` // "roundEnd"
	Result          string `json:"result"`
	RoundIndex      int    `json:"roundIndex"`
	WinnerTeamIndex int    `json:"winnerTeamIndex"`
}

type RoundStarting struct {
	Type          string `json:"type"` // "roundStarting"
	RoundIndex    int    `json:"roundIndex"`
	BufferSeconds int    `json:"bufferSeconds"`
}

type RoundLive struct {
	Type       string `json:"type"` // "roundLive"
	RoundIndex int    `json:"roundIndex"`
}

type GameResult struct {
	Type  string `json:"type"` // "gameResult"
	State string `json:"state"`
	Team  int    `json:"team"`
	Taps  int    `json:"taps"`
	TTR   int    `json:"ttr"`
	GTR   int    `json:"gtr"`
}

// RosterEvent covers playerJoined, playerResumed and playerLeft.
type RosterEvent struct {
	Type      string `json:"type"`
	UID       string `json:"uid"`
	Username  string `json:"username"`
	TeamIndex int    `json:"teamIndex"`
	Taps      int    `json:"taps"`
}

type Tap struct {
	Type      string `json:"type"` // "tap"
	UID       string `json:"uid"`
	Username  string `json:"username"`
	TeamIndex int    `json:"teamIndex"`
	Count     int    `json:"count"`
	Taps      int    `json:"taps"`
}

type RecordSaved struct {
	Type   string `json:"type"` // "recordSaved"
	Ok     bool   `json:"ok"`
	Key    string `json:"key,omitempty"`
	Bucket string `json:"bucket,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type Snapshot struct {
	Type  string `json:"type"` // "snapshot"
	State any    `json:"state"`
}

type Relay struct {
	Type    string      `json:"type"` // "playerEvent"
	UID     string      `json:"uid"`
	Payload PlayerEvent `json:"payload"`
}

// Error kinds let a controller tell its own mistakes from backend failures.
const (
	ErrorKindInvalid  = "invalid_request"
	ErrorKindExternal = "external"
)

type Error struct {
	Type    string `json:"type"` // "error"
	Kind    string `json:"kind"`
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
}

type Pong struct {
	Type string `json:"type"` // "pong"
}

func InvalidRequest(reason string) Error {
	return Error{Type: "error", Kind: ErrorKindInvalid, Reason: reason}
}
