package game

import "errors"

// Reasons shared with clients. These strings are part of the wire contract.
const (
	ReasonInvalidCode       = "invalid_code"
	ReasonUnknownGameType   = "unknown_gameType"
	ReasonCodeInUse         = "code_in_use"
	ReasonSessionMismatch   = "session_mismatch"
	ReasonCodeNotFound      = "code_not_found"
	ReasonGameStarted       = "game_started"
	ReasonGameEnded         = "game_ended"
	ReasonMissingUsername   = "missing_username"
	ReasonPlayerCapReached  = "player_cap_reached"
	ReasonDuplicateUsername = "duplicate_username"
	ReasonInvalidToken      = "invalid_token"
	ReasonInvalidTeamCount  = "invalid_teamCount"
	ReasonInvalidTeamIndex  = "invalid_teamIndex"
	ReasonBadJSON           = "bad_json"
	ReasonUnknownType       = "unknown_type"
	ReasonNotBound          = "not_bound"
	ReasonAlreadyBound      = "already_bound"
	ReasonUnknownKind       = "unknown_kind"
)

// Rejection is a client-visible refusal. It never implies state was mutated.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string { return "rejected: " + r.Reason }

func Reject(reason string) error { return &Rejection{Reason: reason} }

// ReasonOf extracts the reason code from err, or "" when err is not a Rejection.
func ReasonOf(err error) string {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Reason
	}
	return ""
}
