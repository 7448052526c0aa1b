package types

import (
	"encoding/json"
	"errors"
)

var ErrBadJSON = errors.New("bad json")
var ErrUnknownType = errors.New("unknown type")

// Inbound is any client -> server message. The concrete type is picked by
// the "type" discriminator before anything is dispatched.
type Inbound interface{ isInbound() }

type Create struct {
	GameType               string `json:"gameType"`
	RequestedCode          string `json:"requestedCode,omitempty"`
	AllowedNumberOfPlayers int    `json:"allowedNumberOfPlayers,omitempty"`
	TeamCount              int    `json:"teamCount,omitempty"`
	BestOf                 int    `json:"bestOf,omitempty"`
	Location               string `json:"location,omitempty"`
}

type Join struct {
	Code        string `json:"code"`
	Username    string `json:"username"`
	ResumeToken string `json:"resumeToken,omitempty"`
}

type Resume struct {
	Code        string `json:"code"`
	ResumeToken string `json:"resumeToken"`
	TeamIndex   *int   `json:"teamIndex,omitempty"`
}

type PlayerEventMsg struct {
	Code    string      `json:"code,omitempty"`
	Payload PlayerEvent `json:"payload"`
}

type PlayerEvent struct {
	Kind  string `json:"kind"`
	Count int    `json:"count,omitempty"`
}

type ControllerEventMsg struct {
	Code    string          `json:"code,omitempty"`
	Payload ControllerEvent `json:"payload"`
}

type ControllerEvent struct {
	Kind            string `json:"kind"`
	Phase           string `json:"phase,omitempty"`
	WinnerTeamIndex *int   `json:"winnerTeamIndex,omitempty"`
	RoundIndex      int    `json:"roundIndex,omitempty"`
	BufferSeconds   int    `json:"bufferSeconds,omitempty"`
}

type Ping struct{}

func (Create) isInbound()             {}
func (Join) isInbound()               {}
func (Resume) isInbound()             {}
func (PlayerEventMsg) isInbound()     {}
func (ControllerEventMsg) isInbound() {}
func (Ping) isInbound()               {}

const (
	TypeCreate          = "create"
	TypeJoin            = "join"
	TypeResume          = "resume"
	TypePlayerEvent     = "playerEvent"
	TypeControllerEvent = "controllerEvent"
	TypePing            = "ping"
)

// Player event kinds.
const KindTap = "tap"

// Controller event kinds.
const (
	KindPhase           = "phase"
	KindRoundEnd        = "roundEnd"
	KindRoundStarting   = "roundStarting"
	KindRoundLive       = "roundLive"
	KindGameOver        = "gameOver"
	KindRequestSnapshot = "requestSnapshot"
)

// KnownControllerKind reports whether k is a controller event kind.
func KnownControllerKind(k string) bool {
	switch k {
	case KindPhase, KindRoundEnd, KindRoundStarting, KindRoundLive, KindGameOver, KindRequestSnapshot:
		return true
	}
	return false
}

// Decode validates the discriminator and unmarshals into the matching type.
func Decode(data []byte) (Inbound, error) {
	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, ErrBadJSON
	}

	var msg Inbound
	var err error
	switch base.Type {
	case TypeCreate:
		var m Create
		err = json.Unmarshal(data, &m)
		msg = m
	case TypeJoin:
		var m Join
		err = json.Unmarshal(data, &m)
		msg = m
	case TypeResume:
		var m Resume
		err = json.Unmarshal(data, &m)
		msg = m
	case TypePlayerEvent:
		var m PlayerEventMsg
		err = json.Unmarshal(data, &m)
		msg = m
	case TypeControllerEvent:
		var m ControllerEventMsg
		err = json.Unmarshal(data, &m)
		msg = m
	case TypePing:
		msg = Ping{}
	default:
		return nil, ErrUnknownType
	}
	if err != nil {
		return nil, ErrBadJSON
	}
	return msg, nil
}
