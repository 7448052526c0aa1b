package engine

import (
	"errors"
	"strings"
	"time"

	"github.com/DoyleJ11/tug-of-war-backend/internal/game"
)

var ErrGameEnded = errors.New("game already ended")
var ErrMissingName = errors.New("missing username")
var ErrDuplicateName = errors.New("username taken by another player")
var ErrNotActive = errors.New("taps only count while active")
var ErrUnknownMember = errors.New("unknown member")
var ErrAlreadyMember = errors.New("member already joined")
var ErrIllegalTransition = errors.New("illegal phase transition")
var ErrInvalidTeam = errors.New("invalid team index")
var ErrUnsupportedCommand = errors.New("unsupported command")

// TeamCount is fixed: the rope has two ends.
const TeamCount = 2

type Member struct {
	UID         string
	Name        string
	NameKey     string
	Team        int
	Taps        int
	Seat        int
	FirstSeenAt time.Time
	JoinedAt    time.Time
}

type State struct {
	Phase      game.Phase
	BestOf     int
	RoundIndex int
	RoundsWon  [TeamCount]int
	Winner     *int
	Members    map[string]*Member // uid -> member
	NameKeys   map[string]string  // folded name -> uid
	StartedAt  time.Time
	EndedAt    time.Time
}

type CommandType string

const (
	CmdJoin          CommandType = "Join"
	CmdResume        CommandType = "Resume"
	CmdTap           CommandType = "Tap"
	CmdSetPhase      CommandType = "SetPhase"
	CmdRoundEnd      CommandType = "RoundEnd"
	CmdRoundStarting CommandType = "RoundStarting"
	CmdRoundLive     CommandType = "RoundLive"
	CmdGameOver      CommandType = "GameOver"
)

/*
	CmdJoin          -> EvtMemberJoined (a known uid must resume instead)
	CmdResume        -> EvtMemberRejoined
	CmdTap           -> EvtTapAccepted (only while active)
	CmdSetPhase      -> EvtPhaseChanged, or the CmdGameOver events when moving to ended
	CmdRoundEnd      -> EvtRoundEnded
	CmdRoundStarting -> EvtRoundStarting
	CmdRoundLive     -> EvtRoundLive
	CmdGameOver      -> EvtMatchDecided -> EvtPhaseChanged(ended)
*/

type Command struct {
	Type          CommandType
	UID           string
	Name          string
	Team          *int
	Count         int
	Phase         game.Phase
	RoundIndex    int
	BufferSeconds int
	At            time.Time
}

type EventType string

const (
	EvtMemberJoined   EventType = "MemberJoined"
	EvtMemberRejoined EventType = "MemberRejoined"
	EvtTapAccepted    EventType = "TapAccepted"
	EvtPhaseChanged   EventType = "PhaseChanged"
	EvtRoundEnded     EventType = "RoundEnded"
	EvtRoundStarting  EventType = "RoundStarting"
	EvtRoundLive      EventType = "RoundLive"
	EvtMatchDecided   EventType = "MatchDecided"
)

type Event struct {
	Type          EventType
	UID           string
	Team          int
	Count         int
	Taps          int
	Phase         game.Phase
	RoundIndex    int
	BufferSeconds int
}

func Apply(s State, cmd Command) ([]Event, State, error) {
	newState := s

	switch cmd.Type {
	case CmdJoin:
		if s.Phase == game.PhaseEnded {
			return nil, s, ErrGameEnded
		}
		name := strings.TrimSpace(cmd.Name)
		if name == "" {
			return nil, s, ErrMissingName
		}
		if _, ok := s.Members[cmd.UID]; ok {
			return nil, s, ErrAlreadyMember
		}
		key := FoldName(name)
		if _, taken := s.NameKeys[key]; taken {
			return nil, s, ErrDuplicateName
		}

		team := LeastFilled(s)
		if cmd.Team != nil {
			if !validTeam(*cmd.Team) {
				return nil, s, ErrInvalidTeam
			}
			team = *cmd.Team
		}
		m := &Member{
			UID:         cmd.UID,
			Name:        name,
			NameKey:     key,
			Team:        team,
			Seat:        len(s.Members) + 1,
			FirstSeenAt: cmd.At,
			JoinedAt:    cmd.At,
		}
		newState.Members[m.UID] = m
		newState.NameKeys[key] = m.UID
		return []Event{{Type: EvtMemberJoined, UID: m.UID, Team: m.Team}}, newState, nil

	case CmdResume:
		m, ok := s.Members[cmd.UID]
		if !ok {
			return nil, s, ErrUnknownMember
		}
		if cmd.Team != nil {
			if !validTeam(*cmd.Team) {
				return nil, s, ErrInvalidTeam
			}
			m.Team = *cmd.Team
		}
		m.JoinedAt = cmd.At
		return []Event{{Type: EvtMemberRejoined, UID: m.UID, Team: m.Team, Taps: m.Taps}}, newState, nil

	case CmdTap:
		if s.Phase != game.PhaseActive {
			return nil, s, ErrNotActive
		}
		m, ok := s.Members[cmd.UID]
		if !ok {
			return nil, s, ErrUnknownMember
		}
		count := max(cmd.Count, 1)
		m.Taps += count
		return []Event{{Type: EvtTapAccepted, UID: m.UID, Team: m.Team, Count: count, Taps: m.Taps}}, newState, nil

	case CmdSetPhase:
		if !cmd.Phase.Valid() {
			return nil, s, ErrIllegalTransition
		}
		if cmd.Phase == s.Phase {
			return nil, s, nil
		}
		if s.Phase == game.PhaseEnded || cmd.Phase.Rank() < s.Phase.Rank() {
			return nil, s, ErrIllegalTransition
		}
		if cmd.Phase == game.PhaseEnded {
			return Apply(s, Command{Type: CmdGameOver, At: cmd.At})
		}
		newState.Phase = cmd.Phase
		if cmd.Phase == game.PhaseActive && newState.StartedAt.IsZero() {
			newState.StartedAt = cmd.At
		}
		return []Event{{Type: EvtPhaseChanged, Phase: cmd.Phase}}, newState, nil

	case CmdRoundEnd:
		if s.Phase == game.PhaseEnded {
			return nil, s, ErrGameEnded
		}
		if cmd.Team == nil || !validTeam(*cmd.Team) {
			return nil, s, ErrInvalidTeam
		}
		newState.RoundsWon[*cmd.Team]++
		newState.RoundIndex = cmd.RoundIndex
		return []Event{{Type: EvtRoundEnded, Team: *cmd.Team, RoundIndex: cmd.RoundIndex}}, newState, nil

	case CmdRoundStarting:
		if s.Phase == game.PhaseEnded {
			return nil, s, ErrGameEnded
		}
		newState.RoundIndex = cmd.RoundIndex
		return []Event{{Type: EvtRoundStarting, RoundIndex: cmd.RoundIndex, BufferSeconds: cmd.BufferSeconds}}, newState, nil

	case CmdRoundLive:
		if s.Phase == game.PhaseEnded {
			return nil, s, ErrGameEnded
		}
		newState.RoundIndex = cmd.RoundIndex
		return []Event{{Type: EvtRoundLive, RoundIndex: cmd.RoundIndex}}, newState, nil

	case CmdGameOver:
		if s.Phase == game.PhaseEnded {
			return nil, s, ErrGameEnded
		}
		winner := ResolveWinner(s, cmd.Team)
		newState.Winner = &winner
		newState.Phase = game.PhaseEnded
		newState.EndedAt = cmd.At
		if newState.StartedAt.IsZero() {
			newState.StartedAt = cmd.At
		}
		return []Event{
			{Type: EvtMatchDecided, Team: winner},
			{Type: EvtPhaseChanged, Phase: game.PhaseEnded},
		}, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// ResolveWinner applies, in order: explicit index, strictly higher tap total,
// strictly more members, team 0. It always returns 0 or 1.
func ResolveWinner(s State, explicit *int) int {
	if explicit != nil && validTeam(*explicit) {
		return *explicit
	}
	taps := TeamTaps(s)
	if taps[0] != taps[1] {
		if taps[0] > taps[1] {
			return 0
		}
		return 1
	}
	sizes := TeamSizes(s)
	if sizes[0] != sizes[1] {
		if sizes[0] > sizes[1] {
			return 0
		}
		return 1
	}
	return 0
}

func validTeam(t int) bool { return t >= 0 && t < TeamCount }
