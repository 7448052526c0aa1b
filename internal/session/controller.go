package session

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/tug-of-war-backend/internal/game"
	"github.com/DoyleJ11/tug-of-war-backend/internal/results"
	"github.com/DoyleJ11/tug-of-war-backend/internal/supervisor"
	"github.com/DoyleJ11/tug-of-war-backend/internal/types"
)

// phasePaused is a UX overlay only; the session phase is unchanged.
const phasePaused = "paused"

type rosterEntry struct {
	UID       string `json:"uid"`
	Username  string `json:"username"`
	TeamIndex int    `json:"teamIndex"`
	Seat      int    `json:"seat"`
	Connected bool   `json:"connected"`
}

type snapshot struct {
	Code     string        `json:"code"`
	GameType string        `json:"gameType"`
	Phase    game.Phase    `json:"phase"`
	Paused   bool          `json:"paused"`
	Capacity int           `json:"capacity"`
	Players  []rosterEntry `json:"players"`
	State    any           `json:"state"`
}

func (s *Session) attachController(msg AttachController) AttachResult {
	fail := func(reason string) AttachResult {
		msg.Peer.Send(types.Created{Type: "created", Ok: false, Reason: reason, Code: s.cfg.Code})
		return AttachResult{Reason: reason}
	}

	if s.controller != nil && !s.controller.Closed() {
		return fail(game.ReasonCodeInUse)
	}
	if msg.GameType != s.cfg.Game.GameType || msg.Location != s.cfg.Game.Location {
		return fail(game.ReasonSessionMismatch)
	}

	reattached := s.attached
	s.controller = msg.Peer
	s.attached = true
	if s.deps.Timers.Cancel(s.cfg.Code, s.id, supervisor.ControllerGrace) && reattached {
		s.log.Info("controller returned within grace")
	}

	msg.Peer.Send(types.Created{
		Type:       "created",
		Ok:         true,
		Code:       s.cfg.Code,
		Reattached: reattached,
		Snapshot:   s.snapshot(),
	})

	if s.paused {
		s.paused = false
		s.BroadcastPlayers(types.Phase{Type: "phase", Phase: string(s.phase)})
	}
	s.log.Info("controller attached", zap.Bool("reattached", reattached))
	return AttachResult{Ok: true, Reattached: reattached}
}

func (s *Session) controllerGone(connID string) {
	if s.controller == nil || s.controller.ID != connID {
		return
	}
	s.controller = nil
	if s.phase == game.PhaseEnded {
		// Cleanup is already scheduled.
		return
	}
	s.paused = true
	s.BroadcastPlayers(types.Phase{Type: "phase", Phase: phasePaused})
	s.deps.Timers.Schedule(s.cfg.Code, s.id, supervisor.ControllerGrace, s.cfg.Grace)
	s.log.Info("controller lost, grace started", zap.Duration("grace", s.cfg.Grace))
}

func (s *Session) fromController(msg FromController) {
	if s.controller == nil || s.controller.ID != msg.ConnID {
		return
	}
	if msg.Event.Kind == types.KindRequestSnapshot {
		s.controller.Send(types.Snapshot{Type: "snapshot", State: s.snapshot()})
		return
	}
	s.deps.Adapter.OnControllerMsg(s, msg.Event)
}

func (s *Session) timerFired(kind supervisor.Kind) {
	switch kind {
	case supervisor.ControllerGrace:
		if s.controller != nil || s.phase == game.PhaseEnded {
			return
		}
		if s.phase == game.PhaseActive {
			s.log.Info("controller grace expired, forcing end")
			s.deps.Adapter.OnForcedEnd(s)
			return
		}
		s.destroy("controller timeout")

	case supervisor.Cleanup:
		if s.phase != game.PhaseEnded {
			return
		}
		if s.controller != nil {
			if remaining := s.cfg.CleanupAfter - s.deps.Now().Sub(s.endedAt); remaining > 0 {
				s.deps.Timers.Schedule(s.cfg.Code, s.id, supervisor.Cleanup, remaining)
				return
			}
		}
		s.destroy("match over")
	}
}

func (s *Session) recordSaved(o results.Outcome) {
	if s.controller == nil {
		return
	}
	s.controller.Send(types.RecordSaved{Type: "recordSaved", Ok: o.OK, Key: o.Key, Bucket: o.Bucket, Reason: o.Reason})
	if !o.OK {
		s.controller.Send(types.Error{Type: "error", Kind: types.ErrorKindExternal, Reason: "record_not_saved", Message: o.Reason})
	}
}

func (s *Session) snapshot() snapshot {
	roster := make([]rosterEntry, 0, len(s.identities))
	for _, ident := range s.sortedIdentities() {
		roster = append(roster, rosterEntry{
			UID:       ident.UID,
			Username:  ident.Username,
			TeamIndex: ident.TeamIndex,
			Seat:      ident.Seat,
			Connected: ident.ConnID != "",
		})
	}
	return snapshot{
		Code:     s.cfg.Code,
		GameType: s.cfg.Game.GameType,
		Phase:    s.phase,
		Paused:   s.paused,
		Capacity: s.cfg.Game.Capacity,
		Players:  roster,
		State:    s.deps.Adapter.Snapshot(s),
	}
}

func (s *Session) view() View {
	return View{
		Phase:         s.phase,
		Paused:        s.paused,
		HasController: s.controller != nil,
		Players:       s.Players(),
		Identities:    len(s.identities),
		EndedAt:       s.endedAt,
	}
}
