package session

import (
	"encoding/json"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/tug-of-war-backend/internal/game"
	"github.com/DoyleJ11/tug-of-war-backend/internal/results"
	"github.com/DoyleJ11/tug-of-war-backend/internal/supervisor"
	"github.com/DoyleJ11/tug-of-war-backend/internal/types"
)

// Session is the game.Host its adapter sees. These methods run on the
// session goroutine only.
var _ game.Host = (*Session)(nil)

func (s *Session) Phase() game.Phase { return s.phase }

func (s *Session) SetPhase(p game.Phase) {
	if !p.Valid() || p.Rank() <= s.phase.Rank() {
		if p != s.phase {
			s.log.Debug("ignoring phase regression", zap.String("from", string(s.phase)), zap.String("to", string(p)))
		}
		return
	}
	s.phase = p
	s.log.Info("phase changed", zap.String("phase", string(p)))

	if p == game.PhaseEnded {
		s.endedAt = s.deps.Now()
		s.paused = false
		s.deps.Timers.Cancel(s.cfg.Code, s.id, supervisor.ControllerGrace)
		if !s.closing {
			s.deps.Timers.Schedule(s.cfg.Code, s.id, supervisor.Cleanup, s.cfg.CleanupAfter)
		}
	}

	msg := types.Phase{Type: "phase", Phase: string(p)}
	s.BroadcastPlayers(msg)
	s.SendController(msg)
}

func (s *Session) SendPlayer(connID string, msg any) {
	pc, ok := s.players[connID]
	if !ok {
		return
	}
	if !pc.Peer.Send(msg) {
		s.log.Debug("player send dropped", zap.String("conn_id", connID))
	}
}

func (s *Session) BroadcastPlayers(msg any) {
	b, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("broadcast marshal failed", zap.Error(err))
		return
	}
	for id, pc := range s.players {
		if !pc.Peer.SendRaw(b) {
			s.log.Debug("player send dropped", zap.String("conn_id", id))
		}
	}
}

func (s *Session) SendController(msg any) {
	if s.controller == nil {
		return
	}
	if !s.controller.Send(msg) {
		s.log.Debug("controller send dropped")
	}
}

// Players lists live connections in seat order.
func (s *Session) Players() []game.Player {
	out := make([]game.Player, 0, len(s.players))
	for _, pc := range s.players {
		out = append(out, pc.player())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seat != out[j].Seat {
			return out[i].Seat < out[j].Seat
		}
		return out[i].ConnID < out[j].ConnID
	})
	return out
}

func (s *Session) Finalize(doc results.Document) {
	if s.deps.Finalizer == nil {
		return
	}
	s.deps.Finalizer.Submit(doc, func(o results.Outcome) {
		s.Post(recordSaved{Outcome: o})
	})
}

func (s *Session) Now() time.Time { return s.deps.Now() }

func (s *Session) Logger() *zap.Logger { return s.log }

func (s *Session) sortedIdentities() []*Identity {
	out := make([]*Identity, 0, len(s.identities))
	for _, ident := range s.identities {
		out = append(out, ident)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seat < out[j].Seat })
	return out
}
