package supervisor

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Kind string

const (
	ControllerGrace Kind = "controller_grace"
	Cleanup         Kind = "cleanup"
)

// Target is a live session as resolved at fire time.
type Target interface {
	ID() string
	// Notify hands the fired kind to the session. It returns false when the
	// session is already gone.
	Notify(kind Kind) bool
}

// Resolver looks a session up by room code.
type Resolver interface {
	Resolve(code string) (Target, bool)
}

type key struct {
	code      string
	sessionID string
	kind      Kind
}

type entry struct {
	timer *time.Timer
	gen   uint64
}

// Supervisor owns deferred session timers. A timer remembers only the room
// code and session id; at fire time it re-resolves the session and drops the
// fire if the code now belongs to a different session or none at all.
type Supervisor struct {
	resolver Resolver
	log      *zap.Logger

	mu      sync.Mutex
	gen     uint64
	pending map[key]entry
	stopped bool
}

func New(resolver Resolver, log *zap.Logger) *Supervisor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Supervisor{
		resolver: resolver,
		log:      log,
		pending:  make(map[key]entry),
	}
}

// Schedule arms kind for the session, replacing any pending timer of the
// same kind.
func (s *Supervisor) Schedule(code, sessionID string, kind Kind, after time.Duration) {
	k := key{code: code, sessionID: sessionID, kind: kind}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if old, ok := s.pending[k]; ok {
		old.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.pending[k] = entry{
		gen:   gen,
		timer: time.AfterFunc(after, func() { s.fire(k, gen) }),
	}
}

// Cancel disarms kind. Returns true if a timer was pending.
func (s *Supervisor) Cancel(code, sessionID string, kind Kind) bool {
	k := key{code: code, sessionID: sessionID, kind: kind}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pending[k]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.pending, k)
	return true
}

// CancelAll disarms every timer of one session.
func (s *Supervisor) CancelAll(code, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.pending {
		if k.code == code && k.sessionID == sessionID {
			e.timer.Stop()
			delete(s.pending, k)
		}
	}
}

func (s *Supervisor) Pending(code, sessionID string, kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key{code: code, sessionID: sessionID, kind: kind}]
	return ok
}

func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for k, e := range s.pending {
		e.timer.Stop()
		delete(s.pending, k)
	}
}

func (s *Supervisor) fire(k key, gen uint64) {
	s.mu.Lock()
	e, ok := s.pending[k]
	if !ok || e.gen != gen {
		// Cancelled or re-armed after this timer was already running.
		s.mu.Unlock()
		return
	}
	delete(s.pending, k)
	s.mu.Unlock()

	target, ok := s.resolver.Resolve(k.code)
	if !ok || target.ID() != k.sessionID {
		s.log.Debug("timer fired for a session that no longer exists",
			zap.String("code", k.code),
			zap.String("session_id", k.sessionID),
			zap.String("kind", string(k.kind)))
		return
	}
	if !target.Notify(k.kind) {
		s.log.Debug("session closed before timer delivery",
			zap.String("code", k.code),
			zap.String("kind", string(k.kind)))
	}
}
