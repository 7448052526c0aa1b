package session

import (
	"context"
	"errors"
	"time"

	"github.com/coder/websocket"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tug-of-war-backend/internal/game"
	"github.com/DoyleJ11/tug-of-war-backend/internal/results"
	"github.com/DoyleJ11/tug-of-war-backend/internal/supervisor"
	"github.com/DoyleJ11/tug-of-war-backend/internal/types"
)

var (
	ErrClosed    = errors.New("session closed")
	ErrNoTimers  = errors.New("session needs a timer supervisor")
	ErrNoAdapter = errors.New("session needs an adapter")
	ErrBadConfig = errors.New("session needs a capacity, a grace period and a cleanup delay")
)

type Msg interface{ isSessionMsg() }

type AttachController struct {
	Peer     *Peer
	GameType string
	Location string
	Reply    chan AttachResult
}

type ControllerGone struct{ ConnID string }

type FromController struct {
	ConnID string
	Event  types.ControllerEvent
}

type JoinPlayer struct {
	Peer        *Peer
	Username    string
	ResumeToken string
	Reply       chan JoinOutcome
}

type ResumePlayer struct {
	Peer        *Peer
	ResumeToken string
	TeamIndex   *int
	Reply       chan JoinOutcome
}

type FromPlayer struct {
	ConnID string
	Event  types.PlayerEvent
}

type PlayerGone struct{ ConnID string }

type GetStatus struct {
	Username string
	Reply    chan Status
}

// GetView reflects internal state without data races; used by tests and the
// status endpoint.
type GetView struct {
	Reply chan View
}

type Shutdown struct{}

type timerFired struct{ Kind supervisor.Kind }

type recordSaved struct{ Outcome results.Outcome }

func (AttachController) isSessionMsg() {}
func (ControllerGone) isSessionMsg()   {}
func (FromController) isSessionMsg()   {}
func (JoinPlayer) isSessionMsg()       {}
func (ResumePlayer) isSessionMsg()     {}
func (FromPlayer) isSessionMsg()       {}
func (PlayerGone) isSessionMsg()       {}
func (GetStatus) isSessionMsg()        {}
func (GetView) isSessionMsg()          {}
func (Shutdown) isSessionMsg()         {}
func (timerFired) isSessionMsg()       {}
func (recordSaved) isSessionMsg()      {}

type AttachResult struct {
	Ok         bool
	Reason     string
	Reattached bool
}

type JoinOutcome struct {
	Ok        bool
	Reason    string
	UID       string
	Token     string
	TeamIndex int
	Phase     game.Phase
	// Close asks the gateway to drop the socket after the reply.
	Close bool
}

type Status struct {
	Phase     game.Phase
	Paused    bool
	TeamIndex *int
}

type View struct {
	Phase         game.Phase
	Paused        bool
	HasController bool
	Players       []game.Player
	Identities    int
	EndedAt       time.Time
}

type Config struct {
	Code         string
	Game         game.Config
	Grace        time.Duration
	CleanupAfter time.Duration
}

// Registry is the part of the hub a session needs to remove itself.
type Registry interface {
	Remove(code, sessionID string)
}

type Deps struct {
	Adapter   game.Adapter
	Registry  Registry
	Timers    *supervisor.Supervisor
	Finalizer *results.Finalizer
	Log       *zap.Logger
	Now       func() time.Time
}

// PlayerConnection is ephemeral: it dies with its socket.
type PlayerConnection struct {
	Peer        *Peer
	UID         string
	Username    string
	TeamIndex   int
	Seat        int
	ResumeToken string
}

// Identity outlives connections and is what a resume token resolves to.
type Identity struct {
	UID       string
	Token     string
	Username  string
	NameKey   string
	Seat      int
	TeamIndex int
	ConnID    string // live connection, "" when none
}

type Session struct {
	id    string
	cfg   Config
	deps  Deps
	log   *zap.Logger
	inbox chan Msg

	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}

	phase      game.Phase
	paused     bool
	attached   bool
	controller *Peer
	players    map[string]*PlayerConnection // connID -> connection
	identities map[string]*Identity         // resume token -> identity
	names      map[string]string            // name key -> resume token
	seq        int
	endedAt    time.Time

	closing     bool
	closeReason string
}

// New initialises the adapter and starts the session goroutine. A rejected
// adapter config returns a *game.Rejection and no goroutine is started.
func New(parent context.Context, cfg Config, deps Deps) (*Session, error) {
	if deps.Adapter == nil {
		return nil, ErrNoAdapter
	}
	if deps.Timers == nil {
		return nil, ErrNoTimers
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.Game.Capacity <= 0 || cfg.Grace <= 0 || cfg.CleanupAfter <= 0 {
		return nil, ErrBadConfig
	}

	id := ulid.Make().String()
	s := &Session{
		id:         id,
		cfg:        cfg,
		deps:       deps,
		log:        deps.Log.With(zap.String("code", cfg.Code), zap.String("session_id", id)),
		inbox:      make(chan Msg, 64),
		phase:      game.PhaseJoin,
		players:    make(map[string]*PlayerConnection),
		identities: make(map[string]*Identity),
		names:      make(map[string]string),
		stopped:    make(chan struct{}),
	}

	if err := deps.Adapter.OnInit(s, cfg.Game); err != nil {
		return nil, err
	}

	s.ctx, s.cancel = context.WithCancel(parent)
	go s.loop()
	// A room nobody ever controls expires like an abandoned one.
	s.deps.Timers.Schedule(cfg.Code, id, supervisor.ControllerGrace, cfg.Grace)
	s.log.Info("session created", zap.String("game_type", cfg.Game.GameType), zap.Int("capacity", cfg.Game.Capacity))
	return s, nil
}

func (s *Session) ID() string   { return s.id }
func (s *Session) Code() string { return s.cfg.Code }

// Inbox exposes the raw mailbox for fire-and-forget messages.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Stopped closes once the goroutine has exited. Any record the session
// produced on the way out has been handed to the finalizer by then.
func (s *Session) Stopped() <-chan struct{} { return s.stopped }

func (s *Session) loop() {
	defer close(s.stopped)
	defer s.closePeers()
	for {
		select {
		case <-s.ctx.Done():
			if !s.closing {
				// Parent shutdown: decide whatever is still open.
				s.closing = true
				s.closeReason = "server shutting down"
				s.deps.Adapter.OnSessionEnd(s)
			}
			return
		case m := <-s.inbox:
			s.handle(m)
			if s.closing {
				return
			}
		}
	}
}

func (s *Session) handle(m Msg) {
	switch msg := m.(type) {
	case AttachController:
		msg.Reply <- s.attachController(msg)
	case ControllerGone:
		s.controllerGone(msg.ConnID)
	case FromController:
		s.fromController(msg)
	case JoinPlayer:
		msg.Reply <- s.join(msg)
	case ResumePlayer:
		msg.Reply <- s.resume(msg)
	case FromPlayer:
		if pc, ok := s.players[msg.ConnID]; ok {
			s.deps.Adapter.OnPlayerMsg(s, pc.player(), msg.Event)
		}
	case PlayerGone:
		s.playerGone(msg.ConnID)
	case GetStatus:
		msg.Reply <- s.status(msg.Username)
	case GetView:
		msg.Reply <- s.view()
	case timerFired:
		s.timerFired(msg.Kind)
	case recordSaved:
		s.recordSaved(msg.Outcome)
	case Shutdown:
		s.destroy("server shutting down")
	}
}

// Post delivers a fire-and-forget message. False means the session is gone.
func (s *Session) Post(m Msg) bool {
	select {
	case s.inbox <- m:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// Notify implements supervisor.Target.
func (s *Session) Notify(kind supervisor.Kind) bool {
	return s.Post(timerFired{Kind: kind})
}

func request[T any](ctx context.Context, s *Session, m Msg, reply chan T) (T, error) {
	var zero T
	select {
	case s.inbox <- m:
	case <-s.ctx.Done():
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case r := <-reply:
		return r, nil
	case <-s.ctx.Done():
		// The reply may have landed just before the session stopped.
		select {
		case r := <-reply:
			return r, nil
		default:
			return zero, ErrClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (s *Session) AttachController(ctx context.Context, p *Peer, gameType, location string) (AttachResult, error) {
	reply := make(chan AttachResult, 1)
	return request(ctx, s, AttachController{Peer: p, GameType: gameType, Location: location, Reply: reply}, reply)
}

func (s *Session) Join(ctx context.Context, p *Peer, username, resumeToken string) (JoinOutcome, error) {
	reply := make(chan JoinOutcome, 1)
	return request(ctx, s, JoinPlayer{Peer: p, Username: username, ResumeToken: resumeToken, Reply: reply}, reply)
}

func (s *Session) Resume(ctx context.Context, p *Peer, resumeToken string, teamIndex *int) (JoinOutcome, error) {
	reply := make(chan JoinOutcome, 1)
	return request(ctx, s, ResumePlayer{Peer: p, ResumeToken: resumeToken, TeamIndex: teamIndex, Reply: reply}, reply)
}

func (s *Session) Status(ctx context.Context, username string) (Status, error) {
	reply := make(chan Status, 1)
	return request(ctx, s, GetStatus{Username: username, Reply: reply}, reply)
}

func (s *Session) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	return request(ctx, s, GetView{Reply: reply}, reply)
}

func (s *Session) closePeers() {
	reason := s.closeReason
	if reason == "" {
		reason = "session closed"
	}
	if s.controller != nil {
		s.controller.Close(websocket.StatusGoingAway, reason)
		s.controller = nil
	}
	for id, pc := range s.players {
		pc.Peer.Close(websocket.StatusGoingAway, reason)
		delete(s.players, id)
	}
	s.log.Info("session stopped", zap.String("reason", reason))
}

// destroy ends the session for good and frees its code.
func (s *Session) destroy(reason string) {
	if s.closing {
		return
	}
	s.closing = true
	s.closeReason = reason
	s.deps.Adapter.OnSessionEnd(s)
	s.deps.Timers.CancelAll(s.cfg.Code, s.id)
	if s.deps.Registry != nil {
		s.deps.Registry.Remove(s.cfg.Code, s.id)
	}
	s.cancel()
}
