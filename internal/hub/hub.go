package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/tug-of-war-backend/internal/game"
	"github.com/DoyleJ11/tug-of-war-backend/internal/results"
	"github.com/DoyleJ11/tug-of-war-backend/internal/session"
	"github.com/DoyleJ11/tug-of-war-backend/internal/supervisor"
)

var ErrHubClosed = errors.New("hub closed")

const (
	DefaultCapacity     = 40
	DefaultGrace        = 120 * time.Second
	DefaultCleanupAfter = 300 * time.Second
)

type HubMsg interface{ isHubMsg() }

// CreateSession opens a room, or hands back the live session already holding
// the code. An empty Config.Code asks the hub to pick a free one.
type CreateSession struct {
	Config session.Config
	Reply  chan CreateReply
}

type CreateReply struct {
	Session *session.Session
	Created bool
	Err     error
}

type GetSession struct {
	Code  string
	Reply chan *session.Session
}

// RemoveSession frees a code. It is ignored when the code has since been
// taken by a different session instance.
type RemoveSession struct {
	Code      string
	SessionID string
}

type CountSessions struct {
	Reply chan int
}

type ShutdownHub struct{}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (RemoveSession) isHubMsg() {}
func (CountSessions) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}

type Options struct {
	Catalog         *game.Catalog
	Finalizer       *results.Finalizer
	Grace           time.Duration
	CleanupAfter    time.Duration
	DefaultCapacity int
	Log             *zap.Logger
	Now             func() time.Time
}

// Hub is the session registry. Only its goroutine touches the map; every
// other component reaches a session through it.
type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	ctx      context.Context
	cancel   context.CancelFunc
	opts     Options
	timers   *supervisor.Supervisor
	log      *zap.Logger

	live    sync.WaitGroup
	stopped chan struct{}
}

func NewHub(parent context.Context, opts Options) *Hub {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Catalog == nil {
		opts.Catalog = game.NewCatalog()
	}
	if opts.DefaultCapacity <= 0 {
		opts.DefaultCapacity = DefaultCapacity
	}
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	if opts.CleanupAfter <= 0 {
		opts.CleanupAfter = DefaultCleanupAfter
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		ctx:      ctx,
		cancel:   cancel,
		opts:     opts,
		log:      opts.Log.Named("hub"),
		stopped:  make(chan struct{}),
	}
	h.timers = supervisor.New(h, opts.Log.Named("supervisor"))
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

// Stopped closes after the hub has shut down and every session it created
// has exited.
func (h *Hub) Stopped() <-chan struct{} { return h.stopped }

func (h *Hub) Catalog() *game.Catalog { return h.opts.Catalog }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.timers.Stop()
			go func() {
				h.live.Wait()
				close(h.stopped)
			}()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				msg.Reply <- h.create(msg.Config)

			case GetSession:
				msg.Reply <- h.sessions[msg.Code] // May be nil

			case RemoveSession:
				if s := h.sessions[msg.Code]; s != nil && s.ID() == msg.SessionID {
					delete(h.sessions, msg.Code)
					h.log.Info("session removed", zap.String("code", msg.Code), zap.Int("live", len(h.sessions)))
				}

			case CountSessions:
				msg.Reply <- len(h.sessions)

			case ShutdownHub:
				h.log.Info("hub shutting down", zap.Int("live", len(h.sessions)))
				h.timers.Stop()
				clear(h.sessions)
				// Sessions run on child contexts and close their sockets on cancel.
				h.cancel()
			}
		}
	}
}

func (h *Hub) create(cfg session.Config) CreateReply {
	if cfg.Code == "" {
		code, err := h.freeCode()
		if err != nil {
			return CreateReply{Err: err}
		}
		cfg.Code = code
	}
	if s := h.sessions[cfg.Code]; s != nil {
		return CreateReply{Session: s}
	}

	adapter, ok := h.opts.Catalog.New(cfg.Game.GameType)
	if !ok {
		return CreateReply{Err: game.Reject(game.ReasonUnknownGameType)}
	}
	if cfg.Game.Capacity <= 0 {
		cfg.Game.Capacity = h.opts.DefaultCapacity
	}
	if cfg.Grace <= 0 {
		cfg.Grace = h.opts.Grace
	}
	if cfg.CleanupAfter <= 0 {
		cfg.CleanupAfter = h.opts.CleanupAfter
	}

	s, err := session.New(h.ctx, cfg, session.Deps{
		Adapter:   adapter,
		Registry:  h,
		Timers:    h.timers,
		Finalizer: h.opts.Finalizer,
		Log:       h.opts.Log,
		Now:       h.opts.Now,
	})
	if err != nil {
		return CreateReply{Err: err}
	}
	h.sessions[cfg.Code] = s
	h.live.Add(1)
	go func() {
		<-s.Stopped()
		h.live.Done()
	}()
	return CreateReply{Session: s, Created: true}
}

func (h *Hub) freeCode() (string, error) {
	for {
		c, err := GenerateCode()
		if err != nil {
			return "", err
		}
		if h.sessions[c] == nil {
			return c, nil
		}
		h.log.Debug("collision on code, regenerating", zap.String("code", c))
	}
}

func (h *Hub) Create(ctx context.Context, cfg session.Config) (CreateReply, error) {
	reply := make(chan CreateReply, 1)
	if err := h.send(ctx, CreateSession{Config: cfg, Reply: reply}); err != nil {
		return CreateReply{}, err
	}
	return recv(ctx, h, reply)
}

// Get returns the live session for code, or nil.
func (h *Hub) Get(ctx context.Context, code string) (*session.Session, error) {
	reply := make(chan *session.Session, 1)
	if err := h.send(ctx, GetSession{Code: code, Reply: reply}); err != nil {
		return nil, err
	}
	return recv(ctx, h, reply)
}

func (h *Hub) Count(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	if err := h.send(ctx, CountSessions{Reply: reply}); err != nil {
		return 0, err
	}
	return recv(ctx, h, reply)
}

// Remove implements session.Registry. It never blocks on a session.
func (h *Hub) Remove(code, sessionID string) {
	_ = h.send(context.Background(), RemoveSession{Code: code, SessionID: sessionID})
}

// Resolve implements supervisor.Resolver.
func (h *Hub) Resolve(code string) (supervisor.Target, bool) {
	s, err := h.Get(context.Background(), code)
	if err != nil || s == nil {
		return nil, false
	}
	return s, true
}

func (h *Hub) Shutdown() {
	_ = h.send(context.Background(), ShutdownHub{})
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func recv[T any](ctx context.Context, h *Hub, reply chan T) (T, error) {
	var zero T
	select {
	case r := <-reply:
		return r, nil
	case <-h.ctx.Done():
		select {
		case r := <-reply:
			return r, nil
		default:
			return zero, ErrHubClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
