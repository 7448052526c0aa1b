package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tug-of-war-backend/internal/hub"
	"github.com/DoyleJ11/tug-of-war-backend/internal/session"
	"github.com/DoyleJ11/tug-of-war-backend/internal/types"
)

const readLimit = 16 << 10

type Options struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	OutboxSize     int
	OriginPatterns []string
	Log            *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 90 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.OutboxSize <= 0 {
		o.OutboxSize = 32
	}
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	return o
}

// Handler upgrades the request and serves one socket. The first create,
// join or resume message binds the socket to a role for its lifetime.
func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	opts = opts.withDefaults()
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			opts.Log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(readLimit)

		c := &client{
			hub:  h,
			opts: opts,
			conn: conn,
			peer: session.NewPeer(uuid.NewString(), opts.OutboxSize),
		}
		c.log = opts.Log.With(zap.String("conn_id", c.peer.ID))
		c.serve(r.Context())
	}
}

type role int

const (
	roleNone role = iota
	roleController
	rolePlayer
)

type client struct {
	hub  *hub.Hub
	opts Options
	conn *websocket.Conn
	peer *session.Peer
	log  *zap.Logger

	role role
	code string
	sess *session.Session
}

func (c *client) serve(ctx context.Context) {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop(ctx)
	}()

	c.readLoop(ctx)

	c.leave()
	c.peer.Close(websocket.StatusNormalClosure, "")
	<-writerDone
}

// writeLoop owns every write to the socket. Once the peer is closed it
// flushes what is already queued, then closes with the peer's status.
func (c *client) writeLoop(ctx context.Context) {
	for {
		select {
		case b := <-c.peer.Outbox():
			if err := c.write(ctx, b); err != nil {
				c.log.Debug("write failed", zap.Error(err))
				c.peer.Close(websocket.StatusGoingAway, "write failed")
				c.conn.CloseNow()
				return
			}
		case <-c.peer.Done():
			c.flush(ctx)
			status, reason := c.peer.CloseStatus()
			_ = c.conn.Close(status, reason)
			return
		}
	}
}

func (c *client) flush(ctx context.Context) {
	for {
		select {
		case b := <-c.peer.Outbox():
			if err := c.write(ctx, b); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *client) write(ctx context.Context, b []byte) error {
	wctx, cancel := context.WithTimeout(ctx, c.opts.WriteTimeout)
	defer cancel()
	return c.conn.Write(wctx, websocket.MessageText, b)
}

func (c *client) readLoop(ctx context.Context) {
	for {
		rctx, cancel := context.WithTimeout(ctx, c.opts.ReadTimeout)
		_, data, err := c.conn.Read(rctx)
		cancel()
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if !c.peer.Closed() && !errors.Is(err, context.Canceled) {
					c.log.Debug("read ended", zap.Error(err))
				}
			}
			return
		}

		msg, err := types.Decode(data)
		if err != nil {
			reason := "bad_json"
			if errors.Is(err, types.ErrUnknownType) {
				reason = "unknown_type"
			}
			c.peer.Send(types.InvalidRequest(reason))
			continue
		}
		if !c.dispatch(ctx, msg) {
			return
		}
	}
}

// leave tells the bound session this socket is gone.
func (c *client) leave() {
	if c.sess == nil {
		return
	}
	switch c.role {
	case roleController:
		c.sess.Post(session.ControllerGone{ConnID: c.peer.ID})
	case rolePlayer:
		c.sess.Post(session.PlayerGone{ConnID: c.peer.ID})
	}
}
