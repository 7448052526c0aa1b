package ws

import (
	"context"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tug-of-war-backend/internal/game"
	"github.com/DoyleJ11/tug-of-war-backend/internal/hub"
	"github.com/DoyleJ11/tug-of-war-backend/internal/session"
	"github.com/DoyleJ11/tug-of-war-backend/internal/types"
)

// dispatch routes one decoded message. It returns false when the socket
// should stop reading.
func (c *client) dispatch(ctx context.Context, msg types.Inbound) bool {
	switch m := msg.(type) {
	case types.Ping:
		c.peer.Send(types.Pong{Type: "pong"})
	case types.Create:
		c.create(ctx, m)
	case types.Join:
		return c.join(ctx, m)
	case types.Resume:
		return c.resume(ctx, m)
	case types.PlayerEventMsg:
		c.playerEvent(m)
	case types.ControllerEventMsg:
		c.controllerEvent(m)
	}
	return true
}

func (c *client) create(ctx context.Context, m types.Create) {
	fail := func(reason string) {
		c.peer.Send(types.Created{Type: "created", Ok: false, Reason: reason})
	}
	if c.role != roleNone {
		c.peer.Send(types.InvalidRequest(game.ReasonAlreadyBound))
		return
	}

	code := hub.NormalizeCode(m.RequestedCode)
	if code != "" && !hub.ValidCode(code) {
		fail(game.ReasonInvalidCode)
		return
	}
	if !c.hub.Catalog().Has(m.GameType) {
		fail(game.ReasonUnknownGameType)
		return
	}

	res, err := c.hub.Create(ctx, session.Config{
		Code: code,
		Game: game.Config{
			GameType:  m.GameType,
			Location:  m.Location,
			Capacity:  m.AllowedNumberOfPlayers,
			TeamCount: m.TeamCount,
			BestOf:    m.BestOf,
		},
	})
	if err != nil {
		c.log.Warn("create failed", zap.Error(err))
		c.peer.Send(types.Error{Type: "error", Kind: types.ErrorKindExternal, Reason: "unavailable", Message: err.Error()})
		return
	}
	if res.Err != nil {
		fail(reasonOf(res.Err))
		return
	}

	// The session replies to the controller itself, including for rejects.
	att, err := res.Session.AttachController(ctx, c.peer, m.GameType, m.Location)
	if err != nil {
		fail(game.ReasonCodeNotFound)
		return
	}
	if !att.Ok {
		return
	}
	c.bind(roleController, res.Session)
	c.log.Info("controller bound", zap.String("code", c.code), zap.Bool("created", res.Created), zap.Bool("reattached", att.Reattached))
}

func (c *client) join(ctx context.Context, m types.Join) bool {
	sess, ok := c.lookupForPlayer(ctx, "joinResult", m.Code)
	if !ok {
		return true
	}
	out, err := sess.Join(ctx, c.peer, m.Username, m.ResumeToken)
	return c.playerBound(sess, out, err, "joinResult")
}

func (c *client) resume(ctx context.Context, m types.Resume) bool {
	sess, ok := c.lookupForPlayer(ctx, "resumeResult", m.Code)
	if !ok {
		return true
	}
	out, err := sess.Resume(ctx, c.peer, m.ResumeToken, m.TeamIndex)
	return c.playerBound(sess, out, err, "resumeResult")
}

func (c *client) lookupForPlayer(ctx context.Context, resultType, raw string) (*session.Session, bool) {
	fail := func(reason string) {
		c.peer.Send(types.JoinResult{Type: resultType, Ok: false, Reason: reason})
	}
	if c.role != roleNone {
		c.peer.Send(types.InvalidRequest(game.ReasonAlreadyBound))
		return nil, false
	}
	code := hub.NormalizeCode(raw)
	if !hub.ValidCode(code) {
		fail(game.ReasonInvalidCode)
		return nil, false
	}
	sess, err := c.hub.Get(ctx, code)
	if err != nil || sess == nil {
		fail(game.ReasonCodeNotFound)
		return nil, false
	}
	return sess, true
}

func (c *client) playerBound(sess *session.Session, out session.JoinOutcome, err error, resultType string) bool {
	if err != nil {
		c.peer.Send(types.JoinResult{Type: resultType, Ok: false, Reason: game.ReasonCodeNotFound})
		return true
	}
	if out.Close {
		c.peer.Close(websocket.StatusPolicyViolation, out.Reason)
		return false
	}
	if !out.Ok {
		return true
	}
	c.bind(rolePlayer, sess)
	return true
}

func (c *client) bind(r role, sess *session.Session) {
	c.role = r
	c.sess = sess
	c.code = sess.Code()
	c.log = c.log.With(zap.String("code", c.code))
}

func (c *client) playerEvent(m types.PlayerEventMsg) {
	if c.role != rolePlayer {
		c.peer.Send(types.InvalidRequest(game.ReasonNotBound))
		return
	}
	if m.Code != "" && hub.NormalizeCode(m.Code) != c.code {
		c.peer.Send(types.InvalidRequest(game.ReasonSessionMismatch))
		return
	}
	c.sess.Post(session.FromPlayer{ConnID: c.peer.ID, Event: m.Payload})
}

func (c *client) controllerEvent(m types.ControllerEventMsg) {
	if c.role != roleController {
		c.peer.Send(types.InvalidRequest(game.ReasonNotBound))
		return
	}
	if m.Code != "" && hub.NormalizeCode(m.Code) != c.code {
		c.peer.Send(types.InvalidRequest(game.ReasonSessionMismatch))
		return
	}
	if !types.KnownControllerKind(m.Payload.Kind) {
		c.peer.Send(types.InvalidRequest(game.ReasonUnknownKind))
		return
	}
	c.sess.Post(session.FromController{ConnID: c.peer.ID, Event: m.Payload})
}

func reasonOf(err error) string {
	if r := game.ReasonOf(err); r != "" {
		return r
	}
	return "internal_error"
}
