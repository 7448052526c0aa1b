package session

import (
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tug-of-war-backend/internal/game"
	"github.com/DoyleJ11/tug-of-war-backend/internal/types"
)

const (
	typeJoinResult   = "joinResult"
	typeResumeResult = "resumeResult"
)

func (pc *PlayerConnection) player() game.Player {
	return game.Player{
		ConnID:    pc.Peer.ID,
		UID:       pc.UID,
		Username:  pc.Username,
		TeamIndex: pc.TeamIndex,
		Seat:      pc.Seat,
	}
}

func (s *Session) join(msg JoinPlayer) JoinOutcome {
	if err := s.deps.Adapter.AdmitJoin(s.phase); err != nil {
		return s.reject(msg.Peer, typeJoinResult, game.ReasonOf(err))
	}
	name := strings.TrimSpace(msg.Username)
	if name == "" {
		return s.reject(msg.Peer, typeJoinResult, game.ReasonMissingUsername)
	}

	key := game.FoldName(name)
	if token, taken := s.names[key]; taken {
		if msg.ResumeToken == "" || msg.ResumeToken != token {
			return s.reject(msg.Peer, typeJoinResult, game.ReasonDuplicateUsername)
		}
		// Same identity asking again by name: rebind, nothing new is created.
		return s.bind(msg.Peer, s.identities[token], nil, typeJoinResult)
	}

	if len(s.identities) >= s.cfg.Game.Capacity {
		return s.reject(msg.Peer, typeJoinResult, game.ReasonPlayerCapReached)
	}

	ident := &Identity{
		UID:      uuid.NewString(),
		Token:    uuid.NewString(),
		Username: name,
		NameKey:  key,
	}
	p := game.Player{ConnID: msg.Peer.ID, UID: ident.UID, Username: name}
	if err := s.deps.Adapter.OnPlayerJoin(s, &p); err != nil {
		return s.reject(msg.Peer, typeJoinResult, reasonOrInternal(err))
	}

	s.seq++
	ident.Seat = s.seq
	if p.Seat > 0 {
		ident.Seat = p.Seat
	}
	ident.TeamIndex = p.TeamIndex
	ident.ConnID = msg.Peer.ID
	s.identities[ident.Token] = ident
	s.names[key] = ident.Token
	s.players[msg.Peer.ID] = &PlayerConnection{
		Peer:        msg.Peer,
		UID:         ident.UID,
		Username:    ident.Username,
		TeamIndex:   ident.TeamIndex,
		Seat:        ident.Seat,
		ResumeToken: ident.Token,
	}

	s.log.Info("player joined",
		zap.String("uid", ident.UID),
		zap.String("username", name),
		zap.Int("team", ident.TeamIndex))
	return s.accept(typeJoinResult, s.players[msg.Peer.ID])
}

func (s *Session) resume(msg ResumePlayer) JoinOutcome {
	ident, ok := s.identities[msg.ResumeToken]
	if !ok || msg.ResumeToken == "" {
		return s.reject(msg.Peer, typeResumeResult, game.ReasonInvalidToken)
	}
	return s.bind(msg.Peer, ident, msg.TeamIndex, typeResumeResult)
}

// bind attaches p to an existing identity. Once the adapter accepts the
// request, any other live connection for the identity is evicted: the newest
// connection always wins. A rejected request leaves it alone.
func (s *Session) bind(p *Peer, ident *Identity, teamOverride *int, resultType string) JoinOutcome {
	gp := game.Player{
		ConnID:    p.ID,
		UID:       ident.UID,
		Username:  ident.Username,
		TeamIndex: ident.TeamIndex,
		Seat:      ident.Seat,
	}
	if err := s.deps.Adapter.CheckResume(gp, teamOverride); err != nil {
		return s.reject(p, resultType, reasonOrInternal(err))
	}

	if ident.ConnID != "" && ident.ConnID != p.ID {
		if stale, ok := s.players[ident.ConnID]; ok {
			s.evict(stale)
		}
	}

	if err := s.deps.Adapter.OnPlayerResume(s, &gp, teamOverride); err != nil {
		return s.reject(p, resultType, reasonOrInternal(err))
	}

	ident.TeamIndex = gp.TeamIndex
	ident.ConnID = p.ID
	s.players[p.ID] = &PlayerConnection{
		Peer:        p,
		UID:         ident.UID,
		Username:    ident.Username,
		TeamIndex:   ident.TeamIndex,
		Seat:        ident.Seat,
		ResumeToken: ident.Token,
	}

	s.log.Info("player resumed",
		zap.String("uid", ident.UID),
		zap.Int("team", ident.TeamIndex),
		zap.String("phase", string(s.phase)))
	return s.accept(resultType, s.players[p.ID])
}

func (s *Session) evict(pc *PlayerConnection) {
	delete(s.players, pc.Peer.ID)
	if ident, ok := s.identities[pc.ResumeToken]; ok && ident.ConnID == pc.Peer.ID {
		ident.ConnID = ""
	}
	s.deps.Adapter.OnPlayerLeave(s, pc.player())
	pc.Peer.Close(websocket.StatusPolicyViolation, "replaced by a newer connection")
	s.log.Info("evicted stale connection", zap.String("uid", pc.UID), zap.String("conn_id", pc.Peer.ID))
}

func (s *Session) playerGone(connID string) {
	pc, ok := s.players[connID]
	if !ok {
		// Already evicted.
		return
	}
	delete(s.players, connID)
	if ident, ok := s.identities[pc.ResumeToken]; ok && ident.ConnID == connID {
		ident.ConnID = ""
	}
	s.deps.Adapter.OnPlayerLeave(s, pc.player())
	s.log.Debug("player disconnected", zap.String("uid", pc.UID))
}

func (s *Session) accept(resultType string, pc *PlayerConnection) JoinOutcome {
	team := pc.TeamIndex
	pc.Peer.Send(types.JoinResult{
		Type:        resultType,
		Ok:          true,
		Code:        s.cfg.Code,
		UID:         pc.UID,
		Username:    pc.Username,
		TeamIndex:   &team,
		ResumeToken: pc.ResumeToken,
		Phase:       string(s.phase),
	})
	if s.paused {
		pc.Peer.Send(types.Phase{Type: "phase", Phase: phasePaused})
	}
	s.deps.Adapter.OnPlayerReady(s, pc.player())
	return JoinOutcome{
		Ok:        true,
		UID:       pc.UID,
		Token:     pc.ResumeToken,
		TeamIndex: pc.TeamIndex,
		Phase:     s.phase,
	}
}

func (s *Session) reject(p *Peer, resultType, reason string) JoinOutcome {
	p.Send(types.JoinResult{Type: resultType, Ok: false, Reason: reason, Code: s.cfg.Code})
	return JoinOutcome{
		Reason: reason,
		Phase:  s.phase,
		Close:  reason == game.ReasonDuplicateUsername,
	}
}

func (s *Session) status(username string) Status {
	st := Status{Phase: s.phase, Paused: s.paused}
	name := strings.TrimSpace(username)
	if name == "" {
		return st
	}
	if token, ok := s.names[game.FoldName(name)]; ok {
		team := s.identities[token].TeamIndex
		st.TeamIndex = &team
	}
	return st
}

func reasonOrInternal(err error) string {
	if r := game.ReasonOf(err); r != "" {
		return r
	}
	return "internal_error"
}
