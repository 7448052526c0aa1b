package session

import (
	"encoding/json"
	"sync"

	"github.com/coder/websocket"
)

// Peer is one socket's outbound side. The session writes to it without ever
// blocking; the WebSocket writer goroutine drains it.
type Peer struct {
	ID string

	out  chan []byte
	done chan struct{}
	once sync.Once

	mu     sync.Mutex
	status websocket.StatusCode
	reason string
}

func NewPeer(id string, buffer int) *Peer {
	if buffer < 1 {
		buffer = 1
	}
	return &Peer{
		ID:     id,
		out:    make(chan []byte, buffer),
		done:   make(chan struct{}),
		status: websocket.StatusNormalClosure,
	}
}

func (p *Peer) Outbox() <-chan []byte { return p.out }

// Done is closed once the peer has been told to close.
func (p *Peer) Done() <-chan struct{} { return p.done }

func (p *Peer) Closed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Send marshals msg and queues it. A full outbox means a slow client: the
// peer is closed instead of blocking the sender.
func (p *Peer) Send(msg any) bool {
	b, err := json.Marshal(msg)
	if err != nil {
		return false
	}
	return p.SendRaw(b)
}

func (p *Peer) SendRaw(b []byte) bool {
	if p.Closed() {
		return false
	}
	select {
	case p.out <- b:
		return true
	default:
		p.Close(websocket.StatusPolicyViolation, "slow consumer")
		return false
	}
}

// Close is idempotent; the first status and reason win.
func (p *Peer) Close(status websocket.StatusCode, reason string) {
	p.once.Do(func() {
		p.mu.Lock()
		p.status = status
		p.reason = reason
		p.mu.Unlock()
		close(p.done)
	})
}

func (p *Peer) CloseStatus() (websocket.StatusCode, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status, p.reason
}
