package supervisor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	id    string
	fired chan Kind
}

func (f *fakeTarget) ID() string { return f.id }

func (f *fakeTarget) Notify(kind Kind) bool {
	f.fired <- kind
	return true
}

type fakeResolver struct {
	mu      sync.Mutex
	targets map[string]*fakeTarget
}

func (r *fakeResolver) Resolve(code string) (Target, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[code]
	if !ok {
		return nil, false
	}
	return t, true
}

func (r *fakeResolver) set(code string, t *fakeTarget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t == nil {
		delete(r.targets, code)
		return
	}
	r.targets[code] = t
}

func newFixture() (*Supervisor, *fakeResolver, *fakeTarget) {
	target := &fakeTarget{id: "s1", fired: make(chan Kind, 4)}
	res := &fakeResolver{targets: map[string]*fakeTarget{"ABCD": target}}
	return New(res, nil), res, target
}

func recvKind(t *testing.T, ch <-chan Kind, within time.Duration) Kind {
	t.Helper()
	select {
	case k := <-ch:
		return k
	case <-time.After(within):
		t.Fatalf("timed out waiting for timer")
		return ""
	}
}

func recvNoKind(t *testing.T, ch <-chan Kind, within time.Duration) {
	t.Helper()
	select {
	case k := <-ch:
		t.Fatalf("expected no fire within %v, got %s", within, k)
	case <-time.After(within):
	}
}

func TestSchedule_FiresOnce(t *testing.T) {
	s, _, target := newFixture()
	defer s.Stop()

	s.Schedule("ABCD", "s1", ControllerGrace, 10*time.Millisecond)
	require.True(t, s.Pending("ABCD", "s1", ControllerGrace))

	assert.Equal(t, ControllerGrace, recvKind(t, target.fired, time.Second))
	recvNoKind(t, target.fired, 50*time.Millisecond)
	assert.False(t, s.Pending("ABCD", "s1", ControllerGrace))
}

func TestCancel_PreventsFire(t *testing.T) {
	s, _, target := newFixture()
	defer s.Stop()

	s.Schedule("ABCD", "s1", ControllerGrace, 30*time.Millisecond)
	require.True(t, s.Cancel("ABCD", "s1", ControllerGrace))
	require.False(t, s.Cancel("ABCD", "s1", ControllerGrace))

	recvNoKind(t, target.fired, 80*time.Millisecond)
}

func TestSchedule_ReplacesPendingTimer(t *testing.T) {
	s, _, target := newFixture()
	defer s.Stop()

	s.Schedule("ABCD", "s1", Cleanup, 20*time.Millisecond)
	s.Schedule("ABCD", "s1", Cleanup, 120*time.Millisecond)

	recvNoKind(t, target.fired, 60*time.Millisecond)
	assert.Equal(t, Cleanup, recvKind(t, target.fired, time.Second))
}

func TestFire_DropsWhenCodeBelongsToAnotherSession(t *testing.T) {
	s, res, target := newFixture()
	defer s.Stop()

	s.Schedule("ABCD", "s1", Cleanup, 20*time.Millisecond)
	replacement := &fakeTarget{id: "s2", fired: make(chan Kind, 1)}
	res.set("ABCD", replacement)

	recvNoKind(t, target.fired, 80*time.Millisecond)
	recvNoKind(t, replacement.fired, 10*time.Millisecond)
}

func TestFire_DropsWhenSessionGone(t *testing.T) {
	s, res, target := newFixture()
	defer s.Stop()

	s.Schedule("ABCD", "s1", Cleanup, 20*time.Millisecond)
	res.set("ABCD", nil)

	recvNoKind(t, target.fired, 80*time.Millisecond)
}

func TestCancelAll(t *testing.T) {
	s, _, target := newFixture()
	defer s.Stop()

	s.Schedule("ABCD", "s1", ControllerGrace, 20*time.Millisecond)
	s.Schedule("ABCD", "s1", Cleanup, 20*time.Millisecond)
	s.CancelAll("ABCD", "s1")

	recvNoKind(t, target.fired, 80*time.Millisecond)
}
