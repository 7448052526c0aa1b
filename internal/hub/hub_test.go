package hub

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/tug-of-war-backend/internal/game"
	"github.com/DoyleJ11/tug-of-war-backend/internal/game/tugofwar"
	"github.com/DoyleJ11/tug-of-war-backend/internal/results"
	"github.com/DoyleJ11/tug-of-war-backend/internal/session"
	"github.com/DoyleJ11/tug-of-war-backend/internal/store"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	cat := game.NewCatalog()
	tugofwar.Register(cat)
	cat.Register(game.GenericGameType, game.NewGeneric)

	h := NewHub(context.Background(), Options{
		Catalog:         cat,
		Grace:           time.Second,
		CleanupAfter:    time.Second,
		DefaultCapacity: 40,
	})
	t.Cleanup(h.Shutdown)
	return h
}

func tugConfig(code string) session.Config {
	return session.Config{Code: code, Game: game.Config{GameType: tugofwar.GameType, TeamCount: 2}}
}

func TestHub_Create_Get_SamePointer(t *testing.T) {
	ctx := context.Background()
	h := newTestHub(t)

	r1, err := h.Create(ctx, tugConfig("ZEDA"))
	require.NoError(t, err)
	require.NoError(t, r1.Err)
	require.True(t, r1.Created)

	s, err := h.Get(ctx, "ZEDA")
	require.NoError(t, err)
	if r1.Session == nil || s == nil || r1.Session != s {
		t.Fatalf("expected same session pointer")
	}

	// A second create for the same code hands back the live session.
	r2, err := h.Create(ctx, tugConfig("ZEDA"))
	require.NoError(t, err)
	assert.False(t, r2.Created)
	assert.Same(t, r1.Session, r2.Session)
}

func TestHub_GeneratesCodeWhenEmpty(t *testing.T) {
	ctx := context.Background()
	h := newTestHub(t)

	r, err := h.Create(ctx, tugConfig(""))
	require.NoError(t, err)
	require.NoError(t, r.Err)
	assert.True(t, ValidCode(r.Session.Code()), "generated code %q", r.Session.Code())
}

func TestHub_UnknownGameType(t *testing.T) {
	h := newTestHub(t)

	r, err := h.Create(context.Background(), session.Config{Code: "ABCD", Game: game.Config{GameType: "chess"}})
	require.NoError(t, err)
	assert.Nil(t, r.Session)
	assert.Equal(t, game.ReasonUnknownGameType, game.ReasonOf(r.Err))

	n, err := h.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHub_RejectedAdapterConfig(t *testing.T) {
	h := newTestHub(t)

	cfg := tugConfig("ABCD")
	cfg.Game.TeamCount = 3
	r, err := h.Create(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, game.ReasonInvalidTeamCount, game.ReasonOf(r.Err))

	s, err := h.Get(context.Background(), "ABCD")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestHub_RemoveIgnoresOtherSessionID(t *testing.T) {
	ctx := context.Background()
	h := newTestHub(t)

	r, err := h.Create(ctx, tugConfig("ABCD"))
	require.NoError(t, err)

	h.Remove("ABCD", "someone-else")
	s, err := h.Get(ctx, "ABCD")
	require.NoError(t, err)
	require.NotNil(t, s)

	h.Remove("ABCD", r.Session.ID())
	s, err = h.Get(ctx, "ABCD")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestHub_Resolve(t *testing.T) {
	ctx := context.Background()
	h := newTestHub(t)

	_, ok := h.Resolve("NOPE")
	assert.False(t, ok)

	r, err := h.Create(ctx, tugConfig("ABCD"))
	require.NoError(t, err)
	target, ok := h.Resolve("ABCD")
	require.True(t, ok)
	assert.Equal(t, r.Session.ID(), target.ID())
}

func TestHub_ShutdownClosesSessions(t *testing.T) {
	ctx := context.Background()
	h := newTestHub(t)

	r, err := h.Create(ctx, tugConfig("ABCD"))
	require.NoError(t, err)

	h.Shutdown()
	select {
	case <-r.Session.Done():
	case <-time.After(time.Second):
		t.Fatal("session still running after hub shutdown")
	}

	_, err = h.Get(ctx, "ABCD")
	assert.True(t, errors.Is(err, ErrHubClosed))
}

func TestHub_ShutdownRecordsOpenMatches(t *testing.T) {
	cat := game.NewCatalog()
	tugofwar.Register(cat)

	for run := 0; run < 20; run++ {
		ctx := context.Background()
		sink := store.NewMemory("")
		fin := results.NewFinalizer(sink, time.Second, nil)
		h := NewHub(ctx, Options{Catalog: cat, Finalizer: fin, Grace: time.Minute, CleanupAfter: time.Minute})

		r, err := h.Create(ctx, tugConfig("ABCD"))
		require.NoError(t, err)
		require.NoError(t, r.Err)
		for i := 0; i < 40; i++ {
			p := session.NewPeer(fmt.Sprintf("p%d", i), 128)
			out, err := r.Session.Join(ctx, p, fmt.Sprintf("player%d", i), "")
			require.NoError(t, err)
			require.True(t, out.Ok, out.Reason)
		}

		h.Shutdown()
		select {
		case <-h.Stopped():
		case <-time.After(2 * time.Second):
			t.Fatal("hub did not report its sessions stopped")
		}
		require.NoError(t, fin.Close(ctx))
		require.Len(t, sink.Keys(), 1, "run %d", run)
	}
}

func TestHub_StoppedWithoutSessions(t *testing.T) {
	h := NewHub(context.Background(), Options{})
	h.Shutdown()
	select {
	case <-h.Stopped():
	case <-time.After(time.Second):
		t.Fatal("empty hub never stopped")
	}
}

func TestHub_OptionDefaults(t *testing.T) {
	h := NewHub(context.Background(), Options{})
	t.Cleanup(h.Shutdown)
	assert.Equal(t, DefaultCapacity, h.opts.DefaultCapacity)
	assert.Equal(t, DefaultGrace, h.opts.Grace)
	assert.Equal(t, DefaultCleanupAfter, h.opts.CleanupAfter)

	_, err := session.New(context.Background(), session.Config{Code: "ABCD"}, session.Deps{
		Adapter: tugofwar.New(),
		Timers:  h.timers,
	})
	assert.ErrorIs(t, err, session.ErrBadConfig)
}

func TestCodes(t *testing.T) {
	for i := 0; i < 50; i++ {
		c, err := GenerateCode()
		require.NoError(t, err)
		require.True(t, ValidCode(c), c)
	}

	assert.Equal(t, "ABCD", NormalizeCode(" abcd "))
	for _, bad := range []string{"", "AB", "ABCD1", "ABCDEFGHI", "AB CD"} {
		assert.False(t, ValidCode(bad), bad)
	}
}
