package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/tug-of-war-backend/internal/game"
	"github.com/DoyleJ11/tug-of-war-backend/internal/game/tugofwar"
	"github.com/DoyleJ11/tug-of-war-backend/internal/hub"
	"github.com/DoyleJ11/tug-of-war-backend/internal/session"
	"github.com/DoyleJ11/tug-of-war-backend/internal/ws"
)

func newRouter(t *testing.T) (http.Handler, *hub.Hub) {
	t.Helper()
	cat := game.NewCatalog()
	tugofwar.Register(cat)
	h := hub.NewHub(context.Background(), hub.Options{Catalog: cat, Grace: time.Minute, CleanupAfter: time.Minute})
	t.Cleanup(h.Shutdown)
	return SetupRoutes(h, ws.Options{}, nil), h
}

func get(t *testing.T, r http.Handler, target string) (*httptest.ResponseRecorder, statusResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body statusResponse
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestStatus(t *testing.T) {
	r, h := newRouter(t)
	ctx := context.Background()

	res, err := h.Create(ctx, session.Config{Code: "ABCD", Game: game.Config{GameType: tugofwar.GameType}})
	require.NoError(t, err)
	require.NoError(t, res.Err)
	for i, name := range []string{"Ann", "Ben"} {
		out, err := res.Session.Join(ctx, session.NewPeer(name, 16), name, "")
		require.NoError(t, err)
		require.True(t, out.Ok, "join %d", i)
	}

	rec, body := get(t, r, "/status?code=abcd&username=ben")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Ok)
	assert.Equal(t, "ABCD", body.Code)
	assert.Equal(t, "join", body.Phase)
	require.NotNil(t, body.TeamIndex)
	assert.Equal(t, 1, *body.TeamIndex)

	_, body = get(t, r, "/status?code=ABCD&username=nobody")
	assert.Nil(t, body.TeamIndex)

	rec, body = get(t, r, "/status?code=QQQQ")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, game.ReasonCodeNotFound, body.Reason)

	rec, body = get(t, r, "/status?code=12")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, game.ReasonInvalidCode, body.Reason)
}

func TestHealthz(t *testing.T) {
	r, h := newRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"sessions":0}`, rec.Body.String())

	_, err := h.Create(context.Background(), session.Config{Code: "ABCD", Game: game.Config{GameType: tugofwar.GameType}})
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.JSONEq(t, `{"ok":true,"sessions":1}`, rec.Body.String())
}
