package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/DoyleJ11/tug-of-war-backend/internal/game"
	"github.com/DoyleJ11/tug-of-war-backend/internal/hub"
)

type statusResponse struct {
	Ok        bool   `json:"ok"`
	Reason    string `json:"reason,omitempty"`
	Code      string `json:"code,omitempty"`
	Phase     string `json:"phase,omitempty"`
	Paused    bool   `json:"paused,omitempty"`
	TeamIndex *int   `json:"teamIndex,omitempty"`
}

// Status answers "fresh join or resume?" before a client opens a socket.
func Status(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := hub.NormalizeCode(r.URL.Query().Get("code"))
		if !hub.ValidCode(code) {
			writeJSON(w, http.StatusBadRequest, statusResponse{Reason: game.ReasonInvalidCode})
			return
		}

		sess, err := h.Get(r.Context(), code)
		if err != nil {
			log.Warn("status lookup failed", zap.String("code", code), zap.Error(err))
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		if sess == nil {
			writeJSON(w, http.StatusNotFound, statusResponse{Reason: game.ReasonCodeNotFound, Code: code})
			return
		}

		st, err := sess.Status(r.Context(), r.URL.Query().Get("username"))
		if err != nil {
			// Destroyed between lookup and query.
			writeJSON(w, http.StatusNotFound, statusResponse{Reason: game.ReasonCodeNotFound, Code: code})
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{
			Ok:        true,
			Code:      code,
			Phase:     string(st.Phase),
			Paused:    st.Paused,
			TeamIndex: st.TeamIndex,
		})
	}
}

func Healthz(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := h.Count(r.Context())
		if err != nil {
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Ok       bool `json:"ok"`
			Sessions int  `json:"sessions"`
		}{Ok: true, Sessions: n})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
