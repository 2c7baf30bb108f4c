package ledger

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/GrEarl/CloverBINGO-sub000/bingo"
	"github.com/GrEarl/CloverBINGO-sub000/card"
	"github.com/GrEarl/CloverBINGO-sub000/replay"
)

// LiveView is what the running coordinator currently believes.
type LiveView struct {
	Cards        map[string]card.Card
	DrawnNumbers []int
	ProgressByID map[string]bingo.Progress
	Stats        bingo.SessionStats
}

// Matches reports whether r describes the same drawn history, per-player progress
// and aggregate stats as the live view.
func (v LiveView) Matches(r *replay.Result) bool {
	if r == nil {
		return false
	}
	return slices.Equal(r.DrawnNumbers, v.DrawnNumbers) &&
		maps.Equal(r.ProgressByID, v.ProgressByID) &&
		r.Stats == v.Stats
}

// AuditSource resolves the live view of a session after checking the admin secret.
type AuditSource interface {
	AuditView(ctx context.Context, code, adminSecret string) (LiveView, error)
}

// HTTPHandler serves the commit log of a session next to the state rebuilt from it.
type HTTPHandler struct {
	store    Store
	source   AuditSource
	statusOf func(error) int
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPHandler wires the audit route. statusOf maps source errors to HTTP status codes.
func NewHTTPHandler(store Store, source AuditSource, statusOf func(error) int) *HTTPHandler {
	return &HTTPHandler{store: store, source: source, statusOf: statusOf}
}

// ServeAudit handles GET /api/sessions/{code}/audit.
func (h *HTTPHandler) ServeAudit(w http.ResponseWriter, r *http.Request, code string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	secret := bearerToken(r.Header.Get("Authorization"))
	if secret == "" {
		writeError(w, http.StatusUnauthorized, "missing admin secret")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	live, err := h.source.AuditView(ctx, code, secret)
	if err != nil {
		writeError(w, h.statusOf(err), err.Error())
		return
	}
	commits, err := h.store.ListCommits(ctx, code)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query commit log failed")
		return
	}

	resp := map[string]any{
		"code":    code,
		"commits": commits,
	}
	rebuilt, err := replay.Rebuild(live.Cards, commits)
	if err != nil {
		resp["consistent"] = false
		resp["replayError"] = err
		writeJSON(w, http.StatusOK, resp)
		return
	}
	tape, err := replay.BuildTape(live.Cards, commits)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "build tape failed")
		return
	}
	resp["rebuilt"] = rebuilt
	resp["tape"] = tape
	resp["consistent"] = live.Matches(rebuilt)
	writeJSON(w, http.StatusOK, resp)
}

func bearerToken(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
