package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/GrEarl/CloverBINGO-sub000/bingo"
	"github.com/GrEarl/CloverBINGO-sub000/internal/auth"
	"github.com/GrEarl/CloverBINGO-sub000/internal/codec"
	"github.com/GrEarl/CloverBINGO-sub000/internal/directory"
	"github.com/GrEarl/CloverBINGO-sub000/internal/ledger"
	"github.com/GrEarl/CloverBINGO-sub000/internal/session"
)

const (
	maxBodyBytes   = 1 << 16
	requestTimeout = 10 * time.Second
)

type errorResponse struct {
	Error string `json:"error"`
}

type initResponse struct {
	Code        string `json:"code"`
	Created     bool   `json:"created"`
	AdminSecret string `json:"adminSecret,omitempty"`
	ModSecret   string `json:"modSecret,omitempty"`
}

type joinRequest struct {
	DisplayName string `json:"displayName"`
}

type joinResponse struct {
	session.JoinResult
	Ticket string `json:"ticket"`
}

type reelRequest struct {
	Digit  string `json:"digit"`
	Action string `json:"action"`
}

type spotlightRequest struct {
	IDs       []string `json:"ids"`
	UpdatedBy string   `json:"updatedBy"`
}

type ticketRequest struct {
	Role     string `json:"role"`
	PlayerID string `json:"playerId"`
	Screen   string `json:"screen"`
}

type ticketResponse struct {
	Ticket    string    `json:"ticket"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RegisterRoutes mounts the session API, the audit route and the channel.
func (g *Gateway) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/sessions/", g.handleSession)
	mux.HandleFunc("/ws", g.HandleWebSocket)
	mux.HandleFunc("/health", g.handleHealth)
}

// handleSession dispatches /api/sessions/{code}/{action...}.
func (g *Gateway) handleSession(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sessions/"), "/")
	raw, action, _ := strings.Cut(rest, "/")
	code, err := directory.NormalizeCode(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if action == "audit" {
		g.audit.ServeAudit(w, r, code)
		return
	}

	method := http.MethodPost
	if action == "snapshot" {
		method = http.MethodGet
	}
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var handler func(context.Context, http.ResponseWriter, *http.Request, *session.Coordinator)
	switch action {
	case "init":
		handler = g.handleInit
	case "join":
		handler = g.handleJoin
	case "draw/prepare":
		handler = g.handlePrepare
	case "draw/reel":
		handler = g.handleReel
	case "spotlight":
		handler = g.handleSpotlight
	case "end":
		handler = g.handleEnd
	case "tickets":
		handler = g.handleTicket
	case "snapshot":
		handler = g.handleSnapshot
	default:
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	// only init may start a coordinator for a code the store has never seen
	var coord *session.Coordinator
	if action == "init" {
		coord, err = g.directory.Get(code)
	} else {
		coord, err = g.directory.Open(ctx, code)
	}
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	handler(ctx, w, r, coord)
}

func (g *Gateway) handleInit(ctx context.Context, w http.ResponseWriter, _ *http.Request, c *session.Coordinator) {
	secrets, err := c.Initialize(ctx)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	resp := initResponse{Code: c.Code}
	status := http.StatusOK
	if secrets != nil {
		resp.Created = true
		resp.AdminSecret = secrets.Admin
		resp.ModSecret = secrets.Mod
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (g *Gateway) handleJoin(ctx context.Context, w http.ResponseWriter, r *http.Request, c *session.Coordinator) {
	var req joinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := c.Join(ctx, req.DisplayName)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	ticket, err := g.tickets.Issue(auth.Ticket{Code: c.Code, Role: string(session.RoleParticipant), PlayerID: res.PlayerID})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, joinResponse{JoinResult: res, Ticket: ticket})
}

func (g *Gateway) handlePrepare(ctx context.Context, w http.ResponseWriter, r *http.Request, c *session.Coordinator) {
	pending, err := c.Prepare(ctx, bearerToken(r.Header.Get("Authorization")))
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pending": pending})
}

func (g *Gateway) handleReel(ctx context.Context, w http.ResponseWriter, r *http.Request, c *session.Coordinator) {
	var req reelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := c.Reel(ctx, bearerToken(r.Header.Get("Authorization")), req.Digit, req.Action)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (g *Gateway) handleSpotlight(ctx context.Context, w http.ResponseWriter, r *http.Request, c *session.Coordinator) {
	var req spotlightRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sp, err := c.SetSpotlight(ctx, bearerToken(r.Header.Get("Authorization")), req.IDs, req.UpdatedBy)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sp)
}

func (g *Gateway) handleEnd(ctx context.Context, w http.ResponseWriter, r *http.Request, c *session.Coordinator) {
	if err := c.End(ctx, bearerToken(r.Header.Get("Authorization"))); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(session.StatusEnded)})
}

// handleTicket issues a channel ticket. Admin and mod tickets need the role's secret;
// participant tickets need a known player id.
func (g *Gateway) handleTicket(ctx context.Context, w http.ResponseWriter, r *http.Request, c *session.Coordinator) {
	var req ticketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	role, err := session.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t := auth.Ticket{Code: c.Code, Role: string(role)}

	switch role {
	case session.RoleParticipant:
		ok, err := c.PlayerExists(ctx, req.PlayerID)
		if err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
		if !ok {
			writeError(w, http.StatusForbidden, "unknown player")
			return
		}
		t.PlayerID = req.PlayerID
	case session.RoleDisplay:
		screen, err := bingo.ParseDigit(req.Screen)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		t.Screen = string(screen)
	}

	if role.Privileged() {
		secret := bearerToken(r.Header.Get("Authorization"))
		if secret == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer secret")
			return
		}
		if err := c.Authorize(ctx, role, secret); err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
	} else if role != session.RoleParticipant {
		if err := c.Authorize(ctx, role, ""); err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
	}

	signed, err := g.tickets.Issue(t)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	parsed, err := g.tickets.Verify(signed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ticketResponse{Ticket: signed, ExpiresAt: parsed.ExpiresAt})
}

// handleSnapshot returns the same projection the channel would push to the ticket's role.
func (g *Gateway) handleSnapshot(ctx context.Context, w http.ResponseWriter, r *http.Request, c *session.Coordinator) {
	meta, err := g.metaFromTicket(c.Code, r.URL.Query().Get("ticket"))
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	snap, err := c.View(ctx, meta)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, codec.WrapSnapshot(snap))
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"sessions":    len(g.directory.List()),
		"connections": g.ConnectionCount(),
	})
}

// statusForError maps domain errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidTicket), errors.Is(err, auth.ErrTicketExpired):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, session.ErrNotInitialized):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidInput), errors.Is(err, directory.ErrInvalidCode):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrEnded), errors.Is(err, session.ErrNoPendingDraw), errors.Is(err, session.ErrPoolExhausted):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrOwnedElsewhere), errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a small JSON body. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func bearerToken(raw string) string {
	raw = strings.TrimSpace(raw)
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
