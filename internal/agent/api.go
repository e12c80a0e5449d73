package agent

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"sessionkeeper/internal/session"
	"sessionkeeper/pkg/logging"
	"sessionkeeper/pkg/oauth"
)

// TokenResponse is returned by GET /v1/token.
type TokenResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// SessionResponse is returned by GET /v1/session.
type SessionResponse struct {
	AgentID       string          `json:"agentID"`
	Tab           string          `json:"tab"`
	State         State           `json:"state"`
	Authenticated bool            `json:"authenticated"`
	ExpiresAt     *time.Time      `json:"expiresAt,omitempty"`
	Identity      *oauth.Identity `json:"identity,omitempty"`
	Error         string          `json:"error,omitempty"`
	StartedAt     time.Time       `json:"startedAt"`
}

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"description,omitempty"`
}

// RequestHeader must be set to "1" on POST requests. Browsers cannot send it
// cross-origin without a CORS preflight, which the API never answers.
const RequestHeader = "X-Sessionkeeper-Request"

// Handler returns the agent's HTTP API.
func (a *Agent) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/token", a.handleToken)
	mux.HandleFunc("GET /v1/session", a.handleSession)
	mux.Handle("POST /v1/handoff", requireRequestHeader(http.HandlerFunc(a.handleHandoff)))
	mux.Handle("POST /v1/refresh", requireRequestHeader(http.HandlerFunc(a.handleRefresh)))
	return loopbackOnly(mux)
}

// loopbackOnly rejects requests whose Host is not a loopback name, so a web
// page cannot reach the API through DNS rebinding, and requests sent by a
// browser on behalf of a web page, which always carry Origin.
func loopbackOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		ip := net.ParseIP(host)
		if host != "localhost" && (ip == nil || !ip.IsLoopback()) {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden_host"})
			return
		}
		if r.Header.Get("Origin") != "" {
			logging.Warn("Agent", "Rejected %s %s from origin %q", r.Method, r.URL.Path, r.Header.Get("Origin"))
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden_origin"})
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r)
	})
}

func requireRequestHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(RequestHeader) != "1" {
			writeJSON(w, http.StatusForbidden, errorResponse{
				Error:       "missing_request_header",
				Description: RequestHeader + ": 1 is required",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Agent) handleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token, ok := a.session.GetValidAccessToken(ctx)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "no_session"})
		return
	}
	resp := TokenResponse{AccessToken: token}
	if rec, err := a.session.Record(ctx); err == nil && rec != nil {
		resp.ExpiresAt = rec.ExpiresAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *Agent) handleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap := a.Snapshot()

	resp := SessionResponse{
		AgentID:   a.id,
		Tab:       a.session.Tab(),
		State:     snap.State,
		Identity:  snap.Identity,
		StartedAt: snap.Started,
	}
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}
	_, resp.Authenticated = a.session.GetValidAccessToken(ctx)
	if rec, err := a.session.Record(ctx); err == nil && rec != nil {
		expiresAt := rec.ExpiresAt
		resp.ExpiresAt = &expiresAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *Agent) handleHandoff(w http.ResponseWriter, r *http.Request) {
	err := a.session.PublishHandoff(r.Context())
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, session.ErrNoSession):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "no_session"})
	default:
		logging.Error("Agent", err, "Failed to publish handoff")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "handoff_failed", Description: err.Error()})
	}
}

func (a *Agent) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := a.session.RefreshSession(r.Context()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, &session.ConfigurationError{}) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, errorResponse{Error: "refresh_failed", Description: err.Error()})
		return
	}
	a.setState(StateRedirecting, nil, nil)
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Agent", "Failed to write response: %v", err)
	}
}
