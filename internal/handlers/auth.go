package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/incomedesk/IncomeDesk/api/internal/auth"
	"github.com/incomedesk/IncomeDesk/api/internal/logging"
	"github.com/incomedesk/IncomeDesk/api/internal/metrics"
	"github.com/incomedesk/IncomeDesk/api/internal/middleware"
	"github.com/incomedesk/IncomeDesk/api/internal/ratelimit"
	"github.com/incomedesk/IncomeDesk/api/internal/session"
)

// AuthHandlers serves the password-for-token exchange.
type AuthHandlers struct {
	verifier *auth.Verifier
	sessions *session.Store
	attempts *ratelimit.Store
	logger   *logging.Logger
}

// NewAuthHandlers creates auth handlers
func NewAuthHandlers(verifier *auth.Verifier, sessions *session.Store, attempts *ratelimit.Store, logger *logging.Logger) *AuthHandlers {
	return &AuthHandlers{
		verifier: verifier,
		sessions: sessions,
		attempts: attempts,
		logger:   logger,
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login handles POST /api/auth. Every request counts against the
// caller's auth window before the password is even looked at; a correct
// password then forgives the recorded attempts, so earlier typos do not
// count against the next login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	clientKey := middleware.ClientIP(r)

	decision := h.attempts.Check(clientKey)
	if !decision.Allowed {
		metrics.RecordRateLimitDenial("auth")
		h.logger.Warn("Auth rate limit exceeded", map[string]interface{}{
			"client":      clientKey,
			"retry_after": decision.RetryAfter,
		})
		WriteRateLimited(w, "Too many login attempts, please try again later", decision.RetryAfter)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !h.verifier.Verify(req.Password) {
		// One message for every failure mode, so a response never
		// confirms whether a guess was close.
		h.logger.Warn("Failed login attempt", map[string]interface{}{
			"client":    clientKey,
			"remaining": decision.Remaining,
		})
		WriteError(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	h.attempts.Clear(clientKey)

	token, err := h.sessions.Issue()
	if err != nil {
		h.logger.Error("Failed to issue session token", err, nil)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	metrics.SetActiveSessions(h.sessions.Len())
	h.logger.Info("Session issued", map[string]interface{}{"client": clientKey})

	WriteSuccess(w, map[string]interface{}{
		"success": true,
		"token":   token,
	}, http.StatusOK)
}
