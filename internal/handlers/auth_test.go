package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/incomedesk/IncomeDesk/api/internal/auth"
	"github.com/incomedesk/IncomeDesk/api/internal/logging"
	"github.com/incomedesk/IncomeDesk/api/internal/ratelimit"
	"github.com/incomedesk/IncomeDesk/api/internal/session"
)

func testLogger() *logging.Logger {
	return logging.NewLogger("error", "text", "stderr")
}

func newAuthFixture(maxAttempts int) (*AuthHandlers, *session.Store, *ratelimit.Store) {
	sessions := session.NewStore(24 * time.Hour)
	attempts := ratelimit.NewStore(ratelimit.Policy{MaxAttempts: maxAttempts, Window: 15 * time.Minute})
	h := NewAuthHandlers(auth.NewVerifier("open sesame", ""), sessions, attempts, testLogger())
	return h, sessions, attempts
}

func postLogin(h *AuthHandlers, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/auth", strings.NewReader(body))
	req.RemoteAddr = "203.0.113.7:51000"
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	return rec
}

func TestAuthHandlers_Login(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"correct password", `{"password":"open sesame"}`, http.StatusOK, ""},
		{"wrong password", `{"password":"open says me"}`, http.StatusUnauthorized, "Invalid password"},
		{"empty password", `{"password":""}`, http.StatusUnauthorized, "Invalid password"},
		{"not json", `password=x`, http.StatusUnauthorized, "Invalid password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, sessions, _ := newAuthFixture(5)
			rec := postLogin(h, tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body map[string]interface{}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to parse body: %v", err)
			}

			if tt.wantError != "" {
				if body["error"] != tt.wantError {
					t.Errorf("error = %v, want %q", body["error"], tt.wantError)
				}
				return
			}

			token, _ := body["token"].(string)
			if token == "" {
				t.Fatal("expected token in success response")
			}
			if !sessions.Validate(token) {
				t.Error("issued token should validate against the session store")
			}
		})
	}
}

func TestAuthHandlers_RateLimit(t *testing.T) {
	h, _, _ := newAuthFixture(5)

	for i := 0; i < 5; i++ {
		rec := postLogin(h, `{"password":"nope"}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want 401", i+1, rec.Code)
		}
	}

	rec := postLogin(h, `{"password":"open sesame"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("6th attempt: status = %d, want 429 even with the right password", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 response should carry Retry-After")
	}

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse body: %v", err)
	}
	if body.RetryAfter <= 0 {
		t.Errorf("retryAfter = %d, want > 0", body.RetryAfter)
	}
}

func TestAuthHandlers_SuccessForgivesFailures(t *testing.T) {
	h, _, attempts := newAuthFixture(5)

	for i := 0; i < 4; i++ {
		postLogin(h, `{"password":"nope"}`)
	}
	if rec := postLogin(h, `{"password":"open sesame"}`); rec.Code != http.StatusOK {
		t.Fatalf("5th attempt with correct password: status = %d, want 200", rec.Code)
	}

	// History is cleared: the next failure is attempt #1 of a fresh window.
	if rec := postLogin(h, `{"password":"nope"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("post-success failure: status = %d, want 401 (not rate limited)", rec.Code)
	}
	if got := attempts.Remaining("203.0.113.7"); got != 4 {
		t.Errorf("remaining after forgiven history + 1 failure = %d, want 4", got)
	}
}

func TestAuthHandlers_ClientsAreIndependent(t *testing.T) {
	h, _, _ := newAuthFixture(1)

	postLogin(h, `{"password":"nope"}`) // exhausts 203.0.113.7

	req := httptest.NewRequest(http.MethodPost, "/api/auth", strings.NewReader(`{"password":"open sesame"}`))
	req.RemoteAddr = "198.51.100.9:40000"
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("other client: status = %d, want 200", rec.Code)
	}
}
