package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/incomedesk/IncomeDesk/api/internal/session"
)

var errMalformedHeader = errors.New("invalid authorization header format")

// ExtractToken pulls the bearer token out of an Authorization header.
func ExtractToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", errMalformedHeader
	}
	return parts[1], nil
}

// Middleware gates protected routes on a valid session token. A missing
// or malformed header and an unknown or expired token both come back 401,
// with only the two messages the frontend distinguishes: "Unauthorized"
// (no usable credential) and "Session expired" (credential no longer
// valid).
func Middleware(sessions *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := ExtractToken(r.Header.Get("Authorization"))
			if err != nil {
				writeUnauthorized(w, "Unauthorized")
				return
			}

			if !sessions.Validate(token) {
				writeUnauthorized(w, "Session expired")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
