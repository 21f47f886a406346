package auth

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// Verifier checks the shared-secret password. Deployments either set the
// plaintext secret or, preferably, a bcrypt hash of it.
type Verifier struct {
	password string
	hash     []byte
}

// NewVerifier creates a verifier. When both a plaintext password and a
// bcrypt hash are configured, the hash is used.
func NewVerifier(password, bcryptHash string) *Verifier {
	v := &Verifier{password: password}
	if bcryptHash != "" {
		v.hash = []byte(bcryptHash)
	}
	return v
}

// Verify reports whether candidate matches the configured secret. The
// plaintext path uses a constant-time compare so response timing does not
// narrow a guess.
func (v *Verifier) Verify(candidate string) bool {
	if v.hash != nil {
		return bcrypt.CompareHashAndPassword(v.hash, []byte(candidate)) == nil
	}
	if v.password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(v.password), []byte(candidate)) == 1
}
