package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync/atomic"
)

// Error codes reported in AuthResult
const (
	ErrCodeMissingToken  = "MISSING_TOKEN"
	ErrCodeInvalidToken  = "INVALID_TOKEN"
	ErrCodeNotConfigured = "AUTH_NOT_CONFIGURED"
)

// AuthResult is the outcome of one credential check
type AuthResult struct {
	Authenticated bool
	ErrorCode     string
	ErrorMessage  string
}

// Verifier checks bearer credentials against one shared secret. The secret
// is either kept in plaintext and compared in constant time, or kept as a
// bcrypt hash.
type Verifier struct {
	key  string
	hash string

	// digest of the last token that passed the bcrypt check
	verified atomic.Pointer[[sha256.Size]byte]
}

// NewVerifier creates a verifier. When both are set the hash wins.
func NewVerifier(key, hash string) *Verifier {
	return &Verifier{key: key, hash: hash}
}

// Configured reports whether any secret is set. With no secret every
// request is rejected.
func (v *Verifier) Configured() bool {
	return v.key != "" || v.hash != ""
}

// Mode describes how the secret is stored, for startup logging
func (v *Verifier) Mode() string {
	switch {
	case v.hash != "":
		return "bcrypt"
	case v.key != "":
		return "plaintext"
	default:
		return "none"
	}
}

// Authenticate checks a raw bearer token
func (v *Verifier) Authenticate(token string) AuthResult {
	if !v.Configured() {
		return AuthResult{ErrorCode: ErrCodeNotConfigured, ErrorMessage: "Invalid API key"}
	}
	if token == "" {
		return AuthResult{ErrorCode: ErrCodeMissingToken, ErrorMessage: "Invalid API key"}
	}
	if !v.matches(token) {
		return AuthResult{ErrorCode: ErrCodeInvalidToken, ErrorMessage: "Invalid API key"}
	}
	return AuthResult{Authenticated: true}
}

// AuthenticateRequest extracts the bearer token from r and checks it
func (v *Verifier) AuthenticateRequest(r *http.Request) AuthResult {
	return v.Authenticate(ExtractBearerToken(r))
}

func (v *Verifier) matches(token string) bool {
	if v.hash == "" {
		return subtle.ConstantTimeCompare([]byte(token), []byte(v.key)) == 1
	}

	digest := sha256.Sum256([]byte(token))
	if last := v.verified.Load(); last != nil && subtle.ConstantTimeCompare(last[:], digest[:]) == 1 {
		return true
	}
	if !VerifyHash(token, v.hash) {
		return false
	}
	v.verified.Store(&digest)
	return true
}

// ExtractBearerToken returns the token of an "Authorization: Bearer <token>"
// header, or "" when the header is missing or uses another scheme.
func ExtractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}
