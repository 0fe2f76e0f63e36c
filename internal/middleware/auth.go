// Package middleware contains HTTP middleware for the storefront service.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"
)

type contextKey string

const agentKey contextKey = "agent"

const (
	adminCookieName = "admin_token"
	adminCookieTTL  = 12 * time.Hour
)

// AdminAuth guards back-office routes with an HMAC-signed cookie carrying the
// agent's name.
type AdminAuth struct {
	secretKey []byte
}

// NewAdminAuth creates the middleware with the given signing secret. An empty
// secret gets a random key, which invalidates admin sessions on restart.
func NewAdminAuth(secret string) *AdminAuth {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AdminAuth{
		secretKey: key,
	}
}

// Middleware checks the admin cookie and adds the agent name to the request
// context.
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(adminCookieName)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		agent, ok := a.parseCookie(cookie.Value)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), agentKey, agent)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetAuthCookie issues the admin cookie for the given agent name.
func (a *AdminAuth) SetAuthCookie(w http.ResponseWriter, agent string) {
	cookie := &http.Cookie{
		Name:     adminCookieName,
		Value:    a.sign(agent),
		Path:     "/",
		Expires:  time.Now().Add(adminCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

func (a *AdminAuth) sign(agent string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(agent))
	signature := mac.Sum(nil)
	return hex.EncodeToString([]byte(agent)) + "." + hex.EncodeToString(signature)
}

func (a *AdminAuth) parseCookie(cookieValue string) (string, bool) {
	parts := strings.Split(cookieValue, ".")
	if len(parts) != 2 {
		return "", false
	}

	raw, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", false
	}
	agent := string(raw)

	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(agent))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(parts[1]), []byte(expected)) {
		return "", false
	}

	return agent, true
}

// GetAgentFromContext extracts the authenticated agent name from the request
// context.
func GetAgentFromContext(ctx context.Context) (string, bool) {
	agent, ok := ctx.Value(agentKey).(string)
	return agent, ok
}
