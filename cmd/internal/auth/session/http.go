package session

import (
	"net/http"
	"strings"
)

// DefaultCookieName is the canonical session cookie used by web clients.
const DefaultCookieName = "tock_session"

// TokenFromRequest extracts the opaque session token from a request:
// Authorization bearer header first, then the session cookie.
// Returns "" when no token is present.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if raw := strings.TrimSpace(r.Header.Get("Authorization")); raw != "" {
		parts := strings.SplitN(raw, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if t := strings.TrimSpace(parts[1]); t != "" {
				return t
			}
		}
	}

	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}
