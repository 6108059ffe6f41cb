package auth

import (
	"net/http"
	"strings"
)

// StaffCookie carries the staff session token for browser-based tooling.
const StaffCookie = "staff_token"

const bearerPrefix = "bearer "

// ExtractBearerToken returns the staff token from the Authorization header,
// falling back to the staff cookie. The scheme is matched case-insensitively.
func ExtractBearerToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(authHeader) > len(bearerPrefix) && strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(authHeader[len(bearerPrefix):])
	}

	if cookie, err := r.Cookie(StaffCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return ""
}
