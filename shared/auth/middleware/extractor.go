package middleware

import (
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// extractBearer only accepts "Authorization: Bearer <token>".
func extractBearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix))
	if token == "" {
		return "", false
	}
	return token, true
}
