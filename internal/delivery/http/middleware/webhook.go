package middleware

import (
	"crypto/subtle"
	"net/http"

	h "homieplanner/internal/delivery/http/helpers"
)

// RequireWebhookToken returns a wrapper that checks the shared gateway
// token in the X-Webhook-Token header. The comparison is constant time.
// On mismatch it responds with 401 and does not call next.
func RequireWebhookToken(token string) func(http.HandlerFunc) http.HandlerFunc {
	expected := []byte(token)
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get("X-Webhook-Token"))
			if len(expected) == 0 || subtle.ConstantTimeCompare(expected, got) != 1 {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid webhook token")
				return
			}
			next(w, r)
		}
	}
}
