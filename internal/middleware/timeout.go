package middleware

import (
	"net/http"
	"time"
)

// Timeout bounds handler execution; a handler still running after d gets a
// 503 written on its behalf.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	body := `{"error":{"code":"timeout","message":"request timed out"}}`
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.TimeoutHandler(next, d, body)
	}
}
