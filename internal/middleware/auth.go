package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// APIKeys is the static set of keys accepted in the X-API-Key header.
type APIKeys struct {
	keys [][]byte
}

// ParseAPIKeys splits a comma separated list, ignoring blanks.
func ParseAPIKeys(csv string) APIKeys {
	var ks APIKeys
	for _, k := range strings.Split(csv, ",") {
		if k = strings.TrimSpace(k); k != "" {
			ks.keys = append(ks.keys, []byte(k))
		}
	}
	return ks
}

func (ks APIKeys) Len() int {
	return len(ks.keys)
}

// Valid compares against every key in constant time.
func (ks APIKeys) Valid(key string) bool {
	if key == "" {
		return false
	}
	ok := 0
	for _, k := range ks.keys {
		ok |= subtle.ConstantTimeCompare(k, []byte(key))
	}
	return ok == 1
}

func Auth(keys APIKeys) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !keys.Valid(r.Header.Get("X-API-Key")) {
				WriteError(w, r, http.StatusUnauthorized, "invalid_api_key", "Invalid or missing X-API-Key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WriteError writes the JSON error body shared by every endpoint.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":       code,
			"message":    message,
			"request_id": GetRequestID(r.Context()),
		},
	})
}
