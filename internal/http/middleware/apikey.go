package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"conciertapp/internal/logging"
)

// APIKeyHeader is the header carrying the shared maintenance secret.
const APIKeyHeader = "x-api-key"

// APIKey rejects requests whose x-api-key header does not match. When hash
// is set the header is checked against it with bcrypt, otherwise it is
// compared to key in constant time. With neither configured every request
// is rejected.
func APIKey(key, hash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !validKey(r.Header.Get(APIKeyHeader), key, hash) {
				logging.WithContext(r.Context()).Warn().
					Str("path", r.URL.Path).
					Msg("rejected request without a valid api key")
				writeError(w, http.StatusUnauthorized, "Unauthorized access")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func validKey(provided, key, hash string) bool {
	if provided == "" {
		return false
	}
	if hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(provided)) == nil
	}
	if key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(key)) == 1
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: message})
}
