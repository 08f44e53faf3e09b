package dav

import (
	"crypto/subtle"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/panshare/sharedav/internal/metrics"
)

// Credentials holds the single account protecting the namespace. Exactly one
// of Password and PasswordBcrypt is set.
type Credentials struct {
	Username       string
	Password       string
	PasswordBcrypt string
}

func (c Credentials) check(user, pass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(c.Username)) == 1
	var passOK bool
	if c.PasswordBcrypt != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(c.PasswordBcrypt), []byte(pass)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(pass), []byte(c.Password)) == 1
	}
	return userOK && passOK
}

// BasicAuth guards next with HTTP Basic authentication.
func BasicAuth(creds Credentials, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || !creds.check(user, pass) {
			metrics.RecordAuthAttempt("failure")
			w.Header().Set("WWW-Authenticate", `Basic realm="sharedav"`)
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		metrics.RecordAuthAttempt("success")
		next.ServeHTTP(w, r)
	})
}
