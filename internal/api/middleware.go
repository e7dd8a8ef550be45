package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gfw-api/story-api/internal/domain"
)

type ctxKey int

const loggedUserKey ctxKey = iota

// loggedUserFrom parses the identity claim the API gateway injects, either
// as the x-logged-user header or the loggedUser query parameter. A missing
// or malformed claim yields an anonymous request.
func loggedUserFrom(r *http.Request) *domain.LoggedUser {
	raw := r.Header.Get("x-logged-user")
	if raw == "" {
		raw = r.URL.Query().Get("loggedUser")
	}
	if raw == "" {
		return nil
	}

	var user domain.LoggedUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil || user.ID == "" {
		return nil
	}
	return &user
}

// withIdentity stores the gateway claim on the request context.
func (s *Server) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := loggedUserFrom(r); user != nil {
			r = r.WithContext(context.WithValue(r.Context(), loggedUserKey, user))
		}
		next.ServeHTTP(w, r)
	})
}

func identityFrom(ctx context.Context) *domain.LoggedUser {
	user, _ := ctx.Value(loggedUserKey).(*domain.LoggedUser)
	return user
}

// requireUser guards mutating routes: no identity is a 401, and each
// identified caller is rate limited.
func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identityFrom(r.Context())
		if user == nil {
			s.writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if !s.limiter.Allow(user.ID) {
			s.writeError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next(w, r)
	}
}
