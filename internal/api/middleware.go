package api

import (
	"context"
	"net/http"

	"github.com/kssmani94-hub/CPL6/internal/auth"
	"github.com/kssmani94-hub/CPL6/internal/domain"
)

type contextKey string

const actorKey contextKey = "actor"

// actorHeader carries the acting username on every request.
const actorHeader = "X-Auction-User"

// actorFrom returns the username resolved by requireRole.
func actorFrom(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey).(string)
	return actor
}

// requireRole resolves the acting user from the request header and
// rejects the request unless they hold at least the required role.
func (s *Server) requireRole(required auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := r.Header.Get(actorHeader)
			if actor == "" {
				s.respondError(w, r, domain.ErrUnauthorized("missing "+actorHeader+" header"))
				return
			}
			if err := s.users.RequireRole(actor, required); err != nil {
				s.respondError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// reauthenticate checks the caller's password for operations that
// demand explicit confirmation.
func (s *Server) reauthenticate(r *http.Request, password string) error {
	actor := actorFrom(r.Context())
	if password == "" {
		return domain.ErrUnauthorized("password confirmation required")
	}
	if _, err := s.users.Authenticate(actor, password); err != nil {
		return err
	}
	return nil
}
