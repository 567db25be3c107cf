package auth

import (
	"context"

	"dress-rental/internal/models"
)

// Session is the authenticated operator behind a request
type Session struct {
	UserID   int
	Username string
	Role     string
}

type sessionKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the request's session, or nil when unauthenticated
func SessionFrom(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

// ActorID returns the operator's user id for audit columns, nil when there is none
func ActorID(ctx context.Context) *int {
	s := SessionFrom(ctx)
	if s == nil || s.UserID == 0 {
		return nil
	}
	id := s.UserID
	return &id
}

// HasPermission reports whether role satisfies required. Administrators
// satisfy every role; any other role satisfies only itself.
func HasPermission(role, required string) bool {
	if role == models.RoleAdministrator {
		return true
	}
	return role != "" && role == required
}
