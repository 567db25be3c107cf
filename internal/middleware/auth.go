package middleware

import (
	"context"
	"net/http"
	"strings"

	"dress-rental/internal/auth"
	"dress-rental/internal/models"
	"dress-rental/pkg/utils"
)

// UserLookup loads the current state of a token's user
type UserLookup interface {
	Get(ctx context.Context, id int) (*models.User, error)
}

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	users      UserLookup
}

func NewAuthMiddleware(jwtManager *auth.JWTManager, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		users:      users,
	}
}

// Authenticate validates the bearer token and stores the operator's Session
// in the request context. Role and active flag come from the database so
// changes apply without waiting for the token to expire.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			utils.Message(w, http.StatusUnauthorized, "UNAUTHORIZED", "authorization header required")
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			utils.Message(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
			return
		}

		user, err := m.users.Get(r.Context(), claims.UserID)
		if err != nil {
			utils.Message(w, http.StatusUnauthorized, "UNAUTHORIZED", "user not found")
			return
		}

		if !user.IsActive {
			utils.Message(w, http.StatusForbidden, "ACCOUNT_INACTIVE", "account is deactivated, contact an administrator")
			return
		}

		ctx := auth.WithSession(r.Context(), &auth.Session{
			UserID:   user.ID,
			Username: user.Username,
			Role:     user.Role,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole admits sessions whose role satisfies one of the given roles.
// It must run after Authenticate.
func (m *AuthMiddleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := auth.SessionFrom(r.Context())
			if s == nil {
				utils.Message(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}
			for _, role := range roles {
				if auth.HasPermission(s.Role, role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.Message(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
		})
	}
}

// RequireAdmin is a middleware that ensures the user has the Administrator role
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return m.RequireRole(models.RoleAdministrator)(next)
}

// bearerToken reads "Authorization: Bearer <token>", falling back to a
// ?token= query parameter for websocket clients that cannot set headers
func bearerToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if token := r.URL.Query().Get("token"); token != "" && strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return token, true
	}
	return "", false
}
