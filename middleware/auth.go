package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"nfl-pickem-live/apperror"
	"nfl-pickem-live/interfaces"
	"nfl-pickem-live/logging"

	"golang.org/x/crypto/bcrypt"
)

type identityContextKey struct{}

// AdminKeyHeader carries the scheduler service key for admin routes
const AdminKeyHeader = "X-Admin-Key"

// Identity is the authenticated caller. UserID 0 is the service identity behind the admin key.
type Identity struct {
	UserID int
	Name   string
	Admin  bool
}

// IdentityFrom returns the caller placed in ctx by the auth middleware
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*Identity)
	return id, ok && id != nil
}

// WithIdentity stores id in ctx
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// AuthMiddleware resolves bearer tokens (header or auth_token cookie) and guards admin routes
type AuthMiddleware struct {
	tokens       interfaces.TokenValidator
	adminKeyHash []byte
	logger       *logging.Logger
}

// NewAuthMiddleware builds the middleware. An empty adminKeyHash disables the service key.
func NewAuthMiddleware(tokens interfaces.TokenValidator, adminKeyHash string) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:       tokens,
		adminKeyHash: []byte(adminKeyHash),
		logger:       logging.WithPrefix("Auth"),
	}
}

// RequireAuth rejects requests without a valid token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := m.identityFromRequest(r)
		if err != nil || id == nil {
			deny(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// OptionalAuth attaches the caller when a valid token is present
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := m.identityFromRequest(r); err == nil && id != nil {
			r = r.WithContext(WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin admits tokens carrying the admin claim, or the service key
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get(AdminKeyHeader); key != "" {
			if !m.validAdminKey(key) {
				m.logger.Warnf("Rejected admin key from %s for %s", r.RemoteAddr, r.URL.Path)
				deny(w, http.StatusForbidden, string(apperror.KindForbidden), "invalid admin key")
				return
			}
			id := &Identity{Name: "service", Admin: true}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
			return
		}

		id, err := m.identityFromRequest(r)
		if err != nil || id == nil {
			deny(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if !id.Admin {
			deny(w, http.StatusForbidden, string(apperror.KindForbidden), "administrator access required")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func (m *AuthMiddleware) validAdminKey(key string) bool {
	if len(m.adminKeyHash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(m.adminKeyHash, []byte(key)) == nil
}

// identityFromRequest returns nil, nil when the request carries no token
func (m *AuthMiddleware) identityFromRequest(r *http.Request) (*Identity, error) {
	token := ""
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = strings.TrimSpace(parts[1])
		}
	}
	if token == "" {
		if cookie, err := r.Cookie("auth_token"); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		return nil, nil
	}

	claims, err := m.tokens.Validate(token)
	if err != nil {
		m.logger.Debugf("Invalid token on %s: %v", r.URL.Path, err)
		return nil, err
	}
	return &Identity{UserID: claims.UserID, Name: claims.Name, Admin: claims.Admin}, nil
}

func deny(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": kind, "message": message})
}
