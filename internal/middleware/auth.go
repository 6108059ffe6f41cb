package middleware

import (
	"context"
	"net/http"

	"coffeeshop-be/internal/auth"
	"coffeeshop-be/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const (
	TokenClaimsKey contextKey = "jwtClaims"
	SubjectKey     contextKey = "subject"
	RoleKey        contextKey = "role"
)

const RoleStaff = "staff"

// Auth verifies HS256 bearer tokens issued by the staff tooling. Token
// issuance lives outside this service.
type Auth struct {
	key []byte
}

func NewAuth(secret string) *Auth {
	return &Auth{key: []byte(secret)}
}

// Middleware attaches claims for a valid token and passes anonymous or
// invalid requests through untouched. Routes that need a role add
// RequireRole.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := auth.ExtractBearerToken(r)
		if tokenStr == "" || len(a.key) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
			return a.key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || !token.Valid {
			logger.FromCtx(r.Context()).Debug("ignoring invalid bearer token", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			ctx := context.WithValue(r.Context(), TokenClaimsKey, claims)
			if sub, err := claims.GetSubject(); err == nil && sub != "" {
				ctx = context.WithValue(ctx, SubjectKey, sub)
			}
			if role, ok := claims["role"].(string); ok {
				ctx = context.WithValue(ctx, RoleKey, role)
			}
			r = r.WithContext(ctx)
		}

		next.ServeHTTP(w, r)
	})
}

func RoleFrom(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok && role != ""
}

func SubjectFrom(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(SubjectKey).(string)
	return sub, ok && sub != ""
}

// RequireRole answers 401 without a verified token and 403 for any other role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := RoleFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if got != role {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
