package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/moneypilot-backend/api/responses"
	pkgAuth "github.com/angelmondragon/moneypilot-backend/pkg/auth"
	"github.com/angelmondragon/moneypilot-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
	"github.com/angelmondragon/moneypilot-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the tenant it scopes.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithTenantID(r.Context(), claims.TenantID)
			if claims.UserID != "" {
				ctx = WithUserID(ctx, claims.UserID)
			}

			if logg != nil {
				ctx = logg.WithTenantID(ctx, claims.TenantID)
				if claims.UserID != "" {
					ctx = logg.WithUserID(ctx, claims.UserID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
