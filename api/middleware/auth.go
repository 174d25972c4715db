package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/mercerie-backend/api/responses"
	pkgAuth "github.com/angelmondragon/mercerie-backend/pkg/auth"
	"github.com/angelmondragon/mercerie-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/mercerie-backend/pkg/errors"
	"github.com/angelmondragon/mercerie-backend/pkg/logger"
)

// WindowChecker reports whether a session window is still tracked.
type WindowChecker interface {
	HasWindow(key string) bool
}

// Auth validates a bearer token, requires its window to still be tracked and
// seeds the request context with the claims.
func Auth(cfg config.JWTConfig, windows WindowChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if windows != nil && !windows.HasWindow(claims.WindowID()) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session ended"))
				return
			}

			ctx := WithClaims(r.Context(), claims)
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
				ctx = logg.WithRole(ctx, claims.Role.String())
				ctx = logg.WithWindowID(ctx, claims.WindowID())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if raw == "" {
		// EventSource cannot set headers.
		raw = strings.TrimSpace(r.URL.Query().Get("access_token"))
	}
	return raw
}
