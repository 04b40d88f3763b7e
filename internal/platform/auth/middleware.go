package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type contextKey string

const actorKey contextKey = "actor"

// TokenCookieName is the cookie used as a fallback token carrier for
// browser clients.
const TokenCookieName = "token"

// Actor is the authenticated identity attached to a request.
type Actor struct {
	ID    string
	Role  string
	Email string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Middleware returns echo middleware that authenticates requests.
// It accepts a bearer token in the Authorization header or, failing that,
// the token cookie. The resolved Actor is stored on the request context
// and mirrored onto the echo context for logging and rate limiting.
func Middleware(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr := bearerToken(c)
			if tokenStr == "" {
				if cookie, err := c.Cookie(TokenCookieName); err == nil {
					tokenStr = cookie.Value
				}
			}
			if tokenStr == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			claims, err := issuer.Verify(tokenStr)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			actor := Actor{ID: claims.Subject, Role: claims.Role, Email: claims.Email}
			c.Set("user_id", actor.ID)
			c.Set("user_role", actor.Role)

			ctx := ContextWithActor(c.Request().Context(), actor)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// ContextWithActor returns a context carrying the actor.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the actor stored on the context, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}
