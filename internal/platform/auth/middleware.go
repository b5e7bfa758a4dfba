package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UsernameKey contextKey = "username"
)

// accessTokenParam lets browser WebSocket clients, which cannot set headers,
// pass the token in the query string.
const accessTokenParam = "access_token"

// Authenticate identifies staff from the Authorization header. Both
// "Bearer <jwt>" and "Token <jwt>" are accepted. Requests without
// credentials continue anonymously; requests with bad credentials are
// rejected with 401.
func Authenticate(tokens *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr, present, ok := credentials(c)
			if !present {
				return next(c)
			}
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := tokens.Verify(tokenStr)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx := WithUser(c.Request().Context(), claims.Subject, claims.Username)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func credentials(c echo.Context) (token string, present, ok bool) {
	header := c.Request().Header.Get("Authorization")
	if header == "" {
		if q := c.QueryParam(accessTokenParam); q != "" {
			return q, true, true
		}
		return "", false, false
	}
	scheme, value, found := strings.Cut(header, " ")
	value = strings.TrimSpace(value)
	if !found || value == "" {
		return "", true, false
	}
	if !strings.EqualFold(scheme, "bearer") && !strings.EqualFold(scheme, "token") {
		return "", true, false
	}
	return value, true, true
}

// WithUser returns ctx carrying an authenticated identity.
func WithUser(ctx context.Context, userID, username string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, UsernameKey, username)
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func UsernameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(UsernameKey).(string)
	return name
}

// IsAuthenticated reports whether the request carried valid staff
// credentials.
func IsAuthenticated(ctx context.Context) bool {
	return UserIDFromContext(ctx) != ""
}
