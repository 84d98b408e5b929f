package middleware

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/templodoabismo/pluma/internal/domain"
	"github.com/templodoabismo/pluma/internal/present/rest/presenter"
)

var tracer = otel.Tracer("auth")

type AuthMiddleware struct {
	token string
}

func NewAuthMiddleware(token string) *AuthMiddleware {
	return &AuthMiddleware{token: token}
}

// RequireAdmin accepts only requests carrying the configured bearer token.
// With no token configured every admin request is refused.
func (s *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Middleware.RequireAdmin")
		defer span.End()

		if s.token == "" {
			span.RecordError(fmt.Errorf("admin token not configured"))
			return presenter.Unauthorized(c, "admin api disabled")
		}

		authHeader := c.Request().Header.Get(domain.AdminTokenHeader)
		authType, token, ok := strings.Cut(authHeader, " ")
		if !ok || authType != "Bearer" {
			span.RecordError(fmt.Errorf("invalid authentication header"))
			return presenter.Unauthorized(c, "bearer token required")
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
			span.RecordError(fmt.Errorf("token mismatch"))
			return presenter.Unauthorized(c, "invalid token")
		}

		span.SetAttributes(attribute.Bool("admin", true))

		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
