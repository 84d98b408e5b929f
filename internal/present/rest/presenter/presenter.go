package presenter

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error string `json:"error"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

func BadRequest(c echo.Context, err error) error {
	return BadRequestMessage(c, err.Error())
}

func BadRequestMessage(c echo.Context, msg string) error {
	slog.DebugContext(c.Request().Context(), "bad request",
		slog.String("error", msg),
		slog.String("path", c.Path()),
		slog.String("module", "rest"),
	)
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func Unauthorized(c echo.Context, msg string) error {
	slog.InfoContext(c.Request().Context(), "unauthorized",
		slog.String("path", c.Path()),
		slog.String("remote", c.RealIP()),
		slog.String("module", "rest"),
	)
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: msg})
}

func NotFound(c echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, errorResponse{Error: msg})
}

func ServiceUnavailable(c echo.Context, msg string) error {
	return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: msg})
}

func InternalError(c echo.Context, err error) error {
	slog.ErrorContext(c.Request().Context(), "internal error",
		slog.String("error", err.Error()),
		slog.String("path", c.Path()),
		slog.String("module", "rest"),
	)
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
}
