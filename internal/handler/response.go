package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/apperr"
)

type envelope struct {
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
	Success   bool   `json:"success"`
}

type errorBody struct {
	StatusCode int      `json:"statusCode"`
	Timestamp  string   `json:"timestamp"`
	Path       string   `json:"path"`
	Error      string   `json:"error"`
	Errors     []string `json:"errors,omitempty"`
}

func timestamp() string { return time.Now().UTC().Format(time.RFC3339Nano) }

// respond wraps data in the success envelope.
func respond(c echo.Context, status int, data any) error {
	return c.JSON(status, envelope{
		Data:      data,
		Timestamp: timestamp(),
		Path:      c.Request().URL.Path,
		Success:   true,
	})
}

// message is the body of operations that return nothing else.
func message(c echo.Context, format string, args ...any) error {
	return respond(c, http.StatusOK, echo.Map{"message": fmt.Sprintf(format, args...)})
}

// ErrorHandler renders every error returned by handlers and middleware as
// the error envelope.  Internal failures are logged with their cause and
// reported to clients without it.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := http.StatusText(status)
	var details []string

	var he *echo.HTTPError
	if e, ok := apperr.As(err); ok {
		status = apperr.HTTPStatus(e)
		msg = e.Message
		details = e.Details
	} else if errors.As(err, &he) {
		status = he.Code
		if s, ok := he.Message.(string); ok {
			msg = s
		} else {
			msg = http.StatusText(status)
		}
	}

	req := c.Request()
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"error", err)
		msg = http.StatusText(http.StatusInternalServerError)
	}

	if req.Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, errorBody{
			StatusCode: status,
			Timestamp:  timestamp(),
			Path:       req.URL.Path,
			Error:      msg,
			Errors:     details,
		})
	}
	if err != nil {
		slog.Warn("write error response", "error", err)
	}
}
