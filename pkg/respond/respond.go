// Package respond provides the JSON envelope every API response uses:
// {"success": bool, "message": ..., "data": ..., "error": ...}.
package respond

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Envelope is the wire format shared by success and error responses.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// OK writes a 200 envelope with optional data.
func OK(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// Created writes a 201 envelope.
func Created(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

// Data writes a 200 envelope with data and no message.
func Data(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Error writes an error envelope with the given status.
func Error(c echo.Context, status int, message string) error {
	return c.JSON(status, Envelope{Success: false, Message: message})
}

// HTTPErrorHandler converts echo errors (including echo.NewHTTPError raised by
// handlers and middleware) into the envelope format. includeDetail controls
// whether the raw error string of unexpected failures is echoed back; it should
// be false in production.
func HTTPErrorHandler(includeDetail bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := "internal server error"
		detail := ""

		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
			if msg, ok := he.Message.(string); ok {
				message = msg
			} else {
				message = http.StatusText(status)
			}
			if he.Internal != nil && includeDetail {
				detail = he.Internal.Error()
			}
		} else if includeDetail {
			detail = err.Error()
		}

		env := Envelope{Success: false, Message: message, Error: detail}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, env)
	}
}
