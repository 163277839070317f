package kit

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"fiber-ent-blog/internal/blog"
	"fiber-ent-blog/internal/logx"
	"fiber-ent-blog/internal/store"
)

var kitLogger = logx.GetScope("httpx")

// APIError is a structured application error with code and message.
type APIError struct {
	HTTPStatus int         `json:"-"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

func NewAPIError(httpStatus int, code, msg string, details interface{}) *APIError {
	return &APIError{HTTPStatus: httpStatus, Code: code, Message: msg, Details: details}
}

// Common helpers
func BadRequest(msg string, details interface{}) error {
	return NewAPIError(http.StatusBadRequest, "E_INVALID_PARAM", msg, details)
}
func NotFound(msg string) error { return NewAPIError(http.StatusNotFound, "E_NOT_FOUND", msg, nil) }
func Unauthorized(msg string) error {
	return NewAPIError(http.StatusUnauthorized, "E_UNAUTHORIZED", msg, nil)
}
func Forbidden(msg string) error { return NewAPIError(http.StatusForbidden, "E_FORBIDDEN", msg, nil) }
func Conflict(msg string, details interface{}) error {
	return NewAPIError(http.StatusConflict, "E_CONFLICT", msg, details)
}
func InternalError(msg string, details interface{}) error {
	return NewAPIError(http.StatusInternalServerError, "E_INTERNAL", msg, details)
}

// AsAPIError maps fiber, domain and store errors onto an APIError.
func AsAPIError(err error) *APIError {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return NewAPIError(fe.Code, httpStatusToCode(fe.Code), fe.Message, nil)
	}
	var verr *blog.ValidationError
	switch {
	case errors.As(err, &verr):
		return BadRequest("invalid input", verr.Fields).(*APIError)
	case errors.Is(err, blog.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return NotFound("not found").(*APIError)
	case errors.Is(err, blog.ErrAuthenticationRequired):
		return Unauthorized("authentication required").(*APIError)
	case errors.Is(err, blog.ErrNotAuthor):
		return Forbidden("not the author").(*APIError)
	case errors.Is(err, store.ErrConflict):
		return Conflict("already exists", nil).(*APIError)
	}
	return NewAPIError(http.StatusInternalServerError, "E_INTERNAL", "Internal Server Error", nil)
}

// ErrorHandler returns a Fiber error handler that emits unified error
// responses: the JSON envelope for JSON clients and the error page otherwise.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		ae := AsAPIError(err)
		if ae.HTTPStatus >= http.StatusInternalServerError {
			kitLogger.Error("request failed",
				zap.String("path", c.Path()),
				zap.String("request_id", RequestID(c)),
				zap.Error(err),
			)
		}
		if WantsJSON(c) {
			body := fiber.Map{
				"code":       ae.Code,
				"message":    ae.Message,
				"request_id": RequestID(c),
			}
			if ae.Details != nil {
				body["details"] = ae.Details
			}
			return c.Status(ae.HTTPStatus).JSON(body)
		}
		c.Status(ae.HTTPStatus)
		if rerr := c.Render("errors/error", fiber.Map{
			"status":  ae.HTTPStatus,
			"message": ae.Message,
			"title":   http.StatusText(ae.HTTPStatus),
		}); rerr != nil {
			return c.Status(ae.HTTPStatus).SendString(ae.Message)
		}
		return nil
	}
}

func httpStatusToCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "E_INVALID_PARAM"
	case http.StatusNotFound:
		return "E_NOT_FOUND"
	case http.StatusUnauthorized:
		return "E_UNAUTHORIZED"
	case http.StatusForbidden:
		return "E_FORBIDDEN"
	case http.StatusMethodNotAllowed:
		return "E_METHOD_NOT_ALLOWED"
	case http.StatusTooManyRequests:
		return "E_RATE_LIMITED"
	default:
		if status >= 500 {
			return "E_INTERNAL"
		}
		return "E_UNKNOWN"
	}
}
