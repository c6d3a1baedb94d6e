package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/activity"
	"github.com/trezcool/jamii/core/event"
	"github.com/trezcool/jamii/core/post"
	"github.com/trezcool/jamii/core/resource"
	"github.com/trezcool/jamii/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errTooManyRequests      = echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
)

// domainHTTPErrors maps domain sentinel errors to their HTTP response.
var domainHTTPErrors = map[error]*echo.HTTPError{
	user.ErrNotFound:             errHttpNotFound,
	activity.ErrNotFound:         errHttpNotFound,
	event.ErrNotFound:            errHttpNotFound,
	resource.ErrNotFound:         errHttpNotFound,
	post.ErrNotFound:             errHttpNotFound,
	resource.ErrNoFile:           errHttpNotFound,
	resource.ErrFileTooLarge:     echo.NewHTTPError(http.StatusRequestEntityTooLarge, resource.ErrFileTooLarge.Error()),
	resource.ErrFileTypeDenied:   echo.NewHTTPError(http.StatusUnsupportedMediaType, resource.ErrFileTypeDenied.Error()),
	resource.ErrFilesUnavailable: echo.NewHTTPError(http.StatusServiceUnavailable, resource.ErrFilesUnavailable.Error()),
}

// httpResponseFor maps err to a status code and JSON body. ok is false for unexpected (server) errors.
func httpResponseFor(err error, translator ut.Translator) (code int, body interface{}, ok bool) {
	cause := errors.Cause(err)
	if mapped, found := domainHTTPErrors[cause]; found {
		cause = mapped
	}

	switch e := cause.(type) {
	case *echo.HTTPError:
		if e == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, e.Message, true
		}
		if inner, isHTTP := e.Internal.(*echo.HTTPError); isHTTP {
			e = inner
		}
		return e.Code, e.Message, true

	case validator.ValidationErrors:
		fields := make(map[string]string, len(e))
		for _, fe := range e {
			fields[fe.Field()] = fe.Translate(translator)
		}
		return http.StatusBadRequest, fields, true

	case *core.ValidationError:
		if fields := e.FieldMap(); fields != nil {
			return http.StatusBadRequest, fields, true
		}
		return http.StatusBadRequest, e.Error(), true
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), false
}

// newAppHTTPErrorHandler renders errors as JSON and reports server errors to logger.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, body, ok := httpResponseFor(err, translator)
		if !ok {
			reportServerError(logger, err, ctx)
			if ctx.Echo().Debug {
				body = err.Error()
			}
		}
		if msg, isStr := body.(string); isStr {
			body = echo.Map{"error": msg}
		}

		if ctx.Response().Committed {
			return
		}
		var sendErr error
		if ctx.Request().Method == http.MethodHead {
			sendErr = ctx.NoContent(code)
		} else {
			sendErr = ctx.JSON(code, body)
		}
		if sendErr != nil {
			ctx.Echo().Logger.Error(sendErr)
		}
	}
}

func reportServerError(logger core.Logger, err error, ctx echo.Context) {
	var usr user.User
	if claims, cErr := ctxClaims(ctx); cErr == nil {
		usr = user.User{ID: claims.Subject, Username: claims.Username, Email: claims.Email}
	}
	msg := http.StatusText(http.StatusInternalServerError)
	logger.Error(msg, errors.Wrap(err, msg), usr, map[string]interface{}{
		"method":     ctx.Request().Method,
		"path":       ctx.Path(),
		"request_id": ctx.Response().Header().Get(echo.HeaderXRequestID),
	})
}
