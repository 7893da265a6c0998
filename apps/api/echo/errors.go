package echoapi

import (
	"net/http"
	"reflect"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cclient/core"
	"github.com/trezcool/cclient/core/admin"
	"github.com/trezcool/cclient/core/course"
	"github.com/trezcool/cclient/core/invoice"
	"github.com/trezcool/cclient/core/learner"
	"github.com/trezcool/cclient/core/track"
)

const validationFailedMsg = "Validation failed"

var (
	errTokenRequired       = echo.NewHTTPError(http.StatusUnauthorized, "Access token required")
	errTokenInvalid        = echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	errTokenInvalidExpired = echo.NewHTTPError(http.StatusForbidden, "Invalid or expired token")
	errInvalidID           = echo.NewHTTPError(http.StatusBadRequest, "Invalid id")
	errInvalidBody         = echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	errInvalidQuery        = echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")

	// domainErrors maps the domain sentinels to their HTTP rendition.
	domainErrors = map[error]*echo.HTTPError{
		admin.ErrNotFound:           echo.NewHTTPError(http.StatusNotFound, "Admin not found"),
		admin.ErrDuplicateAccount:   echo.NewHTTPError(http.StatusBadRequest, "Admin with this email already exists"),
		admin.ErrInvalidCode:        echo.NewHTTPError(http.StatusBadRequest, "Invalid OTP code"),
		admin.ErrCodeExpired:        echo.NewHTTPError(http.StatusBadRequest, "OTP code has expired"),
		admin.ErrInvalidCredentials: echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password"),
		admin.ErrNotVerified:        echo.NewHTTPError(http.StatusUnauthorized, "Please verify your account first"),
		admin.ErrInvalidResetToken:  echo.NewHTTPError(http.StatusBadRequest, "Invalid or expired reset token"),

		track.ErrNotFound:          echo.NewHTTPError(http.StatusNotFound, "Track not found"),
		course.ErrNotFound:         echo.NewHTTPError(http.StatusNotFound, "Course not found"),
		learner.ErrNotFound:        echo.NewHTTPError(http.StatusNotFound, "Learner not found"),
		learner.ErrEmailExists:     echo.NewHTTPError(http.StatusBadRequest, "Learner with this email already exists"),
		invoice.ErrNotFound:        echo.NewHTTPError(http.StatusNotFound, "Invoice not found"),
		invoice.ErrDuplicateNumber: echo.NewHTTPError(http.StatusConflict, "Invoice number already taken, please retry"),

		core.ErrInvalidReference: echo.NewHTTPError(http.StatusBadRequest, "Referenced record does not exist"),
		core.ErrReferenced:       echo.NewHTTPError(http.StatusConflict, "Record is still referenced by other records"),
	}
)

// lookupDomainError finds err's HTTP rendition. Errors of uncomparable types are never sentinels.
func lookupDomainError(err error) (*echo.HTTPError, bool) {
	if err == nil || !reflect.TypeOf(err).Comparable() {
		return nil, false
	}
	herr, ok := domainErrors[err]
	return herr, ok
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = echo.Map{"message": origErr.Message}
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = echo.Map{"message": validationFailedMsg, "errors": fldErrs}
		case *core.ValidationError:
			code = http.StatusBadRequest
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = echo.Map{"message": validationFailedMsg, "errors": fldErrs}
			} else {
				message = echo.Map{"message": origErr.Error()}
			}
		default:
			if herr, ok := lookupDomainError(origErr); ok {
				code = herr.Code
				message = echo.Map{"message": herr.Message}
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = echo.Map{"message": msg}

			args := []interface{}{errors.Wrap(err, msg)}
			if adm, ok := getContextAdmin(ctx); ok {
				args = append(args, adm)
			}
			logger.Error(msg, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = echo.Map{"message": err.Error()}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
