package echoapi

import (
	"net/http"
	"reflect"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/exam"
	"github.com/trezcool/academia/core/finance"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
)

// error codes
const (
	codeNotFound            = "NOT_FOUND"
	codeValidation          = "VALIDATION"
	codeUnauthorized        = "UNAUTHORIZED"
	codeForbidden           = "FORBIDDEN"
	codeOverpayment         = "OVERPAYMENT"
	codeExamNotPublished    = "EXAM_NOT_PUBLISHED"
	codeAlreadySubmitted    = "ALREADY_SUBMITTED"
	codeDuplicateAdmission  = "DUPLICATE_ADMISSION_NO"
	codeUserExists          = "USER_EXISTS"
	codeTimetableConflict   = "TIMETABLE_CONFLICT"
	codeInternalServerError = "INTERNAL_SERVER_ERROR"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusUnauthorized, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

type (
	errorBody struct {
		Code          string      `json:"code"`
		Message       interface{} `json:"message"`
		Details       interface{} `json:"details,omitempty"`
		CorrelationID string      `json:"correlationId"`
	}

	errorResponse struct {
		Error errorBody `json:"error"`
	}
)

// domainError maps a well-known service error to its HTTP shape.
type domainError struct {
	status int
	code   string
}

var domainErrors = map[error]domainError{
	user.ErrNotFound:               {http.StatusNotFound, codeNotFound},
	user.ErrInvalidCredentials:     {http.StatusUnauthorized, codeUnauthorized},
	user.ErrEmailExists:            {http.StatusConflict, codeUserExists},
	student.ErrNotFound:            {http.StatusNotFound, codeNotFound},
	student.ErrGuardianNotFound:    {http.StatusNotFound, codeNotFound},
	student.ErrAdmissionNoExists:   {http.StatusConflict, codeDuplicateAdmission},
	academic.ErrClassNotFound:      {http.StatusNotFound, codeNotFound},
	academic.ErrTimetableExists:    {http.StatusConflict, codeTimetableConflict},
	academic.ErrTimetableConflict:  {http.StatusConflict, codeTimetableConflict},
	exam.ErrNotFound:               {http.StatusNotFound, codeNotFound},
	exam.ErrSubmissionNotFound:     {http.StatusNotFound, codeNotFound},
	exam.ErrExamNotPublished:       {http.StatusBadRequest, codeExamNotPublished},
	exam.ErrAlreadySubmitted:       {http.StatusConflict, codeAlreadySubmitted},
	finance.ErrInvoiceNotFound:     {http.StatusNotFound, codeNotFound},
	finance.ErrPaymentNotFound:     {http.StatusNotFound, codeNotFound},
	finance.ErrOverpayment:         {http.StatusBadRequest, codeOverpayment},
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return codeValidation
	case http.StatusUnauthorized:
		return codeUnauthorized
	case http.StatusForbidden:
		return codeForbidden
	case http.StatusNotFound:
		return codeNotFound
	default:
		return codeInternalServerError
	}
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that renders
// every error as the API's error envelope. signalShutdown is called whenever
// a core.shutdown error is caught so the Server can stop gracefully.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var status int
		var code string
		var message interface{}
		var details interface{}

		cause := errors.Cause(err)
		var derr domainError
		var ok bool
		// non-comparable error types (e.g. validator.ValidationErrors) would
		// panic as map keys; they are handled by the switch below instead.
		if t := reflect.TypeOf(cause); t != nil && t.Comparable() {
			derr, ok = domainErrors[cause]
		}
		if ok {
			status = derr.status
			code = derr.code
			message = cause.Error()
		} else {
			switch origErr := cause.(type) {
			case *echo.HTTPError:
				if origErr == middleware.ErrJWTMissing {
					status = http.StatusUnauthorized
					code = codeUnauthorized
					message = origErr.Message
					break
				}
				if origErr.Internal != nil {
					if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
						origErr = herr
					}
				}
				status = origErr.Code
				code = codeForStatus(status)
				message = origErr.Message
			case validator.ValidationErrors:
				fldErrs := make(map[string]string, len(origErr))
				for _, vErr := range origErr {
					fldErrs[vErr.Field()] = vErr.Translate(translator)
				}
				status = http.StatusBadRequest
				code = codeValidation
				message = "validation failed"
				details = fldErrs
			case *core.ValidationError:
				status = http.StatusBadRequest
				code = codeValidation
				message = "validation failed"
				if origErr.Fields != nil {
					fldErrs := make(map[string]string, len(origErr.Fields))
					for _, fErr := range origErr.Fields {
						fldErrs[fErr.Field] = fErr.Error
					}
					details = fldErrs
				} else {
					message = origErr.Error()
				}
			default: // any other error is a server error
				status = http.StatusInternalServerError
				code = codeInternalServerError
				message = http.StatusText(http.StatusInternalServerError)

				var usr user.User
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					usr.ID = claims.Subject
					usr.Email = claims.Email
				}
				logger.Error(http.StatusText(status), errors.Wrap(err, "request failed"), usr)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		res := errorResponse{Error: errorBody{
			Code:          code,
			Message:       message,
			Details:       details,
			CorrelationID: uuid.New().String(),
		}}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(status)
			} else {
				err = ctx.JSON(status, res)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
