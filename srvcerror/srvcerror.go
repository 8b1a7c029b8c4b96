package srvcerror

import (
	"errors"
	"net/http"
)

type Error struct {
	errorCode  string
	msg        string
	dbgInfoErr error // wrapped cause, for debugging

	httpStatus int // optional, for HTTP responses
}

func (e *Error) Error() string {
	if e.dbgInfoErr != nil {
		return e.msg + ": " + e.dbgInfoErr.Error()
	}
	return e.msg
}

func (e *Error) Message() string {
	return e.msg
}

func (e *Error) ErrorCode() string {
	return e.errorCode
}

func (e *Error) DebugInfo() error {
	return e.dbgInfoErr
}

func (e *Error) SetDebug(err error) *Error {
	e.dbgInfoErr = err
	return e
}

func (e *Error) Unwrap() error {
	return e.dbgInfoErr
}

// Is reports whether target is a *Error with the same code, so
// errors.Is(err, ErrX()) matches regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.errorCode == e.errorCode
}

func (e *Error) HttpStatusCode() int {
	if e.httpStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.httpStatus
}

func (e *Error) SetHttpStatusCode(code int) *Error {
	e.httpStatus = code
	return e
}

func New(errorCode string, msg string) *Error {
	return &Error{
		errorCode: errorCode,
		msg:       msg,
	}
}

// Code returns the code of the outermost *Error in err's chain
// or ErrCodeInternal if there is none.
func Code(err error) string {
	var srvcErr *Error
	if errors.As(err, &srvcErr) {
		return srvcErr.errorCode
	}
	return ErrCodeInternal
}

func HasCode(err error, code string) bool {
	for err != nil {
		if srvcErr, ok := err.(*Error); ok && srvcErr.errorCode == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

const ErrCodeInternal = "internal_error"

func ErrInternal() *Error {
	return New(
		ErrCodeInternal,
		"internal error",
	).SetHttpStatusCode(http.StatusInternalServerError)
}
