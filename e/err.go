package e

import (
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// ExtendedError is the error type produced by W and N. It keeps the
// originating error so Is/As checks still work after multiple wraps, while
// the InnerError accumulates the code trail for logging.
type ExtendedError struct {
	InnerError error
	Message    string
	original   error
}

// Error returns the string of the inner error
func (ee *ExtendedError) Error() string {
	return fmt.Sprintf("%+v", ee.InnerError)
}

// IsError checks if the originating error is the specified target
func (ee *ExtendedError) IsError(tgt error) bool {
	return errors.Is(ee.original, tgt)
}

// AsError calls errors.As on the original error with the specified target
func (ee *ExtendedError) AsError(tgt interface{}) bool {
	return errors.As(ee.original, tgt)
}

// Unwrap exposes the originating error to the errors package
func (ee *ExtendedError) Unwrap() error {
	return ee.original
}

// AsExtendedError helper function that returns the error as an ExtendedError
// if it is one. Otherwise it returns nil
func AsExtendedError(err error) (ee *ExtendedError) {
	if errors.As(err, &ee) {
		return ee
	}
	return nil
}

// NewStr creates a new error string based on the code and messages
func NewStr(code string, msgList ...string) (s string) {
	if len(msgList) == 0 {
		return code
	}
	return fmt.Sprintf("%s: %s", code, strings.Join(msgList, "|"))
}

// N creates a new error for the specified code. The message is kept as the
// user facing message of the extended error as well.
func N(code, msg string) (err error) {
	ee := W(nil, code, msg)
	if xe := AsExtendedError(ee); xe != nil {
		xe.Message = NewStr(code, msg)
	}
	return ee
}

// W wraps the passed error with the code. If the error is already an
// ExtendedError, the code is prepended to the existing trail, otherwise the
// error is captured (with a stack trace) as the original error of a new
// ExtendedError. Always returns an *ExtendedError, with an error signature.
func W(err error, code string, debugMessages ...string) error {
	msg := NewStr(code, debugMessages...)

	if ee := AsExtendedError(err); ee != nil {
		ee.InnerError = fmt.Errorf("[%s]%+v", msg, ee.InnerError)
		return ee
	}

	ee := &ExtendedError{
		original: err,
	}

	if err == nil {
		ee.InnerError = pkgerrors.New(msg)
		ee.Message = msg
	} else {
		ee.InnerError = fmt.Errorf("[%s]%+v", msg, pkgerrors.Wrap(err, ""))
		ee.Message = NewStr(code, MsgUnknownInternalServerError)
	}

	return ee
}

// ContainsError checks if the error contains the specified message
func ContainsError(err error, msg string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), msg)
}

// Contains checks if the error contains the code
func Contains(err error, code string) bool {
	return ContainsError(err, code)
}
