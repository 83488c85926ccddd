package errprocess

import (
	"errors"
	"fmt"

	"private_chat_service/pkg/logger"
)

// Error 帶分類的錯誤, errors.Is(err, kind) 可判斷類別
type Error struct {
	Kind  error
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap lets errors.Is match both the kind and the cause
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}

// Wrap create a classified error
func Wrap(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrapf create a classified error with format
func Wrapf(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WithCause create a classified error keep the underlying cause
func WithCause(kind error, msg string, cause error) error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// Kind return the first registered kind the err matches, nil if none
func Kind(err error, kinds ...error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
