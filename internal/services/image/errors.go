package image

import (
	"errors"
	"fmt"
)

// 错误类别，调用方用 errors.Is 判断
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrImageNotFound       = errors.New("image not found")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrStorageInconsistent = errors.New("storage inconsistent")
)

// 错误码
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeUnsupportedMIME     = "UNSUPPORTED_MIME_TYPE"
	CodeFileSizeExceeded    = "FILE_SIZE_EXCEEDED"
	CodeInvalidCursor       = "INVALID_CURSOR"
	CodeImageNotFound       = "IMAGE_NOT_FOUND"
	CodeStorageUnavailable  = "STORAGE_UNAVAILABLE"
	CodeStorageInconsistent = "STORAGE_INCONSISTENT"
)

// Error 带类别与错误码的业务错误
type Error struct {
	Kind    error
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap 同时暴露类别和底层原因
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// AsError 提取 *Error
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func invalidf(code, format string, args ...any) *Error {
	return &Error{Kind: ErrInvalidInput, Code: code, Message: fmt.Sprintf(format, args...)}
}

func notFound() *Error {
	return &Error{Kind: ErrImageNotFound, Code: CodeImageNotFound, Message: "image not found"}
}

func unavailable(msg string, err error) *Error {
	return &Error{Kind: ErrStorageUnavailable, Code: CodeStorageUnavailable, Message: msg, Err: err}
}

func inconsistent(msg string, err error) *Error {
	return &Error{Kind: ErrStorageInconsistent, Code: CodeStorageInconsistent, Message: msg, Err: err}
}
