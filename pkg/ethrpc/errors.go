package ethrpc

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nspcc-dev/thor-go/pkg/thorerr"
	"github.com/nspcc-dev/thor-go/pkg/thorest"
)

// Error represents JSON-RPC error. It implements the error interface.
type Error struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// Standard JSON-RPC 2.0 and EIP-1474 error codes.
const (
	// ParseErrorCode is returned for invalid JSON.
	ParseErrorCode = -32700
	// InvalidRequestCode is returned for structurally wrong requests.
	InvalidRequestCode = -32600
	// MethodNotFoundCode is returned for unknown methods.
	MethodNotFoundCode = -32601
	// InvalidParamsCode is returned for bad method parameters.
	InvalidParamsCode = -32602
	// InternalServerErrorCode is returned for node communication failures.
	InternalServerErrorCode = -32603
	// ResourceNotFoundCode is returned when the requested entity doesn't
	// exist.
	ResourceNotFoundCode = -32001
	// MethodNotSupportedCode is returned for known but unimplemented
	// methods.
	MethodNotSupportedCode = -32004
	// ExecutionErrorCode is returned for reverted calls.
	ExecutionErrorCode = 3
)

// NewError is an Error constructor that takes Error contents from its
// parameters.
func NewError(code int64, message string, data string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// NewParseError creates a new error with code -32700.
func NewParseError(data string) *Error {
	return NewError(ParseErrorCode, "Parse error", data)
}

// NewInvalidRequestError creates a new error with code -32600.
func NewInvalidRequestError(data string) *Error {
	return NewError(InvalidRequestCode, "Invalid request", data)
}

// NewMethodNotFoundError creates a new error with code -32601.
func NewMethodNotFoundError(data string) *Error {
	return NewError(MethodNotFoundCode, "Method not found", data)
}

// NewInvalidParamsError creates a new error with code -32602.
func NewInvalidParamsError(data string) *Error {
	return NewError(InvalidParamsCode, "Invalid params", data)
}

// NewInternalServerError creates a new error with code -32603.
func NewInternalServerError(data string) *Error {
	return NewError(InternalServerErrorCode, "Internal error", data)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Data) == 0 {
		return fmt.Sprintf("%s (%d)", e.Message, e.Code)
	}
	return fmt.Sprintf("%s (%d) - %s", e.Message, e.Code, e.Data)
}

// Is denotes whether the error matches the target one.
func (e *Error) Is(target error) bool {
	var clTarget *Error
	if errors.As(target, &clTarget) {
		return e.Code == clTarget.Code
	}
	return false
}

// WrapErrorWithData returns copy of the given error with the specified data and cause.
// It uses modified version of the error instead of pointer to the original one.
func WrapErrorWithData(e *Error, data string) *Error {
	return NewError(e.Code, e.Message, data)
}

// toRPCError maps errors returned by handlers to JSON-RPC errors.
func toRPCError(err error) *Error {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	switch thorerr.KindOf(err) {
	case thorerr.NotImplemented:
		return NewError(MethodNotSupportedCode, "Method not supported", err.Error())
	case thorerr.InvalidDataType, thorerr.NotSigned:
		return NewInvalidParamsError(err.Error())
	}
	var httpErr *thorest.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode >= http.StatusBadRequest && httpErr.StatusCode < http.StatusInternalServerError {
		return NewInvalidParamsError(err.Error())
	}
	return NewInternalServerError(err.Error())
}

// HTTPStatus returns HTTP status code to be used for the error.
func HTTPStatus(e *Error) int {
	switch e.Code {
	case InvalidRequestCode, ParseErrorCode:
		return http.StatusBadRequest
	case MethodNotFoundCode:
		return http.StatusNotFound
	case InternalServerErrorCode:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}
