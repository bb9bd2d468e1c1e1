/*
Package thorerr contains the error taxonomy shared by all thor-go packages.

Every error produced by a precondition check or by a wrapped lower-level
failure is an *Error carrying a machine-readable Kind, the name of the
operation that failed, a human-readable message and the offending input.
Kinds themselves implement error, so callers can match on them with
errors.Is:

	if errors.Is(err, thorerr.InvalidDataType) {
		...
	}
*/
package thorerr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind is a machine-readable error code.
type Kind string

// Error kinds.
const (
	// InvalidDataType is returned for malformed input: IDs, hex strings,
	// revisions, addresses.
	InvalidDataType Kind = "INVALID_DATA_TYPE"
	// NotSigned is returned when an unsigned transaction is submitted.
	NotSigned Kind = "NOT_SIGNED"
	// MissingPrivateKey is returned when a signer-dependent operation is
	// attempted without (unlocked) credentials.
	MissingPrivateKey Kind = "MISSING_PRIVATE_KEY"
	// InvalidPassword is returned on keystore MAC mismatch.
	InvalidPassword Kind = "INVALID_PASSWORD"
	// InvalidKeystore is returned for structurally broken keystore records.
	InvalidKeystore Kind = "INVALID_KEYSTORE"
	// EncryptionFailed is returned when a key can't be encrypted.
	EncryptionFailed Kind = "ENCRYPTION_FAILED"
	// TransactionBuild is returned when chain data required to build a
	// transaction body is unavailable.
	TransactionBuild Kind = "INVALID_TRANSACTION_BODY"
	// NotImplemented is returned by RPC compatibility stubs.
	NotImplemented Kind = "NOT_IMPLEMENTED"
	// InvalidAbiItem is returned for unknown contract methods or events.
	InvalidAbiItem Kind = "INVALID_ABI_ITEM"
)

// Error implements the error interface so that a Kind can be used as an
// errors.Is target.
func (k Kind) Error() string {
	return string(k)
}

// Error is a structured error with a kind, the failed operation, a message
// and diagnostic data. It optionally wraps the original cause.
type Error struct {
	Kind    Kind
	Method  string
	Message string
	Data    map[string]any
	Cause   error
}

// New creates an Error without a cause.
func New(method string, kind Kind, msg string, data map[string]any) *Error {
	return &Error{
		Kind:    kind,
		Method:  method,
		Message: msg,
		Data:    data,
	}
}

// Wrap creates an Error with the given cause attached.
func Wrap(method string, kind Kind, msg string, data map[string]any, cause error) *Error {
	e := New(method, kind, msg, data)
	e.Cause = cause
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Method)
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if len(e.Data) != 0 {
		keys := make([]string, 0, len(e.Data))
		for k := range e.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(" (")
		for i, k := range keys {
			if i != 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s: %v", k, e.Data[k])
		}
		sb.WriteString(")")
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the original cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the Kind of this error.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the Kind of the first *Error found in err's chain or an
// empty Kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
