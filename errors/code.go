package errors

import (
	"fmt"

	"github.com/wippyai/iree-runtime/abi"
)

// Code is the closed taxonomy of native status code families. The zero
// value means "no code" and never appears on a native failure.
type Code uint8

const (
	codeNone Code = iota
	CodeCancelled
	CodeUnknown
	CodeInvalidArgument
	CodeDeadlineExceeded
	CodeNotFound
	CodeAlreadyExists
	CodePermissionDenied
	CodeResourceExhausted
	CodeFailedPrecondition
	CodeAborted
	CodeOutOfRange
	CodeUnimplemented
	CodeInternal
	CodeUnavailable
	CodeDataLoss
	CodeUnauthenticated
	CodeDeferred
	// CodeUnknownStatus catches native codes outside the documented set.
	// It has no native representation.
	CodeUnknownStatus
)

var codeNames = map[Code]string{
	codeNone:               "none",
	CodeCancelled:          "cancelled",
	CodeUnknown:            "unknown",
	CodeInvalidArgument:    "invalid_argument",
	CodeDeadlineExceeded:   "deadline_exceeded",
	CodeNotFound:           "not_found",
	CodeAlreadyExists:      "already_exists",
	CodePermissionDenied:   "permission_denied",
	CodeResourceExhausted:  "resource_exhausted",
	CodeFailedPrecondition: "failed_precondition",
	CodeAborted:            "aborted",
	CodeOutOfRange:         "out_of_range",
	CodeUnimplemented:      "unimplemented",
	CodeInternal:           "internal",
	CodeUnavailable:        "unavailable",
	CodeDataLoss:           "data_loss",
	CodeUnauthenticated:    "unauthenticated",
	CodeDeferred:           "deferred",
	CodeUnknownStatus:      "unknown_status",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", uint8(c))
}

// Error lets a bare Code act as an errors.Is target.
func (c Code) Error() string {
	return c.String()
}

// CodeFromNative maps a native status code into the taxonomy. It never
// fails: OK and undocumented values map to CodeUnknownStatus.
func CodeFromNative(code abi.StatusCode) Code {
	switch code {
	case abi.StatusCancelled:
		return CodeCancelled
	case abi.StatusUnknown:
		return CodeUnknown
	case abi.StatusInvalidArgument:
		return CodeInvalidArgument
	case abi.StatusDeadlineExceeded:
		return CodeDeadlineExceeded
	case abi.StatusNotFound:
		return CodeNotFound
	case abi.StatusAlreadyExists:
		return CodeAlreadyExists
	case abi.StatusPermissionDenied:
		return CodePermissionDenied
	case abi.StatusResourceExhausted:
		return CodeResourceExhausted
	case abi.StatusFailedPrecondition:
		return CodeFailedPrecondition
	case abi.StatusAborted:
		return CodeAborted
	case abi.StatusOutOfRange:
		return CodeOutOfRange
	case abi.StatusUnimplemented:
		return CodeUnimplemented
	case abi.StatusInternal:
		return CodeInternal
	case abi.StatusUnavailable:
		return CodeUnavailable
	case abi.StatusDataLoss:
		return CodeDataLoss
	case abi.StatusUnauthenticated:
		return CodeUnauthenticated
	case abi.StatusDeferred:
		return CodeDeferred
	default:
		return CodeUnknownStatus
	}
}

// Native maps c back to its native status code. Calling it on
// CodeUnknownStatus or the zero Code is a programming error and panics.
func (c Code) Native() abi.StatusCode {
	switch c {
	case CodeCancelled:
		return abi.StatusCancelled
	case CodeUnknown:
		return abi.StatusUnknown
	case CodeInvalidArgument:
		return abi.StatusInvalidArgument
	case CodeDeadlineExceeded:
		return abi.StatusDeadlineExceeded
	case CodeNotFound:
		return abi.StatusNotFound
	case CodeAlreadyExists:
		return abi.StatusAlreadyExists
	case CodePermissionDenied:
		return abi.StatusPermissionDenied
	case CodeResourceExhausted:
		return abi.StatusResourceExhausted
	case CodeFailedPrecondition:
		return abi.StatusFailedPrecondition
	case CodeAborted:
		return abi.StatusAborted
	case CodeOutOfRange:
		return abi.StatusOutOfRange
	case CodeUnimplemented:
		return abi.StatusUnimplemented
	case CodeInternal:
		return abi.StatusInternal
	case CodeUnavailable:
		return abi.StatusUnavailable
	case CodeDataLoss:
		return abi.StatusDataLoss
	case CodeUnauthenticated:
		return abi.StatusUnauthenticated
	case CodeDeferred:
		return abi.StatusDeferred
	default:
		panic(fmt.Sprintf("errors: %s has no native status code", c))
	}
}

// StatusCoder is implemented by errors that carry a status code.
type StatusCoder interface {
	StatusCode() Code
}

// CodeOf returns the first status code found in err's chain, or the zero
// Code when there is none.
func CodeOf(err error) Code {
	for err != nil {
		if c, ok := err.(StatusCoder); ok {
			if code := c.StatusCode(); code != codeNone {
				return code
			}
		}
		if c, ok := err.(Code); ok {
			return c
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return codeNone
		}
		err = u.Unwrap()
	}
	return codeNone
}
