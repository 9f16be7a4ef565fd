package abi

import "fmt"

// Status is the pointer-sized iree_status_t. Zero means OK. The low bits
// hold the status code; any bits above StatusCodeMask point at a native
// error record owned by the library.
type Status uintptr

// StatusCodeMask selects the code bits of a Status.
const StatusCodeMask = 0x1F

// StatusCode is iree_status_code_t.
type StatusCode uint32

const (
	StatusOK                 StatusCode = 0
	StatusCancelled          StatusCode = 1
	StatusUnknown            StatusCode = 2
	StatusInvalidArgument    StatusCode = 3
	StatusDeadlineExceeded   StatusCode = 4
	StatusNotFound           StatusCode = 5
	StatusAlreadyExists      StatusCode = 6
	StatusPermissionDenied   StatusCode = 7
	StatusResourceExhausted  StatusCode = 8
	StatusFailedPrecondition StatusCode = 9
	StatusAborted            StatusCode = 10
	StatusOutOfRange         StatusCode = 11
	StatusUnimplemented      StatusCode = 12
	StatusInternal           StatusCode = 13
	StatusUnavailable        StatusCode = 14
	StatusDataLoss           StatusCode = 15
	StatusUnauthenticated    StatusCode = 16
	StatusDeferred           StatusCode = 17
)

var statusCodeNames = [...]string{
	"OK",
	"CANCELLED",
	"UNKNOWN",
	"INVALID_ARGUMENT",
	"DEADLINE_EXCEEDED",
	"NOT_FOUND",
	"ALREADY_EXISTS",
	"PERMISSION_DENIED",
	"RESOURCE_EXHAUSTED",
	"FAILED_PRECONDITION",
	"ABORTED",
	"OUT_OF_RANGE",
	"UNIMPLEMENTED",
	"INTERNAL",
	"UNAVAILABLE",
	"DATA_LOSS",
	"UNAUTHENTICATED",
	"DEFERRED",
}

func (c StatusCode) String() string {
	if int(c) < len(statusCodeNames) {
		return statusCodeNames[c]
	}
	return fmt.Sprintf("STATUS_CODE(%d)", uint32(c))
}

// StatusFromCode builds a code-only status. It carries no record, so
// ignoring it is free and rendering it yields only the code name.
func StatusFromCode(code StatusCode) Status {
	return Status(uintptr(code) & StatusCodeMask)
}

// IsOK reports whether s is the success sentinel.
func (s Status) IsOK() bool {
	return s == 0
}

// Code extracts the status code bits.
func (s Status) Code() StatusCode {
	return StatusCode(uintptr(s) & StatusCodeMask)
}

// HasRecord reports whether s points at a native error record.
func (s Status) HasRecord() bool {
	return uintptr(s)&^StatusCodeMask != 0
}
