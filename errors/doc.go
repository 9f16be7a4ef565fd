// Package errors provides structured error types for the iree-runtime bindings.
//
// Errors are categorized by Phase (where the error occurred), Kind (error
// category) and, when a native status is involved, Code (the IREE status
// code family).
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseSession, errors.KindStatus).
//		Code(errors.CodeFailedPrecondition).
//		Resource("session").
//		Detail("append module after execution started").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Released(errors.PhaseDevice, "device")
//	err := errors.OutstandingBorrows(errors.PhaseLifetime, "instance", 2)
//
// Codes implement error, so a failure can be matched by family through any
// amount of wrapping:
//
//	if errors.Is(err, errors.CodeNotFound) { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
