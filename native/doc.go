// Package native binds abi.Library to the IREE runtime C library.
//
// The binding is compiled only with the iree build tag and cgo enabled:
//
//	go build -tags iree ./...
//
// It links libiree_runtime_unified; point CGO_CFLAGS and CGO_LDFLAGS at an
// IREE install. Without the tag, Load reports the library as unavailable and
// callers can fall back to the emulator.
//
// Go allocators handed to the library are routed back into Go through an
// exported trampoline. They are identified by their Ctl code pointer and
// Self, so per-allocator state must live behind Self rather than in a
// closure.
package native
