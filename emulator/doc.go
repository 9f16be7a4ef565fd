// Package emulator implements abi.Library in pure Go.
//
// It stands in for the native runtime so the bindings can be exercised
// without linking libiree. Status records, instances, devices and sessions
// live in resource tables; modules are WebAssembly binaries executed by
// wazero. Two drivers are registered:
//
//   - local-sync runs modules on the wazero interpreter
//   - local-task runs modules on the wazero default engine
//
// A status handed out by the emulator encodes its record handle above the
// code bits, so a record can be looked up, joined and released exactly like
// a native one. Releasing a record twice panics, mirroring the abort of the
// native library.
//
// Instance and session state blocks are allocated through the host allocator
// supplied by the caller and freed on release. Outstanding reports what is
// still alive, which tests use for leak checks.
package emulator
