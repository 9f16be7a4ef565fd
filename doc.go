// Package ireeruntime is a safety-enforcing Go binding to the IREE runtime C
// library.
//
// The native API hands out raw handles, expects callers to release objects in
// dependency order and returns status values that leak unless consumed. This
// module wraps that surface so that misuse is reported as an error instead of
// undefined behavior.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	ireeruntime/         Root package (documentation only)
//	├── abi/             Mirror of the C ABI: handles, status codes, views, allocators
//	├── allocator/       Go-side allocator bridge with pinned, header-prefixed blocks
//	├── status/          Status discipline: consume, join, render lazily
//	├── errors/          Structured error types carrying a status code
//	├── resource/        Handle table and borrow ledger for the ownership graph
//	├── runtime/         Instance, Device and Session with enforced lifetimes
//	├── emulator/        Pure-Go abi.Library backed by wazero, for tests and tooling
//	├── native/          cgo binding to libiree_runtime (build tag: iree)
//	├── testbed/         End-to-end scenarios over the emulator
//	└── cmd/ireerun/     Command-line driver for loading modules and calling functions
//
// # Quick Start
//
// Open a device and run a module:
//
//	lib := emulator.New() // or native.Load() with -tags iree
//
//	opts := runtime.NewInstanceOptions(runtime.AvailableDrivers(lib)).UseAllAvailableDrivers()
//	inst, err := runtime.NewInstance(opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close()
//
//	dev, err := inst.TryCreateDefaultDevice("local-sync")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//
//	sess, err := runtime.NewSession(inst, nil, dev)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close()
//
//	err = sess.AppendModuleFromFile("model.vmfb")
//
// # Ownership
//
// A Device borrows its Instance and a Session borrows both. Close on a parent
// fails with a borrowed error while children are alive. Deferred Close calls
// run in reverse order, which is the order the graph requires.
//
// # Thread Safety
//
// Instance and Device are safe for concurrent use. A Session is not; use one
// session per goroutine for parallel execution.
//
// # Errors
//
// Every failure is an *errors.Error. Match the native status with
// errors.Is(err, errors.CodeNotFound) or extract it with errors.CodeOf.
package ireeruntime
