// Package runtime provides the ownership graph over the native runtime:
// Instance, Device and Session.
//
// # Quick Start
//
//	lib := emulator.New() // or native.Load()
//
//	opts := runtime.NewInstanceOptions(runtime.AvailableDrivers(lib)).
//	    UseAllAvailableDrivers()
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
//	sess, err := runtime.NewSession(inst, inst.DefaultSessionOptions(), dev)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close()
//
//	if err := sess.AppendModuleFromMemory(moduleBytes); err != nil {
//	    log.Fatal(err)
//	}
//	if err := sess.CallByName("module.main"); err != nil {
//	    log.Fatal(err)
//	}
//
// Deferred closes run in reverse order, which is the only order the graph
// accepts.
//
// # Ownership
//
// A Device borrows its Instance. A Session borrows its Instance and its
// Device. Modules appended from memory borrow the caller's bytes until the
// session is closed; the bytes are pinned for that time.
//
// Close is the normal way to release. A graph that is dropped without Close
// is released natively once the garbage collector finds the whole graph
// unreachable; the ledger of an Instance references everything derived from
// it, so nothing is released while the instance is still in use.
//
// Closing a resource while something still borrows it fails with a
// KindBorrowed error carrying CodeFailedPrecondition, and the resource stays
// usable. Closing twice, or using a closed resource, fails with KindReleased.
//
// # Thread Safety
//
// Instance and Device are safe for concurrent use. Session is NOT: exactly
// one goroutine may use a session at a time, and the package adds no
// locking of its own.
//
// # Errors
//
// Every native status is converted at the call site. Failures are
// *errors.Error values whose cause renders the native diagnostic lazily;
// errors.Is matches both the error shape and the status code:
//
//	if errors.Is(err, errors.CodeNotFound) { ... }
package runtime
