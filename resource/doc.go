// Package resource tracks native objects and the borrows between them.
//
// The IREE C API hands out raw, uncounted pointers and documents, but does
// not enforce, which objects must outlive which. This package keeps a handle
// table of live objects with a borrow count per entry so an owner can refuse
// to release an object that descendants still depend on.
//
// # Ownership
//
//	own     - the entry's creator releases it exactly once via Remove
//	borrow  - a descendant pins the entry alive; Remove fails until the
//	          borrow is returned
//
// # Handle Table
//
// The Table maps integer handles to Go values:
//
//	table := resource.NewTable()
//
//	inst := table.Insert(resource.KindInstance, instance)
//	dev := table.Insert(resource.KindDevice, device)
//	table.Borrow(inst) // the device depends on the instance
//
//	_, err := table.Remove(inst) // ErrOutstandingBorrow
//
//	table.Remove(dev)
//	table.ReturnBorrow(inst)
//	table.Remove(inst) // ok
//
// # Kinds
//
// Every entry is tagged with a Kind so lookups can be type checked:
//
//	value, ok := table.GetTyped(handle, resource.KindSession)
//
// # Observers
//
// Register observers to track lifecycle events:
//
//	table.Subscribe(observer)
//
// Observers receive EventCreated, EventReleased, EventBorrowed and
// EventBorrowReturned, which the runtime package uses for lifecycle logging.
//
// # Memory Management
//
// Entries are not garbage collected. The owner must call Remove; Close
// releases whatever remains, calling Release on values that implement
// Releaser.
package resource
