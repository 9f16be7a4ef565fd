package resource

import "fmt"

// Handle is an opaque reference to a resource in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Kind tags an entry with the native object type it stands for.
type Kind uint32

const (
	KindInstance Kind = iota + 1
	KindDevice
	KindSession
	KindModule
	KindStatus
	KindDriverRegistry
	KindVMInstance
	KindHALAllocator
)

func (k Kind) String() string {
	switch k {
	case KindInstance:
		return "instance"
	case KindDevice:
		return "device"
	case KindSession:
		return "session"
	case KindModule:
		return "module"
	case KindStatus:
		return "status"
	case KindDriverRegistry:
		return "driver_registry"
	case KindVMInstance:
		return "vm_instance"
	case KindHALAllocator:
		return "hal_allocator"
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}

// Event types for resource lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventReleased
	EventBorrowed
	EventBorrowReturned
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventReleased:
		return "released"
	case EventBorrowed:
		return "borrowed"
	case EventBorrowReturned:
		return "borrow_returned"
	default:
		return "unknown"
	}
}

// Event represents a resource lifecycle event.
type Event struct {
	Value   any
	Handle  Handle
	Kind    Kind
	Type    EventType
	Borrows uint32
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// Backend provides the underlying storage mechanism for resources.
type Backend interface {
	// Create stores a value and returns a handle.
	Create(kind Kind, value any) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// Borrow increments the borrow count for a handle.
	Borrow(handle Handle) bool

	// ReturnBorrow decrements the borrow count for a handle.
	ReturnBorrow(handle Handle) bool

	// Drop removes a resource. It fails with ErrOutstandingBorrow while the
	// entry is borrowed and ErrInvalidHandle if the handle is not live.
	Drop(handle Handle) (any, error)

	// Close releases all resources held by the backend.
	Close() error
}

// Releaser is optionally implemented by resource values that need cleanup
// when a table is closed with the entry still live.
type Releaser interface {
	Release()
}
