// Package allocator bridges the native allocator control protocol onto Go
// memory.
//
// The native library delegates every dynamic allocation to an
// iree_allocator_t: a control function dispatching MALLOC, CALLOC, REALLOC
// and FREE. FREE and REALLOC receive only the user pointer, so the bridge
// prefixes each block with a hidden header recording the requested size:
//
//	base                      base+Alignment
//	│ size (uintptr) │ pad   │ user bytes ...          │
//	└──── Alignment bytes ───┘
//
// Every returned pointer is Alignment-aligned. Blocks are pinned so the
// native side may hold on to them across calls, and stay reachable until
// FREE.
//
// # Allocators
//
//	allocator.Host()  bridging allocator backed by the Go heap
//	allocator.Null()  diagnostic allocator; logs FREE and allocates nothing
//
// Null is handed to the native library where it insists on an allocator but
// no memory changes hands, e.g. a module appended from caller-owned bytes.
//
// Both constructors return stateless values that are safe to share.
//
// # Failure
//
// Requests larger than math.MaxInt yield an OUT_OF_RANGE status and unknown
// commands UNIMPLEMENTED. Running out of memory is fatal.
package allocator
