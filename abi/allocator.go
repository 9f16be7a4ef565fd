package abi

import "unsafe"

// AllocatorCommand is iree_allocator_command_t.
type AllocatorCommand uint32

const (
	AllocatorCommandMalloc  AllocatorCommand = 0
	AllocatorCommandCalloc  AllocatorCommand = 1
	AllocatorCommandRealloc AllocatorCommand = 2
	AllocatorCommandFree    AllocatorCommand = 3
)

func (c AllocatorCommand) String() string {
	switch c {
	case AllocatorCommandMalloc:
		return "MALLOC"
	case AllocatorCommandCalloc:
		return "CALLOC"
	case AllocatorCommandRealloc:
		return "REALLOC"
	case AllocatorCommandFree:
		return "FREE"
	default:
		return "UNKNOWN"
	}
}

// AllocatorAllocParams is iree_allocator_alloc_params_t, passed as params
// for MALLOC, CALLOC and REALLOC.
type AllocatorAllocParams struct {
	ByteLength uintptr
}

// AllocatorCtlFunc is iree_allocator_ctl_fn_t. For MALLOC and CALLOC the
// result is stored through inoutPtr; REALLOC and FREE read the existing
// pointer from it.
type AllocatorCtlFunc func(self unsafe.Pointer, command AllocatorCommand, params unsafe.Pointer, inoutPtr *unsafe.Pointer) Status

// Allocator is iree_allocator_t.
//
// Allocators implemented in Go set Ctl. Allocators handed out by the native
// library set NativeCtl to the C function pointer instead; Ctl may then wrap
// it so Go code can still drive the allocator.
type Allocator struct {
	Self      unsafe.Pointer
	Ctl       AllocatorCtlFunc
	NativeCtl uintptr
}

// IsNull reports whether the allocator has no control function.
func (a Allocator) IsNull() bool {
	return a.Ctl == nil && a.NativeCtl == 0
}

// Malloc allocates size bytes through the control function.
func (a Allocator) Malloc(size uintptr) (unsafe.Pointer, Status) {
	return a.alloc(AllocatorCommandMalloc, size)
}

// Calloc allocates size zeroed bytes through the control function.
func (a Allocator) Calloc(size uintptr) (unsafe.Pointer, Status) {
	return a.alloc(AllocatorCommandCalloc, size)
}

// Realloc resizes ptr to size bytes. On failure ptr remains valid.
func (a Allocator) Realloc(ptr unsafe.Pointer, size uintptr) (unsafe.Pointer, Status) {
	if a.Ctl == nil {
		return nil, StatusFromCode(StatusUnimplemented)
	}
	params := AllocatorAllocParams{ByteLength: size}
	out := ptr
	st := a.Ctl(a.Self, AllocatorCommandRealloc, unsafe.Pointer(&params), &out)
	if !st.IsOK() {
		return ptr, st
	}
	return out, 0
}

// Free releases ptr. A nil ptr is ignored.
func (a Allocator) Free(ptr unsafe.Pointer) {
	if ptr == nil || a.Ctl == nil {
		return
	}
	// FREE never fails in the protocol; the status is always OK.
	_ = a.Ctl(a.Self, AllocatorCommandFree, nil, &ptr)
}

func (a Allocator) alloc(command AllocatorCommand, size uintptr) (unsafe.Pointer, Status) {
	if a.Ctl == nil {
		return nil, StatusFromCode(StatusUnimplemented)
	}
	params := AllocatorAllocParams{ByteLength: size}
	var out unsafe.Pointer
	st := a.Ctl(a.Self, command, unsafe.Pointer(&params), &out)
	if !st.IsOK() {
		return nil, st
	}
	return out, 0
}
