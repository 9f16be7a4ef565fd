//go:build iree && cgo

package native

/*
#include <stdint.h>
#include <iree/base/api.h>
*/
import "C"

import (
	"reflect"
	"runtime/cgo"
	"sync"
	"unsafe"

	"github.com/wippyai/iree-runtime/abi"
)

type allocatorKey struct {
	ctl  uintptr
	self uintptr
}

// goAllocators maps Go allocators to the cgo handles passed as self to the
// trampoline. Entries live for the process; there are only a few distinct
// allocators.
var goAllocators sync.Map

func goAllocatorHandle(a abi.Allocator) cgo.Handle {
	key := allocatorKey{ctl: reflect.ValueOf(a.Ctl).Pointer(), self: uintptr(a.Self)}
	if h, ok := goAllocators.Load(key); ok {
		return h.(cgo.Handle)
	}
	h := cgo.NewHandle(a)
	if prev, loaded := goAllocators.LoadOrStore(key, h); loaded {
		h.Delete()
		return prev.(cgo.Handle)
	}
	return h
}

//export ireegoAllocatorCtl
func ireegoAllocatorCtl(self C.uintptr_t, command C.iree_allocator_command_t, params unsafe.Pointer, inoutPtr *unsafe.Pointer) C.iree_status_t {
	a := cgo.Handle(self).Value().(abi.Allocator)
	st := a.Ctl(a.Self, abi.AllocatorCommand(command), params, inoutPtr)
	return toCStatus(st)
}

func toCStatus(s abi.Status) C.iree_status_t {
	return C.iree_status_t(unsafe.Pointer(uintptr(s)))
}

func fromCStatus(s C.iree_status_t) abi.Status {
	return abi.Status(uintptr(unsafe.Pointer(s)))
}
