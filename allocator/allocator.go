package allocator

import (
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/iree-runtime/abi"
	"github.com/wippyai/iree-runtime/errors"
)

// Alignment is both the header size and the alignment of every pointer the
// bridge returns.
const Alignment = 16

// MaxSize is the largest request the bridge accepts.
const MaxSize = uintptr(math.MaxInt)

type block struct {
	words  []uint64
	pinner runtime.Pinner
}

var (
	// blocks keeps pinned blocks reachable until FREE, keyed by user pointer.
	blocks     sync.Map
	liveBlocks atomic.Int64

	host = abi.Allocator{Ctl: hostCtl}
	null = abi.Allocator{Ctl: nullCtl}
)

// Host returns the bridging allocator.
func Host() abi.Allocator {
	return host
}

// Null returns the diagnostic allocator.
func Null() abi.Allocator {
	return null
}

// Live returns the number of bridge allocations not yet freed.
func Live() int {
	return int(liveBlocks.Load())
}

func hostCtl(_ unsafe.Pointer, command abi.AllocatorCommand, params unsafe.Pointer, inoutPtr *unsafe.Pointer) abi.Status {
	switch command {
	case abi.AllocatorCommandMalloc:
		return allocate(byteLength(params), inoutPtr)

	case abi.AllocatorCommandCalloc:
		// Fresh Go allocations are zeroed, which satisfies CALLOC.
		return allocate(byteLength(params), inoutPtr)

	case abi.AllocatorCommandRealloc:
		if *inoutPtr == nil {
			return allocate(byteLength(params), inoutPtr)
		}
		return reallocate(byteLength(params), inoutPtr)

	case abi.AllocatorCommandFree:
		release(*inoutPtr)
		return 0

	default:
		Logger().Warn("unsupported allocator command", zap.Uint32("command", uint32(command)))
		return statusOf(errors.CodeUnimplemented)
	}
}

func allocate(size uintptr, out *unsafe.Pointer) abi.Status {
	if size > MaxSize {
		Logger().Debug("allocation rejected", zap.Uintptr("size", size))
		return statusOf(errors.CodeOutOfRange)
	}

	// One extra Alignment of slack lets the header start on an aligned
	// address regardless of where the Go allocator placed the words.
	b := &block{words: make([]uint64, (size+2*Alignment+7)/8)}
	start := unsafe.Pointer(unsafe.SliceData(b.words))
	header := unsafe.Add(start, alignUp(uintptr(start))-uintptr(start))
	*(*uintptr)(header) = size
	user := unsafe.Add(header, Alignment)

	b.pinner.Pin(start)
	blocks.Store(uintptr(user), b)
	liveBlocks.Add(1)

	Logger().Debug("allocate", zap.Uintptr("size", size), zap.Uintptr("ptr", uintptr(user)))
	*out = user
	return 0
}

func reallocate(size uintptr, inout *unsafe.Pointer) abi.Status {
	old := *inout
	if _, ok := blocks.Load(uintptr(old)); !ok {
		panic(errUnknownPointer)
	}
	oldSize := headerSize(old)
	if size > MaxSize {
		Logger().Debug("reallocation rejected", zap.Uintptr("old_size", oldSize), zap.Uintptr("size", size))
		return statusOf(errors.CodeOutOfRange)
	}

	var fresh unsafe.Pointer
	if st := allocate(size, &fresh); !st.IsOK() {
		return st
	}
	copy(unsafe.Slice((*byte)(fresh), size), unsafe.Slice((*byte)(old), min(oldSize, size)))
	release(old)

	Logger().Debug("reallocate", zap.Uintptr("old_size", oldSize), zap.Uintptr("size", size))
	*inout = fresh
	return 0
}

func release(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	v, ok := blocks.LoadAndDelete(uintptr(ptr))
	if !ok {
		// Same contract as free(3): the pointer was never ours or was freed twice.
		panic(errUnknownPointer)
	}
	size := headerSize(ptr)
	b := v.(*block)
	if uintptr(len(b.words))*8 < size+Alignment {
		panic("allocator: corrupt allocation header")
	}
	b.pinner.Unpin()
	liveBlocks.Add(-1)

	Logger().Debug("free", zap.Uintptr("size", size), zap.Uintptr("ptr", uintptr(ptr)))
}

const errUnknownPointer = "allocator: free of unknown pointer"

// headerSize reads the size header of a block known to be in the live set.
func headerSize(ptr unsafe.Pointer) uintptr {
	return *(*uintptr)(unsafe.Add(ptr, -Alignment))
}

func byteLength(params unsafe.Pointer) uintptr {
	return (*abi.AllocatorAllocParams)(params).ByteLength
}

func alignUp(p uintptr) uintptr {
	return (p + Alignment - 1) &^ (Alignment - 1)
}

func statusOf(code errors.Code) abi.Status {
	return abi.StatusFromCode(code.Native())
}

func nullCtl(_ unsafe.Pointer, command abi.AllocatorCommand, _ unsafe.Pointer, inoutPtr *unsafe.Pointer) abi.Status {
	switch command {
	case abi.AllocatorCommandFree:
		Logger().Debug("null allocator: free", zap.Uintptr("ptr", uintptr(*inoutPtr)))
	default:
		Logger().Debug("null allocator: command", zap.Stringer("command", command))
	}
	return 0
}
