package emulator

import (
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/iree-runtime/abi"
	"github.com/wippyai/iree-runtime/resource"
)

// scratchSize is the size of the per-session block drawn from the host
// allocator on first call and dropped by trim.
const scratchSize = 1024

type session struct {
	alloc    abi.Allocator
	state    unsafe.Pointer
	scratch  unsafe.Pointer
	modules  map[string]*module
	order    []string
	opts     abi.SessionOptions
	instance resource.Handle
	device   resource.Handle
	mu       sync.Mutex
	started  bool
	released bool
}

func (s *session) releasedByOwner() bool { return s.released }

func (s *session) free(l *Library) {
	s.mu.Lock()
	for i := len(s.order) - 1; i >= 0; i-- {
		s.modules[s.order[i]].release(l)
	}
	s.modules = nil
	s.order = nil
	s.mu.Unlock()

	s.alloc.Free(s.scratch)
	s.alloc.Free(s.state)
	s.scratch, s.state = nil, nil

	l.objects.ReturnBorrow(s.device)
	l.objects.ReturnBorrow(s.instance)
	l.reap(s.device)
	l.reap(s.instance)
}

func (s *session) executing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *session) moduleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.modules)
}

func (l *Library) SessionCreateWithDevice(ih abi.InstanceHandle, opts *abi.SessionOptions, dh abi.DeviceHandle, hostAllocator abi.Allocator, out *abi.SessionHandle) abi.Status {
	*out = 0
	if opts == nil {
		return l.NewStatus(abi.StatusInvalidArgument, "session options required")
	}
	if hostAllocator.IsNull() {
		return l.NewStatus(abi.StatusInvalidArgument, "host allocator required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	inst, ok := lookup[*instance](l, uintptr(ih), resource.KindInstance)
	if !ok || inst.released {
		return l.NewStatus(abi.StatusInvalidArgument, "invalid instance handle")
	}
	dev, ok := lookup[*device](l, uintptr(dh), resource.KindDevice)
	if !ok || dev.released {
		return l.NewStatus(abi.StatusInvalidArgument, "invalid device handle")
	}

	state, st := hostAllocator.Calloc(instanceStateSize)
	if !st.IsOK() {
		return st
	}

	s := &session{
		alloc:    hostAllocator,
		state:    state,
		modules:  make(map[string]*module),
		opts:     *opts,
		instance: resource.Handle(ih),
		device:   resource.Handle(dh),
	}
	l.objects.Borrow(s.instance)
	l.objects.Borrow(s.device)
	h := l.objects.Insert(resource.KindSession, s)
	*out = abi.SessionHandle(h)

	Logger().Debug("emulator: session created",
		zap.Uint32("handle", uint32(h)),
		zap.String("driver", dev.driver),
		zap.Uint32("context_flags", opts.ContextFlags))
	return 0
}

func (l *Library) SessionRelease(h abi.SessionHandle) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := lookup[*session](l, uintptr(h), resource.KindSession)
	if !ok || s.released {
		return
	}
	s.released = true
	l.reap(resource.Handle(h))
}

func (l *Library) SessionHostAllocator(h abi.SessionHandle) abi.Allocator {
	s, ok := lookup[*session](l, uintptr(h), resource.KindSession)
	if !ok {
		return abi.Allocator{}
	}
	return s.alloc
}

func (l *Library) SessionDevice(h abi.SessionHandle) abi.DeviceHandle {
	s, ok := lookup[*session](l, uintptr(h), resource.KindSession)
	if !ok {
		return 0
	}
	return abi.DeviceHandle(s.device)
}

func (l *Library) SessionDeviceAllocator(h abi.SessionHandle) abi.HALAllocatorHandle {
	s, ok := lookup[*session](l, uintptr(h), resource.KindSession)
	if !ok {
		return 0
	}
	dev, ok := lookup[*device](l, uintptr(s.device), resource.KindDevice)
	if !ok {
		return 0
	}
	return abi.HALAllocatorHandle(dev.hal)
}

// SessionTrim closes cached module instances and drops the scratch block.
func (l *Library) SessionTrim(h abi.SessionHandle) abi.Status {
	s, ok := lookup[*session](l, uintptr(h), resource.KindSession)
	if !ok || s.released {
		return l.NewStatus(abi.StatusInvalidArgument, "invalid session handle")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range s.order {
		s.modules[name].trim(l)
	}
	s.alloc.Free(s.scratch)
	s.scratch = nil
	return 0
}

func (l *Library) device(s *session) (*device, bool) {
	return lookup[*device](l, uintptr(s.device), resource.KindDevice)
}
