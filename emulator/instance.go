package emulator

import (
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/iree-runtime/abi"
	"github.com/wippyai/iree-runtime/resource"
)

// instanceStateSize is the size of the per-instance block drawn from the
// host allocator.
const instanceStateSize = 256

type instance struct {
	alloc    abi.Allocator
	state    unsafe.Pointer
	vm       resource.Handle
	released bool
}

func (i *instance) releasedByOwner() bool { return i.released }

func (i *instance) free(l *Library) {
	i.alloc.Free(i.state)
	i.state = nil
	l.objects.Remove(i.vm)
}

func (l *Library) InstanceCreate(opts *abi.InstanceOptions, hostAllocator abi.Allocator, out *abi.InstanceHandle) abi.Status {
	*out = 0
	if opts == nil {
		return l.NewStatus(abi.StatusInvalidArgument, "instance options required")
	}
	if opts.DriverRegistry != abi.DriverRegistryHandle(l.registry) {
		return l.NewStatus(abi.StatusInvalidArgument, "instance options carry no driver registry")
	}
	if hostAllocator.IsNull() {
		return l.NewStatus(abi.StatusInvalidArgument, "host allocator required")
	}

	state, st := hostAllocator.Calloc(instanceStateSize)
	if !st.IsOK() {
		return st
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	inst := &instance{alloc: hostAllocator, state: state}
	h := l.objects.Insert(resource.KindInstance, inst)
	inst.vm = l.objects.Insert(resource.KindVMInstance, h)
	*out = abi.InstanceHandle(h)

	Logger().Debug("emulator: instance created", zap.Uint32("handle", uint32(h)))
	return 0
}

func (l *Library) InstanceRelease(h abi.InstanceHandle) {
	l.mu.Lock()
	defer l.mu.Unlock()

	inst, ok := lookup[*instance](l, uintptr(h), resource.KindInstance)
	if !ok || inst.released {
		return
	}
	inst.released = true
	l.reap(resource.Handle(h))
}

func (l *Library) InstanceHostAllocator(h abi.InstanceHandle) abi.Allocator {
	inst, ok := lookup[*instance](l, uintptr(h), resource.KindInstance)
	if !ok {
		return abi.Allocator{}
	}
	return inst.alloc
}

func (l *Library) InstanceVMInstance(h abi.InstanceHandle) abi.VMInstanceHandle {
	inst, ok := lookup[*instance](l, uintptr(h), resource.KindInstance)
	if !ok {
		return 0
	}
	return abi.VMInstanceHandle(inst.vm)
}

func (l *Library) InstanceDriverRegistry(h abi.InstanceHandle) abi.DriverRegistryHandle {
	if _, ok := lookup[*instance](l, uintptr(h), resource.KindInstance); !ok {
		return 0
	}
	return abi.DriverRegistryHandle(l.registry)
}
