package runtime

import (
	stderrors "errors"
	goruntime "runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/iree-runtime/abi"
	"github.com/wippyai/iree-runtime/allocator"
	"github.com/wippyai/iree-runtime/errors"
	"github.com/wippyai/iree-runtime/resource"
	"github.com/wippyai/iree-runtime/status"
)

// Instance is the root of the ownership graph. It is safe for concurrent use.
// An instance that is never closed is released when it and everything
// derived from it have been garbage collected.
type Instance struct {
	lib      abi.Library
	registry *DriverRegistry
	// ledger tracks every resource derived from this instance.
	ledger  *resource.Table
	handle  abi.InstanceHandle
	self    resource.Handle
	cleanup goruntime.Cleanup
	mu      sync.RWMutex
	closed  bool
}

type instanceNative struct {
	lib    abi.Library
	handle abi.InstanceHandle
}

func releaseDroppedInstance(n instanceNative) {
	Logger().Warn("instance dropped without Close")
	n.lib.InstanceRelease(n.handle)
}

// NewInstance validates opts and creates an instance using the host bridge
// allocator.
func NewInstance(opts *InstanceOptions) (*Instance, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	lib := opts.Registry.lib

	var h abi.InstanceHandle
	if err := status.Check(lib, lib.InstanceCreate(&opts.raw, allocator.Host(), &h),
		errors.PhaseInstance, "instance", "create instance"); err != nil {
		return nil, err
	}

	inst := &Instance{
		lib:      lib,
		registry: opts.Registry,
		ledger:   resource.NewTable(),
		handle:   h,
	}
	inst.ledger.Subscribe(ledgerLogger{})
	inst.self = inst.ledger.Insert(resource.KindInstance, inst)
	inst.cleanup = goruntime.AddCleanup(inst, releaseDroppedInstance, instanceNative{lib: lib, handle: h})

	Logger().Debug("instance created")
	return inst, nil
}

// Library returns the native library the instance was created on.
func (i *Instance) Library() abi.Library {
	return i.lib
}

// Handle returns the native instance handle.
func (i *Instance) Handle() abi.InstanceHandle {
	return i.handle
}

// acquire runs fn with the instance held open.
func (i *Instance) acquire(phase errors.Phase, fn func() error) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return errors.Released(phase, "instance")
	}
	return fn()
}

// HostAllocator returns the allocator the instance was created with.
func (i *Instance) HostAllocator() (abi.Allocator, error) {
	var a abi.Allocator
	err := i.acquire(errors.PhaseInstance, func() error {
		a = i.lib.InstanceHostAllocator(i.handle)
		return nil
	})
	return a, err
}

// DriverRegistry returns the registry owned by the instance.
func (i *Instance) DriverRegistry() (*DriverRegistry, error) {
	var reg *DriverRegistry
	err := i.acquire(errors.PhaseInstance, func() error {
		reg = &DriverRegistry{lib: i.lib, handle: i.lib.InstanceDriverRegistry(i.handle)}
		return nil
	})
	return reg, err
}

// VMInstance returns the instance's VM instance. It is borrowed and valid
// only while the instance is open.
func (i *Instance) VMInstance() (*VMInstance, error) {
	var vm *VMInstance
	err := i.acquire(errors.PhaseInstance, func() error {
		vm = &VMInstance{inst: i, handle: i.lib.InstanceVMInstance(i.handle)}
		return nil
	})
	return vm, err
}

// DefaultSessionOptions returns natively initialised session options.
func (i *Instance) DefaultSessionOptions() *SessionOptions {
	o := &SessionOptions{}
	i.lib.SessionOptionsInitialize(&o.raw)
	return o
}

// TryCreateDefaultDevice creates the default device of the named driver.
// Unknown names fail with CodeNotFound.
func (i *Instance) TryCreateDefaultDevice(name string) (*Device, error) {
	var dev *Device
	err := i.acquire(errors.PhaseDevice, func() error {
		var h abi.DeviceHandle
		if err := status.Check(i.lib, i.lib.InstanceTryCreateDefaultDevice(i.handle, abi.MakeStringView(name), &h),
			errors.PhaseDevice, name, "create default device"); err != nil {
			return err
		}
		dev = &Device{inst: i, handle: h, driver: name}
		i.ledger.Borrow(i.self)
		dev.self = i.ledger.Insert(resource.KindDevice, dev)
		dev.cleanup = goruntime.AddCleanup(dev, releaseDroppedDevice, deviceNative{lib: i.lib, handle: h, driver: name})
		return nil
	})
	if err != nil {
		return nil, err
	}
	Logger().Debug("device created", zap.String("driver", name))
	return dev, nil
}

// Close releases the instance. It fails while devices or sessions created
// from it are open.
func (i *Instance) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return errors.Released(errors.PhaseLifetime, "instance")
	}
	if _, err := i.ledger.Remove(i.self); err != nil {
		return i.borrowError(err)
	}

	i.cleanup.Stop()
	i.lib.InstanceRelease(i.handle)
	i.closed = true
	i.ledger.Close()
	Logger().Debug("instance released")
	return nil
}

func (i *Instance) borrowError(err error) error {
	if stderrors.Is(err, resource.ErrOutstandingBorrow) {
		n, _ := i.ledger.Borrows(i.self)
		return errors.OutstandingBorrows(errors.PhaseLifetime, "instance", n)
	}
	return errors.Wrap(errors.PhaseLifetime, errors.KindReleased, err, "instance")
}

// Outstanding returns the number of open devices and sessions.
func (i *Instance) Outstanding() (devices, sessions int) {
	return i.ledger.Count(resource.KindDevice), i.ledger.Count(resource.KindSession)
}

// VMInstance is the VM instance owned by an Instance.
type VMInstance struct {
	inst   *Instance
	handle abi.VMInstanceHandle
}

// Handle returns the native handle, or a KindReleased error once the owning
// instance is closed.
func (v *VMInstance) Handle() (abi.VMInstanceHandle, error) {
	var h abi.VMInstanceHandle
	err := v.inst.acquire(errors.PhaseInstance, func() error {
		h = v.handle
		return nil
	})
	return h, err
}
