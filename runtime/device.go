package runtime

import (
	stderrors "errors"
	goruntime "runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/iree-runtime/abi"
	"github.com/wippyai/iree-runtime/errors"
	"github.com/wippyai/iree-runtime/resource"
)

// Device is a HAL device created from an Instance. It borrows the instance
// until closed and is safe for concurrent use. A device that is never closed
// is released when it is garbage collected.
type Device struct {
	inst    *Instance
	driver  string
	handle  abi.DeviceHandle
	self    resource.Handle
	cleanup goruntime.Cleanup
	mu      sync.Mutex
	closed  bool
}

type deviceNative struct {
	lib    abi.Library
	handle abi.DeviceHandle
	driver string
}

func releaseDroppedDevice(n deviceNative) {
	Logger().Warn("device dropped without Close", zap.String("driver", n.driver))
	n.lib.DeviceRelease(n.handle)
}

// Driver returns the driver name the device was created with.
func (d *Device) Driver() string {
	return d.driver
}

// Handle returns the native device handle.
func (d *Device) Handle() abi.DeviceHandle {
	return d.handle
}

// Instance returns the instance the device borrows.
func (d *Device) Instance() *Instance {
	return d.inst
}

// Close releases the device and returns its borrow of the instance. It fails
// while sessions created on the device are open.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return errors.Released(errors.PhaseLifetime, "device")
	}
	if _, err := d.inst.ledger.Remove(d.self); err != nil {
		if stderrors.Is(err, resource.ErrOutstandingBorrow) {
			n, _ := d.inst.ledger.Borrows(d.self)
			return errors.OutstandingBorrows(errors.PhaseLifetime, "device", n)
		}
		return errors.Wrap(errors.PhaseLifetime, errors.KindReleased, err, "device")
	}

	d.cleanup.Stop()
	d.inst.lib.DeviceRelease(d.handle)
	d.inst.ledger.ReturnBorrow(d.inst.self)
	d.closed = true
	Logger().Debug("device released", zap.String("driver", d.driver))
	return nil
}
