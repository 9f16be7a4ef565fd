package emulator

import (
	"go.uber.org/zap"

	"github.com/wippyai/iree-runtime/abi"
	"github.com/wippyai/iree-runtime/resource"
)

type device struct {
	engine   *engine
	driver   string
	instance resource.Handle
	hal      resource.Handle
	released bool
}

func (d *device) releasedByOwner() bool { return d.released }

func (d *device) free(l *Library) {
	if err := d.engine.close(l.ctx); err != nil {
		Logger().Warn("emulator: engine close failed", zap.String("driver", d.driver), zap.Error(err))
	}
	l.objects.Remove(d.hal)
	l.objects.ReturnBorrow(d.instance)
	l.reap(d.instance)
}

func (l *Library) InstanceTryCreateDefaultDevice(h abi.InstanceHandle, driverName abi.StringView, out *abi.DeviceHandle) abi.Status {
	*out = 0
	l.mu.Lock()
	defer l.mu.Unlock()

	inst, ok := lookup[*instance](l, uintptr(h), resource.KindInstance)
	if !ok || inst.released {
		return l.NewStatus(abi.StatusInvalidArgument, "invalid instance handle")
	}
	name := driverName.String()
	build, ok := l.drivers[name]
	if !ok {
		return l.NewStatus(abi.StatusNotFound, "no driver registered with name '%s'", name)
	}

	dev := &device{
		engine:   build(l.ctx),
		driver:   name,
		instance: resource.Handle(h),
	}
	l.objects.Borrow(dev.instance)
	dh := l.objects.Insert(resource.KindDevice, dev)
	dev.hal = l.objects.Insert(resource.KindHALAllocator, dh)
	*out = abi.DeviceHandle(dh)

	Logger().Debug("emulator: device created", zap.String("driver", name), zap.Uint32("handle", uint32(dh)))
	return 0
}

func (l *Library) DeviceRelease(h abi.DeviceHandle) {
	l.mu.Lock()
	defer l.mu.Unlock()

	dev, ok := lookup[*device](l, uintptr(h), resource.KindDevice)
	if !ok || dev.released {
		return
	}
	dev.released = true
	l.reap(resource.Handle(h))
}
