package emulator

import (
	"context"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/iree-runtime/abi"
	"github.com/wippyai/iree-runtime/resource"
)

// Counts is a snapshot of live emulator objects.
type Counts struct {
	Instances int
	Devices   int
	Sessions  int
	Modules   int
	Statuses  int
}

// Zero reports whether nothing is alive.
func (c Counts) Zero() bool {
	return c == Counts{}
}

// ObjectsReleased reports whether every instance, device, session and module
// is gone. Status records are not considered.
func (c Counts) ObjectsReleased() bool {
	return c.Instances == 0 && c.Devices == 0 && c.Sessions == 0 && c.Modules == 0
}

// Library is a pure-Go abi.Library. The zero value is not usable; call New.
type Library struct {
	ctx      context.Context
	records  *resource.Table
	objects  *resource.Table
	registry resource.Handle
	drivers  map[string]driver
	// mu serialises object lifecycle transitions.
	mu sync.Mutex
}

var _ abi.Library = (*Library)(nil)

// New creates an emulator with the local-sync and local-task drivers
// registered.
func New() *Library {
	l := &Library{
		ctx:     context.Background(),
		records: resource.NewTable(),
		objects: resource.NewTable(),
		drivers: defaultDrivers(),
	}
	l.registry = l.objects.Insert(resource.KindDriverRegistry, l.drivers)
	return l
}

// Drivers lists the registered driver names.
func (l *Library) Drivers() []string {
	names := make([]string, 0, len(l.drivers))
	for _, d := range driverOrder {
		if _, ok := l.drivers[d]; ok {
			names = append(names, d)
		}
	}
	return names
}

// Outstanding reports live instances, devices, sessions, modules and status
// records.
func (l *Library) Outstanding() Counts {
	c := Counts{
		Instances: l.objects.Count(resource.KindInstance),
		Devices:   l.objects.Count(resource.KindDevice),
		Sessions:  l.objects.Count(resource.KindSession),
		Statuses:  l.records.Len(),
	}
	var sessions []*session
	l.objects.Each(func(_ resource.Handle, k resource.Kind, v any) bool {
		if k == resource.KindSession {
			sessions = append(sessions, v.(*session))
		}
		return true
	})
	for _, s := range sessions {
		c.Modules += s.moduleCount()
	}
	return c
}

// LiveStatuses returns the number of status records not yet released.
func (l *Library) LiveStatuses() int {
	return l.records.Len()
}

func (l *Library) AvailableDriverRegistry() abi.DriverRegistryHandle {
	return abi.DriverRegistryHandle(l.registry)
}

func (l *Library) InstanceOptionsInitialize(out *abi.InstanceOptions) {
	*out = abi.InstanceOptions{}
}

func (l *Library) InstanceOptionsUseAllAvailableDrivers(opts *abi.InstanceOptions) {
	opts.DriverRegistry = abi.DriverRegistryHandle(l.registry)
}

func (l *Library) SessionOptionsInitialize(out *abi.SessionOptions) {
	*out = abi.SessionOptions{
		ContextFlags:   abi.ContextFlagNone,
		BuiltinModules: abi.SessionBuiltinAll,
	}
}

func (l *Library) AllocatorFree(a abi.Allocator, ptr unsafe.Pointer) {
	a.Free(ptr)
}

// lookup returns the live object behind h if it has the given kind.
func lookup[T any](l *Library, h uintptr, kind resource.Kind) (T, bool) {
	var zero T
	v, ok := l.objects.GetTyped(resource.Handle(h), kind)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// reap frees h once it was released by its owner and nothing retains it.
// Callers hold l.mu.
func (l *Library) reap(h resource.Handle) {
	v, ok := l.objects.Get(h)
	if !ok {
		return
	}
	r, ok := v.(reapable)
	if !ok || !r.releasedByOwner() {
		return
	}
	if _, err := l.objects.Remove(h); err != nil {
		return
	}
	Logger().Debug("emulator: object freed", zap.Uint32("handle", uint32(h)))
	r.free(l)
}

type reapable interface {
	releasedByOwner() bool
	free(l *Library)
}
