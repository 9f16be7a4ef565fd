package runtime

import (
	goruntime "runtime"

	"go.uber.org/zap"

	"github.com/wippyai/iree-runtime/abi"
	"github.com/wippyai/iree-runtime/allocator"
	"github.com/wippyai/iree-runtime/errors"
	"github.com/wippyai/iree-runtime/resource"
	"github.com/wippyai/iree-runtime/status"
)

// SourceMemory is the Module.Source of modules appended from memory.
const SourceMemory = "memory"

// Module describes a module appended to a session.
type Module struct {
	// Source is SourceMemory or the file path the module was read from.
	Source string
	Size   int
}

type pinnedBytes struct {
	data   []byte
	pinner *goruntime.Pinner
}

// sessionNative is what must outlive a session that is dropped without
// Close: the native handle and the pins on caller bytes. It holds no
// reference back to the Session.
type sessionNative struct {
	lib    abi.Library
	handle abi.SessionHandle
	pinned []pinnedBytes
}

func (n *sessionNative) release() {
	n.lib.SessionRelease(n.handle)
	for _, p := range n.pinned {
		p.pinner.Unpin()
	}
	n.pinned = nil
}

func releaseDroppedSession(n *sessionNative) {
	Logger().Warn("session dropped without Close", zap.Int("pinned_modules", len(n.pinned)))
	n.release()
}

// Session is an execution context bound to one instance and one device.
// It borrows both until closed. A Session is NOT safe for concurrent use.
// Modules appended from memory stay pinned until Close, or until the
// session is garbage collected if it is never closed.
type Session struct {
	inst    *Instance
	dev     *Device
	modules []Module
	entries []resource.Handle
	native  *sessionNative
	cleanup goruntime.Cleanup
	handle  abi.SessionHandle
	self    resource.Handle
	closed  bool
}

// NewSession creates a session on dev. A nil opts uses the instance defaults.
func NewSession(inst *Instance, opts *SessionOptions, dev *Device) (*Session, error) {
	if inst == nil || dev == nil {
		return nil, errors.InvalidInput(errors.PhaseSession, "session requires an instance and a device")
	}
	if dev.inst != inst {
		return nil, errors.InvalidInput(errors.PhaseSession, "device belongs to a different instance")
	}
	if opts == nil {
		opts = inst.DefaultSessionOptions()
	}

	var s *Session
	err := inst.acquire(errors.PhaseSession, func() error {
		dev.mu.Lock()
		defer dev.mu.Unlock()
		if dev.closed {
			return errors.Released(errors.PhaseSession, "device")
		}

		var h abi.SessionHandle
		if err := status.Check(inst.lib, inst.lib.SessionCreateWithDevice(inst.handle, &opts.raw, dev.handle, allocator.Host(), &h),
			errors.PhaseSession, "session", "create session"); err != nil {
			return err
		}

		s = &Session{inst: inst, dev: dev, handle: h}
		s.native = &sessionNative{lib: inst.lib, handle: h}
		s.cleanup = goruntime.AddCleanup(s, releaseDroppedSession, s.native)
		inst.ledger.Borrow(inst.self)
		inst.ledger.Borrow(dev.self)
		s.self = inst.ledger.Insert(resource.KindSession, s)
		return nil
	})
	if err != nil {
		return nil, err
	}

	Logger().Debug("session created",
		zap.String("driver", dev.driver),
		zap.Uint32("context_flags", opts.raw.ContextFlags))
	return s, nil
}

// Handle returns the native session handle.
func (s *Session) Handle() abi.SessionHandle {
	return s.handle
}

func (s *Session) check(phase errors.Phase) error {
	if s.closed {
		return errors.Released(phase, "session")
	}
	return nil
}

// HostAllocator returns the allocator the session was created with.
func (s *Session) HostAllocator() (abi.Allocator, error) {
	if err := s.check(errors.PhaseSession); err != nil {
		return abi.Allocator{}, err
	}
	return s.inst.lib.SessionHostAllocator(s.handle), nil
}

// Device returns the device the session runs on.
func (s *Session) Device() (*Device, error) {
	if err := s.check(errors.PhaseSession); err != nil {
		return nil, err
	}
	return s.dev, nil
}

// DeviceAllocator returns the HAL allocator of the session's device. It is
// borrowed and valid only while the session is open.
func (s *Session) DeviceAllocator() (*DeviceAllocator, error) {
	if err := s.check(errors.PhaseSession); err != nil {
		return nil, err
	}
	return &DeviceAllocator{session: s, handle: s.inst.lib.SessionDeviceAllocator(s.handle)}, nil
}

// Trim releases cached working memory without ending the session.
func (s *Session) Trim() error {
	if err := s.check(errors.PhaseSession); err != nil {
		return err
	}
	return status.Check(s.inst.lib, s.inst.lib.SessionTrim(s.handle), errors.PhaseSession, "session", "trim")
}

// AppendModuleFromMemory appends a module whose bytes stay owned by the
// caller. data is pinned and must not be modified until the session is
// closed.
func (s *Session) AppendModuleFromMemory(data []byte) error {
	if err := s.check(errors.PhaseModule); err != nil {
		return err
	}

	pinner := &goruntime.Pinner{}
	if len(data) > 0 {
		pinner.Pin(&data[0])
	}

	lib := s.inst.lib
	raw := lib.SessionAppendBytecodeModuleFromMemory(s.handle, abi.MakeConstByteSpan(data), allocator.Null())
	if err := status.Check(lib, raw, errors.PhaseModule, "session", "append module from memory"); err != nil {
		pinner.Unpin()
		return err
	}

	s.native.pinned = append(s.native.pinned, pinnedBytes{data: data, pinner: pinner})
	s.addModule(Module{Source: SourceMemory, Size: len(data)})
	return nil
}

// AppendModuleFromFile appends a module the native library reads from path.
func (s *Session) AppendModuleFromFile(path string) error {
	if err := s.check(errors.PhaseModule); err != nil {
		return err
	}
	if path == "" {
		return errors.InvalidInput(errors.PhaseModule, "module path is empty")
	}

	lib := s.inst.lib
	if err := status.Check(lib, lib.SessionAppendBytecodeModuleFromFile(s.handle, path),
		errors.PhaseModule, path, "append module from file"); err != nil {
		return err
	}
	s.addModule(Module{Source: path})
	return nil
}

func (s *Session) addModule(m Module) {
	s.modules = append(s.modules, m)
	s.inst.ledger.Borrow(s.self)
	s.entries = append(s.entries, s.inst.ledger.Insert(resource.KindModule, m))
	Logger().Debug("module appended", zap.String("source", m.Source), zap.Int("size", m.Size))
}

// Modules lists appended modules in order.
func (s *Session) Modules() []Module {
	return append([]Module(nil), s.modules...)
}

// CallByName invokes "module.function" with no arguments. A failed call
// trims the session; a trim failure is joined onto the call status.
func (s *Session) CallByName(fullName string) error {
	if err := s.check(errors.PhaseModule); err != nil {
		return err
	}

	lib := s.inst.lib
	st := status.Wrap(lib, lib.SessionCallByName(s.handle, abi.MakeStringView(fullName)))
	if st.IsOK() {
		return nil
	}
	st = st.Join(status.Wrap(lib, lib.SessionTrim(s.handle)))
	return errors.Status(errors.PhaseModule, fullName, st.Err(), "call function")
}

// Close releases the session, unpins module bytes and returns the borrows of
// its instance and device.
func (s *Session) Close() error {
	if s.closed {
		return errors.Released(errors.PhaseLifetime, "session")
	}
	ledger := s.inst.ledger

	for _, h := range s.entries {
		ledger.ReturnBorrow(s.self)
		if _, err := ledger.Remove(h); err != nil {
			Logger().Warn("module entry not removed", zap.Uint32("entry", uint32(h)), zap.Error(err))
		}
	}
	s.entries = nil
	if _, err := ledger.Remove(s.self); err != nil {
		return errors.Wrap(errors.PhaseLifetime, errors.KindBorrowed, err, "session")
	}

	s.cleanup.Stop()
	s.native.release()

	ledger.ReturnBorrow(s.dev.self)
	ledger.ReturnBorrow(s.inst.self)
	s.closed = true
	Logger().Debug("session released", zap.Int("modules", len(s.modules)))
	return nil
}

// DeviceAllocator is the HAL allocator of a session's device.
type DeviceAllocator struct {
	session *Session
	handle  abi.HALAllocatorHandle
}

// Handle returns the native handle, or a KindReleased error once the session
// is closed.
func (a *DeviceAllocator) Handle() (abi.HALAllocatorHandle, error) {
	if err := a.session.check(errors.PhaseSession); err != nil {
		return 0, err
	}
	return a.handle, nil
}
