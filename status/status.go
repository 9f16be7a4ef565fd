package status

import (
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/wippyai/iree-runtime/abi"
	"github.com/wippyai/iree-runtime/allocator"
	"github.com/wippyai/iree-runtime/errors"
)

const renderFailed = "Status: <failed to convert to string>"

// Status owns one native status until it is consumed by Err, Join or
// Ignore. It is safe to consume from any goroutine, but only once.
type Status struct {
	lib  abi.Library
	raw  atomic.Uintptr
	code errors.Code
}

// Wrap takes ownership of raw.
func Wrap(lib abi.Library, raw abi.Status) *Status {
	s := &Status{lib: lib}
	s.raw.Store(uintptr(raw))
	if !raw.IsOK() {
		s.code = errors.CodeFromNative(raw.Code())
		runtime.SetFinalizer(s, (*Status).Ignore)
	}
	return s
}

// FromCode builds a code-only status, e.g. to join a synthetic failure into
// a cleanup chain.
func FromCode(lib abi.Library, code errors.Code) *Status {
	return Wrap(lib, abi.StatusFromCode(code.Native()))
}

// IsOK reports whether the wrapped status was OK.
func (s *Status) IsOK() bool {
	return s.code == 0
}

// Code returns the status code family. OK statuses report the zero Code.
func (s *Status) Code() errors.Code {
	return s.code
}

// Err consumes s. It returns nil for OK, otherwise an *Error that owns the
// native record. Later calls return nil.
func (s *Status) Err() error {
	raw := s.take()
	if raw.IsOK() {
		return nil
	}
	return newError(s.lib, raw, s.code)
}

// Join consumes s and next and returns their combination. OK joined with OK
// is OK; OK joined with a failure is that failure unchanged.
func (s *Status) Join(next *Status) *Status {
	return Wrap(s.lib, s.lib.StatusJoin(s.take(), next.take()))
}

// Ignore disposes of s. It is idempotent.
func (s *Status) Ignore() {
	raw := s.take()
	if !raw.IsOK() {
		s.lib.StatusIgnore(raw)
	}
}

// String renders s without consuming it.
func (s *Status) String() string {
	raw := abi.Status(s.raw.Load())
	if raw.IsOK() {
		if s.code != 0 {
			return "Status: <consumed>"
		}
		return "OK"
	}
	return render(s.lib, raw)
}

func (s *Status) take() abi.Status {
	raw := abi.Status(s.raw.Swap(0))
	runtime.SetFinalizer(s, nil)
	return raw
}

// Check wraps raw and converts it to an error annotated with where it
// happened. It returns nil when raw is OK.
func Check(lib abi.Library, raw abi.Status, phase errors.Phase, resource, detail string) error {
	if raw.IsOK() {
		return nil
	}
	return errors.Status(phase, resource, Wrap(lib, raw).Err(), detail)
}

func render(lib abi.Library, raw abi.Status) string {
	alloc := allocator.Host()
	var buf *byte
	var n uintptr
	if !lib.StatusToString(raw, &alloc, &buf, &n) {
		return renderFailed
	}
	msg := string(unsafe.Slice(buf, n))
	lib.AllocatorFree(alloc, unsafe.Pointer(buf))
	return msg
}
