package status

import (
	"runtime"
	"sync"

	"github.com/wippyai/iree-runtime/abi"
	"github.com/wippyai/iree-runtime/errors"
)

// Error is a native failure converted into a Go error. The message is
// rendered on first use, after which the native record is released.
type Error struct {
	lib  abi.Library
	raw  abi.Status
	msg  string
	once sync.Once
	code errors.Code
}

func newError(lib abi.Library, raw abi.Status, code errors.Code) *Error {
	e := &Error{lib: lib, raw: raw, code: code}
	runtime.SetFinalizer(e, (*Error).discard)
	return e
}

// Error renders the native message once and caches it.
func (e *Error) Error() string {
	e.once.Do(func() {
		e.msg = render(e.lib, e.raw)
		e.lib.StatusIgnore(e.raw)
		e.raw = 0
		runtime.SetFinalizer(e, nil)
	})
	return e.msg
}

// StatusCode returns the status code family.
func (e *Error) StatusCode() errors.Code {
	return e.code
}

// Is matches errors.Code targets.
func (e *Error) Is(target error) bool {
	c, ok := target.(errors.Code)
	return ok && c == e.code
}

func (e *Error) discard() {
	e.once.Do(func() {
		e.lib.StatusIgnore(e.raw)
		e.raw = 0
	})
}
