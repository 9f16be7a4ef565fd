package emulator

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/wippyai/iree-runtime/abi"
	"github.com/wippyai/iree-runtime/resource"
)

// statusShift is the number of code bits below the record handle.
const statusShift = 5

type record struct {
	message string
	notes   []string
	code    abi.StatusCode
}

// NewStatus returns a status carrying a record with the formatted message.
// StatusOK yields the OK status.
func (l *Library) NewStatus(code abi.StatusCode, format string, args ...any) abi.Status {
	if code == abi.StatusOK {
		return 0
	}
	h := l.records.Insert(resource.KindStatus, &record{
		code:    code,
		message: fmt.Sprintf(format, args...),
	})
	return abi.Status(uintptr(h)<<statusShift | uintptr(code)&abi.StatusCodeMask)
}

func (l *Library) record(s abi.Status) (*record, bool) {
	v, ok := l.records.GetTyped(resource.Handle(uintptr(s)>>statusShift), resource.KindStatus)
	if !ok {
		return nil, false
	}
	return v.(*record), true
}

func (l *Library) text(s abi.Status) (string, bool) {
	if s.IsOK() {
		return "OK", true
	}
	if !s.HasRecord() {
		return s.Code().String(), true
	}
	r, ok := l.record(s)
	if !ok {
		return "", false
	}
	var b strings.Builder
	b.WriteString(r.code.String())
	if r.message != "" {
		b.WriteString("; ")
		b.WriteString(r.message)
	}
	for _, n := range r.notes {
		b.WriteString("; ")
		b.WriteString(n)
	}
	return b.String(), true
}

// StatusToString renders s into a NUL-terminated buffer obtained from a.
// The reported length excludes the terminator.
func (l *Library) StatusToString(s abi.Status, a *abi.Allocator, outBuffer **byte, outLength *uintptr) bool {
	*outBuffer = nil
	*outLength = 0
	msg, ok := l.text(s)
	if !ok || a == nil {
		return false
	}
	n := uintptr(len(msg))
	p, st := a.Malloc(n + 1)
	if !st.IsOK() {
		l.StatusIgnore(st)
		return false
	}
	buf := unsafe.Slice((*byte)(p), n+1)
	copy(buf, msg)
	buf[n] = 0
	*outBuffer = (*byte)(p)
	*outLength = n
	return true
}

// StatusJoin consumes base and next. When both fail, base keeps its code and
// gains next's text as a note.
func (l *Library) StatusJoin(base, next abi.Status) abi.Status {
	if base.IsOK() {
		return next
	}
	if next.IsOK() {
		return base
	}
	note, _ := l.text(next)
	l.StatusIgnore(next)

	if !base.HasRecord() {
		base = l.NewStatus(base.Code(), "")
	}
	if r, ok := l.record(base); ok {
		r.notes = append(r.notes, note)
	}
	return base
}

// StatusIgnore frees the record behind s. Releasing a record twice panics.
func (l *Library) StatusIgnore(s abi.Status) abi.Status {
	if !s.HasRecord() {
		return abi.StatusFromCode(s.Code())
	}
	h := resource.Handle(uintptr(s) >> statusShift)
	if _, ok := l.records.GetTyped(h, resource.KindStatus); !ok {
		panic(fmt.Sprintf("emulator: status %#x released twice", uintptr(s)))
	}
	if _, err := l.records.Remove(h); err != nil {
		panic(fmt.Sprintf("emulator: status %#x: %v", uintptr(s), err))
	}
	return abi.StatusFromCode(s.Code())
}
