package emulator

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/iree-runtime/abi"
	"github.com/wippyai/iree-runtime/allocator"
)

// recordingAllocator records FREE calls without releasing anything and
// forwards other commands to the host bridge.
type recordingAllocator struct {
	mu    sync.Mutex
	frees []unsafe.Pointer
}

func (r *recordingAllocator) allocator() abi.Allocator {
	return abi.Allocator{Ctl: func(self unsafe.Pointer, command abi.AllocatorCommand, params unsafe.Pointer, inout *unsafe.Pointer) abi.Status {
		if command == abi.AllocatorCommandFree {
			r.mu.Lock()
			r.frees = append(r.frees, *inout)
			r.mu.Unlock()
			return 0
		}
		return allocator.Host().Ctl(self, command, params, inout)
	}}
}

func render(t *testing.T, l *Library, s abi.Status) string {
	t.Helper()
	a := allocator.Host()
	var buf *byte
	var n uintptr
	require.True(t, l.StatusToString(s, &a, &buf, &n))
	msg := string(unsafe.Slice(buf, n))
	assert.Zero(t, *(*byte)(unsafe.Add(unsafe.Pointer(buf), n)), "buffer must be NUL terminated")
	l.AllocatorFree(a, unsafe.Pointer(buf))
	return msg
}

type fixture struct {
	lib      *Library
	instance abi.InstanceHandle
	device   abi.DeviceHandle
	session  abi.SessionHandle
}

func newFixture(t *testing.T, driver string) *fixture {
	t.Helper()
	l := New()
	f := &fixture{lib: l}

	var opts abi.InstanceOptions
	l.InstanceOptionsInitialize(&opts)
	l.InstanceOptionsUseAllAvailableDrivers(&opts)
	require.True(t, l.InstanceCreate(&opts, allocator.Host(), &f.instance).IsOK())

	st := l.InstanceTryCreateDefaultDevice(f.instance, abi.MakeStringView(driver), &f.device)
	require.True(t, st.IsOK(), render(t, l, st))

	var sopts abi.SessionOptions
	l.SessionOptionsInitialize(&sopts)
	require.True(t, l.SessionCreateWithDevice(f.instance, &sopts, f.device, allocator.Host(), &f.session).IsOK())
	return f
}

func (f *fixture) release() {
	f.lib.SessionRelease(f.session)
	f.lib.DeviceRelease(f.device)
	f.lib.InstanceRelease(f.instance)
}

func (f *fixture) appendBytes(data []byte, a abi.Allocator) abi.Status {
	return f.lib.SessionAppendBytecodeModuleFromMemory(f.session, abi.MakeConstByteSpan(data), a)
}

func (f *fixture) call(name string) abi.Status {
	return f.lib.SessionCallByName(f.session, abi.MakeStringView(name))
}

func TestBuildModule_MinimalEncoding(t *testing.T) {
	want := []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x04, 0x01, 0x60, 0x00, 0x00,
		0x03, 0x02, 0x01, 0x00,
		0x07, 0x07, 0x01, 0x03, 0x72, 0x75, 0x6e, 0x00, 0x00,
		0x0a, 0x04, 0x01, 0x02, 0x00, 0x0b,
	}
	assert.Equal(t, want, BuildModule("", Export{Name: "run"}))
}

func TestStatus_RecordLifecycle(t *testing.T) {
	l := New()

	st := l.NewStatus(abi.StatusInvalidArgument, "bad %s", "input")
	assert.Equal(t, abi.StatusInvalidArgument, st.Code())
	assert.True(t, st.HasRecord())
	assert.Equal(t, 1, l.LiveStatuses())

	assert.Equal(t, "INVALID_ARGUMENT; bad input", render(t, l, st))
	assert.Equal(t, 1, l.LiveStatuses(), "rendering must not consume")

	assert.Equal(t, abi.StatusFromCode(abi.StatusInvalidArgument), l.StatusIgnore(st))
	assert.Zero(t, l.LiveStatuses())

	assert.Panics(t, func() { l.StatusIgnore(st) })
}

func TestStatus_OKAndCodeOnly(t *testing.T) {
	l := New()

	assert.Zero(t, l.NewStatus(abi.StatusOK, "ignored"))
	assert.Equal(t, "OK", render(t, l, 0))

	st := abi.StatusFromCode(abi.StatusDataLoss)
	assert.Equal(t, "DATA_LOSS", render(t, l, st))
	assert.NotPanics(t, func() {
		l.StatusIgnore(st)
		l.StatusIgnore(st)
	})
}

func TestStatus_ToStringAllocationFailure(t *testing.T) {
	l := New()
	st := l.NewStatus(abi.StatusInternal, "boom")
	defer l.StatusIgnore(st)

	failing := abi.Allocator{Ctl: func(unsafe.Pointer, abi.AllocatorCommand, unsafe.Pointer, *unsafe.Pointer) abi.Status {
		return abi.StatusFromCode(abi.StatusResourceExhausted)
	}}
	var buf *byte
	var n uintptr
	assert.False(t, l.StatusToString(st, &failing, &buf, &n))
	assert.Nil(t, buf)
	assert.Zero(t, n)
}

func TestStatus_Join(t *testing.T) {
	l := New()

	t.Run("ok base yields next", func(t *testing.T) {
		next := l.NewStatus(abi.StatusNotFound, "missing")
		assert.Equal(t, next, l.StatusJoin(0, next))
		l.StatusIgnore(next)
	})

	t.Run("ok next yields base", func(t *testing.T) {
		base := l.NewStatus(abi.StatusAborted, "stop")
		assert.Equal(t, base, l.StatusJoin(base, 0))
		l.StatusIgnore(base)
	})

	t.Run("both failing keeps base code", func(t *testing.T) {
		base := l.NewStatus(abi.StatusAborted, "stop")
		next := l.NewStatus(abi.StatusNotFound, "missing")
		joined := l.StatusJoin(base, next)

		assert.Equal(t, abi.StatusAborted, joined.Code())
		assert.Equal(t, "ABORTED; stop; NOT_FOUND; missing", render(t, l, joined))
		assert.Equal(t, 1, l.LiveStatuses())
		l.StatusIgnore(joined)
	})

	t.Run("code only base gains record", func(t *testing.T) {
		joined := l.StatusJoin(abi.StatusFromCode(abi.StatusCancelled), l.NewStatus(abi.StatusInternal, "x"))
		assert.True(t, joined.HasRecord())
		assert.Equal(t, "CANCELLED; INTERNAL; x", render(t, l, joined))
		l.StatusIgnore(joined)
	})

	assert.Zero(t, l.LiveStatuses())
}

func TestInstance_Lifecycle(t *testing.T) {
	l := New()
	live := allocator.Live()

	var opts abi.InstanceOptions
	l.InstanceOptionsInitialize(&opts)

	var h abi.InstanceHandle
	st := l.InstanceCreate(&opts, allocator.Host(), &h)
	require.Equal(t, abi.StatusInvalidArgument, st.Code(), "registry is required")
	l.StatusIgnore(st)

	l.InstanceOptionsUseAllAvailableDrivers(&opts)
	assert.Equal(t, l.AvailableDriverRegistry(), opts.DriverRegistry)

	require.True(t, l.InstanceCreate(&opts, allocator.Host(), &h).IsOK())
	assert.NotZero(t, h)
	assert.Equal(t, live+1, allocator.Live(), "state block comes from the host allocator")
	assert.NotZero(t, l.InstanceVMInstance(h))
	assert.Equal(t, l.AvailableDriverRegistry(), l.InstanceDriverRegistry(h))
	assert.False(t, l.InstanceHostAllocator(h).IsNull())

	l.InstanceRelease(h)
	assert.Equal(t, live, allocator.Live())
	assert.True(t, l.Outstanding().Zero())
}

func TestInstance_NullAllocatorRejected(t *testing.T) {
	l := New()
	var opts abi.InstanceOptions
	l.InstanceOptionsUseAllAvailableDrivers(&opts)

	var h abi.InstanceHandle
	st := l.InstanceCreate(&opts, abi.Allocator{}, &h)
	assert.Equal(t, abi.StatusInvalidArgument, st.Code())
	assert.Zero(t, h)
	l.StatusIgnore(st)
}

func TestDevice_Drivers(t *testing.T) {
	l := New()
	assert.Equal(t, []string{DriverLocalSync, DriverLocalTask}, l.Drivers())

	var opts abi.InstanceOptions
	l.InstanceOptionsUseAllAvailableDrivers(&opts)
	var inst abi.InstanceHandle
	require.True(t, l.InstanceCreate(&opts, allocator.Host(), &inst).IsOK())

	for _, name := range l.Drivers() {
		var dev abi.DeviceHandle
		require.True(t, l.InstanceTryCreateDefaultDevice(inst, abi.MakeStringView(name), &dev).IsOK(), name)
		l.DeviceRelease(dev)
	}

	var dev abi.DeviceHandle
	st := l.InstanceTryCreateDefaultDevice(inst, abi.MakeStringView("cuda"), &dev)
	assert.Equal(t, abi.StatusNotFound, st.Code())
	assert.Equal(t, "NOT_FOUND; no driver registered with name 'cuda'", render(t, l, st))
	l.StatusIgnore(st)

	l.InstanceRelease(inst)
	assert.True(t, l.Outstanding().Zero())
}

func TestSession_Accessors(t *testing.T) {
	f := newFixture(t, DriverLocalSync)
	defer f.release()

	assert.Equal(t, f.device, f.lib.SessionDevice(f.session))
	assert.NotZero(t, f.lib.SessionDeviceAllocator(f.session))
	assert.False(t, f.lib.SessionHostAllocator(f.session).IsNull())
}

func TestSession_AppendAndCall(t *testing.T) {
	for _, driver := range []string{DriverLocalSync, DriverLocalTask} {
		t.Run(driver, func(t *testing.T) {
			f := newFixture(t, driver)

			data := BuildModule("simple", Export{Name: "run"}, Export{Name: "fail", Trap: true})
			require.True(t, f.appendBytes(data, allocator.Null()).IsOK())
			assert.Equal(t, 1, f.lib.Outstanding().Modules)

			require.True(t, f.call("simple.run").IsOK())
			require.True(t, f.call("simple.run").IsOK())

			st := f.call("simple.fail")
			assert.Equal(t, abi.StatusAborted, st.Code())
			f.lib.StatusIgnore(st)

			f.release()
			assert.True(t, f.lib.Outstanding().Zero(), "%+v", f.lib.Outstanding())
		})
	}
}

func TestSession_AppendErrors(t *testing.T) {
	f := newFixture(t, DriverLocalSync)
	defer f.release()

	cases := []struct {
		name string
		data []byte
		code abi.StatusCode
	}{
		{"empty", nil, abi.StatusInvalidArgument},
		{"malformed", []byte("not a module"), abi.StatusInvalidArgument},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			st := f.appendBytes(tt.data, allocator.Null())
			assert.Equal(t, tt.code, st.Code())
			f.lib.StatusIgnore(st)
		})
	}

	require.True(t, f.appendBytes(BuildModule("dup"), allocator.Null()).IsOK())
	st := f.appendBytes(BuildModule("dup"), allocator.Null())
	assert.Equal(t, abi.StatusAlreadyExists, st.Code())
	f.lib.StatusIgnore(st)

	// Unnamed modules share the default name.
	require.True(t, f.appendBytes(BuildModule(""), allocator.Null()).IsOK())
	st = f.appendBytes(BuildModule(""), allocator.Null())
	assert.Equal(t, abi.StatusAlreadyExists, st.Code())
	f.lib.StatusIgnore(st)
}

func TestSession_CallErrors(t *testing.T) {
	f := newFixture(t, DriverLocalSync)
	defer f.release()
	require.True(t, f.appendBytes(BuildModule("m", Export{Name: "run"}), allocator.Null()).IsOK())

	cases := []struct {
		name string
		code abi.StatusCode
	}{
		{"run", abi.StatusInvalidArgument},
		{".run", abi.StatusInvalidArgument},
		{"m.", abi.StatusInvalidArgument},
		{"other.run", abi.StatusNotFound},
		{"m.missing", abi.StatusNotFound},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			st := f.call(tt.name)
			assert.Equal(t, tt.code, st.Code())
			f.lib.StatusIgnore(st)
		})
	}

	// Failed lookups do not start execution.
	require.True(t, f.appendBytes(BuildModule("late"), allocator.Null()).IsOK())
}

func TestSession_AppendAfterExecution(t *testing.T) {
	f := newFixture(t, DriverLocalSync)
	defer f.release()

	require.True(t, f.appendBytes(BuildModule("m", Export{Name: "run"}), allocator.Null()).IsOK())
	require.True(t, f.call("m.run").IsOK())

	st := f.appendBytes(BuildModule("late"), allocator.Null())
	assert.Equal(t, abi.StatusFailedPrecondition, st.Code())
	f.lib.StatusIgnore(st)
}

func TestSession_FromMemorySpanFreedOnRelease(t *testing.T) {
	f := newFixture(t, DriverLocalSync)
	rec := &recordingAllocator{}

	data := BuildModule("m", Export{Name: "run"})
	require.True(t, f.appendBytes(data, rec.allocator()).IsOK())
	assert.Empty(t, rec.frees)

	f.lib.SessionRelease(f.session)
	require.Len(t, rec.frees, 1)
	assert.Equal(t, unsafe.Pointer(&data[0]), rec.frees[0])

	f.lib.DeviceRelease(f.device)
	f.lib.InstanceRelease(f.instance)
}

func TestSession_FailedAppendKeepsCallerSpan(t *testing.T) {
	f := newFixture(t, DriverLocalSync)
	rec := &recordingAllocator{}

	st := f.appendBytes([]byte{0x00, 0x61, 0x73}, rec.allocator())
	f.lib.StatusIgnore(st)
	f.release()
	assert.Empty(t, rec.frees)
}

func TestSession_AppendFromFile(t *testing.T) {
	f := newFixture(t, DriverLocalTask)
	live := allocator.Live()

	dir := t.TempDir()
	path := filepath.Join(dir, "from_file.vmfb")
	require.NoError(t, os.WriteFile(path, BuildModule("", Export{Name: "run"}), 0o600))

	require.True(t, f.lib.SessionAppendBytecodeModuleFromFile(f.session, path).IsOK())
	assert.Equal(t, live+1, allocator.Live(), "file contents live in a host block")
	require.True(t, f.call("from_file.run").IsOK())

	st := f.lib.SessionAppendBytecodeModuleFromFile(f.session, filepath.Join(dir, "missing.vmfb"))
	assert.Equal(t, abi.StatusFailedPrecondition, st.Code(), "execution already began")
	f.lib.StatusIgnore(st)

	f.release()
	assert.Less(t, allocator.Live(), live)
}

func TestSession_AppendFromMissingFile(t *testing.T) {
	f := newFixture(t, DriverLocalSync)
	defer f.release()

	st := f.lib.SessionAppendBytecodeModuleFromFile(f.session, filepath.Join(t.TempDir(), "missing.vmfb"))
	assert.Equal(t, abi.StatusNotFound, st.Code())
	f.lib.StatusIgnore(st)
}

func TestSession_Trim(t *testing.T) {
	f := newFixture(t, DriverLocalSync)
	defer f.release()

	require.True(t, f.appendBytes(BuildModule("m", Export{Name: "run"}), allocator.Null()).IsOK())
	require.True(t, f.call("m.run").IsOK())

	live := allocator.Live()
	require.True(t, f.lib.SessionTrim(f.session).IsOK())
	assert.Equal(t, live-1, allocator.Live(), "scratch block is released")

	// Trimmed modules instantiate again on the next call.
	require.True(t, f.call("m.run").IsOK())
}

func TestRelease_OutOfOrderIsRefcounted(t *testing.T) {
	f := newFixture(t, DriverLocalSync)

	f.lib.InstanceRelease(f.instance)
	f.lib.DeviceRelease(f.device)

	c := f.lib.Outstanding()
	assert.Equal(t, 1, c.Instances, "session retains the instance")
	assert.Equal(t, 1, c.Devices, "session retains the device")

	require.True(t, f.appendBytes(BuildModule("m", Export{Name: "run"}), allocator.Null()).IsOK())
	require.True(t, f.call("m.run").IsOK())

	f.lib.SessionRelease(f.session)
	assert.True(t, f.lib.Outstanding().Zero(), "%+v", f.lib.Outstanding())
}

func TestRelease_Idempotent(t *testing.T) {
	f := newFixture(t, DriverLocalSync)
	f.release()
	assert.NotPanics(t, f.release)
	assert.True(t, f.lib.Outstanding().Zero())
}
