//go:build iree && cgo

package native

/*
#cgo LDFLAGS: -liree_runtime_unified -lm -ldl -lpthread
#include <stdlib.h>
#include <iree/hal/drivers/init.h>
#include <iree/runtime/api.h>
#include "shim_iree.h"
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"

	"github.com/wippyai/iree-runtime/abi"
)

// Available reports whether the native binding was compiled in.
const Available = true

// Library calls straight into libiree.
type Library struct{}

var _ abi.Library = (*Library)(nil)

// Load returns the native library.
func Load() (abi.Library, error) {
	return &Library{}, nil
}

func toCAllocator(a abi.Allocator) C.iree_allocator_t {
	switch {
	case a.IsNull():
		return C.iree_allocator_t{}
	case a.NativeCtl != 0:
		return C.iree_allocator_t{
			self: a.Self,
			ctl:  C.iree_allocator_ctl_fn_t(unsafe.Pointer(a.NativeCtl)),
		}
	default:
		return C.ireego_make_allocator(C.uintptr_t(goAllocatorHandle(a)))
	}
}

func fromCAllocator(c C.iree_allocator_t) abi.Allocator {
	if c.ctl == nil {
		return abi.Allocator{}
	}
	if C.ireego_is_go_allocator(c) != 0 {
		return cgo.Handle(uintptr(c.self)).Value().(abi.Allocator)
	}
	ctl := c.ctl
	return abi.Allocator{
		Self:      c.self,
		NativeCtl: uintptr(unsafe.Pointer(ctl)),
		Ctl: func(self unsafe.Pointer, command abi.AllocatorCommand, params unsafe.Pointer, inoutPtr *unsafe.Pointer) abi.Status {
			return fromCStatus(C.ireego_allocator_call(ctl, self, C.iree_allocator_command_t(command), params, inoutPtr))
		},
	}
}

func stringView(v abi.StringView) C.iree_string_view_t {
	return C.iree_string_view_t{data: (*C.char)(unsafe.Pointer(v.Data)), size: C.iree_host_size_t(v.Size)}
}

func instance(h abi.InstanceHandle) *C.iree_runtime_instance_t {
	return (*C.iree_runtime_instance_t)(unsafe.Pointer(h))
}

func session(h abi.SessionHandle) *C.iree_runtime_session_t {
	return (*C.iree_runtime_session_t)(unsafe.Pointer(h))
}

func device(h abi.DeviceHandle) *C.iree_hal_device_t {
	return (*C.iree_hal_device_t)(unsafe.Pointer(h))
}

func (*Library) AvailableDriverRegistry() abi.DriverRegistryHandle {
	return abi.DriverRegistryHandle(unsafe.Pointer(C.iree_hal_available_driver_registry()))
}

func (*Library) InstanceOptionsInitialize(out *abi.InstanceOptions) {
	var opts C.iree_runtime_instance_options_t
	C.iree_runtime_instance_options_initialize(&opts)
	out.DriverRegistry = abi.DriverRegistryHandle(unsafe.Pointer(opts.driver_registry))
}

func (*Library) InstanceOptionsUseAllAvailableDrivers(opts *abi.InstanceOptions) {
	c := C.iree_runtime_instance_options_t{
		driver_registry: (*C.iree_hal_driver_registry_t)(unsafe.Pointer(opts.DriverRegistry)),
	}
	C.iree_runtime_instance_options_use_all_available_drivers(&c)
	opts.DriverRegistry = abi.DriverRegistryHandle(unsafe.Pointer(c.driver_registry))
}

func (*Library) InstanceCreate(opts *abi.InstanceOptions, hostAllocator abi.Allocator, out *abi.InstanceHandle) abi.Status {
	c := C.iree_runtime_instance_options_t{
		driver_registry: (*C.iree_hal_driver_registry_t)(unsafe.Pointer(opts.DriverRegistry)),
	}
	var inst *C.iree_runtime_instance_t
	st := C.iree_runtime_instance_create(&c, toCAllocator(hostAllocator), &inst)
	*out = abi.InstanceHandle(unsafe.Pointer(inst))
	return fromCStatus(st)
}

func (*Library) InstanceRelease(h abi.InstanceHandle) {
	C.iree_runtime_instance_release(instance(h))
}

func (*Library) InstanceHostAllocator(h abi.InstanceHandle) abi.Allocator {
	return fromCAllocator(C.iree_runtime_instance_host_allocator(instance(h)))
}

func (*Library) InstanceVMInstance(h abi.InstanceHandle) abi.VMInstanceHandle {
	return abi.VMInstanceHandle(unsafe.Pointer(C.iree_runtime_instance_vm_instance(instance(h))))
}

func (*Library) InstanceDriverRegistry(h abi.InstanceHandle) abi.DriverRegistryHandle {
	return abi.DriverRegistryHandle(unsafe.Pointer(C.iree_runtime_instance_driver_registry(instance(h))))
}

func (*Library) InstanceTryCreateDefaultDevice(h abi.InstanceHandle, driverName abi.StringView, out *abi.DeviceHandle) abi.Status {
	var dev *C.iree_hal_device_t
	st := C.iree_runtime_instance_try_create_default_device(instance(h), stringView(driverName), &dev)
	*out = abi.DeviceHandle(unsafe.Pointer(dev))
	return fromCStatus(st)
}

func (*Library) DeviceRelease(h abi.DeviceHandle) {
	C.iree_hal_device_release(device(h))
}

func (*Library) SessionOptionsInitialize(out *abi.SessionOptions) {
	var opts C.iree_runtime_session_options_t
	C.iree_runtime_session_options_initialize(&opts)
	out.ContextFlags = uint32(opts.context_flags)
	out.BuiltinModules = uint64(opts.builtin_modules)
}

func (*Library) SessionCreateWithDevice(ih abi.InstanceHandle, opts *abi.SessionOptions, dh abi.DeviceHandle, hostAllocator abi.Allocator, out *abi.SessionHandle) abi.Status {
	c := C.iree_runtime_session_options_t{
		context_flags:   C.iree_vm_context_flags_t(opts.ContextFlags),
		builtin_modules: C.iree_runtime_session_builtins_t(opts.BuiltinModules),
	}
	var sess *C.iree_runtime_session_t
	st := C.iree_runtime_session_create_with_device(instance(ih), &c, device(dh), toCAllocator(hostAllocator), &sess)
	*out = abi.SessionHandle(unsafe.Pointer(sess))
	return fromCStatus(st)
}

func (*Library) SessionRelease(h abi.SessionHandle) {
	C.iree_runtime_session_release(session(h))
}

func (*Library) SessionHostAllocator(h abi.SessionHandle) abi.Allocator {
	return fromCAllocator(C.iree_runtime_session_host_allocator(session(h)))
}

func (*Library) SessionDevice(h abi.SessionHandle) abi.DeviceHandle {
	return abi.DeviceHandle(unsafe.Pointer(C.iree_runtime_session_device(session(h))))
}

func (*Library) SessionDeviceAllocator(h abi.SessionHandle) abi.HALAllocatorHandle {
	return abi.HALAllocatorHandle(unsafe.Pointer(C.iree_runtime_session_device_allocator(session(h))))
}

func (*Library) SessionTrim(h abi.SessionHandle) abi.Status {
	return fromCStatus(C.iree_runtime_session_trim(session(h)))
}

func (*Library) SessionAppendBytecodeModuleFromMemory(h abi.SessionHandle, flatbuffer abi.ConstByteSpan, flatbufferAllocator abi.Allocator) abi.Status {
	span := C.iree_const_byte_span_t{
		data:        (*C.uint8_t)(unsafe.Pointer(flatbuffer.Data)),
		data_length: C.iree_host_size_t(flatbuffer.DataLength),
	}
	return fromCStatus(C.iree_runtime_session_append_bytecode_module_from_memory(session(h), span, toCAllocator(flatbufferAllocator)))
}

func (*Library) SessionAppendBytecodeModuleFromFile(h abi.SessionHandle, path string) abi.Status {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	return fromCStatus(C.iree_runtime_session_append_bytecode_module_from_file(session(h), cpath))
}

func (*Library) SessionCallByName(h abi.SessionHandle, fullName abi.StringView) abi.Status {
	return fromCStatus(C.iree_runtime_session_call_by_name(session(h), stringView(fullName), nil, nil))
}

func (*Library) StatusToString(s abi.Status, a *abi.Allocator, outBuffer **byte, outLength *uintptr) bool {
	ca := toCAllocator(*a)
	var buf *C.char
	var n C.iree_host_size_t
	ok := C.iree_status_to_string(toCStatus(s), &ca, &buf, &n)
	*outBuffer = (*byte)(unsafe.Pointer(buf))
	*outLength = uintptr(n)
	return bool(ok)
}

func (*Library) StatusJoin(base, next abi.Status) abi.Status {
	return fromCStatus(C.iree_status_join(toCStatus(base), toCStatus(next)))
}

func (*Library) StatusIgnore(s abi.Status) abi.Status {
	return fromCStatus(C.iree_status_ignore(toCStatus(s)))
}

func (*Library) AllocatorFree(a abi.Allocator, ptr unsafe.Pointer) {
	C.iree_allocator_free(toCAllocator(a), ptr)
}
