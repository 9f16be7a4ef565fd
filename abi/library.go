package abi

import "unsafe"

// Library is the set of native entry points the bindings consume. Each
// method maps to exactly one C function; statuses are returned raw and must
// be wrapped by the caller immediately.
//
// Implementations must be safe for concurrent use on distinct sessions and
// on a shared instance.
type Library interface {
	// iree_hal_available_driver_registry
	AvailableDriverRegistry() DriverRegistryHandle

	// iree_runtime_instance_options_initialize
	InstanceOptionsInitialize(out *InstanceOptions)
	// iree_runtime_instance_options_use_all_available_drivers
	InstanceOptionsUseAllAvailableDrivers(opts *InstanceOptions)

	// iree_runtime_instance_create
	InstanceCreate(opts *InstanceOptions, hostAllocator Allocator, out *InstanceHandle) Status
	// iree_runtime_instance_release
	InstanceRelease(instance InstanceHandle)
	// iree_runtime_instance_host_allocator
	InstanceHostAllocator(instance InstanceHandle) Allocator
	// iree_runtime_instance_vm_instance
	InstanceVMInstance(instance InstanceHandle) VMInstanceHandle
	// iree_runtime_instance_driver_registry
	InstanceDriverRegistry(instance InstanceHandle) DriverRegistryHandle
	// iree_runtime_instance_try_create_default_device
	InstanceTryCreateDefaultDevice(instance InstanceHandle, driverName StringView, out *DeviceHandle) Status

	// iree_hal_device_release
	DeviceRelease(device DeviceHandle)

	// iree_runtime_session_options_initialize
	SessionOptionsInitialize(out *SessionOptions)
	// iree_runtime_session_create_with_device
	SessionCreateWithDevice(instance InstanceHandle, opts *SessionOptions, device DeviceHandle, hostAllocator Allocator, out *SessionHandle) Status
	// iree_runtime_session_release
	SessionRelease(session SessionHandle)
	// iree_runtime_session_host_allocator
	SessionHostAllocator(session SessionHandle) Allocator
	// iree_runtime_session_device
	SessionDevice(session SessionHandle) DeviceHandle
	// iree_runtime_session_device_allocator
	SessionDeviceAllocator(session SessionHandle) HALAllocatorHandle
	// iree_runtime_session_trim
	SessionTrim(session SessionHandle) Status
	// iree_runtime_session_append_bytecode_module_from_memory
	SessionAppendBytecodeModuleFromMemory(session SessionHandle, flatbuffer ConstByteSpan, flatbufferAllocator Allocator) Status
	// iree_runtime_session_append_bytecode_module_from_file
	SessionAppendBytecodeModuleFromFile(session SessionHandle, path string) Status
	// iree_runtime_session_call_by_name with no input or output lists
	SessionCallByName(session SessionHandle, fullName StringView) Status

	// iree_status_to_string
	StatusToString(status Status, allocator *Allocator, outBuffer **byte, outLength *uintptr) bool
	// iree_status_join
	StatusJoin(base, next Status) Status
	// iree_status_ignore
	StatusIgnore(status Status) Status

	// iree_allocator_free
	AllocatorFree(allocator Allocator, ptr unsafe.Pointer)
}
