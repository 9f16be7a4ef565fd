package abi

// Opaque native handles. Zero is never a valid handle.
type (
	InstanceHandle       uintptr // iree_runtime_instance_t*
	DeviceHandle         uintptr // iree_hal_device_t*
	SessionHandle        uintptr // iree_runtime_session_t*
	DriverRegistryHandle uintptr // iree_hal_driver_registry_t*
	VMInstanceHandle     uintptr // iree_vm_instance_t*
	HALAllocatorHandle   uintptr // iree_hal_allocator_t*
)

// InstanceOptions is iree_runtime_instance_options_t.
type InstanceOptions struct {
	DriverRegistry DriverRegistryHandle
}

// SessionOptions is iree_runtime_session_options_t.
type SessionOptions struct {
	ContextFlags   uint32
	BuiltinModules uint64
}

// VM context flags (iree_vm_context_flags_t).
const (
	ContextFlagNone           uint32 = 0
	ContextFlagTraceExecution uint32 = 1 << 0
)

// Session builtin modules (iree_runtime_session_builtins_t).
const (
	SessionBuiltinNone uint64 = 0
	SessionBuiltinAll  uint64 = ^uint64(0)
)
