package runtime

import (
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/wippyai/iree-runtime/abi"
	"github.com/wippyai/iree-runtime/errors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// DriverRegistry is the process-wide HAL driver registry. It is borrowed
// from the native library and never released.
type DriverRegistry struct {
	lib    abi.Library
	handle abi.DriverRegistryHandle
}

// AvailableDrivers returns the registry of every driver linked into lib.
func AvailableDrivers(lib abi.Library) *DriverRegistry {
	return &DriverRegistry{lib: lib, handle: lib.AvailableDriverRegistry()}
}

// Handle returns the native registry handle.
func (r *DriverRegistry) Handle() abi.DriverRegistryHandle {
	return r.handle
}

// InstanceOptions configures NewInstance. Options reference the registry they
// were created with.
type InstanceOptions struct {
	Registry *DriverRegistry `validate:"required"`
	raw      abi.InstanceOptions
}

// NewInstanceOptions initialises native options bound to reg.
func NewInstanceOptions(reg *DriverRegistry) *InstanceOptions {
	o := &InstanceOptions{Registry: reg}
	if reg != nil {
		reg.lib.InstanceOptionsInitialize(&o.raw)
	}
	return o
}

// UseAllAvailableDrivers enables every driver in the registry.
func (o *InstanceOptions) UseAllAvailableDrivers() *InstanceOptions {
	if o.Registry != nil {
		o.Registry.lib.InstanceOptionsUseAllAvailableDrivers(&o.raw)
	}
	return o
}

func (o *InstanceOptions) validate() error {
	if o == nil {
		return errors.NotInitialized(errors.PhaseConfig, "instance options")
	}
	if err := validatorInstance().Struct(o); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "instance options")
	}
	return nil
}

// SessionOptions configures NewSession.
type SessionOptions struct {
	raw abi.SessionOptions
}

// ContextFlags returns the VM context flags.
func (o *SessionOptions) ContextFlags() uint32 {
	return o.raw.ContextFlags
}

// BuiltinModules returns the builtin module bitmask.
func (o *SessionOptions) BuiltinModules() uint64 {
	return o.raw.BuiltinModules
}

// WithTraceExecution toggles VM execution tracing.
func (o *SessionOptions) WithTraceExecution(on bool) *SessionOptions {
	if on {
		o.raw.ContextFlags |= abi.ContextFlagTraceExecution
	} else {
		o.raw.ContextFlags &^= abi.ContextFlagTraceExecution
	}
	return o
}
