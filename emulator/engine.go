package emulator

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

const (
	DriverLocalSync = "local-sync"
	DriverLocalTask = "local-task"
)

var driverOrder = []string{DriverLocalSync, DriverLocalTask}

// driver builds the execution engine backing a device.
type driver func(ctx context.Context) *engine

func defaultDrivers() map[string]driver {
	return map[string]driver{
		DriverLocalSync: func(ctx context.Context) *engine {
			return newEngine(ctx, wazero.NewRuntimeConfigInterpreter())
		},
		DriverLocalTask: func(ctx context.Context) *engine {
			return newEngine(ctx, wazero.NewRuntimeConfig())
		},
	}
}

// engine wraps one wazero runtime. Modules compiled on it may be shared by
// every session on the device; instances are anonymous so sessions never
// collide on names.
type engine struct {
	runtime wazero.Runtime
}

func newEngine(ctx context.Context, cfg wazero.RuntimeConfig) *engine {
	return &engine{runtime: wazero.NewRuntimeWithConfig(ctx, cfg)}
}

func (e *engine) compile(ctx context.Context, wasmBytes []byte) (wazero.CompiledModule, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("compile failed: %w", err)
	}
	return compiled, nil
}

func (e *engine) instantiate(ctx context.Context, compiled wazero.CompiledModule) (api.Module, error) {
	mod, err := e.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, fmt.Errorf("instantiate failed: %w", err)
	}
	return mod, nil
}

func (e *engine) close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}
