package main

import (
	stderrors "errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/iree-runtime/abi"
	"github.com/wippyai/iree-runtime/allocator"
	"github.com/wippyai/iree-runtime/emulator"
	"github.com/wippyai/iree-runtime/native"
	"github.com/wippyai/iree-runtime/runtime"
)

// newLogger builds the console logger shared by every package.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func installLogger(l *zap.Logger) {
	allocator.SetLogger(l)
	runtime.SetLogger(l)
	emulator.SetLogger(l.Named("emulator"))
}

func loadLibrary(backend string) (abi.Library, error) {
	switch backend {
	case backendNative:
		return native.Load()
	default:
		return emulator.New(), nil
	}
}

// env is an open instance, device and session.
type env struct {
	inst *runtime.Instance
	dev  *runtime.Device
	sess *runtime.Session
}

func openEnv(cfg Config) (*env, error) {
	lib, err := loadLibrary(cfg.Backend)
	if err != nil {
		return nil, err
	}

	inst, err := runtime.NewInstance(runtime.NewInstanceOptions(runtime.AvailableDrivers(lib)).UseAllAvailableDrivers())
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	e := &env{inst: inst}

	e.dev, err = inst.TryCreateDefaultDevice(cfg.Driver)
	if err != nil {
		e.close()
		return nil, fmt.Errorf("create device: %w", err)
	}

	opts := inst.DefaultSessionOptions().WithTraceExecution(cfg.Trace)
	e.sess, err = runtime.NewSession(inst, opts, e.dev)
	if err != nil {
		e.close()
		return nil, fmt.Errorf("create session: %w", err)
	}

	for _, path := range cfg.Modules {
		if err := e.sess.AppendModuleFromFile(path); err != nil {
			e.close()
			return nil, fmt.Errorf("append module: %w", err)
		}
	}
	return e, nil
}

// close releases the session, device and instance in that order.
func (e *env) close() error {
	var errs []error
	if e.sess != nil {
		errs = append(errs, e.sess.Close())
	}
	if e.dev != nil {
		errs = append(errs, e.dev.Close())
	}
	errs = append(errs, e.inst.Close())
	return stderrors.Join(errs...)
}

func run(cfg Config, out io.Writer) (err error) {
	e, err := openEnv(cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = stderrors.Join(err, e.close())
	}()

	fmt.Fprintf(out, "Backend: %s\n", cfg.Backend)
	fmt.Fprintf(out, "Driver:  %s\n", e.dev.Driver())
	fmt.Fprintf(out, "Modules: %d\n", len(e.sess.Modules()))
	for _, m := range e.sess.Modules() {
		fmt.Fprintf(out, "  %s\n", m.Source)
	}

	failed := 0
	for _, name := range cfg.Calls {
		if err := e.sess.CallByName(name); err != nil {
			failed++
			fmt.Fprintf(out, "call %s: %v\n", name, err)
			continue
		}
		fmt.Fprintf(out, "call %s: ok\n", name)
	}

	if cfg.Trim {
		if err := e.sess.Trim(); err != nil {
			return fmt.Errorf("trim: %w", err)
		}
		fmt.Fprintln(out, "trimmed")
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d calls failed", failed, len(cfg.Calls))
	}
	return nil
}
