package testbed

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/wippyai/iree-runtime/allocator"
	"github.com/wippyai/iree-runtime/emulator"
	"github.com/wippyai/iree-runtime/errors"
	ireert "github.com/wippyai/iree-runtime/runtime"
)

func newInstance(t *testing.T, lib *emulator.Library) *ireert.Instance {
	t.Helper()
	opts := ireert.NewInstanceOptions(ireert.AvailableDrivers(lib)).UseAllAvailableDrivers()
	inst, err := ireert.NewInstance(opts)
	if err != nil {
		t.Fatalf("NewInstance failed: %v", err)
	}
	return inst
}

func mustClose(t *testing.T, name string, c interface{ Close() error }) {
	t.Helper()
	if err := c.Close(); err != nil {
		t.Fatalf("%s close failed: %v", name, err)
	}
}

// Scenario 1: all drivers enabled, default synchronous device.
func TestScenario_DefaultDevice(t *testing.T) {
	lib := emulator.New()
	inst := newInstance(t, lib)

	dev, err := inst.TryCreateDefaultDevice("local-sync")
	if err != nil {
		t.Fatalf("TryCreateDefaultDevice failed: %v", err)
	}
	if dev.Handle() == 0 {
		t.Fatal("expected a device handle")
	}

	mustClose(t, "device", dev)
	mustClose(t, "instance", inst)
}

// Scenario 2: append a well-formed module, trim, reject bad buffers.
func TestScenario_SessionAppendTrim(t *testing.T) {
	lib := emulator.New()
	inst := newInstance(t, lib)
	dev, err := inst.TryCreateDefaultDevice("local-sync")
	if err != nil {
		t.Fatalf("TryCreateDefaultDevice failed: %v", err)
	}
	sess, err := ireert.NewSession(inst, inst.DefaultSessionOptions(), dev)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	module := emulator.BuildModule("scenario", emulator.Export{Name: "main"})
	if err := sess.AppendModuleFromMemory(module); err != nil {
		t.Fatalf("AppendModuleFromMemory(%d bytes) failed: %v", len(module), err)
	}
	if err := sess.Trim(); err != nil {
		t.Fatalf("Trim failed: %v", err)
	}

	bad := map[string][]byte{
		"zero-length": {},
		"malformed":   []byte("definitely not bytecode"),
		"truncated":   module[:len(module)/2],
	}
	for name, data := range bad {
		err := sess.AppendModuleFromMemory(data)
		if err == nil {
			t.Fatalf("%s: expected failure", name)
		}
		switch errors.CodeOf(err) {
		case errors.CodeInvalidArgument, errors.CodeFailedPrecondition:
		default:
			t.Fatalf("%s: unexpected code %v: %v", name, errors.CodeOf(err), err)
		}
	}

	if n := len(sess.Modules()); n != 1 {
		t.Fatalf("expected 1 module, got %d", n)
	}

	mustClose(t, "session", sess)
	mustClose(t, "device", dev)
	mustClose(t, "instance", inst)
}

// Scenario 3: unknown device name.
func TestScenario_UnknownDevice(t *testing.T) {
	lib := emulator.New()
	inst := newInstance(t, lib)
	defer mustClose(t, "instance", inst)

	_, err := inst.TryCreateDefaultDevice("does-not-exist")
	if !stderrors.Is(err, errors.CodeNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestScenario_InstanceReleaseBeforeDevice(t *testing.T) {
	lib := emulator.New()
	inst := newInstance(t, lib)
	dev, err := inst.TryCreateDefaultDevice("local-sync")
	if err != nil {
		t.Fatalf("TryCreateDefaultDevice failed: %v", err)
	}

	err = inst.Close()
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindBorrowed {
		t.Fatalf("expected borrowed error, got %v", err)
	}
	if !stderrors.Is(err, errors.CodeFailedPrecondition) {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}

	// Nothing was released natively.
	if c := lib.Outstanding(); c.Instances != 1 || c.Devices != 1 {
		t.Fatalf("unexpected outstanding objects: %+v", c)
	}

	mustClose(t, "device", dev)
	mustClose(t, "instance", inst)
}

func TestScenario_ModuleFromFileAndCall(t *testing.T) {
	lib := emulator.New()
	inst := newInstance(t, lib)
	dev, err := inst.TryCreateDefaultDevice("local-task")
	if err != nil {
		t.Fatalf("TryCreateDefaultDevice failed: %v", err)
	}
	sess, err := ireert.NewSession(inst, nil, dev)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "kernels.vmfb")
	if err := os.WriteFile(path, emulator.BuildModule("kernels", emulator.Export{Name: "init"}, emulator.Export{Name: "step"}), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := sess.AppendModuleFromFile(path); err != nil {
		t.Fatalf("AppendModuleFromFile failed: %v", err)
	}
	for _, fn := range []string{"kernels.init", "kernels.step", "kernels.step"} {
		if err := sess.CallByName(fn); err != nil {
			t.Fatalf("CallByName(%s) failed: %v", fn, err)
		}
	}

	err = sess.AppendModuleFromMemory(emulator.BuildModule("late"))
	if !stderrors.Is(err, errors.CodeFailedPrecondition) {
		t.Fatalf("expected FailedPrecondition after execution, got %v", err)
	}

	mustClose(t, "session", sess)
	mustClose(t, "device", dev)
	mustClose(t, "instance", inst)
}

func TestScenario_SharedInstanceConcurrentSessions(t *testing.T) {
	lib := emulator.New()
	inst := newInstance(t, lib)
	dev, err := inst.TryCreateDefaultDevice("local-task")
	if err != nil {
		t.Fatalf("TryCreateDefaultDevice failed: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			sess, err := ireert.NewSession(inst, nil, dev)
			if err != nil {
				errs <- err
				return
			}
			defer sess.Close()

			name := fmt.Sprintf("worker%d", id)
			if err := sess.AppendModuleFromMemory(emulator.BuildModule(name, emulator.Export{Name: "run"})); err != nil {
				errs <- err
				return
			}
			for j := 0; j < 10; j++ {
				if err := sess.CallByName(name + ".run"); err != nil {
					errs <- err
					return
				}
			}
			if err := sess.Trim(); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("worker failed: %v", err)
	}

	if devices, sessions := inst.Outstanding(); devices != 1 || sessions != 0 {
		t.Fatalf("expected 1 device and 0 sessions, got %d and %d", devices, sessions)
	}
	mustClose(t, "device", dev)
	mustClose(t, "instance", inst)
}

func TestLeaks_FullCycle(t *testing.T) {
	lib := emulator.New()
	baseline := allocator.Live()

	for i := 0; i < 3; i++ {
		inst := newInstance(t, lib)
		dev, err := inst.TryCreateDefaultDevice("local-sync")
		if err != nil {
			t.Fatalf("TryCreateDefaultDevice failed: %v", err)
		}
		sess, err := ireert.NewSession(inst, nil, dev)
		if err != nil {
			t.Fatalf("NewSession failed: %v", err)
		}
		if err := sess.AppendModuleFromMemory(emulator.BuildModule("m", emulator.Export{Name: "run"}, emulator.Export{Name: "bad", Trap: true})); err != nil {
			t.Fatalf("AppendModuleFromMemory failed: %v", err)
		}
		if err := sess.CallByName("m.run"); err != nil {
			t.Fatalf("CallByName failed: %v", err)
		}
		if err := sess.CallByName("m.bad"); err == nil {
			t.Fatal("expected trap")
		} else if err.Error() == "" {
			t.Fatal("expected rendered diagnostic")
		}

		mustClose(t, "session", sess)
		mustClose(t, "device", dev)
		mustClose(t, "instance", inst)
	}

	if c := lib.Outstanding(); !c.Zero() {
		t.Fatalf("emulator objects leaked: %+v", c)
	}
	if live := allocator.Live(); live != baseline {
		t.Fatalf("host allocator leaked %d blocks", live-baseline)
	}
}

func TestLeaks_UnrenderedErrorsAreCollected(t *testing.T) {
	lib := emulator.New()
	inst := newInstance(t, lib)
	defer mustClose(t, "instance", inst)

	for i := 0; i < 5; i++ {
		if _, err := inst.TryCreateDefaultDevice("nope"); err == nil {
			t.Fatal("expected failure")
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for lib.LiveStatuses() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("%d status records never released", lib.LiveStatuses())
		}
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
}

func openAndDrop(t *testing.T, lib *emulator.Library) {
	t.Helper()
	inst := newInstance(t, lib)
	dev, err := inst.TryCreateDefaultDevice("local-sync")
	if err != nil {
		t.Fatalf("TryCreateDefaultDevice failed: %v", err)
	}
	sess, err := ireert.NewSession(inst, nil, dev)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if err := sess.AppendModuleFromMemory(emulator.BuildModule("m", emulator.Export{Name: "run"})); err != nil {
		t.Fatalf("AppendModuleFromMemory failed: %v", err)
	}
	if err := sess.CallByName("m.run"); err != nil {
		t.Fatalf("CallByName failed: %v", err)
	}
	// A rejected close must not stop the graph from being released later.
	if err := inst.Close(); err == nil {
		t.Fatal("expected instance close to fail while borrowed")
	}
}

func TestLeaks_DroppedGraphIsReleased(t *testing.T) {
	lib := emulator.New()
	openAndDrop(t, lib)

	if c := lib.Outstanding(); c.Sessions != 1 || c.Modules != 1 {
		t.Fatalf("expected the dropped graph to be live before GC, got %+v", c)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !lib.Outstanding().Zero() {
		if time.Now().After(deadline) {
			t.Fatalf("dropped graph never released: %+v", lib.Outstanding())
		}
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
}
