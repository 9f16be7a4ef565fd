package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/iree-runtime/emulator"
)

func writeModule(t *testing.T, name string, exports ...emulator.Export) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".vmfb")
	require.NoError(t, os.WriteFile(path, emulator.BuildModule("", exports...), 0o600))
	return path
}

func TestRun_Emulator(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Modules = []string{writeModule(t, "demo", emulator.Export{Name: "main"})}
	cfg.Calls = []string{"demo.main"}
	cfg.Trim = true
	require.NoError(t, cfg.Validate())

	var out bytes.Buffer
	require.NoError(t, run(cfg, &out))

	assert.Contains(t, out.String(), "Driver:  local-sync")
	assert.Contains(t, out.String(), "Modules: 1")
	assert.Contains(t, out.String(), "call demo.main: ok")
	assert.Contains(t, out.String(), "trimmed")
}

func TestRun_FailedCallsReported(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Driver = "local-task"
	cfg.Modules = []string{writeModule(t, "demo", emulator.Export{Name: "main"}, emulator.Export{Name: "crash", Trap: true})}
	cfg.Calls = []string{"demo.crash", "demo.main"}

	var out bytes.Buffer
	err := run(cfg, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 calls failed")
	assert.Contains(t, out.String(), "call demo.main: ok")
}

func TestRun_UnknownDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Driver = "metal"

	err := run(cfg, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create device")
}

func TestRun_MissingModule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Modules = []string{filepath.Join(t.TempDir(), "nope.vmfb")}

	err := run(cfg, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append module")
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger("debug")
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = newLogger("loud")
	assert.Error(t, err)
}
