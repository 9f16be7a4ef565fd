package emulator

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/iree-runtime/abi"
	"github.com/wippyai/iree-runtime/resource"
)

// defaultModuleName names modules whose binary carries no name section.
const defaultModuleName = "module"

const msgExecuting = "session has begun execution; modules can no longer be appended"

type module struct {
	compiled  wazero.CompiledModule
	instance  api.Module
	data      unsafe.Pointer
	dataAlloc abi.Allocator
	name      string
}

// trim closes the cached instance; the next call instantiates again.
func (m *module) trim(l *Library) {
	if m.instance == nil {
		return
	}
	if err := m.instance.Close(l.ctx); err != nil {
		Logger().Warn("emulator: module close failed", zap.String("module", m.name), zap.Error(err))
	}
	m.instance = nil
}

func (m *module) release(l *Library) {
	m.trim(l)
	if err := m.compiled.Close(l.ctx); err != nil {
		Logger().Warn("emulator: compiled module close failed", zap.String("module", m.name), zap.Error(err))
	}
	m.dataAlloc.Free(m.data)
	m.data = nil
}

// SessionAppendBytecodeModuleFromMemory compiles the span and registers the
// module. On success the span is owned by the session and released through
// flatbufferAllocator when the session is freed.
func (l *Library) SessionAppendBytecodeModuleFromMemory(h abi.SessionHandle, flatbuffer abi.ConstByteSpan, flatbufferAllocator abi.Allocator) abi.Status {
	s, ok := lookup[*session](l, uintptr(h), resource.KindSession)
	if !ok || s.released {
		return l.NewStatus(abi.StatusInvalidArgument, "invalid session handle")
	}
	if flatbuffer.Len() == 0 {
		return l.NewStatus(abi.StatusInvalidArgument, "module data is empty")
	}
	return l.appendModule(s, flatbuffer, flatbufferAllocator, defaultModuleName)
}

// SessionAppendBytecodeModuleFromFile reads path into a block from the
// session host allocator and registers it like an in-memory module.
func (l *Library) SessionAppendBytecodeModuleFromFile(h abi.SessionHandle, path string) abi.Status {
	s, ok := lookup[*session](l, uintptr(h), resource.KindSession)
	if !ok || s.released {
		return l.NewStatus(abi.StatusInvalidArgument, "invalid session handle")
	}
	if s.executing() {
		return l.NewStatus(abi.StatusFailedPrecondition, msgExecuting)
	}

	contents, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return l.NewStatus(abi.StatusNotFound, "module file '%s' not found", path)
	case errors.Is(err, fs.ErrPermission):
		return l.NewStatus(abi.StatusPermissionDenied, "module file '%s': %v", path, err)
	case err != nil:
		return l.NewStatus(abi.StatusUnavailable, "module file '%s': %v", path, err)
	}
	if len(contents) == 0 {
		return l.NewStatus(abi.StatusInvalidArgument, "module file '%s' is empty", path)
	}

	block, st := s.alloc.Malloc(uintptr(len(contents)))
	if !st.IsOK() {
		return st
	}
	copy(unsafe.Slice((*byte)(block), len(contents)), contents)

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	span := abi.ConstByteSpan{Data: (*byte)(block), DataLength: uintptr(len(contents))}
	if st := l.appendModule(s, span, s.alloc, name); !st.IsOK() {
		s.alloc.Free(block)
		return st
	}
	return 0
}

func (l *Library) appendModule(s *session, data abi.ConstByteSpan, dataAlloc abi.Allocator, fallbackName string) abi.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return l.NewStatus(abi.StatusFailedPrecondition, msgExecuting)
	}
	dev, ok := l.device(s)
	if !ok {
		return l.NewStatus(abi.StatusInternal, "session device is gone")
	}

	compiled, err := dev.engine.compile(l.ctx, data.Bytes())
	if err != nil {
		return l.NewStatus(abi.StatusInvalidArgument, "malformed module: %v", err)
	}

	name := compiled.Name()
	if name == "" {
		name = fallbackName
	}
	if _, exists := s.modules[name]; exists {
		compiled.Close(l.ctx)
		return l.NewStatus(abi.StatusAlreadyExists, "module '%s' already registered in session", name)
	}

	s.modules[name] = &module{
		compiled:  compiled,
		data:      unsafe.Pointer(data.Data),
		dataAlloc: dataAlloc,
		name:      name,
	}
	s.order = append(s.order, name)

	Logger().Debug("emulator: module appended",
		zap.String("module", name),
		zap.Int("bytes", data.Len()),
		zap.Int("exports", len(compiled.ExportedFunctions())))
	return 0
}

// SessionCallByName invokes "module.function" with no arguments. The first
// resolved call marks the session as executing.
func (l *Library) SessionCallByName(h abi.SessionHandle, fullName abi.StringView) abi.Status {
	s, ok := lookup[*session](l, uintptr(h), resource.KindSession)
	if !ok || s.released {
		return l.NewStatus(abi.StatusInvalidArgument, "invalid session handle")
	}

	name := fullName.String()
	modName, fnName, ok := strings.Cut(name, ".")
	if !ok || modName == "" || fnName == "" {
		return l.NewStatus(abi.StatusInvalidArgument, "function name '%s' is not of the form 'module.function'", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.modules[modName]
	if !ok {
		return l.NewStatus(abi.StatusNotFound, "module '%s' not registered in session", modName)
	}
	def, ok := m.compiled.ExportedFunctions()[fnName]
	if !ok {
		return l.NewStatus(abi.StatusNotFound, "function '%s' not exported by module '%s'", fnName, modName)
	}
	if n := len(def.ParamTypes()); n != 0 {
		return l.NewStatus(abi.StatusInvalidArgument, "function '%s' expects %d arguments", name, n)
	}
	s.started = true

	if s.scratch == nil {
		p, st := s.alloc.Malloc(scratchSize)
		if !st.IsOK() {
			return st
		}
		s.scratch = p
	}

	if m.instance == nil {
		dev, ok := l.device(s)
		if !ok {
			return l.NewStatus(abi.StatusInternal, "session device is gone")
		}
		inst, err := dev.engine.instantiate(l.ctx, m.compiled)
		if err != nil {
			return l.NewStatus(abi.StatusFailedPrecondition, "module '%s': %v", modName, err)
		}
		m.instance = inst
	}

	if _, err := m.instance.ExportedFunction(fnName).Call(l.ctx); err != nil {
		return l.NewStatus(abi.StatusAborted, "call to '%s' failed: %v", name, err)
	}
	return 0
}
