package runtime

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/iree-runtime/resource"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the runtime package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the runtime package's logger.
// This must be called before creating instances.
func SetLogger(l *zap.Logger) {
	logger = l
}

// ledgerLogger reports ownership graph transitions at debug level.
type ledgerLogger struct{}

func (ledgerLogger) OnResourceEvent(e resource.Event) {
	Logger().Debug("ownership graph",
		zap.Stringer("event", e.Type),
		zap.Stringer("kind", e.Kind),
		zap.Uint32("handle", uint32(e.Handle)),
		zap.Uint32("borrows", e.Borrows))
}
