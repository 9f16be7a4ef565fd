//go:build !(iree && cgo)

package native

import (
	"github.com/wippyai/iree-runtime/abi"
	"github.com/wippyai/iree-runtime/errors"
)

// Available reports whether the native binding was compiled in.
const Available = false

// Load reports that the native runtime was not linked into this binary.
func Load() (abi.Library, error) {
	return nil, errors.Load("native runtime not linked; rebuild with -tags iree and cgo enabled", nil)
}
