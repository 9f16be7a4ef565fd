package emulator

import "encoding/binary"

// Export describes one function of a module built by BuildModule.
type Export struct {
	Name string
	// Trap makes the function body a single unreachable instruction.
	Trap bool
}

const (
	sectionCustom   = 0
	sectionType     = 1
	sectionFunction = 3
	sectionExport   = 7
	sectionCode     = 10

	opUnreachable = 0x00
	opEnd         = 0x0b
	exportFunc    = 0x00
	funcTypeTag   = 0x60
)

var wasmHeader = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// BuildModule encodes a minimal bytecode module exporting one nullary
// function per entry. A non-empty name is stored in the name section and
// becomes the module name inside a session.
func BuildModule(name string, exports ...Export) []byte {
	out := append([]byte(nil), wasmHeader...)

	// One shared type: () -> ()
	out = appendSection(out, sectionType, []byte{1, funcTypeTag, 0, 0})

	if len(exports) > 0 {
		funcs := binary.AppendUvarint(nil, uint64(len(exports)))
		exps := binary.AppendUvarint(nil, uint64(len(exports)))
		code := binary.AppendUvarint(nil, uint64(len(exports)))
		for i, e := range exports {
			funcs = append(funcs, 0)

			exps = appendName(exps, e.Name)
			exps = append(exps, exportFunc)
			exps = binary.AppendUvarint(exps, uint64(i))

			body := []byte{0}
			if e.Trap {
				body = append(body, opUnreachable)
			}
			body = append(body, opEnd)
			code = binary.AppendUvarint(code, uint64(len(body)))
			code = append(code, body...)
		}
		out = appendSection(out, sectionFunction, funcs)
		out = appendSection(out, sectionExport, exps)
		out = appendSection(out, sectionCode, code)
	}

	if name != "" {
		sub := appendName(nil, name)
		names := appendName(nil, "name")
		names = append(names, 0)
		names = binary.AppendUvarint(names, uint64(len(sub)))
		names = append(names, sub...)
		out = appendSection(out, sectionCustom, names)
	}
	return out
}

func appendSection(out []byte, id byte, content []byte) []byte {
	out = append(out, id)
	out = binary.AppendUvarint(out, uint64(len(content)))
	return append(out, content...)
}

func appendName(out []byte, s string) []byte {
	out = binary.AppendUvarint(out, uint64(len(s)))
	return append(out, s...)
}
