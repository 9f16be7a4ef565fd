package abi

import "unsafe"

// ByteSpan is iree_byte_span_t: a mutable, non-owning view.
type ByteSpan struct {
	Data       *byte
	DataLength uintptr
}

// ConstByteSpan is iree_const_byte_span_t: a read-only, non-owning view.
type ConstByteSpan struct {
	Data       *byte
	DataLength uintptr
}

// StringView is iree_string_view_t. It is length-delimited, not
// NUL-terminated.
type StringView struct {
	Data *byte
	Size uintptr
}

// MakeByteSpan views b. The caller must keep b alive and unmodified by other
// writers for as long as the span is in use.
func MakeByteSpan(b []byte) ByteSpan {
	if len(b) == 0 {
		return ByteSpan{}
	}
	return ByteSpan{Data: unsafe.SliceData(b), DataLength: uintptr(len(b))}
}

// Bytes reconstructs the viewed slice without copying.
func (s ByteSpan) Bytes() []byte {
	if s.Data == nil {
		return nil
	}
	return unsafe.Slice(s.Data, s.DataLength)
}

// Len returns the view length in bytes.
func (s ByteSpan) Len() int {
	return int(s.DataLength)
}

// MakeConstByteSpan views b read-only.
func MakeConstByteSpan(b []byte) ConstByteSpan {
	if len(b) == 0 {
		return ConstByteSpan{}
	}
	return ConstByteSpan{Data: unsafe.SliceData(b), DataLength: uintptr(len(b))}
}

// Bytes reconstructs the viewed slice without copying. The result must not
// be written to.
func (s ConstByteSpan) Bytes() []byte {
	if s.Data == nil {
		return nil
	}
	return unsafe.Slice(s.Data, s.DataLength)
}

// Len returns the view length in bytes.
func (s ConstByteSpan) Len() int {
	return int(s.DataLength)
}

// MakeStringView views str.
func MakeStringView(str string) StringView {
	if len(str) == 0 {
		return StringView{}
	}
	return StringView{Data: unsafe.StringData(str), Size: uintptr(len(str))}
}

// String reconstructs the viewed string without copying or UTF-8 checks.
func (v StringView) String() string {
	if v.Data == nil {
		return ""
	}
	return unsafe.String(v.Data, v.Size)
}

// Len returns the view length in bytes.
func (v StringView) Len() int {
	return int(v.Size)
}
