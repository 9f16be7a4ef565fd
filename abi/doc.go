// Package abi mirrors the IREE runtime C ABI in Go.
//
// Every type here has the same layout as its C counterpart so values can be
// handed to the native library without translation:
//
//	Status            iree_status_t             pointer-sized, 0 is OK
//	Allocator         iree_allocator_t          {self, ctl}
//	ByteSpan          iree_byte_span_t          {data, data_length}
//	ConstByteSpan     iree_const_byte_span_t    {data, data_length}
//	StringView        iree_string_view_t        {data, size}
//
// # Views
//
// Views are non-owning. They reference caller memory and must not outlive the
// slice or string they were built from:
//
//	view := abi.MakeConstByteSpan(moduleBytes)
//	status := lib.SessionAppendBytecodeModuleFromMemory(session, view, alloc)
//
// Converting a view back with Bytes or String performs no validation; the
// native library is trusted to hand back what it was given.
//
// # Library
//
// Library lists the native entry points the binding layer consumes. The
// native package provides the cgo implementation and the emulator package a
// pure-Go one.
package abi
