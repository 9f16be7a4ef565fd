// Package status owns native statuses returned by the IREE runtime.
//
// Every native entry point returns an iree_status_t. A non-OK status points
// at a heap record owned by the library and must be disposed exactly once:
// converted to an error, joined into another status, or ignored.
//
//	st := status.Wrap(lib, lib.SessionTrim(session))
//	if err := st.Err(); err != nil {
//	    return err // *status.Error, rendered lazily
//	}
//
// Cleanup paths join instead of dropping:
//
//	st = st.Join(status.Wrap(lib, lib.SessionTrim(other)))
//
// Rendering goes through the bridging allocator: the library writes the
// message into a buffer obtained from allocator.Host, the text is copied
// into Go memory and the buffer is released with the same allocator.
//
// A status or error that is garbage collected without being handled is
// ignored by a finalizer, so native leak tracking never fires for statuses
// that were dropped on purpose.
package status
