package toolbox

import "sync/atomic"

// CancelToken is a user-cancellation signal polled between per-document
// steps of a batch operation. Cancelling stops the remaining documents;
// already-processed documents are not rolled back (the checkpoint taken at
// the start of the operation covers that via undo).
type CancelToken struct {
	requested atomic.Bool
}

// Cancel requests cancellation of the running batch operation.
func (c *CancelToken) Cancel() {
	c.requested.Store(true)
}

// Consume reports whether cancellation was requested, resetting the token.
func (c *CancelToken) Consume() bool {
	return c.requested.Swap(false)
}
