package channel

// CommitResult is the outcome of one order commit attempt. It is created
// once per attempt and never mutated after return.
type CommitResult struct {
	// InternalOrderID is the id of the persisted order, zero when the
	// commit failed
	InternalOrderID int64
	// ErrorMessage aggregates deduplicated store errors, empty on success
	ErrorMessage string
	// Warnings carries non-fatal store warnings collected during finalize
	Warnings []string
}

// Succeeded reports whether the commit produced a persisted order.
func (r CommitResult) Succeeded() bool {
	return r.InternalOrderID != 0
}
