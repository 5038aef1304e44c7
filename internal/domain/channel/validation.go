package channel

import "strings"

// ValidationStatus is the per-line-item outcome of the validation pipeline.
type ValidationStatus string

const (
	ValidationConfirmed ValidationStatus = "CONFIRMED"
	ValidationRejected  ValidationStatus = "REJECTED"
)

// RejectReason names the first check a rejected line item failed.
type RejectReason string

const (
	// RejectOutOfDatabase means the channel SKU resolves to no catalog product
	RejectOutOfDatabase RejectReason = "OUT_OF_DATABASE"
	// RejectInactive means the product exists but is not published
	RejectInactive RejectReason = "INACTIVE"
	// RejectPriceMissing means no current price could be resolved
	RejectPriceMissing RejectReason = "PRICE_MISSING"
	// RejectPriceDeviation means the declared price deviates from the
	// catalog price beyond the channel's threshold
	RejectPriceDeviation RejectReason = "PRICE_DEVIATION"
	// RejectInsufficientStock means the requested quantity exceeds the
	// available quantity, or the product is not available at all
	RejectInsufficientStock RejectReason = "INSUFFICIENT_STOCK"
)

// ValidationOutcome is the result of validating one line item.
type ValidationOutcome struct {
	Ref               string
	Status            ValidationStatus
	Reason            RejectReason
	AvailableQuantity int
	// InternalProductID is set when the existence check resolved the SKU
	InternalProductID int64
}

// ValidationReport is the partition of a draft's line items after the
// validation pipeline. Confirmed and Rejected cover every line item of the
// input with no overlap.
type ValidationReport struct {
	Outcomes    []ValidationOutcome
	diagnostics []string
}

// AddConfirmed records a confirmed line item.
func (r *ValidationReport) AddConfirmed(ref string, productID int64, available int) {
	r.Outcomes = append(r.Outcomes, ValidationOutcome{
		Ref:               ref,
		Status:            ValidationConfirmed,
		AvailableQuantity: available,
		InternalProductID: productID,
	})
}

// AddRejected records a rejected line item with its first-failed reason and
// a human-readable diagnostic line.
func (r *ValidationReport) AddRejected(ref string, productID int64, reason RejectReason, available int, diagnostic string) {
	r.Outcomes = append(r.Outcomes, ValidationOutcome{
		Ref:               ref,
		Status:            ValidationRejected,
		Reason:            reason,
		AvailableQuantity: available,
		InternalProductID: productID,
	})
	if diagnostic != "" {
		r.diagnostics = append(r.diagnostics, diagnostic)
	}
}

// ConfirmedRefs returns the refs of all confirmed line items, in input order.
func (r *ValidationReport) ConfirmedRefs() []string {
	refs := make([]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Status == ValidationConfirmed {
			refs = append(refs, o.Ref)
		}
	}
	return refs
}

// RejectedRefs returns the refs of all rejected line items mapped to their
// first-failed reason.
func (r *ValidationReport) RejectedRefs() map[string]RejectReason {
	refs := make(map[string]RejectReason)
	for _, o := range r.Outcomes {
		if o.Status == ValidationRejected {
			refs[o.Ref] = o.Reason
		}
	}
	return refs
}

// Outcome returns the outcome recorded for a ref.
func (r *ValidationReport) Outcome(ref string) (ValidationOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.Ref == ref {
			return o, true
		}
	}
	return ValidationOutcome{}, false
}

// AllRejected reports whether no line item was confirmed.
func (r *ValidationReport) AllRejected() bool {
	for _, o := range r.Outcomes {
		if o.Status == ValidationConfirmed {
			return false
		}
	}
	return len(r.Outcomes) > 0
}

// Diagnostic returns all diagnostic lines space-joined into one
// human-readable summary for notification purposes.
func (r *ValidationReport) Diagnostic() string {
	return strings.Join(r.diagnostics, " ")
}
