// Package channel defines the canonical order representation shared by all
// marketplace channels and the ports every channel implements: the inbound
// payload adapter and the outbound reconciliation gateway.
//
// A channel adapter turns a channel-specific wire payload (JSON or XML) into
// an OrderDraft. The validation pipeline partitions the draft's line items
// into confirmed and rejected sets, the commit sequence persists the
// confirmed part, and the reconciliation dispatcher reports the outcome back
// through the channel's gateway.
package channel
