// Package ingest implements the order ingestion core: the idempotency guard
// over external order ids, the sequential product validation pipeline, and
// the order commit sequence with its scoped coupon suppression.
//
// The package owns the ports to its collaborators (order store, catalog,
// buyer resolver, notifier); infrastructure supplies the implementations.
package ingest
