// Package marketplace implements the channel-specific infrastructure: the
// inbound payload adapters, the outbound API clients of the three
// marketplaces, and the bounded-retry executor they share.
package marketplace
