package channel

import (
	"context"
	"errors"
	"sync"
)

// StoreStatus is the internal order status code observed on status-change
// events. The values mirror the order store's status dictionary.
type StoreStatus string

const (
	StatusAccepted     StoreStatus = "AS"
	StatusCancelled    StoreStatus = "CA"
	StatusReadyToShip  StoreStatus = "SO"
	StatusShipped      StoreStatus = "SH"
	StatusFinished     StoreStatus = "F"
	StatusNotDelivered StoreStatus = "ND"
)

// ReconcileItem names one line item in an outbound confirm/reject call.
type ReconcileItem struct {
	Ref       string
	ItemIndex int
	Quantity  int
}

// ShipmentLine is one basket line of an outbound ship call. Exemplars carry
// the regulatory marking codes fulfilled for this product, when any.
type ShipmentLine struct {
	ProductID int64
	Quantity  int
	Exemplars []string
}

// ShipmentNotice carries the payload of an outbound ship call. BoxCodes are
// set for channels that pack into coded boxes, MarkingCodes for orders whose
// regulatory marking was fulfilled. Lines name the committed basket so
// channels that ship per product can declare every line.
type ShipmentNotice struct {
	BoxCodes     []string
	MarkingCodes []string
	Lines        []ShipmentLine
	Tracking     string
}

// Errors for adapter parsing and gateway dispatch
var (
	ErrMalformedPayload = errors.New("channel: malformed payload")
	ErrUnsupportedCall  = errors.New("channel: call not supported by this channel")
	ErrGatewayNotFound  = errors.New("channel: no gateway registered for channel")
)

// Adapter parses a channel-specific wire payload into the canonical draft.
// Structural failures return ErrMalformedPayload (wrapped); defective
// numeric fields never fail the parse, they become zero values.
type Adapter interface {
	Channel() Code
	Parse(raw []byte) (*OrderDraft, error)
}

// Gateway is the outbound reconciliation port of one channel. Calls a
// channel does not support return ErrUnsupportedCall; the dispatcher treats
// that as a no-op, not a failure.
type Gateway interface {
	Channel() Code

	// ConfirmOrder informs the marketplace which line items were accepted
	ConfirmOrder(ctx context.Context, externalOrderID string, items []ReconcileItem) error
	// RejectOrder informs the marketplace which line items were rejected
	RejectOrder(ctx context.Context, externalOrderID string, items []ReconcileItem) error
	// ShipOrder reports the order as shipped
	ShipOrder(ctx context.Context, externalOrderID string, notice ShipmentNotice) error
	// NotifyStatus reports an internal status transition to channels that
	// track the full order lifecycle
	NotifyStatus(ctx context.Context, externalOrderID string, status StoreStatus) error
	// ReturnClaim files a return claim for a delivered order on channels
	// that accept them
	ReturnClaim(ctx context.Context, externalOrderID, reason string) error
}

// GatewayRegistry holds the registered gateways keyed by channel. Safe for
// concurrent use.
type GatewayRegistry struct {
	mu       sync.RWMutex
	gateways map[Code]Gateway
}

// NewGatewayRegistry creates an empty gateway registry
func NewGatewayRegistry() *GatewayRegistry {
	return &GatewayRegistry{gateways: make(map[Code]Gateway)}
}

// Register adds or replaces the gateway for a channel
func (r *GatewayRegistry) Register(g Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[g.Channel()] = g
}

// Get returns the gateway registered for a channel
func (r *GatewayRegistry) Get(code Code) (Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.gateways[code]
	if !ok {
		return nil, ErrGatewayNotFound
	}
	return g, nil
}

// Channels returns the codes of all registered gateways
func (r *GatewayRegistry) Channels() []Code {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]Code, 0, len(r.gateways))
	for c := range r.gateways {
		codes = append(codes, c)
	}
	return codes
}
