package marketplace

import "errors"

// MultibonusConfig holds configuration for the Multibonus partner API. All
// outbound calls authenticate with a mutual-TLS client certificate.
type MultibonusConfig struct {
	// NotifyURL receives order status notifications
	NotifyURL string
	// ReturnURL receives return claims
	ReturnURL string
	// ClientCertPath is the PEM client certificate for mutual TLS
	ClientCertPath string
	// ClientKeyPath is the PEM client key for mutual TLS
	ClientKeyPath string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// DeliveryCost is the fixed courier delivery cost quoted by the
	// delivery check
	DeliveryCost int64
	// DefaultPostalCode answers delivery checks with no postcode
	DefaultPostalCode string
}

// Production partner API endpoints
const (
	MultibonusNotifyURL = "https://partner-api.multibonus.ru:544/NotifyOrderStatus.ashx"
	MultibonusReturnURL = "https://partner-api.multibonus.ru:544/ReturnClaim.ashx"
)

// Errors for Multibonus configuration
var (
	ErrMultibonusConfigMissingCert = errors.New("multibonus: client certificate path is required")
	ErrMultibonusConfigMissingKey  = errors.New("multibonus: client key path is required")
)

// Validate validates the Multibonus configuration and fills defaults
func (c *MultibonusConfig) Validate() error {
	if c.ClientCertPath == "" {
		return ErrMultibonusConfigMissingCert
	}
	if c.ClientKeyPath == "" {
		return ErrMultibonusConfigMissingKey
	}
	if c.NotifyURL == "" {
		c.NotifyURL = MultibonusNotifyURL
	}
	if c.ReturnURL == "" {
		c.ReturnURL = MultibonusReturnURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
	if c.DeliveryCost <= 0 {
		c.DeliveryCost = 500
	}
	if c.DefaultPostalCode == "" {
		c.DefaultPostalCode = "190000"
	}
	return nil
}
