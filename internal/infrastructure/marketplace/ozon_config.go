package marketplace

import "errors"

// OzonConfig holds configuration for the Ozon seller API integration
type OzonConfig struct {
	// ClientID is the seller client id sent in the Client-Id header
	ClientID string
	// APIKey is the seller API key sent in the Api-Key header
	APIKey string
	// APIBaseURL is the base URL for the seller API
	APIBaseURL string
	// WarehouseID identifies the fulfillment warehouse for stock pushes
	WarehouseID int64
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// PollWindow is the lookback interval of one order poll, in hours
	PollWindowHours int
}

// OzonProductionAPIURL is the production seller API endpoint
const OzonProductionAPIURL = "https://api-seller.ozon.ru"

// Errors for Ozon configuration
var (
	ErrOzonConfigMissingClientID = errors.New("ozon: client id is required")
	ErrOzonConfigMissingAPIKey   = errors.New("ozon: api key is required")
)

// Validate validates the Ozon configuration and fills defaults
func (c *OzonConfig) Validate() error {
	if c.ClientID == "" {
		return ErrOzonConfigMissingClientID
	}
	if c.APIKey == "" {
		return ErrOzonConfigMissingAPIKey
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = OzonProductionAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 15
	}
	if c.PollWindowHours <= 0 {
		c.PollWindowHours = 24
	}
	return nil
}
