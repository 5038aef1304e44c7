package marketplace

import "errors"

// MegaMarketConfig holds configuration for the MegaMarket merchant API
type MegaMarketConfig struct {
	// Token is the merchant API token, sent in every request body and
	// expected on every inbound webhook
	Token string
	// MerchantCode prefixes the box codes assigned during packing
	MerchantCode string
	// APIBaseURL is the base URL of the merchant order service
	APIBaseURL string
	// WarehouseEmail receives the sticker sheets after packing
	WarehouseEmail string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// MegaMarketProductionAPIURL is the production merchant API endpoint
const MegaMarketProductionAPIURL = "https://partner.sbermegamarket.ru/api/market/v1/orderService"

// Errors for MegaMarket configuration
var (
	ErrMegaMarketConfigMissingToken        = errors.New("megamarket: token is required")
	ErrMegaMarketConfigMissingMerchantCode = errors.New("megamarket: merchant code is required")
)

// Validate validates the MegaMarket configuration and fills defaults
func (c *MegaMarketConfig) Validate() error {
	if c.Token == "" {
		return ErrMegaMarketConfigMissingToken
	}
	if c.MerchantCode == "" {
		return ErrMegaMarketConfigMissingMerchantCode
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = MegaMarketProductionAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 15
	}
	return nil
}
