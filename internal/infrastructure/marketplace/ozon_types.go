package marketplace

// Ozon seller API wire types. Field names follow the documented API; prices
// arrive as strings and are parsed defensively.

// ozonPostingListRequest is the body of POST /v3/posting/fbs/list
type ozonPostingListRequest struct {
	Dir    string                 `json:"dir"`
	Filter ozonPostingListFilter  `json:"filter"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	With   ozonPostingListOptions `json:"with"`
}

type ozonPostingListFilter struct {
	Since  string `json:"since"`
	To     string `json:"to"`
	Status string `json:"status,omitempty"`
}

type ozonPostingListOptions struct {
	AnalyticsData bool `json:"analytics_data"`
	Barcodes      bool `json:"barcodes"`
}

// ozonPostingListResponse is the body of the fbs/list response
type ozonPostingListResponse struct {
	Result struct {
		Postings []OzonPosting `json:"postings"`
		HasNext  bool          `json:"has_next"`
	} `json:"result"`
}

// OzonPosting is one order-equivalent shipment in the seller API
type OzonPosting struct {
	PostingNumber string `json:"posting_number"`
	Status        string `json:"status"`
	InProcessAt   string `json:"in_process_at"`
	ShipmentDate  string `json:"shipment_date"`
	Products      []struct {
		OfferID  string `json:"offer_id"`
		SKU      int64  `json:"sku"`
		Name     string `json:"name"`
		Price    string `json:"price"`
		Quantity int    `json:"quantity"`
	} `json:"products"`
	Requirements struct {
		ProductsRequiringMandatoryMark []int64 `json:"products_requiring_mandatory_mark"`
	} `json:"requirements"`
	AnalyticsData struct {
		City   string `json:"city"`
		Region string `json:"region"`
	} `json:"analytics_data"`
	Customer struct {
		Name    string `json:"name"`
		Phone   string `json:"phone"`
		Address struct {
			City    string `json:"city"`
			ZipCode string `json:"zip_code"`
			Text    string `json:"address_tail"`
		} `json:"address"`
	} `json:"customer"`
}

// ozonShipRequest is the body of POST /v2/posting/fbs/ship
type ozonShipRequest struct {
	PostingNumber string        `json:"posting_number"`
	Packages      []ozonPackage `json:"packages"`
}

type ozonPackage struct {
	Products []ozonPackageProduct `json:"products"`
}

type ozonPackageProduct struct {
	ProductID int64    `json:"product_id,omitempty"`
	SKU       int64    `json:"sku,omitempty"`
	Quantity  int      `json:"quantity"`
	Exemplars []string `json:"mandatory_mark,omitempty"`
}

// ozonShipResponse carries the posting numbers of created shipments; the
// success predicate is a non-empty result array.
type ozonShipResponse struct {
	Result []string   `json:"result"`
	Error  *ozonError `json:"error,omitempty"`
	// Legacy error shape: code/message at the top level
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type ozonError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    []struct {
		Type string `json:"type"`
	} `json:"data,omitempty"`
}

// Expected remote error types that suppress notification: the order is in a
// state where shipping is a no-op, not a fault.
var ozonExpectedErrorTypes = map[string]struct{}{
	"HAS_INCORRECT_STATUS":      {},
	"POSTING_ALREADY_CANCELLED": {},
	"POSTING_ALREADY_SHIPPED":   {},
}

// ErrorType extracts the first typed error of a ship response
func (r *ozonShipResponse) ErrorType() string {
	if r == nil || r.Error == nil {
		return ""
	}
	if len(r.Error.Data) > 0 {
		return r.Error.Data[0].Type
	}
	return r.Error.Code
}

// ozonStockImportRequest is the body of POST /v1/product/import/stocks
type ozonStockImportRequest struct {
	Stocks []OzonStockItem `json:"stocks"`
}

// OzonStockItem is one stock record of a stock push
type OzonStockItem struct {
	OfferID     string `json:"offer_id"`
	Stock       int    `json:"stock"`
	WarehouseID int64  `json:"warehouse_id,omitempty"`
}

// ozonPriceImportRequest is the body of POST /v1/product/import/prices
type ozonPriceImportRequest struct {
	Prices []OzonPriceItem `json:"prices"`
}

// OzonPriceItem is one price record of a price push
type OzonPriceItem struct {
	OfferID  string `json:"offer_id"`
	Price    string `json:"price"`
	OldPrice string `json:"old_price,omitempty"`
}

// ozonImportResponse is the shared response of stock/price pushes
type ozonImportResponse struct {
	Result []struct {
		OfferID string `json:"offer_id"`
		Updated bool   `json:"updated"`
		Errors  []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"result"`
}
