package marketplace

import "encoding/xml"

// Multibonus partner API wire types. The partner pushes XML documents; the
// engine answers with XML result documents and notifies status transitions
// through its own XML calls.

// MultibonusXMLNamespace is the document namespace of every partner message.
const MultibonusXMLNamespace = "http://tempuri.org/XMLSchema.xsd"

// MultibonusCheckOrderMessage is the inbound pre-commit check request
type MultibonusCheckOrderMessage struct {
	XMLName xml.Name        `xml:"CheckOrderMessage"`
	Order   MultibonusOrder `xml:"Order"`
}

// MultibonusCommitOrderMessage is the inbound commit request
type MultibonusCommitOrderMessage struct {
	XMLName xml.Name        `xml:"CommitOrderMessage"`
	Order   MultibonusOrder `xml:"Order"`
}

// MultibonusDeliveryVariantsMessage is the inbound delivery check request
type MultibonusDeliveryVariantsMessage struct {
	XMLName  xml.Name            `xml:"GetDeliveryVariantsMessage"`
	Location MultibonusLocation  `xml:"Location"`
	Items    []MultibonusWireItem `xml:"Items>Item"`
}

// MultibonusOrder is the order block shared by check and commit messages
type MultibonusOrder struct {
	OrderID      string               `xml:"OrderId"`
	CreateDate   string               `xml:"CreateDate"`
	TotalCost    string               `xml:"TotalCost"`
	DeliveryCost string               `xml:"DeliveryCost"`
	ClientInfo   MultibonusClientInfo `xml:"ClientInfo"`
	Location     MultibonusLocation   `xml:"Location"`
	Items        []MultibonusWireItem `xml:"Items>Item"`
}

// MultibonusClientInfo is the inbound buyer block
type MultibonusClientInfo struct {
	Fio   string `xml:"Fio"`
	Phone string `xml:"Phone"`
	Email string `xml:"Email"`
}

// MultibonusLocation is the inbound destination block
type MultibonusLocation struct {
	City      string `xml:"City"`
	Region    string `xml:"Region"`
	PostCode  string `xml:"PostCode"`
	KladrCode string `xml:"KladrCode"`
	Address   string `xml:"Address"`
}

// MultibonusWireItem is one inbound line item; Price and Amount are parsed
// defensively downstream.
type MultibonusWireItem struct {
	ExternalItemID string `xml:"ExternalItemId"`
	Name           string `xml:"Name"`
	Price          string `xml:"Price"`
	Amount         string `xml:"Amount"`
}

// MultibonusCheckOrderResult answers a CheckOrderMessage
type MultibonusCheckOrderResult struct {
	XMLName xml.Name `xml:"CheckOrderResult"`
	XMLNS   string   `xml:"xmlns,attr"`
	Checked int      `xml:"Checked"`
	Reason  string   `xml:"Reason,omitempty"`
}

// NewMultibonusCheckOrderResult builds a namespaced check result
func NewMultibonusCheckOrderResult(checked bool, reason string) MultibonusCheckOrderResult {
	result := MultibonusCheckOrderResult{XMLNS: MultibonusXMLNamespace, Reason: reason}
	if checked {
		result.Checked = 1
	}
	return result
}

// MultibonusCommitOrderResult answers a CommitOrderMessage
type MultibonusCommitOrderResult struct {
	XMLName         xml.Name `xml:"CommitOrderResult"`
	XMLNS           string   `xml:"xmlns,attr"`
	Confirmed       int      `xml:"Confirmed"`
	InternalOrderID int64    `xml:"InternalOrderId,omitempty"`
	Reason          string   `xml:"Reason,omitempty"`
}

// NewMultibonusCommitOrderResult builds a namespaced commit result
func NewMultibonusCommitOrderResult(orderID int64, reason string) MultibonusCommitOrderResult {
	result := MultibonusCommitOrderResult{XMLNS: MultibonusXMLNamespace, InternalOrderID: orderID, Reason: reason}
	if orderID > 0 {
		result.Confirmed = 1
	}
	return result
}

// MultibonusDeliveryVariantsResult answers a GetDeliveryVariantsMessage
type MultibonusDeliveryVariantsResult struct {
	XMLName    xml.Name                  `xml:"GetDeliveryVariantsResult"`
	XMLNS      string                    `xml:"xmlns,attr"`
	ResultCode int                       `xml:"ResultCode"`
	Reason     string                    `xml:"Reason,omitempty"`
	Location   *MultibonusResultLocation `xml:"Location,omitempty"`
	Groups     []MultibonusDeliveryGroup `xml:"DeliveryGroups>DeliveryGroup,omitempty"`
}

type MultibonusResultLocation struct {
	LocationName string `xml:"LocationName"`
	PostCode     string `xml:"PostCode"`
}

type MultibonusDeliveryGroup struct {
	GroupName string                      `xml:"GroupName"`
	Variants  []MultibonusDeliveryVariant `xml:"DeliveryVariants>DeliveryVariant"`
}

type MultibonusDeliveryVariant struct {
	Name         string `xml:"DeliveryVariantName"`
	ExternalID   int64  `xml:"ExternalDeliveryVariantId"`
	Description  string `xml:"Description"`
	ItemsCost    int64  `xml:"ItemsCost"`
	DeliveryCost int64  `xml:"DeliveryCost"`
	TotalCost    int64  `xml:"TotalCost"`
}

// multibonusNotifyStatusMessage is the outbound status notification
type multibonusNotifyStatusMessage struct {
	XMLName    xml.Name `xml:"NotifyOrderStatusMessage"`
	XMLNS      string   `xml:"xmlns,attr"`
	OrderID    string   `xml:"OrderId"`
	StatusCode int      `xml:"StatusCode"`
}

// multibonusNotifyStatusResult is the partner's answer; ResultCode zero is
// the success predicate.
type multibonusNotifyStatusResult struct {
	XMLName    xml.Name `xml:"NotifyOrderStatusResult"`
	ResultCode int      `xml:"ResultCode"`
	Reason     string   `xml:"Reason"`
}

// multibonusReturnClaimMessage is the outbound return claim
type multibonusReturnClaimMessage struct {
	XMLName xml.Name             `xml:"ReturnClaimMessage"`
	XMLNS   string               `xml:"xmlns,attr"`
	OrderID string               `xml:"OrderId"`
	Reason  string               `xml:"Reason"`
	Items   []MultibonusWireItem `xml:"Items>Item,omitempty"`
}

type multibonusReturnClaimResult struct {
	XMLName    xml.Name `xml:"ReturnClaimResult"`
	ResultCode int      `xml:"ResultCode"`
	Reason     string   `xml:"Reason"`
}
