package marketplace

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/markethub/backend/internal/domain/channel"
)

// multibonusStatusCodes maps internal store statuses to the partner API's
// numeric status dictionary.
var multibonusStatusCodes = map[channel.StoreStatus]int{
	channel.StatusCancelled:    20,
	channel.StatusAccepted:     30,
	channel.StatusShipped:      40,
	channel.StatusFinished:     50,
	channel.StatusNotDelivered: 60,
}

// MultibonusClient talks to the Multibonus partner API over mutual TLS:
// status notifications and return claims.
type MultibonusClient struct {
	config     *MultibonusConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// Interface assertion
var _ channel.Gateway = (*MultibonusClient)(nil)

// NewMultibonusClient creates a Multibonus partner API client with the
// client certificate loaded for mutual TLS.
func NewMultibonusClient(config *MultibonusConfig, logger *zap.Logger) (*MultibonusClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	cert, err := tls.LoadX509KeyPair(config.ClientCertPath, config.ClientKeyPath)
	if err != nil {
		return nil, fmt.Errorf("multibonus: load client certificate: %w", err)
	}

	return &MultibonusClient{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					Certificates: []tls.Certificate{cert},
					MinVersion:   tls.VersionTLS12,
				},
			},
		},
		logger: logger,
	}, nil
}

// Channel returns the channel code this client serves
func (c *MultibonusClient) Channel() channel.Code {
	return channel.CodeMultibonus
}

// ConfirmOrder is not part of the Multibonus protocol: commits are answered
// synchronously inside the inbound XML exchange.
func (c *MultibonusClient) ConfirmOrder(ctx context.Context, externalOrderID string, items []channel.ReconcileItem) error {
	return channel.ErrUnsupportedCall
}

// RejectOrder is not part of the Multibonus protocol.
func (c *MultibonusClient) RejectOrder(ctx context.Context, externalOrderID string, items []channel.ReconcileItem) error {
	return channel.ErrUnsupportedCall
}

// ShipOrder maps to a shipped-status notification.
func (c *MultibonusClient) ShipOrder(ctx context.Context, externalOrderID string, notice channel.ShipmentNotice) error {
	return c.NotifyStatus(ctx, externalOrderID, channel.StatusShipped)
}

// NotifyStatus reports an internal status transition. Statuses outside the
// partner's dictionary are silently skipped.
func (c *MultibonusClient) NotifyStatus(ctx context.Context, externalOrderID string, status channel.StoreStatus) error {
	code, tracked := multibonusStatusCodes[status]
	if !tracked {
		return nil
	}

	msg := multibonusNotifyStatusMessage{
		XMLNS:      MultibonusXMLNamespace,
		OrderID:    externalOrderID,
		StatusCode: code,
	}
	var result multibonusNotifyStatusResult
	if err := c.doRequest(ctx, c.config.NotifyURL, msg, &result); err != nil {
		return fmt.Errorf("multibonus: notify status: %w", err)
	}
	if result.ResultCode != 0 {
		return fmt.Errorf("multibonus: notify status rejected with code %d: %s", result.ResultCode, result.Reason)
	}
	return nil
}

// ReturnClaim files a return claim for an order.
func (c *MultibonusClient) ReturnClaim(ctx context.Context, externalOrderID, reason string) error {
	msg := multibonusReturnClaimMessage{
		XMLNS:   MultibonusXMLNamespace,
		OrderID: externalOrderID,
		Reason:  reason,
	}
	var result multibonusReturnClaimResult
	if err := c.doRequest(ctx, c.config.ReturnURL, msg, &result); err != nil {
		return fmt.Errorf("multibonus: return claim: %w", err)
	}
	if result.ResultCode != 0 {
		return fmt.Errorf("multibonus: return claim rejected with code %d: %s", result.ResultCode, result.Reason)
	}
	return nil
}

// doRequest performs one XML POST against the partner API
func (c *MultibonusClient) doRequest(ctx context.Context, url string, body, out interface{}) error {
	payload, err := xml.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	payload = append([]byte(xml.Header), payload...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("partner api returned status %d: %s", resp.StatusCode, string(raw))
	}
	if err := xml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
