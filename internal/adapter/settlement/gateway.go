// Package settlement releases withdrawn value to the account holder through
// an external settlement endpoint. The vault service treats a release
// failure as fatal for the withdrawal: the surrounding transaction is
// rolled back and nothing is debited.
package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPGateway implements ports.TransferGateway against an HTTP settlement
// endpoint. A release order is a POST; anything other than a 2xx response
// counts as a failed release.
type HTTPGateway struct {
	endpoint   string
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewHTTPGateway creates a gateway posting release orders to endpoint.
func NewHTTPGateway(endpoint string, httpClient HTTPClient, log zerolog.Logger) *HTTPGateway {
	return &HTTPGateway{
		endpoint:   endpoint,
		httpClient: httpClient,
		log:        log,
	}
}

type releaseOrder struct {
	AccountID   string `json:"account_id"`
	Amount      int64  `json:"amount"`
	RequestedAt string `json:"requested_at"`
}

// Release posts a release order for amount to the settlement endpoint.
func (g *HTTPGateway) Release(ctx context.Context, accountID uuid.UUID, amount int64) error {
	order := releaseOrder{
		AccountID:   accountID.String(),
		Amount:      amount,
		RequestedAt: time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal release order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build release request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.log.Error().Err(err).
			Str("account_id", order.AccountID).
			Int64("amount", amount).
			Msg("settlement release failed")
		return fmt.Errorf("post release order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.log.Error().
			Int("status", resp.StatusCode).
			Str("account_id", order.AccountID).
			Int64("amount", amount).
			Msg("settlement release rejected")
		return fmt.Errorf("release order rejected: status %d", resp.StatusCode)
	}

	return nil
}

// NoopGateway implements ports.TransferGateway for deployments without a
// settlement endpoint. Every release succeeds immediately.
type NoopGateway struct{}

// NewNoopGateway creates a gateway that accepts all releases.
func NewNoopGateway() *NoopGateway {
	return &NoopGateway{}
}

// Release always succeeds.
func (g *NoopGateway) Release(ctx context.Context, accountID uuid.UUID, amount int64) error {
	return nil
}
