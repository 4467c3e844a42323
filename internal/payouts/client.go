package payouts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TransferRequest describes a funds transfer to a referrer's connected
// payout account. SourceEventID and ReferredAccountID travel as metadata so
// the provider-side record links back to the qualifying payment.
type TransferRequest struct {
	DestinationAccountID string `json:"destination"`
	AmountCents          int64  `json:"amount"`
	SourceEventID        string `json:"-"`
	ReferredAccountID    string `json:"-"`
}

// TransferClient is the payment provider's transfer API.
type TransferClient interface {
	Transfer(ctx context.Context, req TransferRequest) (transferID string, err error)
}

// Client is the HTTP implementation of TransferClient. It is constructed
// once in main and injected; there is no package-level singleton.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type transferPayload struct {
	Destination string            `json:"destination"`
	Amount      int64             `json:"amount"`
	Metadata    map[string]string `json:"metadata"`
}

type transferResponse struct {
	ID string `json:"id"`
}

// Transfer POSTs a transfer to the provider. Any non-2xx response or network
// failure is an error; the caller converts failures into accruals.
func (c *Client) Transfer(ctx context.Context, req TransferRequest) (string, error) {
	payload := transferPayload{
		Destination: req.DestinationAccountID,
		Amount:      req.AmountCents,
		Metadata: map[string]string{
			"source_event_id":     req.SourceEventID,
			"referred_account_id": req.ReferredAccountID,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("transfer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("provider rejected transfer: status %d", resp.StatusCode)
	}
	var out transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode transfer response: %w", err)
	}
	return out.ID, nil
}
