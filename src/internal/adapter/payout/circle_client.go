package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/domain"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const batchDispatchConcurrency = 4

// CircleClient is a thin adapter over a Circle-style payout API. Its
// CreatePayout method satisfies the engine's dispatch port; the engine never
// sees this transport.
type CircleClient struct {
	baseURL    string
	apiKey     string
	chain      string
	httpClient *http.Client
}

func NewCircleClient(baseURL, apiKey, chain string) *CircleClient {
	if chain == "" {
		chain = "ARB"
	}

	return &CircleClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		chain:   chain,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type payoutDestination struct {
	Type    string `json:"type"`
	Address string `json:"address"`
	Chain   string `json:"chain"`
}

type payoutAmount struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type createPayoutRequest struct {
	IdempotencyKey string            `json:"idempotencyKey"`
	Destination    payoutDestination `json:"destination"`
	Amount         payoutAmount      `json:"amount"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

type payoutResponse struct {
	Data struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		Destination struct {
			Address string `json:"address"`
		} `json:"destination"`
		Amount     payoutAmount `json:"amount"`
		CreateDate time.Time    `json:"createDate"`
	} `json:"data"`
}

type listPayoutsResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Destination struct {
			Address string `json:"address"`
		} `json:"destination"`
		Amount     payoutAmount `json:"amount"`
		CreateDate time.Time    `json:"createDate"`
	} `json:"data"`
}

// CreatePayout sends one payout. Each call carries a fresh idempotency key;
// retried calls for the same settlement are distinct payout attempts as far
// as the API is concerned, so at-most-once is the retry queue's guarantee,
// not this client's.
func (c *CircleClient) CreatePayout(ctx context.Context, req domain.DispatchRequest) error {
	chain := req.Chain
	if chain == "" {
		chain = c.chain
	}

	body := createPayoutRequest{
		IdempotencyKey: uuid.NewString(),
		Destination: payoutDestination{
			Type:    "blockchain",
			Address: req.DestinationAddress,
			Chain:   chain,
		},
		Amount: payoutAmount{
			Amount:   req.Amount.StringFixed(2),
			Currency: "USD",
		},
		Metadata: map[string]string{
			"source":   "stripe-hybrid-integration",
			"sourceId": req.SourceID,
		},
	}

	var resp payoutResponse
	if err := c.do(ctx, http.MethodPost, "/v1/payouts", body, &resp); err != nil {
		logger.Error("circle client create payout failed", err, logger.Fields{
			"sourceId": req.SourceID,
			"address":  req.DestinationAddress,
		})
		return err
	}

	logger.Info("circle client payout created", logger.Fields{
		"sourceId": req.SourceID,
		"payoutId": resp.Data.ID,
		"status":   resp.Data.Status,
	})

	return nil
}

// DispatchBatch sends a batch of payouts with bounded concurrency and
// returns the first error, if any. Used by the batch payroll path, not by
// the retry queue.
func (c *CircleClient) DispatchBatch(ctx context.Context, requests []domain.DispatchRequest) error {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(batchDispatchConcurrency)

	for _, req := range requests {
		req := req
		group.Go(func() error {
			return c.CreatePayout(ctx, req)
		})
	}

	return group.Wait()
}

func (c *CircleClient) GetPayoutStatus(ctx context.Context, payoutID string) (string, error) {
	var resp payoutResponse
	if err := c.do(ctx, http.MethodGet, "/v1/payouts/"+url.PathEscape(payoutID), nil, &resp); err != nil {
		return "", err
	}
	return resp.Data.Status, nil
}

// ListPayouts returns the payout-system feed for a reconciliation window.
func (c *CircleClient) ListPayouts(ctx context.Context, from, to time.Time) ([]domain.TargetTransaction, error) {
	path := fmt.Sprintf("/v1/payouts?from=%s&to=%s",
		url.QueryEscape(from.UTC().Format(time.RFC3339)),
		url.QueryEscape(to.UTC().Format(time.RFC3339)),
	)

	var resp listPayoutsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	transactions := make([]domain.TargetTransaction, 0, len(resp.Data))
	for _, payout := range resp.Data {
		amount, err := decimal.NewFromString(payout.Amount.Amount)
		if err != nil {
			return nil, fmt.Errorf("parse payout amount for %q: %w", payout.ID, err)
		}
		transactions = append(transactions, domain.TargetTransaction{
			ID:                 payout.ID,
			DestinationAddress: payout.Destination.Address,
			Amount:             amount,
			CreatedAt:          payout.CreateDate,
		})
	}

	return transactions, nil
}

func (c *CircleClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("call payout api: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(response.Body, 2048))
		return fmt.Errorf("payout api returned %d: %s", response.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("decode payout api response: %w", err)
	}

	return nil
}
