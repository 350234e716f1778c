package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/domain"
)

// JournalClient posts ledger entries to the external accounting bridge as
// journal entries. It implements the journal-entry port; the receiving
// system owns the actual ERP formatting.
type JournalClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewJournalClient(endpoint, apiKey string) *JournalClient {
	return &JournalClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type journalEntry struct {
	SourceID    string `json:"sourceId"`
	TargetID    string `json:"targetId,omitempty"`
	Amount      string `json:"amount"`
	Status      string `json:"status"`
	Description string `json:"description"`
	PostedAt    string `json:"postedAt"`
}

func (c *JournalClient) PostJournalEntry(ctx context.Context, entry domain.LedgerEntry) error {
	payload := journalEntry{
		SourceID:    entry.SourceID,
		Amount:      entry.Amount.StringFixed(2),
		Status:      string(entry.Status),
		Description: "Hybrid settlement: capture " + entry.SourceID,
		PostedAt:    entry.Timestamp.UTC().Format(time.RFC3339),
	}
	if entry.TargetID != nil {
		payload.TargetID = *entry.TargetID
		payload.Description += " | payout " + *entry.TargetID
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode journal entry: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build journal request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("post journal entry: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(response.Body, 2048))
		return fmt.Errorf("journal bridge returned %d: %s", response.StatusCode, strings.TrimSpace(string(detail)))
	}

	return nil
}
