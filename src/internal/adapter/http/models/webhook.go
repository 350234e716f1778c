package models

import (
	"errors"
	"strings"
	"time"

	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/domain"
)

const EventTypeCaptureSucceeded = "payment_intent.succeeded"

// CaptureEvent mirrors the capture system's webhook envelope. Only the
// fields the settlement path needs are decoded.
type CaptureEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object CapturePayload `json:"object"`
	} `json:"data"`
}

type CapturePayload struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Created  int64             `json:"created"`
	Metadata map[string]string `json:"metadata"`
}

func (e CaptureEvent) Validate() error {
	var errs []string

	if strings.TrimSpace(e.Type) == "" {
		errs = append(errs, "type is required")
	}
	if strings.TrimSpace(e.Data.Object.ID) == "" {
		errs = append(errs, "data.object.id is required")
	}
	if e.Data.Object.Amount <= 0 {
		errs = append(errs, "data.object.amount must be greater than zero")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// ToSourceTransaction maps the webhook payload onto the capture feed record
// the engine understands. The counterparty address rides in metadata; its
// absence means no payout is expected.
func (e CaptureEvent) ToSourceTransaction() domain.SourceTransaction {
	createdAt := time.Unix(e.Data.Object.Created, 0).UTC()
	if e.Data.Object.Created == 0 {
		createdAt = time.Now().UTC()
	}

	return domain.SourceTransaction{
		ID:                  e.Data.Object.ID,
		Amount:              e.Data.Object.Amount,
		CounterpartyAddress: strings.TrimSpace(e.Data.Object.Metadata["vendor_wallet_address"]),
		CreatedAt:           createdAt,
	}
}

type WebhookAck struct {
	Received bool `json:"received"`
}
