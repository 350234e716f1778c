package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DispatchRequest is the payload handed to the payout dispatch port.
type DispatchRequest struct {
	SourceID           string          `json:"sourceId"`
	DestinationAddress string          `json:"destinationAddress"`
	Amount             decimal.Decimal `json:"amount"`
	Chain              string          `json:"chain,omitempty"`
}

type RetryItem struct {
	Payload        DispatchRequest
	RetryCount     int
	FirstAttemptAt time.Time
	NextRetryAt    time.Time
}
