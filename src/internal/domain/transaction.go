package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceTransaction is one record from the capture-system feed. Amount is in
// minor units (cents). An empty CounterpartyAddress means no payout was
// expected for this capture.
type SourceTransaction struct {
	ID                  string    `json:"id"`
	Amount              int64     `json:"amount"`
	CounterpartyAddress string    `json:"counterpartyAddress,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

func (t SourceTransaction) AmountMajor() decimal.Decimal {
	return decimal.New(t.Amount, -2)
}

// TargetTransaction is one record from the payout-system feed.
type TargetTransaction struct {
	ID                 string          `json:"id"`
	DestinationAddress string          `json:"destinationAddress"`
	Amount             decimal.Decimal `json:"amount"`
	CreatedAt          time.Time       `json:"createdAt"`
}

type MatchedPair struct {
	SourceID            string          `json:"sourceId"`
	TargetID            string          `json:"targetId"`
	SourceAmount        decimal.Decimal `json:"sourceAmount"`
	TargetAmount        decimal.Decimal `json:"targetAmount"`
	PlatformFee         decimal.Decimal `json:"platformFee"`
	CounterpartyAddress string          `json:"counterpartyAddress"`
	Timestamp           time.Time       `json:"timestamp"`
}

type UnmatchedSource struct {
	SourceID            string          `json:"sourceId"`
	Amount              decimal.Decimal `json:"amount"`
	CounterpartyAddress string          `json:"counterpartyAddress"`
	Reason              string          `json:"reason"`
}

type UnmatchedTarget struct {
	TargetID           string          `json:"targetId"`
	Amount             decimal.Decimal `json:"amount"`
	DestinationAddress string          `json:"destinationAddress"`
	Reason             string          `json:"reason"`
}

// MatchResult partitions one reconciliation run into matched pairs and the
// records on either side that could not be paired. It is never persisted
// directly; the caller writes matched pairs to the ledger.
type MatchResult struct {
	Matched         []MatchedPair     `json:"matched"`
	UnmatchedSource []UnmatchedSource `json:"unmatchedSource"`
	UnmatchedTarget []UnmatchedTarget `json:"unmatchedTarget"`
}
