package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AlertKind string

const (
	AlertKindPermanentDispatchFailure AlertKind = "permanent-dispatch-failure"
	AlertKindStuckSettlement          AlertKind = "stuck-settlement"
	AlertKindUnmatchedSource          AlertKind = "unmatched-source"
	AlertKindUnmatchedTarget          AlertKind = "unmatched-target"
)

// Alert is the structured payload handed to the alert sink whenever the
// engine gives up on automatic handling and needs a human.
type Alert struct {
	Kind     AlertKind       `json:"kind"`
	SourceID string          `json:"sourceId,omitempty"`
	TargetID string          `json:"targetId,omitempty"`
	Address  string          `json:"address,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	Elapsed  time.Duration   `json:"elapsed,omitempty"`
	Detail   string          `json:"detail,omitempty"`
}
