package events

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Envelope is the stable wrapper every published event carries.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

// DepositConfirmed is the data of a deposit.confirmed event.
type DepositConfirmed struct {
	DepositID   int64           `json:"depositId" validate:"required,gt=0"`
	DepositorID int64           `json:"depositorId" validate:"required,gt=0"`
	Amount      decimal.Decimal `json:"amount"`
	ConfirmedAt time.Time       `json:"confirmedAt" validate:"required"`
}
