package deposits

import (
	"github.com/angelmondragon/commission-engine/internal/commission"
	"github.com/angelmondragon/commission-engine/pkg/db/models"
)

// EventFromModel builds the engine input for a stored deposit.
func EventFromModel(d models.Deposit) commission.DepositEvent {
	event := commission.DepositEvent{
		DepositID:   d.ID,
		DepositorID: d.UserID,
		Amount:      d.Amount,
	}
	if d.ConfirmedAt != nil {
		event.ConfirmedAt = d.ConfirmedAt.UTC()
	}
	return event
}
