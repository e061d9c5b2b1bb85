package enums

// EventType identifies domain events arriving over Pub/Sub.
type EventType string

const (
	EventDepositConfirmed EventType = "deposit.confirmed"
)
