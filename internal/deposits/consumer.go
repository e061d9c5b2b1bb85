package deposits

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/angelmondragon/commission-engine/internal/commission"
	"github.com/angelmondragon/commission-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/commission-engine/pkg/errors"
	"github.com/angelmondragon/commission-engine/pkg/events"
	"github.com/angelmondragon/commission-engine/pkg/logger"
)

const consumerName = "deposit-distributor"

const defaultDistributeTimeout = 15 * time.Second

// Distributor runs the commission engine.
type Distributor interface {
	Distribute(ctx context.Context, event commission.DepositEvent) (*commission.Result, error)
	Lookup(ctx context.Context, depositID int64) (*commission.Result, error)
}

type idempotencyChecker interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Action tells the subscriber loop what to do with a message.
type Action int

const (
	ActionAck Action = iota
	ActionNack
)

// ConsumerParams wires a Consumer.
type ConsumerParams struct {
	Engine       Distributor
	Subscription *pubsub.Subscriber
	Idempotency  idempotencyChecker
	Timeout      time.Duration
	Logger       *logger.Logger
}

// Consumer turns deposit.confirmed events into distribution runs.
type Consumer struct {
	engine       Distributor
	subscription *pubsub.Subscriber
	manager      idempotencyChecker
	validate     *validator.Validate
	timeout      time.Duration
	logg         *logger.Logger
}

// NewConsumer builds a deposit consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Engine == nil {
		return nil, fmt.Errorf("commission engine required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultDistributeTimeout
	}
	return &Consumer{
		engine:       params.Engine,
		subscription: params.Subscription,
		manager:      params.Idempotency,
		validate:     validator.New(),
		timeout:      timeout,
		logg:         params.Logger,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.subscription == nil {
		return fmt.Errorf("deposits subscription required")
	}
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		logCtx := c.logg.WithField(ctx, "message_id", msg.ID)
		if c.Handle(logCtx, msg.Attributes["event_type"], msg.Data) == ActionNack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Handle processes one message body. Malformed and non-retryable messages are
// acked after logging; transient failures are nacked for redelivery. A
// redelivered event is acked only once its distribution set exists.
func (c *Consumer) Handle(ctx context.Context, eventType string, data []byte) Action {
	logCtx := c.logg.WithField(ctx, "event_type", eventType)
	if eventType != string(enums.EventDepositConfirmed) {
		c.logg.Debug(logCtx, "skipping non-deposit event")
		return ActionAck
	}

	var envelope events.Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return ActionAck
	}
	logCtx = c.logg.WithField(logCtx, "event_id", envelope.EventID)

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return ActionAck
	}

	payload, err := c.decodePayload(envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "invalid deposit payload", err)
		return ActionAck
	}
	logCtx = c.logg.WithDepositID(logCtx, payload.DepositID)

	claimed, err := c.manager.Claim(ctx, consumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return ActionNack
	}
	if !claimed {
		// a stale key whose release failed must not swallow the deposit
		_, lookupErr := c.engine.Lookup(ctx, payload.DepositID)
		switch {
		case lookupErr == nil:
			c.logg.Info(logCtx, "event already processed")
			return ActionAck
		case !errors.Is(lookupErr, commission.ErrNotDistributed):
			c.logg.Error(logCtx, "distribution lookup failed", lookupErr)
			return ActionNack
		}
		c.logg.Warn(logCtx, "event claimed but deposit not distributed")
	}

	runCtx, cancel := context.WithTimeout(logCtx, c.timeout)
	defer cancel()

	_, err = c.engine.Distribute(runCtx, commission.DepositEvent{
		DepositID:   payload.DepositID,
		DepositorID: payload.DepositorID,
		Amount:      payload.Amount,
		ConfirmedAt: payload.ConfirmedAt.UTC(),
	})
	if err == nil {
		return ActionAck
	}

	if errors.Is(err, commission.ErrConcurrentDistribution) {
		if _, lookupErr := c.engine.Lookup(ctx, payload.DepositID); lookupErr == nil {
			c.logg.Info(logCtx, "deposit distributed by a concurrent run")
			return ActionAck
		}
	}

	if releaseErr := c.manager.Release(ctx, consumerName, eventID); releaseErr != nil {
		c.logg.Error(logCtx, "failed to release idempotency key", releaseErr)
	}
	apiErr := pkgerrors.As(commission.AsAPIError(err))
	if apiErr.Retryable() || errors.Is(err, commission.ErrConcurrentDistribution) {
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "distribution failed; will retry")
		return ActionNack
	}
	c.logg.Error(c.logg.WithFields(logCtx, pkgerrors.Dump(err).Fields()), "distribution rejected; needs manual investigation", err)
	return ActionAck
}

func (c *Consumer) decodePayload(raw json.RawMessage) (*events.DepositConfirmed, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("event data missing")
	}
	var payload events.DepositConfirmed
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if err := c.validate.Struct(payload); err != nil {
		return nil, err
	}
	if payload.Amount.IsNegative() {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return &payload, nil
}
