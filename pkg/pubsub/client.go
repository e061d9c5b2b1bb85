package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/commission-engine/pkg/config"
	"github.com/angelmondragon/commission-engine/pkg/logger"
)

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errSubscriptionRequired = errors.New("deposits subscription is required")
	// ErrSubscriptionMissing means the subscription resource does not exist.
	ErrSubscriptionMissing = errors.New("pubsub subscription does not exist")
)

// Client owns the Pub/Sub connection for the deposit event subscription.
type Client struct {
	client       *pubsub.Client
	subscription string
	cfg          config.PubSubConfig
}

// NewClient dials Pub/Sub and fails fast when the deposits subscription is
// absent. PUBSUB_EMULATOR_HOST is honored by the underlying library.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	subscription := resourceName(project, cfg.DepositsSubscription)
	if subscription == "" {
		return nil, errSubscriptionRequired
	}

	raw, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: raw, subscription: subscription, cfg: cfg}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "subscription", subscription), "pubsub client initialized")
	}
	return c, nil
}

// DepositsSubscriber returns a subscriber with flow control applied.
func (c *Client) DepositsSubscriber() *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	sub := c.client.Subscriber(c.subscription)
	if c.cfg.MaxOutstanding > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = c.cfg.MaxOutstanding
	}
	if c.cfg.Goroutines > 0 {
		sub.ReceiveSettings.NumGoroutines = c.cfg.Goroutines
	}
	return sub
}

// Ping checks that the subscription still exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{
		Subscription: c.subscription,
	})
	switch {
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%w: %s", ErrSubscriptionMissing, c.subscription)
	case err != nil:
		return fmt.Errorf("checking subscription %s: %w", c.subscription, err)
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// resourceName expands a short subscription ID into its full resource path.
// Full paths pass through unchanged.
func resourceName(project, name string) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return ""
	case strings.HasPrefix(name, "projects/") && strings.Contains(name, "/subscriptions/"):
		return name
	case project == "":
		return ""
	}
	return "projects/" + project + "/subscriptions/" + name
}
