// Package pubsub owns the Pub/Sub v2 client shared by the outbox publisher
// and the event workers. Each binary declares the topics or subscriptions it
// depends on; those are verified at startup and on every readiness probe.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/littlelight-store/backend/pkg/config"
	"github.com/littlelight-store/backend/pkg/logger"
)

var errNotConnected = errors.New("pubsub client not initialized")

// Resources lists what a binary needs to exist before it can run.
type Resources struct {
	Topics        []string
	Subscriptions []string
}

// ConsumerResources is what the event worker pulls from.
func ConsumerResources(cfg config.PubSubConfig) Resources {
	return Resources{Subscriptions: nonBlank(cfg.OrdersSubscription, cfg.NotificationSubscription)}
}

type Client struct {
	client  *pubsub.Client
	project string
	cfg     config.PubSubConfig
	needs   Resources
}

func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, needs Resources, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errors.New("gcp project id is required")
	}
	if len(needs.Topics)+len(needs.Subscriptions) == 0 {
		return nil, errors.New("no pubsub topics or subscriptions configured")
	}

	var opts []option.ClientOption
	if creds := strings.TrimSpace(gcp.CredentialsJSON); creds != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	}
	raw, err := pubsub.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{client: raw, project: project, cfg: cfg, needs: needs}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"topics":        needs.Topics,
		"subscriptions": needs.Subscriptions,
	}), "pubsub client initialized")
	return c, nil
}

// Ping checks every declared resource concurrently.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotConnected
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, topic := range c.needs.Topics {
		name := resourceName(c.project, "topics", topic)
		g.Go(func() error {
			_, err := c.client.TopicAdminClient.GetTopic(gctx, &pubsubpb.GetTopicRequest{Topic: name})
			return describe("topic", name, err)
		})
	}
	for _, sub := range c.needs.Subscriptions {
		name := resourceName(c.project, "subscriptions", sub)
		g.Go(func() error {
			_, err := c.client.SubscriptionAdminClient.GetSubscription(gctx, &pubsubpb.GetSubscriptionRequest{Subscription: name})
			return describe("subscription", name, err)
		})
	}
	return g.Wait()
}

func describe(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %s does not exist", kind, name)
	default:
		return fmt.Errorf("checking %s %s: %w", kind, name, err)
	}
}

func (c *Client) Subscriber(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil || strings.TrimSpace(name) == "" {
		return nil
	}
	return c.client.Subscriber(resourceName(c.project, "subscriptions", name))
}

func (c *Client) OrdersSubscription() *pubsub.Subscriber {
	return c.Subscriber(c.cfg.OrdersSubscription)
}

func (c *Client) NotificationSubscription() *pubsub.Subscriber {
	return c.Subscriber(c.cfg.NotificationSubscription)
}

// Publisher returns a handle for topic. Callers own it and must Stop it.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.client == nil || strings.TrimSpace(topic) == "" {
		return nil
	}
	return c.client.Publisher(resourceName(c.project, "topics", topic))
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// resourceName expands a bare ID to projects/<project>/<kind>/<id>. Fully
// qualified names pass through, including ones in another project.
func resourceName(project, kind, name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	return "projects/" + project + "/" + kind + "/" + name
}

func nonBlank(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
