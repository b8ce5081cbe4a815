package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront-gateway/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	if got := topicResourceName("proj", "checkout-events"); got != "projects/proj/topics/checkout-events" {
		t.Fatalf("unexpected resource name %q", got)
	}
	full := "projects/other/topics/x"
	if got := topicResourceName("proj", full); got != full {
		t.Fatalf("expected full name kept, got %q", got)
	}
	if got := topicResourceName("", "x"); got != "" {
		t.Fatalf("expected empty name without project, got %q", got)
	}
	if got := topicResourceName("proj", " "); got != "" {
		t.Fatalf("expected empty name for blank topic, got %q", got)
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.GCPConfig{}, config.PubSubConfig{CheckoutTopic: "t"}, nil); err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.PubSubConfig{}, nil); err != errNoTopic {
		t.Fatalf("expected topic error, got %v", err)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Fatalf("nil close should be a noop, got %v", err)
	}
	if _, err := c.Publish(context.Background(), []byte("x"), nil, "co-1"); err == nil {
		t.Fatalf("expected publish on nil client to fail")
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping on nil client to fail")
	}
}
