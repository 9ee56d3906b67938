package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/guanago/guanago/pkg/logger"
)

// DefaultTimeout bounds a single webhook delivery.
const DefaultTimeout = 5 * time.Second

// Event names delivered to the automation platform.
const (
	EventAdminLogin     = "admin_login"
	EventCatalogRefresh = "catalog_refresh"
	EventTrace          = "trace"
)

// Config maps event names onto webhook URLs. Unmapped events are dropped
// silently, which lets deployments enable only the automations they use.
type Config struct {
	URLs    map[string]string
	Timeout time.Duration
}

// Notifier posts JSON events to Make.com scenario webhooks. Deliveries are
// fire-and-forget: failures are logged and absorbed, never propagated, since
// the automations are side effects and must not disturb request handling.
type Notifier struct {
	urls    map[string]string
	client  *http.Client
	log     *zap.Logger
	nowFunc func() time.Time
}

// NewNotifier constructs a webhook notifier.
func NewNotifier(cfg Config) *Notifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	urls := make(map[string]string, len(cfg.URLs))
	for event, url := range cfg.URLs {
		event = strings.TrimSpace(event)
		url = strings.TrimSpace(url)
		if event != "" && url != "" {
			urls[event] = url
		}
	}

	return &Notifier{
		urls:    urls,
		client:  &http.Client{Timeout: timeout},
		log:     logger.WithModule("webhooks"),
		nowFunc: time.Now,
	}
}

// Enabled reports whether an event has a configured destination.
func (n *Notifier) Enabled(event string) bool {
	_, ok := n.urls[event]
	return ok
}

// Notify delivers an event asynchronously and returns immediately.
func (n *Notifier) Notify(event string, payload map[string]any) {
	if !n.Enabled(event) {
		return
	}
	go n.deliver(event, payload)
}

// NotifySync delivers an event and waits for the outcome. Used by tests and
// by shutdown paths that want deliveries flushed.
func (n *Notifier) NotifySync(ctx context.Context, event string, payload map[string]any) error {
	if !n.Enabled(event) {
		return nil
	}
	return n.post(ctx, event, payload)
}

func (n *Notifier) deliver(event string, payload map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), n.client.Timeout)
	defer cancel()

	if err := n.post(ctx, event, payload); err != nil {
		n.log.Warn("webhook delivery failed",
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

func (n *Notifier) post(ctx context.Context, event string, payload map[string]any) error {
	body := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["event"] = event
	body["timestamp"] = n.nowFunc().UTC().Format(time.RFC3339)

	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("webhooks: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.urls[event], bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("webhooks: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhooks: post event: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhooks: unexpected status %d", resp.StatusCode)
	}
	return nil
}
