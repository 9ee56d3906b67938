package webhooks

import (
	"time"

	"github.com/guanago/guanago/internal/catalog"
)

// CatalogSink forwards successful catalog refreshes to the automation
// platform as catalog_refresh events. It satisfies the facade's sink
// interface; deliveries are asynchronous, so refreshes are never slowed.
type CatalogSink struct {
	notifier *Notifier
}

// NewCatalogSink wraps a notifier for catalog refresh deliveries.
func NewCatalogSink(notifier *Notifier) *CatalogSink {
	return &CatalogSink{notifier: notifier}
}

func (s *CatalogSink) CatalogRefreshed(snapshot catalog.Snapshot) {
	if s == nil || s.notifier == nil {
		return
	}

	s.notifier.Notify(EventCatalogRefresh, map[string]any{
		"resource":   string(snapshot.Resource),
		"source":     string(snapshot.Source),
		"fetched_at": snapshot.FetchedAt.UTC().Format(time.RFC3339),
		"records":    len(snapshot.Records),
	})
}
