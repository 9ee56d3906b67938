package realtime

import (
	"github.com/guanago/guanago/internal/catalog"
)

// CatalogBridge adapts the hub to the catalog's refresh notification
// interface so dashboards see new data without polling.
type CatalogBridge struct {
	hub *Hub
}

// NewCatalogBridge wraps a hub for catalog refresh broadcasts.
func NewCatalogBridge(hub *Hub) *CatalogBridge {
	return &CatalogBridge{hub: hub}
}

// CatalogRefreshed broadcasts a refresh event. Record payloads stay out of
// the frame; clients re-read the catalog endpoint on notification.
func (b *CatalogBridge) CatalogRefreshed(snapshot catalog.Snapshot) {
	if b == nil || b.hub == nil {
		return
	}

	b.hub.Broadcast(Message{
		Event: "catalog_refresh",
		Data: map[string]any{
			"resource":   snapshot.Resource,
			"source":     snapshot.Source,
			"fetched_at": snapshot.FetchedAt,
			"records":    len(snapshot.Records),
		},
	})
}
