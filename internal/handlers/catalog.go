package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guanago/guanago/internal/catalog"
	"github.com/guanago/guanago/internal/middleware"
	"github.com/guanago/guanago/internal/webhooks"
	appErrors "github.com/guanago/guanago/pkg/errors"
	"github.com/guanago/guanago/pkg/response"
)

// CatalogHandler serves the cached marketplace datasets.
type CatalogHandler struct {
	facade   *catalog.Facade
	notifier *webhooks.Notifier
}

func NewCatalogHandler(facade *catalog.Facade, notifier *webhooks.Notifier) *CatalogHandler {
	return &CatalogHandler{facade: facade, notifier: notifier}
}

// GET /api/catalog/:resource
func (h *CatalogHandler) Get(c *gin.Context) {
	resource, err := catalog.ParseResource(c.Param("resource"))
	if err != nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	snapshot := h.facade.Get(c.Request.Context(), resource, catalog.GetOptions{
		ForceRefresh: boolQuery(c, "refresh"),
	})

	writeSnapshot(c, snapshot)
}

// POST /api/catalog/:resource/refresh
func (h *CatalogHandler) Refresh(c *gin.Context) {
	resource, err := catalog.ParseResource(c.Param("resource"))
	if err != nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	snapshot := h.facade.ForceRefresh(c.Request.Context(), resource)

	// Forced refreshes are admin actions worth an audit trail.
	if h.notifier != nil {
		h.notifier.Notify(webhooks.EventTrace, map[string]any{
			"action":   "catalog_force_refresh",
			"admin_id": c.GetString(middleware.CtxAdminIDKey),
			"resource": string(resource),
			"source":   string(snapshot.Source),
		})
	}

	writeSnapshot(c, snapshot)
}

func writeSnapshot(c *gin.Context, snapshot catalog.Snapshot) {
	meta := &response.Meta{
		Source: string(snapshot.Source),
		Total:  len(snapshot.Records),
	}
	if !snapshot.FetchedAt.IsZero() {
		meta.FetchedAt = snapshot.FetchedAt.UTC().Format(time.RFC3339)
	}

	response.SuccessWithMeta(c, http.StatusOK, snapshot.Records, meta)
}
