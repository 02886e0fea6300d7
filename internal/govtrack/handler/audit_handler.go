package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/service"
)

// AuditHandler consultation et export du journal d'audit
type AuditHandler struct {
	svc *service.AuditService
}

// NewAuditHandler crée le handler d'audit
func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// auditFilters lit les filtres de la query string
func auditFilters(c *gin.Context) map[string]interface{} {
	filters := map[string]interface{}{
		"user_id":    c.Query("user_id"),
		"action":     c.Query("action"),
		"table_name": c.Query("table_name"),
		"record_id":  c.Query("record_id"),
	}
	if raw := c.Query("date_debut"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filters["date_debut"] = t
		}
	}
	if raw := c.Query("date_fin"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filters["date_fin"] = t
		}
	}
	return filters
}

// List GET /api/v1/audit
func (h *AuditHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)

	logs, total, err := h.svc.List(c.Request.Context(), page, pageSize, auditFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, NewListResponse(logs, page, pageSize, total))
}

// Get GET /api/v1/audit/:id
func (h *AuditHandler) Get(c *gin.Context) {
	log, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, log)
}

// Stats GET /api/v1/audit/stats
func (h *AuditHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), auditFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, stats)
}

// Export GET /api/v1/audit/export
func (h *AuditHandler) Export(c *gin.Context) {
	content, filename, err := h.svc.Export(c.Request.Context(), auditFilters(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", content)
}
