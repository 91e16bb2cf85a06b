package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gctu/certificate-registry/internal/core/ports"
)

const defaultAuditLimit = 100

// AuditHandler serves the admin-facing audit trail.
type AuditHandler struct {
	service ports.CertificateService
}

func NewAuditHandler(service ports.CertificateService) *AuditHandler {
	return &AuditHandler{service: service}
}

type auditEntryResponse struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	UserID    string `json:"user_id,omitempty"`
	Timestamp string `json:"timestamp"`
	Details   string `json:"details,omitempty"`
}

type auditLogsResponse struct {
	Logs []auditEntryResponse `json:"logs"`
}

// List handles GET /audit-logs. Entries are scoped to the calling admin plus
// anonymous verification entries, newest first.
//
// @Summary      List recent audit entries
// @Tags         audit
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Maximum entries to return (default 100)"
// @Success      200    {object}  auditLogsResponse
// @Router       /audit-logs [get]
func (h *AuditHandler) List(c echo.Context) error {
	adminID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	limit := defaultAuditLimit
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.service.AuditLogs(c.Request().Context(), adminID, limit)
	if err != nil {
		return err
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp := auditEntryResponse{
			ID:        e.ID,
			Action:    e.Action,
			Timestamp: e.Timestamp.Format(time.RFC3339),
			Details:   e.Details,
		}
		if e.UserID != nil {
			resp.UserID = *e.UserID
		}
		out = append(out, resp)
	}
	return c.JSON(http.StatusOK, auditLogsResponse{Logs: out})
}
