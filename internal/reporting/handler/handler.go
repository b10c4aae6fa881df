package handler

import (
	"net/http"

	"leadpipe_backend/internal/reporting/service"
	"leadpipe_backend/internal/reporting/transport"
	"leadpipe_backend/platform/apperr"
	"leadpipe_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler serves the report endpoints.
type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.Use(httpkit.RequireRole(httpkit.RoleAdmin, httpkit.RoleManager))
	rg.GET("/leads-by-stage", h.LeadsByStage)
	rg.GET("/leads-by-owner", h.LeadsByOwner)
	rg.GET("/funnel", h.Funnel)
}

// GET /api/v1/reports/leads-by-stage?stage_ids=a,b
func (h *Handler) LeadsByStage(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	var req transport.LeadsByStageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, apperr.CodeValidation, "invalid request", nil)
		return
	}

	result, err := h.svc.LeadsByStage(c.Request.Context(), identity.OrganizationID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GET /api/v1/reports/leads-by-owner
func (h *Handler) LeadsByOwner(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.LeadsByOwner(c.Request.Context(), identity.OrganizationID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GET /api/v1/reports/funnel?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) Funnel(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	var req transport.FunnelRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, apperr.CodeValidation, "invalid request", nil)
		return
	}

	result, err := h.svc.Funnel(c.Request.Context(), identity.OrganizationID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
