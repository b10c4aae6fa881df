package handler

import (
	"net/http"

	"leadpipe_backend/internal/audit/service"
	"leadpipe_backend/internal/audit/transport"
	"leadpipe_backend/platform/apperr"
	"leadpipe_backend/platform/httpkit"
	"leadpipe_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", httpkit.RequireRole(httpkit.RoleAdmin), h.List)
}

func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.ListAuditRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, apperr.CodeValidation, "invalid request", nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	result, err := h.svc.List(c.Request.Context(), identity.OrganizationID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
