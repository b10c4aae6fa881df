package handler

import (
	"net/http"

	"leadpipe_backend/internal/leads/management"
	"leadpipe_backend/internal/leads/transport"
	"leadpipe_backend/platform/apperr"
	"leadpipe_backend/platform/httpkit"
	"leadpipe_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *management.Service
	val *validator.Validator
}

const msgInvalidRequest = "invalid request"

func New(svc *management.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	sales := httpkit.RequireRole(httpkit.RoleAdmin, httpkit.RoleManager, httpkit.RoleSales)
	managers := httpkit.RequireRole(httpkit.RoleAdmin, httpkit.RoleManager)

	rg.GET("", sales, h.List)
	rg.POST("", sales, h.Create)
	rg.GET("/:id", sales, h.GetByID)
	rg.PATCH("/:id", sales, h.Update)
	rg.DELETE("/:id", managers, h.Delete)
	rg.POST("/:id/transition", sales, h.Transition)
	rg.GET("/:id/journey", sales, h.Journey)
}

func (h *Handler) Create(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.CreateLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.svc.Create(c.Request.Context(), id.OrganizationID(), id.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, lead)
}

func (h *Handler) GetByID(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := parseID(c)
	if !ok {
		return
	}

	lead, err := h.svc.GetByID(c.Request.Context(), id.OrganizationID(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) Update(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.UpdateLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.svc.Update(c.Request.Context(), id.OrganizationID(), leadID, id.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) Delete(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := parseID(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), id.OrganizationID(), leadID)) {
		return
	}

	httpkit.NoContent(c)
}

func (h *Handler) List(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, apperr.CodeValidation, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	result, err := h.svc.List(c.Request.Context(), id.OrganizationID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Transition(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.TransitionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.svc.Transition(c.Request.Context(), id.OrganizationID(), leadID, id.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) Journey(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := parseID(c)
	if !ok {
		return
	}

	journey, err := h.svc.Journey(c.Request.Context(), id.OrganizationID(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, journey)
}

func (h *Handler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, apperr.CodeValidation, msgInvalidRequest, nil)
		return false
	}
	return !httpkit.HandleError(c, h.val.Struct(req))
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, apperr.CodeValidation, msgInvalidRequest, nil)
		return uuid.UUID{}, false
	}
	return id, true
}
