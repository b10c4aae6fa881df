package handler

import (
	"net/http"

	"leadpipe_backend/internal/customfields/service"
	"leadpipe_backend/internal/customfields/transport"
	"leadpipe_backend/platform/apperr"
	"leadpipe_backend/platform/httpkit"
	"leadpipe_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const msgInvalidRequest = "invalid request"

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterDefinitionRoutes mounts definition CRUD. Mutations are admin-only.
func (h *Handler) RegisterDefinitionRoutes(rg *gin.RouterGroup) {
	admin := httpkit.RequireRole(httpkit.RoleAdmin)
	rg.GET("", h.ListDefinitions)
	rg.POST("", admin, h.CreateDefinition)
	rg.PATCH("/:id", admin, h.UpdateDefinition)
	rg.DELETE("/:id", admin, h.DeleteDefinition)
}

// RegisterValueRoutes mounts the per-lead value routes on a /leads group.
func (h *Handler) RegisterValueRoutes(rg *gin.RouterGroup) {
	sales := httpkit.RequireRole(httpkit.RoleAdmin, httpkit.RoleManager, httpkit.RoleSales)
	rg.PUT("/:id/custom-fields", sales, h.PutLeadValues)
	rg.GET("/:id/custom-fields", sales, h.GetLeadValues)
}

func (h *Handler) CreateDefinition(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	var req transport.CreateDefinitionRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.CreateDefinition(c.Request.Context(), identity.OrganizationID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

func (h *Handler) ListDefinitions(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	var req transport.ListDefinitionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, apperr.CodeValidation, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	result, err := h.svc.ListDefinitions(c.Request.Context(), identity.OrganizationID(), req.EntityType)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) UpdateDefinition(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.UpdateDefinitionRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.UpdateDefinition(c.Request.Context(), identity.OrganizationID(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) DeleteDefinition(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.DeleteDefinition(c.Request.Context(), identity.OrganizationID(), id)) {
		return
	}
	httpkit.NoContent(c)
}

func (h *Handler) PutLeadValues(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	leadID, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.ValuesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, apperr.CodeValidation, msgInvalidRequest, nil)
		return
	}

	if httpkit.HandleError(c, h.svc.PutLeadValues(c.Request.Context(), identity.OrganizationID(), leadID, req)) {
		return
	}
	httpkit.NoContent(c)
}

func (h *Handler) GetLeadValues(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	leadID, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetLeadValues(c.Request.Context(), identity.OrganizationID(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) bind(c *gin.Context, req interface{}) bool {
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
