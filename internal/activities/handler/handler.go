package handler

import (
	"net/http"

	"leadpipe_backend/internal/activities/service"
	"leadpipe_backend/internal/activities/transport"
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

// RegisterRoutes mounts the activity routes on a /leads group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	sales := httpkit.RequireRole(httpkit.RoleAdmin, httpkit.RoleManager, httpkit.RoleSales)
	rg.POST("/:id/activities", sales, h.Create)
	rg.GET("/:id/activities", sales, h.List)
}

func (h *Handler) Create(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, apperr.CodeValidation, msgInvalidRequest, nil)
		return
	}

	var req transport.CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, apperr.CodeValidation, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), identity.OrganizationID(), leadID, identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, apperr.CodeValidation, msgInvalidRequest, nil)
		return
	}

	var req transport.ListActivitiesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, apperr.CodeValidation, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	result, err := h.svc.List(c.Request.Context(), identity.OrganizationID(), leadID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
