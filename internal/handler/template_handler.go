package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/haksa-io/student-records-api/internal/dto"
	"github.com/haksa-io/student-records-api/internal/service"
	appErrors "github.com/haksa-io/student-records-api/pkg/errors"
	"github.com/haksa-io/student-records-api/pkg/response"
)

// TemplateHandler exposes the report template registry.
type TemplateHandler struct {
	templates *service.TemplateService
}

// NewTemplateHandler constructs handler.
func NewTemplateHandler(templates *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

// Publish godoc
// @Summary Publish a template version
// @Tags Templates
// @Accept json
// @Produce json
// @Param payload body dto.PublishTemplateRequest true "Template payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /templates [post]
func (h *TemplateHandler) Publish(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.PublishTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid template payload"))
		return
	}

	tpl, err := h.templates.Publish(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, tpl)
}

// ListTemplates godoc
// @Summary List templates available to the caller's role
// @Tags Templates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /templates [get]
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	summaries, err := h.templates.ListAvailable(c.Request.Context(), claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, nil)
}

// GetTemplate godoc
// @Summary Get the latest active version of a template
// @Tags Templates
// @Produce json
// @Param code path string true "Template code"
// @Param version query int false "Specific version"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /templates/{code} [get]
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	code := c.Param("code")
	if raw := c.Query("version"); raw != "" {
		version, err := strconv.Atoi(raw)
		if err != nil || version < 1 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "version must be a positive integer"))
			return
		}
		tpl, err := h.templates.GetTemplateVersion(c.Request.Context(), code, version)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, tpl, nil)
		return
	}

	tpl, err := h.templates.GetTemplate(c.Request.Context(), code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tpl, nil)
}
