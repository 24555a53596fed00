package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haksa-io/student-records-api/internal/dto"
	"github.com/haksa-io/student-records-api/internal/service"
	appErrors "github.com/haksa-io/student-records-api/pkg/errors"
	"github.com/haksa-io/student-records-api/pkg/response"
)

// AttributeHandler exposes the attribute catalog and per-student value endpoints.
type AttributeHandler struct {
	catalog    *service.CatalogService
	attributes *service.AttributeService
}

// NewAttributeHandler constructs handler.
func NewAttributeHandler(catalog *service.CatalogService, attributes *service.AttributeService) *AttributeHandler {
	return &AttributeHandler{catalog: catalog, attributes: attributes}
}

// DefineAttribute godoc
// @Summary Register a catalog attribute
// @Tags Attributes
// @Accept json
// @Produce json
// @Param payload body dto.DefineAttributeRequest true "Attribute definition"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attributes [post]
func (h *AttributeHandler) DefineAttribute(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.DefineAttributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attribute payload"))
		return
	}

	def, err := h.catalog.DefineAttribute(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, def)
}

// ListAttributes godoc
// @Summary List catalog attributes
// @Tags Attributes
// @Produce json
// @Param all query bool false "Include deactivated keys"
// @Success 200 {object} response.Envelope
// @Router /attributes [get]
func (h *AttributeHandler) ListAttributes(c *gin.Context) {
	activeOnly := c.Query("all") != "true"
	defs, err := h.catalog.ListDefinitions(c.Request.Context(), activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, defs, nil)
}

// DeactivateAttribute godoc
// @Summary Deactivate a catalog attribute
// @Tags Attributes
// @Produce json
// @Param key path string true "Attribute key"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attributes/{key} [delete]
func (h *AttributeHandler) DeactivateAttribute(c *gin.Context) {
	if err := h.catalog.DeactivateAttribute(c.Request.Context(), c.Param("key")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportCatalog godoc
// @Summary Export the attribute catalog as CSV
// @Tags Attributes
// @Produce text/csv
// @Success 200 {string} string "CSV content"
// @Router /attributes/export [get]
func (h *AttributeHandler) ExportCatalog(c *gin.Context) {
	data, err := h.catalog.ExportCatalogCSV(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="attribute_catalog.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// WriteStudentAttribute godoc
// @Summary Write one attribute value for a student
// @Tags Attributes
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param key path string true "Attribute key"
// @Param payload body dto.WriteAttributeRequest true "Value payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/attributes/{key} [put]
func (h *AttributeHandler) WriteStudentAttribute(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.WriteAttributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid value payload"))
		return
	}

	res, err := h.attributes.WriteAttribute(c.Request.Context(), c.Param("id"), c.Param("key"), req.Value, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// ReadStudentAttributes godoc
// @Summary Read all attribute values for a student
// @Tags Attributes
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/attributes [get]
func (h *AttributeHandler) ReadStudentAttributes(c *gin.Context) {
	res, err := h.attributes.ReadAttributes(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
