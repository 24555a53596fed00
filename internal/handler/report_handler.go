package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/haksa-io/student-records-api/internal/dto"
	"github.com/haksa-io/student-records-api/internal/service"
	appErrors "github.com/haksa-io/student-records-api/pkg/errors"
	"github.com/haksa-io/student-records-api/pkg/response"
)

// ReportHandler exposes report generation and retrieval endpoints.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Generate godoc
// @Summary Generate a student report
// @Description Runs the full pipeline synchronously, or enqueues it with async=true
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.GenerateReportRequest true "Generation payload"
// @Param async query bool false "Enqueue instead of waiting"
// @Success 201 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) Generate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generation payload"))
		return
	}

	if c.Query("async") == "true" {
		res, err := h.reports.EnqueueGeneration(c.Request.Context(), req, claims.UserID, claims.Role)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusAccepted, res, nil)
		return
	}

	res, err := h.reports.GenerateReport(c.Request.Context(), req, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// GetReport godoc
// @Summary Get one report's state
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) GetReport(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	res, err := h.reports.GetReport(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// ListStudentReports godoc
// @Summary List a student's generation attempts
// @Tags Reports
// @Produce json
// @Param id path string true "Student ID"
// @Param limit query int false "Maximum rows"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/reports [get]
func (h *ReportHandler) ListStudentReports(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	res, err := h.reports.ListReports(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Download godoc
// @Summary Download a report PDF via signed token
// @Tags Reports
// @Produce application/pdf
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /downloads/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	download, err := h.reports.Download(c.Request.Context(), c.Param("token"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat report artifact"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.DataFromReader(http.StatusOK, info.Size(), download.ContentType, download.File, nil)
}

// Share godoc
// @Summary Share a completed report with other users
// @Tags Reports
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body dto.ShareReportRequest true "Share payload"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reports/{id}/share [post]
func (h *ReportHandler) Share(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ShareReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid share payload"))
		return
	}

	if err := h.reports.Share(c.Request.Context(), c.Param("id"), req.UserIDs, claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Archive godoc
// @Summary Archive a completed report
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reports/{id}/archive [post]
func (h *ReportHandler) Archive(c *gin.Context) {
	if err := h.reports.Archive(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
