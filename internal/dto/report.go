package dto

import (
	"time"

	"github.com/haksa-io/student-records-api/internal/models"
)

// GenerateReportRequest starts one report generation attempt.
type GenerateReportRequest struct {
	StudentID    string     `json:"student_id" binding:"required" validate:"required"`
	TemplateCode string     `json:"template_code" binding:"required" validate:"required"`
	Language     string     `json:"language" validate:"omitempty,oneof=ko vi"`
	PeriodStart  *time.Time `json:"period_start,omitempty"`
	PeriodEnd    *time.Time `json:"period_end,omitempty"`
}

// ReportResponse exposes generation state to clients.
type ReportResponse struct {
	ID           string              `json:"id"`
	StudentID    string              `json:"student_id"`
	TemplateCode string              `json:"template_code"`
	Language     string              `json:"language"`
	Status       models.ReportStatus `json:"status"`
	Error        *string             `json:"error,omitempty"`
	FileSize     *int64              `json:"file_size,omitempty"`
	ContentHash  *string             `json:"content_hash,omitempty"`
	DurationMs   *int64              `json:"duration_ms,omitempty"`
	DownloadURL  *string             `json:"download_url,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
}

// ShareReportRequest grants download access to additional users.
type ShareReportRequest struct {
	UserIDs []string `json:"user_ids" binding:"required" validate:"required,min=1"`
}
