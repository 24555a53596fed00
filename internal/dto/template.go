package dto

import "github.com/haksa-io/student-records-api/internal/models"

// PublishTemplateRequest publishes a template version. When a version for the
// code already exists the new row is linked to it via parent_template_id.
type PublishTemplateRequest struct {
	TemplateCode string                     `json:"template_code" binding:"required" validate:"required,min=1,max=100"`
	ReportType   string                     `json:"report_type" binding:"required" validate:"required"`
	HTMLBody     string                     `json:"html_body" binding:"required" validate:"required"`
	CSS          string                     `json:"css"`
	DataSources  models.TemplateDataSources `json:"data_sources"`
	Labels       models.TemplateLabels      `json:"labels"`
	AllowedRoles models.AllowedRoles        `json:"allowed_roles"`
	IsDefault    bool                       `json:"is_default"`
}

// TemplateSummary is the list-view projection of a template version.
type TemplateSummary struct {
	ID           string `json:"id"`
	TemplateCode string `json:"template_code"`
	ReportType   string `json:"report_type"`
	Version      int    `json:"version"`
	Active       bool   `json:"active"`
	IsDefault    bool   `json:"is_default"`
}
