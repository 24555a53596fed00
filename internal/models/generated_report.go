package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReportStatus captures the generation lifecycle. A row transitions out of
// GENERATING exactly once; ARCHIVED is a terminal administrative state after
// COMPLETED. Completed rows are immutable — regeneration creates a new row.
type ReportStatus string

const (
	ReportStatusGenerating ReportStatus = "GENERATING"
	ReportStatusCompleted  ReportStatus = "COMPLETED"
	ReportStatusFailed     ReportStatus = "FAILED"
	ReportStatusArchived   ReportStatus = "ARCHIVED"
)

// SharedWith is a JSONB-persisted list of user IDs a report is shared with.
type SharedWith []string

// Value marshals the list to JSON.
func (s SharedWith) Value() (driver.Value, error) {
	if s == nil {
		s = SharedWith{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal shared list: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the list.
func (s *SharedWith) Scan(value interface{}) error {
	if value == nil {
		*s = SharedWith{}
		return nil
	}
	data, err := jsonbBytes(value)
	if err != nil {
		return fmt.Errorf("scan shared list: %w", err)
	}
	if len(data) == 0 {
		*s = SharedWith{}
		return nil
	}
	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("unmarshal shared list: %w", err)
	}
	return nil
}

// Contains reports membership of a user ID.
func (s SharedWith) Contains(userID string) bool {
	for _, id := range s {
		if id == userID {
			return true
		}
	}
	return false
}

// GeneratedReport is one report generation attempt and, when completed, its
// persisted artifacts.
type GeneratedReport struct {
	ID             string          `db:"id" json:"id"`
	StudentID      string          `db:"student_id" json:"student_id"`
	TemplateID     string          `db:"template_id" json:"template_id"`
	TemplateCode   string          `db:"template_code" json:"template_code"`
	Language       string          `db:"language" json:"language"`
	PeriodStart    *time.Time      `db:"period_start" json:"period_start,omitempty"`
	PeriodEnd      *time.Time      `db:"period_end" json:"period_end,omitempty"`
	ReportData     json.RawMessage `db:"report_data" json:"report_data,omitempty"`
	HTMLPath       *string         `db:"html_path" json:"html_path,omitempty"`
	PDFPath        *string         `db:"pdf_path" json:"pdf_path,omitempty"`
	FileSize       *int64          `db:"file_size" json:"file_size,omitempty"`
	ContentHash    *string         `db:"content_hash" json:"content_hash,omitempty"`
	Status         ReportStatus    `db:"status" json:"status"`
	ErrorMessage   *string         `db:"error_message" json:"error_message,omitempty"`
	DurationMillis *int64          `db:"duration_ms" json:"duration_ms,omitempty"`
	GeneratedBy    string          `db:"generated_by" json:"generated_by"`
	AccessCount    int             `db:"access_count" json:"access_count"`
	LastAccessedAt *time.Time      `db:"last_accessed_at" json:"last_accessed_at,omitempty"`
	SharedWith     SharedWith      `db:"shared_with" json:"shared_with"`
	ExpiresAt      *time.Time      `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	CompletedAt    *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}

// AccessibleBy reports whether the actor may download this report. Admins see
// everything; the generating actor and listed shares see their own.
func (r *GeneratedReport) AccessibleBy(userID string, role UserRole) bool {
	if role == RoleAdmin {
		return true
	}
	if r.GeneratedBy == userID {
		return true
	}
	return r.SharedWith.Contains(userID)
}
