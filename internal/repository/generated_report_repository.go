package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/haksa-io/student-records-api/internal/models"
)

// GeneratedReportRepository persists report generation attempts and their
// artifact metadata.
type GeneratedReportRepository struct {
	db *sqlx.DB
}

// NewGeneratedReportRepository constructs the repository.
func NewGeneratedReportRepository(db *sqlx.DB) *GeneratedReportRepository {
	return &GeneratedReportRepository{db: db}
}

const generatedReportColumns = `id, student_id, template_id, template_code, language, period_start, period_end, report_data, html_path, pdf_path, file_size, content_hash, status, error_message, duration_ms, generated_by, access_count, last_accessed_at, shared_with, expires_at, created_at, completed_at`

// Create inserts a new attempt in GENERATING state.
func (r *GeneratedReportRepository) Create(ctx context.Context, report *models.GeneratedReport) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.Status == "" {
		report.Status = models.ReportStatusGenerating
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	if report.SharedWith == nil {
		report.SharedWith = models.SharedWith{}
	}
	const query = `INSERT INTO generated_reports (id, student_id, template_id, template_code, language, period_start, period_end, report_data, html_path, pdf_path, file_size, content_hash, status, error_message, duration_ms, generated_by, access_count, last_accessed_at, shared_with, expires_at, created_at, completed_at)
VALUES (:id, :student_id, :template_id, :template_code, :language, :period_start, :period_end, :report_data, :html_path, :pdf_path, :file_size, :content_hash, :status, :error_message, :duration_ms, :generated_by, :access_count, :last_accessed_at, :shared_with, :expires_at, :created_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("create generated report: %w", err)
	}
	return nil
}

// GetByID returns one attempt row.
func (r *GeneratedReportRepository) GetByID(ctx context.Context, id string) (*models.GeneratedReport, error) {
	query := fmt.Sprintf(`SELECT %s FROM generated_reports WHERE id = $1`, generatedReportColumns)
	var report models.GeneratedReport
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		return nil, err
	}
	return &report, nil
}

// CompleteParams carries the success transition payload.
type CompleteParams struct {
	ReportData  json.RawMessage
	HTMLPath    string
	PDFPath     string
	FileSize    int64
	ContentHash string
	DurationMs  int64
	ExpiresAt   *time.Time
}

// MarkCompleted transitions a GENERATING row to COMPLETED with artifact
// metadata. The status guard keeps the transition single-shot.
func (r *GeneratedReportRepository) MarkCompleted(ctx context.Context, id string, params CompleteParams) error {
	const query = `UPDATE generated_reports
SET status = $2, report_data = $3, html_path = $4, pdf_path = $5, file_size = $6, content_hash = $7, duration_ms = $8, expires_at = $9, completed_at = $10
WHERE id = $1 AND status = $11`
	res, err := r.db.ExecContext(ctx, query, id, models.ReportStatusCompleted, []byte(params.ReportData), params.HTMLPath, params.PDFPath,
		params.FileSize, params.ContentHash, params.DurationMs, params.ExpiresAt, time.Now().UTC(), models.ReportStatusGenerating)
	if err != nil {
		return fmt.Errorf("complete generated report: %w", err)
	}
	return ensureTransition(res, id)
}

// MarkFailed transitions a GENERATING row to FAILED with the captured error.
func (r *GeneratedReportRepository) MarkFailed(ctx context.Context, id, errorMessage string, durationMs int64) error {
	const query = `UPDATE generated_reports
SET status = $2, error_message = $3, duration_ms = $4, completed_at = $5
WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, id, models.ReportStatusFailed, errorMessage, durationMs, time.Now().UTC(), models.ReportStatusGenerating)
	if err != nil {
		return fmt.Errorf("fail generated report: %w", err)
	}
	return ensureTransition(res, id)
}

// MarkArchived transitions a COMPLETED row to ARCHIVED.
func (r *GeneratedReportRepository) MarkArchived(ctx context.Context, id string) error {
	const query = `UPDATE generated_reports SET status = $2 WHERE id = $1 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, id, models.ReportStatusArchived, models.ReportStatusCompleted)
	if err != nil {
		return fmt.Errorf("archive generated report: %w", err)
	}
	return ensureTransition(res, id)
}

// ListByStudent returns a student's attempts, newest first.
func (r *GeneratedReportRepository) ListByStudent(ctx context.Context, studentID string, limit int) ([]models.GeneratedReport, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM generated_reports WHERE student_id = $1 ORDER BY created_at DESC LIMIT $2`, generatedReportColumns)
	var reports []models.GeneratedReport
	if err := r.db.SelectContext(ctx, &reports, query, studentID, limit); err != nil {
		return nil, fmt.Errorf("list generated reports: %w", err)
	}
	return reports, nil
}

// TouchAccess bumps the access counter and timestamp on a download.
func (r *GeneratedReportRepository) TouchAccess(ctx context.Context, id string) error {
	const query = `UPDATE generated_reports SET access_count = access_count + 1, last_accessed_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("touch report access: %w", err)
	}
	return nil
}

// UpdateSharedWith replaces the sharing list.
func (r *GeneratedReportRepository) UpdateSharedWith(ctx context.Context, id string, shared models.SharedWith) error {
	const query = `UPDATE generated_reports SET shared_with = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, shared); err != nil {
		return fmt.Errorf("update report sharing: %w", err)
	}
	return nil
}

// ListExpired returns completed or archived rows whose expiry passed, for
// artifact cleanup.
func (r *GeneratedReportRepository) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.GeneratedReport, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM generated_reports
WHERE status IN ($1, $2) AND expires_at IS NOT NULL AND expires_at < $3 ORDER BY expires_at ASC LIMIT $4`, generatedReportColumns)
	var reports []models.GeneratedReport
	if err := r.db.SelectContext(ctx, &reports, query, models.ReportStatusCompleted, models.ReportStatusArchived, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list expired reports: %w", err)
	}
	return reports, nil
}

func ensureTransition(res interface{ RowsAffected() (int64, error) }, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("report transition result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("report %s not in a transitionable state", id)
	}
	return nil
}
