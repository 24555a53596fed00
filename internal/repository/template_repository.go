package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/haksa-io/student-records-api/internal/models"
)

// TemplateRepository persists report template versions. Rows are immutable
// once published; new versions link to their predecessor.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository constructs the repository.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

const templateColumns = `id, template_code, report_type, version, parent_template_id, html_body, css, data_sources, labels, allowed_roles, active, is_default, created_by, created_at`

// Create inserts a new template version row.
func (r *TemplateRepository) Create(ctx context.Context, tpl *models.ReportTemplate) error {
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO report_templates (id, template_code, report_type, version, parent_template_id, html_body, css, data_sources, labels, allowed_roles, active, is_default, created_by, created_at)
VALUES (:id, :template_code, :report_type, :version, :parent_template_id, :html_body, :css, :data_sources, :labels, :allowed_roles, :active, :is_default, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tpl); err != nil {
		return fmt.Errorf("create report template: %w", err)
	}
	return nil
}

// FindLatestActiveByCode resolves a code to its highest active version.
func (r *TemplateRepository) FindLatestActiveByCode(ctx context.Context, code string) (*models.ReportTemplate, error) {
	query := fmt.Sprintf(`SELECT %s FROM report_templates WHERE template_code = $1 AND active = true ORDER BY version DESC LIMIT 1`, templateColumns)
	var tpl models.ReportTemplate
	if err := r.db.GetContext(ctx, &tpl, query, code); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// FindVersion resolves a specific version of a code.
func (r *TemplateRepository) FindVersion(ctx context.Context, code string, version int) (*models.ReportTemplate, error) {
	query := fmt.Sprintf(`SELECT %s FROM report_templates WHERE template_code = $1 AND version = $2`, templateColumns)
	var tpl models.ReportTemplate
	if err := r.db.GetContext(ctx, &tpl, query, code, version); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// FindByID resolves a template row by primary key.
func (r *TemplateRepository) FindByID(ctx context.Context, id string) (*models.ReportTemplate, error) {
	query := fmt.Sprintf(`SELECT %s FROM report_templates WHERE id = $1`, templateColumns)
	var tpl models.ReportTemplate
	if err := r.db.GetContext(ctx, &tpl, query, id); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// ListActive returns the highest active version per template code.
func (r *TemplateRepository) ListActive(ctx context.Context) ([]models.ReportTemplate, error) {
	query := fmt.Sprintf(`SELECT DISTINCT ON (template_code) %s
FROM report_templates WHERE active = true ORDER BY template_code ASC, version DESC`, templateColumns)
	var tpls []models.ReportTemplate
	if err := r.db.SelectContext(ctx, &tpls, query); err != nil {
		return nil, fmt.Errorf("list report templates: %w", err)
	}
	return tpls, nil
}

// MaxVersion returns the highest version number recorded for a code, zero when
// the code is new.
func (r *TemplateRepository) MaxVersion(ctx context.Context, code string) (int, error) {
	var version int
	const query = `SELECT COALESCE(MAX(version), 0) FROM report_templates WHERE template_code = $1`
	if err := r.db.GetContext(ctx, &version, query, code); err != nil {
		return 0, fmt.Errorf("max template version: %w", err)
	}
	return version, nil
}
