package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/haksa-io/student-records-api/internal/models"
)

// StudentAttributeRepository persists the (student, key) EAV rows.
type StudentAttributeRepository struct {
	db *sqlx.DB
}

// NewStudentAttributeRepository constructs the repository.
func NewStudentAttributeRepository(db *sqlx.DB) *StudentAttributeRepository {
	return &StudentAttributeRepository{db: db}
}

// Upsert writes one value, overwriting any prior row for the pair.
// Last write wins; no history is kept here.
func (r *StudentAttributeRepository) Upsert(ctx context.Context, value *models.StudentAttributeValue) error {
	if value.UpdatedAt.IsZero() {
		value.UpdatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO student_attributes (student_id, attribute_key, raw_value, encrypted, updated_by, updated_at)
VALUES (:student_id, :attribute_key, :raw_value, :encrypted, :updated_by, :updated_at)
ON CONFLICT (student_id, attribute_key)
DO UPDATE SET raw_value = EXCLUDED.raw_value, encrypted = EXCLUDED.encrypted, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, value); err != nil {
		return fmt.Errorf("upsert student attribute: %w", err)
	}
	return nil
}

// Get fetches a single (student, key) row.
func (r *StudentAttributeRepository) Get(ctx context.Context, studentID, key string) (*models.StudentAttributeValue, error) {
	const query = `SELECT student_id, attribute_key, raw_value, encrypted, updated_by, updated_at
FROM student_attributes WHERE student_id = $1 AND attribute_key = $2`
	var value models.StudentAttributeValue
	if err := r.db.GetContext(ctx, &value, query, studentID, key); err != nil {
		return nil, err
	}
	return &value, nil
}

// ListByStudent returns every stored value for a student.
func (r *StudentAttributeRepository) ListByStudent(ctx context.Context, studentID string) ([]models.StudentAttributeValue, error) {
	const query = `SELECT student_id, attribute_key, raw_value, encrypted, updated_by, updated_at
FROM student_attributes WHERE student_id = $1 ORDER BY attribute_key ASC`
	var values []models.StudentAttributeValue
	if err := r.db.SelectContext(ctx, &values, query, studentID); err != nil {
		return nil, fmt.Errorf("list student attributes: %w", err)
	}
	return values, nil
}
