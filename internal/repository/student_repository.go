package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/haksa-io/student-records-api/internal/models"
)

// StudentRepository reads core student rows. The aggregate reader is the main
// consumer; student CRUD itself lives outside this core.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID fetches one student row.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, name, name_ko, name_vi, gender, birth_date, phone, email, branch_id, active, created_at, updated_at
FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}
