package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/haksa-io/student-records-api/internal/models"
)

// RecordRepository reads the related records composed into the student
// aggregate: consultations, exam results and evaluations. Each query applies
// the same optional period window.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository constructs the repository.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// ListConsultations returns a student's consultations, newest first, capped at
// limit when limit > 0.
func (r *RecordRepository) ListConsultations(ctx context.Context, studentID string, from, to *time.Time, limit int) ([]models.Consultation, error) {
	query := `SELECT id, student_id, consult_date, consultant, topic, content, evaluation, eval_comment, created_at
FROM consultations WHERE student_id = $1`
	args := []interface{}{studentID}
	query, args = appendPeriod(query, args, "consult_date", from, to)
	query += " ORDER BY consult_date DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}
	var rows []models.Consultation
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}
	return rows, nil
}

// ListExamResults returns a student's exam scores in chronological order.
func (r *RecordRepository) ListExamResults(ctx context.Context, studentID string, from, to *time.Time) ([]models.ExamResult, error) {
	query := `SELECT id, student_id, exam_name, subject, exam_date, score, max_score, created_at
FROM exam_results WHERE student_id = $1`
	args := []interface{}{studentID}
	query, args = appendPeriod(query, args, "exam_date", from, to)
	query += " ORDER BY exam_date ASC"
	var rows []models.ExamResult
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list exam results: %w", err)
	}
	return rows, nil
}

// ListEvaluations returns a student's evaluations, newest first.
func (r *RecordRepository) ListEvaluations(ctx context.Context, studentID string, from, to *time.Time) ([]models.Evaluation, error) {
	query := `SELECT id, student_id, evaluator, period, rating, content, created_at
FROM evaluations WHERE student_id = $1`
	args := []interface{}{studentID}
	query, args = appendPeriod(query, args, "created_at", from, to)
	query += " ORDER BY created_at DESC"
	var rows []models.Evaluation
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	return rows, nil
}

func appendPeriod(query string, args []interface{}, column string, from, to *time.Time) (string, []interface{}) {
	conditions := make([]string, 0, 2)
	if from != nil {
		conditions = append(conditions, fmt.Sprintf("%s >= $%d", column, len(args)+1))
		args = append(args, *from)
	}
	if to != nil {
		conditions = append(conditions, fmt.Sprintf("%s <= $%d", column, len(args)+1))
		args = append(args, *to)
	}
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	return query, args
}
