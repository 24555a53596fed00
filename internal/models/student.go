package models

import "time"

// Student is the core student row. NameKo/NameVi are historical columns kept
// by old migrations; the aggregate reader resolves display names through the
// field alias table rather than reading them directly.
type Student struct {
	ID        string     `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	NameKo    *string    `db:"name_ko" json:"name_ko,omitempty"`
	NameVi    *string    `db:"name_vi" json:"name_vi,omitempty"`
	Gender    string     `db:"gender" json:"gender"`
	BirthDate *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Phone     string     `db:"phone" json:"phone"`
	Email     string     `db:"email" json:"email"`
	BranchID  *string    `db:"branch_id" json:"branch_id,omitempty"`
	Active    bool       `db:"active" json:"active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Consultation is a counseling session record.
type Consultation struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	ConsultDate  time.Time `db:"consult_date" json:"consult_date"`
	Consultant   string    `db:"consultant" json:"consultant"`
	Topic        string    `db:"topic" json:"topic"`
	Content      string    `db:"content" json:"content"`
	Evaluation   *string   `db:"evaluation" json:"evaluation,omitempty"`
	EvalComment  *string   `db:"eval_comment" json:"eval_comment,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ExamResult is a single exam score row.
type ExamResult struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	ExamName  string    `db:"exam_name" json:"exam_name"`
	Subject   string    `db:"subject" json:"subject"`
	ExamDate  time.Time `db:"exam_date" json:"exam_date"`
	Score     float64   `db:"score" json:"score"`
	MaxScore  float64   `db:"max_score" json:"max_score"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Evaluation is a periodic assessment written by staff.
type Evaluation struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Evaluator string    `db:"evaluator" json:"evaluator"`
	Period    string    `db:"period" json:"period"`
	Rating    *string   `db:"rating" json:"rating,omitempty"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
