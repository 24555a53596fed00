package models

import "time"

// AggregateOptions filters the related records composed into an aggregate.
// The period bounds apply uniformly to consultations, exams and evaluations.
type AggregateOptions struct {
	PeriodStart      *time.Time
	PeriodEnd        *time.Time
	MaxConsultations int
}

// StudentAggregate is the composed read-only view of one student: core row,
// decrypted attribute map and related records. Sections degrade independently;
// a student with zero exams still yields a usable aggregate.
type StudentAggregate struct {
	Student          Student
	Attributes       map[string]string
	FailedAttributes []string
	Consultations    []Consultation
	ExamResults      []ExamResult
	Evaluations      []Evaluation
}

// Field exposes aggregate data as a flat lookup used by the alias resolver
// and the report binder. Core columns are addressed as "student.<col>",
// attributes as "attr.<key>".
func (a *StudentAggregate) Field(name string) (string, bool) {
	switch name {
	case "student.id":
		return a.Student.ID, true
	case "student.name":
		return a.Student.Name, a.Student.Name != ""
	case "student.name_ko":
		return deref(a.Student.NameKo), a.Student.NameKo != nil && *a.Student.NameKo != ""
	case "student.name_vi":
		return deref(a.Student.NameVi), a.Student.NameVi != nil && *a.Student.NameVi != ""
	case "student.gender":
		return a.Student.Gender, a.Student.Gender != ""
	case "student.phone":
		return a.Student.Phone, a.Student.Phone != ""
	case "student.email":
		return a.Student.Email, a.Student.Email != ""
	case "student.birth_date":
		if a.Student.BirthDate == nil {
			return "", false
		}
		return a.Student.BirthDate.Format("2006-01-02"), true
	}
	if len(name) > 5 && name[:5] == "attr." {
		value, ok := a.Attributes[name[5:]]
		return value, ok && value != ""
	}
	return "", false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
