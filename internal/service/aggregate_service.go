package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/haksa-io/student-records-api/internal/dto"
	"github.com/haksa-io/student-records-api/internal/models"
	appErrors "github.com/haksa-io/student-records-api/pkg/errors"
)

type studentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type relatedRecordStore interface {
	ListConsultations(ctx context.Context, studentID string, from, to *time.Time, limit int) ([]models.Consultation, error)
	ListExamResults(ctx context.Context, studentID string, from, to *time.Time) ([]models.ExamResult, error)
	ListEvaluations(ctx context.Context, studentID string, from, to *time.Time) ([]models.Evaluation, error)
}

type attributeReader interface {
	ReadAttributes(ctx context.Context, studentID string) (*dto.AttributeReadResponse, error)
}

// AggregateService composes the per-student read view consumed by the report
// binder: core row + decrypted attributes + related records. Each related
// section is queried independently and degrades to empty on failure so a
// student with no exams still yields a usable aggregate.
type AggregateService struct {
	students   studentStore
	records    relatedRecordStore
	attributes attributeReader
	aliases    FieldAliasTable
	logger     *zap.Logger
}

// FieldAliasTable maps a logical field to its resolution chain. Historical
// migrations renamed several columns; the chain is ordered newest first and
// lives here as data so new legacy aliases need no code change.
type FieldAliasTable map[string][]string

// DefaultFieldAliases covers the column drift observed across migrations.
func DefaultFieldAliases() FieldAliasTable {
	return FieldAliasTable{
		"student_name":    {"student.name", "student.name_ko", "attr.name_ko", "attr.full_name"},
		"student_name_vi": {"student.name_vi", "attr.name_vi", "student.name"},
		"birth_date":      {"student.birth_date", "attr.birth_date"},
		"phone":           {"student.phone", "attr.phone", "attr.contact_phone"},
		"email":           {"student.email", "attr.email"},
		"gender":          {"student.gender", "attr.gender"},
	}
}

// NewAggregateService constructs the aggregate reader.
func NewAggregateService(students studentStore, records relatedRecordStore, attributes attributeReader, aliases FieldAliasTable, logger *zap.Logger) *AggregateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if aliases == nil {
		aliases = DefaultFieldAliases()
	}
	return &AggregateService{
		students:   students,
		records:    records,
		attributes: attributes,
		aliases:    aliases,
		logger:     logger,
	}
}

// LoadAggregate assembles the composed view. Only a missing student row fails
// the call; every related section falls back to empty with a logged warning.
func (s *AggregateService) LoadAggregate(ctx context.Context, studentID string, opts models.AggregateOptions) (*models.StudentAggregate, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	aggregate := &models.StudentAggregate{
		Student:    *student,
		Attributes: map[string]string{},
	}

	attrs, err := s.attributes.ReadAttributes(ctx, studentID)
	if err != nil {
		s.logger.Sugar().Warnw("aggregate attribute section degraded", "student_id", studentID, "error", err)
	} else {
		aggregate.Attributes = attrs.Attributes
		aggregate.FailedAttributes = attrs.FailedKeys
	}

	limit := opts.MaxConsultations
	if limit <= 0 {
		limit = 20
	}
	consultations, err := s.records.ListConsultations(ctx, studentID, opts.PeriodStart, opts.PeriodEnd, limit)
	if err != nil {
		s.logger.Sugar().Warnw("aggregate consultation section degraded", "student_id", studentID, "error", err)
	} else {
		aggregate.Consultations = consultations
	}

	exams, err := s.records.ListExamResults(ctx, studentID, opts.PeriodStart, opts.PeriodEnd)
	if err != nil {
		s.logger.Sugar().Warnw("aggregate exam section degraded", "student_id", studentID, "error", err)
	} else {
		aggregate.ExamResults = exams
	}

	evaluations, err := s.records.ListEvaluations(ctx, studentID, opts.PeriodStart, opts.PeriodEnd)
	if err != nil {
		s.logger.Sugar().Warnw("aggregate evaluation section degraded", "student_id", studentID, "error", err)
	} else {
		aggregate.Evaluations = evaluations
	}

	return aggregate, nil
}

// ResolveField walks a logical field's alias chain against the aggregate and
// returns the first non-empty hit, or "" when every alias misses. Fields
// outside the table resolve as direct aggregate lookups.
func (s *AggregateService) ResolveField(aggregate *models.StudentAggregate, logical string) string {
	chain, ok := s.aliases[logical]
	if !ok {
		value, _ := aggregate.Field(logical)
		return value
	}
	for _, alias := range chain {
		if value, ok := aggregate.Field(alias); ok {
			return value
		}
	}
	return ""
}
