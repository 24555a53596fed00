package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/haksa-io/student-records-api/internal/dto"
	"github.com/haksa-io/student-records-api/internal/models"
	appErrors "github.com/haksa-io/student-records-api/pkg/errors"
)

type studentAttributeStore interface {
	Upsert(ctx context.Context, value *models.StudentAttributeValue) error
	Get(ctx context.Context, studentID, key string) (*models.StudentAttributeValue, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.StudentAttributeValue, error)
}

type definitionResolver interface {
	GetDefinition(ctx context.Context, key string) (*models.AttributeDefinition, error)
	ValidateValue(def *models.AttributeDefinition, rawInput interface{}) (models.AttributeValue, error)
}

type valueSealer interface {
	Seal(plaintext string) (string, error)
	Open(encoded string) (string, error)
}

// AttributeService writes and reads per-student dynamic attribute values.
// Sensitive values are sealed before they reach the store; plaintext is never
// persisted for keys flagged sensitive or encrypted.
type AttributeService struct {
	values  studentAttributeStore
	catalog definitionResolver
	sealer  valueSealer
	logger  *zap.Logger
}

// NewAttributeService constructs the attribute service.
func NewAttributeService(values studentAttributeStore, catalog definitionResolver, sealer valueSealer, logger *zap.Logger) *AttributeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttributeService{values: values, catalog: catalog, sealer: sealer, logger: logger}
}

// WriteAttribute validates, optionally seals, and upserts one value. Writes
// against a deactivated key are allowed only when a value already exists for
// the pair, so legacy data stays editable while new usage is blocked.
func (s *AttributeService) WriteAttribute(ctx context.Context, studentID, key string, rawInput interface{}, actorID string) (*dto.AttributeValueResponse, error) {
	def, err := s.catalog.GetDefinition(ctx, key)
	if err != nil {
		return nil, err
	}
	if !def.Active {
		existing, getErr := s.values.Get(ctx, studentID, key)
		if getErr != nil || existing == nil {
			return nil, appErrors.Clone(appErrors.ErrUnknownAttribute, fmt.Sprintf("attribute %q is deactivated", key))
		}
	}

	validated, err := s.catalog.ValidateValue(def, rawInput)
	if err != nil {
		return nil, err
	}

	encoded := validated.Encode()
	sealed := false
	if def.Encrypted || def.Sensitive {
		ciphertext, sealErr := s.sealer.Seal(encoded)
		if sealErr != nil {
			return nil, appErrors.Wrap(sealErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seal attribute value")
		}
		encoded = ciphertext
		sealed = true
	}

	row := &models.StudentAttributeValue{
		StudentID:    studentID,
		AttributeKey: key,
		RawValue:     encoded,
		Encrypted:    sealed,
		UpdatedBy:    actorID,
	}
	if err := s.values.Upsert(ctx, row); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attribute value")
	}
	s.logger.Sugar().Infow("attribute written", "student_id", studentID, "key", key, "encrypted", sealed, "actor", actorID)
	return &dto.AttributeValueResponse{
		StudentID:    row.StudentID,
		AttributeKey: row.AttributeKey,
		Encrypted:    row.Encrypted,
		UpdatedBy:    row.UpdatedBy,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}

// ReadAttributes returns the decrypted attribute map for one student. A value
// that fails to open (rotated or missing key) is reported in FailedKeys and
// skipped; the rest of the map is still returned.
func (s *AttributeService) ReadAttributes(ctx context.Context, studentID string) (*dto.AttributeReadResponse, error) {
	rows, err := s.values.ListByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &dto.AttributeReadResponse{StudentID: studentID, Attributes: map[string]string{}}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attribute values")
	}

	resp := &dto.AttributeReadResponse{
		StudentID:  studentID,
		Attributes: make(map[string]string, len(rows)),
	}
	for _, row := range rows {
		if !row.Encrypted {
			resp.Attributes[row.AttributeKey] = row.RawValue
			continue
		}
		plaintext, openErr := s.sealer.Open(row.RawValue)
		if openErr != nil {
			s.logger.Sugar().Warnw("attribute decryption failed", "student_id", studentID, "key", row.AttributeKey, "error", openErr)
			resp.FailedKeys = append(resp.FailedKeys, row.AttributeKey)
			continue
		}
		resp.Attributes[row.AttributeKey] = plaintext
	}
	return resp, nil
}
