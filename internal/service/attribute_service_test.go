package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/haksa-io/student-records-api/internal/models"
	"github.com/haksa-io/student-records-api/pkg/crypto"
	appErrors "github.com/haksa-io/student-records-api/pkg/errors"
)

type attributeValueRepoStub struct {
	rows map[string]*models.StudentAttributeValue
}

func newAttributeValueRepoStub() *attributeValueRepoStub {
	return &attributeValueRepoStub{rows: map[string]*models.StudentAttributeValue{}}
}

func pairKey(studentID, key string) string {
	return studentID + "/" + key
}

func (r *attributeValueRepoStub) Upsert(ctx context.Context, value *models.StudentAttributeValue) error {
	copied := *value
	r.rows[pairKey(value.StudentID, value.AttributeKey)] = &copied
	return nil
}

func (r *attributeValueRepoStub) Get(ctx context.Context, studentID, key string) (*models.StudentAttributeValue, error) {
	row, ok := r.rows[pairKey(studentID, key)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return row, nil
}

func (r *attributeValueRepoStub) ListByStudent(ctx context.Context, studentID string) ([]models.StudentAttributeValue, error) {
	var out []models.StudentAttributeValue
	for _, row := range r.rows {
		if row.StudentID == studentID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func newAttributeServiceForTest(t *testing.T) (*AttributeService, *attributeValueRepoStub, *definitionRepoStub) {
	t.Helper()
	values := newAttributeValueRepoStub()
	catalog, defs := newCatalogForTest()
	sealer, err := crypto.NewSealer("unit-test-secret")
	require.NoError(t, err)
	return NewAttributeService(values, catalog, sealer, zap.NewNop()), values, defs
}

func TestWriteAttributeUpsertsLastWriteWins(t *testing.T) {
	svc, values, defs := newAttributeServiceForTest(t)
	defs.defs["home_country"] = &models.AttributeDefinition{
		Key: "home_country", DataType: models.AttributeTypeText, Active: true,
	}

	_, err := svc.WriteAttribute(context.Background(), "student-1", "home_country", "Vietnam", "admin-1")
	require.NoError(t, err)
	_, err = svc.WriteAttribute(context.Background(), "student-1", "home_country", "Korea", "admin-2")
	require.NoError(t, err)

	require.Len(t, values.rows, 1)
	row := values.rows[pairKey("student-1", "home_country")]
	assert.Equal(t, "Korea", row.RawValue)
	assert.Equal(t, "admin-2", row.UpdatedBy)
}

func TestWriteAttributeSealsSensitiveValues(t *testing.T) {
	svc, values, defs := newAttributeServiceForTest(t)
	defs.defs["visa_number"] = &models.AttributeDefinition{
		Key: "visa_number", DataType: models.AttributeTypeText, Sensitive: true, Active: true,
	}

	resp, err := svc.WriteAttribute(context.Background(), "student-1", "visa_number", "G-1-23456789", "admin-1")
	require.NoError(t, err)
	assert.True(t, resp.Encrypted)

	row := values.rows[pairKey("student-1", "visa_number")]
	assert.NotEqual(t, "G-1-23456789", row.RawValue)
	assert.True(t, crypto.IsSealed(row.RawValue))

	read, err := svc.ReadAttributes(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, "G-1-23456789", read.Attributes["visa_number"])
	assert.Empty(t, read.FailedKeys)
}

func TestWriteAttributeUnknownKey(t *testing.T) {
	svc, _, _ := newAttributeServiceForTest(t)
	_, err := svc.WriteAttribute(context.Background(), "student-1", "no_such_key", "x", "admin-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnknownAttribute))
}

func TestWriteAttributeDeactivatedKey(t *testing.T) {
	svc, values, defs := newAttributeServiceForTest(t)
	defs.defs["old_field"] = &models.AttributeDefinition{
		Key: "old_field", DataType: models.AttributeTypeText, Active: false,
	}

	// no prior value: rejected
	_, err := svc.WriteAttribute(context.Background(), "student-1", "old_field", "x", "admin-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnknownAttribute))

	// existing value stays editable
	values.rows[pairKey("student-1", "old_field")] = &models.StudentAttributeValue{
		StudentID: "student-1", AttributeKey: "old_field", RawValue: "legacy",
	}
	_, err = svc.WriteAttribute(context.Background(), "student-1", "old_field", "updated", "admin-1")
	require.NoError(t, err)
}

func TestWriteAttributeValidationSurfacesToCaller(t *testing.T) {
	svc, _, defs := newAttributeServiceForTest(t)
	defs.defs["scholarship_amount"] = &models.AttributeDefinition{
		Key: "scholarship_amount", DataType: models.AttributeTypeNumber, Active: true,
	}

	_, err := svc.WriteAttribute(context.Background(), "student-1", "scholarship_amount", "lots", "admin-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestReadAttributesPartialDecryptionFailure(t *testing.T) {
	svc, values, _ := newAttributeServiceForTest(t)

	// sealed under a different key than the service's sealer
	otherSealer, err := crypto.NewSealer("rotated-away-secret")
	require.NoError(t, err)
	foreign, err := otherSealer.Seal("secret-value")
	require.NoError(t, err)

	values.rows[pairKey("student-1", "visa_number")] = &models.StudentAttributeValue{
		StudentID: "student-1", AttributeKey: "visa_number", RawValue: foreign, Encrypted: true,
	}
	values.rows[pairKey("student-1", "home_country")] = &models.StudentAttributeValue{
		StudentID: "student-1", AttributeKey: "home_country", RawValue: "Vietnam",
	}

	read, err := svc.ReadAttributes(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, "Vietnam", read.Attributes["home_country"])
	assert.NotContains(t, read.Attributes, "visa_number")
	assert.Equal(t, []string{"visa_number"}, read.FailedKeys)
}
