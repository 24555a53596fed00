package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/haksa-io/student-records-api/internal/models"
)

func TestAttributeDefinitionCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttributeDefinitionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attribute_definitions")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	def := &models.AttributeDefinition{
		Key:         "visa_number",
		DisplayName: models.LocalizedText{"ko": "비자 번호", "vi": "Số thị thực"},
		DataType:    models.AttributeTypeText,
		Sensitive:   true,
		Encrypted:   true,
		Category:    "immigration",
		CreatedBy:   "admin-1",
	}
	require.NoError(t, repo.Create(context.Background(), def))
	require.NotEmpty(t, def.ID)
	require.False(t, def.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttributeDefinitionExistsByKey(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttributeDefinitionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM attribute_definitions WHERE key = $1)")).
		WithArgs("visa_number").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByKey(context.Background(), "visa_number")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttributeDefinitionListActiveOnly(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttributeDefinitionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "key", "data_type", "active", "created_at"}).
		AddRow("def-1", "home_country", models.AttributeTypeText, true, time.Now()).
		AddRow("def-2", "scholarship_amount", models.AttributeTypeNumber, true, time.Now())
	mock.ExpectQuery(`SELECT .+ FROM attribute_definitions WHERE active = true ORDER BY`).
		WillReturnRows(rows)

	defs, err := repo.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttributeDefinitionDeactivate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttributeDefinitionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE attribute_definitions SET active = false")).
		WithArgs("old_field", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(context.Background(), "old_field"))
	require.NoError(t, mock.ExpectationsWereMet())
}
