package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestFindLatestActiveByCodePicksHighestVersion(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTemplateRepository(db)

	rows := sqlmock.NewRows([]string{"id", "template_code", "report_type", "version", "html_body", "active"}).
		AddRow("tpl-3", "semester_report", "SEMESTER", 3, "<html>{{student_name}}</html>", true)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE template_code = $1 AND active = true ORDER BY version DESC LIMIT 1")).
		WithArgs("semester_report").
		WillReturnRows(rows)

	tpl, err := repo.FindLatestActiveByCode(context.Background(), "semester_report")
	require.NoError(t, err)
	require.Equal(t, 3, tpl.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindLatestActiveByCodeMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTemplateRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE template_code = $1 AND active = true")).
		WithArgs("unknown_code").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindLatestActiveByCode(context.Background(), "unknown_code")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaxVersionDefaultsToZero(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTemplateRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) FROM report_templates")).
		WithArgs("brand_new").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))

	version, err := repo.MaxVersion(context.Background(), "brand_new")
	require.NoError(t, err)
	require.Equal(t, 0, version)
	require.NoError(t, mock.ExpectationsWereMet())
}
