package repository

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/haksa-io/student-records-api/internal/models"
)

func TestMarkCompletedGuardsStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGeneratedReportRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE generated_reports")).
		WithArgs("report-1", models.ReportStatusCompleted, sqlmock.AnyArg(), "reports/r1.html", "reports/r1.pdf",
			int64(20480), "sha256:abc", int64(1350), sqlmock.AnyArg(), sqlmock.AnyArg(), models.ReportStatusGenerating).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkCompleted(context.Background(), "report-1", CompleteParams{
		ReportData:  json.RawMessage(`{"student_name":"Nguyen Van A"}`),
		HTMLPath:    "reports/r1.html",
		PDFPath:     "reports/r1.pdf",
		FileSize:    20480,
		ContentHash: "sha256:abc",
		DurationMs:  1350,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkCompletedRejectsSecondTransition(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGeneratedReportRepository(db)

	// row already left GENERATING, so the guarded update touches nothing
	mock.ExpectExec(regexp.QuoteMeta("UPDATE generated_reports")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkCompleted(context.Background(), "report-1", CompleteParams{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not in a transitionable state")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkFailedGuardsStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGeneratedReportRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE generated_reports")).
		WithArgs("report-2", models.ReportStatusFailed, "renderer timeout", int64(30000), sqlmock.AnyArg(), models.ReportStatusGenerating).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkFailed(context.Background(), "report-2", "renderer timeout", 30000)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkArchivedRequiresCompleted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGeneratedReportRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE generated_reports SET status = $2 WHERE id = $1 AND status = $3")).
		WithArgs("report-3", models.ReportStatusArchived, models.ReportStatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkArchived(context.Background(), "report-3")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListExpiredFiltersByExpiry(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGeneratedReportRepository(db)

	cutoff := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "student_id", "template_code", "status"}).
		AddRow("report-9", "student-1", "semester_report", models.ReportStatusArchived)
	mock.ExpectQuery(regexp.QuoteMeta("expires_at IS NOT NULL AND expires_at < $3")).
		WithArgs(models.ReportStatusCompleted, models.ReportStatusArchived, cutoff, 10).
		WillReturnRows(rows)

	reports, err := repo.ListExpired(context.Background(), cutoff, 10)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Equal(t, "report-9", reports[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
