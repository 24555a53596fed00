package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/haksa-io/student-records-api/internal/dto"
	"github.com/haksa-io/student-records-api/internal/models"
	appErrors "github.com/haksa-io/student-records-api/pkg/errors"
)

type templateRepoStub struct {
	rows []*models.ReportTemplate
}

func (r *templateRepoStub) Create(ctx context.Context, tpl *models.ReportTemplate) error {
	if tpl.ID == "" {
		tpl.ID = "tpl-" + tpl.TemplateCode + "-v" + string(rune('0'+tpl.Version))
	}
	r.rows = append(r.rows, tpl)
	return nil
}

func (r *templateRepoStub) FindLatestActiveByCode(ctx context.Context, code string) (*models.ReportTemplate, error) {
	var best *models.ReportTemplate
	for _, tpl := range r.rows {
		if tpl.TemplateCode != code || !tpl.Active {
			continue
		}
		if best == nil || tpl.Version > best.Version {
			best = tpl
		}
	}
	if best == nil {
		return nil, sql.ErrNoRows
	}
	return best, nil
}

func (r *templateRepoStub) FindVersion(ctx context.Context, code string, version int) (*models.ReportTemplate, error) {
	for _, tpl := range r.rows {
		if tpl.TemplateCode == code && tpl.Version == version {
			return tpl, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *templateRepoStub) ListActive(ctx context.Context) ([]models.ReportTemplate, error) {
	latest := map[string]*models.ReportTemplate{}
	for _, tpl := range r.rows {
		if !tpl.Active {
			continue
		}
		if cur, ok := latest[tpl.TemplateCode]; !ok || tpl.Version > cur.Version {
			latest[tpl.TemplateCode] = tpl
		}
	}
	var out []models.ReportTemplate
	for _, tpl := range latest {
		out = append(out, *tpl)
	}
	return out, nil
}

func (r *templateRepoStub) MaxVersion(ctx context.Context, code string) (int, error) {
	max := 0
	for _, tpl := range r.rows {
		if tpl.TemplateCode == code && tpl.Version > max {
			max = tpl.Version
		}
	}
	return max, nil
}

func newTemplateServiceForTest() (*TemplateService, *templateRepoStub) {
	repo := &templateRepoStub{}
	return NewTemplateService(repo, nil, nil, 0, zap.NewNop()), repo
}

func TestPublishCreatesVersionLineage(t *testing.T) {
	svc, _ := newTemplateServiceForTest()

	first, err := svc.Publish(context.Background(), dto.PublishTemplateRequest{
		TemplateCode: "semester_report",
		ReportType:   "SEMESTER",
		HTMLBody:     "<p>{{student_name}}</p>",
	}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)
	assert.Nil(t, first.ParentTemplateID)

	second, err := svc.Publish(context.Background(), dto.PublishTemplateRequest{
		TemplateCode: "semester_report",
		ReportType:   "SEMESTER",
		HTMLBody:     "<p>{{student_name}} v2</p>",
	}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)
	require.NotNil(t, second.ParentTemplateID)
	assert.Equal(t, first.ID, *second.ParentTemplateID)

	resolved, err := svc.GetTemplate(context.Background(), "semester_report")
	require.NoError(t, err)
	assert.Equal(t, 2, resolved.Version)
}

func TestGetTemplateNotFound(t *testing.T) {
	svc, _ := newTemplateServiceForTest()
	_, err := svc.GetTemplate(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrTemplateNotFound))
}

func TestGetTemplateVersionResolvesOldVersion(t *testing.T) {
	svc, _ := newTemplateServiceForTest()
	_, err := svc.Publish(context.Background(), dto.PublishTemplateRequest{
		TemplateCode: "exit_report", ReportType: "EXIT", HTMLBody: "v1",
	}, "admin-1")
	require.NoError(t, err)
	_, err = svc.Publish(context.Background(), dto.PublishTemplateRequest{
		TemplateCode: "exit_report", ReportType: "EXIT", HTMLBody: "v2",
	}, "admin-1")
	require.NoError(t, err)

	old, err := svc.GetTemplateVersion(context.Background(), "exit_report", 1)
	require.NoError(t, err)
	assert.Equal(t, "v1", old.HTMLBody)
}

func TestListAvailableFiltersByRole(t *testing.T) {
	svc, _ := newTemplateServiceForTest()
	_, err := svc.Publish(context.Background(), dto.PublishTemplateRequest{
		TemplateCode: "semester_report",
		ReportType:   "SEMESTER",
		HTMLBody:     "x",
	}, "admin-1")
	require.NoError(t, err)
	_, err = svc.Publish(context.Background(), dto.PublishTemplateRequest{
		TemplateCode: "finance_report",
		ReportType:   "FINANCE",
		HTMLBody:     "x",
		AllowedRoles: models.AllowedRoles{models.RoleAdmin},
	}, "admin-1")
	require.NoError(t, err)

	forTeacher, err := svc.ListAvailable(context.Background(), models.RoleTeacher)
	require.NoError(t, err)
	require.Len(t, forTeacher, 1)
	assert.Equal(t, "semester_report", forTeacher[0].TemplateCode)

	forAdmin, err := svc.ListAvailable(context.Background(), models.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, forAdmin, 2)
}
