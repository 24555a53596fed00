package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/haksa-io/student-records-api/internal/dto"
	"github.com/haksa-io/student-records-api/internal/middleware"
	"github.com/haksa-io/student-records-api/internal/models"
	"github.com/haksa-io/student-records-api/internal/service"
)

type templateStoreStub struct {
	templates []*models.ReportTemplate
}

func (s *templateStoreStub) Create(ctx context.Context, tpl *models.ReportTemplate) error {
	tpl.ID = fmt.Sprintf("tpl-%d", len(s.templates)+1)
	s.templates = append(s.templates, tpl)
	return nil
}

func (s *templateStoreStub) FindLatestActiveByCode(ctx context.Context, code string) (*models.ReportTemplate, error) {
	var found *models.ReportTemplate
	for _, tpl := range s.templates {
		if tpl.TemplateCode != code || !tpl.Active {
			continue
		}
		if found == nil || tpl.Version > found.Version {
			found = tpl
		}
	}
	if found == nil {
		return nil, sql.ErrNoRows
	}
	return found, nil
}

func (s *templateStoreStub) FindVersion(ctx context.Context, code string, version int) (*models.ReportTemplate, error) {
	for _, tpl := range s.templates {
		if tpl.TemplateCode == code && tpl.Version == version {
			return tpl, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *templateStoreStub) ListActive(ctx context.Context) ([]models.ReportTemplate, error) {
	out := make([]models.ReportTemplate, 0)
	for _, tpl := range s.templates {
		if tpl.Active {
			out = append(out, *tpl)
		}
	}
	return out, nil
}

func (s *templateStoreStub) MaxVersion(ctx context.Context, code string) (int, error) {
	max := 0
	for _, tpl := range s.templates {
		if tpl.TemplateCode == code && tpl.Version > max {
			max = tpl.Version
		}
	}
	return max, nil
}

func newTemplateHandlerForTest() (*TemplateHandler, *templateStoreStub) {
	store := &templateStoreStub{}
	svc := service.NewTemplateService(store, nil, nil, 0, nil)
	return NewTemplateHandler(svc), store
}

func TestTemplateHandlerPublishAssignsVersion(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, store := newTemplateHandlerForTest()

	payload, _ := json.Marshal(dto.PublishTemplateRequest{
		TemplateCode: "visa_report",
		ReportType:   "visa",
		HTMLBody:     "<h1>{{ student_name }}</h1>",
	})
	c, w := newGinContext(http.MethodPost, "/templates", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Publish(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.templates, 1)
	require.Equal(t, 1, store.templates[0].Version)
}

func TestTemplateHandlerGetTemplateNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newTemplateHandlerForTest()

	c, w := newGinContext(http.MethodGet, "/templates/no_such_code", nil)
	c.Params = gin.Params{{Key: "code", Value: "no_such_code"}}

	handler.GetTemplate(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTemplateHandlerGetTemplateByVersion(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, store := newTemplateHandlerForTest()
	store.templates = []*models.ReportTemplate{
		{ID: "tpl-1", TemplateCode: "visa_report", Version: 1, Active: true},
		{ID: "tpl-2", TemplateCode: "visa_report", Version: 2, Active: true},
	}

	c, w := newGinContext(http.MethodGet, "/templates/visa_report?version=1", nil)
	c.Params = gin.Params{{Key: "code", Value: "visa_report"}}

	handler.GetTemplate(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.ReportTemplate `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, "tpl-1", envelope.Data.ID)
}

func TestTemplateHandlerListFiltersByRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, store := newTemplateHandlerForTest()
	store.templates = []*models.ReportTemplate{
		{ID: "tpl-1", TemplateCode: "open_report", Version: 1, Active: true},
		{ID: "tpl-2", TemplateCode: "admin_report", Version: 1, Active: true, AllowedRoles: models.AllowedRoles{models.RoleAdmin}},
	}

	c, w := newGinContext(http.MethodGet, "/templates", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})

	handler.ListTemplates(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []dto.TemplateSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	require.Equal(t, "open_report", envelope.Data[0].TemplateCode)
}
