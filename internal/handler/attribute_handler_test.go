package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/haksa-io/student-records-api/internal/dto"
	"github.com/haksa-io/student-records-api/internal/middleware"
	"github.com/haksa-io/student-records-api/internal/models"
	"github.com/haksa-io/student-records-api/internal/service"
	"github.com/haksa-io/student-records-api/pkg/crypto"
	"github.com/haksa-io/student-records-api/pkg/response"
)

type definitionStoreStub struct {
	defs map[string]*models.AttributeDefinition
}

func (s *definitionStoreStub) Create(ctx context.Context, def *models.AttributeDefinition) error {
	def.ID = "def-" + def.Key
	s.defs[def.Key] = def
	return nil
}

func (s *definitionStoreStub) FindByKey(ctx context.Context, key string) (*models.AttributeDefinition, error) {
	def, ok := s.defs[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return def, nil
}

func (s *definitionStoreStub) ExistsByKey(ctx context.Context, key string) (bool, error) {
	_, ok := s.defs[key]
	return ok, nil
}

func (s *definitionStoreStub) List(ctx context.Context, activeOnly bool) ([]models.AttributeDefinition, error) {
	out := make([]models.AttributeDefinition, 0, len(s.defs))
	for _, def := range s.defs {
		if activeOnly && !def.Active {
			continue
		}
		out = append(out, *def)
	}
	return out, nil
}

func (s *definitionStoreStub) Deactivate(ctx context.Context, key string) error {
	def, ok := s.defs[key]
	if !ok {
		return sql.ErrNoRows
	}
	def.Active = false
	return nil
}

type valueStoreStub struct {
	rows map[string]*models.StudentAttributeValue
}

func (s *valueStoreStub) Upsert(ctx context.Context, value *models.StudentAttributeValue) error {
	s.rows[value.StudentID+"/"+value.AttributeKey] = value
	return nil
}

func (s *valueStoreStub) Get(ctx context.Context, studentID, key string) (*models.StudentAttributeValue, error) {
	row, ok := s.rows[studentID+"/"+key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return row, nil
}

func (s *valueStoreStub) ListByStudent(ctx context.Context, studentID string) ([]models.StudentAttributeValue, error) {
	out := make([]models.StudentAttributeValue, 0)
	for _, row := range s.rows {
		if row.StudentID == studentID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func newAttributeHandlerForTest(t *testing.T) (*AttributeHandler, *definitionStoreStub, *valueStoreStub) {
	t.Helper()
	defs := &definitionStoreStub{defs: map[string]*models.AttributeDefinition{}}
	values := &valueStoreStub{rows: map[string]*models.StudentAttributeValue{}}
	catalog := service.NewCatalogService(defs, nil)
	sealer, err := crypto.NewSealer("handler-test-secret")
	require.NoError(t, err)
	attributes := service.NewAttributeService(values, catalog, sealer, nil)
	return NewAttributeHandler(catalog, attributes), defs, values
}

func TestAttributeHandlerDefineAttribute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, defs, _ := newAttributeHandlerForTest(t)

	payload, _ := json.Marshal(dto.DefineAttributeRequest{
		Key:         "visa_type",
		DisplayName: map[string]string{"ko": "비자 종류"},
		DataType:    models.AttributeTypeText,
	})
	c, w := newGinContext(http.MethodPost, "/attributes", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.DefineAttribute(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, defs.defs, "visa_type")
}

func TestAttributeHandlerDefineAttributeRejectsBadKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _, _ := newAttributeHandlerForTest(t)

	payload, _ := json.Marshal(dto.DefineAttributeRequest{
		Key:         "Visa-Type",
		DisplayName: map[string]string{"ko": "비자 종류"},
		DataType:    models.AttributeTypeText,
	})
	c, w := newGinContext(http.MethodPost, "/attributes", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.DefineAttribute(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttributeHandlerWriteAndReadRoundTrip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, defs, _ := newAttributeHandlerForTest(t)
	defs.defs["home_country"] = &models.AttributeDefinition{
		ID: "def-1", Key: "home_country", DataType: models.AttributeTypeText, Active: true,
	}

	payload, _ := json.Marshal(dto.WriteAttributeRequest{Value: "Vietnam"})
	c, w := newGinContext(http.MethodPut, "/students/st-1/attributes/home_country", payload)
	c.Params = gin.Params{{Key: "id", Value: "st-1"}, {Key: "key", Value: "home_country"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})

	handler.WriteStudentAttribute(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodGet, "/students/st-1/attributes", nil)
	c.Params = gin.Params{{Key: "id", Value: "st-1"}}
	handler.ReadStudentAttributes(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.AttributeReadResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, "Vietnam", envelope.Data.Attributes["home_country"])
}

func TestAttributeHandlerWriteUnknownKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _, _ := newAttributeHandlerForTest(t)

	payload, _ := json.Marshal(dto.WriteAttributeRequest{Value: "anything"})
	c, w := newGinContext(http.MethodPut, "/students/st-1/attributes/no_such_key", payload)
	c.Params = gin.Params{{Key: "id", Value: "st-1"}, {Key: "key", Value: "no_such_key"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})

	handler.WriteStudentAttribute(c)
	require.Equal(t, http.StatusNotFound, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
}

func TestAttributeHandlerExportCatalog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, defs, _ := newAttributeHandlerForTest(t)
	defs.defs["visa_type"] = &models.AttributeDefinition{
		ID: "def-1", Key: "visa_type", DataType: models.AttributeTypeText, Active: true,
	}

	c, w := newGinContext(http.MethodGet, "/attributes/export", nil)
	handler.ExportCatalog(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	require.Contains(t, w.Body.String(), "visa_type")
}
