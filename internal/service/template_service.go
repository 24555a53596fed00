package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/haksa-io/student-records-api/internal/dto"
	"github.com/haksa-io/student-records-api/internal/models"
	appErrors "github.com/haksa-io/student-records-api/pkg/errors"
)

type templateStore interface {
	Create(ctx context.Context, tpl *models.ReportTemplate) error
	FindLatestActiveByCode(ctx context.Context, code string) (*models.ReportTemplate, error)
	FindVersion(ctx context.Context, code string, version int) (*models.ReportTemplate, error)
	ListActive(ctx context.Context) ([]models.ReportTemplate, error)
	MaxVersion(ctx context.Context, code string) (int, error)
}

// TemplateService resolves report templates and publishes new versions.
// Published versions are immutable; editing creates a successor row linked via
// parent_template_id, and code resolution picks the newest active version.
type TemplateService struct {
	repo     templateStore
	redis    *redis.Client
	metrics  *MetricsService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewTemplateService constructs the template service. The redis client is
// optional; without it every lookup goes to the database.
func NewTemplateService(repo templateStore, redisClient *redis.Client, metrics *MetricsService, cacheTTL time.Duration, logger *zap.Logger) *TemplateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &TemplateService{repo: repo, redis: redisClient, metrics: metrics, cacheTTL: cacheTTL, logger: logger}
}

func templateCacheKey(code string) string {
	return "report_template:" + code
}

// GetTemplate resolves the latest active version of a code, consulting the
// cache first.
func (s *TemplateService) GetTemplate(ctx context.Context, code string) (*models.ReportTemplate, error) {
	if cached := s.fromCache(ctx, code); cached != nil {
		if s.redis != nil {
			s.metrics.RecordTemplateCacheLookup(true)
		}
		return cached, nil
	}
	if s.redis != nil {
		s.metrics.RecordTemplateCacheLookup(false)
	}
	tpl, err := s.repo.FindLatestActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrTemplateNotFound, fmt.Sprintf("template %q not found", code))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report template")
	}
	s.toCache(ctx, code, tpl)
	return tpl, nil
}

// GetTemplateVersion resolves a specific published version, bypassing the
// cache. Old versions are read rarely (audit, replay).
func (s *TemplateService) GetTemplateVersion(ctx context.Context, code string, version int) (*models.ReportTemplate, error) {
	tpl, err := s.repo.FindVersion(ctx, code, version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrTemplateNotFound, fmt.Sprintf("template %q version %d not found", code, version))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report template version")
	}
	return tpl, nil
}

// ListAvailable returns the latest active version of each code visible to the
// given role. An empty allowed_roles list admits every role.
func (s *TemplateService) ListAvailable(ctx context.Context, role models.UserRole) ([]dto.TemplateSummary, error) {
	tpls, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list report templates")
	}
	summaries := make([]dto.TemplateSummary, 0, len(tpls))
	for _, tpl := range tpls {
		if !tpl.AllowedRoles.Contains(role) {
			continue
		}
		summaries = append(summaries, dto.TemplateSummary{
			ID:           tpl.ID,
			TemplateCode: tpl.TemplateCode,
			ReportType:   tpl.ReportType,
			Version:      tpl.Version,
			Active:       tpl.Active,
			IsDefault:    tpl.IsDefault,
		})
	}
	return summaries, nil
}

// Publish stores a new template version. When prior versions of the code
// exist the new row points at the latest one through parent_template_id.
func (s *TemplateService) Publish(ctx context.Context, req dto.PublishTemplateRequest, actorID string) (*models.ReportTemplate, error) {
	if req.HTMLBody == "" {
		return nil, appErrors.Validation("html_body", "template body is required")
	}
	latest, err := s.repo.MaxVersion(ctx, req.TemplateCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve template version")
	}

	tpl := &models.ReportTemplate{
		TemplateCode: req.TemplateCode,
		ReportType:   req.ReportType,
		Version:      latest + 1,
		HTMLBody:     req.HTMLBody,
		CSS:          req.CSS,
		DataSources:  req.DataSources,
		Labels:       req.Labels,
		AllowedRoles: req.AllowedRoles,
		Active:       true,
		IsDefault:    req.IsDefault,
		CreatedBy:    actorID,
	}
	if latest > 0 {
		parent, err := s.repo.FindVersion(ctx, req.TemplateCode, latest)
		if err == nil {
			tpl.ParentTemplateID = &parent.ID
		}
	}
	if err := s.repo.Create(ctx, tpl); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish template")
	}
	s.invalidate(ctx, req.TemplateCode)
	s.logger.Sugar().Infow("template published", "code", tpl.TemplateCode, "version", tpl.Version, "actor", actorID)
	return tpl, nil
}

func (s *TemplateService) fromCache(ctx context.Context, code string) *models.ReportTemplate {
	if s.redis == nil {
		return nil
	}
	payload, err := s.redis.Get(ctx, templateCacheKey(code)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Sugar().Warnw("template cache get failed", "code", code, "error", err)
		}
		return nil
	}
	var tpl models.ReportTemplate
	if err := json.Unmarshal(payload, &tpl); err != nil {
		s.logger.Sugar().Warnw("template cache payload invalid", "code", code, "error", err)
		return nil
	}
	return &tpl
}

func (s *TemplateService) toCache(ctx context.Context, code string, tpl *models.ReportTemplate) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(tpl)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, templateCacheKey(code), payload, s.cacheTTL).Err(); err != nil {
		s.logger.Sugar().Warnw("template cache set failed", "code", code, "error", err)
	}
}

func (s *TemplateService) invalidate(ctx context.Context, code string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, templateCacheKey(code)).Err(); err != nil {
		s.logger.Sugar().Warnw("template cache invalidate failed", "code", code, "error", err)
	}
}
