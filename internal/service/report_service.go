package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/haksa-io/student-records-api/internal/dto"
	"github.com/haksa-io/student-records-api/internal/models"
	"github.com/haksa-io/student-records-api/internal/repository"
	appErrors "github.com/haksa-io/student-records-api/pkg/errors"
	"github.com/haksa-io/student-records-api/pkg/jobs"
	"github.com/haksa-io/student-records-api/pkg/pdfrender"
)

type generatedReportStore interface {
	Create(ctx context.Context, report *models.GeneratedReport) error
	GetByID(ctx context.Context, id string) (*models.GeneratedReport, error)
	MarkCompleted(ctx context.Context, id string, params repository.CompleteParams) error
	MarkFailed(ctx context.Context, id, errorMessage string, durationMs int64) error
	MarkArchived(ctx context.Context, id string) error
	ListByStudent(ctx context.Context, studentID string, limit int) ([]models.GeneratedReport, error)
	TouchAccess(ctx context.Context, id string) error
	UpdateSharedWith(ctx context.Context, id string, shared models.SharedWith) error
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.GeneratedReport, error)
}

type templateResolver interface {
	GetTemplate(ctx context.Context, code string) (*models.ReportTemplate, error)
}

type aggregateLoader interface {
	LoadAggregate(ctx context.Context, studentID string, opts models.AggregateOptions) (*models.StudentAggregate, error)
}

type reportBinder interface {
	Bind(tpl *models.ReportTemplate, aggregate *models.StudentAggregate, language string) map[string]string
}

type artifactStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type downloadSigner interface {
	Generate(reportID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (reportID, relPath string, expiresAt time.Time, err error)
}

type renderDispatcher interface {
	Enqueue(job jobs.Job) error
}

// ReportService orchestrates report generation: aggregate load, binding,
// HTML merge, rasterization through the renderer pool, artifact persistence
// and the GeneratedReport status lifecycle.
type ReportService struct {
	reports   generatedReportStore
	templates templateResolver
	aggregate aggregateLoader
	binder    reportBinder
	renderer  *pdfrender.Pool
	storage   artifactStorage
	signer    downloadSigner
	queue     renderDispatcher
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ReportServiceConfig
}

// ReportServiceConfig tunes artifact retention and the page setup forwarded
// to the renderer.
type ReportServiceConfig struct {
	ArtifactTTL     time.Duration
	CleanupInterval time.Duration
	PageOptions     pdfrender.PageOptions
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// NewReportService constructs the report service.
func NewReportService(
	reports generatedReportStore,
	templates templateResolver,
	aggregate aggregateLoader,
	binder reportBinder,
	renderer *pdfrender.Pool,
	storage artifactStorage,
	signer downloadSigner,
	queue renderDispatcher,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg ReportServiceConfig,
) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ArtifactTTL <= 0 {
		cfg.ArtifactTTL = 90 * 24 * time.Hour
	}
	if cfg.PageOptions.Format == "" {
		cfg.PageOptions.Format = "A4"
	}
	return &ReportService{
		reports:   reports,
		templates: templates,
		aggregate: aggregate,
		binder:    binder,
		renderer:  renderer,
		storage:   storage,
		signer:    signer,
		queue:     queue,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// GenerateReport runs one full generation attempt synchronously. The row is
// created in GENERATING before any heavy work; every failure path after that
// lands in MarkFailed with the captured message. A missing template fails
// fast before the row exists, so no FAILED row is left for a typo'd code.
// Concurrent identical requests are not deduplicated; each call yields its
// own row.
func (s *ReportService) GenerateReport(ctx context.Context, req dto.GenerateReportRequest, actorID string, role models.UserRole) (*dto.ReportResponse, error) {
	tpl, err := s.templates.GetTemplate(ctx, req.TemplateCode)
	if err != nil {
		return nil, err
	}
	if !tpl.AllowedRoles.Contains(role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "template is not available for this role")
	}
	language := req.Language
	if language == "" {
		language = "ko"
	}

	report := &models.GeneratedReport{
		StudentID:    req.StudentID,
		TemplateID:   tpl.ID,
		TemplateCode: tpl.TemplateCode,
		Language:     language,
		PeriodStart:  req.PeriodStart,
		PeriodEnd:    req.PeriodEnd,
		GeneratedBy:  actorID,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report row")
	}

	started := time.Now()
	if err := s.produce(ctx, report, tpl); err != nil {
		durationMs := time.Since(started).Milliseconds()
		s.metrics.RecordReportGeneration(tpl.TemplateCode, "failed")
		if markErr := s.reports.MarkFailed(ctx, report.ID, err.Error(), durationMs); markErr != nil {
			s.logger.Sugar().Errorw("failed to record report failure", "report_id", report.ID, "error", markErr)
		}
		s.logger.Sugar().Warnw("report generation failed", "report_id", report.ID, "template", tpl.TemplateCode, "error", err)
		return nil, appErrors.FromError(err)
	}

	s.metrics.RecordReportGeneration(tpl.TemplateCode, "completed")
	return s.GetReport(ctx, report.ID, actorID, role)
}

// produce runs the pipeline stages for one row and commits the COMPLETED
// transition only after both artifacts are durably written.
func (s *ReportService) produce(ctx context.Context, report *models.GeneratedReport, tpl *models.ReportTemplate) error {
	started := time.Now()

	aggregate, err := s.aggregate.LoadAggregate(ctx, report.StudentID, models.AggregateOptions{
		PeriodStart: report.PeriodStart,
		PeriodEnd:   report.PeriodEnd,
	})
	if err != nil {
		return err
	}

	bindings := s.binder.Bind(tpl, aggregate, report.Language)
	html, err := MergeHTML(tpl, bindings)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "template merge failed")
	}

	basePath := artifactBasePath(report)
	htmlPath := basePath + ".html"
	if _, err := s.storage.Save(htmlPath, []byte(html)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistenceFailed.Code, appErrors.ErrPersistenceFailed.Status, "failed to persist html artifact")
	}

	renderStarted := time.Now()
	s.metrics.RenderSlotAcquired()
	pdf, err := s.renderer.Render(ctx, html, s.cfg.PageOptions)
	s.metrics.RenderSlotReleased()
	s.metrics.ObserveRender(time.Since(renderStarted))
	if err != nil {
		s.removeArtifacts(htmlPath, "")
		var renderErr *pdfrender.RenderError
		if errors.As(err, &renderErr) && renderErr.Timeout {
			return appErrors.Wrap(err, appErrors.ErrRenderFailed.Code, appErrors.ErrRenderFailed.Status, "rendering timed out")
		}
		return appErrors.Wrap(err, appErrors.ErrRenderFailed.Code, appErrors.ErrRenderFailed.Status, "rendering failed")
	}

	pdfPath := basePath + ".pdf"
	if _, err := s.storage.Save(pdfPath, pdf); err != nil {
		s.removeArtifacts(htmlPath, "")
		return appErrors.Wrap(err, appErrors.ErrPersistenceFailed.Code, appErrors.ErrPersistenceFailed.Status, "failed to persist pdf artifact")
	}

	hash := sha256.Sum256(pdf)
	reportData, err := json.Marshal(bindings)
	if err != nil {
		reportData = []byte("{}")
	}
	expiresAt := time.Now().UTC().Add(s.cfg.ArtifactTTL)
	err = s.reports.MarkCompleted(ctx, report.ID, repository.CompleteParams{
		ReportData:  reportData,
		HTMLPath:    htmlPath,
		PDFPath:     pdfPath,
		FileSize:    int64(len(pdf)),
		ContentHash: "sha256:" + hex.EncodeToString(hash[:]),
		DurationMs:  time.Since(started).Milliseconds(),
		ExpiresAt:   &expiresAt,
	})
	if err != nil {
		// the row must never claim artifacts it does not own
		s.removeArtifacts(htmlPath, pdfPath)
		return appErrors.Wrap(err, appErrors.ErrPersistenceFailed.Code, appErrors.ErrPersistenceFailed.Status, "failed to commit report completion")
	}

	s.logger.Sugar().Infow("report generated",
		"report_id", report.ID,
		"template", tpl.TemplateCode,
		"student_id", report.StudentID,
		"size", len(pdf),
		"duration_ms", time.Since(started).Milliseconds())
	return nil
}

// EnqueueGeneration runs the fast-fail checks, creates the row and hands the
// heavy pipeline to the background queue. The response carries the row in
// GENERATING state for polling.
func (s *ReportService) EnqueueGeneration(ctx context.Context, req dto.GenerateReportRequest, actorID string, role models.UserRole) (*dto.ReportResponse, error) {
	tpl, err := s.templates.GetTemplate(ctx, req.TemplateCode)
	if err != nil {
		return nil, err
	}
	if !tpl.AllowedRoles.Contains(role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "template is not available for this role")
	}
	language := req.Language
	if language == "" {
		language = "ko"
	}

	report := &models.GeneratedReport{
		StudentID:    req.StudentID,
		TemplateID:   tpl.ID,
		TemplateCode: tpl.TemplateCode,
		Language:     language,
		PeriodStart:  req.PeriodStart,
		PeriodEnd:    req.PeriodEnd,
		GeneratedBy:  actorID,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report row")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: report.ID, Type: "report.generate"}); err != nil {
		if markErr := s.reports.MarkFailed(ctx, report.ID, "failed to enqueue generation", 0); markErr != nil {
			s.logger.Sugar().Errorw("failed to record enqueue failure", "report_id", report.ID, "error", markErr)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report generation")
	}
	return s.toResponse(report, false), nil
}

// GetReport returns one report's state, enforcing ownership and sharing.
func (s *ReportService) GetReport(ctx context.Context, id, actorID string, role models.UserRole) (*dto.ReportResponse, error) {
	report, err := s.loadAccessible(ctx, id, actorID, role)
	if err != nil {
		return nil, err
	}
	return s.toResponse(report, true), nil
}

// ListReports returns a student's generation attempts, newest first.
func (s *ReportService) ListReports(ctx context.Context, studentID, actorID string, role models.UserRole, limit int) ([]dto.ReportResponse, error) {
	reports, err := s.reports.ListByStudent(ctx, studentID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	out := make([]dto.ReportResponse, 0, len(reports))
	for i := range reports {
		if !reports[i].AccessibleBy(actorID, role) {
			continue
		}
		out = append(out, *s.toResponse(&reports[i], true))
	}
	return out, nil
}

// Download resolves a signed token into the stored PDF artifact and bumps the
// access counters.
func (s *ReportService) Download(ctx context.Context, token, actorID string, role models.UserRole) (*ReportDownload, error) {
	reportID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	report, err := s.loadAccessible(ctx, reportID, actorID, role)
	if err != nil {
		return nil, err
	}
	if report.Status != models.ReportStatusCompleted && report.Status != models.ReportStatusArchived {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report is not ready for download")
	}
	if report.PDFPath == nil || *report.PDFPath != relPath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token does not match the report artifact")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistenceFailed.Code, appErrors.ErrPersistenceFailed.Status, "failed to open report artifact")
	}
	if err := s.reports.TouchAccess(ctx, report.ID); err != nil {
		s.logger.Sugar().Warnw("failed to bump report access", "report_id", report.ID, "error", err)
	}
	return &ReportDownload{
		File:        file,
		Filename:    path.Base(relPath),
		ContentType: "application/pdf",
		ExpiresAt:   expiresAt,
	}, nil
}

// Share extends a completed report's sharing list.
func (s *ReportService) Share(ctx context.Context, id string, userIDs []string, actorID string, role models.UserRole) error {
	report, err := s.loadAccessible(ctx, id, actorID, role)
	if err != nil {
		return err
	}
	if report.Status != models.ReportStatusCompleted {
		return appErrors.Clone(appErrors.ErrConflict, "only completed reports can be shared")
	}
	shared := report.SharedWith
	for _, userID := range userIDs {
		if userID != "" && !shared.Contains(userID) {
			shared = append(shared, userID)
		}
	}
	if err := s.reports.UpdateSharedWith(ctx, id, shared); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update report sharing")
	}
	return nil
}

// Archive performs the COMPLETED to ARCHIVED administrative transition.
func (s *ReportService) Archive(ctx context.Context, id string) error {
	if err := s.reports.MarkArchived(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "report is not in an archivable state")
	}
	return nil
}

// StartCleanup boots a goroutine that removes expired report artifacts.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ReportService) cleanupExpired(ctx context.Context) {
	expired, err := s.reports.ListExpired(ctx, time.Now().UTC(), 100)
	if err != nil {
		s.logger.Sugar().Warnw("cleanup list failed", "error", err)
		return
	}
	for _, report := range expired {
		if report.HTMLPath != nil {
			if err := s.storage.Delete(*report.HTMLPath); err != nil {
				s.logger.Sugar().Warnw("cleanup delete failed", "report_id", report.ID, "error", err)
			}
		}
		if report.PDFPath != nil {
			if err := s.storage.Delete(*report.PDFPath); err != nil {
				s.logger.Sugar().Warnw("cleanup delete failed", "report_id", report.ID, "error", err)
			}
		}
	}
	if _, err := s.storage.CleanupOlderThan(s.cfg.ArtifactTTL); err != nil {
		s.logger.Sugar().Warnw("filesystem cleanup failed", "error", err)
	}
}

func (s *ReportService) loadAccessible(ctx context.Context, id, actorID string, role models.UserRole) (*models.GeneratedReport, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	if !report.AccessibleBy(actorID, role) {
		return nil, appErrors.ErrForbidden
	}
	return report, nil
}

func (s *ReportService) toResponse(report *models.GeneratedReport, withDownload bool) *dto.ReportResponse {
	resp := &dto.ReportResponse{
		ID:           report.ID,
		StudentID:    report.StudentID,
		TemplateCode: report.TemplateCode,
		Language:     report.Language,
		Status:       report.Status,
		Error:        report.ErrorMessage,
		FileSize:     report.FileSize,
		ContentHash:  report.ContentHash,
		DurationMs:   report.DurationMillis,
		CreatedAt:    report.CreatedAt,
		CompletedAt:  report.CompletedAt,
	}
	if withDownload && report.Status == models.ReportStatusCompleted && report.PDFPath != nil {
		token, _, err := s.signer.Generate(report.ID, *report.PDFPath)
		if err != nil {
			s.logger.Sugar().Warnw("failed to sign download url", "report_id", report.ID, "error", err)
		} else {
			url := "/downloads/" + token
			resp.DownloadURL = &url
		}
	}
	return resp
}

func (s *ReportService) removeArtifacts(htmlPath, pdfPath string) {
	if htmlPath != "" {
		if err := s.storage.Delete(htmlPath); err != nil {
			s.logger.Sugar().Warnw("failed to remove orphaned artifact", "path", htmlPath, "error", err)
		}
	}
	if pdfPath != "" {
		if err := s.storage.Delete(pdfPath); err != nil {
			s.logger.Sugar().Warnw("failed to remove orphaned artifact", "path", pdfPath, "error", err)
		}
	}
}

// artifactBasePath derives a collision-free relative path for a report's
// artifacts from its identity and creation time.
func artifactBasePath(report *models.GeneratedReport) string {
	ts := report.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return fmt.Sprintf("%s/%s_%s_%s_%s",
		ts.Format("2006/01"),
		report.StudentID,
		report.TemplateCode,
		report.Language,
		ts.Format("20060102T150405"))
}

// ReportWorker drives queued generation jobs through the same pipeline the
// synchronous path uses.
type ReportWorker struct {
	service   *ReportService
	templates templateResolver
	logger    *zap.Logger
}

// NewReportWorker constructs a worker.
func NewReportWorker(service *ReportService, templates templateResolver, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportWorker{service: service, templates: templates, logger: logger}
}

// Handle processes one queued report job. The job ID is the GeneratedReport
// row created at enqueue time.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	report, err := w.service.reports.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if report.Status != models.ReportStatusGenerating {
		// a retry raced a finished attempt; nothing to do
		return nil
	}
	tpl, err := w.templates.GetTemplate(ctx, report.TemplateCode)
	if err != nil {
		if markErr := w.service.reports.MarkFailed(ctx, report.ID, err.Error(), 0); markErr != nil {
			w.logger.Sugar().Errorw("failed to record worker failure", "report_id", report.ID, "error", markErr)
		}
		return err
	}
	started := time.Now()
	if err := w.service.produce(ctx, report, tpl); err != nil {
		w.service.metrics.RecordReportGeneration(report.TemplateCode, "failed")
		if markErr := w.service.reports.MarkFailed(ctx, report.ID, err.Error(), time.Since(started).Milliseconds()); markErr != nil {
			w.logger.Sugar().Errorw("failed to record worker failure", "report_id", report.ID, "error", markErr)
		}
		return err
	}
	w.service.metrics.RecordReportGeneration(report.TemplateCode, "completed")
	return nil
}
