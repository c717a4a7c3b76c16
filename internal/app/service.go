// Package service implements the reporting use cases behind the HTTP API:
// spreadsheet uploads, the dashboard summary and the paginated listings.
package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/perfboard/internal/adapters/archive"
	"github.com/okian/perfboard/internal/adapters/cache"
	"github.com/okian/perfboard/internal/adapters/repository"
	"github.com/okian/perfboard/internal/adapters/spreadsheet"
	"github.com/okian/perfboard/internal/domain/dedupe"
	"github.com/okian/perfboard/internal/domain/model"
	"github.com/okian/perfboard/internal/domain/summary"
	"github.com/okian/perfboard/internal/domain/types"
	"github.com/okian/perfboard/pkg/logger"
	"github.com/okian/perfboard/pkg/metrics"
)

const (
	defaultMaxUploadMB     = 10
	defaultMaxBatchFiles   = 20
	defaultRankingLimit    = 10
	defaultPageSize        = 100
	defaultMaxPageSize     = 1000
	defaultStudentPageSize = 50
)

// UploadRequest is one file handed over by the transport layer.
type UploadRequest struct {
	Filename   string
	Data       []byte
	Kind       string // model.KindPerformance (default) or model.KindStudents
	UploadedBy string
	BatchID    string
}

// Listing is one page of a listing plus the total row count.
type Listing[T any] struct {
	Items    []T
	Count    int64
	Page     int
	PageSize int
}

// Stats is the payload behind /stats.
type Stats struct {
	Counts          repository.Counts `json:"counts"`
	ReferenceMonths int               `json:"reference_months"`
	LastUpload      *model.UploadLog  `json:"last_upload,omitempty"`
	Uptime          string            `json:"uptime"`
}

// Service implements the API dependencies of the reporting backend.
type Service struct {
	store   repository.Store
	cache   cache.SummaryCache
	archive archive.Archiver
	logger  logger.Logger

	maxUploadMB     int
	maxBatchFiles   int
	rankingLimit    int
	pageSize        int
	maxPageSize     int
	studentPageSize int

	startedAt time.Time
}

// New constructs a Service. A store must be supplied with WithStore.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		cache:           cache.Nop{},
		archive:         archive.Nop{},
		logger:          logger.NewNop(),
		maxUploadMB:     defaultMaxUploadMB,
		maxBatchFiles:   defaultMaxBatchFiles,
		rankingLimit:    defaultRankingLimit,
		pageSize:        defaultPageSize,
		maxPageSize:     defaultMaxPageSize,
		studentPageSize: defaultStudentPageSize,
		startedAt:       time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		return nil, fmt.Errorf("service.New: %w: store is required", ErrNotConfigured)
	}
	return s, nil
}

// Upload validates, parses and stores one spreadsheet.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*types.UploadResult, error) {
	start := time.Now()
	kind := strings.TrimSpace(strings.ToLower(req.Kind))
	if kind == "" {
		kind = model.KindPerformance
	}
	log := s.logger.With(logger.String("filename", req.Filename), logger.String("kind", kind))

	if err := s.checkFile(kind, req); err != nil {
		metrics.RecordUpload(kind, model.UploadFailed)
		log.Warn(ctx, "upload rejected", logger.String("reason", err.Message))
		return nil, err
	}

	uploadID := uuid.NewString()
	log = log.With(logger.String("upload_id", uploadID))

	var (
		res *types.UploadResult
		err error
	)
	switch kind {
	case model.KindStudents:
		res, err = s.storeStudents(ctx, uploadID, req)
	default:
		res, err = s.storePerformance(ctx, uploadID, req)
	}
	metrics.RecordUploadDuration(kind, float64(time.Since(start).Microseconds())/1000)

	if err != nil {
		metrics.RecordUpload(kind, model.UploadFailed)
		var verr *spreadsheet.Error
		if errors.As(err, &verr) {
			log.Warn(ctx, "upload failed validation", logger.String("reason", verr.Message), logger.Strings("details", verr.Details))
			return nil, invalid(verr.Message, verr.Details...)
		}
		log.Error(ctx, "upload failed", logger.Error(err))
		metrics.RecordErrorByComponent("service", "upload_failed")
		s.recordFailure(ctx, uploadID, kind, req, err)
		return nil, processing(err)
	}

	metrics.RecordUpload(kind, model.UploadSuccess)
	metrics.RecordRowsStored(kind, res.CreatedCount)
	metrics.RecordRowWarnings(kind, len(res.Warnings))
	s.keep(ctx, archive.Entry{UploadID: uploadID, Filename: req.Filename, Kind: kind, Digest: dedupe.Digest(req.Data)}, req.Data)

	log.Info(ctx, "upload stored",
		logger.Int("rows", res.CreatedCount),
		logger.Int("warnings", len(res.Warnings)),
		logger.Strings("reference_dates", res.ReferenceDates),
		logger.Duration("took", time.Since(start)))
	return res, nil
}

func (s *Service) checkFile(kind string, req UploadRequest) *UploadError {
	if kind != model.KindPerformance && kind != model.KindStudents {
		return invalid(MsgUnknownKind, kind)
	}
	if !spreadsheet.Supported(req.Filename) {
		return invalid(spreadsheet.MsgUnsupportedFormat, filepath.Ext(req.Filename))
	}
	if len(req.Data) > s.maxUploadMB<<20 {
		return invalid(fmt.Sprintf(msgFileTooLarge, s.maxUploadMB))
	}
	if len(req.Data) == 0 {
		return invalid(MsgEmptyFile)
	}
	return nil
}

func (s *Service) storePerformance(ctx context.Context, uploadID string, req UploadRequest) (*types.UploadResult, error) {
	sheet, err := spreadsheet.ParsePerformance(req.Filename, req.Data)
	if err != nil {
		return nil, err
	}
	ulog := &model.UploadLog{
		UploadID:       uploadID,
		BatchID:        req.BatchID,
		Kind:           model.KindPerformance,
		ReferenceDate:  sheet.ReferenceDates[0],
		Filename:       req.Filename,
		RowCount:       len(sheet.Rows),
		Status:         model.UploadSuccess,
		UploadedByName: req.UploadedBy,
	}
	if err := s.store.ReplaceMonths(ctx, sheet.Rows, ulog); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return &types.UploadResult{
		Message:        MsgUploadDone,
		UploadID:       uploadID,
		Kind:           model.KindPerformance,
		ReferenceDates: sheet.ReferenceDates,
		CreatedCount:   len(sheet.Rows),
		Warnings:       nonEmpty(sheet.Warnings),
	}, nil
}

func (s *Service) storeStudents(ctx context.Context, uploadID string, req UploadRequest) (*types.UploadResult, error) {
	sheet, err := spreadsheet.ParseStudents(req.Filename, req.Data)
	if err != nil {
		return nil, err
	}
	ulog := &model.UploadLog{
		UploadID:       uploadID,
		BatchID:        req.BatchID,
		Kind:           model.KindStudents,
		Filename:       req.Filename,
		RowCount:       len(sheet.Rows),
		Status:         model.UploadSuccess,
		UploadedByName: req.UploadedBy,
	}
	if err := s.store.UpsertStudents(ctx, sheet.Rows, ulog); err != nil {
		return nil, err
	}
	return &types.UploadResult{
		Message:      MsgUploadDone,
		UploadID:     uploadID,
		Kind:         model.KindStudents,
		CreatedCount: len(sheet.Rows),
		Warnings:     nonEmpty(sheet.Warnings),
	}, nil
}

// recordFailure writes a failed UploadLog. A store that cannot write the
// log either is only logged; the caller already has an error to return.
func (s *Service) recordFailure(ctx context.Context, uploadID, kind string, req UploadRequest, cause error) {
	ulog := &model.UploadLog{
		UploadID:       uploadID,
		BatchID:        req.BatchID,
		Kind:           kind,
		Filename:       req.Filename,
		Status:         model.UploadFailed,
		ErrorMessage:   cause.Error(),
		UploadedByName: req.UploadedBy,
	}
	if err := s.store.CreateUploadLog(ctx, ulog); err != nil {
		s.logger.Error(ctx, "failed to record upload failure", logger.String("upload_id", uploadID), logger.Error(err))
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		metrics.RecordCacheError()
		s.logger.Warn(ctx, "summary cache invalidation failed", logger.Error(err))
	}
}

func (s *Service) keep(ctx context.Context, e archive.Entry, data []byte) {
	if err := s.archive.Put(ctx, e, data); err != nil {
		metrics.RecordArchiveFailure()
		s.logger.Warn(ctx, "raw upload not archived", logger.String("upload_id", e.UploadID), logger.Error(err))
	}
}

// UploadBatch stores every file independently. A failing file never stops
// the others; a file whose content already appeared earlier in the batch
// is rejected as a duplicate.
func (s *Service) UploadBatch(ctx context.Context, files []UploadRequest, uploadedBy string) (*types.BatchResult, error) {
	if len(files) == 0 {
		return nil, invalid(MsgNoFile)
	}
	if len(files) > s.maxBatchFiles {
		return nil, invalid(fmt.Sprintf(msgTooManyFiles, s.maxBatchFiles))
	}
	metrics.RecordBatchSize(len(files))

	batchID := uuid.NewString()
	seen := dedupe.New(dedupe.WithMaxSize(len(files)))
	out := &types.BatchResult{BatchID: batchID, Files: make([]types.FileResult, 0, len(files))}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f.BatchID = batchID
		if f.UploadedBy == "" {
			f.UploadedBy = uploadedBy
		}
		fr := types.FileResult{Filename: f.Filename}

		digest := dedupe.Digest(f.Data)
		if len(f.Data) > 0 && seen.SeenAndRecord(digest) {
			metrics.RecordDuplicateUpload()
			fr.Error = MsgDuplicateFile
			out.ErrorCount++
			out.Files = append(out.Files, fr)
			continue
		}

		res, err := s.Upload(ctx, f)
		if err != nil {
			var uerr *UploadError
			if errors.As(err, &uerr) {
				fr.Error, fr.Details = uerr.Message, uerr.Details
			} else {
				fr.Error = err.Error()
			}
			// A storage failure says nothing about the content, so an
			// identical later file deserves its own attempt.
			if errors.Is(err, ErrProcessing) {
				seen.Unrecord(digest)
			}
			out.ErrorCount++
			out.Files = append(out.Files, fr)
			continue
		}
		fr.Success, fr.Result = true, res
		out.SuccessCount++
		out.TotalCreated += res.CreatedCount
		out.Files = append(out.Files, fr)
	}

	out.Message = fmt.Sprintf(msgBatchSummary, out.SuccessCount, out.ErrorCount, out.TotalCreated)
	s.logger.Info(ctx, "batch upload finished",
		logger.String("batch_id", batchID),
		logger.Int("success", out.SuccessCount),
		logger.Int("failed", out.ErrorCount),
		logger.Int("rows", out.TotalCreated))
	return out, nil
}

// Summary returns the dashboard summary for referenceDate ("" for every
// month) narrowed by f. The unfiltered aggregate is cached; filters are
// applied to a copy on every call and the ranking is cut to the
// configured limit afterwards.
func (s *Service) Summary(ctx context.Context, referenceDate string, f types.Filter) (*types.DashboardSummary, error) {
	metrics.RecordSummaryRequest()

	full, err := s.fullSummary(ctx, referenceDate)
	if err != nil {
		return nil, err
	}
	out := summary.ApplyFilters(full, f)
	out.DepartmentRanking = summary.TopDepartments(out.DepartmentRanking, s.rankingLimit)
	return out, nil
}

// Departments lists every department present for referenceDate, ranked by revenue.
func (s *Service) Departments(ctx context.Context, referenceDate string) ([]string, error) {
	full, err := s.fullSummary(ctx, referenceDate)
	if err != nil {
		return nil, err
	}
	return summary.Departments(full), nil
}

// fullSummary serves the unfiltered summary from the cache when it can.
// The generation is read before the store query so a summary computed
// across an upload is written under the invalidated generation.
func (s *Service) fullSummary(ctx context.Context, referenceDate string) (*types.DashboardSummary, error) {
	gen, genErr := s.cache.Generation(ctx)
	if genErr != nil {
		metrics.RecordCacheError()
		s.logger.Warn(ctx, "summary cache generation read failed", logger.Error(genErr))
	} else {
		cached, ok, err := s.cache.Get(ctx, gen, referenceDate)
		switch {
		case err != nil:
			metrics.RecordCacheError()
			s.logger.Warn(ctx, "summary cache read failed", logger.Error(err))
		case ok:
			metrics.RecordCacheHit()
			return cached, nil
		default:
			metrics.RecordCacheMiss()
		}
	}

	full, err := s.store.Summary(ctx, referenceDate, 0)
	if err != nil {
		metrics.RecordErrorByComponent("service", "summary_failed")
		return nil, fmt.Errorf("service.Summary: %w", err)
	}
	if genErr != nil {
		return full, nil
	}
	if err := s.cache.Set(ctx, gen, referenceDate, full); err != nil {
		metrics.RecordCacheError()
		s.logger.Warn(ctx, "summary cache write failed", logger.Error(err))
	}
	return full, nil
}

// ListData returns one page of performance rows.
func (s *Service) ListData(ctx context.Context, q repository.PerformanceQuery) (*Listing[model.PerformanceData], error) {
	q.Page, q.PageSize = s.page(q.Page, q.PageSize, s.pageSize)
	rows, total, err := s.store.ListPerformance(ctx, q)
	if err != nil {
		return nil, translate("service.ListData", err)
	}
	return &Listing[model.PerformanceData]{Items: rows, Count: total, Page: q.Page, PageSize: q.PageSize}, nil
}

// GetData returns one performance row.
func (s *Service) GetData(ctx context.Context, id uint) (*model.PerformanceData, error) {
	row, err := s.store.GetPerformance(ctx, id)
	if err != nil {
		return nil, translate("service.GetData", err)
	}
	return row, nil
}

// ListStudents returns one page of the roster.
func (s *Service) ListStudents(ctx context.Context, q repository.StudentQuery) (*Listing[model.StudentRoster], error) {
	q.Page, q.PageSize = s.page(q.Page, q.PageSize, s.studentPageSize)
	rows, total, err := s.store.ListStudents(ctx, q)
	if err != nil {
		return nil, translate("service.ListStudents", err)
	}
	return &Listing[model.StudentRoster]{Items: rows, Count: total, Page: q.Page, PageSize: q.PageSize}, nil
}

// GetStudent returns one roster row.
func (s *Service) GetStudent(ctx context.Context, id uint) (*model.StudentRoster, error) {
	row, err := s.store.GetStudent(ctx, id)
	if err != nil {
		return nil, translate("service.GetStudent", err)
	}
	return row, nil
}

// ListLogs returns one page of upload logs, newest first.
func (s *Service) ListLogs(ctx context.Context, q repository.LogQuery) (*Listing[model.UploadLog], error) {
	q.Page, q.PageSize = s.page(q.Page, q.PageSize, s.pageSize)
	rows, total, err := s.store.ListUploadLogs(ctx, q)
	if err != nil {
		return nil, translate("service.ListLogs", err)
	}
	return &Listing[model.UploadLog]{Items: rows, Count: total, Page: q.Page, PageSize: q.PageSize}, nil
}

// GetLog returns one upload log.
func (s *Service) GetLog(ctx context.Context, id uint) (*model.UploadLog, error) {
	row, err := s.store.GetUploadLog(ctx, id)
	if err != nil {
		return nil, translate("service.GetLog", err)
	}
	return row, nil
}

// UploadFile returns the archived spreadsheet behind upload log id.
// Uploads that were never archived are ErrNotFound.
func (s *Service) UploadFile(ctx context.Context, id uint) (*archive.Entry, []byte, error) {
	row, err := s.store.GetUploadLog(ctx, id)
	if err != nil {
		return nil, nil, translate("service.UploadFile", err)
	}
	e, data, err := s.archive.Get(ctx, row.UploadID)
	if errors.Is(err, archive.ErrNotFound) {
		return nil, nil, fmt.Errorf("service.UploadFile %s: %w", row.UploadID, ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("service.UploadFile %s: %w", row.UploadID, err)
	}
	return &e, data, nil
}

// GetStats reports table sizes and the latest upload, refreshing the
// record-count gauges on the way.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	counts, err := s.store.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.GetStats: %w", err)
	}
	metrics.UpdateRecordCount("performance_data", counts.Performance)
	metrics.UpdateRecordCount("student_roster", counts.Students)
	metrics.UpdateRecordCount("upload_log", counts.UploadLogs)

	st := &Stats{Counts: counts, Uptime: time.Since(s.startedAt).Round(time.Second).String()}

	full, err := s.fullSummary(ctx, "")
	if err != nil {
		return nil, err
	}
	st.ReferenceMonths = len(full.ReferenceDates)

	logs, _, err := s.store.ListUploadLogs(ctx, repository.LogQuery{Page: 1, PageSize: 1})
	if err != nil {
		return nil, fmt.Errorf("service.GetStats: %w", err)
	}
	if len(logs) > 0 {
		st.LastUpload = &logs[0]
	}
	return st, nil
}

// ClearPerformance deletes every performance row and drops cached summaries.
func (s *Service) ClearPerformance(ctx context.Context) (int64, error) {
	n, err := s.store.ClearPerformance(ctx)
	if err != nil {
		return 0, fmt.Errorf("service.ClearPerformance: %w", err)
	}
	s.invalidate(ctx)
	return n, nil
}

func (s *Service) page(page, size, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = def
	}
	if size > s.maxPageSize {
		size = s.maxPageSize
	}
	return page, size
}

func translate(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, repository.ErrInvalidPage):
		return fmt.Errorf("%s: %w", op, ErrInvalidPage)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func nonEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
