package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/okian/perfboard/internal/domain/model"
	"github.com/okian/perfboard/internal/domain/types"
	"github.com/okian/perfboard/pkg/logger"
	"github.com/okian/perfboard/pkg/metrics"
)

const (
	defaultBatchSize = 1000
	defaultSlowQuery = 200 * time.Millisecond
	defaultPageSize  = 100
)

// Sortable columns per listing; a leading "-" sorts descending.
var (
	performanceOrdering = map[string]bool{ //nolint:gochecknoglobals // whitelist
		"reference_date": true, "department": true, "department_code": true,
		"revenue": true, "budget": true, "expenditure": true,
		"paper_count": true, "patent_count": true, "project_count": true,
		"created_at": true, "id": true,
	}
	studentOrdering = map[string]bool{ //nolint:gochecknoglobals // whitelist
		"student_id": true, "name": true, "college": true, "department": true,
		"grade": true, "program_type": true, "enrollment_status": true,
		"admission_year": true, "created_at": true, "id": true,
	}
)

// GormStore is the SQLite-backed Store.
type GormStore struct {
	db        *gorm.DB
	log       logger.Logger
	loc       *time.Location
	batchSize int
	slowQuery time.Duration
}

var _ Store = (*GormStore)(nil)

// Open connects to the SQLite database at path (created if missing) and
// migrates the schema. Use ":memory:"-style DSNs ("file:x?mode=memory&cache=shared")
// for throwaway databases.
func Open(ctx context.Context, path string, opts ...Option) (*GormStore, error) {
	const op = "repository.Open"

	s := &GormStore{
		log:       logger.NewNop(),
		loc:       time.Local,
		batchSize: defaultBatchSize,
		slowQuery: defaultSlowQuery,
	}
	for _, o := range opts {
		o(s)
	}

	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("%s: %w: %w", op, ErrOpen, err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn(path)), &gorm.Config{
		Logger:  newSQLLogger(s.log, s.slowQuery),
		NowFunc: func() time.Time { return time.Now().In(s.loc) },
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrOpen, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrOpen, err)
	}
	// SQLite allows one writer; a single connection also keeps shared
	// in-memory databases alive for the lifetime of the store.
	sqlDB.SetMaxOpenConns(1)

	if err := db.WithContext(ctx).AutoMigrate(&model.PerformanceData{}, &model.StudentRoster{}, &model.UploadLog{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%s: migrate: %w", op, err)
	}
	s.db = db
	return s, nil
}

func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryQueryLatency(op, float64(time.Since(start).Microseconds())/1000)
}

// ReplaceMonths implements Store.
func (s *GormStore) ReplaceMonths(ctx context.Context, rows []model.PerformanceData, log *model.UploadLog) error {
	const op = "repository.ReplaceMonths"
	defer observe("replace_months", time.Now())

	months := make([]string, 0, 4)
	for _, r := range rows {
		if !slices.Contains(months, r.ReferenceDate) {
			months = append(months, r.ReferenceDate)
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(months) > 0 {
			if err := tx.Where("reference_date IN ?", months).Delete(&model.PerformanceData{}).Error; err != nil {
				return fmt.Errorf("delete months: %w", err)
			}
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, s.batchSize).Error; err != nil {
				return fmt.Errorf("insert rows: %w", err)
			}
		}
		if log != nil {
			if err := tx.Create(log).Error; err != nil {
				return fmt.Errorf("write upload log: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		metrics.RecordErrorByComponent("repository", "replace_months")
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpsertStudents implements Store.
func (s *GormStore) UpsertStudents(ctx context.Context, rows []model.StudentRoster, log *model.UploadLog) error {
	const op = "repository.UpsertStudents"
	defer observe("upsert_students", time.Now())

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(rows) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "student_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"name", "college", "department", "grade", "program_type",
					"enrollment_status", "gender", "admission_year", "advisor",
					"email", "updated_at",
				}),
			}).CreateInBatches(rows, s.batchSize).Error
			if err != nil {
				return fmt.Errorf("upsert students: %w", err)
			}
		}
		if log != nil {
			if err := tx.Create(log).Error; err != nil {
				return fmt.Errorf("write upload log: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		metrics.RecordErrorByComponent("repository", "upsert_students")
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CreateUploadLog implements Store.
func (s *GormStore) CreateUploadLog(ctx context.Context, log *model.UploadLog) error {
	if err := s.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("repository.CreateUploadLog: %w", err)
	}
	return nil
}

// ListPerformance implements Store.
func (s *GormStore) ListPerformance(ctx context.Context, q PerformanceQuery) ([]model.PerformanceData, int64, error) {
	const op = "repository.ListPerformance"
	defer observe("list_performance", time.Now())

	tx := s.db.WithContext(ctx).Model(&model.PerformanceData{})
	if q.ReferenceDate != "" {
		tx = tx.Where("reference_date = ?", q.ReferenceDate)
	}
	if q.StartDate != "" {
		tx = tx.Where("reference_date >= ?", q.StartDate)
	}
	if q.EndDate != "" {
		tx = tx.Where("reference_date <= ?", q.EndDate)
	}
	if q.Department != "" {
		tx = tx.Where("LOWER(department) LIKE ? ESCAPE '\\'", like(q.Department))
	}
	if q.Search != "" {
		p := like(q.Search)
		tx = tx.Where("(LOWER(department) LIKE ? ESCAPE '\\' OR LOWER(department_code) LIKE ? ESCAPE '\\' OR LOWER(extra_text) LIKE ? ESCAPE '\\')", p, p, p)
	}

	var rows []model.PerformanceData
	total, err := paginate(tx, q.Page, q.PageSize,
		orderBy(q.Ordering, performanceOrdering, "reference_date DESC, department ASC, id ASC"), &rows)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return rows, total, nil
}

// GetPerformance implements Store.
func (s *GormStore) GetPerformance(ctx context.Context, id uint) (*model.PerformanceData, error) {
	var row model.PerformanceData
	if err := first(s.db.WithContext(ctx), &row, id); err != nil {
		return nil, fmt.Errorf("repository.GetPerformance: %w", err)
	}
	return &row, nil
}

// ListStudents implements Store.
func (s *GormStore) ListStudents(ctx context.Context, q StudentQuery) ([]model.StudentRoster, int64, error) {
	const op = "repository.ListStudents"
	defer observe("list_students", time.Now())

	tx := s.db.WithContext(ctx).Model(&model.StudentRoster{})
	if q.Search != "" {
		p := like(q.Search)
		tx = tx.Where("(LOWER(student_id) LIKE ? ESCAPE '\\' OR LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(college) LIKE ? ESCAPE '\\' "+
			"OR LOWER(department) LIKE ? ESCAPE '\\' OR LOWER(advisor) LIKE ? ESCAPE '\\' OR LOWER(email) LIKE ? ESCAPE '\\')",
			p, p, p, p, p, p)
	}
	if q.EnrollmentStatus != "" {
		tx = tx.Where("enrollment_status = ?", q.EnrollmentStatus)
	}
	if q.ProgramType != "" {
		tx = tx.Where("program_type = ?", q.ProgramType)
	}
	if q.College != "" {
		tx = tx.Where("college = ?", q.College)
	}
	if q.Department != "" {
		tx = tx.Where("LOWER(department) LIKE ? ESCAPE '\\'", like(q.Department))
	}

	var rows []model.StudentRoster
	total, err := paginate(tx, q.Page, q.PageSize,
		orderBy(q.Ordering, studentOrdering, "student_id ASC"), &rows)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return rows, total, nil
}

// GetStudent implements Store.
func (s *GormStore) GetStudent(ctx context.Context, id uint) (*model.StudentRoster, error) {
	var row model.StudentRoster
	if err := first(s.db.WithContext(ctx), &row, id); err != nil {
		return nil, fmt.Errorf("repository.GetStudent: %w", err)
	}
	return &row, nil
}

// ListUploadLogs implements Store.
func (s *GormStore) ListUploadLogs(ctx context.Context, q LogQuery) ([]model.UploadLog, int64, error) {
	tx := s.db.WithContext(ctx).Model(&model.UploadLog{})
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.Kind != "" {
		tx = tx.Where("kind = ?", q.Kind)
	}
	var rows []model.UploadLog
	total, err := paginate(tx, q.Page, q.PageSize, "created_at DESC, id DESC", &rows)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListUploadLogs: %w", err)
	}
	return rows, total, nil
}

// GetUploadLog implements Store.
func (s *GormStore) GetUploadLog(ctx context.Context, id uint) (*model.UploadLog, error) {
	var row model.UploadLog
	if err := first(s.db.WithContext(ctx), &row, id); err != nil {
		return nil, fmt.Errorf("repository.GetUploadLog: %w", err)
	}
	return &row, nil
}

type totalsRow struct {
	TotalRevenue     float64
	TotalBudget      float64
	TotalExpenditure float64
	TotalPapers      int64
	TotalPatents     int64
	TotalProjects    int64
	DepartmentCount  int64
	AvgRevenue       float64
}

// Summary implements Store.
func (s *GormStore) Summary(ctx context.Context, referenceDate string, rankingLimit int) (*types.DashboardSummary, error) {
	const op = "repository.Summary"
	defer observe("summary", time.Now())

	db := s.db.WithContext(ctx)
	scoped := func() *gorm.DB {
		tx := db.Model(&model.PerformanceData{})
		if referenceDate != "" {
			tx = tx.Where("reference_date = ?", referenceDate)
		}
		return tx
	}

	var t totalsRow
	err := scoped().Select(`COALESCE(SUM(revenue), 0) AS total_revenue,
		COALESCE(SUM(budget), 0) AS total_budget,
		COALESCE(SUM(expenditure), 0) AS total_expenditure,
		COALESCE(SUM(paper_count), 0) AS total_papers,
		COALESCE(SUM(patent_count), 0) AS total_patents,
		COALESCE(SUM(project_count), 0) AS total_projects,
		COUNT(DISTINCT department) AS department_count,
		COALESCE(AVG(revenue), 0) AS avg_revenue`).Scan(&t).Error
	if err != nil {
		return nil, fmt.Errorf("%s: totals: %w", op, err)
	}

	trend := []types.MonthlyTrendPoint{}
	err = db.Model(&model.PerformanceData{}).
		Select(`reference_date,
			SUM(revenue) AS revenue,
			SUM(budget) AS budget,
			SUM(expenditure) AS expenditure,
			SUM(paper_count) AS papers,
			SUM(patent_count) AS patents,
			SUM(project_count) AS projects`).
		Group("reference_date").
		Order("reference_date ASC").
		Scan(&trend).Error
	if err != nil {
		return nil, fmt.Errorf("%s: monthly trend: %w", op, err)
	}

	ranking := []types.DepartmentRank{}
	rq := scoped().
		Select(`department,
			SUM(revenue) AS total_revenue,
			SUM(budget) AS total_budget,
			SUM(expenditure) AS total_expenditure,
			SUM(paper_count) AS total_papers,
			SUM(patent_count) AS total_patents,
			SUM(project_count) AS total_projects`).
		Group("department").
		Order("total_revenue DESC, department ASC")
	if rankingLimit > 0 {
		rq = rq.Limit(rankingLimit)
	}
	if err := rq.Scan(&ranking).Error; err != nil {
		return nil, fmt.Errorf("%s: ranking: %w", op, err)
	}

	dates := []string{}
	err = db.Model(&model.PerformanceData{}).
		Distinct("reference_date").
		Order("reference_date DESC").
		Pluck("reference_date", &dates).Error
	if err != nil {
		return nil, fmt.Errorf("%s: reference dates: %w", op, err)
	}

	return &types.DashboardSummary{
		Summary: types.SummaryTotals{
			TotalRevenue:     t.TotalRevenue,
			TotalBudget:      t.TotalBudget,
			TotalExpenditure: t.TotalExpenditure,
			TotalPapers:      t.TotalPapers,
			TotalPatents:     t.TotalPatents,
			TotalProjects:    t.TotalProjects,
			DepartmentCount:  t.DepartmentCount,
			AvgRevenue:       t.AvgRevenue,
			ExpenseRatio:     model.ExpenseRatio(t.TotalExpenditure, t.TotalBudget),
		},
		MonthlyTrend:      trend,
		DepartmentRanking: ranking,
		ReferenceDates:    dates,
	}, nil
}

// Counts implements Store.
func (s *GormStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	db := s.db.WithContext(ctx)
	if err := db.Model(&model.PerformanceData{}).Count(&c.Performance).Error; err != nil {
		return c, fmt.Errorf("repository.Counts: %w", err)
	}
	if err := db.Model(&model.StudentRoster{}).Count(&c.Students).Error; err != nil {
		return c, fmt.Errorf("repository.Counts: %w", err)
	}
	if err := db.Model(&model.UploadLog{}).Count(&c.UploadLogs).Error; err != nil {
		return c, fmt.Errorf("repository.Counts: %w", err)
	}
	return c, nil
}

// ClearPerformance implements Store.
func (s *GormStore) ClearPerformance(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("1 = 1").Delete(&model.PerformanceData{})
	if res.Error != nil {
		return 0, fmt.Errorf("repository.ClearPerformance: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func first(db *gorm.DB, dst any, id uint) error {
	err := db.First(dst, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// paginate counts the filtered rows and loads one page of them into dst.
// Pages are 1-based; asking for a page past the end is ErrInvalidPage,
// except page 1 which is always valid.
func paginate(tx *gorm.DB, page, size int, order string, dst any) (int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	var total int64
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, err
	}
	pages := (total + int64(size) - 1) / int64(size)
	if page > 1 && int64(page-1) >= pages {
		return total, ErrInvalidPage
	}
	offset := (page - 1) * size
	if err := tx.Session(&gorm.Session{}).Order(order).Offset(offset).Limit(size).Find(dst).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// orderBy turns a comma separated list like "-revenue,department" into an
// ORDER BY clause. Unknown columns are dropped; if nothing survives the
// fallback is used.
func orderBy(raw string, allowed map[string]bool, fallback string) string {
	var parts []string
	for _, f := range strings.Split(raw, ",") {
		f = strings.TrimSpace(f)
		dir := "ASC"
		if strings.HasPrefix(f, "-") {
			dir = "DESC"
			f = f[1:]
		}
		if !allowed[f] {
			continue
		}
		parts = append(parts, f+" "+dir)
	}
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(append(parts, "id ASC"), ", ")
}

// like builds a case-insensitive contains pattern with LIKE wildcards escaped.
func like(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(strings.TrimSpace(s))) + "%"
}
