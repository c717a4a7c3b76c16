// Package repository persists performance rows, student rosters and upload
// logs, and answers the aggregate queries behind the dashboard.
package repository

import (
	"context"

	"github.com/okian/perfboard/internal/domain/model"
	"github.com/okian/perfboard/internal/domain/types"
)

// PerformanceQuery filters /api/data/ listings.
type PerformanceQuery struct {
	ReferenceDate string // exact month
	StartDate     string // inclusive lower month bound
	EndDate       string // inclusive upper month bound
	Department    string // case-insensitive contains
	Search        string // department, department_code or extra_text contains
	Ordering      string // e.g. "-revenue"; see performanceOrdering
	Page          int
	PageSize      int
}

// StudentQuery filters /api/students/ listings.
type StudentQuery struct {
	Search           string
	EnrollmentStatus string
	ProgramType      string
	College          string
	Department       string
	Ordering         string
	Page             int
	PageSize         int
}

// LogQuery filters /api/logs/ listings.
type LogQuery struct {
	Status   string
	Kind     string
	Page     int
	PageSize int
}

// Counts holds row counts per table.
type Counts struct {
	Performance int64 `json:"performance_data"`
	Students    int64 `json:"student_roster"`
	UploadLogs  int64 `json:"upload_log"`
}

// Store is the persistence port used by the service.
type Store interface {
	// ReplaceMonths deletes every stored row whose reference date occurs in
	// rows, inserts rows and writes log, all in one transaction.
	ReplaceMonths(ctx context.Context, rows []model.PerformanceData, log *model.UploadLog) error
	// UpsertStudents inserts or updates rows by student_id and writes log
	// in one transaction.
	UpsertStudents(ctx context.Context, rows []model.StudentRoster, log *model.UploadLog) error
	// CreateUploadLog stores a log on its own, used for failed uploads.
	CreateUploadLog(ctx context.Context, log *model.UploadLog) error

	ListPerformance(ctx context.Context, q PerformanceQuery) ([]model.PerformanceData, int64, error)
	GetPerformance(ctx context.Context, id uint) (*model.PerformanceData, error)
	ListStudents(ctx context.Context, q StudentQuery) ([]model.StudentRoster, int64, error)
	GetStudent(ctx context.Context, id uint) (*model.StudentRoster, error)
	ListUploadLogs(ctx context.Context, q LogQuery) ([]model.UploadLog, int64, error)
	GetUploadLog(ctx context.Context, id uint) (*model.UploadLog, error)

	// Summary aggregates totals and the department ranking (restricted to
	// referenceDate when set), the monthly trend over all months, and the
	// list of stored months, newest first.
	Summary(ctx context.Context, referenceDate string, rankingLimit int) (*types.DashboardSummary, error)

	Counts(ctx context.Context) (Counts, error)
	// ClearPerformance removes every performance row.
	ClearPerformance(ctx context.Context) (int64, error)
	Close() error
}
