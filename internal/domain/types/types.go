// Package types contains the wire types shared by the service and HTTP layers.
package types

// SummaryTotals are the headline figures of the dashboard.
type SummaryTotals struct {
	TotalRevenue     float64 `json:"total_revenue"`
	TotalBudget      float64 `json:"total_budget"`
	TotalExpenditure float64 `json:"total_expenditure"`
	TotalPapers      int64   `json:"total_papers"`
	TotalPatents     int64   `json:"total_patents"`
	TotalProjects    int64   `json:"total_projects"`
	DepartmentCount  int64   `json:"department_count"`
	AvgRevenue       float64 `json:"avg_revenue"`
	ExpenseRatio     float64 `json:"expense_ratio"`
}

// MonthlyTrendPoint aggregates every department for one reference month.
type MonthlyTrendPoint struct {
	ReferenceDate string  `json:"reference_date"`
	Revenue       float64 `json:"revenue"`
	Budget        float64 `json:"budget"`
	Expenditure   float64 `json:"expenditure"`
	Papers        int64   `json:"papers"`
	Patents       int64   `json:"patents"`
	Projects      int64   `json:"projects"`
}

// DepartmentRank is one row of the revenue ranking.
type DepartmentRank struct {
	Department       string  `json:"department"`
	TotalRevenue     float64 `json:"total_revenue"`
	TotalBudget      float64 `json:"total_budget"`
	TotalExpenditure float64 `json:"total_expenditure"`
	TotalPapers      int64   `json:"total_papers"`
	TotalPatents     int64   `json:"total_patents"`
	TotalProjects    int64   `json:"total_projects"`
}

// DashboardSummary is the payload behind /api/summary/.
type DashboardSummary struct {
	Summary           SummaryTotals       `json:"summary"`
	MonthlyTrend      []MonthlyTrendPoint `json:"monthly_trend"`
	DepartmentRanking []DepartmentRank    `json:"department_ranking"`
	ReferenceDates    []string            `json:"reference_dates"`
}

// Filter narrows a summary. Empty StartDate/EndDate mean no bound and an
// empty Departments list means every department.
type Filter struct {
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	Departments []string `json:"departments,omitempty"`
}

// IsZero reports whether the filter would keep everything.
func (f Filter) IsZero() bool {
	return f.StartDate == "" && f.EndDate == "" && len(f.Departments) == 0
}

// Page is a paginated list response.
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// UploadResult describes a successfully stored file.
type UploadResult struct {
	Message        string   `json:"message"`
	UploadID       string   `json:"upload_id"`
	Kind           string   `json:"kind"`
	ReferenceDates []string `json:"reference_dates,omitempty"`
	CreatedCount   int      `json:"created_count"`
	Warnings       []string `json:"warnings"`
}

// FileResult is the outcome of one file inside a batch upload.
type FileResult struct {
	Filename string        `json:"filename"`
	Success  bool          `json:"success"`
	Result   *UploadResult `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
	Details  []string      `json:"details,omitempty"`
}

// BatchResult aggregates a multi-file upload.
type BatchResult struct {
	BatchID      string       `json:"batch_id"`
	Message      string       `json:"message"`
	SuccessCount int          `json:"success_count"`
	ErrorCount   int          `json:"error_count"`
	TotalCreated int          `json:"total_created"`
	Files        []FileResult `json:"files"`
}
