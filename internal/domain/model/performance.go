// Package model contains the persistent records shared between layers.
package model

import "time"

// PerformanceData is one department's figures for one reference month.
// Rows are replaced month by month: uploading a file that contains
// reference_date 2024-05 drops every stored 2024-05 row first.
type PerformanceData struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ReferenceDate  string    `gorm:"size:7;not null;index;index:idx_perf_date_dept,priority:1" json:"reference_date"`
	Department     string    `gorm:"size:100;not null;index;index:idx_perf_date_dept,priority:2" json:"department"`
	DepartmentCode string    `gorm:"size:50" json:"department_code"`
	Revenue        float64   `gorm:"type:numeric(15,2);not null;default:0" json:"revenue"`
	Budget         float64   `gorm:"type:numeric(15,2);not null;default:0" json:"budget"`
	Expenditure    float64   `gorm:"type:numeric(15,2);not null;default:0" json:"expenditure"`
	PaperCount     int       `gorm:"not null;default:0" json:"paper_count"`
	PatentCount    int       `gorm:"not null;default:0" json:"patent_count"`
	ProjectCount   int       `gorm:"not null;default:0" json:"project_count"`
	ExtraMetric1   *float64  `gorm:"type:numeric(15,2)" json:"extra_metric_1"`
	ExtraMetric2   *float64  `gorm:"type:numeric(15,2)" json:"extra_metric_2"`
	ExtraText      string    `gorm:"type:text" json:"extra_text"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName pins the table name independent of gorm's pluralizer.
func (PerformanceData) TableName() string { return "performance_data" }

// ExpenseRatio returns expenditure as a percentage of budget, 0 without a budget.
func (p PerformanceData) ExpenseRatio() float64 {
	return ExpenseRatio(p.Expenditure, p.Budget)
}

// ExpenseRatio is expenditure / budget * 100, or 0 when budget is zero.
func ExpenseRatio(expenditure, budget float64) float64 {
	if budget == 0 {
		return 0
	}
	return expenditure / budget * 100
}
