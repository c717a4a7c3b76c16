// Package summary holds the pure transformations applied to a dashboard
// summary after it has been aggregated.
package summary

import (
	"slices"

	"github.com/okian/perfboard/internal/domain/types"
)

// ApplyFilters returns a filtered copy of s. monthly_trend keeps the points
// with StartDate <= reference_date <= EndDate (plain string comparison on
// YYYY-MM keys, unset bounds ignored) and department_ranking keeps the
// departments named in f.Departments, or all of them when the list is empty.
// Every other field is copied unchanged. s is never modified and a nil s
// yields nil.
func ApplyFilters(s *types.DashboardSummary, f types.Filter) *types.DashboardSummary {
	if s == nil {
		return nil
	}

	trend := make([]types.MonthlyTrendPoint, 0, len(s.MonthlyTrend))
	for _, p := range s.MonthlyTrend {
		if f.StartDate != "" && p.ReferenceDate < f.StartDate {
			continue
		}
		if f.EndDate != "" && p.ReferenceDate > f.EndDate {
			continue
		}
		trend = append(trend, p)
	}

	ranking := make([]types.DepartmentRank, 0, len(s.DepartmentRanking))
	for _, r := range s.DepartmentRanking {
		if len(f.Departments) > 0 && !slices.Contains(f.Departments, r.Department) {
			continue
		}
		ranking = append(ranking, r)
	}

	out := *s
	out.MonthlyTrend = trend
	out.DepartmentRanking = ranking
	if s.ReferenceDates != nil {
		out.ReferenceDates = slices.Clone(s.ReferenceDates)
	}
	return &out
}

// TopDepartments returns a copy of the first n ranking entries.
func TopDepartments(ranking []types.DepartmentRank, n int) []types.DepartmentRank {
	if n <= 0 {
		return []types.DepartmentRank{}
	}
	if n > len(ranking) {
		n = len(ranking)
	}
	out := make([]types.DepartmentRank, n)
	copy(out, ranking[:n])
	return out
}

// Departments lists the departments present in the ranking, in ranking order.
func Departments(s *types.DashboardSummary) []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, 0, len(s.DepartmentRanking))
	for _, r := range s.DepartmentRanking {
		out = append(out, r.Department)
	}
	return out
}
