package sampledata

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/okian/perfboard/internal/adapters/spreadsheet"
	"github.com/okian/perfboard/internal/domain/model"
	"github.com/okian/perfboard/pkg/logger"
)

var sourceExts = []string{".csv", ".xlsx"} //nolint:gochecknoglobals // lookup order

// aggregator folds the three source files into one record per
// (reference date, department).
type aggregator struct {
	records  map[Key]*model.PerformanceData
	projects map[Key]map[string]bool
	stats    *Stats
}

func newAggregator(stats *Stats) *aggregator {
	return &aggregator{
		records:  make(map[Key]*model.PerformanceData),
		projects: make(map[Key]map[string]bool),
		stats:    stats,
	}
}

// Aggregate reads every source file found in dir and returns the merged
// records ordered by reference date, then department. Missing sources are
// noted in stats and skipped. log may be nil.
func Aggregate(ctx context.Context, dir string, stats *Stats, log logger.Logger) ([]model.PerformanceData, error) {
	log = orNop(log)
	a := newAggregator(stats)
	sources := []struct {
		base string
		fold func(columns, []string) bool
		n    *int
	}{
		{SourceKPI, a.foldKPI, &stats.KPIRows},
		{SourcePublications, a.foldPublication, &stats.PublicationRows},
		{SourceProjects, a.foldProject, &stats.ProjectRows},
	}

	for _, src := range sources {
		rows, path, err := readSource(dir, src.base)
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn(ctx, "source file not found", logger.String("source", src.base), logger.String("dir", dir))
			stats.MissingSources = append(stats.MissingSources, src.base)
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			continue
		}
		cols := index(rows[0])
		for _, row := range rows[1:] {
			if src.fold(cols, row) {
				*src.n++
			} else {
				stats.SkippedRows++
			}
		}
		log.Info(ctx, "source loaded", logger.String("file", path), logger.Int("rows", *src.n))
	}
	return a.result(), nil
}

func readSource(dir, base string) ([][]string, string, error) {
	for _, ext := range sourceExts {
		path := filepath.Join(dir, base+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, path, fmt.Errorf("read %s: %w", path, err)
		}
		rows, err := spreadsheet.ReadRows(path, data)
		if err != nil {
			return nil, path, fmt.Errorf("parse %s: %w", path, err)
		}
		return rows, path, nil
	}
	return nil, "", fs.ErrNotExist
}

func (a *aggregator) record(k Key) *model.PerformanceData {
	r, ok := a.records[k]
	if !ok {
		r = &model.PerformanceData{ReferenceDate: k.ReferenceDate, Department: k.Department}
		a.records[k] = r
	}
	return r
}

func (a *aggregator) foldKPI(c columns, row []string) bool {
	k, ok := key(c.get(row, colEvalYear), c.department(row, colDepartment, colCollege))
	if !ok {
		return false
	}
	r := a.record(k)
	r.Revenue += spreadsheet.ToDecimal(c.get(row, colTransferIncome), 0) * eokWon
	r.ProjectCount += spreadsheet.ToInt(c.get(row, colConferences), 0)
	if v, ok := optional(c.get(row, colEmploymentRate)); ok {
		r.ExtraMetric1 = &v
	}
	if v, ok := optional(c.get(row, colFullTimeStaff)); ok {
		r.ExtraMetric2 = &v
	}
	return true
}

func (a *aggregator) foldPublication(c columns, row []string) bool {
	k, ok := key(c.get(row, colPublishedAt), c.department(row, colDepartment, colCollege))
	if !ok {
		return false
	}
	a.record(k).PaperCount++
	return true
}

func (a *aggregator) foldProject(c columns, row []string) bool {
	k, ok := key(c.get(row, colExecutedAt), c.get(row, colOwnDept))
	if !ok {
		return false
	}
	r := a.record(k)

	// A project's budget repeats on every execution row; count it once per key.
	if budget := c.get(row, colTotalBudget); budget != "" {
		seen := a.projects[k]
		if seen == nil {
			seen = make(map[string]bool)
			a.projects[k] = seen
		}
		if id := c.get(row, colProjectNo); !seen[id] {
			seen[id] = true
			r.Budget += spreadsheet.ToDecimal(budget, 0)
		}
	}
	r.Expenditure += spreadsheet.ToDecimal(c.get(row, colExecuted), 0)
	return true
}

func (a *aggregator) result() []model.PerformanceData {
	out := make([]model.PerformanceData, 0, len(a.records))
	for _, r := range a.records {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReferenceDate != out[j].ReferenceDate {
			return out[i].ReferenceDate < out[j].ReferenceDate
		}
		return out[i].Department < out[j].Department
	})
	a.stats.Records = len(out)
	return out
}

func key(rawDate, department string) (Key, bool) {
	m := month(rawDate)
	if m == "" || department == "" {
		return Key{}, false
	}
	return Key{ReferenceDate: m, Department: department}, true
}

// month normalizes a source date to YYYY-MM; a bare evaluation year maps
// to January of that year.
func month(v string) string {
	s := strings.TrimSuffix(strings.TrimSpace(v), ".0")
	if len(s) == 4 && spreadsheet.ToInt(s, 0) > 0 {
		return s + "-01"
	}
	m := spreadsheet.NormalizeDate(s)
	if !spreadsheet.IsYearMonth(m) {
		return ""
	}
	return m
}

func optional(v string) (float64, bool) {
	if strings.TrimSpace(v) == "" {
		return 0, false
	}
	f := spreadsheet.ToDecimal(v, -1)
	return f, f >= 0
}

// columns maps header names to their position.
type columns map[string]int

func index(header []string) columns {
	c := make(columns, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := c[name]; !dup {
			c[name] = i
		}
	}
	return c
}

func (c columns) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	v := strings.TrimSpace(row[i])
	if strings.EqualFold(v, "nan") {
		return ""
	}
	return v
}

// department prefers primary and falls back to the college column.
func (c columns) department(row []string, primary, fallback string) string {
	if d := c.get(row, primary); d != "" {
		return d
	}
	return c.get(row, fallback)
}
