package sampledata

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/okian/perfboard/internal/domain/model"
	"github.com/okian/perfboard/pkg/format"
)

// WriteReport prints load statistics and per-month totals.
func WriteReport(out io.Writer, stats *Stats, rows []model.PerformanceData) error {
	type totals struct {
		revenue, budget, expenditure float64
		papers, departments          int
	}
	var months []string
	byMonth := make(map[string]*totals)
	for _, r := range rows {
		t, ok := byMonth[r.ReferenceDate]
		if !ok {
			t = &totals{}
			byMonth[r.ReferenceDate] = t
			months = append(months, r.ReferenceDate)
		}
		t.revenue += r.Revenue
		t.budget += r.Budget
		t.expenditure += r.Expenditure
		t.papers += r.PaperCount
		t.departments++
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "KPI rows\t%s\n", format.Int(int64(stats.KPIRows)))
	fmt.Fprintf(w, "Publication rows\t%s\n", format.Int(int64(stats.PublicationRows)))
	fmt.Fprintf(w, "Project rows\t%s\n", format.Int(int64(stats.ProjectRows)))
	fmt.Fprintf(w, "Skipped rows\t%s\n", format.Int(int64(stats.SkippedRows)))
	if len(stats.MissingSources) > 0 {
		fmt.Fprintf(w, "Missing sources\t%s\n", strings.Join(stats.MissingSources, ", "))
	}
	if stats.Cleared > 0 {
		fmt.Fprintf(w, "Cleared records\t%s\n", format.Int(stats.Cleared))
	}
	fmt.Fprintf(w, "Stored records\t%s\n\n", format.Int(int64(stats.Records)))

	fmt.Fprintln(w, "Month\tDepartments\tRevenue\tBudget\tExpenditure\tExecution\tPapers")
	for _, m := range months {
		t := byMonth[m]
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			m, t.departments,
			format.Currency(t.revenue),
			format.Currency(t.budget),
			format.Currency(t.expenditure),
			format.Percent(model.ExpenseRatio(t.expenditure, t.budget)),
			format.Int(int64(t.papers)))
	}
	return w.Flush()
}
