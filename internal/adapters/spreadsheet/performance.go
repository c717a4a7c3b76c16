package spreadsheet

import (
	"fmt"
	"slices"

	"github.com/okian/perfboard/internal/domain/model"
)

// PerformanceSheet is a parsed department KPI upload.
type PerformanceSheet struct {
	Rows []model.PerformanceData
	// ReferenceDates are the distinct months present, ascending.
	ReferenceDates []string
	// Warnings describe skipped rows, "행 N: ..." with N the sheet row number.
	Warnings []string
}

// ParsePerformance reads filename and maps its rows onto PerformanceData.
// Rows without a reference date are ignored; rows with an unusable month
// or without a department are skipped with a warning.
func ParsePerformance(filename string, data []byte) (*PerformanceSheet, error) {
	rows, err := ReadRows(filename, data)
	if err != nil {
		return nil, err
	}
	return ParsePerformanceRows(rows)
}

// ParsePerformanceRows does the mapping for rows already read from a file;
// rows[0] is the header.
func ParsePerformanceRows(rows [][]string) (*PerformanceSheet, error) {
	if len(rows) < 2 {
		return nil, newError(ErrEmpty, MsgEmptyWorkbook)
	}
	h := mapHeader(rows[0], PerformanceColumns)
	if !h.has(FieldReferenceDate) {
		return nil, newError(ErrMissingColumn, MsgMissingDateColumn)
	}

	out := &PerformanceSheet{}
	seen := map[string]bool{}
	for i, row := range rows[1:] {
		line := i + 2
		if blank(row) {
			continue
		}
		raw := h.get(row, FieldReferenceDate)
		if raw == "" {
			continue
		}
		ref := NormalizeDate(raw)
		if !IsYearMonth(ref) {
			out.Warnings = append(out.Warnings, fmt.Sprintf("행 %d: 기준 년월 형식이 올바르지 않습니다 (%s)", line, raw))
			continue
		}
		dept := h.get(row, FieldDepartment)
		if dept == "" {
			out.Warnings = append(out.Warnings, fmt.Sprintf("행 %d: 부서명이 비어 있습니다", line))
			continue
		}

		rec := model.PerformanceData{
			ReferenceDate:  ref,
			Department:     dept,
			DepartmentCode: h.get(row, FieldDepartmentCode),
			Revenue:        ToDecimal(h.get(row, FieldRevenue), 0),
			Budget:         ToDecimal(h.get(row, FieldBudget), 0),
			Expenditure:    ToDecimal(h.get(row, FieldExpenditure), 0),
			PaperCount:     ToInt(h.get(row, FieldPaperCount), 0),
			PatentCount:    ToInt(h.get(row, FieldPatentCount), 0),
			ProjectCount:   ToInt(h.get(row, FieldProjectCount), 0),
			ExtraMetric1:   optionalDecimal(h.get(row, FieldExtraMetric1)),
			ExtraMetric2:   optionalDecimal(h.get(row, FieldExtraMetric2)),
			ExtraText:      h.get(row, FieldExtraText),
		}
		out.Rows = append(out.Rows, rec)
		if !seen[ref] {
			seen[ref] = true
			out.ReferenceDates = append(out.ReferenceDates, ref)
		}
	}

	if len(out.ReferenceDates) == 0 && len(out.Warnings) == 0 {
		return nil, newError(ErrNoReferenceDates, MsgNoReferenceDates)
	}
	if len(out.Rows) == 0 {
		return nil, newError(ErrNoValidRows, MsgNoValidRows, out.Warnings...)
	}
	slices.Sort(out.ReferenceDates)
	return out, nil
}

func optionalDecimal(v string) *float64 {
	if v == "" {
		return nil
	}
	f := ToDecimal(v, 0)
	return &f
}
