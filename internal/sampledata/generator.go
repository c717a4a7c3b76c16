package sampledata

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/okian/perfboard/pkg/logger"
)

// Fixture shape.
const (
	fixtureFirstYear        = 2022
	fixtureYears            = 3
	fixturePublications     = 240
	fixtureProjects         = 30
	fixtureExecutionsPerRun = 4
	fixtureSheet            = "Sheet1"
)

// Value ranges for generated figures.
const (
	employmentMin    = 55.0
	employmentRange  = 40.0
	staffMin         = 8
	staffRange       = 30
	visitingRange    = 10
	incomeRange      = 5.0
	conferenceRange  = 6
	budgetMin        = 50_000_000
	budgetRange      = 450_000_000
	executionDivisor = 10
)

type department struct {
	college string
	name    string
}

var fixtureDepartments = []department{ //nolint:gochecknoglobals // fixture table
	{"공과대학", "컴퓨터공학과"},
	{"공과대학", "전자공학과"},
	{"공과대학", "기계공학과"},
	{"자연과학대학", "물리학과"},
	{"자연과학대학", "화학과"},
	{"인문대학", "국어국문학과"},
	{"경영대학", "경영학과"},
	{"의과대학", "의학과"},
}

var fixtureItems = []string{"인건비", "연구장비비", "연구재료비", "연구활동비", "위탁연구비"} //nolint:gochecknoglobals // fixture table

// Generate writes department_kpi.xlsx, publication_list.xlsx and
// research_project_data.xlsx into dir. The same seed always produces the
// same workbooks. log may be nil.
func Generate(ctx context.Context, dir string, seed uint64, log logger.Logger) error {
	log = orNop(log)
	if err := os.MkdirAll(dir, directoryPermission); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // fixtures, not secrets

	books := []struct {
		base string
		rows [][]any
	}{
		{SourceKPI, kpiRows(rng)},
		{SourcePublications, publicationRows(rng)},
		{SourceProjects, projectRows(rng)},
	}
	for _, b := range books {
		path := filepath.Join(dir, b.base+".xlsx")
		if err := writeWorkbook(path, b.rows); err != nil {
			return err
		}
		log.Info(ctx, "fixture written", logger.String("file", path), logger.Int("rows", len(b.rows)-1))
	}
	return nil
}

func writeWorkbook(path string, rows [][]any) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		r := row
		if err := f.SetSheetRow(fixtureSheet, cell, &r); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func kpiRows(rng *rand.Rand) [][]any {
	rows := [][]any{{
		colEvalYear, colCollege, colDepartment, colEmploymentRate,
		colFullTimeStaff, colVisitingStaff, colTransferIncome, colConferences,
	}}
	for y := range fixtureYears {
		year := fixtureFirstYear + y
		for _, d := range fixtureDepartments {
			rows = append(rows, []any{
				year,
				d.college,
				d.name,
				round1(employmentMin + rng.Float64()*employmentRange),
				staffMin + rng.IntN(staffRange),
				rng.IntN(visitingRange),
				round1(rng.Float64() * incomeRange),
				rng.IntN(conferenceRange),
			})
		}
	}
	return rows
}

func publicationRows(rng *rand.Rand) [][]any {
	rows := [][]any{{colPaperID, colPublishedAt, colCollege, colDepartment, colPaperTitle, colJournal}}
	for i := range fixturePublications {
		d := fixtureDepartments[rng.IntN(len(fixtureDepartments))]
		rows = append(rows, []any{
			"PUB-" + strconv.Itoa(i+1),
			randomDay(rng),
			d.college,
			d.name,
			d.name + " 연구 " + strconv.Itoa(i+1),
			"Journal " + strconv.Itoa(rng.IntN(20)+1),
		})
	}
	return rows
}

func projectRows(rng *rand.Rand) [][]any {
	rows := [][]any{{
		colExecutionID, colProjectNo, colProjectName, colOwnDept,
		colTotalBudget, colExecutedAt, colExecutionItem, colExecuted,
	}}
	exec := 0
	for p := range fixtureProjects {
		d := fixtureDepartments[rng.IntN(len(fixtureDepartments))]
		no := "PRJ-" + strconv.Itoa(p+1)
		budget := budgetMin + rng.IntN(budgetRange)
		for range fixtureExecutionsPerRun {
			exec++
			rows = append(rows, []any{
				"EX-" + strconv.Itoa(exec),
				no,
				d.name + " 과제",
				d.name,
				budget,
				randomDay(rng),
				fixtureItems[rng.IntN(len(fixtureItems))],
				rng.IntN(budget / executionDivisor),
			})
		}
	}
	return rows
}

// randomDay returns a YYYY-MM-DD date in the last fixture year.
func randomDay(rng *rand.Rand) string {
	year := fixtureFirstYear + fixtureYears - 1
	return fmt.Sprintf("%04d-%02d-%02d", year, rng.IntN(12)+1, rng.IntN(28)+1)
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
