package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"

	"github.com/okian/perfboard/internal/domain/model"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	path := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	s, err := Open(context.Background(), path, WithBatchSize(2))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func perf(month, dept string, revenue, budget, expenditure float64, papers int) model.PerformanceData {
	return model.PerformanceData{
		ReferenceDate: month,
		Department:    dept,
		Revenue:       revenue,
		Budget:        budget,
		Expenditure:   expenditure,
		PaperCount:    papers,
		PatentCount:   1,
		ProjectCount:  2,
	}
}

func seed(t *testing.T, s *GormStore) {
	t.Helper()
	rows := []model.PerformanceData{
		perf("2024-01", "연구개발팀", 100, 200, 50, 1),
		perf("2024-01", "마케팅팀", 300, 300, 100, 2),
		perf("2024-02", "연구개발팀", 150, 200, 80, 3),
		perf("2024-02", "영업팀", 50, 100, 100, 0),
		perf("2024-03", "Sales_West", 10, 0, 0, 0),
	}
	require.NoError(t, s.ReplaceMonths(context.Background(), rows, &model.UploadLog{
		Filename: "seed.xlsx", Status: model.UploadSuccess, Kind: model.KindPerformance, RowCount: len(rows),
	}))
}

func TestReplaceMonths(t *testing.T) {
	Convey("Given a store with two months of data", t, func() {
		s := newTestStore(t)
		seed(t, s)
		ctx := context.Background()

		Convey("When a file for 2024-02 is uploaded again", func() {
			err := s.ReplaceMonths(ctx, []model.PerformanceData{
				perf("2024-02", "신규팀", 999, 0, 0, 0),
			}, &model.UploadLog{Filename: "feb.xlsx", Status: model.UploadSuccess, ReferenceDate: "2024-02", RowCount: 1})
			So(err, ShouldBeNil)

			Convey("Then only that month is replaced", func() {
				feb, total, err := s.ListPerformance(ctx, PerformanceQuery{ReferenceDate: "2024-02"})
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 1)
				So(feb[0].Department, ShouldEqual, "신규팀")

				_, jan, err := s.ListPerformance(ctx, PerformanceQuery{ReferenceDate: "2024-01"})
				So(err, ShouldBeNil)
				So(jan, ShouldEqual, 2)
			})

			Convey("Then the upload is logged", func() {
				logs, total, err := s.ListUploadLogs(ctx, LogQuery{})
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 2)
				So(logs[0].Filename, ShouldEqual, "feb.xlsx")
			})
		})

		Convey("When the log cannot be written", func() {
			before, err := s.Counts(ctx)
			require.NoError(t, err)
			// ID 1 already belongs to the seed log.
			err = s.ReplaceMonths(ctx, []model.PerformanceData{
				perf("2024-01", "롤백팀", 1, 1, 1, 1),
			}, &model.UploadLog{ID: 1, Filename: "dup.xlsx", Status: model.UploadSuccess})

			Convey("Then the whole transaction rolls back", func() {
				So(err, ShouldNotBeNil)
				after, err := s.Counts(ctx)
				So(err, ShouldBeNil)
				So(after, ShouldResemble, before)
				_, jan, _ := s.ListPerformance(ctx, PerformanceQuery{ReferenceDate: "2024-01"})
				So(jan, ShouldEqual, 2)
			})
		})
	})
}

func TestListPerformance(t *testing.T) {
	Convey("Given seeded performance rows", t, func() {
		s := newTestStore(t)
		seed(t, s)
		ctx := context.Background()

		Convey("Default order is newest month first, then department", func() {
			rows, total, err := s.ListPerformance(ctx, PerformanceQuery{})
			So(err, ShouldBeNil)
			So(total, ShouldEqual, 5)
			So(rows[0].ReferenceDate, ShouldEqual, "2024-03")
			So(rows[1].Department, ShouldEqual, "연구개발팀")
			So(rows[2].Department, ShouldEqual, "영업팀")
		})

		Convey("Department filter is a case-insensitive contains", func() {
			rows, total, err := s.ListPerformance(ctx, PerformanceQuery{Department: "sales"})
			So(err, ShouldBeNil)
			So(total, ShouldEqual, 1)
			So(rows[0].Department, ShouldEqual, "Sales_West")
		})

		Convey("LIKE wildcards in the filter are literal", func() {
			_, total, err := s.ListPerformance(ctx, PerformanceQuery{Department: "%"})
			So(err, ShouldBeNil)
			So(total, ShouldEqual, 0)
		})

		Convey("Month range is inclusive", func() {
			_, total, err := s.ListPerformance(ctx, PerformanceQuery{StartDate: "2024-02", EndDate: "2024-03"})
			So(err, ShouldBeNil)
			So(total, ShouldEqual, 3)
		})

		Convey("Ordering accepts whitelisted columns only", func() {
			rows, _, err := s.ListPerformance(ctx, PerformanceQuery{Ordering: "-revenue"})
			So(err, ShouldBeNil)
			So(rows[0].Revenue, ShouldEqual, 300)

			rows, _, err = s.ListPerformance(ctx, PerformanceQuery{Ordering: "revenue; DROP TABLE x"})
			So(err, ShouldBeNil)
			So(rows[0].ReferenceDate, ShouldEqual, "2024-03")
		})

		Convey("Pagination slices results and rejects pages past the end", func() {
			rows, total, err := s.ListPerformance(ctx, PerformanceQuery{Page: 2, PageSize: 2})
			So(err, ShouldBeNil)
			So(total, ShouldEqual, 5)
			So(rows, ShouldHaveLength, 2)

			_, _, err = s.ListPerformance(ctx, PerformanceQuery{Page: 4, PageSize: 2})
			So(errors.Is(err, ErrInvalidPage), ShouldBeTrue)
		})

		Convey("A page whose offset would overflow is still past the end", func() {
			_, total, err := s.ListPerformance(ctx, PerformanceQuery{Page: math.MaxInt, PageSize: 2})
			So(errors.Is(err, ErrInvalidPage), ShouldBeTrue)
			So(total, ShouldEqual, 5)

			_, _, err = s.ListPerformance(ctx, PerformanceQuery{Page: math.MaxInt/2 + 2, PageSize: 2})
			So(errors.Is(err, ErrInvalidPage), ShouldBeTrue)
		})

		Convey("Detail lookups return ErrNotFound for unknown ids", func() {
			rows, _, err := s.ListPerformance(ctx, PerformanceQuery{PageSize: 1})
			So(err, ShouldBeNil)
			got, err := s.GetPerformance(ctx, rows[0].ID)
			So(err, ShouldBeNil)
			So(got.ID, ShouldEqual, rows[0].ID)

			_, err = s.GetPerformance(ctx, 9999)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestSummary(t *testing.T) {
	Convey("Given seeded performance rows", t, func() {
		s := newTestStore(t)
		seed(t, s)
		ctx := context.Background()

		Convey("When summarising everything", func() {
			sum, err := s.Summary(ctx, "", 10)
			So(err, ShouldBeNil)

			Convey("Then totals cover every row", func() {
				So(sum.Summary.TotalRevenue, ShouldEqual, 610)
				So(sum.Summary.TotalBudget, ShouldEqual, 800)
				So(sum.Summary.TotalExpenditure, ShouldEqual, 330)
				So(sum.Summary.TotalPapers, ShouldEqual, 6)
				So(sum.Summary.TotalPatents, ShouldEqual, 5)
				So(sum.Summary.TotalProjects, ShouldEqual, 10)
				So(sum.Summary.DepartmentCount, ShouldEqual, 4)
				So(sum.Summary.AvgRevenue, ShouldEqual, 122)
				So(sum.Summary.ExpenseRatio, ShouldAlmostEqual, 41.25, 0.0001)
			})

			Convey("Then the trend is ascending by month", func() {
				So(sum.MonthlyTrend, ShouldHaveLength, 3)
				So(sum.MonthlyTrend[0].ReferenceDate, ShouldEqual, "2024-01")
				So(sum.MonthlyTrend[0].Revenue, ShouldEqual, 400)
				So(sum.MonthlyTrend[1].Papers, ShouldEqual, 3)
				So(sum.MonthlyTrend[2].ReferenceDate, ShouldEqual, "2024-03")
			})

			Convey("Then the ranking is by revenue descending", func() {
				So(sum.DepartmentRanking[0].Department, ShouldEqual, "마케팅팀")
				So(sum.DepartmentRanking[1].Department, ShouldEqual, "연구개발팀")
				So(sum.DepartmentRanking[1].TotalRevenue, ShouldEqual, 250)
				So(sum.DepartmentRanking[1].TotalPapers, ShouldEqual, 4)
			})

			Convey("Then reference dates are newest first", func() {
				So(sum.ReferenceDates, ShouldResemble, []string{"2024-03", "2024-02", "2024-01"})
			})
		})

		Convey("When summarising one month", func() {
			sum, err := s.Summary(ctx, "2024-02", 1)
			So(err, ShouldBeNil)

			Convey("Then totals and ranking are scoped but the trend is not", func() {
				So(sum.Summary.TotalRevenue, ShouldEqual, 200)
				So(sum.Summary.DepartmentCount, ShouldEqual, 2)
				So(sum.DepartmentRanking, ShouldHaveLength, 1)
				So(sum.DepartmentRanking[0].Department, ShouldEqual, "연구개발팀")
				So(sum.MonthlyTrend, ShouldHaveLength, 3)
				So(sum.ReferenceDates, ShouldHaveLength, 3)
			})
		})

		Convey("When the store is empty", func() {
			empty := newTestStore(t)
			sum, err := empty.Summary(ctx, "", 10)

			Convey("Then zeros and empty arrays come back", func() {
				So(err, ShouldBeNil)
				So(sum.Summary.TotalRevenue, ShouldEqual, 0)
				So(sum.Summary.ExpenseRatio, ShouldEqual, 0)
				So(sum.MonthlyTrend, ShouldNotBeNil)
				So(sum.MonthlyTrend, ShouldBeEmpty)
				So(sum.DepartmentRanking, ShouldBeEmpty)
				So(sum.ReferenceDates, ShouldBeEmpty)
			})
		})
	})
}

func TestStudents(t *testing.T) {
	Convey("Given an uploaded roster", t, func() {
		s := newTestStore(t)
		ctx := context.Background()
		year := 2024
		roster := []model.StudentRoster{
			{StudentID: "20240001", Name: "김철수", College: "공과대학", Department: "컴퓨터공학과", Grade: 1,
				ProgramType: model.ProgramBachelor, EnrollmentStatus: model.StatusEnrolled, AdmissionYear: &year, Email: "kim@univ.ac.kr"},
			{StudentID: "20230002", Name: "이영희", College: "자연과학대학", Department: "물리학과", Grade: 2,
				ProgramType: model.ProgramMaster, EnrollmentStatus: model.StatusLeave, Advisor: "박교수"},
			{StudentID: "20220003", Name: "박민수", College: "공과대학", Department: "전자공학과", Grade: 3,
				ProgramType: model.ProgramBachelor, EnrollmentStatus: model.StatusEnrolled},
		}
		require.NoError(t, s.UpsertStudents(ctx, roster, &model.UploadLog{Filename: "r.xlsx", Status: model.UploadSuccess, Kind: model.KindStudents}))

		Convey("Search spans id, name, college, department, advisor and email", func() {
			for q, want := range map[string]int64{"2024": 1, "영희": 1, "공과": 2, "물리": 1, "박교수": 1, "UNIV.AC": 1} {
				_, total, err := s.ListStudents(ctx, StudentQuery{Search: q})
				So(err, ShouldBeNil)
				So(total, ShouldEqual, want)
			}
		})

		Convey("Status and program filters are exact", func() {
			_, total, err := s.ListStudents(ctx, StudentQuery{EnrollmentStatus: model.StatusEnrolled, ProgramType: model.ProgramBachelor})
			So(err, ShouldBeNil)
			So(total, ShouldEqual, 2)
		})

		Convey("Uploading the same student id updates the row", func() {
			changed := roster[1]
			changed.EnrollmentStatus = model.StatusEnrolled
			changed.Grade = 3
			require.NoError(t, s.UpsertStudents(ctx, []model.StudentRoster{changed}, nil))

			rows, total, err := s.ListStudents(ctx, StudentQuery{Search: "20230002"})
			So(err, ShouldBeNil)
			So(total, ShouldEqual, 1)
			So(rows[0].EnrollmentStatus, ShouldEqual, model.StatusEnrolled)
			So(rows[0].Grade, ShouldEqual, 3)

			c, err := s.Counts(ctx)
			So(err, ShouldBeNil)
			So(c.Students, ShouldEqual, 3)
		})

		Convey("Default order is by student id", func() {
			rows, _, err := s.ListStudents(ctx, StudentQuery{})
			So(err, ShouldBeNil)
			So(rows[0].StudentID, ShouldEqual, "20220003")

			got, err := s.GetStudent(ctx, rows[0].ID)
			So(err, ShouldBeNil)
			So(got.Name, ShouldEqual, "박민수")
		})
	})
}

func TestUploadLogsAndClear(t *testing.T) {
	Convey("Given success and failure logs", t, func() {
		s := newTestStore(t)
		seed(t, s)
		ctx := context.Background()
		require.NoError(t, s.CreateUploadLog(ctx, &model.UploadLog{
			Filename: "broken.xlsx", Status: model.UploadFailed, ErrorMessage: "boom", Kind: model.KindPerformance,
		}))

		Convey("Logs can be filtered by status", func() {
			rows, total, err := s.ListUploadLogs(ctx, LogQuery{Status: model.UploadFailed})
			So(err, ShouldBeNil)
			So(total, ShouldEqual, 1)
			So(rows[0].ErrorMessage, ShouldEqual, "boom")

			got, err := s.GetUploadLog(ctx, rows[0].ID)
			So(err, ShouldBeNil)
			So(got.Filename, ShouldEqual, "broken.xlsx")

			_, err = s.GetUploadLog(ctx, 999)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("ClearPerformance removes every performance row and nothing else", func() {
			n, err := s.ClearPerformance(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 5)
			c, err := s.Counts(ctx)
			So(err, ShouldBeNil)
			So(c.Performance, ShouldEqual, 0)
			So(c.UploadLogs, ShouldEqual, 2)
		})
	})
}

func TestOrderByAndLike(t *testing.T) {
	Convey("orderBy keeps whitelisted columns and their direction", t, func() {
		So(orderBy("-revenue,department", performanceOrdering, "x"), ShouldEqual, "revenue DESC, department ASC, id ASC")
		So(orderBy("bogus", performanceOrdering, "fallback"), ShouldEqual, "fallback")
		So(orderBy("", performanceOrdering, "fallback"), ShouldEqual, "fallback")
	})

	Convey("like escapes wildcards and lowercases", t, func() {
		So(like(" A_b%c "), ShouldEqual, `%a\_b\%c%`)
	})
}
