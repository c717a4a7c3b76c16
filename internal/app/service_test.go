package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"

	"github.com/okian/perfboard/internal/adapters/archive"
	"github.com/okian/perfboard/internal/adapters/repository"
	"github.com/okian/perfboard/internal/domain/model"
	"github.com/okian/perfboard/internal/domain/types"
)

const kpiCSV = "기준년월,부서명,매출액,예산,지출액,논문수\n" +
	"2024-01,연구개발팀,100,200,50,1\n" +
	"2024-01,마케팅팀,300,300,100,2\n" +
	"2024-02,연구개발팀,150,200,80,3\n"

const rosterCSV = "학번,이름,학과,학년,과정구분,학적상태\n" +
	"2024001,김민준,컴퓨터공학과,1,학사,재학\n" +
	"2024002,이서연,전자공학과,2,석사,휴학\n"

// memCache is an in-process SummaryCache that counts calls.
type memCache struct {
	mu          sync.Mutex
	gen         uint64
	items       map[string]*types.DashboardSummary
	gets, hits  int
	invalidated int
	failGet     bool
	failGen     bool
}

func newMemCache() *memCache { return &memCache{items: map[string]*types.DashboardSummary{}} }

func (c *memCache) Generation(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGen {
		return 0, errors.New("redis down")
	}
	return c.gen, nil
}

func (c *memCache) Get(_ context.Context, gen uint64, key string) (*types.DashboardSummary, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet {
		return nil, false, errors.New("redis down")
	}
	s, ok := c.items[fmt.Sprintf("%d:%s", gen, key)]
	if ok {
		c.hits++
	}
	return s, ok, nil
}

func (c *memCache) Set(_ context.Context, gen uint64, key string, s *types.DashboardSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[fmt.Sprintf("%d:%s", gen, key)] = s
	return nil
}

func (c *memCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	c.gen++
	c.items = map[string]*types.DashboardSummary{}
	return nil
}

// racingStore runs during once, right after a summary query returns and
// before the service caches the result.
type racingStore struct {
	repository.Store
	during func()
}

func (r *racingStore) Summary(ctx context.Context, referenceDate string, rankingLimit int) (*types.DashboardSummary, error) {
	sum, err := r.Store.Summary(ctx, referenceDate, rankingLimit)
	if f := r.during; f != nil {
		r.during = nil
		f()
	}
	return sum, err
}

// brokenStore fails every write.
type brokenStore struct {
	repository.Store
}

func (brokenStore) ReplaceMonths(context.Context, []model.PerformanceData, *model.UploadLog) error {
	return errors.New("disk I/O error")
}

type failingArchive struct{ calls int }

func (a *failingArchive) Put(context.Context, archive.Entry, []byte) error {
	a.calls++
	return errors.New("archive full")
}

func (a *failingArchive) Get(context.Context, string) (archive.Entry, []byte, error) {
	return archive.Entry{}, nil, errors.New("archive unreadable")
}

func newStore(t *testing.T) *repository.GormStore {
	t.Helper()
	st, err := repository.Open(context.Background(), fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newService(t *testing.T, opts ...Option) (*Service, *repository.GormStore) {
	t.Helper()
	st := newStore(t)
	s, err := New(append([]Option{WithStore(st)}, opts...)...)
	require.NoError(t, err)
	return s, st
}

func TestNew(t *testing.T) {
	Convey("A service without a store is rejected", t, func() {
		_, err := New()
		So(errors.Is(err, ErrNotConfigured), ShouldBeTrue)
	})
}

func TestUpload(t *testing.T) {
	Convey("Given a service over an empty database", t, func() {
		c := newMemCache()
		s, st := newService(t, WithCache(c), WithMaxUploadMB(1))
		ctx := context.Background()

		Convey("A KPI file is stored and reported", func() {
			res, err := s.Upload(ctx, UploadRequest{Filename: "kpi.csv", Data: []byte(kpiCSV), UploadedBy: "관리자"})
			So(err, ShouldBeNil)
			So(res.Message, ShouldEqual, MsgUploadDone)
			So(res.CreatedCount, ShouldEqual, 3)
			So(res.ReferenceDates, ShouldResemble, []string{"2024-01", "2024-02"})
			So(res.Warnings, ShouldBeNil)
			So(c.invalidated, ShouldEqual, 1)

			logs, _, err := st.ListUploadLogs(ctx, repository.LogQuery{})
			So(err, ShouldBeNil)
			So(len(logs), ShouldEqual, 1)
			So(logs[0].Status, ShouldEqual, model.UploadSuccess)
			So(logs[0].ReferenceDate, ShouldEqual, "2024-01")
			So(logs[0].UploadedByName, ShouldEqual, "관리자")
		})

		Convey("Re-uploading a month replaces its rows", func() {
			_, err := s.Upload(ctx, UploadRequest{Filename: "kpi.csv", Data: []byte(kpiCSV)})
			So(err, ShouldBeNil)
			_, err = s.Upload(ctx, UploadRequest{Filename: "jan.csv", Data: []byte("기준년월,부서명,매출액\n2024-01,영업팀,10\n")})
			So(err, ShouldBeNil)

			list, err := s.ListData(ctx, repository.PerformanceQuery{ReferenceDate: "2024-01"})
			So(err, ShouldBeNil)
			So(list.Count, ShouldEqual, 1)
			So(list.Items[0].Department, ShouldEqual, "영업팀")
		})

		Convey("Skipped rows come back as warnings", func() {
			body := "기준년월,부서명,매출액\n2024-01,,10\n2024-13,영업팀,5\n2024-02,영업팀,7\n"
			res, err := s.Upload(ctx, UploadRequest{Filename: "kpi.csv", Data: []byte(body)})
			So(err, ShouldBeNil)
			So(res.CreatedCount, ShouldEqual, 1)
			So(len(res.Warnings), ShouldEqual, 2)
			So(res.Warnings[0], ShouldStartWith, "행 2:")
		})

		Convey("A roster file is upserted", func() {
			res, err := s.Upload(ctx, UploadRequest{Filename: "roster.csv", Data: []byte(rosterCSV), Kind: "students"})
			So(err, ShouldBeNil)
			So(res.Kind, ShouldEqual, model.KindStudents)
			So(res.CreatedCount, ShouldEqual, 2)
			So(c.invalidated, ShouldEqual, 0)

			list, err := s.ListStudents(ctx, repository.StudentQuery{})
			So(err, ShouldBeNil)
			So(list.Count, ShouldEqual, 2)
			So(list.PageSize, ShouldEqual, defaultStudentPageSize)
		})

		Convey("Files are rejected before parsing", func() {
			cases := []struct {
				req UploadRequest
				msg string
			}{
				{UploadRequest{Filename: "kpi.pdf", Data: []byte("x")}, "엑셀 또는 CSV 파일(.xlsx, .xls, .csv)만 업로드 가능합니다."},
				{UploadRequest{Filename: "kpi.csv"}, MsgEmptyFile},
				{UploadRequest{Filename: "kpi.csv", Data: make([]byte, 1<<20+1)}, "파일 크기가 1MB를 초과합니다."},
				{UploadRequest{Filename: "kpi.csv", Data: []byte(kpiCSV), Kind: "grades"}, MsgUnknownKind},
			}
			for _, tc := range cases {
				_, err := s.Upload(ctx, tc.req)
				var uerr *UploadError
				So(errors.As(err, &uerr), ShouldBeTrue)
				So(uerr.Message, ShouldEqual, tc.msg)
				So(errors.Is(err, ErrInvalidUpload), ShouldBeTrue)
			}
			counts, err := st.Counts(ctx)
			So(err, ShouldBeNil)
			So(counts.UploadLogs, ShouldEqual, 0)
		})

		Convey("A corrupt .xls is a processing failure with a failed log", func() {
			_, err := s.Upload(ctx, UploadRequest{Filename: "kpi.xls", Data: []byte("not an ole2 file")})
			var uerr *UploadError
			So(errors.As(err, &uerr), ShouldBeTrue)
			So(errors.Is(err, ErrProcessing), ShouldBeTrue)
			So(errors.Is(err, ErrInvalidUpload), ShouldBeFalse)

			logs, _, err := st.ListUploadLogs(ctx, repository.LogQuery{Status: model.UploadFailed})
			So(err, ShouldBeNil)
			So(len(logs), ShouldEqual, 1)
			So(logs[0].Filename, ShouldEqual, "kpi.xls")
		})

		Convey("A sheet without a date column fails validation", func() {
			_, err := s.Upload(ctx, UploadRequest{Filename: "kpi.csv", Data: []byte("부서명,매출액\n영업팀,1\n")})
			So(errors.Is(err, ErrInvalidUpload), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "기준년월")
		})
	})

	Convey("Given a store that cannot write", t, func() {
		st := newStore(t)
		arch := &failingArchive{}
		s, err := New(WithStore(brokenStore{Store: st}), WithArchive(arch))
		So(err, ShouldBeNil)
		ctx := context.Background()

		Convey("The upload fails with a processing error and a failed log", func() {
			_, err := s.Upload(ctx, UploadRequest{Filename: "kpi.csv", Data: []byte(kpiCSV)})
			So(errors.Is(err, ErrProcessing), ShouldBeTrue)
			So(err.Error(), ShouldStartWith, "파일 처리 중 오류가 발생했습니다: ")
			So(arch.calls, ShouldEqual, 0)

			logs, _, lerr := st.ListUploadLogs(ctx, repository.LogQuery{Status: model.UploadFailed})
			So(lerr, ShouldBeNil)
			So(len(logs), ShouldEqual, 1)
			So(logs[0].ErrorMessage, ShouldContainSubstring, "disk I/O error")
		})
	})

	Convey("A failing archive never fails the upload", t, func() {
		arch := &failingArchive{}
		s, _ := newService(t, WithArchive(arch))
		_, err := s.Upload(context.Background(), UploadRequest{Filename: "kpi.csv", Data: []byte(kpiCSV)})
		So(err, ShouldBeNil)
		So(arch.calls, ShouldEqual, 1)
	})
}

func TestUploadFile(t *testing.T) {
	Convey("Given a service that archives uploads", t, func() {
		arch, err := archive.Open(filepath.Join(t.TempDir(), "uploads.db"))
		So(err, ShouldBeNil)
		defer func() { _ = arch.Close() }()
		s, st := newService(t, WithArchive(arch))
		ctx := context.Background()
		_, err = s.Upload(ctx, UploadRequest{Filename: "kpi.csv", Data: []byte(kpiCSV)})
		So(err, ShouldBeNil)
		logs, _, err := st.ListUploadLogs(ctx, repository.LogQuery{})
		So(err, ShouldBeNil)

		Convey("The original bytes come back for the upload log", func() {
			e, data, err := s.UploadFile(ctx, logs[0].ID)
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, kpiCSV)
			So(e.Filename, ShouldEqual, "kpi.csv")
			So(e.UploadID, ShouldEqual, logs[0].UploadID)
			So(e.Kind, ShouldEqual, model.KindPerformance)
		})

		Convey("An unknown log is ErrNotFound", func() {
			_, _, err := s.UploadFile(ctx, 9999)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given a service without an archive", t, func() {
		s, st := newService(t)
		ctx := context.Background()
		_, err := s.Upload(ctx, UploadRequest{Filename: "kpi.csv", Data: []byte(kpiCSV)})
		So(err, ShouldBeNil)
		logs, _, err := st.ListUploadLogs(ctx, repository.LogQuery{})
		So(err, ShouldBeNil)

		Convey("The log exists but its file is ErrNotFound", func() {
			_, _, err := s.UploadFile(ctx, logs[0].ID)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given an archive that cannot be read", t, func() {
		s, st := newService(t, WithArchive(&failingArchive{}))
		ctx := context.Background()
		_, err := s.Upload(ctx, UploadRequest{Filename: "kpi.csv", Data: []byte(kpiCSV)})
		So(err, ShouldBeNil)
		logs, _, err := st.ListUploadLogs(ctx, repository.LogQuery{})
		So(err, ShouldBeNil)

		Convey("The error is passed through, not reported as missing", func() {
			_, _, err := s.UploadFile(ctx, logs[0].ID)
			So(err, ShouldNotBeNil)
			So(errors.Is(err, ErrNotFound), ShouldBeFalse)
			So(err.Error(), ShouldContainSubstring, "archive unreadable")
		})
	})
}

func TestUploadBatch(t *testing.T) {
	Convey("Given a batch with good, bad and duplicate files", t, func() {
		s, _ := newService(t, WithMaxBatchFiles(5))
		ctx := context.Background()

		files := []UploadRequest{
			{Filename: "kpi.csv", Data: []byte(kpiCSV)},
			{Filename: "notes.txt", Data: []byte("hello")},
			{Filename: "kpi-copy.csv", Data: []byte(kpiCSV)},
			{Filename: "roster.csv", Data: []byte(rosterCSV), Kind: model.KindStudents},
		}
		res, err := s.UploadBatch(ctx, files, "관리자")
		So(err, ShouldBeNil)

		Convey("Each file gets its own outcome", func() {
			So(res.BatchID, ShouldNotBeEmpty)
			So(res.SuccessCount, ShouldEqual, 2)
			So(res.ErrorCount, ShouldEqual, 2)
			So(res.TotalCreated, ShouldEqual, 5)
			So(res.Message, ShouldEqual, "2개 파일 성공, 2개 파일 실패. 총 5개 데이터 저장.")
			So(len(res.Files), ShouldEqual, 4)
			So(res.Files[0].Success, ShouldBeTrue)
			So(res.Files[1].Error, ShouldStartWith, "엑셀 또는 CSV")
			So(res.Files[2].Error, ShouldEqual, MsgDuplicateFile)
			So(res.Files[3].Result.Kind, ShouldEqual, model.KindStudents)
		})

		Convey("Logs carry the batch id and uploader", func() {
			logs, err := s.ListLogs(ctx, repository.LogQuery{})
			So(err, ShouldBeNil)
			So(logs.Count, ShouldEqual, 2)
			for _, l := range logs.Items {
				So(l.BatchID, ShouldEqual, res.BatchID)
				So(l.UploadedByName, ShouldEqual, "관리자")
			}
		})
	})

	Convey("Empty and oversized batches are rejected", t, func() {
		s, _ := newService(t, WithMaxBatchFiles(1))
		_, err := s.UploadBatch(context.Background(), nil, "")
		So(errors.Is(err, ErrInvalidUpload), ShouldBeTrue)

		_, err = s.UploadBatch(context.Background(), make([]UploadRequest, 2), "")
		So(err.Error(), ShouldEqual, "한 번에 최대 1개 파일까지 업로드할 수 있습니다.")
	})
}

func TestSummary(t *testing.T) {
	Convey("Given stored KPI data", t, func() {
		c := newMemCache()
		s, _ := newService(t, WithCache(c), WithRankingLimit(1))
		ctx := context.Background()
		_, err := s.Upload(ctx, UploadRequest{Filename: "kpi.csv", Data: []byte(kpiCSV)})
		So(err, ShouldBeNil)

		Convey("The unfiltered summary covers every month", func() {
			sum, err := s.Summary(ctx, "", types.Filter{})
			So(err, ShouldBeNil)
			So(sum.Summary.TotalRevenue, ShouldEqual, 550)
			So(len(sum.MonthlyTrend), ShouldEqual, 2)
			So(len(sum.DepartmentRanking), ShouldEqual, 1)
			So(sum.DepartmentRanking[0].Department, ShouldEqual, "마케팅팀")
		})

		Convey("The second call is served from the cache", func() {
			_, err := s.Summary(ctx, "", types.Filter{})
			So(err, ShouldBeNil)
			_, err = s.Summary(ctx, "", types.Filter{StartDate: "2024-02"})
			So(err, ShouldBeNil)
			So(c.gets, ShouldEqual, 2)
			So(c.hits, ShouldEqual, 1)
		})

		Convey("Filters narrow the trend and the ranking before the limit", func() {
			sum, err := s.Summary(ctx, "", types.Filter{StartDate: "2024-02", EndDate: "2024-02", Departments: []string{"연구개발팀"}})
			So(err, ShouldBeNil)
			So(len(sum.MonthlyTrend), ShouldEqual, 1)
			So(sum.MonthlyTrend[0].ReferenceDate, ShouldEqual, "2024-02")
			So(len(sum.DepartmentRanking), ShouldEqual, 1)
			So(sum.DepartmentRanking[0].Department, ShouldEqual, "연구개발팀")
			So(sum.Summary.TotalRevenue, ShouldEqual, 550)
		})

		Convey("Filtering never touches the cached copy", func() {
			_, err := s.Summary(ctx, "", types.Filter{Departments: []string{"없는부서"}})
			So(err, ShouldBeNil)
			deps, err := s.Departments(ctx, "")
			So(err, ShouldBeNil)
			So(deps, ShouldResemble, []string{"마케팅팀", "연구개발팀"})
		})

		Convey("A month restricts totals but not the trend", func() {
			sum, err := s.Summary(ctx, "2024-02", types.Filter{})
			So(err, ShouldBeNil)
			So(sum.Summary.TotalRevenue, ShouldEqual, 150)
			So(len(sum.MonthlyTrend), ShouldEqual, 2)
		})

		Convey("A broken cache falls back to the database", func() {
			c.failGet = true
			sum, err := s.Summary(ctx, "", types.Filter{})
			So(err, ShouldBeNil)
			So(sum.Summary.TotalRevenue, ShouldEqual, 550)
		})

		Convey("A new upload invalidates the cached summary", func() {
			_, err := s.Summary(ctx, "", types.Filter{})
			So(err, ShouldBeNil)
			_, err = s.Upload(ctx, UploadRequest{Filename: "mar.csv", Data: []byte("기준년월,부서명,매출액\n2024-03,영업팀,50\n")})
			So(err, ShouldBeNil)
			sum, err := s.Summary(ctx, "", types.Filter{})
			So(err, ShouldBeNil)
			So(sum.Summary.TotalRevenue, ShouldEqual, 600)
		})

		Convey("Without a generation the summary is computed but not cached", func() {
			c.failGen = true
			sum, err := s.Summary(ctx, "", types.Filter{})
			So(err, ShouldBeNil)
			So(sum.Summary.TotalRevenue, ShouldEqual, 550)
			So(c.gets, ShouldEqual, 0)
			So(c.items, ShouldBeEmpty)
		})
	})

	Convey("Given an upload that lands while a summary is being computed", t, func() {
		c := newMemCache()
		rs := &racingStore{Store: newStore(t)}
		s, err := New(WithStore(rs), WithCache(c))
		So(err, ShouldBeNil)
		ctx := context.Background()
		_, err = s.Upload(ctx, UploadRequest{Filename: "kpi.csv", Data: []byte(kpiCSV)})
		So(err, ShouldBeNil)

		rs.during = func() {
			_, err := s.Upload(ctx, UploadRequest{Filename: "mar.csv", Data: []byte("기준년월,부서명,매출액\n2024-03,영업팀,50\n")})
			So(err, ShouldBeNil)
		}
		stale, err := s.Summary(ctx, "", types.Filter{})
		So(err, ShouldBeNil)
		So(stale.Summary.TotalRevenue, ShouldEqual, 550)

		Convey("Then the summary computed before the upload is not served afterwards", func() {
			sum, err := s.Summary(ctx, "", types.Filter{})
			So(err, ShouldBeNil)
			So(sum.Summary.TotalRevenue, ShouldEqual, 600)
			So(c.hits, ShouldEqual, 0)
		})
	})
}

func TestListingsAndStats(t *testing.T) {
	Convey("Given stored data", t, func() {
		s, _ := newService(t, WithPageSizes(2, 2))
		ctx := context.Background()
		_, err := s.Upload(ctx, UploadRequest{Filename: "kpi.csv", Data: []byte(kpiCSV)})
		So(err, ShouldBeNil)

		Convey("Page sizes are clamped", func() {
			list, err := s.ListData(ctx, repository.PerformanceQuery{PageSize: 50})
			So(err, ShouldBeNil)
			So(list.PageSize, ShouldEqual, 2)
			So(len(list.Items), ShouldEqual, 2)
			So(list.Count, ShouldEqual, 3)
		})

		Convey("Pages past the end are invalid", func() {
			_, err := s.ListData(ctx, repository.PerformanceQuery{Page: 9})
			So(errors.Is(err, ErrInvalidPage), ShouldBeTrue)
		})

		Convey("Missing records are not found", func() {
			_, err := s.GetData(ctx, 999)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			_, err = s.GetStudent(ctx, 999)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			_, err = s.GetLog(ctx, 999)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("Stored records can be fetched by id", func() {
			list, err := s.ListData(ctx, repository.PerformanceQuery{})
			So(err, ShouldBeNil)
			row, err := s.GetData(ctx, list.Items[0].ID)
			So(err, ShouldBeNil)
			So(row.ReferenceDate, ShouldEqual, list.Items[0].ReferenceDate)
		})

		Convey("Stats report counts and the last upload", func() {
			st, err := s.GetStats(ctx)
			So(err, ShouldBeNil)
			So(st.Counts.Performance, ShouldEqual, 3)
			So(st.Counts.UploadLogs, ShouldEqual, 1)
			So(st.ReferenceMonths, ShouldEqual, 2)
			So(st.LastUpload.Filename, ShouldEqual, "kpi.csv")
		})

		Convey("Clearing removes every performance row", func() {
			n, err := s.ClearPerformance(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 3)
			sum, err := s.Summary(ctx, "", types.Filter{})
			So(err, ShouldBeNil)
			So(len(sum.MonthlyTrend), ShouldEqual, 0)
			So(strings.Join(sum.ReferenceDates, ","), ShouldEqual, "")
		})
	})
}
