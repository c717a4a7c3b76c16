package api

import (
	"context"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/render"

	"github.com/okian/perfboard/internal/adapters/repository"
	service "github.com/okian/perfboard/internal/app"
	"github.com/okian/perfboard/internal/domain/types"
)

var fileContentTypes = map[string]string{ //nolint:gochecknoglobals // lookup table
	".csv":  "text/csv; charset=utf-8",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":  "application/vnd.ms-excel",
}

func writePage[T any](w http.ResponseWriter, r *http.Request, l *service.Listing[T]) {
	next, prev := pageLinks(r, l.Page, l.PageSize, l.Count)
	items := l.Items
	if items == nil {
		items = []T{}
	}
	render.JSON(w, r, types.Page[T]{Count: l.Count, Next: next, Previous: prev, Results: items})
}

func writeOne[T any](s *Server, w http.ResponseWriter, r *http.Request, get func(context.Context, uint) (*T, error)) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, r, http.StatusNotFound, service.MsgNotFound)
		return
	}
	v, err := get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, v)
}

// handleListData handles GET /api/data/.
func (s *Server) handleListData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, size, details := pageParams(q)
	dq := dataQuery{
		ReferenceDate: q.Get("reference_date"),
		StartDate:     q.Get("start_date"),
		EndDate:       q.Get("end_date"),
		Department:    q.Get("department"),
		Search:        q.Get("search"),
		Ordering:      q.Get("ordering"),
	}
	if !check(w, r, dq, details...) {
		return
	}
	l, err := s.deps.ListData(r.Context(), repository.PerformanceQuery{
		ReferenceDate: dq.ReferenceDate,
		StartDate:     dq.StartDate,
		EndDate:       dq.EndDate,
		Department:    dq.Department,
		Search:        dq.Search,
		Ordering:      dq.Ordering,
		Page:          page,
		PageSize:      size,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writePage(w, r, l)
}

// handleGetData handles GET /api/data/{id}/.
func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	writeOne(s, w, r, s.deps.GetData)
}

// handleListStudents handles GET /api/students/.
func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, size, details := pageParams(q)
	sq := studentQuery{
		Search:           q.Get("search"),
		EnrollmentStatus: q.Get("enrollment_status"),
		ProgramType:      q.Get("program_type"),
		College:          q.Get("college"),
		Department:       q.Get("department"),
		Ordering:         q.Get("ordering"),
	}
	if !check(w, r, sq, details...) {
		return
	}
	l, err := s.deps.ListStudents(r.Context(), repository.StudentQuery{
		Search:           sq.Search,
		EnrollmentStatus: sq.EnrollmentStatus,
		ProgramType:      sq.ProgramType,
		College:          sq.College,
		Department:       sq.Department,
		Ordering:         sq.Ordering,
		Page:             page,
		PageSize:         size,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writePage(w, r, l)
}

// handleGetStudent handles GET /api/students/{id}/.
func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	writeOne(s, w, r, s.deps.GetStudent)
}

// handleListLogs handles GET /api/logs/.
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, size, details := pageParams(q)
	lq := logQuery{Status: q.Get("status"), Kind: q.Get("kind")}
	if !check(w, r, lq, details...) {
		return
	}
	l, err := s.deps.ListLogs(r.Context(), repository.LogQuery{
		Status:   lq.Status,
		Kind:     lq.Kind,
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writePage(w, r, l)
}

// handleGetLog handles GET /api/logs/{id}/.
func (s *Server) handleGetLog(w http.ResponseWriter, r *http.Request) {
	writeOne(s, w, r, s.deps.GetLog)
}

// handleGetLogFile handles GET /api/logs/{id}/file/ and sends back the
// spreadsheet exactly as it was uploaded.
func (s *Server) handleGetLogFile(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, r, http.StatusNotFound, service.MsgNotFound)
		return
	}
	e, data, err := s.deps.UploadFile(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ct, ok := fileContentTypes[strings.ToLower(filepath.Ext(e.Filename))]
	if !ok {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": e.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
