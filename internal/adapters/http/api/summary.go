package api

import (
	"net/http"

	"github.com/go-chi/render"
)

// handleSummary handles GET /api/summary/.
//
//	reference_date  restrict totals and ranking to one month
//	start_date      keep trend points from this month on
//	end_date        keep trend points up to this month
//	department      keep these departments in the ranking (repeatable or comma separated)
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sq := summaryQuery{
		ReferenceDate: q.Get("reference_date"),
		StartDate:     q.Get("start_date"),
		EndDate:       q.Get("end_date"),
		Departments:   departments(q),
	}
	if !check(w, r, sq) {
		return
	}
	sum, err := s.deps.Summary(r.Context(), sq.ReferenceDate, sq.filter())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, sum)
}

type departmentsResponse struct {
	Departments []string `json:"departments"`
}

// handleDepartments handles GET /api/summary/departments/, the choices for
// the department filter.
func (s *Server) handleDepartments(w http.ResponseWriter, r *http.Request) {
	sq := summaryQuery{ReferenceDate: r.URL.Query().Get("reference_date")}
	if !check(w, r, sq) {
		return
	}
	deps, err := s.deps.Departments(r.Context(), sq.ReferenceDate)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, departmentsResponse{Departments: deps})
}
