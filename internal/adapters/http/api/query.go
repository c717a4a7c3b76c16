package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/perfboard/internal/domain/types"
	"github.com/okian/perfboard/internal/validation"
)

const (
	paramPage     = "page"
	paramPageSize = "page_size"
)

type summaryQuery struct {
	ReferenceDate string   `query:"reference_date" validate:"omitempty,yearmonth"`
	StartDate     string   `query:"start_date" validate:"omitempty,yearmonth"`
	EndDate       string   `query:"end_date" validate:"omitempty,yearmonth"`
	Departments   []string `query:"department" validate:"dive,max=100"`
}

type dataQuery struct {
	ReferenceDate string `query:"reference_date" validate:"omitempty,yearmonth"`
	StartDate     string `query:"start_date" validate:"omitempty,yearmonth"`
	EndDate       string `query:"end_date" validate:"omitempty,yearmonth"`
	Department    string `query:"department" validate:"max=100"`
	Search        string `query:"search" validate:"max=100"`
	Ordering      string `query:"ordering" validate:"max=200"`
}

type studentQuery struct {
	Search           string `query:"search" validate:"max=100"`
	EnrollmentStatus string `query:"enrollment_status" validate:"omitempty,oneof=재학 휴학 졸업 제적"`
	ProgramType      string `query:"program_type" validate:"omitempty,oneof=학사 석사 박사"`
	College          string `query:"college" validate:"max=100"`
	Department       string `query:"department" validate:"max=100"`
	Ordering         string `query:"ordering" validate:"max=200"`
}

type logQuery struct {
	Status string `query:"status" validate:"omitempty,oneof=success failed"`
	Kind   string `query:"kind" validate:"omitempty,oneof=performance students"`
}

// departments collects ?department=a&department=b and ?department=a,b.
func departments(q url.Values) []string {
	var out []string
	for _, v := range q["department"] {
		for _, d := range strings.Split(v, ",") {
			if d = strings.TrimSpace(d); d != "" {
				out = append(out, d)
			}
		}
	}
	return out
}

func (q summaryQuery) filter() types.Filter {
	return types.Filter{StartDate: q.StartDate, EndDate: q.EndDate, Departments: q.Departments}
}

// pageParams parses page and page_size; 0 page size means the service default.
func pageParams(q url.Values) (page, size int, details []string) {
	page, err := validation.Param(q.Get(paramPage), 1)
	if err != nil {
		details = append(details, paramPage+": "+err.Error())
	}
	size, err = validation.Param(q.Get(paramPageSize), 0)
	if err != nil {
		details = append(details, paramPageSize+": "+err.Error())
	}
	return page, size, details
}

// check validates v and writes a 400 when it fails.
func check(w http.ResponseWriter, r *http.Request, v any, details ...string) bool {
	if err := validate.Struct(v); err != nil {
		details = append(details, validation.Messages(err)...)
	}
	if len(details) > 0 {
		writeError(w, r, http.StatusBadRequest, msgInvalidQuery, details...)
		return false
	}
	return true
}

// idParam reads the {id} URL parameter; ok is false for anything that is
// not a positive integer.
func idParam(r *http.Request) (uint, bool) {
	n, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 0)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// pageLinks builds absolute next/previous URLs for a listing page.
func pageLinks(r *http.Request, page, size int, count int64) (next, prev *string) {
	link := func(p int) *string {
		u := *r.URL
		u.Scheme = "http"
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			u.Scheme = "https"
		}
		u.Host = r.Host
		q := u.Query()
		if p == 1 {
			q.Del(paramPage)
		} else {
			q.Set(paramPage, strconv.Itoa(p))
		}
		u.RawQuery = q.Encode()
		s := u.String()
		return &s
	}
	if size > 0 && int64(page) < (count+int64(size)-1)/int64(size) {
		next = link(page + 1)
	}
	if page > 1 {
		prev = link(page - 1)
	}
	return next, prev
}
