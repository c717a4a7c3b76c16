package spreadsheet

import "strings"

// Canonical field names.
const (
	FieldReferenceDate  = "reference_date"
	FieldDepartment     = "department"
	FieldDepartmentCode = "department_code"
	FieldRevenue        = "revenue"
	FieldBudget         = "budget"
	FieldExpenditure    = "expenditure"
	FieldPaperCount     = "paper_count"
	FieldPatentCount    = "patent_count"
	FieldProjectCount   = "project_count"
	FieldExtraMetric1   = "extra_metric_1"
	FieldExtraMetric2   = "extra_metric_2"
	FieldExtraText      = "extra_text"

	FieldStudentID        = "student_id"
	FieldName             = "name"
	FieldCollege          = "college"
	FieldGrade            = "grade"
	FieldProgramType      = "program_type"
	FieldEnrollmentStatus = "enrollment_status"
	FieldGender           = "gender"
	FieldAdmissionYear    = "admission_year"
	FieldAdvisor          = "advisor"
	FieldEmail            = "email"
)

// PerformanceColumns maps accepted headers (Korean and English) to fields.
var PerformanceColumns = map[string]string{ //nolint:gochecknoglobals // lookup table
	"기준년월":           FieldReferenceDate,
	"기준 년월":          FieldReferenceDate,
	"reference_date": FieldReferenceDate,

	"부서명":        FieldDepartment,
	"부서":         FieldDepartment,
	"department": FieldDepartment,

	"부서코드":            FieldDepartmentCode,
	"department_code": FieldDepartmentCode,

	"매출액":     FieldRevenue,
	"매출":      FieldRevenue,
	"revenue": FieldRevenue,

	"예산":     FieldBudget,
	"budget": FieldBudget,

	"지출액":         FieldExpenditure,
	"지출":          FieldExpenditure,
	"expenditure": FieldExpenditure,

	"논문수":         FieldPaperCount,
	"논문":          FieldPaperCount,
	"paper_count": FieldPaperCount,

	"특허수":          FieldPatentCount,
	"특허":           FieldPatentCount,
	"patent_count": FieldPatentCount,

	"프로젝트수":         FieldProjectCount,
	"프로젝트":          FieldProjectCount,
	"project_count": FieldProjectCount,

	"추가지표1":          FieldExtraMetric1,
	"extra_metric_1": FieldExtraMetric1,
	"추가지표2":          FieldExtraMetric2,
	"extra_metric_2": FieldExtraMetric2,

	"비고":         FieldExtraText,
	"extra_text": FieldExtraText,
}

// StudentColumns maps accepted roster headers to fields.
var StudentColumns = map[string]string{ //nolint:gochecknoglobals // lookup table
	"학번":         FieldStudentID,
	"student_id": FieldStudentID,
	"이름":         FieldName,
	"성명":         FieldName,
	"name":       FieldName,
	"단과대학":       FieldCollege,
	"college":    FieldCollege,
	"학과":         FieldDepartment,
	"소속학과":       FieldDepartment,
	"department": FieldDepartment,
	"학년":         FieldGrade,
	"grade":      FieldGrade,

	"과정구분":         FieldProgramType,
	"과정":           FieldProgramType,
	"program_type": FieldProgramType,

	"학적상태":              FieldEnrollmentStatus,
	"학적":                FieldEnrollmentStatus,
	"enrollment_status": FieldEnrollmentStatus,

	"성별":     FieldGender,
	"gender": FieldGender,

	"입학년도":           FieldAdmissionYear,
	"admission_year": FieldAdmissionYear,

	"지도교수":    FieldAdvisor,
	"advisor": FieldAdvisor,
	"이메일":     FieldEmail,
	"email":   FieldEmail,
}

// header is a resolved header row: field name -> column index.
type header map[string]int

// mapHeader resolves the header row against mapping. Unknown columns are
// ignored; when two headers map to the same field the first one wins.
func mapHeader(row []string, mapping map[string]string) header {
	h := make(header, len(row))
	for i, raw := range row {
		field, ok := mapping[strings.TrimSpace(raw)]
		if !ok {
			continue
		}
		if _, dup := h[field]; dup {
			continue
		}
		h[field] = i
	}
	return h
}

func (h header) has(field string) bool {
	_, ok := h[field]
	return ok
}

// get returns the trimmed value of field in row, "" when absent.
func (h header) get(row []string, field string) string {
	idx, ok := h[field]
	if !ok {
		return ""
	}
	return cellValue(row, idx)
}
