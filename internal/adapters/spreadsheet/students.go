package spreadsheet

import (
	"fmt"
	"strings"

	"github.com/okian/perfboard/internal/domain/model"
	"github.com/okian/perfboard/internal/validation"
)

var validate = validation.New() //nolint:gochecknoglobals // validator caches struct metadata

// StudentSheet is a parsed roster upload.
type StudentSheet struct {
	Rows     []model.StudentRoster
	Warnings []string
}

// ParseStudents reads filename and maps its rows onto StudentRoster.
// Rows that fail validation are skipped with a warning; a student ID that
// repeats within the file keeps its last row.
func ParseStudents(filename string, data []byte) (*StudentSheet, error) {
	rows, err := ReadRows(filename, data)
	if err != nil {
		return nil, err
	}
	return ParseStudentRows(rows)
}

// ParseStudentRows does the mapping for rows already read from a file.
func ParseStudentRows(rows [][]string) (*StudentSheet, error) {
	if len(rows) < 2 {
		return nil, newError(ErrEmpty, MsgEmptyWorkbook)
	}
	h := mapHeader(rows[0], StudentColumns)
	if !h.has(FieldStudentID) {
		return nil, newError(ErrMissingColumn, MsgMissingStudentID)
	}

	out := &StudentSheet{}
	index := map[string]int{}
	for i, row := range rows[1:] {
		line := i + 2
		if blank(row) {
			continue
		}
		rec := model.StudentRoster{
			StudentID:        h.get(row, FieldStudentID),
			Name:             h.get(row, FieldName),
			College:          h.get(row, FieldCollege),
			Department:       h.get(row, FieldDepartment),
			Grade:            ToInt(h.get(row, FieldGrade), 0),
			ProgramType:      normalizeProgram(h.get(row, FieldProgramType)),
			EnrollmentStatus: h.get(row, FieldEnrollmentStatus),
			Gender:           h.get(row, FieldGender),
			AdmissionYear:    optionalInt(h.get(row, FieldAdmissionYear)),
			Advisor:          h.get(row, FieldAdvisor),
			Email:            h.get(row, FieldEmail),
		}
		if err := validate.Struct(rec); err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("행 %d: %s", line, strings.Join(validation.Messages(err), ", ")))
			continue
		}
		if at, dup := index[rec.StudentID]; dup {
			out.Rows[at] = rec
			continue
		}
		index[rec.StudentID] = len(out.Rows)
		out.Rows = append(out.Rows, rec)
	}

	if len(out.Rows) == 0 {
		return nil, newError(ErrNoValidRows, MsgNoValidRows, out.Warnings...)
	}
	return out, nil
}

// normalizeProgram accepts the long forms used by some registrar exports.
func normalizeProgram(v string) string {
	switch v {
	case "학사과정":
		return model.ProgramBachelor
	case "석사과정":
		return model.ProgramMaster
	case "박사과정":
		return model.ProgramDoctor
	}
	return v
}

func optionalInt(v string) *int {
	if v == "" {
		return nil
	}
	n := ToInt(v, 0)
	if n == 0 {
		return nil
	}
	return &n
}
