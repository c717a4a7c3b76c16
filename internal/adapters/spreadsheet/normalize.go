package spreadsheet

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Excel serial day numbers in this range are treated as dates
// (1954-10-03 .. 2119-01-10); plain years and YYYYMM values fall outside.
const (
	minExcelSerial = 20000
	maxExcelSerial = 80000
)

var (
	reYearMonth      = regexp.MustCompile(`^\d{4}-\d{2}$`)
	reCompactMonth   = regexp.MustCompile(`^\d{6}$`)
	reSlashMonth     = regexp.MustCompile(`^(\d{4})[/.](\d{1,2})$`)
	reFloatYearMonth = regexp.MustCompile(`^(\d{6})\.0+$`)
)

var dateLayouts = []string{ //nolint:gochecknoglobals // parse table
	"2006-01-02",
	"2006-1-2",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"2006/1/2",
	"2006/01/02 15:04:05",
	"2006.01.02",
	"2006.1.2",
}

// IsYearMonth reports whether s is a well-formed YYYY-MM month.
func IsYearMonth(s string) bool {
	if !reYearMonth.MatchString(s) {
		return false
	}
	m, _ := strconv.Atoi(s[5:])
	return m >= 1 && m <= 12
}

// NormalizeDate converts a cell value into a YYYY-MM month.
//
//	"2024-05"            -> "2024-05"
//	"202405", "202405.0" -> "2024-05"
//	"2024/05", "2024.5"  -> "2024-05"
//	"2024-05-15 10:00:00" -> "2024-05"
//	"45427" (serial day) -> "2024-05"
//	""                   -> ""
//
// Anything else is cut to its first seven characters.
func NormalizeDate(v string) string {
	s := strings.TrimSpace(v)
	if s == "" || strings.EqualFold(s, "nan") {
		return ""
	}
	if reYearMonth.MatchString(s) {
		return s
	}
	if reCompactMonth.MatchString(s) {
		return s[:4] + "-" + s[4:]
	}
	if m := reFloatYearMonth.FindStringSubmatch(s); m != nil {
		return m[1][:4] + "-" + m[1][4:]
	}
	if m := reSlashMonth.FindStringSubmatch(s); m != nil {
		month := m[2]
		if len(month) == 1 {
			month = "0" + month
		}
		return m[1] + "-" + month
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= minExcelSerial && f <= maxExcelSerial {
		if t, err := excelize.ExcelDateToTime(f, false); err == nil {
			return t.Format("2006-01")
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01")
		}
	}
	r := []rune(s)
	if len(r) > 7 {
		r = r[:7]
	}
	return string(r)
}

// ToDecimal parses a money-like value, ignoring thousands separators.
// Blank or invalid input yields def.
func ToDecimal(v string, def float64) float64 {
	s := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

// ToInt parses a count. Fractions are truncated ("1234.99" -> 1234).
// Blank or invalid input yields def.
func ToInt(v string, def int) int {
	s := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return int(f)
}
