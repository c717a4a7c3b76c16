// Package validation wraps go-playground/validator with the project's custom
// tags and Korean error messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var reYearMonth = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// New returns a validator that reports fields by their json names and
// understands the "yearmonth" tag (YYYY-MM).
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
		}
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("yearmonth", isYearMonth)
	return v
}

func isYearMonth(fl validator.FieldLevel) bool {
	return reYearMonth.MatchString(fl.Field().String())
}

// Messages converts a validation error into one Korean message per field.
// Non-validation errors are returned as their plain text.
func Messages(err error) []string {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s 값이 필요합니다", field)
	case "oneof":
		return fmt.Sprintf("%s 값은 %s 중 하나여야 합니다 (%v)", field, strings.Join(strings.Fields(fe.Param()), ", "), fe.Value())
	case "email":
		return fmt.Sprintf("%s 값이 올바른 이메일 형식이 아닙니다 (%v)", field, fe.Value())
	case "yearmonth":
		return fmt.Sprintf("%s 값은 YYYY-MM 형식이어야 합니다 (%v)", field, fe.Value())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s 값은 %s자 이하여야 합니다", field, fe.Param())
		}
		return fmt.Sprintf("%s 값은 %s 이하여야 합니다", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s 값은 %s 이상이어야 합니다", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s 값은 %s 이상이어야 합니다 (%v)", field, fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("%s 값은 %s 이하여야 합니다 (%v)", field, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s 값이 올바르지 않습니다 (%s)", field, fe.Tag())
	}
}

// Param parses a positive integer query parameter, returning def when blank.
func Param(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%q 은(는) 1 이상의 정수여야 합니다", raw)
	}
	return n, nil
}
