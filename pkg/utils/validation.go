package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// 错误详情里使用 JSON 字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		return datePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register isodate validation: %v", err))
	}

	return v
}

// ValidateStruct 校验请求结构体，失败时返回 VALIDATION_ERROR
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate request: %w", err)
	}

	details := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, FieldError{Field: fe.Field(), Message: fieldMessage(fe.Field(), fe.Tag())})
	}
	return NewValidationError(details...)
}

// ValidateQueryDate 校验可选的日期查询参数
func ValidateQueryDate(field, value string) error {
	if value == "" {
		return nil
	}
	if err := validate.Var(value, "isodate"); err != nil {
		return NewValidationError(FieldError{Field: field, Message: fieldMessage(field, "isodate")})
	}
	return nil
}

func fieldMessage(field, tag string) string {
	switch tag {
	case "required":
		return field + " is required"
	case "isodate":
		return field + " must be in YYYY-MM-DD format"
	case "uuid":
		return field + " must be a valid UUID"
	default:
		return field + " is invalid"
	}
}

// IsValidEmail 邮箱格式校验
func IsValidEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

// IsStrongPassword requires at least 8 characters with one uppercase
// letter and one digit.
func IsStrongPassword(password string) bool {
	if utf8.RuneCountInString(password) < 8 {
		return false
	}
	var upper, digit bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return upper && digit
}

// IsValidDateFormat 严格匹配 YYYY-MM-DD
func IsValidDateFormat(value string) bool {
	return datePattern.MatchString(value)
}

// ParseWeekStart validates a week key: strict YYYY-MM-DD, a real calendar
// date, and a Monday.
func ParseWeekStart(value string) (time.Time, error) {
	if !IsValidDateFormat(value) {
		return time.Time{}, NewAppError(CodeInvalidDate, "Invalid date format. Use YYYY-MM-DD")
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, NewAppError(CodeInvalidDate, "Invalid date format. Use YYYY-MM-DD")
	}
	if t.Weekday() != time.Monday {
		return time.Time{}, NewAppError(CodeNotMonday, "Week start date must be a Monday")
	}
	return t, nil
}
