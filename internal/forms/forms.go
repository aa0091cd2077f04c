// Package forms validates user input before it is sent to the API.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	phonePattern    = regexp.MustCompile(`^\+?[\d\s\-\(\)]+$`)
)

// FieldError is a single failed rule with its user-facing message
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors lists every failed field in declaration order
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, fe := range v {
		msgs = append(msgs, fe.Message)
	}
	return strings.Join(msgs, "; ")
}

// For returns the message of the first error for field, or ""
func (v ValidationErrors) For(field string) string {
	for _, fe := range v {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}

var (
	once     sync.Once
	validate *validator.Validate

	messagesMu sync.RWMutex
	// messages maps "field.tag" or "Struct.field.tag" to the message shown to the user
	messages = map[string]string{}
)

// Validator returns the shared validator with the custom rules registered
func Validator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()

		// Report fields by their json name
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
		validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		})
		validate.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
			return isStrongPassword(fl.Field().String())
		})
		// numrange=1-120 checks a numeric string is a whole number within the bounds
		validate.RegisterValidation("numrange", func(fl validator.FieldLevel) bool {
			return inRange(fl.Field().String(), fl.Param())
		})
	})
	return validate
}

// RegisterMessages adds user-facing messages keyed by "field.tag", or by
// "Struct.field.tag" to override the message for a single form
func RegisterMessages(m map[string]string) {
	messagesMu.Lock()
	defer messagesMu.Unlock()
	for k, v := range m {
		messages[k] = v
	}
}

// Validate checks s against its validate tags. It returns ValidationErrors
// carrying user-facing messages, or nil.
func Validate(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	messagesMu.RLock()
	msg, ok := messages[fe.Namespace()+"."+fe.Tag()]
	if !ok {
		msg, ok = messages[fe.Field()+"."+fe.Tag()]
	}
	messagesMu.RUnlock()
	if ok {
		return msg
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Please enter a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func isStrongPassword(s string) bool {
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

func inRange(value, param string) bool {
	lo, hi, ok := strings.Cut(param, "-")
	if !ok {
		return false
	}
	min, err := strconv.Atoi(lo)
	if err != nil {
		return false
	}
	max, err := strconv.Atoi(hi)
	if err != nil {
		return false
	}

	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return false
	}
	return n >= min && n <= max
}

// ValidateField checks a single answer before the whole form is filled in.
// form is a struct value whose field with the given json name receives
// value; the other fields keep their values from form. Only string and int
// fields are supported.
func ValidateField(form interface{}, field, value string) error {
	v := reflect.ValueOf(form)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("form must be a struct, got %s", v.Kind())
	}

	copied := reflect.New(v.Type())
	copied.Elem().Set(v)

	target, ok := fieldByJSONName(copied.Elem(), field)
	if !ok {
		return fmt.Errorf("unknown form field %q", field)
	}

	switch target.Kind() {
	case reflect.String:
		target.SetString(value)
	case reflect.Int:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil && strings.TrimSpace(value) != "" {
			return fmt.Errorf("%s must be a number", field)
		}
		target.SetInt(int64(n))
	default:
		return fmt.Errorf("unsupported field type %s", target.Kind())
	}

	err := Validate(copied.Interface())
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	if msg := verrs.For(field); msg != "" {
		return errors.New(msg)
	}
	return nil
}

func fieldByJSONName(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if strings.SplitN(t.Field(i).Tag.Get("json"), ",", 2)[0] == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}
