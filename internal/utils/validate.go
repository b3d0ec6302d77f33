package utils

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	personNamePattern = regexp.MustCompile(`^[A-Za-z\s'-]+$`)
	usernamePattern   = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	phoneDigits       = regexp.MustCompile(`^[0-9]{7,15}$`)
	phoneSeparators   = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// NewValidator returns a validator that reports fields by their JSON name and
// knows the personname, username and phone tags.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneDigits.MatchString(NormalizePhone(fl.Field().String()))
	})
	return v
}

// NormalizePhone strips the separators people type into phone numbers.
func NormalizePhone(phone string) string {
	return phoneSeparators.Replace(strings.TrimSpace(phone))
}

// FieldErrors maps each failing field to a message. messages is keyed by
// "field.tag"; a bare "field" key is the fallback for any tag on that field.
// Errors that are not validation errors come back as the second result.
func FieldErrors(err error, messages map[string]string) (map[string]string, error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := fields[field]; seen {
			continue
		}
		if msg, ok := messages[field+"."+fe.Tag()]; ok {
			fields[field] = msg
		} else if msg, ok := messages[field]; ok {
			fields[field] = msg
		} else {
			fields[field] = field + " is invalid"
		}
	}
	return fields, nil
}
