package validator

import (
	"errors"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shandysiswandi/notifyflow/internal/pkg/strcase"
)

// ErrTranslatorNotFound is returned when the English translator cannot be built.
var ErrTranslatorNotFound = errors.New("validator: en translator not found")

// customRule is a string-only tag with its English message; {0} is the field.
type customRule struct {
	tag     string
	message string
	match   func(string) bool
}

var customRules = []customRule{
	{
		tag:     "upper_snake",
		message: "{0} must be an UPPER_SNAKE_CASE code",
		match:   regexp.MustCompile(`^[A-Z][A-Z0-9]*(_[A-Z0-9]+)*$`).MatchString,
	},
}

// V10ValidationError maps snake_case field names to their English message.
type V10ValidationError map[string]string

func (vs V10ValidationError) Error() string {
	if len(vs) == 0 {
		return "validation error"
	}
	parts := make([]string, 0, len(vs))
	for _, k := range slices.Sorted(maps.Keys(vs)) {
		parts = append(parts, k+": "+vs[k])
	}
	return "validation error: " + strings.Join(parts, "; ")
}

func (vs V10ValidationError) Values() map[string]string { return vs }

// V10Validator is the go-playground/validator implementation of Validator.
type V10Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

func NewV10Validator() (*V10Validator, error) {
	lang := en.New()
	trans, ok := ut.New(lang, lang).GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	if err := enTranslations.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, err
	}
	for _, rule := range customRules {
		if err := register(v, trans, rule); err != nil {
			return nil, err
		}
	}

	return &V10Validator{validate: v, trans: trans}, nil
}

func register(v *validator.Validate, trans ut.Translator, rule customRule) error {
	err := v.RegisterValidation(rule.tag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && rule.match(s)
	})
	if err != nil {
		return err
	}

	return v.RegisterTranslation(rule.tag, trans,
		func(t ut.Translator) error { return t.Add(rule.tag, rule.message, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, err := t.T(fe.Tag(), fe.Field())
			if err != nil {
				return fe.Error()
			}
			return msg
		},
	)
}

// Validate returns a V10ValidationError for field failures and any other
// error (such as a non-struct argument) unchanged.
func (v *V10Validator) Validate(data any) error {
	err := v.validate.Struct(data)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(V10ValidationError, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[strcase.ToLowerSnake(fe.Field())] = fe.Translate(v.trans)
	}
	return out
}
