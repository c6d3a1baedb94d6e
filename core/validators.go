package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// ValidationRule is a custom validation tag with its English message.
// Func may be nil for tags that are reported by struct level validators or built into validator.
type ValidationRule struct {
	Tag      string
	Text     string
	Func     validator.Func
	Override bool // replace validator's default message for a built-in tag
}

var alphaNumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)

var globalRules = []ValidationRule{
	{
		Tag:  "alphanum_",
		Text: "only alphanumeric characters and underscores are allowed",
		Func: func(fl validator.FieldLevel) bool { return alphaNumUnderRegex.MatchString(fl.Field().String()) },
	},
	{
		Tag:  "notblank",
		Text: "this field cannot be blank",
		Func: func(fl validator.FieldLevel) bool { return CleanString(fl.Field().String()) != "" },
	},
	{Tag: "required", Text: "this field is required", Override: true},
	{Tag: "required_with", Text: "this field is required", Override: true},
}

// NewValidator returns a validator with its English translator, both initialized by InitValidators.
func NewValidator() (*validator.Validate, ut.Translator) {
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	validate := validator.New()
	InitValidators(validate, translator)
	return validate, translator
}

// InitValidators sets up English messages, JSON field names and the rules shared by every domain.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	RegisterRules(validate, translator, globalRules...)
}

// RegisterRules registers each rule's validation func (if any) and its translated message.
func RegisterRules(validate *validator.Validate, translator ut.Translator, rules ...ValidationRule) {
	for _, rule := range rules {
		rule := rule
		if rule.Func != nil {
			_ = validate.RegisterValidation(rule.Tag, rule.Func)
		}
		_ = validate.RegisterTranslation(
			rule.Tag, translator,
			func(t ut.Translator) error { return t.Add(rule.Tag, rule.Text, rule.Override) },
			func(t ut.Translator, fe validator.FieldError) string {
				msg, _ := t.T(rule.Tag, fe.Field())
				return msg
			},
		)
	}
}

// OneOfValidation only allows the given values.
func OneOfValidation(values []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return StringInSlice(fl.Field().String(), values)
	}
}
