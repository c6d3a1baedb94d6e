package resource

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/jamii/core"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterRules(validate, translator, core.ValidationRule{
		Tag:  "resourcetype",
		Text: "type must be one of document or link",
		Func: core.OneOfValidation(Types),
	})
}
