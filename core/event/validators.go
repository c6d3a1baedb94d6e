package event

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/jamii/core"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterRules(validate, translator, core.ValidationRule{
		Tag:  "eventtype",
		Text: "type must be one of meeting, social, volunteer or workshop",
		Func: core.OneOfValidation(Types),
	})
}
