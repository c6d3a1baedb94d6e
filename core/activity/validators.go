package activity

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/jamii/core"
)

// InitValidators registers the activity type & status rules.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterRules(validate, translator,
		core.ValidationRule{
			Tag:  "activitytype",
			Text: "type must be one of Post, Event, Resource, Maintenance or Poll",
			Func: core.OneOfValidation(Types),
		},
		core.ValidationRule{
			Tag:  "activitystatus",
			Text: "status must be one of Active, Resolved or Closed",
			Func: core.OneOfValidation(Statuses),
		},
	)
}
