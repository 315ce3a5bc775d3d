package commands

import (
	"github.com/go-playground/validator/v10"

	"devrank/domain/forms"
	"devrank/pkg/utils"
)

func init() {
	if err := utils.RegisterValidation("form_action", validFormAction); err != nil {
		panic(err)
	}
}

func validFormAction(fl validator.FieldLevel) bool {
	_, ok := forms.ParseAction(fl.Field().String())
	return ok
}
