package handler

import (
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	phonePattern      = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	registerValidOnce sync.Once
)

func validatePhone(fl validator.FieldLevel) bool {
	return phonePattern.MatchString(fl.Field().String())
}

// registerValidators adds the custom binding tags to gin's validator engine.
func registerValidators() {
	registerValidOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("phone", validatePhone)
		}
	})
}
