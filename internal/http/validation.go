package http

import (
	"reflect"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// registerValidators adds coordinate rules to gin's request validator.
func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("latitude", rangeRule(-90, 90))
	_ = v.RegisterValidation("longitude", rangeRule(-180, 180))
}

func rangeRule(min, max float64) validator.Func {
	return func(fl validator.FieldLevel) bool {
		switch fl.Field().Kind() {
		case reflect.Float32, reflect.Float64:
			val := fl.Field().Float()
			return val >= min && val <= max
		}
		return false
	}
}
