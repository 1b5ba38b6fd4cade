package http

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"character-creator/internal/domain"
)

const rgbColorTag = "rgbcolor"

var registerValidation sync.Once

// setupValidation reports JSON/form field names in errors and adds the rgbcolor rule.
func setupValidation() {
	registerValidation.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(fieldName)
		mustRegisterValidation(v, rgbColorTag, isRGBColor)
	})
}

// mustRegisterValidation panics when a binding rule cannot be registered.
func mustRegisterValidation(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %q validation: %v", tag, err))
	}
}

func isRGBColor(fl validator.FieldLevel) bool {
	return domain.IsHexColor(fl.Field().String())
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}
