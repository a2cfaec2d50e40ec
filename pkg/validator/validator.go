package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var hhmmPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Validator wraps go-playground/validator with the project's custom rules registered.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New()
	registerCustom(v)
	return &Validator{validate: v}
}

// RegisterGin installs the custom rules on gin's binding engine so `binding` tags can use them.
func RegisterGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected gin validator engine %T", binding.Validator.Engine())
	}
	registerCustom(v)
	return nil
}

func registerCustom(v *validator.Validate) {
	// Registration only fails for an empty tag name.
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return IsHHMM(fl.Field().String())
	})
}

// IsHHMM reports whether s is a 24-hour clock time like "08:30".
func IsHHMM(s string) bool {
	return hhmmPattern.MatchString(s)
}

// Struct validates obj and flattens failures into one readable error.
func (v *Validator) Struct(obj interface{}) error {
	err := v.validate.Struct(obj)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Namespace())
	case "hhmm":
		return fmt.Sprintf("%s must be HH:MM", fe.Namespace())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Namespace(), fe.Param())
	case "min", "gte", "gt":
		return fmt.Sprintf("%s must be at least %s", fe.Namespace(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
	}
}
