package validation

import (
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with the notblank tag and struct-level
// validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// report json field names so API errors match the request body
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// notblank: a string that is non-empty after trimming
	_ = v.RegisterValidation("notblank", notBlank)

	v.RegisterStructValidation(buildStructValidation, BuildRequest{})

	return v
}

func notBlank(fl validatorv10.FieldLevel) bool {
	f := fl.Field()
	if f.Kind() != reflect.String {
		return true
	}
	return strings.TrimSpace(f.String()) != ""
}

// buildStructValidation rejects the same topping listed twice.
func buildStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(BuildRequest)

	seen := make(map[string]bool, len(req.Toppings))
	for _, top := range req.Toppings {
		k := strings.ToLower(strings.TrimSpace(top))
		if seen[k] {
			sl.ReportError(req.Toppings, "toppings", "Toppings", "unique_toppings", top)
			return
		}
		seen[k] = true
	}
}

// Fields returns the names of the fields that failed validation, in order.
func Fields(err error) []string {
	ve, ok := err.(validatorv10.ValidationErrors)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(ve))
	for _, fe := range ve {
		out = append(out, fe.Field())
	}
	return out
}
