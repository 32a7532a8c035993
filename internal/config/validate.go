package config

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"osemosys_toolkit/internal/model"
)

// MaxNameLength is the longest name most spreadsheet and solver tools accept.
// Longer names must provide a short name.
const MaxNameLength = 31

// ErrInvalidSchema is wrapped by every schema validation failure.
var ErrInvalidSchema = errors.New("invalid schema")

var validate *validator.Validate

func init() {
	validate = validator.New()
	if err := validate.RegisterValidation("varname", validateVarName); err != nil {
		panic(fmt.Sprintf("registering varname validation: %v", err))
	}
	validate.RegisterStructValidation(validateDefinition, Definition{})
}

// validateVarName accepts letters and underscores only.
func validateVarName(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if r != '_' && !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func validateDefinition(sl validator.StructLevel) {
	def := sl.Current().Interface().(Definition)

	switch def.Kind {
	case KindSet:
		if def.DType != model.DTypeString && def.DType != model.DTypeInt {
			sl.ReportError(def.DType, "DType", "dtype", "setdtype", "")
		}
		if len(def.Indices) > 0 {
			sl.ReportError(def.Indices, "Indices", "indices", "noindices", "")
		}
	case KindParam, KindResult:
		if def.DType != model.DTypeInt && def.DType != model.DTypeFloat {
			sl.ReportError(def.DType, "DType", "dtype", "valuedtype", "")
		}
		if len(def.Indices) == 0 {
			sl.ReportError(def.Indices, "Indices", "indices", "indices", "")
		}
		if def.DType == model.DTypeInt && def.Default != math.Trunc(def.Default) {
			sl.ReportError(def.Default, "Default", "default", "intdefault", "")
		}
	}

	if len(def.Name) > MaxNameLength && def.ShortName == "" {
		sl.ReportError(def.ShortName, "ShortName", "short_name", "shortname", "")
	}
}

// Validate checks every definition and the references between them. The
// returned error lists every problem found.
func (s Schema) Validate() error {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)

	var problems []string
	for _, name := range names {
		def := s[name]
		if err := validate.Struct(def); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				return fmt.Errorf("validating %s: %w", name, err)
			}
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("%s -> %s", name, describe(def, fe)))
			}
		}
		for _, idx := range def.Indices {
			if set, ok := s[idx]; !ok || set.Kind != KindSet {
				problems = append(problems, fmt.Sprintf("%s -> index %q is not a defined set", name, idx))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w:\n  %s", ErrInvalidSchema, strings.Join(problems, "\n  "))
	}
	return nil
}

func describe(def Definition, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "varname":
		return fmt.Sprintf("%s %q can only contain letters and underscores", fe.Field(), fe.Value())
	case "oneof":
		return fmt.Sprintf("type %q must be 'set', 'param' or 'result'", def.Kind)
	case "setdtype":
		return fmt.Sprintf("set dtype %q must be 'str' or 'int'", def.DType)
	case "valuedtype":
		return fmt.Sprintf("dtype %q must be 'int' or 'float'", def.DType)
	case "indices":
		return "indices are required"
	case "noindices":
		return "sets cannot declare indices"
	case "intdefault":
		return fmt.Sprintf("default %v is not an integer", def.Default)
	case "shortname":
		return fmt.Sprintf("name is longer than %d characters and needs a short_name", MaxNameLength)
	case "max":
		return fmt.Sprintf("short_name %q is longer than %d characters", def.ShortName, MaxNameLength)
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
