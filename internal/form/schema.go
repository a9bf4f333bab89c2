// Package form validates submitted form values and keeps a form from being
// submitted twice at once.
package form

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Rule is one validator tag and the message shown when it fails.
type Rule struct {
	Tag     string
	Message string
}

// Field is a named input and its rules, checked in order. The first failing
// rule supplies the field's message. Values are trimmed before checking
// unless Raw is set; Raw fields are checked exactly as they will be sent.
type Field struct {
	Name  string
	Rules []Rule
	Raw   bool
}

// Schema is an ordered list of fields.
type Schema []Field

// Errors maps a field name to its message. An empty Errors means valid.
type Errors map[string]string

// Validate checks every field of s against values. It is pure: the same
// values always produce the same Errors, and every field is evaluated.
func (s Schema) Validate(values map[string]string) Errors {
	errs := Errors{}
	for _, f := range s {
		v := values[f.Name]
		if !f.Raw {
			v = strings.TrimSpace(v)
		}
		for _, r := range f.Rules {
			if err := validate.Var(v, r.Tag); err != nil {
				errs[f.Name] = r.Message
				break
			}
		}
	}
	return errs
}

// Required is the rule every mandatory field starts with.
func Required() Rule { return Rule{Tag: "required", Message: "This field is Required"} }
