package validation

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
)

// Form is the raw input of a form, keyed by field name.
type Form map[string]string

// Get returns the trimmed value of field.
func (f Form) Get(field string) string {
	return strings.TrimSpace(f[field])
}

// Field is one named field with rules evaluated in order.
type Field struct {
	Name  string
	Rules []Rule
}

// Schema is an ordered set of fields.
type Schema struct {
	fields []Field
	index  map[string]int
}

func NewSchema(fields ...Field) *Schema {
	s := &Schema{fields: fields, index: make(map[string]int, len(fields))}
	for i, f := range fields {
		s.index[f.Name] = i
	}
	return s
}

func F(name string, rules ...Rule) Field {
	return Field{Name: name, Rules: rules}
}

// Fields lists the field names in declaration order.
func (s *Schema) Fields() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// ValidateField returns the message of the first failing rule of field, or
// "" when it passes. Unknown fields always pass.
func (s *Schema) ValidateField(field, value string, form Form) string {
	i, ok := s.index[field]
	if !ok {
		return ""
	}
	return message(s.check(s.fields[i], value, form))
}

func (s *Schema) check(f Field, value string, form Form) error {
	rules := make([]ozzo.Rule, len(f.Rules))
	for i, rule := range f.Rules {
		rules[i] = rule(form)
	}
	return ozzo.Validate(strings.TrimSpace(value), rules...)
}

// ValidateForm checks every field and reports each failing one. It returns
// nil when the whole form is valid.
func (s *Schema) ValidateForm(form Form) *Errors {
	all := ozzo.Errors{}
	for _, f := range s.fields {
		all[f.Name] = s.check(f, form[f.Name], form)
	}
	if all.Filter() == nil {
		return nil
	}
	errs := &Errors{Fields: make(map[string]string, len(all))}
	for name, err := range all {
		errs.Fields[name] = message(err)
	}
	return errs
}

// message renders a rule failure. Anything that is not a validation error
// reads as a format problem.
func message(err error) string {
	if err == nil {
		return ""
	}
	var verr ozzo.Error
	if errors.As(err, &verr) {
		return verr.Error()
	}
	return MsgInvalidFormat
}

// Errors maps field names to one message each.
type Errors struct {
	Fields map[string]string
}

func (e *Errors) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the message for name, if any.
func (e *Errors) Field(name string) string {
	if e == nil {
		return ""
	}
	return e.Fields[name]
}

// Single builds an Errors value for one field.
func Single(field, msg string) *Errors {
	return &Errors{Fields: map[string]string{field: msg}}
}

func parseTime(value string, layouts []string) (time.Time, error) {
	var err error
	for _, layout := range layouts {
		var t time.Time
		if t, err = time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
