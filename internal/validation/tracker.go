package validation

import (
	"maps"
	"sync"
)

// Tracker keeps the incremental validation state of one form being filled
// in: which fields were touched and the message currently shown for each.
//
// A blur marks the field as touched and validates it. A change only
// validates fields that were touched before, so users are not nagged while
// typing into a field for the first time.
type Tracker struct {
	schema *Schema

	mu      sync.Mutex
	touched map[string]bool
	errors  map[string]string
}

func NewTracker(schema *Schema) *Tracker {
	return &Tracker{schema: schema, touched: map[string]bool{}, errors: map[string]string{}}
}

// Blur marks field as touched and validates it. It returns the field message.
func (t *Tracker) Blur(field, value string, form Form) string {
	msg := t.schema.ValidateField(field, value, form)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touched[field] = true
	t.set(field, msg)
	return msg
}

// Change re-validates field only when it was touched already.
func (t *Tracker) Change(field, value string, form Form) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.touched[field] {
		return t.errors[field]
	}
	msg := t.schema.ValidateField(field, value, form)
	t.set(field, msg)
	return msg
}

// Submit validates the whole form, marks every field touched and replaces
// the shown messages. It reports whether the form is valid.
func (t *Tracker) Submit(form Form) bool {
	errs := t.schema.ValidateForm(form)
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, name := range t.schema.Fields() {
		t.touched[name] = true
	}
	t.errors = map[string]string{}
	if errs == nil {
		return true
	}
	maps.Copy(t.errors, errs.Fields)
	return false
}

func (t *Tracker) Touched(field string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.touched[field]
}

// Errors returns a copy of the current messages.
func (t *Tracker) Errors() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return maps.Clone(t.errors)
}

func (t *Tracker) Valid() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.errors) == 0
}

func (t *Tracker) ClearField(field string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.errors, field)
}

// Clear drops every message but keeps the touched set.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors = map[string]string{}
}

// SetErrors replaces the messages, e.g. with field errors returned by the server.
func (t *Tracker) SetErrors(errs map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors = maps.Clone(errs)
	if t.errors == nil {
		t.errors = map[string]string{}
	}
}

// Reset forgets messages and touched fields.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors = map[string]string{}
	t.touched = map[string]bool{}
}

func (t *Tracker) set(field, msg string) {
	if msg == "" {
		delete(t.errors, field)
		return
	}
	t.errors[field] = msg
}
