package client

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var (
	// ErrUnauthorized means the session is missing or expired. The stored
	// token has already been cleared when it is returned.
	ErrUnauthorized = errors.New("not signed in")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrBadRequest   = errors.New("bad request")
	ErrRateLimited  = errors.New("rate limited")
	ErrServer       = errors.New("server error")
	ErrTransport    = errors.New("transport error")
)

// ValidationError carries the per-field messages of a 422 answer, or of a
// 409 answer that names the conflicting field.
type ValidationError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	if e.Status == 409 {
		return ErrConflict
	}
	return nil
}
