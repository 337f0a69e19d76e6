// This file implements a fluent builder for JSON responses and the mapping
// from service errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fatura/internal/api"
	"fatura/internal/core"
	"fatura/internal/ledger"
	"fatura/internal/log"
	"fatura/internal/services"
	"fatura/internal/session"
	"fatura/internal/validation"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
	cookies    []*http.Cookie
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *JSONResponseBuilder) Cookie(c *http.Cookie) *JSONResponseBuilder {
	b.cookies = append(b.cookies, c)
	return b
}

// Body sets the value encoded as the response body. A nil body writes no
// content.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	for _, c := range b.cookies {
		http.SetCookie(w, c)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n"))
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(api.ErrorResponse{Error: message})
}

// ValidationError creates a 422 response carrying one message per field.
func ValidationError(fields map[string]string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusUnprocessableEntity).
		Body(api.ErrorResponse{Error: "validation failed", Errors: fields})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal error")
}

// domainErrors are rejected input values that did not come through a form
// schema.
var domainErrors = []error{
	core.ErrInvalidStatus,
	core.ErrInvalidAmount,
	core.ErrNegativeAmount,
	core.ErrInvalidInstallmentCount,
	core.ErrInvalidDay,
	core.ErrEmptyDescription,
	core.ErrDescriptionTooLong,
	core.ErrZeroPurchaseDate,
	core.ErrEmptyCategory,
	core.ErrEmptyNickname,
	core.ErrEmptyBank,
	core.ErrInvalidEndNumbers,
	core.ErrInvalidLimit,
}

// errorResponse maps a service error to its HTTP answer. Unknown errors are
// logged and answered with a generic 500.
func errorResponse(r *http.Request, err error) *JSONResponseBuilder {
	if verrs, ok := services.IsValidation(err); ok {
		return ValidationError(verrs.Fields)
	}
	switch {
	case errors.Is(err, ErrBadRequest):
		return BadRequestError(err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		return NotFoundError("not found")
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, session.ErrUnauthenticated):
		return UnauthorizedError(err.Error())
	case errors.Is(err, services.ErrUsernameTaken):
		return ValidationError(map[string]string{"username": validation.MsgUsernameTaken}).Status(http.StatusConflict)
	case errors.Is(err, core.ErrIllegalTransition), errors.Is(err, core.ErrInvoiceNotOpen):
		return ErrorResponse(http.StatusConflict, err.Error())
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return ErrorResponse(http.StatusUnprocessableEntity, err.Error())
		}
	}

	ctx := r.Context()
	log.FromContext(ctx).ErrorContext(ctx, "Request failed",
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path,
		log.FieldError, err)
	return InternalServerError()
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(r, err).Write(w)
}
