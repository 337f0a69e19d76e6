package log

import "net/http"

// Field names shared by every component.
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldQuery        = "query"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldUserAgent    = "user_agent"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldUserID       = "user_id"
	FieldCardID       = "card_id"
	FieldInvoiceID    = "invoice_id"
	FieldPurchaseID   = "purchase_id"
	FieldInstallments = "installments"
	FieldAmountCents  = "amount_cents"
	FieldCategory     = "category"
	FieldCycle        = "cycle"
	FieldStatus       = "invoice_status"
	FieldReason       = "reason"
	FieldSheetsRef    = "sheets_ref"
)

const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentAuth      = "auth"
	ComponentSession   = "session"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
	ComponentClient    = "client"
)

const (
	OpCreate     = "create"
	OpUpdate     = "update"
	OpConsume    = "consume"
	OpTransition = "transition"
	OpSignIn     = "sign_in"
	OpSignOut    = "sign_out"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// Attribute lists, in a fixed order, for the records logged most often.

func requestAttrs(r *http.Request, clientIP string) []any {
	attrs := []any{
		FieldMethod, r.Method,
		FieldPath, r.URL.Path,
		FieldClientIP, clientIP,
	}
	if r.URL.RawQuery != "" {
		attrs = append(attrs, FieldQuery, r.URL.RawQuery)
	}
	return attrs
}

func purchaseAttrs(id, cardID, amountCents int64, installments int, category string) []any {
	return []any{
		FieldPurchaseID, id,
		FieldCardID, cardID,
		FieldAmountCents, amountCents,
		FieldInstallments, installments,
		FieldCategory, category,
	}
}

func invoiceAttrs(id, cardID int64, status string) []any {
	return []any{
		FieldInvoiceID, id,
		FieldCardID, cardID,
		FieldStatus, status,
	}
}
