package amqp

import (
	"encoding/json"
	"time"
)

// Reasons attached to InvoiceChangedMessage.
const (
	ReasonPurchaseCreated = "purchase_created"
	ReasonPurchaseUpdated = "purchase_updated"
	ReasonPurchaseDeleted = "purchase_deleted"
	ReasonStatusChanged   = "status_changed"
	ReasonEstimateUpdated = "estimate_updated"
)

// InvoiceChangedMessage tells consumers that the derived totals of an invoice
// may have changed. It carries identifiers only; consumers reload the invoice.
type InvoiceChangedMessage struct {
	InvoiceID int64     `json:"invoiceId"`
	CardID    int64     `json:"cardId"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func NewInvoiceChangedMessage(invoiceID, cardID int64, reason string) *InvoiceChangedMessage {
	return &InvoiceChangedMessage{
		InvoiceID: invoiceID,
		CardID:    cardID,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *InvoiceChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// InvoiceChangedMessageFromJSON creates a message from JSON bytes
func InvoiceChangedMessageFromJSON(data []byte) (*InvoiceChangedMessage, error) {
	var msg InvoiceChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
