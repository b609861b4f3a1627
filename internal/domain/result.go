/**
 * @description
 * Tagged result shapes produced by banking operations. Each operation
 * constructs its shape explicitly instead of returning an ad hoc map, so the
 * response formatter can classify by type assertion rather than by probing
 * optional fields.
 */

package domain

import "github.com/shopspring/decimal"

// ErrorResult is the error shape: an explicit code plus a displayable message.
type ErrorResult struct {
	Code    string         `json:"error"`
	Message string         `json:"message,omitempty"`
	Detail  map[string]any `json:"detail,omitempty"`
}

// PaymentPreview is the successful precheck shape. Confirm must be sent back
// by the caller to drive the commit phase.
type PaymentPreview struct {
	CustomerID         int64          `json:"customer_id"`
	Preview            PrecheckResult `json:"preview"`
	SuggestedClientRef string         `json:"suggested_client_ref,omitempty"`
}

// PaymentReceipt is the successful commit shape.
type PaymentReceipt struct {
	Transfer    *TransferRecord `json:"txn"`
	ReceiptFile string          `json:"receipt_file,omitempty"`
}

// DisambiguationItem is one selectable candidate entity.
type DisambiguationItem struct {
	ID    int64  `json:"id"`
	Label string `json:"label,omitempty"`
}

// Disambiguation signals that the caller must choose between several
// candidate entities before the request can proceed.
type Disambiguation struct {
	Kind  string               `json:"kind"` // "accounts" | "cards"
	Items []DisambiguationItem `json:"items"`
}

// Generic is the pass-through shape: free text and/or a structured UI payload.
type Generic struct {
	Text string         `json:"text,omitempty"`
	UI   *UIComponent   `json:"ui_component,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

// MoneyString renders a decimal amount the way the UI expects it.
func MoneyString(d decimal.Decimal) string {
	return d.StringFixed(2)
}
