/**
 * @description
 * Response classifier and formatter: turns the heterogeneous results of
 * banking operations into one uniform, sanitized ResponseEnvelope. The
 * ordered rules are: error, payment preview, payment receipt,
 * disambiguation, generic structured result, plain-text fallback — first
 * match wins, and a rule that cannot fully apply degrades to the next one
 * instead of failing. Formatting is pure and side-effect free.
 */

package respond

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/imSurme/interchat-banking-assistant/internal/domain"
	"github.com/imSurme/interchat-banking-assistant/internal/sanitize"
)

// Static code -> message table for errors that carry no displayable text of
// their own. Unmapped codes surface their raw (sanitized) text.
var errorMessages = map[string]string{
	"401":     "Your session could not be verified. Please sign in again.",
	"403":     "You are not authorized to perform this operation.",
	"404":     "Record not found.",
	"422":     "The request could not be processed. Please check the details.",
	"429":     "Too many requests. Please try again shortly.",
	"timeout": "The operation did not respond in time. Please try again.",
	"500":     "Service is temporarily unavailable. Please try again later.",
	"502":     "Service is temporarily unavailable. Please try again later.",
	"503":     "Service is temporarily unavailable. Please try again later.",
}

const fallbackText = "Operation completed."

// Conventional text fields probed, in order, on generic map results.
var textFields = []string{"text", "message", "summary", "detail", "status"}

// Formatter classifies raw operation results into response envelopes.
type Formatter struct {
	san *sanitize.Sanitizer
}

// NewFormatter creates a formatter backed by the given sanitizer.
func NewFormatter(san *sanitize.Sanitizer) *Formatter {
	return &Formatter{san: san}
}

// Format classifies a raw operation result and renders the envelope. It
// never returns an error: unrecognized input degrades to a text-only
// fallback.
func (f *Formatter) Format(raw any) domain.ResponseEnvelope {
	switch v := raw.(type) {
	case nil:
		return f.envelope(fallbackText, nil)
	case *domain.ErrorResult:
		if v != nil {
			return f.formatError(*v)
		}
		return f.envelope(fallbackText, nil)
	case domain.ErrorResult:
		return f.formatError(v)
	case *domain.PaymentPreview:
		if v != nil {
			return f.formatPreview(*v)
		}
		return f.envelope(fallbackText, nil)
	case domain.PaymentPreview:
		return f.formatPreview(v)
	case *domain.PaymentReceipt:
		if v != nil && v.Transfer != nil {
			return f.formatReceipt(*v)
		}
		return f.envelope(fallbackText, nil)
	case domain.PaymentReceipt:
		if v.Transfer != nil {
			return f.formatReceipt(v)
		}
		return f.envelope(fallbackText, nil)
	case *domain.Disambiguation:
		if v != nil {
			return f.formatDisambiguation(*v)
		}
		return f.envelope(fallbackText, nil)
	case domain.Disambiguation:
		return f.formatDisambiguation(v)
	case *domain.Generic:
		if v != nil {
			return f.formatGeneric(*v)
		}
		return f.envelope(fallbackText, nil)
	case domain.Generic:
		return f.formatGeneric(v)
	case map[string]any:
		return f.formatMap(v)
	case string:
		return f.envelope(v, nil)
	case error:
		return f.FormatFailure(v)
	default:
		return f.envelope(fallbackText, nil)
	}
}

// FormatFailure renders a failed invocation as an error envelope. Classified
// errors keep their code and message; anything else maps to a generic
// storage-style failure with the raw text sanitized away from the user.
func (f *Formatter) FormatFailure(err error) domain.ResponseEnvelope {
	if err == nil {
		return f.envelope(fallbackText, nil)
	}
	res := domain.ErrorResult{Code: "500"}
	var de *domain.Error
	if errors.As(err, &de) {
		res.Code = de.Code
		res.Message = de.Message
		if de.Kind == domain.KindTimeout {
			res.Code = "timeout"
		}
	}
	return f.formatError(res)
}

func (f *Formatter) formatError(res domain.ErrorResult) domain.ResponseEnvelope {
	msg := res.Message
	if msg == "" {
		msg = errorMessages[res.Code]
	}
	if msg == "" {
		msg = res.Code
	}
	if msg == "" {
		msg = errorMessages["500"]
	}
	return f.envelope(msg, nil)
}

func (f *Formatter) formatPreview(p domain.PaymentPreview) domain.ResponseEnvelope {
	pre := p.Preview
	text := fmt.Sprintf(
		"You are about to transfer %s %s from account #%d to account #%d. Do you confirm?",
		domain.MoneyString(pre.Amount), pre.Currency, pre.FromAccount, pre.ToAccount,
	)
	data := map[string]any{
		"customer_id":  p.CustomerID,
		"from_account": pre.FromAccount,
		"to_account":   pre.ToAccount,
		"amount":       domain.MoneyString(pre.Amount),
		"currency":     pre.Currency,
		"fee":          domain.MoneyString(pre.Fee),
		"note":         pre.Note,
		"limits": map[string]any{
			"per_txn":    domain.MoneyString(pre.Limits.PerTxn),
			"daily":      domain.MoneyString(pre.Limits.Daily),
			"used_today": domain.MoneyString(pre.Limits.UsedToday),
		},
	}
	if p.SuggestedClientRef != "" {
		data["client_ref"] = p.SuggestedClientRef
	}
	return f.envelope(text, &domain.UIComponent{Type: "payment_confirmation", Data: data})
}

func (f *Formatter) formatReceipt(r domain.PaymentReceipt) domain.ResponseEnvelope {
	rec := r.Transfer
	text := fmt.Sprintf(
		"Transfer completed. Transaction %s posted for %s %s.",
		rec.PaymentID, domain.MoneyString(rec.Amount), rec.Currency,
	)
	data := map[string]any{
		"payment_id":         rec.PaymentID,
		"from_account":       rec.FromAccount,
		"to_account":         rec.ToAccount,
		"amount":             domain.MoneyString(rec.Amount),
		"currency":           rec.Currency,
		"fee":                domain.MoneyString(rec.Fee),
		"status":             rec.Status,
		"posted_at":          rec.PostedAt,
		"from_balance_after": domain.MoneyString(rec.FromBalanceAfter),
	}
	if rec.Note != "" {
		data["note"] = rec.Note
	}
	if r.ReceiptFile != "" {
		data["receipt_file"] = r.ReceiptFile
	}
	return f.envelope(text, &domain.UIComponent{Type: "payment_receipt", Data: data})
}

func (f *Formatter) formatDisambiguation(d domain.Disambiguation) domain.ResponseEnvelope {
	if len(d.Items) == 0 {
		return f.envelope(fallbackText, nil)
	}
	noun := "records"
	switch d.Kind {
	case "accounts":
		noun = "accounts"
	case "cards":
		noun = "cards"
	}
	examples := make([]string, 0, 3)
	items := make([]any, 0, len(d.Items))
	for i, item := range d.Items {
		if i < 3 {
			examples = append(examples, fmt.Sprintf("#%d", item.ID))
		}
		items = append(items, map[string]any{"id": item.ID, "label": item.Label})
	}
	text := fmt.Sprintf("You have multiple %s. Which one did you mean? For example: %s.",
		noun, strings.Join(examples, ", "))
	return f.envelope(text, &domain.UIComponent{
		Type: "disambiguation",
		Data: map[string]any{"kind": d.Kind, "items": items},
	})
}

func (f *Formatter) formatGeneric(g domain.Generic) domain.ResponseEnvelope {
	text := g.Text
	if text == "" {
		text = firstTextField(g.Data)
	}
	if text == "" {
		text = fallbackText
	}
	ui := g.UI
	if ui == nil && len(g.Data) > 0 {
		ui = &domain.UIComponent{Type: "data", Data: g.Data}
	}
	return f.envelope(text, ui)
}

// formatMap classifies an untyped map result: an explicit error key (direct
// or nested one level under "data") wins, then the generic text conventions.
func (f *Formatter) formatMap(m map[string]any) domain.ResponseEnvelope {
	if env, ok := f.tryMapError(m); ok {
		return env
	}
	if data, ok := m["data"].(map[string]any); ok {
		if env, ok := f.tryMapError(data); ok {
			return env
		}
	}
	text := firstTextField(m)
	if text == "" {
		text = fallbackText
	}
	var ui *domain.UIComponent
	if comp, ok := m["ui_component"].(map[string]any); ok {
		typ, _ := comp["type"].(string)
		data, _ := comp["data"].(map[string]any)
		ui = &domain.UIComponent{Type: typ, Data: data}
	}
	return f.envelope(text, ui)
}

func (f *Formatter) tryMapError(m map[string]any) (domain.ResponseEnvelope, bool) {
	var code string
	switch v := m["error"].(type) {
	case string:
		code = v
	case float64:
		// JSON decoding yields float64 for numeric codes like {"error": 403}.
		code = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		code = strconv.Itoa(v)
	}
	if code == "" {
		return domain.ResponseEnvelope{}, false
	}
	msg, _ := m["message"].(string)
	return f.formatError(domain.ErrorResult{Code: code, Message: msg}), true
}

func firstTextField(m map[string]any) string {
	for _, field := range textFields {
		if s, ok := m[field].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// envelope sanitizes the text and the component payload and assembles the
// final response.
func (f *Formatter) envelope(text string, ui *domain.UIComponent) domain.ResponseEnvelope {
	env := domain.ResponseEnvelope{Text: f.san.Text(text)}
	if ui != nil {
		clean := &domain.UIComponent{Type: ui.Type}
		if ui.Data != nil {
			if data, ok := f.san.Value(ui.Data).(map[string]any); ok {
				clean.Data = data
			}
		}
		env.Component = clean
	}
	return env
}
