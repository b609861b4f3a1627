package respond

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/imSurme/interchat-banking-assistant/internal/domain"
	"github.com/imSurme/interchat-banking-assistant/internal/sanitize"
)

func newFormatter() *Formatter {
	return NewFormatter(sanitize.New(0))
}

func TestFormatErrorShapes(t *testing.T) {
	f := newFormatter()

	tests := []struct {
		name string
		raw  any
		want string
	}{
		{
			name: "mapped code without message",
			raw:  domain.ErrorResult{Code: "403"},
			want: "You are not authorized to perform this operation.",
		},
		{
			name: "explicit message wins over the table",
			raw:  domain.ErrorResult{Code: "404", Message: "No card with that number."},
			want: "No card with that number.",
		},
		{
			name: "unmapped code surfaces raw text",
			raw:  domain.ErrorResult{Code: "weird_failure"},
			want: "weird_failure",
		},
		{
			name: "map with direct error key",
			raw:  map[string]any{"error": "429"},
			want: "Too many requests. Please try again shortly.",
		},
		{
			name: "map with error nested under data",
			raw:  map[string]any{"data": map[string]any{"error": "timeout"}},
			want: "The operation did not respond in time. Please try again.",
		},
		{
			name: "map with numeric error code as JSON decodes it",
			raw:  map[string]any{"error": float64(403)},
			want: "You are not authorized to perform this operation.",
		},
		{
			name: "map with integer error code",
			raw:  map[string]any{"error": 404},
			want: "Record not found.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := f.Format(tc.raw)
			if env.Text != tc.want {
				t.Errorf("got %q, want %q", env.Text, tc.want)
			}
			if env.Component != nil {
				t.Errorf("error envelopes carry no component, got %+v", env.Component)
			}
		})
	}
}

func TestFormatFailureClassifiedError(t *testing.T) {
	f := newFormatter()

	env := f.FormatFailure(domain.NewForbidden("from_account_not_owned", "This account does not belong to you."))
	if env.Text != "This account does not belong to you." {
		t.Errorf("got %q", env.Text)
	}

	env = f.FormatFailure(errors.New("pq: connection refused"))
	if strings.Contains(env.Text, "connection refused") {
		t.Errorf("raw internal error leaked: %q", env.Text)
	}
}

func TestFormatPaymentPreview(t *testing.T) {
	f := newFormatter()

	env := f.Format(domain.PaymentPreview{
		CustomerID: 42,
		Preview: domain.PrecheckResult{
			FromAccount: 101,
			ToAccount:   202,
			Amount:      decimal.NewFromInt(100),
			Currency:    "TRY",
			Fee:         decimal.Zero,
			Limits: domain.LimitsSnapshot{
				PerTxn:    decimal.NewFromInt(20000),
				Daily:     decimal.NewFromInt(50000),
				UsedToday: decimal.NewFromInt(150),
			},
		},
		SuggestedClientRef: "ref-1",
	})

	if !strings.Contains(env.Text, "100.00 TRY") || !strings.Contains(env.Text, "confirm") {
		t.Errorf("unexpected preview text %q", env.Text)
	}
	if env.Component == nil || env.Component.Type != "payment_confirmation" {
		t.Fatalf("expected payment_confirmation component, got %+v", env.Component)
	}
	if env.Component.Data["amount"] != "100.00" || env.Component.Data["client_ref"] != "ref-1" {
		t.Errorf("unexpected component data %+v", env.Component.Data)
	}
	limits, ok := env.Component.Data["limits"].(map[string]any)
	if !ok || limits["used_today"] != "150.00" {
		t.Errorf("unexpected limits snapshot %+v", env.Component.Data["limits"])
	}
}

func TestFormatPaymentReceipt(t *testing.T) {
	f := newFormatter()

	env := f.Format(&domain.PaymentReceipt{
		Transfer: &domain.TransferRecord{
			PaymentID:        "TX20250301120000000000042",
			FromAccount:      101,
			ToAccount:        202,
			Amount:           decimal.NewFromInt(100),
			Currency:         "TRY",
			Status:           domain.TransferStatusPosted,
			FromBalanceAfter: decimal.NewFromInt(900),
		},
	})

	if !strings.Contains(env.Text, "TX20250301120000000000042") {
		t.Errorf("receipt text must carry the transaction id, got %q", env.Text)
	}
	if env.Component == nil || env.Component.Type != "payment_receipt" {
		t.Fatalf("expected payment_receipt component, got %+v", env.Component)
	}
	if env.Component.Data["from_balance_after"] != "900.00" {
		t.Errorf("unexpected component data %+v", env.Component.Data)
	}
}

func TestFormatDisambiguation(t *testing.T) {
	f := newFormatter()

	env := f.Format(domain.Disambiguation{
		Kind: "accounts",
		Items: []domain.DisambiguationItem{
			{ID: 101, Label: "TRY checking"},
			{ID: 102, Label: "TRY savings"},
			{ID: 103, Label: "USD checking"},
			{ID: 104, Label: "gold"},
		},
	})

	if !strings.Contains(env.Text, "#101, #102, #103") {
		t.Errorf("prompt must enumerate at most three examples, got %q", env.Text)
	}
	if strings.Contains(env.Text, "#104") {
		t.Errorf("prompt enumerated more than three examples: %q", env.Text)
	}
	if env.Component == nil || env.Component.Type != "disambiguation" {
		t.Fatalf("expected disambiguation component, got %+v", env.Component)
	}
	items, ok := env.Component.Data["items"].([]any)
	if !ok || len(items) != 4 {
		t.Errorf("component must carry all candidates, got %+v", env.Component.Data["items"])
	}
}

func TestFormatGenericAndFallback(t *testing.T) {
	f := newFormatter()

	env := f.Format(domain.Generic{Text: "Balance is 5000.00 TRY"})
	if env.Text != "Balance is 5000.00 TRY" {
		t.Errorf("got %q", env.Text)
	}

	env = f.Format(map[string]any{"message": "Done.", "count": 2})
	if env.Text != "Done." {
		t.Errorf("conventional text field not picked: %q", env.Text)
	}

	env = f.Format("plain string result")
	if env.Text != "plain string result" {
		t.Errorf("got %q", env.Text)
	}

	env = f.Format(struct{ X int }{X: 1})
	if env.Text != "Operation completed." {
		t.Errorf("unrecognized shape must fall back, got %q", env.Text)
	}
}

func TestFormatSanitizesEverything(t *testing.T) {
	f := newFormatter()

	env := f.Format(domain.Generic{
		Text: "card 4111111111111234 <script>x</script>",
		Data: map[string]any{"note": "TR120006100519786457841326", "token": "abc"},
	})
	if strings.Contains(env.Text, "4111111111111234") || strings.Contains(env.Text, "<script>") {
		t.Errorf("text not sanitized: %q", env.Text)
	}
	if env.Component == nil {
		t.Fatal("expected a data component")
	}
	if env.Component.Data["note"] != "TR1200****1326" || env.Component.Data["token"] != "***" {
		t.Errorf("component data not sanitized: %+v", env.Component.Data)
	}
}
