/**
 * @description
 * Output sanitizer applied to every response before it leaves the backend.
 * It masks financial identifiers and PII, strips active HTML content and
 * bounds text length. Sanitization is structure preserving (maps stay maps,
 * lists stay lists) and idempotent: running it twice yields the same output,
 * because every mask produces text its own rule can no longer match.
 */

package sanitize

import (
	"regexp"
	"strings"
)

// DefaultMaxTextLen bounds any single sanitized string.
const DefaultMaxTextLen = 2000

var (
	// Tags whose entire block is active content. An unclosed opening tag
	// swallows the rest of the string.
	scriptBlockRe = regexp.MustCompile(`(?is)<script\b.*?</script\s*>`)
	iframeBlockRe = regexp.MustCompile(`(?is)<iframe\b.*?</iframe\s*>`)
	objectBlockRe = regexp.MustCompile(`(?is)<object\b.*?</object\s*>`)
	embedBlockRe  = regexp.MustCompile(`(?is)<embed\b.*?</embed\s*>`)
	styleBlockRe  = regexp.MustCompile(`(?is)<style\b.*?</style\s*>`)
	openTagRe     = regexp.MustCompile(`(?is)<(?:script|iframe|object|embed|style)\b.*`)

	eventAttrRe = regexp.MustCompile(`(?i)\son\w+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)

	ibanRe = regexp.MustCompile(`(?i)\bTR\d{24}\b`)
	cardRe = regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`)
	// TX-prefixed runs are transaction identifiers, not PII; the alternation
	// lets them win over the bare digit-run mask.
	digitRunRe = regexp.MustCompile(`TX\d{11,}|\d{11,}`)
	emailRe    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	nonDigitRe = regexp.MustCompile(`\D`)
)

// Keys whose values are masked wholesale, whatever their type. Card and
// account numbers are not listed here: their string values go through the
// pattern masks instead, which keep the partially masked form the UI
// payloads display.
var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"passwd":        {},
	"secret":        {},
	"token":         {},
	"access_token":  {},
	"refresh_token": {},
	"api_key":       {},
	"apikey":        {},
	"authorization": {},
	"cvv":           {},
	"cvc":           {},
	"pin":           {},
	"ssn":           {},
	"tckn":          {},
	"email":         {},
	"mail":          {},
	"e_mail":        {},
	"phone":         {},
	"tel":           {},
	"telephone":     {},
	"iban":          {},
}

// Sanitizer masks and bounds outgoing values.
type Sanitizer struct {
	maxTextLen int
}

// New creates a sanitizer with the given per-string length bound; zero or
// negative means DefaultMaxTextLen.
func New(maxTextLen int) *Sanitizer {
	if maxTextLen <= 0 {
		maxTextLen = DefaultMaxTextLen
	}
	return &Sanitizer{maxTextLen: maxTextLen}
}

// Value sanitizes an arbitrary decoded value, preserving its structure.
// Strings are passed through Text; map entries under sensitive keys are
// replaced with "***" regardless of value type.
func (s *Sanitizer) Value(v any) any {
	switch val := v.(type) {
	case string:
		return s.Text(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if _, sensitive := sensitiveKeys[strings.ToLower(k)]; sensitive {
				out[k] = "***"
				continue
			}
			out[k] = s.Value(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = s.Value(item)
		}
		return out
	default:
		return v
	}
}

// Text masks identifiers and PII in a single string, strips active HTML and
// truncates to the configured bound.
func (s *Sanitizer) Text(text string) string {
	text = scriptBlockRe.ReplaceAllString(text, "")
	text = iframeBlockRe.ReplaceAllString(text, "")
	text = objectBlockRe.ReplaceAllString(text, "")
	text = embedBlockRe.ReplaceAllString(text, "")
	text = styleBlockRe.ReplaceAllString(text, "")
	text = openTagRe.ReplaceAllString(text, "")
	text = eventAttrRe.ReplaceAllString(text, "")

	// IBAN before the generic digit-run rule: a Turkish IBAN contains a
	// 24-digit run the generic rule would otherwise mangle first.
	text = ibanRe.ReplaceAllStringFunc(text, maskIBAN)
	text = cardRe.ReplaceAllStringFunc(text, maskCard)
	text = digitRunRe.ReplaceAllStringFunc(text, maskDigitRun)
	text = emailRe.ReplaceAllString(text, "***@***")

	return s.truncate(text)
}

func maskIBAN(m string) string {
	return m[:6] + "****" + m[len(m)-4:]
}

func maskCard(m string) string {
	digits := nonDigitRe.ReplaceAllString(m, "")
	return digits[:4] + "-****-****-" + digits[len(digits)-4:]
}

func maskDigitRun(m string) string {
	if strings.HasPrefix(m, "TX") {
		return m
	}
	return m[:2] + "***" + m[len(m)-2:]
}

// truncate bounds the string so that re-sanitizing the result is a no-op:
// the marker counts against the bound.
func (s *Sanitizer) truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= s.maxTextLen {
		return text
	}
	return string(runes[:s.maxTextLen-3]) + "..."
}
