package reply

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Kind classifies how a display string was obtained from a webhook body.
type Kind string

const (
	KindAnswer       Kind = "answer"
	KindFallback     Kind = "fallback"
	KindWebhookError Kind = "webhook_error"
	KindLengthLimit  Kind = "length_limit"
	KindUnparseable  Kind = "unparseable"
)

// User-facing texts for replies that cannot be shown verbatim.
const (
	UnparseableText  = "Sorry, I could not parse the response from the assistant. Please try again."
	WebhookErrorText = "Sorry, the assistant could not process your request. Please try again later."
	LengthLimitText  = "Your message is too long for the assistant to process. Please shorten it and try again."
)

// Result is the display string for a webhook reply.
type Result struct {
	Text string `json:"text"`
	Kind Kind   `json:"kind"`
}

// IsError reports whether the result should be flagged as an error message.
func (r Result) IsError() bool {
	switch r.Kind {
	case KindWebhookError, KindLengthLimit, KindUnparseable:
		return true
	default:
		return false
	}
}

// lengthLimitMarkers are backend messages raised when a stored field overflows.
var lengthLimitMarkers = []string{
	"value too long for type character varying",
	"exceeds the maximum length",
	"maximum context length",
}

// ContainsLengthLimit reports whether s carries a known length-constraint message.
func ContainsLengthLimit(s string) bool {
	lower := strings.ToLower(s)
	for _, marker := range lengthLimitMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Normalize turns a raw webhook body into a display string. It never fails.
func Normalize(body []byte) Result {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Result{Text: UnparseableText, Kind: KindUnparseable}
	}

	var value any
	if err := json.Unmarshal(trimmed, &value); err != nil {
		// Plain-text replies are valid answers.
		value = string(body)
	}
	return NormalizeValue(value)
}

// NormalizeValue applies the same rules as Normalize to a decoded value.
func NormalizeValue(value any) Result {
	if value == nil {
		return Result{Text: UnparseableText, Kind: KindUnparseable}
	}

	// A string at a probed field is returned as is, whatever else the body carries.
	if text, ok := Extract(value); ok {
		return Result{Text: text, Kind: KindAnswer}
	}

	serialized := serialize(value)
	if ContainsLengthLimit(serialized) {
		return Result{Text: LengthLimitText, Kind: KindLengthLimit}
	}
	if hasError(value) {
		return Result{Text: WebhookErrorText, Kind: KindWebhookError}
	}

	if strings.TrimSpace(serialized) == "" || serialized == `""` {
		return Result{Text: UnparseableText, Kind: KindUnparseable}
	}
	return Result{Text: serialized, Kind: KindFallback}
}

func hasError(value any) bool {
	obj, ok := value.(map[string]any)
	if !ok {
		return false
	}

	switch v := obj["error"].(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) != ""
	case map[string]any:
		return len(v) > 0
	case []any:
		return len(v) > 0
	default:
		return true
	}
}

func serialize(value any) string {
	if s, ok := value.(string); ok {
		return s
	}

	data, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return string(data)
}
