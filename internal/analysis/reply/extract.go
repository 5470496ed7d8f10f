package reply

import "strings"

// Extractor pulls a display string out of one possible reply shape.
type Extractor func(value any) (string, bool)

// probeKeys are tried in order at each level of the reply.
var probeKeys = []string{"answer", "message", "text", "content", "output"}

// elementExtractors are the shapes probed on a single object or string.
var elementExtractors = []Extractor{
	fromString,
	fromTopLevel,
	fromDataObject,
}

// extractors is the full ordered probe. Each entry handles one reply shape.
var extractors = []Extractor{
	fromString,
	fromTopLevel,
	fromDataObject,
	fromFirstElement,
}

// Extract returns the first string found by the ordered probe.
func Extract(value any) (string, bool) {
	return firstMatch(extractors, value)
}

func firstMatch(list []Extractor, value any) (string, bool) {
	for _, extract := range list {
		if text, ok := extract(value); ok {
			return text, true
		}
	}
	return "", false
}

func fromString(value any) (string, bool) {
	s, ok := value.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func fromTopLevel(value any) (string, bool) {
	obj, ok := value.(map[string]any)
	if !ok {
		return "", false
	}
	return probeObject(obj)
}

func fromDataObject(value any) (string, bool) {
	obj, ok := value.(map[string]any)
	if !ok {
		return "", false
	}
	data, ok := obj["data"].(map[string]any)
	if !ok {
		return "", false
	}
	return probeObject(data)
}

func fromFirstElement(value any) (string, bool) {
	items, ok := value.([]any)
	if !ok || len(items) == 0 {
		return "", false
	}
	return firstMatch(elementExtractors, items[0])
}

func probeObject(obj map[string]any) (string, bool) {
	for _, key := range probeKeys {
		if text, ok := fromString(obj[key]); ok {
			return text, true
		}
	}
	return "", false
}
