package ministry

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"regexp"
	"strings"
)

// Count is one (ministry, project count) pair taken from a webhook reply.
type Count struct {
	Ministry string `json:"ministry"`
	Count    int    `json:"count"`
}

// linePatterns are tried in order of decreasing strictness.
var linePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(.+?)\s*[:\-–—]\s*(\d+)\s+projects?\b`),
	regexp.MustCompile(`^(.+?)\s*[:\-–—]\s*(\d+)\s*\.?$`),
	regexp.MustCompile(`^(.+?)\s+(\d+)\s*$`),
}

var (
	bulletPrefix = regexp.MustCompile(`^(?:[-*•+]\s+|\d+[.)]\s+)`)
	hasLetter    = regexp.MustCompile(`\pL`)
)

// Parse extracts ministry counts from a JSON object or free text. An empty
// result means nothing usable was found.
func Parse(text string) []Count {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	if counts, ok := parseObject(trimmed); ok {
		return counts
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start != -1 && end > start {
		if counts, ok := parseObject(trimmed[start : end+1]); ok && len(counts) > 0 {
			return counts
		}
	}

	return parseLines(trimmed)
}

// parseObject decodes a JSON object keeping key order. ok is false when text
// is not exactly one JSON object.
func parseObject(text string) ([]Count, bool) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, false
	}
	if delim, isDelim := tok.(json.Delim); !isDelim || delim != '{' {
		return nil, false
	}

	var counts []Count
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, _ := keyTok.(string)

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, false
		}

		count, ok := asCount(value)
		name := strings.TrimSpace(key)
		if !ok || name == "" {
			continue
		}
		counts = append(counts, Count{Ministry: name, Count: count})
	}

	if _, err := dec.Token(); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	return counts, true
}

func asCount(value any) (int, bool) {
	num, ok := value.(json.Number)
	if !ok {
		return 0, false
	}
	if n, err := num.Int64(); err == nil {
		if n < 0 || n > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	}
	f, err := num.Float64()
	if err != nil || f < 0 || f > math.MaxInt32 || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func parseLines(text string) []Count {
	var counts []Count
	for _, raw := range strings.Split(text, "\n") {
		line := cleanLine(raw)
		if line == "" {
			continue
		}
		if c, ok := matchLine(line); ok {
			counts = append(counts, c)
		}
	}
	return counts
}

func cleanLine(raw string) string {
	line := strings.TrimSpace(raw)
	line = strings.NewReplacer("**", "", "__", "", "`", "").Replace(line)
	line = bulletPrefix.ReplaceAllString(line, "")
	return strings.TrimSpace(line)
}

func matchLine(line string) (Count, bool) {
	for _, pattern := range linePatterns {
		m := pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.TrimRight(strings.TrimSpace(m[1]), ":-–—,. ")
		if name == "" || !hasLetter.MatchString(name) || strings.EqualFold(name, "total") {
			continue
		}
		n, ok := asCount(json.Number(m[2]))
		if !ok {
			continue
		}
		return Count{Ministry: name, Count: n}, true
	}
	return Count{}, false
}
