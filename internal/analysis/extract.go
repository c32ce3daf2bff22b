package analysis

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const previewLimit = 200

// ExtractionError reports that no valid analysis object could be recovered
// from an agent reply. It carries a truncated preview of the original text
// for diagnostics, never the full text, to bound log and error growth.
type ExtractionError struct {
	Preview string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting analysis JSON: %v (reply preview: %q)", e.Err, e.Preview)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

// Extract recovers a structured Result from a raw agent reply. The reply may
// be a structured object with a content array of text parts, an
// already-structured mapping, or plain text with the JSON wrapped in
// markdown or prose. Returns an *ExtractionError when no strategy succeeds.
func Extract(raw any) (*Result, error) {
	switch v := raw.(type) {
	case map[string]any:
		// Structured reply: concatenate the text fragments of the content
		// array in order, then extract from the combined text.
		if content, ok := v["content"].([]any); ok {
			var sb strings.Builder
			for _, part := range content {
				if m, ok := part.(map[string]any); ok {
					if text, ok := m["text"].(string); ok {
						sb.WriteString(text)
					}
				}
			}
			return ExtractText(sb.String())
		}
		// Already a mapping: take it as the analysis object directly.
		return decodeMap(v)
	case string:
		return ExtractText(v)
	case []byte:
		return ExtractRaw(v)
	case json.RawMessage:
		return ExtractRaw(v)
	default:
		return ExtractText(fmt.Sprintf("%v", raw))
	}
}

// ExtractRaw decodes a raw JSON value and dispatches on its shape: a JSON
// string is treated as text to scan, an object as a structured reply.
func ExtractRaw(raw json.RawMessage) (*Result, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ExtractText(string(raw))
	}
	switch t := v.(type) {
	case string:
		return ExtractText(t)
	case map[string]any:
		return Extract(t)
	default:
		return nil, &ExtractionError{
			Preview: truncate(string(raw)),
			Err:     fmt.Errorf("reply is %T, expected object or string", v),
		}
	}
}

// ExtractText recovers a Result from text, trying in order:
//  1. the first markdown code block labeled json
//  2. a brace-counting scan isolating the first balanced {...} substring
//  3. the whole text parsed as JSON
//
// Each strategy that fails falls through to the next.
func ExtractText(text string) (*Result, error) {
	var lastErr error

	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		res, err := parseObject(m[1])
		if err == nil {
			return res, nil
		}
		lastErr = err
	}

	if obj := balancedObject(text); obj != "" {
		res, err := parseObject(obj)
		if err == nil {
			return res, nil
		}
		lastErr = err
	}

	res, err := parseObject(text)
	if err == nil {
		return res, nil
	}
	if lastErr == nil {
		lastErr = err
	}

	return nil, &ExtractionError{Preview: truncate(text), Err: lastErr}
}

// balancedObject returns the first balanced {...} substring, scanning from
// the first opening brace until the nesting count returns to zero. Returns
// "" when the text has no brace or the braces never balance. Resilient to
// prose before and after the object.
func balancedObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// parseObject parses s as a JSON object. Non-object top-level values
// (null, arrays, scalars) are rejected rather than decoded into a
// zero-value Result.
func parseObject(s string) (*Result, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("reply is null, expected object")
	}
	var res Result
	if err := json.Unmarshal([]byte(s), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func decodeMap(m map[string]any) (*Result, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, &ExtractionError{Preview: fmt.Sprintf("%.200v", m), Err: err}
	}
	res, err := parseObject(string(raw))
	if err != nil {
		return nil, &ExtractionError{Preview: truncate(string(raw)), Err: err}
	}
	return res, nil
}

func truncate(s string) string {
	if len(s) <= previewLimit {
		return s
	}
	return s[:previewLimit]
}
