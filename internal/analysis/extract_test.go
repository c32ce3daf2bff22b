package analysis

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormed = `{
  "summary": "A web framework",
  "tech_stack": [{"name": "Go", "category": "language", "confidence": 0.95}],
  "key_features": ["routing", "middleware"],
  "tags": [{"name": "web", "category": "domain"}],
  "metadata": {
    "repository_owner": "octocat",
    "repository_name": "framework",
    "primary_language": "Go",
    "language_distribution": {"Go": 92.5, "Shell": 7.5},
    "star_count": 1200,
    "fork_count": 300,
    "last_updated": "2026-08-01T10:00:00Z",
    "has_readme": true,
    "has_tests": true,
    "has_ci": false
  },
  "confidence_score": 0.9
}`

func wantResult(t *testing.T) *Result {
	t.Helper()
	var r Result
	require.NoError(t, json.Unmarshal([]byte(wellFormed), &r))
	return &r
}

func TestExtractText_Wrappings(t *testing.T) {
	want := wantResult(t)

	tests := []struct {
		name string
		text string
	}{
		{"raw", wellFormed},
		{"markdown fence", "Here you go:\n```json\n" + wellFormed + "\n```\nanything else"},
		{"prose wrapped", "Some notes before.\n" + wellFormed + "\ntrailing commentary"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractText(tt.text)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestExtractText_BraceCounting(t *testing.T) {
	text := `Some notes {"summary":"x","tech_stack":[],"key_features":[],"tags":[],` +
		`"metadata":{"repository_owner":"o","repository_name":"r","primary_language":"Go",` +
		`"language_distribution":{},"star_count":0,"fork_count":0,"last_updated":"",` +
		`"has_readme":false,"has_tests":false,"has_ci":false},"confidence_score":0.7} trailing`

	got, err := ExtractText(text)
	require.NoError(t, err)
	assert.Equal(t, "x", got.Summary)
	assert.Equal(t, 0.7, got.ConfidenceScore)
	assert.Equal(t, "o", got.Metadata.RepositoryOwner)
}

func TestExtractText_NestedBraces(t *testing.T) {
	// The scan must respect nesting, not stop at the first closing brace.
	text := `prefix {"summary":"s","metadata":{"repository_owner":"a","repository_name":"b"},"confidence_score":1} suffix`
	got, err := ExtractText(text)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Metadata.RepositoryOwner)
}

func TestExtractText_BadFenceFallsThrough(t *testing.T) {
	// A fence whose contents never parse falls through the brace scan and
	// the whole-text parse too; the overall call fails.
	text := "```json\n{broken\n```"
	_, err := ExtractText(text)
	var exErr *ExtractionError
	require.ErrorAs(t, err, &exErr)
}

func TestExtractText_FenceBrokenButScanRecovers(t *testing.T) {
	// The fenced block parse fails (trailing comma), but the brace scan
	// over the full text isolates the later valid object.
	text := "```json\n{\"summary\": \"x\",}\n```" // invalid JSON in fence
	_, err := ExtractText(text)
	require.Error(t, err)

	text2 := "intro {\"summary\": \"ok\", \"confidence_score\": 0.5} outro"
	got, err := ExtractText(text2)
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Summary)
}

func TestExtractText_Unparseable(t *testing.T) {
	long := strings.Repeat("no json here at all. ", 30)
	_, err := ExtractText(long)

	var exErr *ExtractionError
	require.ErrorAs(t, err, &exErr)
	assert.LessOrEqual(t, len(exErr.Preview), 200)
	assert.True(t, strings.HasPrefix(long, exErr.Preview))
}

func TestExtractText_NullRejected(t *testing.T) {
	// A literal null parses as JSON but is not an analysis object; it
	// must error so the caller takes the fallback path, not silently
	// yield a zero-value result.
	for _, text := range []string{"null", "[1, 2]", `"just a string"`, "42"} {
		_, err := ExtractText(text)

		var exErr *ExtractionError
		require.ErrorAs(t, err, &exErr, "input %q", text)
	}
}

func TestExtract_MappingPassthrough(t *testing.T) {
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(wellFormed), &m))

	got, err := Extract(m)
	require.NoError(t, err)
	assert.Equal(t, wantResult(t), got)
}

func TestExtract_Idempotent(t *testing.T) {
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(wellFormed), &m))

	once, err := Extract(m)
	require.NoError(t, err)

	// Re-extracting the extracted object yields the same object.
	roundTripped, err := json.Marshal(once)
	require.NoError(t, err)
	twice, err := ExtractRaw(roundTripped)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestExtract_ContentArray(t *testing.T) {
	reply := map[string]any{
		"content": []any{
			map[string]any{"type": "text", "text": "Result: ```json\n" + wellFormed[:40]},
			map[string]any{"type": "text", "text": wellFormed[40:] + "\n```"},
		},
	}
	got, err := Extract(reply)
	require.NoError(t, err)
	assert.Equal(t, wantResult(t), got)
}

func TestExtractRaw_JSONString(t *testing.T) {
	quoted, err := json.Marshal("leading words " + wellFormed)
	require.NoError(t, err)

	got, gotErr := ExtractRaw(quoted)
	require.NoError(t, gotErr)
	assert.Equal(t, wantResult(t), got)
}

func TestExtractRaw_WrongShape(t *testing.T) {
	_, err := ExtractRaw(json.RawMessage(`[1,2,3]`))
	var exErr *ExtractionError
	require.ErrorAs(t, err, &exErr)
}

func TestNormalize_Clamps(t *testing.T) {
	r := &Result{
		ConfidenceScore: 1.7,
		TechStack: []TechItem{
			{Name: "Go", Confidence: -0.2},
			{Name: "Bash", Confidence: 0.4},
		},
	}
	r.Normalize()
	assert.Equal(t, 1.0, r.ConfidenceScore)
	assert.Equal(t, 0.0, r.TechStack[0].Confidence)
	assert.Equal(t, 0.4, r.TechStack[1].Confidence)
}
