package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallback(t *testing.T) {
	msg := "The model wandered off and produced prose instead of JSON."
	r := Fallback("octocat", "hello-world", msg)

	assert.Equal(t, msg, r.Summary)
	assert.Equal(t, 0.5, r.ConfidenceScore)
	assert.Empty(t, r.TechStack)
	assert.Empty(t, r.KeyFeatures)
	assert.Empty(t, r.Tags)
	assert.Equal(t, "octocat", r.Metadata.RepositoryOwner)
	assert.Equal(t, "hello-world", r.Metadata.RepositoryName)
	assert.Equal(t, "Unknown", r.Metadata.PrimaryLanguage)
	assert.Empty(t, r.Metadata.LanguageDistribution)
	assert.Zero(t, r.Metadata.StarCount)
	assert.Zero(t, r.Metadata.ForkCount)
	assert.False(t, r.Metadata.HasReadme)
	assert.False(t, r.Metadata.HasTests)
	assert.False(t, r.Metadata.HasCI)
}

func TestFallback_SameSchemaAsExtraction(t *testing.T) {
	// The fallback serializes with collections as [] and {} rather than
	// null, so downstream consumers never branch on shape.
	raw, err := json.Marshal(Fallback("o", "r", "msg"))
	require.NoError(t, err)

	s := string(raw)
	assert.Contains(t, s, `"tech_stack":[]`)
	assert.Contains(t, s, `"key_features":[]`)
	assert.Contains(t, s, `"tags":[]`)
	assert.Contains(t, s, `"language_distribution":{}`)

	// And it survives re-extraction unchanged.
	back, err := ExtractRaw(raw)
	require.NoError(t, err)
	assert.Equal(t, "msg", back.Summary)
	assert.Equal(t, 0.5, back.ConfidenceScore)
}
