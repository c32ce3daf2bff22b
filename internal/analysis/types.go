// Package analysis defines the structured repository analysis result and
// the extraction pipeline that recovers it from unreliable agent replies.
package analysis

// TechItem is a technology detected in the repository.
type TechItem struct {
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// TagItem categorizes the repository for discoverability.
type TagItem struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Metadata describes the analyzed repository.
type Metadata struct {
	RepositoryOwner      string             `json:"repository_owner"`
	RepositoryName       string             `json:"repository_name"`
	PrimaryLanguage      string             `json:"primary_language"`
	LanguageDistribution map[string]float64 `json:"language_distribution"`
	StarCount            int                `json:"star_count"`
	ForkCount            int                `json:"fork_count"`
	LastUpdated          string             `json:"last_updated"`
	HasReadme            bool               `json:"has_readme"`
	HasTests             bool               `json:"has_tests"`
	HasCI                bool               `json:"has_ci"`
}

// Result is the analysis contract returned to callers. Callers receive the
// same shape whether extraction succeeded or the fallback path was taken.
type Result struct {
	Summary         string     `json:"summary"`
	TechStack       []TechItem `json:"tech_stack"`
	KeyFeatures     []string   `json:"key_features"`
	Tags            []TagItem  `json:"tags"`
	Metadata        Metadata   `json:"metadata"`
	ConfidenceScore float64    `json:"confidence_score"`
}

// Normalize clamps all confidence values into [0,1].
func (r *Result) Normalize() {
	r.ConfidenceScore = clamp01(r.ConfidenceScore)
	for i := range r.TechStack {
		r.TechStack[i].Confidence = clamp01(r.TechStack[i].Confidence)
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
