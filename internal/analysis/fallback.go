package analysis

// Fallback builds a degraded but schema-valid Result for when the agent's
// reply could not be parsed. The raw message becomes the summary verbatim so
// callers can see what the agent actually said. The confidence score of 0.5
// signals unverified, neutral confidence rather than active failure.
func Fallback(owner, repo, rawMessage string) *Result {
	return &Result{
		Summary:     rawMessage,
		TechStack:   []TechItem{},
		KeyFeatures: []string{},
		Tags:        []TagItem{},
		Metadata: Metadata{
			RepositoryOwner:      owner,
			RepositoryName:       repo,
			PrimaryLanguage:      "Unknown",
			LanguageDistribution: map[string]float64{},
		},
		ConfidenceScore: 0.5,
	}
}
