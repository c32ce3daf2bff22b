package intelagent

import "fmt"

// analysisPrompt instructs the model to gather repository data through the
// available tools and answer with a single JSON object matching the
// analysis schema.
func analysisPrompt(owner, repo, repoURL string) string {
	return fmt.Sprintf(`Analyze the GitHub repository at %s (owner: %s, repo: %s).

You have access to GitHub tools. Use them to gather information:
1. Use get_file_contents to read the README file
2. Use search_repositories or get repository metadata to understand the project
3. Use list_commits to see recent activity
4. Use search_code to identify technologies and frameworks

Based on the data you gather, return a JSON object with this exact structure:
{
  "summary": "2-3 sentence project description based on README and repository metadata",
  "tech_stack": [
    {"name": "Python", "category": "language", "confidence": 0.95},
    {"name": "FastAPI", "category": "framework", "confidence": 0.90}
  ],
  "key_features": ["Feature 1 from README", "Feature 2 from README", "Feature 3 from README"],
  "tags": [
    {"name": "ai", "category": "domain", "confidence": 0.85},
    {"name": "web-app", "category": "platform", "confidence": 0.90}
  ],
  "metadata": {
    "repository_owner": "%s",
    "repository_name": "%s",
    "primary_language": "Python",
    "language_distribution": {"Python": 75.5, "JavaScript": 24.5},
    "star_count": 123,
    "fork_count": 45,
    "last_updated": "2025-10-17T10:00:00Z",
    "has_readme": true,
    "has_tests": false,
    "has_ci": false
  },
  "confidence_score": 0.92
}

Guidelines:
- For tech_stack, identify languages, frameworks, libraries, tools, and cloud services
- Categories: "language", "framework", "library", "tool", "aws-service"
- For tags, use categories: "domain", "technology", "feature", "platform"
- Extract key_features from README headings, bullet points, or description
- Provide realistic confidence scores (0.0 to 1.0) based on evidence
- For has_tests, check if repository has test files or test directories
- For has_ci, check if repository has .github/workflows or similar CI configuration
- Overall confidence_score should reflect the quality and completeness of available data
- If you cannot identify some information, use appropriate "null" values or empty arrays
- DO NOT make up information

Return ONLY the JSON object, no additional text or explanation.
`, repoURL, owner, repo, owner, repo)
}
