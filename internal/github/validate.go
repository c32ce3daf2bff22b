// Package github is the repository-host boundary: local URL validation,
// rate-limit tracking, and the repository existence probe.
package github

import (
	"fmt"
	"regexp"
	"strings"

	errs "github.com/p-blackswan/repo-intel/internal/errors"
)

// ValidationResult is the outcome of validating a repository URL. When
// IsValid is true, Owner and Repo carry the extracted segments; otherwise
// ErrorMessage names what failed and Err carries the matching sentinel.
type ValidationResult struct {
	IsValid      bool
	Owner        string
	Repo         string
	ErrorMessage string
	Err          error
}

// urlPattern accepts exactly one owner/repo path segment pair, with an
// optional trailing slash. Deliberately permissive on the name charset;
// the per-field rules below produce the specific error message.
var urlPattern = regexp.MustCompile(`^https?://(?:www\.)?github\.com/([a-zA-Z0-9][a-zA-Z0-9._-]*)/([a-zA-Z0-9][a-zA-Z0-9._-]*)/?$`)

// ownerPattern: alphanumerics with single internal hyphens, no leading or
// trailing hyphen. Length is checked separately.
var ownerPattern = regexp.MustCompile(`^[a-zA-Z0-9]+(?:-[a-zA-Z0-9]+)*$`)

// repoPattern: alphanumerics, hyphens, underscores, and periods; must not
// start with a period or hyphen.
var repoPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidateURL validates a GitHub repository URL and extracts owner/repo.
// Purely local string validation, no network access.
func ValidateURL(url string) ValidationResult {
	if url == "" {
		return invalid("URL must be a non-empty string", errs.ErrInvalidURL)
	}
	url = strings.TrimSpace(url)

	m := urlPattern.FindStringSubmatch(url)
	if m == nil {
		return invalid("Invalid GitHub URL format. Expected: https://github.com/owner/repo", errs.ErrInvalidURL)
	}
	owner, repo := m[1], m[2]

	if !validOwner(owner) {
		return invalid(fmt.Sprintf("Invalid GitHub username: %s", owner), errs.ErrInvalidName)
	}
	if !validRepo(repo) {
		return invalid(fmt.Sprintf("Invalid GitHub repository name: %s", repo), errs.ErrInvalidName)
	}

	return ValidationResult{IsValid: true, Owner: owner, Repo: repo}
}

func validOwner(name string) bool {
	if name == "" || len(name) > 39 {
		return false
	}
	return ownerPattern.MatchString(name)
}

func validRepo(name string) bool {
	if name == "" || len(name) > 100 {
		return false
	}
	return repoPattern.MatchString(name)
}

func invalid(msg string, err error) ValidationResult {
	return ValidationResult{
		ErrorMessage: msg,
		Err:          fmt.Errorf("%s: %w", msg, err),
	}
}
