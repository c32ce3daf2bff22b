package github

import (
	"context"

	gh "github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"
)

// NewClient returns a go-github client, authenticated when token is
// non-empty. Unauthenticated clients work for public repositories at a much
// lower rate limit.
func NewClient(ctx context.Context, token string) *gh.Client {
	if token == "" {
		return gh.NewClient(nil)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return gh.NewClient(oauth2.NewClient(ctx, ts))
}
