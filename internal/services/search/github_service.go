package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/ternarybob/arbor"
	"golang.org/x/oauth2"

	"github.com/libtrackai/libtrack/internal/common"
	"github.com/libtrackai/libtrack/internal/interfaces"
	"github.com/libtrackai/libtrack/internal/models"
)

// maxReleaseBodyLen bounds how much release-note text is carried into a
// single evidence snippet
const maxReleaseBodyLen = 500

// GitHubService implements the SearchService interface against the
// GitHub releases API, for components configured with a repo slug
type GitHubService struct {
	config *common.GitHubConfig
	client *github.Client
	logger arbor.ILogger
}

// NewGitHubService creates a new GitHub releases evidence source.
// The token is resolved with environment priority, then the KV store,
// then the config value; without a token the client runs
// unauthenticated at GitHub's anonymous rate limits.
func NewGitHubService(githubConfig *common.GitHubConfig, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) *GitHubService {
	ctx := context.Background()

	var client *github.Client
	token, err := common.ResolveAPIKey(ctx, kvStorage, "github_token", githubConfig.Token)
	if err == nil && token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc := oauth2.NewClient(ctx, ts)
		client = github.NewClient(tc)
		logger.Debug().Msg("GitHub evidence source initialized with token")
	} else {
		client = github.NewClient(nil)
		logger.Debug().Msg("GitHub evidence source initialized without token (anonymous rate limits apply)")
	}

	return &GitHubService{
		config: githubConfig,
		client: client,
		logger: logger,
	}
}

// Name identifies the evidence source
func (s *GitHubService) Name() string {
	return "github"
}

// Search collects release evidence from the component's GitHub repository.
// Components without a repo slug yield empty evidence.
func (s *GitHubService) Search(ctx context.Context, component *models.TrackedComponent) (*models.SearchEvidence, error) {
	evidence := &models.SearchEvidence{
		Component:      component.Key(),
		CurrentVersion: component.CurrentVersion,
		RetrievedAt:    time.Now(),
	}

	owner, repo, ok := splitRepoSlug(component.RepoSlug)
	if !ok {
		return evidence, nil
	}

	maxReleases := s.config.MaxReleases
	if maxReleases <= 0 {
		maxReleases = 10
	}

	releases, _, err := s.client.Repositories.ListReleases(ctx, owner, repo, &github.ListOptions{PerPage: maxReleases})
	if err != nil {
		return nil, fmt.Errorf("failed to list releases for %s/%s: %w", owner, repo, err)
	}

	for _, release := range releases {
		if release.GetDraft() {
			continue
		}

		title := release.GetName()
		if title == "" {
			title = release.GetTagName()
		}

		snippet := release.GetTagName()
		if body := strings.TrimSpace(release.GetBody()); body != "" {
			if len(body) > maxReleaseBodyLen {
				body = body[:maxReleaseBodyLen]
			}
			snippet = snippet + " " + body
		}
		if release.GetPrerelease() {
			snippet = "(pre-release) " + snippet
		}
		if published := release.GetPublishedAt(); !published.IsZero() {
			snippet = snippet + " published " + published.Format("2006-01-02")
		}

		evidence.Snippets = append(evidence.Snippets, models.EvidenceSnippet{
			Title:   fmt.Sprintf("%s/%s release: %s", owner, repo, title),
			Snippet: snippet,
			URL:     release.GetHTMLURL(),
			Source:  "github",
		})
	}

	evidence.LatestVersionCandidate = versionCandidate(evidence.Snippets, component.CurrentVersion)

	s.logger.Debug().
		Str("component", component.Name).
		Str("repo", component.RepoSlug).
		Int("releases", len(evidence.Snippets)).
		Msg("GitHub release evidence gathered")

	return evidence, nil
}

// splitRepoSlug parses an "owner/repo" slug
func splitRepoSlug(slug string) (owner, repo string, ok bool) {
	parts := strings.Split(strings.TrimSpace(slug), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
