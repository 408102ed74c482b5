package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/libtrackai/libtrack/internal/common"
	"github.com/libtrackai/libtrack/internal/models"
)

func pandasComponent() *models.TrackedComponent {
	return &models.TrackedComponent{
		Name:           "pandas",
		Kind:           models.ComponentKindLibrary,
		CurrentVersion: "2.3.2",
	}
}

func TestBuildQueries(t *testing.T) {
	queries := buildQueries(pandasComponent())
	require.Len(t, queries, 5)
	assert.Contains(t, queries[0], "pandas latest version release")
	assert.Contains(t, queries[4], "pandas 3.0 release date")
}

func TestBuildQueriesNonNumericVersion(t *testing.T) {
	component := &models.TrackedComponent{Name: "nightly-tool", CurrentVersion: "latest"}
	queries := buildQueries(component)
	// No next-major facet without a numeric current version
	assert.Len(t, queries, 4)
}

func TestNextMajorVersion(t *testing.T) {
	assert.Equal(t, "3.0", nextMajorVersion("2.3.2"))
	assert.Equal(t, "4.0", nextMajorVersion("v3.12.0"))
	assert.Equal(t, "", nextMajorVersion("latest"))
}

func TestMergeResponseDeduplicates(t *testing.T) {
	evidence := &models.SearchEvidence{}
	seen := make(map[string]bool)

	resp := &serperResponse{
		Organic: []serperItem{
			{Title: "pandas 3.0 roadmap", Link: "https://a", Snippet: "planned"},
			{Title: "duplicate", Link: "https://a", Snippet: "same url"},
		},
		News: []serperItem{
			{Title: "pandas 3.0 coming", Link: "https://b", Snippet: "news"},
		},
	}
	mergeResponse(evidence, resp, seen)
	mergeResponse(evidence, resp, seen)

	require.Len(t, evidence.Snippets, 2)
	assert.Equal(t, "serper", evidence.Snippets[0].Source)
}

func TestVersionCandidate(t *testing.T) {
	snippets := []models.EvidenceSnippet{
		{Title: "pandas 2.3.2 docs", Snippet: "current stable"},
		{Title: "pandas 3.0.0 planned", Snippet: "also mentions 2.4.0"},
	}
	assert.Equal(t, "3.0.0", versionCandidate(snippets, "2.3.2"))
	assert.Equal(t, "", versionCandidate(snippets, "3.0.0"))
}

func TestSerperSearch(t *testing.T) {
	var gotAPIKey string
	var gotRequests []serperRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("X-API-KEY")

		var req serperRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotRequests = append(gotRequests, req)

		json.NewEncoder(w).Encode(serperResponse{
			Organic: []serperItem{
				{Title: "pandas 3.0.0 release plan", Link: "https://pandas.pydata.org/" + req.Q, Snippet: "pandas 3.0.0 expected"},
			},
		})
	}))
	defer server.Close()

	service := &SerperService{
		config: &common.SearchConfig{
			BaseURL:    server.URL,
			MaxResults: 10,
			Country:    "us",
		},
		apiKey:     "test-key",
		httpClient: &http.Client{Timeout: 5 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		logger:     arbor.NewLogger(),
	}

	evidence, err := service.Search(context.Background(), pandasComponent())
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotAPIKey)
	assert.Len(t, gotRequests, 5)
	assert.Equal(t, 10, gotRequests[0].Num)
	assert.Equal(t, "us", gotRequests[0].GL)

	assert.Equal(t, "pandas", evidence.Component)
	assert.Len(t, evidence.Snippets, 5, "one deduplicated snippet per query")
	assert.Equal(t, "3.0.0", evidence.LatestVersionCandidate)
}

func TestSerperSearchAllQueriesFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	service := &SerperService{
		config:     &common.SearchConfig{BaseURL: server.URL, MaxResults: 10, Country: "us"},
		apiKey:     "test-key",
		httpClient: &http.Client{Timeout: 5 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		logger:     arbor.NewLogger(),
	}

	_, err := service.Search(context.Background(), pandasComponent())
	assert.Error(t, err)
}

func TestCompositeSearchToleratesPartialFailure(t *testing.T) {
	failing := &stubSource{name: "failing", err: assert.AnError}
	working := &stubSource{
		name: "working",
		evidence: &models.SearchEvidence{
			Snippets: []models.EvidenceSnippet{
				{Title: "pandas 3.0.0", URL: "https://a", Source: "stub"},
			},
		},
	}

	composite := NewCompositeService(arbor.NewLogger(), failing, working)
	evidence, err := composite.Search(context.Background(), pandasComponent())
	require.NoError(t, err)
	assert.Len(t, evidence.Snippets, 1)
	assert.Equal(t, "3.0.0", evidence.LatestVersionCandidate)

	allFailing := NewCompositeService(arbor.NewLogger(), failing)
	_, err = allFailing.Search(context.Background(), pandasComponent())
	assert.Error(t, err)
}

// stubSource is a test double for an evidence source
type stubSource struct {
	name     string
	evidence *models.SearchEvidence
	err      error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Search(ctx context.Context, component *models.TrackedComponent) (*models.SearchEvidence, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.evidence, nil
}

func TestSplitRepoSlug(t *testing.T) {
	owner, repo, ok := splitRepoSlug("pandas-dev/pandas")
	assert.True(t, ok)
	assert.Equal(t, "pandas-dev", owner)
	assert.Equal(t, "pandas", repo)

	_, _, ok = splitRepoSlug("")
	assert.False(t, ok)
	_, _, ok = splitRepoSlug("no-slash")
	assert.False(t, ok)
	_, _, ok = splitRepoSlug("a/b/c")
	assert.False(t, ok)
}
