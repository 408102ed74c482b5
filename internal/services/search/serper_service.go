package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/libtrackai/libtrack/internal/common"
	"github.com/libtrackai/libtrack/internal/interfaces"
	"github.com/libtrackai/libtrack/internal/models"
)

// SerperService implements the SearchService interface against the
// Serper web search API
type SerperService struct {
	config     *common.SearchConfig
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     arbor.ILogger
}

// serperRequest is the Serper API request payload
type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
	GL  string `json:"gl"`
}

// serperItem is a single result entry in a Serper response
type serperItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// serperResponse covers the response sections the service consumes
type serperResponse struct {
	Organic   []serperItem `json:"organic"`
	News      []serperItem `json:"news"`
	AnswerBox *struct {
		Title   string `json:"title"`
		Answer  string `json:"answer"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"answerBox"`
}

// NewSerperService creates a new Serper search service.
// The API key is resolved with environment priority, then the KV store,
// then the config value.
func NewSerperService(searchConfig *common.SearchConfig, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (*SerperService, error) {
	ctx := context.Background()
	apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "serper_api_key", searchConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("Serper API key is required for web search (set via SERPER_API_KEY, LIBTRACK_SERPER_API_KEY, or search.api_key in config): %w", err)
	}

	rateInterval, err := time.ParseDuration(searchConfig.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit duration '%s': %w", searchConfig.RateLimit, err)
	}

	timeout := searchConfig.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	service := &SerperService{
		config:     searchConfig,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(rateInterval), 1),
		logger:     logger,
	}

	logger.Debug().
		Str("base_url", searchConfig.BaseURL).
		Int("max_results", searchConfig.MaxResults).
		Msg("Serper search service initialized")

	return service, nil
}

// Name identifies the evidence source
func (s *SerperService) Name() string {
	return "serper"
}

// buildQueries returns the query facets issued for a component. Multiple
// angles (current release, announcements, roadmap) improve the odds of
// catching both shipped and planned versions.
func buildQueries(component *models.TrackedComponent) []string {
	name := component.Name
	year := time.Now().Year()

	queries := []string{
		fmt.Sprintf("%s latest version release", name),
		fmt.Sprintf("%s new version announcement %d", name, year),
		fmt.Sprintf("%s roadmap upcoming release", name),
		fmt.Sprintf("%s release notes changelog", name),
	}

	if next := nextMajorVersion(component.CurrentVersion); next != "" {
		queries = append(queries, fmt.Sprintf("%s %s release date", name, next))
	}

	return queries
}

// nextMajorVersion returns the next major version ("3.0" for "2.3.2"),
// or empty string when the current version has no leading number
func nextMajorVersion(current string) string {
	parts := strings.Split(strings.TrimPrefix(strings.TrimSpace(current), "v"), ".")
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%d.0", major+1)
}

// Search collects release evidence for a component by issuing all query
// facets and merging the organic, news and answer-box results
func (s *SerperService) Search(ctx context.Context, component *models.TrackedComponent) (*models.SearchEvidence, error) {
	queries := buildQueries(component)

	evidence := &models.SearchEvidence{
		Component:      component.Key(),
		CurrentVersion: component.CurrentVersion,
		Queries:        queries,
		RetrievedAt:    time.Now(),
	}

	seen := make(map[string]bool)
	failures := 0
	for _, query := range queries {
		resp, err := s.runQuery(ctx, query)
		if err != nil {
			s.logger.Warn().Err(err).Str("query", query).Msg("Serper query failed")
			failures++
			continue
		}
		mergeResponse(evidence, resp, seen)
	}

	if failures == len(queries) {
		return nil, fmt.Errorf("all %d search queries failed for %s", len(queries), component.Name)
	}

	evidence.LatestVersionCandidate = versionCandidate(evidence.Snippets, component.CurrentVersion)

	s.logger.Debug().
		Str("component", component.Name).
		Int("snippets", len(evidence.Snippets)).
		Str("candidate", evidence.LatestVersionCandidate).
		Msg("Search evidence gathered")

	return evidence, nil
}

// runQuery issues a single Serper search request
func (s *SerperService) runQuery(ctx context.Context, query string) (*serperResponse, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	payload, err := json.Marshal(serperRequest{
		Q:   query,
		Num: s.config.MaxResults,
		GL:  s.config.Country,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Serper API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Serper API returned status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode Serper response: %w", err)
	}

	return &apiResp, nil
}

// mergeResponse folds a Serper response into the evidence, deduplicating
// on URL (or title when the URL is empty)
func mergeResponse(evidence *models.SearchEvidence, resp *serperResponse, seen map[string]bool) {
	add := func(item serperItem) {
		key := item.Link
		if key == "" {
			key = item.Title
		}
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		evidence.Snippets = append(evidence.Snippets, models.EvidenceSnippet{
			Title:   item.Title,
			Snippet: item.Snippet,
			URL:     item.Link,
			Source:  "serper",
		})
	}

	if resp.AnswerBox != nil {
		snippet := resp.AnswerBox.Answer
		if snippet == "" {
			snippet = resp.AnswerBox.Snippet
		}
		add(serperItem{Title: resp.AnswerBox.Title, Link: resp.AnswerBox.Link, Snippet: snippet})
	}
	for _, item := range resp.Organic {
		add(item)
	}
	for _, item := range resp.News {
		add(item)
	}
}

// versionCandidate scans snippet text for version mentions and returns
// the highest one that exceeds the current version
func versionCandidate(snippets []models.EvidenceSnippet, currentVersion string) string {
	var mentions []string
	for _, snippet := range snippets {
		mentions = append(mentions, common.ExtractVersions(snippet.Title+" "+snippet.Snippet)...)
	}
	return common.HighestVersion(mentions, currentVersion)
}
