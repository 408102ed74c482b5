package search

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/libtrackai/libtrack/internal/interfaces"
	"github.com/libtrackai/libtrack/internal/models"
)

// CompositeService fans a search out to multiple evidence sources and
// merges the results. A source failing is tolerated as long as at least
// one source succeeds.
type CompositeService struct {
	sources []interfaces.SearchService
	logger  arbor.ILogger
}

// NewCompositeService creates a composite over the given sources
func NewCompositeService(logger arbor.ILogger, sources ...interfaces.SearchService) *CompositeService {
	return &CompositeService{
		sources: sources,
		logger:  logger,
	}
}

// Name identifies the evidence source
func (s *CompositeService) Name() string {
	return "composite"
}

// Search merges evidence from all configured sources
func (s *CompositeService) Search(ctx context.Context, component *models.TrackedComponent) (*models.SearchEvidence, error) {
	merged := &models.SearchEvidence{
		Component:      component.Key(),
		CurrentVersion: component.CurrentVersion,
		RetrievedAt:    time.Now(),
	}

	seen := make(map[string]bool)
	succeeded := 0
	var lastErr error

	for _, source := range s.sources {
		evidence, err := source.Search(ctx, component)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("source", source.Name()).
				Str("component", component.Name).
				Msg("Evidence source failed")
			lastErr = err
			continue
		}
		succeeded++

		merged.Queries = append(merged.Queries, evidence.Queries...)
		for _, snippet := range evidence.Snippets {
			key := snippet.URL
			if key == "" {
				key = snippet.Title
			}
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			merged.Snippets = append(merged.Snippets, snippet)
		}
	}

	if succeeded == 0 {
		return nil, fmt.Errorf("all evidence sources failed for %s: %w", component.Name, lastErr)
	}

	merged.LatestVersionCandidate = versionCandidate(merged.Snippets, component.CurrentVersion)

	return merged, nil
}
