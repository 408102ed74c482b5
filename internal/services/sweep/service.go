// -----------------------------------------------------------------------
// Sweep Service - daily evaluation pass over all tracked components
// search -> classify -> evaluate -> dispatch, per component
// -----------------------------------------------------------------------

package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/libtrackai/libtrack/internal/common"
	"github.com/libtrackai/libtrack/internal/interfaces"
	"github.com/libtrackai/libtrack/internal/models"
	"github.com/libtrackai/libtrack/internal/services/classifier"
	"github.com/libtrackai/libtrack/internal/services/engine"
)

// Result summarizes a completed sweep
type Result struct {
	Projects  int           `json:"projects"`
	Evaluated int           `json:"evaluated"`
	Notified  int           `json:"notified"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// Service runs the evaluation pass over every enabled project's
// components. Components are processed concurrently with per-component
// error isolation: one component failing never aborts the sweep.
type Service struct {
	config     *common.SweepConfig
	projects   interfaces.ProjectStorage
	search     interfaces.SearchService
	classifier interfaces.ClassifierService
	engine     *engine.Engine
	dispatcher interfaces.DispatcherService
	logger     arbor.ILogger

	timeout time.Duration
}

// NewService creates a new sweep service
func NewService(
	sweepConfig *common.SweepConfig,
	projects interfaces.ProjectStorage,
	search interfaces.SearchService,
	classifierService interfaces.ClassifierService,
	lifecycleEngine *engine.Engine,
	dispatcher interfaces.DispatcherService,
	logger arbor.ILogger,
) (*Service, error) {
	timeout, err := time.ParseDuration(sweepConfig.ComponentTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid component timeout '%s': %w", sweepConfig.ComponentTimeout, err)
	}

	return &Service{
		config:     sweepConfig,
		projects:   projects,
		search:     search,
		classifier: classifierService,
		engine:     lifecycleEngine,
		dispatcher: dispatcher,
		logger:     logger,
		timeout:    timeout,
	}, nil
}

type componentJob struct {
	project   *models.Project
	component *models.TrackedComponent
}

type componentOutcome int

const (
	outcomeEvaluated componentOutcome = iota
	outcomeNotified
	outcomeSkipped
	outcomeFailed
)

// Run evaluates every component of every enabled project and returns a
// summary of the pass
func (s *Service) Run(ctx context.Context) (*Result, error) {
	started := time.Now()

	projects, err := s.projects.GetAllProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load projects for sweep: %w", err)
	}

	var jobs []componentJob
	enabledProjects := 0
	for _, project := range projects {
		if !project.Enabled {
			s.logger.Debug().Str("project", project.Name).Msg("Project disabled, skipping")
			continue
		}
		enabledProjects++
		for i := range project.Components {
			jobs = append(jobs, componentJob{project: project, component: &project.Components[i]})
		}
	}

	s.logger.Info().
		Int("projects", enabledProjects).
		Int("components", len(jobs)).
		Int("concurrency", s.config.Concurrency).
		Msg("Starting sweep")

	outcomes := make([]componentOutcome, len(jobs))
	var wg sync.WaitGroup

	// Semaphore for concurrency control
	concurrency := s.config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)

	for i, job := range jobs {
		wg.Add(1)
		go func(idx int, job componentJob) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			outcomes[idx] = s.processComponent(ctx, job)
		}(i, job)
	}

	wg.Wait()

	result := &Result{
		Projects: enabledProjects,
		Duration: time.Since(started),
	}
	for _, outcome := range outcomes {
		switch outcome {
		case outcomeEvaluated:
			result.Evaluated++
		case outcomeNotified:
			result.Evaluated++
			result.Notified++
		case outcomeSkipped:
			result.Skipped++
		case outcomeFailed:
			result.Failed++
		}
	}

	s.logger.Info().
		Int("evaluated", result.Evaluated).
		Int("notified", result.Notified).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("Sweep completed")

	return result, nil
}

// processComponent runs the full pipeline for one component
func (s *Service) processComponent(ctx context.Context, job componentJob) componentOutcome {
	component := job.component
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	evidence, err := s.search.Search(ctx, component)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("project", job.project.Name).
			Str("component", component.Name).
			Msg("Evidence search failed")
		return outcomeFailed
	}
	if evidence.IsEmpty() {
		s.logger.Debug().
			Str("component", component.Name).
			Msg("No evidence found, skipping component")
		return outcomeSkipped
	}

	signal, err := s.classifier.Classify(ctx, component, evidence)
	if err != nil {
		if errors.Is(err, classifier.ErrNoVersion) {
			s.logger.Debug().
				Str("component", component.Name).
				Msg("Classifier found no actionable version, skipping component")
			return outcomeSkipped
		}
		s.logger.Warn().
			Err(err).
			Str("project", job.project.Name).
			Str("component", component.Name).
			Str("provider", s.classifier.Provider()).
			Msg("Classification failed")
		return outcomeFailed
	}

	intent, err := s.engine.Evaluate(ctx, component, signal, job.project.Recipients)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("project", job.project.Name).
			Str("component", component.Name).
			Msg("Lifecycle evaluation failed")
		return outcomeFailed
	}
	if intent == nil {
		return outcomeEvaluated
	}

	// NotificationSent is already committed; a delivery failure is
	// logged, not retried, to avoid re-notification storms
	if err := s.dispatcher.Dispatch(ctx, intent); err != nil {
		s.logger.Error().
			Err(err).
			Str("intent_id", intent.ID).
			Str("component", component.Name).
			Msg("Notification dispatch failed")
		return outcomeFailed
	}

	return outcomeNotified
}
