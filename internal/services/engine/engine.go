package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/libtrackai/libtrack/internal/common"
	"github.com/libtrackai/libtrack/internal/interfaces"
	"github.com/libtrackai/libtrack/internal/models"
)

// Engine applies classification signals to the version record store and
// decides which notifications to emit. All deduplication and merge
// semantics live here; callers only deliver the returned intents.
type Engine struct {
	config   *common.EngineConfig
	store    interfaces.VersionStore
	gate     *Gate
	resolver *PromotionResolver
	logger   arbor.ILogger
}

// NewEngine creates a new lifecycle engine
func NewEngine(engineConfig *common.EngineConfig, store interfaces.VersionStore, logger arbor.ILogger) *Engine {
	return &Engine{
		config:   engineConfig,
		store:    store,
		gate:     NewGate(engineConfig.MinConfidence),
		resolver: NewPromotionResolver(store, logger),
		logger:   logger,
	}
}

// Evaluate applies a classification signal for a tracked component and
// returns the notification intent it warrants, or nil when nothing
// should be sent. Released signals create release records and settle any
// open prediction; future signals create or merge future-update records
// subject to the confidence gate.
func (e *Engine) Evaluate(ctx context.Context, component *models.TrackedComponent, signal *models.ClassificationSignal, recipients []string) (*models.NotificationIntent, error) {
	if signal == nil || signal.Version == "" {
		return nil, nil
	}

	if signal.IsReleased {
		return e.evaluateRelease(ctx, component, signal, recipients)
	}
	return e.evaluateFuture(ctx, component, signal, recipients)
}

func (e *Engine) evaluateRelease(ctx context.Context, component *models.TrackedComponent, signal *models.ClassificationSignal, recipients []string) (*models.NotificationIntent, error) {
	key := component.Key()

	open, err := e.store.FindOpenFutureForRelease(ctx, key, signal.Version)
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return nil, fmt.Errorf("failed to check open predictions for %s %s: %w", key, signal.Version, err)
	}

	record := &models.ReleaseRecord{
		ID:          common.NewReleaseID(),
		Component:   key,
		Library:     signal.Library,
		Kind:        component.Kind,
		Version:     signal.Version,
		Category:    signal.Category,
		Confidence:  signal.Confidence,
		ReleaseDate: signal.ReleaseDate,
		Features:    signal.Features,
		SourceURL:   signal.SourceURL,
		Summary:     signal.Summary,
		DetectedAt:  time.Now(),
	}
	if open != nil {
		record.PromotedFrom = open.ID
	}

	stored, created, err := e.store.GetOrCreateRelease(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to store release record for %s %s: %w", key, signal.Version, err)
	}

	if open != nil {
		if _, err := e.resolver.Resolve(ctx, key, signal.Version, stored.ID); err != nil {
			if errors.Is(err, interfaces.ErrConflict) {
				e.logger.Warn().
					Str("component", key).
					Str("version", signal.Version).
					Err(err).
					Msg("Promotion link conflict, release record kept")
			} else {
				return nil, err
			}
		}
	}

	if !created {
		e.logger.Debug().
			Str("component", key).
			Str("version", signal.Version).
			Msg("Release already recorded, skipping notification")
		return nil, nil
	}

	// Preferences only guard the alert; the record and promotion above
	// are committed either way
	if !component.Notify.Has(string(stored.Category)) {
		e.logger.Debug().
			Str("component", key).
			Str("version", signal.Version).
			Str("category", string(stored.Category)).
			Msg("Release category not in notification preferences, alert suppressed")
		return nil, nil
	}

	e.logger.Info().
		Str("component", key).
		Str("version", signal.Version).
		Str("category", string(signal.Category)).
		Bool("promoted", open != nil).
		Msg("New release recorded")

	return &models.NotificationIntent{
		ID:            common.NewIntentID(),
		Kind:          models.IntentReleaseAlert,
		Component:     key,
		Library:       stored.Library,
		ComponentKind: stored.Kind,
		Version:       stored.Version,
		Category:      stored.Category,
		Confidence:    stored.Confidence,
		ReleaseDate:   stored.ReleaseDate,
		Features:      stored.Features,
		SourceURL:     stored.SourceURL,
		Summary:       stored.Summary,
		Promoted:      open != nil,
		Recipients:    recipients,
		CreatedAt:     time.Now(),
	}, nil
}

func (e *Engine) evaluateFuture(ctx context.Context, component *models.TrackedComponent, signal *models.ClassificationSignal, recipients []string) (*models.NotificationIntent, error) {
	key := component.Key()

	if !e.gate.Accept(signal, component.Notify) {
		e.logger.Debug().
			Str("component", key).
			Str("version", signal.Version).
			Int("confidence", signal.Confidence).
			Int("min_confidence", e.config.MinConfidence).
			Msg("Future signal rejected by confidence gate")
		return nil, nil
	}

	now := time.Now()
	candidate := &models.FutureUpdateRecord{
		ID:            common.NewFutureID(),
		Component:     key,
		Library:       signal.Library,
		Kind:          component.Kind,
		Version:       signal.Version,
		Status:        models.FutureStatusDetected,
		Category:      signal.Category,
		Confidence:    signal.Confidence,
		ExpectedDate:  signal.ExpectedDate,
		Features:      signal.Features,
		SourceURL:     signal.SourceURL,
		Summary:       signal.Summary,
		FirstDetected: now,
		LastUpdated:   now,
	}

	stored, created, err := e.store.GetOrCreateFuture(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to store future record for %s %s: %w", key, signal.Version, err)
	}

	if !created {
		if stored.Status.IsTerminal() {
			e.logger.Debug().
				Str("component", key).
				Str("version", signal.Version).
				Str("status", string(stored.Status)).
				Msg("Future record is terminal, ignoring repeat detection")
			return nil, nil
		}
		return e.mergeAndNotify(ctx, stored, signal, recipients)
	}

	stored.NotificationSent = true
	stored.NotificationSentAt = &now
	if err := e.store.SaveFuture(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to mark notification sent for %s %s: %w", key, signal.Version, err)
	}

	e.logger.Info().
		Str("component", key).
		Str("version", signal.Version).
		Int("confidence", stored.Confidence).
		Str("expected_date", stored.ExpectedDate).
		Msg("New future update detected")

	return e.futureIntent(models.IntentFutureAlert, stored, recipients), nil
}

// mergeAndNotify folds a repeat detection into an existing open record
// and decides whether it warrants a notification.
func (e *Engine) mergeAndNotify(ctx context.Context, record *models.FutureUpdateRecord, signal *models.ClassificationSignal, recipients []string) (*models.NotificationIntent, error) {
	previousConfidence := record.Confidence
	changed := e.merge(record, signal)

	if record.NotificationSent {
		if changed {
			record.LastUpdated = time.Now()
			if err := e.store.SaveFuture(ctx, record); err != nil {
				return nil, fmt.Errorf("failed to save merged future record %s: %w", record.RecordKey(), err)
			}
		}

		delta := record.Confidence - previousConfidence
		if e.config.ReAlertDelta > 0 && delta >= e.config.ReAlertDelta {
			e.logger.Info().
				Str("component", record.Component).
				Str("version", record.Version).
				Int("previous_confidence", previousConfidence).
				Int("confidence", record.Confidence).
				Msg("Confidence rose materially on notified prediction")

			intent := e.futureIntent(models.IntentConfidenceAlert, record, recipients)
			intent.PreviousConfidence = previousConfidence
			if len(record.History) > 0 {
				intent.ChangeReason = record.History[len(record.History)-1].Reason
			}
			return intent, nil
		}
		return nil, nil
	}

	now := time.Now()
	record.NotificationSent = true
	record.NotificationSentAt = &now
	record.LastUpdated = now
	if err := e.store.SaveFuture(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to mark notification sent for %s: %w", record.RecordKey(), err)
	}

	return e.futureIntent(models.IntentFutureAlert, record, recipients), nil
}

// merge folds signal fields into the record per the configured merge
// policy and records a change reason for each adopted field. Returns
// true when any field changed.
func (e *Engine) merge(record *models.FutureUpdateRecord, signal *models.ClassificationSignal) bool {
	changed := false

	adoptConfidence := signal.Confidence > record.Confidence
	if !e.config.Merge.ConfidenceOnlyIfHigher {
		adoptConfidence = signal.Confidence != record.Confidence
	}
	if adoptConfidence {
		record.AddChange(fmt.Sprintf("confidence raised from %d to %d", record.Confidence, signal.Confidence))
		record.PreviousConfidence = record.Confidence
		record.Confidence = signal.Confidence
		changed = true
	}

	adoptDate := signal.ExpectedDate != "" && signal.ExpectedDate != record.ExpectedDate
	if !e.config.Merge.DateOnlyIfPresent {
		adoptDate = signal.ExpectedDate != record.ExpectedDate
	}
	if adoptDate {
		record.AddChange(dateChangeReason(record.ExpectedDate, signal.ExpectedDate))
		record.ExpectedDate = signal.ExpectedDate
		changed = true
	}

	if signal.SourceURL != "" && signal.SourceURL != record.SourceURL {
		record.AddChange(fmt.Sprintf("now sourced from %s", sourceDomain(signal.SourceURL)))
		record.SourceURL = signal.SourceURL
		changed = true
	}

	if len(signal.Features) > 0 && !equalFeatures(record.Features, signal.Features) {
		record.AddChange("feature list updated")
		record.Features = signal.Features
		changed = true
	}

	if signal.Summary != "" && signal.Summary != record.Summary {
		record.Summary = signal.Summary
		changed = true
	}

	return changed
}

func (e *Engine) futureIntent(kind models.IntentKind, record *models.FutureUpdateRecord, recipients []string) *models.NotificationIntent {
	return &models.NotificationIntent{
		ID:            common.NewIntentID(),
		Kind:          kind,
		Component:     record.Component,
		Library:       record.Library,
		ComponentKind: record.Kind,
		Version:       record.Version,
		Category:      record.Category,
		Confidence:    record.Confidence,
		ExpectedDate:  record.ExpectedDate,
		Features:      record.Features,
		SourceURL:     record.SourceURL,
		Summary:       record.Summary,
		Recipients:    recipients,
		CreatedAt:     time.Now(),
	}
}

// dateChangeReason phrases an expected-date change. Normalized dates are
// ISO formatted, so a string comparison orders them correctly.
func dateChangeReason(previous, next string) string {
	switch {
	case previous == "":
		return fmt.Sprintf("expected date set to %s", next)
	case next < previous:
		return fmt.Sprintf("expected date moved earlier to %s", next)
	default:
		return fmt.Sprintf("expected date moved to %s", next)
	}
}

func sourceDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	return parsed.Host
}

func equalFeatures(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
