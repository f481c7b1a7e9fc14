package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"notice_relay/internal/detector"
	"notice_relay/internal/domain"
	"notice_relay/internal/registry"
	"notice_relay/internal/source"
)

// Pipeline runs one fetch, detect, persist and dispatch cycle for a source.
type Pipeline struct {
	detector     Detector
	notices      NoticeStore
	destinations DestinationStore
	txManager    TransactionManager
	dispatcher   Dispatcher
	logger       *slog.Logger
}

func NewPipeline(
	detector Detector,
	notices NoticeStore,
	destinations DestinationStore,
	txManager TransactionManager,
	dispatcher Dispatcher,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		detector:     detector,
		notices:      notices,
		destinations: destinations,
		txManager:    txManager,
		dispatcher:   dispatcher,
		logger:       logger,
	}
}

// Run executes one cycle. The cursor only moves past notices that were
// persisted and dispatched; observe, when set, is told every state change.
func (p *Pipeline) Run(ctx context.Context, src registry.Source, cursor *detector.Cursor, observe func(domain.State)) (*domain.CycleStats, error) {
	if observe == nil {
		observe = func(domain.State) {}
	}
	defer observe(domain.StateIdle)

	startTime := time.Now()
	stats := &domain.CycleStats{
		SourceID: src.ID,
		CycleID:  uuid.NewString(),
	}
	logger := p.logger.With("source", src.ID, "cycle_id", stats.CycleID)

	observe(domain.StateFetching)
	candidates, malformed, err := source.Collect(ctx, src.ID, src.Adapter, logger)
	if err != nil {
		return stats, fmt.Errorf("collect notices: %w", err)
	}
	stats.Fetched = len(candidates) + malformed
	stats.Malformed = malformed

	observe(domain.StateDetecting)
	res, err := p.detector.Detect(ctx, src.ID, src.Policy, candidates, cursor.Get())
	if err != nil {
		return stats, fmt.Errorf("detect new notices: %w", err)
	}
	stats.New = len(res.New)
	stats.Baseline = len(res.Baseline)

	if len(res.Baseline) > 0 {
		observe(domain.StatePersisting)
		if err := p.persistBaseline(ctx, res.Baseline, stats); err != nil {
			return stats, fmt.Errorf("persist baseline: %w", err)
		}
		logger.Info("recorded baseline without delivery", "count", len(res.Baseline))
	}

	if len(res.New) > 0 {
		if err := p.deliver(ctx, src, res.New, cursor, stats, observe, logger); err != nil {
			return stats, err
		}
	}

	if res.Next != "" {
		cursor.Set(res.Next)
	}

	stats.Duration = time.Since(startTime)
	logger.Info("cycle completed",
		"fetched", stats.Fetched,
		"malformed", stats.Malformed,
		"new", stats.New,
		"baseline", stats.Baseline,
		"persisted", stats.Persisted,
		"delivered", stats.Delivered,
		"failed", stats.Failed,
		"duration", stats.Duration,
	)

	return stats, nil
}

func (p *Pipeline) persistBaseline(ctx context.Context, baseline []domain.Notice, stats *domain.CycleStats) error {
	persisted := 0
	err := p.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, n := range baseline {
			inserted, err := p.notices.Append(txCtx, n)
			if err != nil {
				return err
			}
			if inserted {
				persisted++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	stats.Persisted += persisted
	return nil
}

// deliver persists and dispatches fresh notices oldest first. On failure
// the cursor is left at the last notice that completed both steps.
func (p *Pipeline) deliver(
	ctx context.Context,
	src registry.Source,
	fresh []domain.Notice,
	cursor *detector.Cursor,
	stats *domain.CycleStats,
	observe func(domain.State),
	logger *slog.Logger,
) error {
	// Subscribers are loaded before anything is appended so a lookup
	// failure cannot strand a persisted notice.
	dests, err := p.destinations.SubscribersOf(ctx, src.ID)
	if err != nil {
		return fmt.Errorf("load subscribers: %w", err)
	}

	for _, n := range fresh {
		if err := ctx.Err(); err != nil {
			observe(domain.StateCancelled)
			return fmt.Errorf("deliver notices: %w", err)
		}

		observe(domain.StatePersisting)
		inserted, err := p.notices.Append(ctx, n)
		if err != nil {
			return fmt.Errorf("persist notice: %w", err)
		}

		if inserted {
			stats.Persisted++
			if err := ctx.Err(); err != nil {
				observe(domain.StateCancelled)
				logger.Error("notice persisted but not dispatched",
					"title", n.Title,
					"link", n.Link,
					"key", n.Key(),
					"error", err,
				)
				return fmt.Errorf("dispatch notice: %w", err)
			}
			observe(domain.StateDispatching)
			report := p.dispatcher.Dispatch(ctx, n, src.DisplayName, dests)
			stats.Delivered += report.Delivered
			stats.Failed += report.Failed

			logger.Debug("notice dispatched",
				"title", n.Title,
				"destinations", len(dests),
				"delivered", report.Delivered,
				"skipped", report.Skipped,
				"failed", report.Failed,
			)
		}

		cursor.Set(n.Key())
	}

	return nil
}
