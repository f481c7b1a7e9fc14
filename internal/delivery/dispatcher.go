// Package delivery fans a notice out to subscribed destinations.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"notice_relay/internal/domain"
)

// Target is a resolved destination handle.
type Target struct {
	ID      string
	Kind    domain.DestinationKind
	Name    string
	CanPost bool
	Handle  any
}

// Transport is the outbound messaging platform.
type Transport interface {
	// Resolve turns a stored destination into a live handle and reports
	// whether the relay may post there.
	Resolve(ctx context.Context, dest domain.Destination) (Target, error)
	Send(ctx context.Context, target Target, n domain.Notice, sourceName string) error
}

type Config struct {
	Concurrency int
	RatePerSec  float64
	SendTimeout time.Duration
}

// Report counts the outcome of one dispatch.
type Report struct {
	Delivered int
	Skipped   int
	Failed    int
}

type Dispatcher struct {
	transport   Transport
	limiter     *rate.Limiter
	concurrency int
	sendTimeout time.Duration
	logger      *slog.Logger
}

func NewDispatcher(transport Transport, cfg Config, logger *slog.Logger) *Dispatcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	limit := rate.Inf
	burst := 1
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
		burst = max(1, int(cfg.RatePerSec))
	}
	return &Dispatcher{
		transport:   transport,
		limiter:     rate.NewLimiter(limit, burst),
		concurrency: cfg.Concurrency,
		sendTimeout: cfg.SendTimeout,
		logger:      logger.With("component", "dispatcher"),
	}
}

// Dispatch delivers n to every destination. A failing destination never
// affects the others; failures are logged and counted, not returned.
func (d *Dispatcher) Dispatch(ctx context.Context, n domain.Notice, sourceName string, dests []domain.Destination) Report {
	var delivered, skipped, failed atomic.Int32

	var g errgroup.Group
	g.SetLimit(d.concurrency)

	for _, dest := range dests {
		g.Go(func() error {
			switch err := d.sendOne(ctx, n, sourceName, dest); {
			case err == nil:
				delivered.Add(1)
			case errors.Is(err, errCannotPost):
				skipped.Add(1)
			default:
				failed.Add(1)
				d.logger.Warn("delivery failed",
					"source", n.SourceID,
					"destination", dest.ID,
					"kind", dest.Kind,
					"error", err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	return Report{
		Delivered: int(delivered.Load()),
		Skipped:   int(skipped.Load()),
		Failed:    int(failed.Load()),
	}
}

var errCannotPost = errors.New("missing permission to post")

func (d *Dispatcher) sendOne(ctx context.Context, n domain.Notice, sourceName string, dest domain.Destination) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &domain.DeliveryError{DestinationID: dest.ID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if err := d.limiter.Wait(ctx); err != nil {
		return &domain.DeliveryError{DestinationID: dest.ID, Err: err}
	}

	target, err := d.transport.Resolve(ctx, dest)
	if err != nil {
		return &domain.ResolutionError{DestinationID: dest.ID, Err: err}
	}
	if !target.CanPost {
		d.logger.Info("skipping destination without post permission",
			"destination", dest.ID,
			"kind", dest.Kind,
		)
		return errCannotPost
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	if err := d.transport.Send(sendCtx, target, n, sourceName); err != nil {
		return &domain.DeliveryError{DestinationID: dest.ID, Err: err}
	}
	return nil
}
