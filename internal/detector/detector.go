// Package detector decides which fetched notices are new.
package detector

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"notice_relay/internal/domain"
)

const DefaultSnapshotWindow = 20

// History is the read side of the notice history used for detection.
type History interface {
	QueryRecent(ctx context.Context, sourceID string, limit int) ([]domain.Notice, error)
	Exists(ctx context.Context, sourceID, key string) (bool, error)
}

// Result of one detection.
type Result struct {
	// New holds notices to persist and deliver, oldest first.
	New []domain.Notice
	// Baseline holds notices to persist without delivery, oldest first.
	Baseline []domain.Notice
	// Next is the cursor value to commit once New has been handled.
	Next string
}

type Config struct {
	SnapshotWindow int
	Location       *time.Location
}

type Detector struct {
	history History
	window  int
	loc     *time.Location
	now     func() time.Time
}

func New(history History, cfg Config) *Detector {
	if cfg.SnapshotWindow <= 0 {
		cfg.SnapshotWindow = DefaultSnapshotWindow
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Detector{
		history: history,
		window:  cfg.SnapshotWindow,
		loc:     cfg.Location,
		now:     time.Now,
	}
}

// Detect computes the new notices among candidates. It never changes
// cursor; the caller commits Result.Next.
func (d *Detector) Detect(ctx context.Context, sourceID string, policy domain.Policy, candidates []domain.Notice, cursor string) (Result, error) {
	sorted := newestFirst(candidates)

	switch policy {
	case domain.PolicySnapshot:
		return d.snapshot(ctx, sourceID, sorted, cursor)
	case domain.PolicyCursor, "":
		return d.cursor(ctx, sourceID, sorted, cursor)
	default:
		return Result{}, fmt.Errorf("detect %s: unknown policy %q", sourceID, policy)
	}
}

func (d *Detector) cursor(ctx context.Context, sourceID string, sorted []domain.Notice, cursor string) (Result, error) {
	if cursor == "" {
		recent, err := d.history.QueryRecent(ctx, sourceID, 1)
		if err != nil {
			return Result{}, storageErr("query recent", err)
		}
		if len(recent) == 0 {
			res := Result{Baseline: reversed(sorted)}
			if len(sorted) > 0 {
				res.Next = sorted[0].Key()
			}
			return res, nil
		}
		cursor = recent[0].Key()
	}

	var fresh []domain.Notice
	for _, n := range sorted {
		key := n.Key()
		if key == cursor {
			break
		}
		exists, err := d.history.Exists(ctx, sourceID, key)
		if err != nil {
			return Result{}, storageErr("exists", err)
		}
		if !exists {
			fresh = append(fresh, n)
		}
	}

	res := Result{New: reversed(fresh), Next: cursor}
	if len(sorted) > 0 {
		res.Next = sorted[0].Key()
	}
	return res, nil
}

func (d *Detector) snapshot(ctx context.Context, sourceID string, sorted []domain.Notice, cursor string) (Result, error) {
	recent, err := d.history.QueryRecent(ctx, sourceID, d.window)
	if err != nil {
		return Result{}, storageErr("query recent", err)
	}
	if len(recent) == 0 {
		res := Result{Baseline: reversed(sorted), Next: cursor}
		if len(sorted) > 0 {
			res.Next = sorted[0].Key()
		}
		return res, nil
	}
	known := make(map[string]struct{}, len(recent))
	for _, n := range recent {
		known[n.Key()] = struct{}{}
	}

	y, m, day := d.now().In(d.loc).Date()
	var fresh []domain.Notice
	for _, n := range sorted {
		py, pm, pd := n.Published.In(d.loc).Date()
		if py != y || pm != m || pd != day {
			continue
		}
		if _, ok := known[n.Key()]; ok {
			continue
		}
		fresh = append(fresh, n)
	}

	res := Result{New: reversed(fresh), Next: cursor}
	if len(sorted) > 0 {
		res.Next = sorted[0].Key()
	}
	return res, nil
}

// newestFirst drops repeated keys, keeping the first occurrence, and
// stable-sorts by publication time descending.
func newestFirst(candidates []domain.Notice) []domain.Notice {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]domain.Notice, 0, len(candidates))
	for _, n := range candidates {
		key := n.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Published.After(out[j].Published)
	})
	return out
}

func reversed(in []domain.Notice) []domain.Notice {
	out := slices.Clone(in)
	slices.Reverse(out)
	return out
}

func storageErr(op string, err error) error {
	if domain.IsStorageError(err) {
		return err
	}
	return &domain.StorageError{Op: op, Err: err}
}
