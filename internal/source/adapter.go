package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"notice_relay/internal/domain"
)

// RawItem is a posting as scraped, before normalization.
type RawItem struct {
	Title     string
	Link      string
	Date      string
	Published *time.Time
}

// Adapter turns one remote bulletin source into canonical notices.
type Adapter interface {
	// Fetch returns the raw items currently listed by the source, newest
	// first where the source orders them so. Transport failures are
	// returned as *domain.FetchError.
	Fetch(ctx context.Context) ([]RawItem, error)
	// Normalize converts one item. It reports false for malformed items.
	Normalize(item RawItem) (domain.Notice, bool)
}

// Collect fetches and normalizes all items of sourceID. Malformed items are
// logged and skipped; their count is returned.
func Collect(ctx context.Context, sourceID string, a Adapter, logger *slog.Logger) ([]domain.Notice, int, error) {
	items, err := a.Fetch(ctx)
	if err != nil {
		return nil, 0, err
	}

	notices := make([]domain.Notice, 0, len(items))
	malformed := 0
	for i, item := range items {
		n, ok := safeNormalize(a, item)
		if !ok {
			malformed++
			perr := &domain.ParseError{
				SourceID: sourceID,
				Reason:   fmt.Sprintf("item %d (title %q, link %q) rejected", i, item.Title, item.Link),
			}
			logger.Warn("skipping malformed item", "source", sourceID, "error", perr)
			continue
		}
		n.SourceID = sourceID
		notices = append(notices, n)
	}

	return notices, malformed, nil
}

func safeNormalize(a Adapter, item RawItem) (n domain.Notice, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return a.Normalize(item)
}
