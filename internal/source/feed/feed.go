// Package feed reads RSS, Atom and JSON feed sources.
package feed

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"notice_relay/internal/domain"
	"notice_relay/internal/source"
)

type Config struct {
	SourceID string
	URL      string
	Location *time.Location
}

type Adapter struct {
	client *source.Client
	parser *gofeed.Parser
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

func New(cfg Config, client *source.Client, logger *slog.Logger) *Adapter {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Adapter{
		client: client,
		parser: gofeed.NewParser(),
		cfg:    cfg,
		now:    time.Now,
		logger: logger.With("source", cfg.SourceID),
	}
}

func (a *Adapter) Fetch(ctx context.Context) ([]source.RawItem, error) {
	body, err := a.client.Get(ctx, a.cfg.URL)
	if err != nil {
		return nil, &domain.FetchError{SourceID: a.cfg.SourceID, Err: err}
	}

	parsed, err := a.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &domain.FetchError{SourceID: a.cfg.SourceID, Err: fmt.Errorf("parse feed: %w", err)}
	}

	items := make([]source.RawItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if it == nil {
			continue
		}
		link := strings.TrimSpace(it.Link)
		if link == "" {
			link = strings.TrimSpace(it.GUID)
		}

		raw := source.RawItem{
			Title: it.Title,
			Link:  link,
			Date:  it.Published,
		}
		switch {
		case it.PublishedParsed != nil:
			raw.Published = it.PublishedParsed
		case it.UpdatedParsed != nil:
			raw.Published = it.UpdatedParsed
		case raw.Date == "":
			raw.Date = it.Updated
		}
		items = append(items, raw)
	}

	return items, nil
}

func (a *Adapter) Normalize(item source.RawItem) (domain.Notice, bool) {
	title := strings.Join(strings.Fields(item.Title), " ")
	if title == "" && item.Link == "" {
		return domain.Notice{}, false
	}
	if title == "" {
		title = item.Link
	}

	var published time.Time
	switch {
	case item.Published != nil:
		published = item.Published.In(a.cfg.Location)
	default:
		t, ok := source.ParseDate(item.Date, a.cfg.Location)
		if !ok {
			a.logger.Warn("unparseable date, using current time", "title", title, "date", item.Date)
			t = a.now().In(a.cfg.Location)
		}
		published = t
	}

	return domain.Notice{
		Title:     title,
		Link:      item.Link,
		Published: published,
		SourceID:  a.cfg.SourceID,
	}, true
}
