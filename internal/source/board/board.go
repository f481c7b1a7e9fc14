// Package board scrapes HTML bulletin boards using CSS selectors from the
// source catalog.
package board

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"notice_relay/internal/domain"
	"notice_relay/internal/source"
)

// Selectors locate the parts of one listing row.
type Selectors struct {
	Item     string `yaml:"item" json:"item"`
	Title    string `yaml:"title" json:"title"`
	Link     string `yaml:"link" json:"link"`
	Date     string `yaml:"date" json:"date"`
	LinkAttr string `yaml:"link_attr" json:"link_attr"`
}

type Config struct {
	SourceID  string
	URL       string
	Base      string
	Selectors Selectors
	Location  *time.Location
}

type Adapter struct {
	client *source.Client
	cfg    Config
	base   *url.URL
	now    func() time.Time
	logger *slog.Logger
}

func New(cfg Config, client *source.Client, logger *slog.Logger) (*Adapter, error) {
	if cfg.Selectors.Item == "" {
		return nil, fmt.Errorf("board %s: item selector is required", cfg.SourceID)
	}
	if cfg.Selectors.LinkAttr == "" {
		cfg.Selectors.LinkAttr = "href"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	rawBase := cfg.Base
	if rawBase == "" {
		rawBase = cfg.URL
	}
	base, err := url.Parse(rawBase)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	return &Adapter{
		client: client,
		cfg:    cfg,
		base:   base,
		now:    time.Now,
		logger: logger.With("source", cfg.SourceID),
	}, nil
}

func (a *Adapter) Fetch(ctx context.Context) ([]source.RawItem, error) {
	body, err := a.client.Get(ctx, a.cfg.URL)
	if err != nil {
		return nil, &domain.FetchError{SourceID: a.cfg.SourceID, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &domain.FetchError{SourceID: a.cfg.SourceID, Err: fmt.Errorf("parse html: %w", err)}
	}

	sel := a.cfg.Selectors
	var items []source.RawItem
	doc.Find(sel.Item).Each(func(_ int, row *goquery.Selection) {
		titleSel := pick(row, sel.Title)
		linkSel := pick(row, sel.Link)
		if sel.Link == "" {
			linkSel = titleSel
			if _, ok := linkSel.Attr(sel.LinkAttr); !ok {
				linkSel = row.Find("a").First()
			}
		}
		link, _ := linkSel.Attr(sel.LinkAttr)

		item := source.RawItem{
			Title: collapse(titleSel.Text()),
			Link:  strings.TrimSpace(link),
		}
		if sel.Date != "" {
			item.Date = collapse(row.Find(sel.Date).First().Text())
		}
		items = append(items, item)
	})

	return items, nil
}

func (a *Adapter) Normalize(item source.RawItem) (domain.Notice, bool) {
	title := collapse(item.Title)
	if title == "" {
		return domain.Notice{}, false
	}

	published, ok := a.published(item)
	if !ok {
		a.logger.Warn("unparseable date, using current time", "title", title, "date", item.Date)
		published = a.now().In(a.cfg.Location)
	}

	return domain.Notice{
		Title:     title,
		Link:      a.resolve(item.Link),
		Published: published,
		SourceID:  a.cfg.SourceID,
	}, true
}

func (a *Adapter) published(item source.RawItem) (time.Time, bool) {
	if item.Published != nil {
		return *item.Published, true
	}
	return source.ParseDate(item.Date, a.cfg.Location)
}

// resolve makes relative hrefs absolute. Unusable hrefs are returned as is
// so the dedup key falls back to the title.
func (a *Adapter) resolve(href string) string {
	if href == "" || href == "#" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return a.base.ResolveReference(ref).String()
}

func pick(row *goquery.Selection, selector string) *goquery.Selection {
	if selector == "" {
		return row
	}
	return row.Find(selector).First()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
