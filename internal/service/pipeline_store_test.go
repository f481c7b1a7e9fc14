package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"

	"notice_relay/internal/delivery"
	"notice_relay/internal/detector"
	"notice_relay/internal/domain"
	"notice_relay/internal/registry"
	"notice_relay/internal/source"
	"notice_relay/internal/storage/sqlstore"
)

// pageAdapter serves whatever page is currently set.
type pageAdapter struct {
	mu   sync.Mutex
	page []source.RawItem
}

func (a *pageAdapter) set(items ...source.RawItem) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.page = items
}

func (a *pageAdapter) Fetch(context.Context) ([]source.RawItem, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]source.RawItem(nil), a.page...), nil
}

func (a *pageAdapter) Normalize(item source.RawItem) (domain.Notice, bool) {
	if item.Title == "" || item.Published == nil {
		return domain.Notice{}, false
	}
	return domain.Notice{Title: item.Title, Link: item.Link, Published: *item.Published}, true
}

type sentMessage struct {
	key  string
	dest string
}

// recordingDispatcher records every (notice, destination) pair it is asked to deliver.
type recordingDispatcher struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (d *recordingDispatcher) Dispatch(_ context.Context, n domain.Notice, _ string, dests []domain.Destination) delivery.Report {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, dest := range dests {
		d.sent = append(d.sent, sentMessage{key: n.Key(), dest: dest.ID})
	}
	return delivery.Report{Delivered: len(dests)}
}

func (d *recordingDispatcher) keys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.sent))
	for _, m := range d.sent {
		out = append(out, m.key+"@"+m.dest)
	}
	return out
}

type PipelineStoreTestSuite struct {
	suite.Suite
	ctx context.Context
	db  *sqlx.DB

	adapter    *pageAdapter
	dispatcher *recordingDispatcher
	pipeline   *Pipeline
	src        registry.Source
	base       time.Time
}

func (s *PipelineStoreTestSuite) SetupTest() {
	s.ctx = context.Background()

	db, err := sqlstore.Open(sqlstore.DriverSQLite, filepath.Join(s.T().TempDir(), "relay.db"))
	s.Require().NoError(err)
	s.db = db
	_, _, err = sqlstore.Migrate(db)
	s.Require().NoError(err)

	tm := sqlstore.NewTransactionManager(db)
	history := sqlstore.NewHistoryStore(db)
	destinations := sqlstore.NewDestinationStore(db, tm)

	for _, id := range []string{"-1001", "-1002"} {
		_, err := destinations.Subscribe(s.ctx, domain.Destination{
			ID:          id,
			Kind:        domain.KindGroupChannel,
			DisplayName: "notices",
			OwningGroup: "campus",
		}, "univ")
		s.Require().NoError(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.adapter = &pageAdapter{}
	s.dispatcher = &recordingDispatcher{}
	det := detector.New(history, detector.Config{Location: time.UTC})
	s.pipeline = NewPipeline(det, history, destinations, tm, s.dispatcher, logger)
	s.src = registry.Source{
		ID:          "univ",
		DisplayName: "University",
		Policy:      domain.PolicyCursor,
		Adapter:     s.adapter,
	}
	s.base = time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
}

func (s *PipelineStoreTestSuite) TearDownTest() {
	if s.db != nil {
		s.db.Close()
	}
}

func TestPipelineStoreTestSuite(t *testing.T) {
	suite.Run(t, new(PipelineStoreTestSuite))
}

func (s *PipelineStoreTestSuite) item(id string, hour int) source.RawItem {
	published := s.base.Add(time.Duration(hour) * time.Hour)
	return source.RawItem{
		Title:     "notice " + id,
		Link:      "https://univ.ac.kr/view?articleNo=" + id,
		Published: &published,
	}
}

func (s *PipelineStoreTestSuite) run(cursor *detector.Cursor) *domain.CycleStats {
	stats, err := s.pipeline.Run(s.ctx, s.src, cursor, nil)
	s.Require().NoError(err)
	return stats
}

func (s *PipelineStoreTestSuite) TestThreeCycles_NoDuplicateDelivery() {
	cursor := &detector.Cursor{}

	s.adapter.set(s.item("2", 2), s.item("1", 1))
	stats := s.run(cursor)
	s.Equal(2, stats.Baseline)
	s.Equal(2, stats.Persisted)
	s.Empty(s.dispatcher.keys())
	s.Equal("2", cursor.Get())

	s.adapter.set(s.item("4", 4), s.item("3", 3), s.item("2", 2), s.item("1", 1))
	stats = s.run(cursor)
	s.Equal(2, stats.New)
	s.Equal(4, stats.Delivered)
	s.Equal([]string{"3@-1001", "3@-1002", "4@-1001", "4@-1002"}, sortedPairs(s.dispatcher.keys()))
	s.Equal("4", cursor.Get())

	stats = s.run(cursor)
	s.Equal(0, stats.New)
	s.Equal(0, stats.Persisted)
	s.Len(s.dispatcher.keys(), 4)
}

func (s *PipelineStoreTestSuite) TestRestart_SameFetchDeliversNothing() {
	s.adapter.set(s.item("1", 1))
	s.run(&detector.Cursor{})

	s.adapter.set(s.item("2", 2), s.item("1", 1))
	s.run(&detector.Cursor{})
	s.Equal([]string{"2@-1001", "2@-1002"}, sortedPairs(s.dispatcher.keys()))

	// A fresh cursor is seeded from history, as after a restart.
	stats := s.run(&detector.Cursor{})
	s.Equal(0, stats.New)
	s.Equal(0, stats.Baseline)
	s.Len(s.dispatcher.keys(), 2)

	var count int
	s.Require().NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM notices"))
	s.Equal(2, count)
}

func sortedPairs(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
