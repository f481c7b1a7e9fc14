package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"

	"notice_relay/internal/domain"
)

// storeSuite holds the store tests shared by the SQLite and PostgreSQL
// suites.
type storeSuite struct {
	suite.Suite
	ctx context.Context
	db  *sqlx.DB
}

func (s *storeSuite) cleanup() {
	for _, table := range []string{"subscriptions", "group_channels", "direct_messages", "notices"} {
		_, err := s.db.ExecContext(s.ctx, "DELETE FROM "+table)
		s.Require().NoError(err)
	}
}

func (s *storeSuite) notice(key string, at time.Time) domain.Notice {
	return domain.Notice{
		Title:     "notice " + key,
		Link:      "https://univ.ac.kr/view?articleNo=" + key,
		Published: at,
		SourceID:  "univ",
	}
}

func (s *storeSuite) TestHistory_AppendIsIdempotent() {
	store := NewHistoryStore(s.db)
	n := s.notice("1", time.Now())

	inserted, err := store.Append(s.ctx, n)
	s.Require().NoError(err)
	s.True(inserted)

	n.Title = "changed"
	inserted, err = store.Append(s.ctx, n)
	s.Require().NoError(err)
	s.False(inserted)

	var count int
	s.Require().NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM notices"))
	s.Equal(1, count)
}

func (s *storeSuite) TestHistory_Exists() {
	store := NewHistoryStore(s.db)
	_, err := store.Append(s.ctx, s.notice("7", time.Now()))
	s.Require().NoError(err)

	ok, err := store.Exists(s.ctx, "univ", "7")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = store.Exists(s.ctx, "other", "7")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *storeSuite) TestHistory_QueryRecentOrder() {
	store := NewHistoryStore(s.db)
	base := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

	for _, n := range []domain.Notice{
		s.notice("old", base),
		s.notice("new", base.Add(2*time.Hour)),
		s.notice("tie-first", base.Add(time.Hour)),
		s.notice("tie-second", base.Add(time.Hour)),
	} {
		_, err := store.Append(s.ctx, n)
		s.Require().NoError(err)
	}
	other := s.notice("x", base.Add(5*time.Hour))
	other.SourceID = "dept"
	_, err := store.Append(s.ctx, other)
	s.Require().NoError(err)

	recent, err := store.QueryRecent(s.ctx, "univ", 3)
	s.Require().NoError(err)
	s.Require().Len(recent, 3)
	s.Equal("new", recent[0].Key())
	s.Equal("tie-second", recent[1].Key())
	s.Equal("tie-first", recent[2].Key())
	s.True(base.Add(2 * time.Hour).Equal(recent[0].Published))
	s.Equal("univ", recent[0].SourceID)
}

func (s *storeSuite) TestDestinations_SubscribeUnsubscribe() {
	tm := NewTransactionManager(s.db)
	store := NewDestinationStore(s.db, tm)
	channel := domain.Destination{ID: "-100123", Kind: domain.KindGroupChannel, DisplayName: "notices", OwningGroup: "CS dept"}
	user := domain.Destination{ID: "42", Kind: domain.KindDirectMessage, DisplayName: "kim"}

	added, err := store.Subscribe(s.ctx, channel, "univ")
	s.Require().NoError(err)
	s.True(added)

	added, err = store.Subscribe(s.ctx, channel, "univ")
	s.Require().NoError(err)
	s.False(added)

	_, err = store.Subscribe(s.ctx, channel, "dept")
	s.Require().NoError(err)
	_, err = store.Subscribe(s.ctx, user, "univ")
	s.Require().NoError(err)

	subs, err := store.SubscribersOf(s.ctx, "univ")
	s.Require().NoError(err)
	s.Require().Len(subs, 2)
	s.Equal(domain.KindDirectMessage, subs[0].Kind)
	s.Equal("kim", subs[0].DisplayName)
	s.Equal("-100123", subs[1].ID)
	s.Equal("CS dept", subs[1].OwningGroup)
	s.Equal("notices", subs[1].DisplayName)

	sources, err := store.SubscriptionsOf(s.ctx, domain.KindGroupChannel, "-100123")
	s.Require().NoError(err)
	s.Equal([]string{"dept", "univ"}, sources)

	removed, err := store.Unsubscribe(s.ctx, domain.KindGroupChannel, "-100123", "univ")
	s.Require().NoError(err)
	s.True(removed)

	removed, err = store.Unsubscribe(s.ctx, domain.KindGroupChannel, "-100123", "univ")
	s.Require().NoError(err)
	s.False(removed)

	sources, err = store.SubscriptionsOf(s.ctx, domain.KindGroupChannel, "-100123")
	s.Require().NoError(err)
	s.Equal([]string{"dept"}, sources)

	var channels int
	s.Require().NoError(s.db.GetContext(s.ctx, &channels, "SELECT COUNT(*) FROM group_channels"))
	s.Equal(1, channels)
}

func (s *storeSuite) TestDestinations_EmptyNameKeepsExisting() {
	store := NewDestinationStore(s.db, NewTransactionManager(s.db))
	_, err := store.Subscribe(s.ctx, domain.Destination{ID: "42", Kind: domain.KindDirectMessage, DisplayName: "kim"}, "univ")
	s.Require().NoError(err)
	_, err = store.Subscribe(s.ctx, domain.Destination{ID: "42", Kind: domain.KindDirectMessage}, "dept")
	s.Require().NoError(err)

	subs, err := store.SubscribersOf(s.ctx, "dept")
	s.Require().NoError(err)
	s.Require().Len(subs, 1)
	s.Equal("kim", subs[0].DisplayName)
}

func (s *storeSuite) TestDestinations_InvalidKind() {
	store := NewDestinationStore(s.db, NewTransactionManager(s.db))
	_, err := store.Subscribe(s.ctx, domain.Destination{ID: "1", Kind: "carrier_pigeon"}, "univ")
	s.True(errors.Is(err, domain.ErrInvalidKind))
}

func (s *storeSuite) TestTransaction_Rollback() {
	tm := NewTransactionManager(s.db)
	history := NewHistoryStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if _, err := history.Append(ctx, s.notice("rolled", time.Now())); err != nil {
			return err
		}
		return errors.New("abort")
	})
	s.Error(err)

	ok, err := history.Exists(s.ctx, "univ", "rolled")
	s.Require().NoError(err)
	s.False(ok)
}

type SQLiteStoreSuite struct {
	storeSuite
}

func (s *SQLiteStoreSuite) SetupSuite() {
	s.ctx = context.Background()

	db, err := Open(DriverSQLite, filepath.Join(s.T().TempDir(), "relay.db"))
	s.Require().NoError(err)
	s.db = db

	version, dirty, err := Migrate(db)
	s.Require().NoError(err)
	s.False(dirty)
	s.Equal(uint(1), version)
}

func (s *SQLiteStoreSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *SQLiteStoreSuite) SetupTest() {
	s.cleanup()
}

func TestSQLiteStoreSuite(t *testing.T) {
	suite.Run(t, new(SQLiteStoreSuite))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "x")
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
