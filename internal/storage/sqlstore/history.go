package sqlstore

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"notice_relay/internal/domain"
)

type noticeRow struct {
	SourceID  string    `db:"source_id"`
	Title     string    `db:"title"`
	Link      string    `db:"link"`
	Published time.Time `db:"published"`
}

type HistoryStore struct {
	db *sqlx.DB
}

func NewHistoryStore(db *sqlx.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// QueryRecent returns up to limit notices of sourceID, newest first.
func (s *HistoryStore) QueryRecent(ctx context.Context, sourceID string, limit int) ([]domain.Notice, error) {
	exec := GetExecutor(ctx, s.db)
	query := exec.Rebind(`
		SELECT source_id, title, link, published
		FROM notices
		WHERE source_id = ?
		ORDER BY published DESC, id DESC
		LIMIT ?`)

	var rows []noticeRow
	if err := sqlx.SelectContext(ctx, exec, &rows, query, sourceID, limit); err != nil {
		return nil, &domain.StorageError{Op: "query recent", Err: err}
	}

	notices := make([]domain.Notice, 0, len(rows))
	for _, r := range rows {
		notices = append(notices, domain.Notice{
			Title:     r.Title,
			Link:      r.Link,
			Published: r.Published,
			SourceID:  r.SourceID,
		})
	}
	return notices, nil
}

func (s *HistoryStore) Exists(ctx context.Context, sourceID, key string) (bool, error) {
	exec := GetExecutor(ctx, s.db)
	query := exec.Rebind(`SELECT COUNT(1) FROM notices WHERE source_id = ? AND dedup_key = ?`)

	var n int
	if err := sqlx.GetContext(ctx, exec, &n, query, sourceID, key); err != nil {
		return false, &domain.StorageError{Op: "exists", Err: err}
	}
	return n > 0, nil
}

// Append stores n unless a notice with the same dedup key is already
// recorded for its source. It reports whether a row was inserted.
func (s *HistoryStore) Append(ctx context.Context, n domain.Notice) (bool, error) {
	exec := GetExecutor(ctx, s.db)
	query := exec.Rebind(`
		INSERT INTO notices (source_id, dedup_key, title, link, published)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (source_id, dedup_key) DO NOTHING`)

	res, err := exec.ExecContext(ctx, query, n.SourceID, n.Key(), n.Title, n.Link, n.Published.UTC())
	if err != nil {
		return false, &domain.StorageError{Op: "append", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, &domain.StorageError{Op: "append", Err: err}
	}
	return affected == 1, nil
}
