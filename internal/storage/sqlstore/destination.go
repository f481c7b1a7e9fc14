package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"notice_relay/internal/domain"
)

type destinationRow struct {
	Kind        string `db:"destination_kind"`
	ID          string `db:"destination_id"`
	OwningGroup string `db:"owning_group"`
	DisplayName string `db:"display_name"`
}

type DestinationStore struct {
	db *sqlx.DB
	tm *TransactionManager
}

func NewDestinationStore(db *sqlx.DB, tm *TransactionManager) *DestinationStore {
	return &DestinationStore{db: db, tm: tm}
}

func (s *DestinationStore) SubscribersOf(ctx context.Context, sourceID string) ([]domain.Destination, error) {
	exec := GetExecutor(ctx, s.db)
	query := exec.Rebind(`
		SELECT
			s.destination_kind,
			s.destination_id,
			COALESCE(g.guild_name, '') AS owning_group,
			COALESCE(g.channel_name, d.user_name, '') AS display_name
		FROM subscriptions s
		LEFT JOIN group_channels g
			ON s.destination_kind = 'group_channel' AND g.channel_id = s.destination_id
		LEFT JOIN direct_messages d
			ON s.destination_kind = 'direct_message' AND d.user_id = s.destination_id
		WHERE s.source_id = ?
		ORDER BY s.destination_kind, s.destination_id`)

	var rows []destinationRow
	if err := sqlx.SelectContext(ctx, exec, &rows, query, sourceID); err != nil {
		return nil, &domain.StorageError{Op: "subscribers of", Err: err}
	}

	out := make([]domain.Destination, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Destination{
			ID:          r.ID,
			Kind:        domain.DestinationKind(r.Kind),
			DisplayName: r.DisplayName,
			OwningGroup: r.OwningGroup,
		})
	}
	return out, nil
}

// Subscribe records the destination and adds sourceID to its
// subscriptions. It reports false when the subscription already existed.
func (s *DestinationStore) Subscribe(ctx context.Context, dest domain.Destination, sourceID string) (bool, error) {
	if !dest.Kind.Valid() {
		return false, fmt.Errorf("subscribe %s: %w", dest.ID, domain.ErrInvalidKind)
	}

	var added bool
	err := s.tm.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.upsertDestination(ctx, dest); err != nil {
			return err
		}

		exec := GetExecutor(ctx, s.db)
		query := exec.Rebind(`
			INSERT INTO subscriptions (destination_kind, destination_id, source_id)
			VALUES (?, ?, ?)
			ON CONFLICT (destination_kind, destination_id, source_id) DO NOTHING`)
		res, err := exec.ExecContext(ctx, query, string(dest.Kind), dest.ID, sourceID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		added = affected == 1
		return nil
	})
	if err != nil {
		return false, &domain.StorageError{Op: "subscribe", Err: err}
	}
	return added, nil
}

func (s *DestinationStore) upsertDestination(ctx context.Context, dest domain.Destination) error {
	exec := GetExecutor(ctx, s.db)

	var query string
	var args []any
	switch dest.Kind {
	case domain.KindGroupChannel:
		query = `
			INSERT INTO group_channels (channel_id, guild_name, channel_name)
			VALUES (?, ?, ?)
			ON CONFLICT (channel_id) DO UPDATE SET
				guild_name = CASE WHEN excluded.guild_name <> '' THEN excluded.guild_name ELSE group_channels.guild_name END,
				channel_name = CASE WHEN excluded.channel_name <> '' THEN excluded.channel_name ELSE group_channels.channel_name END`
		args = []any{dest.ID, dest.OwningGroup, dest.DisplayName}
	case domain.KindDirectMessage:
		query = `
			INSERT INTO direct_messages (user_id, user_name)
			VALUES (?, ?)
			ON CONFLICT (user_id) DO UPDATE SET
				user_name = CASE WHEN excluded.user_name <> '' THEN excluded.user_name ELSE direct_messages.user_name END`
		args = []any{dest.ID, dest.DisplayName}
	}

	_, err := exec.ExecContext(ctx, exec.Rebind(query), args...)
	return err
}

// Unsubscribe removes one subscription. It reports false when there was
// nothing to remove. The destination itself is kept.
func (s *DestinationStore) Unsubscribe(ctx context.Context, kind domain.DestinationKind, id, sourceID string) (bool, error) {
	exec := GetExecutor(ctx, s.db)
	query := exec.Rebind(`
		DELETE FROM subscriptions
		WHERE destination_kind = ? AND destination_id = ? AND source_id = ?`)

	res, err := exec.ExecContext(ctx, query, string(kind), id, sourceID)
	if err != nil {
		return false, &domain.StorageError{Op: "unsubscribe", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, &domain.StorageError{Op: "unsubscribe", Err: err}
	}
	return affected == 1, nil
}

func (s *DestinationStore) SubscriptionsOf(ctx context.Context, kind domain.DestinationKind, id string) ([]string, error) {
	exec := GetExecutor(ctx, s.db)
	query := exec.Rebind(`
		SELECT source_id FROM subscriptions
		WHERE destination_kind = ? AND destination_id = ?
		ORDER BY source_id`)

	sources := []string{}
	if err := sqlx.SelectContext(ctx, exec, &sources, query, string(kind), id); err != nil {
		return nil, &domain.StorageError{Op: "subscriptions of", Err: err}
	}
	return sources, nil
}
