package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/GTBitsOfGood/bit-bot/internal/platform/errors"
	"github.com/GTBitsOfGood/bit-bot/internal/services/bot/storage"
	"github.com/GTBitsOfGood/bit-bot/internal/services/bot/user"
)

var errTagRequired = apperrors.New(apperrors.CodeTagRequired, "history tag is required")

// SnapshotBits copies every current user record into history rows for tag.
//
// The copy is one INSERT ... SELECT statement, so the snapshot is a
// consistent cut of the ledger. The store does not enforce tag uniqueness;
// re-snapshotting a tag accumulates rows.
func (s *Store) SnapshotBits(ctx context.Context, tag string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return errTagRequired
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO bit_history (tag, user_id, bits, team, recorded_at)
		 SELECT ?, user_id, bits, team, ? FROM users`,
		tag,
		toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("snapshot bits: %w", err)
	}
	return nil
}

// GetHistoryBits returns the snapshotted balance for userID under tag,
// zero when no matching entry exists.
func (s *Store) GetHistoryBits(ctx context.Context, userID, tag string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, user.ErrEmptyID
	}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return 0, errTagRequired
	}

	var bits int64
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT bits FROM bit_history
		 WHERE user_id = ? AND tag = ?
		 ORDER BY rowid ASC
		 LIMIT 1`,
		userID,
		tag,
	)
	if err := row.Scan(&bits); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get history bits: %w", err)
	}
	return bits, nil
}

// TopHistoryUsers ranks snapshot rows for tag by bits descending.
func (s *Store) TopHistoryUsers(ctx context.Context, tag string, limit int) ([]storage.RankedUser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, errTagRequired
	}
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT user_id, bits FROM bit_history
		 WHERE tag = ?
		 ORDER BY bits DESC, user_id ASC
		 LIMIT ?`,
		tag,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top history users: %w", err)
	}
	defer rows.Close()

	return scanRankedUsers(rows)
}

// HistoryTeamTotals sums snapshot rows for tag per team.
func (s *Store) HistoryTeamTotals(ctx context.Context, tag string) ([]storage.TeamTotal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, errTagRequired
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT team, SUM(bits) AS total FROM bit_history
		 WHERE tag = ?
		 GROUP BY team
		 ORDER BY total DESC, team ASC`,
		tag,
	)
	if err != nil {
		return nil, fmt.Errorf("history team totals: %w", err)
	}
	defer rows.Close()

	return scanTeamTotals(rows)
}

// DeleteHistory removes every history row for tag. Unknown tags are a no-op.
func (s *Store) DeleteHistory(ctx context.Context, tag string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return errTagRequired
	}

	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM bit_history WHERE tag = ?`, tag); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}

// MarkEventProcessed records eventID, reporting whether this call was first.
func (s *Store) MarkEventProcessed(ctx context.Context, eventID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return false, fmt.Errorf("event id is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO processed_events (event_id, seen_at) VALUES (?, ?)`,
		eventID,
		toMillis(time.Now()),
	)
	if err != nil {
		return false, fmt.Errorf("mark event processed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark event processed affected rows: %w", err)
	}
	return affected > 0, nil
}
