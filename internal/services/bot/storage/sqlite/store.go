// Package sqlite provides a SQLite-backed bit bot storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/GTBitsOfGood/bit-bot/internal/platform/storage/sqlitemigrate"
	"github.com/GTBitsOfGood/bit-bot/internal/services/bot/storage"
	"github.com/GTBitsOfGood/bit-bot/internal/services/bot/storage/sqlite/migrations"
	"github.com/GTBitsOfGood/bit-bot/internal/services/bot/user"
	_ "modernc.org/sqlite"
)

// Store persists bit bot state in SQLite.
//
// A single file backs the ledger, history, and dedup tables so every
// command sees one transaction and visibility boundary.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens a SQLite bot store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// GetUser returns one user record by id.
func (s *Store) GetUser(ctx context.Context, userID string) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}
	if s == nil || s.sqlDB == nil {
		return user.User{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return user.User{}, user.ErrEmptyID
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT user_id, bits, team, role FROM users WHERE user_id = ?`,
		userID,
	)
	var record user.User
	var role string
	if err := row.Scan(&record.ID, &record.Bits, &record.Team, &role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, storage.ErrNotFound
		}
		return user.User{}, fmt.Errorf("get user: %w", err)
	}
	parsedRole, err := user.ParseRole(role)
	if err != nil {
		return user.User{}, fmt.Errorf("get user %s: %w", userID, err)
	}
	record.Role = parsedRole
	return record, nil
}

// GetBits returns the current balance, zero for unknown users.
func (s *Store) GetBits(ctx context.Context, userID string) (int64, error) {
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

	var bits int64
	row := s.sqlDB.QueryRowContext(ctx, `SELECT bits FROM users WHERE user_id = ?`, userID)
	if err := row.Scan(&bits); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get bits: %w", err)
	}
	return bits, nil
}

// CreditBits adds amount to the user's balance as one atomic upsert-increment.
func (s *Store) CreditBits(ctx context.Context, userID string, amount int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return user.ErrEmptyID
	}
	if amount <= 0 {
		return storage.ErrInvalidAmount
	}

	now := toMillis(time.Now())
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO users (user_id, bits, team, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   bits = bits + excluded.bits,
		   updated_at = excluded.updated_at`,
		userID,
		amount,
		user.DefaultTeam,
		string(user.RoleUser),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("credit bits: %w", err)
	}
	return nil
}

// DebitBits subtracts amount from the user's balance.
//
// The balance check and the decrement are a single conditional UPDATE so a
// concurrent credit or debit cannot interleave between check and write.
func (s *Store) DebitBits(ctx context.Context, userID string, amount int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return user.ErrEmptyID
	}
	if amount <= 0 {
		return storage.ErrInvalidAmount
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE users SET bits = bits - ?, updated_at = ?
		 WHERE user_id = ? AND bits >= ?`,
		amount,
		toMillis(time.Now()),
		userID,
		amount,
	)
	if err != nil {
		return fmt.Errorf("debit bits: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit bits affected rows: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// The conditional write matched nothing: distinguish a missing record
	// from an insufficient balance for the caller's error message.
	var existing int
	row := s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM users WHERE user_id = ?`, userID)
	if err := row.Scan(&existing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrUnknownUser
		}
		return fmt.Errorf("debit bits lookup: %w", err)
	}
	return storage.ErrInsufficientBalance
}

// SetTeam upserts the user's team.
func (s *Store) SetTeam(ctx context.Context, userID, team string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return user.ErrEmptyID
	}
	team = strings.TrimSpace(team)
	if team == "" {
		return fmt.Errorf("team is required")
	}

	now := toMillis(time.Now())
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO users (user_id, bits, team, role, created_at, updated_at)
		 VALUES (?, 0, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   team = excluded.team,
		   updated_at = excluded.updated_at`,
		userID,
		team,
		string(user.RoleUser),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("set team: %w", err)
	}
	return nil
}

// SetRole upserts the user's role.
func (s *Store) SetRole(ctx context.Context, userID string, role user.Role) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return user.ErrEmptyID
	}
	parsedRole, err := user.ParseRole(string(role))
	if err != nil {
		return err
	}

	now := toMillis(time.Now())
	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO users (user_id, bits, team, role, created_at, updated_at)
		 VALUES (?, 0, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   role = excluded.role,
		   updated_at = excluded.updated_at`,
		userID,
		user.DefaultTeam,
		string(parsedRole),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return nil
}

// IsAdmin reports whether a record exists for userID with the admin role.
// A non-existent user is never admin.
func (s *Store) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, user.ErrEmptyID
	}

	var role string
	row := s.sqlDB.QueryRowContext(ctx, `SELECT role FROM users WHERE user_id = ?`, userID)
	if err := row.Scan(&role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("is admin: %w", err)
	}
	return user.Role(role) == user.RoleAdmin, nil
}

// ResetAllBits zeroes every balance.
func (s *Store) ResetAllBits(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE users SET bits = 0, updated_at = ?`,
		toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("reset all bits: %w", err)
	}
	return nil
}

// ResetAllTeams resets every user to the default team.
func (s *Store) ResetAllTeams(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE users SET team = ?, updated_at = ?`,
		user.DefaultTeam,
		toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("reset all teams: %w", err)
	}
	return nil
}

// TopUsers returns up to limit users ordered by bits descending.
func (s *Store) TopUsers(ctx context.Context, limit int) ([]storage.RankedUser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT user_id, bits FROM users
		 ORDER BY bits DESC, user_id ASC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top users: %w", err)
	}
	defer rows.Close()

	return scanRankedUsers(rows)
}

// TeamTotals returns per-team bit sums ordered by total descending.
func (s *Store) TeamTotals(ctx context.Context) ([]storage.TeamTotal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT team, SUM(bits) AS total FROM users
		 GROUP BY team
		 ORDER BY total DESC, team ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("team totals: %w", err)
	}
	defer rows.Close()

	return scanTeamTotals(rows)
}

func scanRankedUsers(rows *sql.Rows) ([]storage.RankedUser, error) {
	var ranked []storage.RankedUser
	for rows.Next() {
		var entry storage.RankedUser
		if err := rows.Scan(&entry.UserID, &entry.Bits); err != nil {
			return nil, fmt.Errorf("scan ranked user: %w", err)
		}
		ranked = append(ranked, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ranked users: %w", err)
	}
	return ranked, nil
}

func scanTeamTotals(rows *sql.Rows) ([]storage.TeamTotal, error) {
	var totals []storage.TeamTotal
	for rows.Next() {
		var entry storage.TeamTotal
		if err := rows.Scan(&entry.Team, &entry.Bits); err != nil {
			return nil, fmt.Errorf("scan team total: %w", err)
		}
		totals = append(totals, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate team totals: %w", err)
	}
	return totals, nil
}

var _ storage.Store = (*Store)(nil)
