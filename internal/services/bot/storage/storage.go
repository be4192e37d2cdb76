// Package storage defines the persistence interfaces for the bit bot.
package storage

import (
	"context"

	apperrors "github.com/GTBitsOfGood/bit-bot/internal/platform/errors"
	"github.com/GTBitsOfGood/bit-bot/internal/services/bot/user"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")
	// ErrInvalidAmount indicates a non-positive bit amount.
	ErrInvalidAmount = apperrors.New(apperrors.CodeInvalidAmount, "amount must be a positive integer")
	// ErrUnknownUser indicates a debit against a user with no record.
	ErrUnknownUser = apperrors.New(apperrors.CodeUnknownUser, "cannot remove bits from a user that has no bits")
	// ErrInsufficientBalance indicates a debit exceeding the current balance.
	ErrInsufficientBalance = apperrors.New(apperrors.CodeInsufficientBalance, "cannot remove more bits than what the user has")
)

// RankedUser is one leaderboard row.
type RankedUser struct {
	UserID string
	Bits   int64
}

// TeamTotal is one team leaderboard row.
type TeamTotal struct {
	Team string
	Bits int64
}

// UserStore persists user records and their bit balances.
//
// Credit, debit, and the role/team upserts must be atomic per user at the
// storage layer; concurrent mutations of the same record must not lose
// updates.
type UserStore interface {
	// GetUser returns the record for userID or ErrNotFound.
	GetUser(ctx context.Context, userID string) (user.User, error)
	// GetBits returns the current balance, zero for unknown users.
	GetBits(ctx context.Context, userID string) (int64, error)
	// CreditBits adds amount to the user's balance, creating the record if
	// absent. Fails with ErrInvalidAmount when amount is not positive.
	CreditBits(ctx context.Context, userID string, amount int64) error
	// DebitBits subtracts amount from the user's balance. Fails with
	// ErrUnknownUser when no record exists and ErrInsufficientBalance when
	// amount exceeds the balance; the check and decrement are one atomic
	// conditional write.
	DebitBits(ctx context.Context, userID string, amount int64) error
	// SetTeam upserts the user's team.
	SetTeam(ctx context.Context, userID, team string) error
	// SetRole upserts the user's role.
	SetRole(ctx context.Context, userID string, role user.Role) error
	// IsAdmin reports whether a record exists with the admin role.
	IsAdmin(ctx context.Context, userID string) (bool, error)
	// ResetAllBits zeroes every balance, leaving team and role untouched.
	ResetAllBits(ctx context.Context) error
	// ResetAllTeams resets every team to the default, leaving bits and role untouched.
	ResetAllTeams(ctx context.Context) error
	// TopUsers returns up to limit users ordered by bits descending,
	// user id ascending on ties.
	TopUsers(ctx context.Context, limit int) ([]RankedUser, error)
	// TeamTotals returns per-team bit sums ordered by total descending,
	// team name ascending on ties.
	TeamTotals(ctx context.Context) ([]TeamTotal, error)
}

// HistoryStore persists tag-keyed snapshots of the ledger.
type HistoryStore interface {
	// SnapshotBits copies every current user record into history rows
	// stamped with tag. Snapshots under the same tag accumulate.
	SnapshotBits(ctx context.Context, tag string) error
	// GetHistoryBits returns the snapshotted balance, zero when absent.
	GetHistoryBits(ctx context.Context, userID, tag string) (int64, error)
	// TopHistoryUsers ranks snapshot rows for tag like TopUsers.
	TopHistoryUsers(ctx context.Context, tag string, limit int) ([]RankedUser, error)
	// HistoryTeamTotals sums snapshot rows for tag like TeamTotals.
	HistoryTeamTotals(ctx context.Context, tag string) ([]TeamTotal, error)
	// DeleteHistory removes every history row for tag; deleting an unknown
	// tag is a no-op.
	DeleteHistory(ctx context.Context, tag string) error
}

// EventStore tracks processed inbound event identifiers.
type EventStore interface {
	// MarkEventProcessed records eventID and reports whether this call was
	// the first to do so. A false result means the event was already
	// processed and must be ignored.
	MarkEventProcessed(ctx context.Context, eventID string) (bool, error)
}

// Store combines every persistence surface the engine depends on.
type Store interface {
	UserStore
	HistoryStore
	EventStore
}
