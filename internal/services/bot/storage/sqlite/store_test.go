package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/GTBitsOfGood/bit-bot/internal/services/bot/storage"
	"github.com/GTBitsOfGood/bit-bot/internal/services/bot/user"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestCloseNilSafe(t *testing.T) {
	var store *Store
	if err := store.Close(); err != nil {
		t.Fatalf("nil store close: %v", err)
	}
}

func TestGetBitsUnknownUserIsZero(t *testing.T) {
	store := openTempStore(t)

	bits, err := store.GetBits(context.Background(), "U404")
	if err != nil {
		t.Fatalf("get bits: %v", err)
	}
	if bits != 0 {
		t.Fatalf("expected zero for unknown user, got %d", bits)
	}

	// No implicit record creation.
	if _, err := store.GetUser(context.Background(), "U404"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreditBitsCreatesRecordWithDefaults(t *testing.T) {
	store := openTempStore(t)

	if err := store.CreditBits(context.Background(), "U1", 5); err != nil {
		t.Fatalf("credit: %v", err)
	}

	record, err := store.GetUser(context.Background(), "U1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if record.Bits != 5 {
		t.Fatalf("expected 5 bits, got %d", record.Bits)
	}
	if record.Team != user.DefaultTeam {
		t.Fatalf("expected default team, got %q", record.Team)
	}
	if record.Role != user.RoleUser {
		t.Fatalf("expected user role, got %q", record.Role)
	}
}

func TestCreditBitsIncrementsExisting(t *testing.T) {
	store := openTempStore(t)

	if err := store.CreditBits(context.Background(), "U1", 5); err != nil {
		t.Fatalf("first credit: %v", err)
	}
	if err := store.CreditBits(context.Background(), "U1", 3); err != nil {
		t.Fatalf("second credit: %v", err)
	}

	bits, err := store.GetBits(context.Background(), "U1")
	if err != nil {
		t.Fatalf("get bits: %v", err)
	}
	if bits != 8 {
		t.Fatalf("expected 8 bits, got %d", bits)
	}
}

func TestCreditBitsRejectsNonPositiveAmount(t *testing.T) {
	store := openTempStore(t)

	for _, amount := range []int64{0, -1} {
		if err := store.CreditBits(context.Background(), "U1", amount); !errors.Is(err, storage.ErrInvalidAmount) {
			t.Fatalf("amount %d: expected invalid amount, got %v", amount, err)
		}
	}
}

func TestDebitBitsUnknownUser(t *testing.T) {
	store := openTempStore(t)

	if err := store.DebitBits(context.Background(), "U404", 1); !errors.Is(err, storage.ErrUnknownUser) {
		t.Fatalf("expected unknown user, got %v", err)
	}
}

func TestDebitBitsInsufficientBalanceLeavesRecordUnchanged(t *testing.T) {
	store := openTempStore(t)

	if err := store.CreditBits(context.Background(), "U1", 3); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := store.DebitBits(context.Background(), "U1", 4); !errors.Is(err, storage.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}

	bits, err := store.GetBits(context.Background(), "U1")
	if err != nil {
		t.Fatalf("get bits: %v", err)
	}
	if bits != 3 {
		t.Fatalf("expected unchanged balance 3, got %d", bits)
	}
}

func TestCreditDebitRoundTrip(t *testing.T) {
	store := openTempStore(t)

	if err := store.CreditBits(context.Background(), "U1", 10); err != nil {
		t.Fatalf("seed credit: %v", err)
	}
	if err := store.CreditBits(context.Background(), "U1", 7); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := store.DebitBits(context.Background(), "U1", 7); err != nil {
		t.Fatalf("debit: %v", err)
	}

	bits, err := store.GetBits(context.Background(), "U1")
	if err != nil {
		t.Fatalf("get bits: %v", err)
	}
	if bits != 10 {
		t.Fatalf("expected round-trip back to 10, got %d", bits)
	}
}

func TestDebitBitsExactBalanceReachesZero(t *testing.T) {
	store := openTempStore(t)

	if err := store.CreditBits(context.Background(), "U1", 4); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := store.DebitBits(context.Background(), "U1", 4); err != nil {
		t.Fatalf("debit: %v", err)
	}

	bits, err := store.GetBits(context.Background(), "U1")
	if err != nil {
		t.Fatalf("get bits: %v", err)
	}
	if bits != 0 {
		t.Fatalf("expected zero balance, got %d", bits)
	}
}

func TestSetTeamUpsertsAndPreservesBits(t *testing.T) {
	store := openTempStore(t)

	if err := store.SetTeam(context.Background(), "U1", "Engineering"); err != nil {
		t.Fatalf("set team new user: %v", err)
	}
	record, err := store.GetUser(context.Background(), "U1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if record.Team != "Engineering" || record.Bits != 0 {
		t.Fatalf("unexpected record: %+v", record)
	}

	if err := store.CreditBits(context.Background(), "U1", 9); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := store.SetTeam(context.Background(), "U1", "Design"); err != nil {
		t.Fatalf("set team existing user: %v", err)
	}
	record, err = store.GetUser(context.Background(), "U1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if record.Team != "Design" {
		t.Fatalf("expected Design, got %q", record.Team)
	}
	if record.Bits != 9 {
		t.Fatalf("expected bits preserved, got %d", record.Bits)
	}
}

func TestSetRoleAndIsAdminRoundTrip(t *testing.T) {
	store := openTempStore(t)

	admin, err := store.IsAdmin(context.Background(), "U1")
	if err != nil {
		t.Fatalf("is admin: %v", err)
	}
	if admin {
		t.Fatal("non-existent user must not be admin")
	}

	if err := store.SetRole(context.Background(), "U1", user.RoleAdmin); err != nil {
		t.Fatalf("promote: %v", err)
	}
	admin, err = store.IsAdmin(context.Background(), "U1")
	if err != nil {
		t.Fatalf("is admin after promote: %v", err)
	}
	if !admin {
		t.Fatal("expected admin after promote")
	}

	if err := store.SetRole(context.Background(), "U1", user.RoleUser); err != nil {
		t.Fatalf("demote: %v", err)
	}
	admin, err = store.IsAdmin(context.Background(), "U1")
	if err != nil {
		t.Fatalf("is admin after demote: %v", err)
	}
	if admin {
		t.Fatal("expected non-admin after demote")
	}
}

func TestSetRoleRejectsUnknownRole(t *testing.T) {
	store := openTempStore(t)

	if err := store.SetRole(context.Background(), "U1", "owner"); !errors.Is(err, user.ErrInvalidRole) {
		t.Fatalf("expected invalid role, got %v", err)
	}
}

func TestResetAllBitsKeepsTeamAndRole(t *testing.T) {
	store := openTempStore(t)

	if err := store.CreditBits(context.Background(), "U1", 10); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := store.SetTeam(context.Background(), "U1", "Engineering"); err != nil {
		t.Fatalf("set team: %v", err)
	}
	if err := store.SetRole(context.Background(), "U1", user.RoleAdmin); err != nil {
		t.Fatalf("set role: %v", err)
	}

	if err := store.ResetAllBits(context.Background()); err != nil {
		t.Fatalf("reset all bits: %v", err)
	}

	record, err := store.GetUser(context.Background(), "U1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if record.Bits != 0 {
		t.Fatalf("expected zero bits, got %d", record.Bits)
	}
	if record.Team != "Engineering" || record.Role != user.RoleAdmin {
		t.Fatalf("expected team and role untouched, got %+v", record)
	}
}

func TestResetAllTeamsKeepsBitsAndRole(t *testing.T) {
	store := openTempStore(t)

	if err := store.CreditBits(context.Background(), "U1", 10); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := store.SetTeam(context.Background(), "U1", "Engineering"); err != nil {
		t.Fatalf("set team: %v", err)
	}

	if err := store.ResetAllTeams(context.Background()); err != nil {
		t.Fatalf("reset all teams: %v", err)
	}

	record, err := store.GetUser(context.Background(), "U1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if record.Team != user.DefaultTeam {
		t.Fatalf("expected default team, got %q", record.Team)
	}
	if record.Bits != 10 {
		t.Fatalf("expected bits untouched, got %d", record.Bits)
	}
}

func TestTopUsersOrderingAndTieBreak(t *testing.T) {
	store := openTempStore(t)

	seed := map[string]int64{"UA": 5, "UB": 10, "UC": 1, "UD": 5}
	for id, bits := range seed {
		if err := store.CreditBits(context.Background(), id, bits); err != nil {
			t.Fatalf("credit %s: %v", id, err)
		}
	}

	ranked, err := store.TopUsers(context.Background(), 10)
	if err != nil {
		t.Fatalf("top users: %v", err)
	}
	want := []string{"UB", "UA", "UD", "UC"}
	if len(ranked) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(ranked))
	}
	for i, id := range want {
		if ranked[i].UserID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, ranked[i].UserID)
		}
	}
}

func TestTopUsersHonorsLimit(t *testing.T) {
	store := openTempStore(t)

	for _, id := range []string{"U1", "U2", "U3"} {
		if err := store.CreditBits(context.Background(), id, 1); err != nil {
			t.Fatalf("credit %s: %v", id, err)
		}
	}

	ranked, err := store.TopUsers(context.Background(), 2)
	if err != nil {
		t.Fatalf("top users: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(ranked))
	}
}

func TestTeamTotalsGroupsAndSums(t *testing.T) {
	store := openTempStore(t)

	fixtures := []struct {
		id   string
		bits int64
		team string
	}{
		{"U1", 5, "Engineering"},
		{"U2", 3, "Engineering"},
		{"U3", 6, "Design"},
	}
	for _, f := range fixtures {
		if err := store.CreditBits(context.Background(), f.id, f.bits); err != nil {
			t.Fatalf("credit %s: %v", f.id, err)
		}
		if err := store.SetTeam(context.Background(), f.id, f.team); err != nil {
			t.Fatalf("set team %s: %v", f.id, err)
		}
	}

	totals, err := store.TeamTotals(context.Background())
	if err != nil {
		t.Fatalf("team totals: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("expected 2 teams, got %d", len(totals))
	}
	if totals[0].Team != "Engineering" || totals[0].Bits != 8 {
		t.Fatalf("unexpected first team: %+v", totals[0])
	}
	if totals[1].Team != "Design" || totals[1].Bits != 6 {
		t.Fatalf("unexpected second team: %+v", totals[1])
	}
}
