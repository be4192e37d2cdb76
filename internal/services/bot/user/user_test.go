package user

import (
	"errors"
	"testing"

	apperrors "github.com/GTBitsOfGood/bit-bot/internal/platform/errors"
)

func TestNewDefaults(t *testing.T) {
	u := New(" U123 ")
	if u.ID != "U123" {
		t.Fatalf("expected trimmed id, got %q", u.ID)
	}
	if u.Bits != 0 {
		t.Fatalf("expected zero bits, got %d", u.Bits)
	}
	if u.Team != DefaultTeam {
		t.Fatalf("expected default team, got %q", u.Team)
	}
	if u.Role != RoleUser {
		t.Fatalf("expected user role, got %q", u.Role)
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"admin", RoleAdmin, false},
		{"user", RoleUser, false},
		{"", RoleUser, false},
		{" admin ", RoleAdmin, false},
		{"superuser", "", true},
	}
	for _, tc := range tests {
		got, err := ParseRole(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tc.in)
			}
			if !errors.Is(err, ErrInvalidRole) {
				t.Fatalf("%q: expected invalid role error, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := User{ID: "U1", Bits: 5, Team: DefaultTeam, Role: RoleUser}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid record, got %v", err)
	}

	if err := (User{ID: " ", Role: RoleUser}).Validate(); !errors.Is(err, ErrEmptyID) {
		t.Fatalf("expected empty id error, got %v", err)
	}
	if err := (User{ID: "U1", Bits: -1, Role: RoleUser}).Validate(); !errors.Is(err, ErrNegativeBits) {
		t.Fatalf("expected negative bits error, got %v", err)
	}

	err := (User{ID: "U1", Role: "owner"}).Validate()
	if apperrors.CodeOf(err) != apperrors.CodeUserBadRole {
		t.Fatalf("expected invalid role code, got %v", err)
	}
}

func TestIsAdmin(t *testing.T) {
	if (User{ID: "U1", Role: RoleUser}).IsAdmin() {
		t.Fatal("user role must not be admin")
	}
	if !(User{ID: "U1", Role: RoleAdmin}).IsAdmin() {
		t.Fatal("admin role must be admin")
	}
}
