package slack

import (
	"context"
	"strings"

	"github.com/GTBitsOfGood/bit-bot/internal/services/bot/identity"
)

// Resolver adapts a Slack client to the identity lookup interface.
type Resolver struct {
	client Client
}

// NewResolver wraps a Slack client for identity lookups.
func NewResolver(client Client) *Resolver {
	return &Resolver{client: client}
}

// UserExists reports whether the workspace knows the user id.
func (r *Resolver) UserExists(ctx context.Context, userID string) (bool, error) {
	if r == nil || r.client == nil {
		return false, nil
	}
	result, err := r.client.UserInfo(ctx, userID)
	if err != nil {
		return false, err
	}
	return result.OK, nil
}

// DisplayName returns the user's real name, or the unknown-user placeholder
// when the lookup fails or the profile has no name set.
func (r *Resolver) DisplayName(ctx context.Context, userID string) (string, error) {
	if r == nil || r.client == nil {
		return identity.UnknownDisplayName, nil
	}
	result, err := r.client.UserInfo(ctx, userID)
	if err != nil || !result.OK {
		return identity.UnknownDisplayName, nil
	}
	if name := strings.TrimSpace(result.User.RealName); name != "" {
		return name, nil
	}
	return identity.UnknownDisplayName, nil
}

var _ identity.Resolver = (*Resolver)(nil)
