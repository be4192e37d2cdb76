// Package identity resolves chat-platform mention tokens to user identifiers.
package identity

import (
	"context"
	"regexp"
)

// UnknownDisplayName is rendered when a user id cannot be resolved to a name.
const UnknownDisplayName = "Unknown User"

var mentionPattern = regexp.MustCompile(`<@(\w+)>`)

// ResolveMention extracts a canonical user id from a mention token.
//
// Tokens look like <@U12345>; the second return value is false when the
// token does not contain a mention.
func ResolveMention(token string) (string, bool) {
	match := mentionPattern.FindStringSubmatch(token)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// Resolver answers identity questions against the chat platform.
//
// Implementations wrap the platform's user-lookup API; the engine only
// depends on this narrow surface.
type Resolver interface {
	// UserExists reports whether the platform knows the user id.
	UserExists(ctx context.Context, userID string) (bool, error)
	// DisplayName returns a human-friendly name for the user id.
	// Implementations return UnknownDisplayName when no name is available.
	DisplayName(ctx context.Context, userID string) (string, error)
}
