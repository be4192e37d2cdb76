// Package command defines the recognized bot verbs and their dispatch metadata.
package command

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Verb identifies a recognized command verb.
type Verb string

const (
	// VerbGetBits prints the caller's balance, current or for a history tag.
	VerbGetBits Verb = "get-bits"
	// VerbGive grants bits to one or more mentioned users.
	VerbGive Verb = "give"
	// VerbRemove revokes bits from one or more mentioned users.
	VerbRemove Verb = "remove"
	// VerbLeaderboard prints the user leaderboard, current or historical.
	VerbLeaderboard Verb = "leaderboard"
	// VerbTeamLeaderboard prints the team leaderboard, current or historical.
	VerbTeamLeaderboard Verb = "team-leaderboard"
	// VerbSetTeam sets the caller's team.
	VerbSetTeam Verb = "set-team"
	// VerbPromote grants a user the admin role.
	VerbPromote Verb = "promote"
	// VerbDemote revokes a user's admin role.
	VerbDemote Verb = "demote"
	// VerbClearTeams resets every user to the default team.
	VerbClearTeams Verb = "clear-teams"
	// VerbClearBits resets every user's balance to zero.
	VerbClearBits Verb = "clear-bits"
	// VerbSaveBitHistory snapshots all balances under a tag.
	VerbSaveBitHistory Verb = "save-bit-history"
	// VerbDeleteBitHistory removes all history entries for a tag.
	VerbDeleteBitHistory Verb = "delete-bit-history"
	// VerbHelp prints usage.
	VerbHelp Verb = "help"
)

// Definition registers dispatch metadata for a verb.
type Definition struct {
	Verb Verb
	// MinArgs is the minimum number of tokens after the verb.
	MinArgs int
	// Privileged verbs require the caller to hold the admin role.
	Privileged bool
}

// Registry stores verb definitions for dispatch.
type Registry struct {
	definitions map[Verb]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[Verb]Definition)}
}

// Register adds a new verb definition to the registry.
func (r *Registry) Register(def Definition) error {
	if r == nil {
		return errors.New("registry is required")
	}
	def.Verb = Verb(strings.TrimSpace(string(def.Verb)))
	if def.Verb == "" {
		return errors.New("verb is required")
	}
	if def.MinArgs < 0 {
		return errors.New("min args must be greater than or equal to zero")
	}
	if r.definitions == nil {
		r.definitions = make(map[Verb]Definition)
	}
	if _, exists := r.definitions[def.Verb]; exists {
		return fmt.Errorf("verb already registered: %s", def.Verb)
	}
	r.definitions[def.Verb] = def
	return nil
}

// Lookup finds the definition for a raw verb token.
func (r *Registry) Lookup(raw string) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	def, ok := r.definitions[Verb(strings.TrimSpace(raw))]
	return def, ok
}

// Verbs returns the registered verbs in lexical order.
func (r *Registry) Verbs() []Verb {
	if r == nil {
		return nil
	}
	verbs := make([]Verb, 0, len(r.definitions))
	for verb := range r.definitions {
		verbs = append(verbs, verb)
	}
	sort.Slice(verbs, func(i, j int) bool { return verbs[i] < verbs[j] })
	return verbs
}

// DefaultRegistry returns the registry with every recognized verb installed.
func DefaultRegistry() *Registry {
	registry := NewRegistry()
	definitions := []Definition{
		{Verb: VerbGetBits},
		{Verb: VerbGive, MinArgs: 2, Privileged: true},
		{Verb: VerbRemove, MinArgs: 2, Privileged: true},
		{Verb: VerbLeaderboard},
		{Verb: VerbTeamLeaderboard},
		{Verb: VerbSetTeam},
		{Verb: VerbPromote, MinArgs: 1, Privileged: true},
		{Verb: VerbDemote, MinArgs: 1, Privileged: true},
		{Verb: VerbClearTeams, Privileged: true},
		{Verb: VerbClearBits, Privileged: true},
		{Verb: VerbSaveBitHistory, MinArgs: 1, Privileged: true},
		{Verb: VerbDeleteBitHistory, MinArgs: 1, Privileged: true},
		{Verb: VerbHelp},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			// Registration of the static verb set cannot fail at runtime.
			panic(err)
		}
	}
	return registry
}
