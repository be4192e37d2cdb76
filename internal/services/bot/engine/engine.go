// Package engine dispatches inbound chat events to bit-bot commands.
//
// The engine owns the full pipeline for one event: duplicate suppression,
// parsing, authorization, and execution. It returns typed results; posting
// replies and reactions back to the chat platform is the caller's job.
package engine

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/GTBitsOfGood/bit-bot/internal/platform/errors"
	"github.com/GTBitsOfGood/bit-bot/internal/platform/metrics"
	"github.com/GTBitsOfGood/bit-bot/internal/services/bot/command"
	"github.com/GTBitsOfGood/bit-bot/internal/services/bot/identity"
	"github.com/GTBitsOfGood/bit-bot/internal/services/bot/leaderboard"
	"github.com/GTBitsOfGood/bit-bot/internal/services/bot/storage"
	"github.com/GTBitsOfGood/bit-bot/internal/services/bot/user"
)

// Event is one inbound chat message addressed to the bot.
type Event struct {
	// ID is the platform's client message id, used for dedup. Events
	// without an id skip duplicate suppression.
	ID        string
	ChannelID string
	UserID    string
	// Timestamp identifies the message for reaction annotation.
	Timestamp string
	Text      string
}

// Result is the typed outcome of a dispatched event.
type Result struct {
	// Verb is the command that ran, empty when the event was ignored.
	Verb command.Verb
	// Duplicate reports that the event was already processed and suppressed.
	Duplicate bool
	// Ignored reports that the event did not address the bot.
	Ignored bool
	// Replies are posted to the origin channel.
	Replies []string
	// Audit lines are posted to the audit channel.
	Audit []string
	// TeamOptions, when non-empty, asks the caller to render an
	// interactive team picker with these choices in the origin channel.
	TeamOptions []string
}

// Config wires the engine's collaborators.
type Config struct {
	Store    storage.Store
	Resolver identity.Resolver
	// Registry defaults to command.DefaultRegistry when nil.
	Registry *command.Registry
	// BotUserID is the bot's own platform user id; the first token of an
	// event must mention it.
	BotUserID string
	// Teams is the set of team names set-team accepts.
	Teams  []string
	Logger *log.Logger
}

// Engine executes bit-bot commands against a store.
type Engine struct {
	store     storage.Store
	resolver  identity.Resolver
	registry  *command.Registry
	botUserID string
	teams     []string
	logger    *log.Logger
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("identity resolver is required")
	}
	if strings.TrimSpace(cfg.BotUserID) == "" {
		return nil, fmt.Errorf("bot user id is required")
	}
	registry := cfg.Registry
	if registry == nil {
		registry = command.DefaultRegistry()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		store:     cfg.Store,
		resolver:  cfg.Resolver,
		registry:  registry,
		botUserID: strings.TrimSpace(cfg.BotUserID),
		teams:     cfg.Teams,
		logger:    logger,
	}, nil
}

// HandleEvent runs the dispatch pipeline for one event.
//
// Duplicate and non-addressed events return a Result with no error. Command
// failures return a typed error; the caller renders it as an audit line. One
// event's failure never affects subsequent events.
func (e *Engine) HandleEvent(ctx context.Context, ev Event) (Result, error) {
	if e == nil {
		return Result{}, fmt.Errorf("engine is required")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if ev.ID != "" {
		first, err := e.store.MarkEventProcessed(ctx, ev.ID)
		if err != nil {
			return Result{}, fmt.Errorf("mark event processed: %w", err)
		}
		if !first {
			metrics.RecordDuplicateEvent()
			e.logger.Printf("suppressed duplicate event %s", ev.ID)
			return Result{Duplicate: true}, nil
		}
	}

	tokens := strings.Fields(ev.Text)
	if len(tokens) == 0 {
		return Result{Ignored: true}, nil
	}
	if mentioned, ok := identity.ResolveMention(tokens[0]); !ok || mentioned != e.botUserID {
		return Result{Ignored: true}, nil
	}
	if len(tokens) < 2 {
		return Result{Ignored: true}, nil
	}

	started := time.Now()
	result, err := e.dispatch(ctx, ev, tokens[1], tokens[2:])
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordCommand(tokens[1], outcome, time.Since(started))
	if err != nil {
		e.logger.Printf("command %s from %s failed: %v", tokens[1], ev.UserID, err)
		return Result{Verb: command.Verb(tokens[1])}, err
	}
	return result, nil
}

func (e *Engine) dispatch(ctx context.Context, ev Event, rawVerb string, args []string) (Result, error) {
	def, ok := e.registry.Lookup(rawVerb)
	if !ok {
		return Result{}, apperrors.New(apperrors.CodeUnknownCommand,
			fmt.Sprintf("%s is not a valid action", rawVerb))
	}
	if def.Privileged {
		admin, err := e.store.IsAdmin(ctx, ev.UserID)
		if err != nil {
			return Result{}, fmt.Errorf("check admin role: %w", err)
		}
		if !admin {
			return Result{}, apperrors.New(apperrors.CodeNotAuthorized,
				fmt.Sprintf("only admins can run %s", def.Verb))
		}
	}
	if len(args) < def.MinArgs {
		return Result{}, apperrors.New(apperrors.CodeArgumentCount,
			fmt.Sprintf("%s expects at least %d arguments, %d were given", def.Verb, def.MinArgs, len(args)))
	}

	switch def.Verb {
	case command.VerbGetBits:
		return e.getBits(ctx, ev, args)
	case command.VerbGive:
		return e.transfer(ctx, ev, args, true)
	case command.VerbRemove:
		return e.transfer(ctx, ev, args, false)
	case command.VerbLeaderboard:
		return e.userLeaderboard(ctx, ev, args)
	case command.VerbTeamLeaderboard:
		return e.teamLeaderboard(ctx, ev, args)
	case command.VerbSetTeam:
		return e.setTeam(ctx, ev, args)
	case command.VerbPromote:
		return e.changeRole(ctx, ev, args, user.RoleAdmin)
	case command.VerbDemote:
		return e.changeRole(ctx, ev, args, user.RoleUser)
	case command.VerbClearTeams:
		return e.clearTeams(ctx, ev)
	case command.VerbClearBits:
		return e.clearBits(ctx, ev)
	case command.VerbSaveBitHistory:
		return e.saveHistory(ctx, ev, args)
	case command.VerbDeleteBitHistory:
		return e.deleteHistory(ctx, ev, args)
	case command.VerbHelp:
		return e.help(), nil
	}
	return Result{}, apperrors.New(apperrors.CodeUnknownCommand,
		fmt.Sprintf("%s is not a valid action", rawVerb))
}

func (e *Engine) getBits(ctx context.Context, ev Event, args []string) (Result, error) {
	tag := strings.TrimSpace(strings.Join(args, " "))

	var bits int64
	var err error
	if tag == "" {
		bits, err = e.store.GetBits(ctx, ev.UserID)
	} else {
		bits, err = e.store.GetHistoryBits(ctx, ev.UserID, tag)
	}
	if err != nil {
		return Result{}, err
	}

	reply := fmt.Sprintf("You have %d bits", bits)
	audit := fmt.Sprintf("<@%s> printed their bit count", ev.UserID)
	if tag != "" {
		reply = fmt.Sprintf("You had %d bits for %s", bits, tag)
		audit = fmt.Sprintf("<@%s> printed their bit count for %s", ev.UserID, tag)
	}
	return Result{
		Verb:    command.VerbGetBits,
		Replies: []string{reply},
		Audit:   []string{audit},
	}, nil
}

// transfer handles give and remove. Targets run sequentially; the first
// failure aborts the remaining targets without rolling back prior writes.
// An errored transfer surfaces only the failure; audit lines for targets
// already written are dropped with it.
func (e *Engine) transfer(ctx context.Context, ev Event, args []string, credit bool) (Result, error) {
	verb := command.VerbRemove
	if credit {
		verb = command.VerbGive
	}

	amountToken := args[len(args)-1]
	amount, err := strconv.ParseInt(amountToken, 10, 64)
	if err != nil || amount <= 0 {
		return Result{}, apperrors.New(apperrors.CodeInvalidAmount,
			fmt.Sprintf("%s is not a valid amount; %s must be an integer amount > 0", amountToken, amountToken))
	}

	result := Result{Verb: verb}
	seen := make(map[string]bool)
	for _, token := range args[:len(args)-1] {
		targetID, ok := identity.ResolveMention(token)
		if !ok {
			return Result{Verb: verb}, apperrors.New(apperrors.CodeUnknownUser,
				fmt.Sprintf("mentioned user, %s, does not exist", token))
		}
		if seen[targetID] {
			continue
		}
		seen[targetID] = true

		exists, err := e.resolver.UserExists(ctx, targetID)
		if err != nil {
			return Result{Verb: verb}, fmt.Errorf("look up user %s: %w", targetID, err)
		}
		if !exists {
			return Result{Verb: verb}, apperrors.New(apperrors.CodeUnknownUser,
				fmt.Sprintf("mentioned user, %s, does not exist", targetID))
		}

		if credit {
			err = e.store.CreditBits(ctx, targetID, amount)
		} else {
			err = e.store.DebitBits(ctx, targetID, amount)
		}
		if err != nil {
			return Result{Verb: verb}, err
		}

		if credit {
			result.Audit = append(result.Audit,
				fmt.Sprintf("<@%s> gave %d bits to <@%s>", ev.UserID, amount, targetID))
		} else {
			result.Audit = append(result.Audit,
				fmt.Sprintf("<@%s> removed %d bits from <@%s>", ev.UserID, amount, targetID))
		}
	}
	return result, nil
}

func (e *Engine) userLeaderboard(ctx context.Context, ev Event, args []string) (Result, error) {
	tag := strings.TrimSpace(strings.Join(args, " "))

	var rows []storage.RankedUser
	var err error
	if tag == "" {
		rows, err = e.store.TopUsers(ctx, leaderboard.DefaultLimit)
	} else {
		rows, err = e.store.TopHistoryUsers(ctx, tag, leaderboard.DefaultLimit)
	}
	if err != nil {
		return Result{}, err
	}

	entries := make([]leaderboard.Entry, 0, len(rows))
	for _, row := range rows {
		name, err := e.resolver.DisplayName(ctx, row.UserID)
		if err != nil {
			return Result{}, fmt.Errorf("resolve display name for %s: %w", row.UserID, err)
		}
		entries = append(entries, leaderboard.Entry{Name: name, Bits: row.Bits})
	}
	return Result{
		Verb:    command.VerbLeaderboard,
		Replies: []string{leaderboard.Format(leaderboard.UsersTitle(tag), entries)},
		Audit:   []string{fmt.Sprintf("<@%s> just printed the leaderboard!", ev.UserID)},
	}, nil
}

func (e *Engine) teamLeaderboard(ctx context.Context, ev Event, args []string) (Result, error) {
	tag := strings.TrimSpace(strings.Join(args, " "))

	var rows []storage.TeamTotal
	var err error
	if tag == "" {
		rows, err = e.store.TeamTotals(ctx)
	} else {
		rows, err = e.store.HistoryTeamTotals(ctx, tag)
	}
	if err != nil {
		return Result{}, err
	}

	entries := make([]leaderboard.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, leaderboard.Entry{Name: row.Team, Bits: row.Bits})
	}
	return Result{
		Verb:    command.VerbTeamLeaderboard,
		Replies: []string{leaderboard.Format(leaderboard.TeamsTitle(tag), entries)},
		Audit:   []string{fmt.Sprintf("<@%s> just printed the team leaderboard!", ev.UserID)},
	}, nil
}

func (e *Engine) setTeam(ctx context.Context, ev Event, args []string) (Result, error) {
	team := strings.TrimSpace(strings.Join(args, " "))
	if team == "" {
		// No team named: have the caller render the interactive picker.
		options := make([]string, len(e.teams))
		copy(options, e.teams)
		return Result{Verb: command.VerbSetTeam, TeamOptions: options}, nil
	}
	return e.ApplyTeamSelection(ctx, ev.UserID, team)
}

// ApplyTeamSelection validates and persists a team choice. It backs both the
// set-team verb and the interactive team picker.
func (e *Engine) ApplyTeamSelection(ctx context.Context, userID, team string) (Result, error) {
	if e == nil {
		return Result{}, fmt.Errorf("engine is required")
	}
	team = strings.TrimSpace(team)
	valid := false
	for _, name := range e.teams {
		if name == team {
			valid = true
			break
		}
	}
	if !valid {
		return Result{}, apperrors.New(apperrors.CodeInvalidTeam,
			fmt.Sprintf("%s is not a recognized team", team))
	}
	if err := e.store.SetTeam(ctx, userID, team); err != nil {
		return Result{}, err
	}
	return Result{
		Verb:    command.VerbSetTeam,
		Replies: []string{fmt.Sprintf("You set your team to %s!", team)},
		Audit:   []string{fmt.Sprintf("<@%s> set their team to %s!", userID, team)},
	}, nil
}

func (e *Engine) changeRole(ctx context.Context, ev Event, args []string, role user.Role) (Result, error) {
	targetID, ok := identity.ResolveMention(args[0])
	if !ok {
		return Result{}, apperrors.New(apperrors.CodeUnknownUser,
			fmt.Sprintf("mentioned user, %s, does not exist", args[0]))
	}
	if err := e.store.SetRole(ctx, targetID, role); err != nil {
		return Result{}, err
	}
	if role == user.RoleAdmin {
		return Result{
			Verb:  command.VerbPromote,
			Audit: []string{fmt.Sprintf("<@%s> promoted <@%s> to admin!", ev.UserID, targetID)},
		}, nil
	}
	return Result{
		Verb:  command.VerbDemote,
		Audit: []string{fmt.Sprintf("<@%s> demoted <@%s> to user!", ev.UserID, targetID)},
	}, nil
}

func (e *Engine) clearTeams(ctx context.Context, ev Event) (Result, error) {
	if err := e.store.ResetAllTeams(ctx); err != nil {
		return Result{}, err
	}
	return Result{
		Verb:  command.VerbClearTeams,
		Audit: []string{fmt.Sprintf("<@%s> cleared all teams!", ev.UserID)},
	}, nil
}

func (e *Engine) clearBits(ctx context.Context, ev Event) (Result, error) {
	if err := e.store.ResetAllBits(ctx); err != nil {
		return Result{}, err
	}
	return Result{
		Verb:  command.VerbClearBits,
		Audit: []string{fmt.Sprintf("<@%s> cleared all bits!", ev.UserID)},
	}, nil
}

func (e *Engine) saveHistory(ctx context.Context, ev Event, args []string) (Result, error) {
	tag := strings.TrimSpace(strings.Join(args, " "))
	if err := e.store.SnapshotBits(ctx, tag); err != nil {
		return Result{}, err
	}
	return Result{
		Verb:  command.VerbSaveBitHistory,
		Audit: []string{fmt.Sprintf("<@%s> saved the bit history as %s!", ev.UserID, tag)},
	}, nil
}

func (e *Engine) deleteHistory(ctx context.Context, ev Event, args []string) (Result, error) {
	tag := strings.TrimSpace(strings.Join(args, " "))
	if err := e.store.DeleteHistory(ctx, tag); err != nil {
		return Result{}, err
	}
	return Result{
		Verb:  command.VerbDeleteBitHistory,
		Audit: []string{fmt.Sprintf("<@%s> deleted the bit history for %s!", ev.UserID, tag)},
	}, nil
}

// IntegrationGrant credits bits on behalf of a named external integration.
func (e *Engine) IntegrationGrant(ctx context.Context, integration, userID string, amount int64) (Result, error) {
	if e == nil {
		return Result{}, fmt.Errorf("engine is required")
	}
	integration = strings.TrimSpace(integration)
	if integration == "" {
		integration = "unknown"
	}
	if err := e.store.CreditBits(ctx, userID, amount); err != nil {
		return Result{}, err
	}
	metrics.RecordIntegrationGrant(integration)
	return Result{
		Audit: []string{fmt.Sprintf("%s gave %d bits to <@%s>", integration, amount, userID)},
	}, nil
}

func (e *Engine) help() Result {
	var b strings.Builder
	b.WriteString("Hello! This is the bits of good bit bot! Example commands:\n\n")
	fmt.Fprintf(&b, "*View how many bits you have:*\n- <@%s> get-bits\n\n", e.botUserID)
	fmt.Fprintf(&b, "*Set your team:*\n- <@%s> set-team\n\n", e.botUserID)
	fmt.Fprintf(&b, "*View the bit leaderboard:*\n- <@%s> leaderboard\n\n", e.botUserID)
	fmt.Fprintf(&b, "*View the team bit leaderboard:*\n- <@%s> team-leaderboard\n\n", e.botUserID)
	b.WriteString("⛔ Admin Only Commands ⛔\n\n")
	fmt.Fprintf(&b, "*Give 10 bits to a user:*\n- <@%s> give <tag the user> 10\n\n", e.botUserID)
	fmt.Fprintf(&b, "*Remove 10 bits from a user:*\n- <@%s> remove <tag the user> 10\n\n", e.botUserID)
	fmt.Fprintf(&b, "*Give 10 bits to multiple users:*\n- <@%s> give <tag user 1> <tag user 2> 10\n\n", e.botUserID)
	fmt.Fprintf(&b, "*Promote a user to admin:*\n- <@%s> promote <tag the user>\n\n", e.botUserID)
	fmt.Fprintf(&b, "*Demote a user:*\n- <@%s> demote <tag the user>\n\n", e.botUserID)
	fmt.Fprintf(&b, "*Clear teams:*\n- <@%s> clear-teams\n\n", e.botUserID)
	fmt.Fprintf(&b, "*Save a bit history snapshot:*\n- <@%s> save-bit-history fall-2025\n", e.botUserID)
	return Result{Verb: command.VerbHelp, Replies: []string{b.String()}}
}
