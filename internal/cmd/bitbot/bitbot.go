// Package bitbot wires configuration and startup for the bit bot server.
package bitbot

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	platformcmd "github.com/GTBitsOfGood/bit-bot/internal/platform/cmd"
	"github.com/GTBitsOfGood/bit-bot/internal/services/bot/app"
	"github.com/GTBitsOfGood/bit-bot/internal/services/bot/engine"
	"github.com/GTBitsOfGood/bit-bot/internal/services/bot/slack"
	"github.com/GTBitsOfGood/bit-bot/internal/services/bot/storage/sqlite"
)

// Config holds bit bot command configuration.
type Config struct {
	HTTPAddr          string `env:"BIT_BOT_HTTP_ADDR"          envDefault:":8080"`
	DBPath            string `env:"BIT_BOT_DB_PATH"            envDefault:"data/bitbot.db"`
	SlackToken        string `env:"BIT_BOT_SLACK_TOKEN"`
	SlackAPIURL       string `env:"BIT_BOT_SLACK_API_URL"`
	AuditChannel      string `env:"BIT_BOT_LOGS_CHANNEL"`
	BitsChannel       string `env:"BIT_BOT_BITS_CHANNEL"`
	WaitlistChannel   string `env:"BIT_BOT_WAITLIST_CHANNEL"`
	AnalyticsChannel  string `env:"BIT_BOT_ANALYTICS_CHANNEL"`
	IntegrationSecret string `env:"BIT_BOT_INTEGRATION_SECRET"`
	// Teams is the comma-separated list of selectable team names.
	Teams    []string `env:"BIT_BOT_TEAMS" envSeparator:","`
	EnvLabel string   `env:"BIT_BOT_ENV"  envDefault:"development"`
}

// ParseConfig loads env defaults and parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	teams := strings.Join(cfg.Teams, ",")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to the sqlite database")
	fs.StringVar(&cfg.SlackToken, "slack-token", cfg.SlackToken, "Slack bot token")
	fs.StringVar(&cfg.AuditChannel, "logs-channel", cfg.AuditChannel, "channel id for audit lines")
	fs.StringVar(&cfg.BitsChannel, "bits-channel", cfg.BitsChannel, "channel id the bot listens in")
	fs.StringVar(&cfg.WaitlistChannel, "waitlist-channel", cfg.WaitlistChannel, "channel id for waitlist notifications")
	fs.StringVar(&cfg.AnalyticsChannel, "analytics-channel", cfg.AnalyticsChannel, "channel id for analytics relays")
	fs.StringVar(&cfg.IntegrationSecret, "integration-secret", cfg.IntegrationSecret, "shared secret for the integration grant endpoint")
	fs.StringVar(&teams, "teams", teams, "comma-separated selectable team names")
	fs.StringVar(&cfg.EnvLabel, "env", cfg.EnvLabel, "environment label echoed by the health probe")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}

	cfg.Teams = cfg.Teams[:0]
	for _, team := range strings.Split(teams, ",") {
		if team = strings.TrimSpace(team); team != "" {
			cfg.Teams = append(cfg.Teams, team)
		}
	}
	return cfg, nil
}

// Run starts the bit bot server and blocks until the context ends.
func Run(ctx context.Context, cfg Config, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	if strings.TrimSpace(cfg.AuditChannel) == "" {
		return errors.New("audit channel is required")
	}

	chat, err := slack.NewWebClient(cfg.SlackAPIURL, cfg.SlackToken)
	if err != nil {
		return err
	}
	auth, err := chat.AuthTest(ctx)
	if err != nil {
		return fmt.Errorf("resolve bot identity: %w", err)
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open bot store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Printf("close bot store: %v", err)
		}
	}()

	eng, err := engine.New(engine.Config{
		Store:     store,
		Resolver:  slack.NewResolver(chat),
		BotUserID: auth.UserID,
		Teams:     cfg.Teams,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	server, err := app.New(app.Config{
		Addr:              cfg.HTTPAddr,
		Engine:            eng,
		Slack:             chat,
		BotUserID:         auth.UserID,
		AuditChannel:      cfg.AuditChannel,
		AllowedChannels:   []string{cfg.AuditChannel, cfg.BitsChannel, cfg.WaitlistChannel},
		WaitlistChannel:   cfg.WaitlistChannel,
		AnalyticsChannel:  cfg.AnalyticsChannel,
		IntegrationSecret: cfg.IntegrationSecret,
		EnvLabel:          cfg.EnvLabel,
		Logger:            logger,
	})
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}
