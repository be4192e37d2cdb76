// Package app hosts the bit bot's HTTP surface: the chat platform's event
// and interactivity webhooks, partner integration endpoints, and operational
// probes.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/GTBitsOfGood/bit-bot/internal/platform/metrics"
	"github.com/GTBitsOfGood/bit-bot/internal/services/bot/engine"
	"github.com/GTBitsOfGood/bit-bot/internal/services/bot/slack"
)

// Config wires the server's collaborators and channel routing.
type Config struct {
	Addr   string
	Engine *engine.Engine
	Slack  slack.Client
	// BotUserID filters out the bot's own messages on the events webhook.
	BotUserID string
	// AuditChannel receives every audit line.
	AuditChannel string
	// AllowedChannels is the mention allow-list; mentions from other
	// channels are ignored.
	AllowedChannels []string
	// WaitlistChannel receives waitlist signup notifications.
	WaitlistChannel string
	// AnalyticsChannel receives relayed analytics log lines.
	AnalyticsChannel string
	// IntegrationSecret authorizes the integration grant endpoint.
	IntegrationSecret string
	// EnvLabel is echoed by the health probe.
	EnvLabel string
	Logger   *log.Logger
}

// Server hosts the bot HTTP endpoints.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	mux        *http.ServeMux

	engine            *engine.Engine
	slack             slack.Client
	botUserID         string
	auditChannel      string
	allowedChannels   map[string]bool
	waitlistChannel   string
	analyticsChannel  string
	integrationSecret string
	envLabel          string
	logger            *log.Logger
}

// New creates a configured bot server listening on cfg.Addr.
func New(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if cfg.Slack == nil {
		return nil, fmt.Errorf("slack client is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	allowed := make(map[string]bool, len(cfg.AllowedChannels))
	for _, channel := range cfg.AllowedChannels {
		channel = strings.TrimSpace(channel)
		if channel != "" {
			allowed[channel] = true
		}
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	s := &Server{
		listener:          listener,
		engine:            cfg.Engine,
		slack:             cfg.Slack,
		botUserID:         strings.TrimSpace(cfg.BotUserID),
		auditChannel:      strings.TrimSpace(cfg.AuditChannel),
		allowedChannels:   allowed,
		waitlistChannel:   strings.TrimSpace(cfg.WaitlistChannel),
		analyticsChannel:  strings.TrimSpace(cfg.AnalyticsChannel),
		integrationSecret: strings.TrimSpace(cfg.IntegrationSecret),
		envLabel:          cfg.EnvLabel,
		logger:            logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/slack/events", s.handleEvents)
	mux.HandleFunc("/slack/events/interactivity", s.handleInteractivity)
	mux.HandleFunc("/bog/analytics-log", s.handleAnalyticsLog)
	mux.HandleFunc("/bog/mapscout", s.handleMapscout)
	mux.HandleFunc("/api/integrations/give-bits", s.handleIntegrationGiveBits)
	mux.Handle("/metrics", metrics.Handler())
	s.mux = mux
	s.httpServer = &http.Server{Handler: mux}

	return s, nil
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Handler returns the route table, for tests.
func (s *Server) Handler() http.Handler {
	if s == nil {
		return nil
	}
	return s.mux
}

// Serve starts the server and blocks until it stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.logger.Printf("bot server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		err := <-serveErr
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	}
}
