package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	bitbotcmd "github.com/GTBitsOfGood/bit-bot/internal/cmd/bitbot"
	platformcmd "github.com/GTBitsOfGood/bit-bot/internal/platform/cmd"
	"github.com/GTBitsOfGood/bit-bot/internal/platform/config"
)

func main() {
	cfg, err := bitbotcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[BITBOT] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceBot, func(ctx context.Context) error {
		return bitbotcmd.Run(ctx, cfg, log.Default())
	})
	if err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
