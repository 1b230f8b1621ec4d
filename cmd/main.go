package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/oarkflow/log"

	surgeguard "github.com/logtide/surgeguard"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to JSON config file")
		accessLog  = flag.String("log", "", "access log to analyze")
		alertLog   = flag.String("alerts", "", "alert output file")
		windowSize = flag.Int("window", 0, "number of historical time units retained")
		follow     = flag.Bool("follow", false, "keep reading as the access log grows")
		listenAddr = flag.String("listen", "", "status API listen address (empty disables)")
	)
	flag.Parse()

	log.DefaultLogger = log.Logger{
		Level:      log.InfoLevel,
		TimeFormat: "15:04:05",
		Writer: &log.ConsoleWriter{
			ColorOutput:    true,
			EndWithMessage: true,
		},
	}

	cfg, err := surgeguard.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if *accessLog != "" {
		cfg.AccessLog = *accessLog
	}
	if *alertLog != "" {
		cfg.AlertLog = *alertLog
	}
	if *windowSize > 0 {
		cfg.WindowSize = *windowSize
	}
	if *follow {
		cfg.Follow = true
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	guard, err := surgeguard.NewGuard(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize guard")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := guard.Run(ctx); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}
