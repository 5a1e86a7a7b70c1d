package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/contactkeval/option-lattice/internal/config"
	"github.com/contactkeval/option-lattice/internal/logger"
	"github.com/contactkeval/option-lattice/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to JSON config (defaults to the reference run)")
	mode := flag.String("mode", "", "override the config mode: price, converge, extract, smile or serve")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *mode != "" {
		cfg.Mode = *mode
		if err := cfg.Validate(); err != nil {
			log.Fatalf("invalid config: %v", err)
		}
	}

	logger.SetVerbosity(cfg.Verbosity)
	if cfg.LogFile != "" {
		logger.SetOutputFile(cfg.LogFile, cfg.LogMaxSizeMB)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = run(ctx, cfg)
	stop()

	// log.Fatalf skips deferred calls, so the log file is closed first.
	closeErr := logger.Close()
	if err != nil {
		log.Fatalf("%s failed: %v", cfg.Mode, err)
	}
	if closeErr != nil {
		log.Fatalf("closing log file: %v", closeErr)
	}
}

// run executes the configured mode.
func run(ctx context.Context, cfg *config.Config) error {
	start := time.Now()

	var err error
	switch cfg.Mode {
	case config.ModePrice:
		err = runPrice(cfg, os.Stdout)
	case config.ModeConverge:
		err = runConverge(cfg, os.Stdout, os.Stderr)
	case config.ModeExtract:
		err = runExtract(cfg)
	case config.ModeSmile:
		err = runSmile(ctx, cfg, os.Stdout, os.Stderr)
	case config.ModeServe:
		gin.SetMode(cfg.Server.GinMode)
		err = server.NewServer(cfg.Server.MaxSteps).Start(cfg.Server.Addr)
	default:
		err = fmt.Errorf("unknown mode %q", cfg.Mode)
	}
	if err != nil {
		logger.Errorf("%s failed after %v: %v", cfg.Mode, time.Since(start), err)
		return err
	}
	logger.Infof("%s finished in %v", cfg.Mode, time.Since(start))
	return nil
}
