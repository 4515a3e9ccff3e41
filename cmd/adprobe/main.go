// CLAUDE:SUMMARY CLI entry point for adprobe: visits sites from a YAML config or a single URL and runs the ad/privacy/prebid commands.
// Command adprobe visits sites with a stealth Chrome, clicks Prebid.js ad
// slots, follows privacy disclosure links and records bids.
//
// Usage:
//
//	adprobe -config adprobe.yaml                                # crawl sites from YAML config
//	adprobe -url https://example.com                            # default command sequence, stdout sink
//	adprobe -url https://example.com -commands prebids,ads      # chosen commands
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/adprobe/probe"
)

func main() {
	configPath := flag.String("config", "", "path to adprobe.yaml config file")
	singleURL := flag.String("url", "", "visit a single URL (stdout sink unless -config names sinks)")
	commands := flag.String("commands", "", "comma-separated commands for -url: "+strings.Join(probe.CommandNames(), ", "))
	dataDir := flag.String("data-dir", "", "artifact root (overrides config data_dir)")
	strategy := flag.String("strategy", "", "ad slot click strategy: point | frame (overrides config)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *configPath == "" && *singleURL == "" {
		fmt.Fprintln(os.Stderr, "usage: adprobe -config <file> | -url <url> [-commands a,b]")
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath, *singleURL, *commands, *dataDir, *strategy)
	if err != nil {
		logger.Error("adprobe: config", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("adprobe: fatal", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, if any, and applies the flag overrides.
// -url replaces the configured site list.
func loadConfig(path, url, commands, dataDir, strategy string) (*probe.Config, error) {
	cfg := &probe.Config{}
	if path != "" {
		c, err := probe.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}

	if url != "" {
		site := probe.SiteConfig{URL: url}
		if commands != "" {
			site.Commands = strings.Split(commands, ",")
		}
		cfg.Sites = []probe.SiteConfig{site}
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if strategy != "" {
		cfg.Interaction.Strategy = strategy
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, logger *slog.Logger, cfg *probe.Config) error {
	sinks, err := probe.OpenSinks(cfg, nil, logger)
	if err != nil {
		return err
	}

	r, err := probe.New(cfg, logger, sinks...)
	if err != nil {
		for _, s := range sinks {
			s.Close()
		}
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			logger.Warn("adprobe: shutdown", "error", err)
		}
	}()

	logger.Info("adprobe: starting", "sites", len(cfg.Sites), "data_dir", cfg.DataDir,
		"strategy", cfg.Interaction.Strategy, "sinks", len(sinks))
	return r.Run(ctx)
}
