package main

import (
	"context"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/code-mirror/mirror/internal/app"
	"github.com/code-mirror/mirror/internal/config"
	"github.com/code-mirror/mirror/internal/editor"
	"github.com/code-mirror/mirror/internal/metrics"
	"github.com/code-mirror/mirror/internal/session"
	flag "github.com/spf13/pflag"
)

func main() {
	configPath := flag.String("config", "mirror.yaml", "Path to config file")
	relayURL := flag.String("url", "", "Override relay session URL")
	insecure := flag.Bool("insecure", false, "Skip TLS certificate verification for the relay")
	logFile := flag.String("log-file", "", "Override log file path")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] [file ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		fatal(err)
	}
	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fatal(fmt.Errorf("load config: %w", err))
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		fatal(err)
	}

	if *relayURL != "" {
		cfg.Server.URL = *relayURL
	}
	if flag.CommandLine.Changed("insecure") {
		cfg.Server.InsecureSkipVerify = *insecure
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		fatal(fmt.Errorf("invalid config: %w", err))
	}

	bufs, err := app.LoadBuffers(flag.Args())
	if err != nil {
		fatal(err)
	}

	// The terminal belongs to the TUI from here on.
	f, err := tea.LogToFile(cfg.Log.File, "mirror ")
	if err != nil {
		fatal(fmt.Errorf("open log file: %w", err))
	}
	defer f.Close()
	logger := log.Default()
	if cfg.Server.InsecureSkipVerify {
		logger.Printf("TLS certificate verification disabled for %s", cfg.Server.URL)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collector := metrics.New()
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := collector.Serve(ctx, cfg.Metrics.Addr, logger); err != nil {
				logger.Printf("metrics: %v", err)
			}
		}()
	}

	hub := app.NewHub()
	pump := app.NewNoticePump(0)
	sess := session.New(hub, session.Config{
		URL:       cfg.Server.URL,
		Transport: cfg.TransportOptions(),
		InboxSize: cfg.Session.InboxSize,
		Logger:    logger,
		Observer:  session.Observers(pump.Observe, collector.Observe),
	})
	adapter := editor.Bind(hub, sess, logger)

	m := app.New(app.Options{
		Hub:      hub,
		Commands: adapter,
		Buffers:  bufs,
		RelayURL: cfg.Server.URL,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	go pump.Run(ctx, p.Send)

	_, runErr := p.Run()

	adapter.Close()
	sess.Close()
	logger.Printf("exiting, %d notice(s) dropped by the UI", pump.Dropped())

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
