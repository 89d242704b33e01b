package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/areebasiddiqi/triarb/config"
	"github.com/areebasiddiqi/triarb/internal/adapters/binance"
	"github.com/areebasiddiqi/triarb/internal/adapters/notify"
	"github.com/areebasiddiqi/triarb/internal/adapters/storage"
	"github.com/areebasiddiqi/triarb/internal/application/executor"
	"github.com/areebasiddiqi/triarb/internal/application/risk"
	"github.com/areebasiddiqi/triarb/internal/application/scanner"
	"github.com/areebasiddiqi/triarb/internal/domain"
	"github.com/areebasiddiqi/triarb/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one scan cycle and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full opportunity table (default: compact 1-line)")
	statsDays := flag.Int("stats", 0, "print performance stats for the last N days and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("arbot starting",
		"config", *configPath,
		"base", cfg.Scanner.BaseCurrency,
		"interval", cfg.ScanInterval(),
		"trading", cfg.Scanner.EnableTrading,
		"once", *once,
	)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	console := notify.NewConsole(*table || cfg.Notifications.Table, cfg.Notifications.Quiet)

	if *statsDays > 0 {
		printStats(store, console, *statsDays)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := binance.NewClient(
		cfg.Exchange.RESTBase,
		cfg.Exchange.APIKey,
		cfg.Exchange.APISecret,
		cfg.Exchange.TakerFeeRate,
	)

	markets, err := client.FetchMarkets(ctx)
	if err != nil {
		slog.Error("failed to fetch markets", "err", err)
		os.Exit(1)
	}

	paths, err := domain.BuildPaths(markets, cfg.Scanner.BaseCurrency)
	if err != nil {
		if errors.Is(err, domain.ErrNoTriangularPaths) {
			slog.Error("no triangular paths for base currency",
				"base", cfg.Scanner.BaseCurrency, "markets", len(markets))
		} else {
			slog.Error("failed to build path catalog", "err", err)
		}
		os.Exit(1)
	}

	detector := scanner.NewDetector(paths, cfg.Scanner.InputAmount, cfg.Scanner.MinProfitPct, cfg.Scanner.Workers)
	slog.Info("path catalog built", "markets", len(markets), "paths", detector.CatalogSize())

	if cfg.Exchange.UseStream {
		stream := binance.NewBookTickerStream(cfg.Exchange.WSBase, detector.Symbols())
		client.WithStream(stream)
		go stream.Run(ctx)
	}

	state, err := store.LoadRiskState(ctx)
	if err != nil {
		slog.Error("failed to load risk state", "err", err)
		os.Exit(1)
	}
	riskMgr := risk.New(risk.Config{
		MaxDailyTrades:       cfg.Risk.MaxDailyTrades,
		CooldownPeriod:       cfg.CooldownPeriod(),
		MaxTradeAmount:       cfg.Risk.MaxTradeAmount,
		MaxPositionSize:      cfg.Risk.MaxPositionSize,
		MaxConsecutiveLosses: cfg.Risk.MaxConsecutiveLosses,
	}, state)

	engine := executor.New(client, riskMgr, executor.Config{LegTimeout: cfg.LegTimeout()})

	sinks := []ports.Notifier{console}
	if cfg.Notifications.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhook(cfg.Notifications.WebhookURL))
	}
	notifier := notify.NewMulti(sinks...)

	s := scanner.New(
		scanner.Config{
			ScanInterval:         cfg.ScanInterval(),
			InputAmount:          cfg.Scanner.InputAmount,
			MinProfitForAlertPct: cfg.Scanner.MinProfitForAlertPct,
			EnableTrading:        cfg.Scanner.EnableTrading,
			Once:                 *once,
		},
		client, detector, riskMgr, engine, notifier, store,
	)

	if err := s.Run(ctx); err != nil {
		slog.Error("scanner exited with error", "err", err)
		os.Exit(1)
	}

	printStats(store, console, 7)
	slog.Info("arbot stopped cleanly")
}

// printStats prints the aggregated performance summary from storage.
func printStats(store *storage.SQLiteStorage, console *notify.Console, days int) {
	stats, err := store.GetStats(context.Background(), days)
	if err != nil {
		slog.Warn("failed to load stats", "err", err)
		return
	}
	console.PrintStats(stats)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
