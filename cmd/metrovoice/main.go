// Command metrovoice runs the dyslexia-friendly metro navigation assistant.
//
// Without a subcommand it serves the HTTP API. Two one-shot subcommands are
// available for terminal use:
//
//	metrovoice plan -from "Central" -to "Park Street"     print the plan JSON
//	metrovoice narrate -from "Central" -to "Park Street"  speak the plan
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"

	"metrovoice/internal/app"
	"metrovoice/internal/config"
	"metrovoice/internal/observe"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// A missing .env is fine; the config file can carry literal values.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "metrovoice: load .env: %v\n", err)
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "metrovoice: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "metrovoice: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	slog.SetDefault(newLogger(cfg.Server.LogLevel))

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch flag.Arg(0) {
	case "plan":
		return runPlan(ctx, cfg, flag.Args()[1:], false)
	case "narrate":
		return runPlan(ctx, cfg, flag.Args()[1:], true)
	case "":
		return runServe(ctx, cfg, *configPath)
	default:
		fmt.Fprintf(os.Stderr, "metrovoice: unknown subcommand %q (want plan or narrate)\n", flag.Arg(0))
		return 2
	}
}

// runServe starts the HTTP service and blocks until a shutdown signal.
func runServe(ctx context.Context, cfg *config.Config, configPath string) int {
	slog.Info("metrovoice starting",
		"config", configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create instruments", "err", err)
		return 1
	}

	application, err := app.New(ctx, cfg, app.WithMetrics(metrics))
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// runPlan resolves one route and either prints the plan or narrates it.
func runPlan(ctx context.Context, cfg *config.Config, args []string, narrate bool) int {
	name := "plan"
	if narrate {
		name = "narrate"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	from := fs.String("from", "", "start station")
	to := fs.String("to", "", "destination station")
	fs.Parse(args)

	application, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		application.Shutdown(shutdownCtx)
	}()

	np, err := application.Plan(ctx, *from, *to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "metrovoice: %v\n", err)
		return 1
	}
	if np == nil {
		fmt.Fprintf(os.Stderr, "metrovoice: no route from %q to %q\n", *from, *to)
		return 1
	}

	if !narrate {
		out, err := json.MarshalIndent(np, "", "  ")
		if err != nil {
			slog.Error("encode plan", "err", err)
			return 1
		}
		fmt.Println(string(out))
		return 0
	}

	if err := application.Narrate(ctx, np); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "metrovoice: %v\n", err)
		return 1
	}
	return 0
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
