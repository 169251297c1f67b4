package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"syscall"

	"github.com/rainsave/rainsave/internal/api"
	"github.com/rainsave/rainsave/internal/cli"
	"github.com/rainsave/rainsave/internal/config"
	"github.com/rainsave/rainsave/internal/logging"
	"github.com/rainsave/rainsave/internal/metrics"
	"github.com/rainsave/rainsave/internal/orchestrator"
	"github.com/rainsave/rainsave/internal/storage"
	"github.com/rainsave/rainsave/internal/types"
	"github.com/rainsave/rainsave/internal/version"
)

func main() {
	os.Exit(run())
}

var closeStdinOnce sync.Once

func run() int {
	bootstrap := logging.NewBootstrapLogger()

	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			bootstrap.Error("PANIC: %v", r)
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, stack)
			os.Exit(types.ExitPanicError.Int())
		}
	}()

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT (Ctrl+C) and SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		bootstrap.Warning("\nReceived signal %v, shutting down...", sig)
		cancel()
		closeStdinOnce.Do(func() {
			if file := os.Stdin; file != nil {
				_ = file.Close()
			}
		})
	}()

	// Parse command-line arguments
	args := cli.Parse()

	if args.ShowVersion {
		cli.ShowVersion()
		return types.ExitSuccess.Int()
	}
	if args.ShowHelp {
		cli.ShowHelp()
		return types.ExitSuccess.Int()
	}

	if args.BackupSet && args.RestoreSet && args.Backup && args.Restore {
		bootstrap.Error("Cannot use --backup and --restore together. Choose one mode.")
		return types.ExitConfigError.Int()
	}

	// Load configuration
	bootstrap.Debug("Loading configuration from: %s (%s)", args.ConfigPath, args.ConfigPathSource)
	cfg, err := config.LoadConfig(args.ConfigPath)
	if err != nil {
		bootstrap.Error("ERROR: Failed to load configuration: %v", err)
		return types.ExitConfigError.Int()
	}
	cfg.ApplyArgs(args)

	if err := cfg.Validate(); err != nil {
		bootstrap.Error("ERROR: %v", err)
		return types.ExitConfigError.Int()
	}

	// Build the main logger now that level and color are known
	logger := logging.New(cfg.DebugLevel, cfg.UseColor)
	if cfg.LogPath != "" {
		if err := logger.OpenLogFile(cfg.LogPath); err != nil {
			bootstrap.Warning("Cannot open log file: %v", err)
		} else {
			defer logger.CloseLogFile()
		}
	}
	bootstrap.SetLevel(cfg.DebugLevel)
	bootstrap.Flush(logger)

	logger.Info("rainsave %s", version.String())
	if !cfg.VerifyTLS {
		logger.Warning("TLS certificate verification is DISABLED for %s", cfg.Host)
	}

	client := api.NewClient(api.ClientConfig{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Password:       cfg.Password,
		VerifyTLS:      cfg.VerifyTLS,
		TimeoutSeconds: cfg.TimeoutSeconds,
	})

	ui := orchestrator.NewWorkflowUI(logger, args.ForceCLI)

	var store *storage.LocalStore
	if cfg.BackupPath != "" {
		store = storage.NewLocalStore(cfg.BackupPath, logger)
	}

	orch := orchestrator.New(cfg, logger, client, ui, store)
	if cfg.MetricsEnabled {
		orch.SetExporter(metrics.NewExporter(cfg.MetricsPath, logger))
	}

	exitCode, err := orch.Run(ctx)
	if err != nil {
		if errors.Is(err, orchestrator.ErrRestoreAborted) {
			return types.ExitSuccess.Int()
		}
		logger.Error("%v", err)
	}

	printFinalSummary(logger, exitCode)
	return exitCode.Int()
}

func printFinalSummary(logger *logging.Logger, exitCode types.ExitCode) {
	warnings := logger.WarningCount()
	errorsSeen := logger.ErrorCount()

	switch {
	case exitCode != types.ExitSuccess:
		logger.Info("Finished with errors (exit code %d: %s)", exitCode.Int(), exitCode)
	case warnings > 0:
		logger.Info("Finished with %d warning(s)", warnings)
	default:
		logger.Info("Finished successfully")
	}
	if errorsSeen > 0 && exitCode == types.ExitSuccess {
		logger.Warning("%d error(s) were logged during the run", errorsSeen)
	}
}
