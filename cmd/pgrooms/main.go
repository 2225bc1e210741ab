// Package main provides the pgrooms command line client.
// It drives the PG-rooms rental API through the typed request pipeline.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/pgrooms/client"
	"github.com/c360studio/pgrooms/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "pgrooms"
)

const shutdownTimeout = 5 * time.Second

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		var shown *shownError
		if !errors.As(err, &shown) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// globalFlags are the persistent root flags.
type globalFlags struct {
	configPath  string
	logLevel    string
	baseURL     string
	metricsAddr string
}

// shownError marks a failure the user has already seen as a notification.
type shownError struct {
	err error
}

func (e *shownError) Error() string { return e.err.Error() }
func (e *shownError) Unwrap() error { return e.err }

func rootCmd(out, errOut io.Writer) *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "PG rooms rental client",
		Long: `pgrooms talks to the PG rooms rental API.

Failures are shown once as notifications; connectivity errors are retried
twice with exponential backoff before they are reported.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&flags.baseURL, "base-url", "", "API base URL (overrides config and "+config.EnvBaseURL+")")
	cmd.PersistentFlags().StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the command runs")

	cmd.AddCommand(
		loginCmd(flags),
		logoutCmd(flags),
		profileCmd(flags),
		propertyCmd(flags),
		roomCmd(flags),
		tenantCmd(flags),
		paymentCmd(flags),
		dashboardCmd(flags),
		locationsCmd(flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

func newLogger(level string, w io.Writer) *slog.Logger {
	l := slog.LevelWarn
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "error":
		l = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

func loadConfig(flags *globalFlags, logger *slog.Logger) (*config.Config, error) {
	loader := config.NewLoader(logger)
	loader.Override(func(cfg *config.Config) {
		if flags.baseURL != "" {
			cfg.API.BaseURL = flags.baseURL
		}
		if flags.metricsAddr != "" {
			cfg.Metrics.Addr = flags.metricsAddr
		}
	})

	if flags.configPath != "" {
		return loader.LoadFile(flags.configPath)
	}
	return loader.Load()
}

// action is the body of an API subcommand. A nil result prints nothing.
type action func(ctx context.Context, cmd *cobra.Command, app *App) (any, error)

// withApp builds the App around fn and prints its result as indented JSON.
func withApp(flags *globalFlags, fn action) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		errOut := cmd.ErrOrStderr()
		logger := newLogger(flags.logLevel, errOut)
		slog.SetDefault(logger)

		cfg, err := loadConfig(flags, logger)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		app, err := NewApp(cfg, logger, errOut)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := app.Start(ctx); err != nil {
			app.Shutdown(shutdownTimeout)
			return err
		}
		defer app.Shutdown(shutdownTimeout)

		before := len(app.Notifications())
		result, err := fn(ctx, cmd, app)
		if err != nil {
			return describe(err, len(app.Notifications()) > before)
		}
		if result == nil {
			return nil
		}
		return printJSON(cmd.OutOrStdout(), result)
	}
}

// describe turns a pipeline failure into the error printed by main. Failures
// already shown as a notification are not printed again.
func describe(err error, notified bool) error {
	if notified {
		return &shownError{err: err}
	}
	if errors.Is(err, context.Canceled) {
		return errors.New("canceled")
	}
	if e, ok := client.AsError(err); ok && e.Message != "" {
		return errors.New(e.Message)
	}
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
