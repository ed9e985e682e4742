package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/theanmol-raj/qnagen/internal/config"
	"github.com/theanmol-raj/qnagen/internal/store"
)

// cfg is loaded once before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "qnagen",
	Short: "Generate question/answer pairs for every row of a spreadsheet",
	Long: "qnagen renders a prompt template for each Questions/Answers row of a spreadsheet,\n" +
		"sends it to OpenAI, Anthropic, Google or an Anthropic model gateway, and appends\n" +
		"the generated question and answer as new columns.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (default $XDG_CONFIG_HOME/qnagen/config.yaml)")
	rootCmd.PersistentFlags().String("env-file", "", "Path to .env file (default ./.env)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite run log (overrides QNAGEN_DB env var)")
	rootCmd.PersistentFlags().Bool("no-history", false, "Do not record runs in the run log")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(sheetsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads configuration, applies persistent flags and installs the
// default logger.
func setup(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")

	c, err := config.Load(config.Options{ConfigPath: configPath, DotEnvPath: envFile})
	if err != nil {
		return err
	}

	if p, _ := cmd.Flags().GetString("db"); p != "" {
		c.DB = p
	}
	if cmd.Flags().Changed("no-history") {
		c.NoHistory, _ = cmd.Flags().GetBool("no-history")
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		c.LogLevel = "debug"
	}
	cfg = c

	slog.SetDefault(newLogger(c.LogLevel))
	return nil
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// resolveDBPath returns the run log path: config/flag value first, then
// the default XDG path.
func resolveDBPath() (string, error) {
	if cfg.DB != "" {
		return cfg.DB, store.EnsureDir(cfg.DB)
	}
	return store.DefaultDBPath()
}

// history is the run log handle used by batch commands.
type history struct {
	runs   store.RunRepo
	events store.EventRepo
	close  func() error
}

// openHistory opens the run log, or a no-op log when history is disabled.
// A run log that cannot be opened is reported and replaced by the no-op log.
func openHistory() history {
	nop := history{runs: store.NopStore{}, close: func() error { return nil }}
	if cfg.NoHistory {
		return nop
	}

	dbPath, err := resolveDBPath()
	if err != nil {
		slog.Warn("run log unavailable", "error", err)
		return nop
	}
	s, err := store.Open(dbPath)
	if err != nil {
		slog.Warn("run log unavailable", "path", dbPath, "error", err)
		return nop
	}
	return history{runs: s.RunRepo(), events: s.EventRepo(), close: s.Close}
}

// openStore opens the run log for inspection commands.
func openStore() (*store.Store, error) {
	dbPath, err := resolveDBPath()
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}
