package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"livelits/internal/config"
	"livelits/internal/slogutil"
	"livelits/internal/version"
)

var (
	// rootDir is the project root holding .livelits/
	rootDir   string
	verbosity int
	quiet     bool
)

var rootCmd = &cobra.Command{
	Use:   "livelits",
	Short: "livelits - live literal tracking",
	Long: `livelits finds the literal constants in Go, Kotlin, Java and JavaScript sources,
follows them across edits and publishes changed values to a remapping store so a
running program can pick them up without a rebuild.`,
	Version:       version.Short(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("livelits version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root containing .livelits/")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all logging")
}

func loadConfig() (*config.Config, error) {
	return config.LoadConfig(rootDir)
}

// newLogger builds the command logger. Verbosity flags override the configured
// level. With a log file configured, records go to the file and warnings are
// also echoed to stderr.
func newLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	level := slogutil.LevelFromString(cfg.Logging.Level)
	if verbosity > 0 || quiet {
		level = slogutil.LevelFromVerbosity(verbosity, quiet)
	}
	format := slogutil.Format(cfg.Logging.Format)

	if cfg.Logging.File != "" {
		fileLogger, f, err := slogutil.NewFileLogger(cfg.Logging.File, format, level)
		if err != nil {
			return nil, nil, err
		}
		if quiet {
			return fileLogger, f, nil
		}
		stderr := slogutil.NewLineHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
		return slog.New(slogutil.NewTeeHandler(fileLogger.Handler(), stderr)), f, nil
	}
	return slogutil.New(os.Stderr, format, level), io.NopCloser(nil), nil
}

// newContext returns a context cancelled on SIGINT or SIGTERM.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
