package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/matchwatch"
	"github.com/jpalmerr/matchwatch/config"
	"github.com/jpalmerr/matchwatch/diagnostics"
)

// app holds everything a long-running command needs: the loaded settings,
// the credential and the diagnostics sinks shared by the loader and the
// tracker.
type app struct {
	configPath string
	cfg        *config.Config
	token      matchwatch.AccessToken
	logger     *slog.Logger
	echo       bool

	ring    *diagnostics.Ring
	file    *diagnostics.File
	journal *diagnostics.Journal
	redis   *redis.Client
}

// logTarget says where process logs go.
type logTarget struct {
	// build creates the logger once the diagnostics log file is open.
	build func(logFile io.Writer, level slog.Level) *slog.Logger

	// echo also forwards diagnostics to the logger. Off when the logger
	// writes into the diagnostics file itself.
	echo bool
}

var (
	headless    = logTarget{build: jsonLogger, echo: true}
	intoLogFile = logTarget{build: fileLogger}
)

// jsonLogger logs JSON to stderr, for headless commands.
func jsonLogger(_ io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// fileLogger logs text into the diagnostics log file, for commands that own
// the terminal.
func fileLogger(logFile io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: level}))
}

// loadSettings reads the configuration for cmd.
//
// A missing file is not an error: the defaults are used and the credential
// loader later records the "Config file not found" diagnostic.
func loadSettings(cmd *cobra.Command) (string, *config.Config, error) {
	// existing environment variables win over .env
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", nil, fmt.Errorf("failed to load .env: %w", err)
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = config.Default()
	case err != nil:
		return "", nil, fmt.Errorf("invalid config: %w", err)
	}
	return path, cfg, nil
}

// newApp loads the configuration, opens the diagnostics sinks and reads the
// credential. The caller must call close.
func newApp(cmd *cobra.Command, target logTarget) (*app, error) {
	path, cfg, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = slog.LevelDebug
	}

	file, err := diagnostics.OpenFile(cfg.LogFile)
	if err != nil {
		return nil, err
	}

	a := &app{
		configPath: path,
		cfg:        cfg,
		logger:     target.build(file, level),
		echo:       target.echo,
		ring:       diagnostics.NewRing(0),
		file:       file,
	}

	if cfg.Journal != "" {
		j, err := diagnostics.OpenJournal(cfg.Journal, a.logger)
		if err != nil {
			a.close()
			return nil, err
		}
		a.journal = j
	}

	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	}

	a.token = config.LoadCredential(path, diagnostics.Multi(a.sinks()...))
	return a, nil
}

// sinks returns every diagnostics sink used while loading the credential.
func (a *app) sinks() []diagnostics.Sink {
	return append([]diagnostics.Sink{a.ring}, a.persistentSinks()...)
}

// persistentSinks returns the sinks outside the ring: the log file, the
// optional journal and, when echo is on, the process logger.
func (a *app) persistentSinks() []diagnostics.Sink {
	sinks := []diagnostics.Sink{a.file}
	if a.journal != nil {
		sinks = append(sinks, a.journal)
	}
	if a.echo {
		sinks = append(sinks, diagnostics.NewLogger(a.logger))
	}
	return sinks
}

// options converts the configuration into tracker options.
// port overrides the configured dashboard port when positive.
func (a *app) options(port int) []matchwatch.Option {
	opts := []matchwatch.Option{
		matchwatch.WithToken(a.token),
		matchwatch.WithEndpoint(a.cfg.Endpoint),
		matchwatch.WithPollingInterval(a.cfg.PollInterval.Duration()),
		matchwatch.WithTimeout(a.cfg.Timeout.Duration()),
		matchwatch.WithLogger(a.logger),
		matchwatch.WithDiagnosticsRing(a.ring),
		matchwatch.WithTitle(a.cfg.Dashboard.Title),
	}
	for _, sink := range a.persistentSinks() {
		opts = append(opts, matchwatch.WithDiagnostics(sink))
	}
	if port <= 0 {
		port = a.cfg.Dashboard.Port
	}
	if port > 0 {
		opts = append(opts, matchwatch.WithDashboard(port))
	}
	if a.redis != nil {
		opts = append(opts, matchwatch.WithRedisRelay(a.redis, a.cfg.Redis.Channel))
	}
	return opts
}

// close releases the sinks. Errors are logged, not returned.
func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis client", "error", err)
		}
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("failed to close diagnostics journal", "error", err)
		}
	}
	if err := a.file.Close(); err != nil {
		a.logger.Warn("failed to close log file", "error", err)
	}
}
