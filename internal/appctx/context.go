// Package appctx provides application context helpers.
package appctx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bmd-analytics/reportbuilder/internal/api"
	"github.com/bmd-analytics/reportbuilder/internal/auth"
	"github.com/bmd-analytics/reportbuilder/internal/config"
	"github.com/bmd-analytics/reportbuilder/internal/observability"
	"github.com/bmd-analytics/reportbuilder/internal/output"
	"github.com/bmd-analytics/reportbuilder/internal/resilience"
)

// DebugEnv raises verbosity the same way -v does.
const DebugEnv = "REPORTBUILDER_DEBUG"

// contextKey is a private type for context keys.
type contextKey string

const appKey contextKey = "app"

// App holds the shared application context for all commands.
type App struct {
	Config *config.Config
	Auth   *auth.Resolver
	API    *api.Client
	Output *output.Writer
	Logger *slog.Logger

	// Observability
	Collector *observability.SessionCollector
	Hooks     *observability.CLIHooks

	// Flags holds the global flag values
	Flags GlobalFlags
}

// GlobalFlags holds values for global CLI flags.
type GlobalFlags struct {
	// Output format flags
	JSON    bool
	Quiet   bool
	MD      bool // Literal Markdown syntax output
	Styled  bool // Force ANSI styled output (even when piped)
	IDsOnly bool
	Count   bool

	// Target flags
	Workspace string
	Dataset   string
	Catalog   string
	Pacing    string

	// Behavior flags
	Verbose int // 0=off, 1=operations, 2=operations+requests (stacks with -v -v or -vv)
	Stats   bool
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config) *App {
	// Collector always runs to gather stats; hooks control output verbosity.
	// ApplyFlags sets the actual level from -v flags.
	collector := observability.NewSessionCollector()
	traceWriter := observability.NewTraceWriter()
	hooks := observability.NewCLIHooks(0, collector, traceWriter)

	resolver := auth.NewResolver(cfg.CredentialHelper)
	opts := []api.Option{api.WithHooks(hooks)}
	if p := RequestPacer(cfg); p != nil {
		opts = append(opts, api.WithPacer(p))
	}

	return &App{
		Config:    cfg,
		Auth:      resolver,
		API:       api.NewClient(cfg, resolver, opts...),
		Logger:    newLogger(slog.LevelWarn),
		Collector: collector,
		Hooks:     hooks,
		Output: output.New(output.Options{
			Format: output.ParseFormat(cfg.Format),
			Writer: os.Stdout,
		}),
	}
}

// RequestPacer returns the pacer that gates control-plane requests, or nil
// when requests are not paced. Only the bucket strategy paces requests; it
// shares its state with other processes through the state directory.
func RequestPacer(cfg *config.Config) resilience.Pacer {
	if cfg.Pacing != config.PacingBucket {
		return nil
	}
	return RequestBucket(cfg)
}

// RequestBucket returns the shared token bucket sized from cfg.
func RequestBucket(cfg *config.Config) *resilience.TokenBucket {
	bucket := resilience.BucketConfig{}
	if cfg.PacingDelayMS > 0 {
		bucket.RefillPerSecond = 1000 / float64(cfg.PacingDelayMS)
	}
	return resilience.NewTokenBucket(resilience.NewStore(cfg.StateDir), bucket)
}

// AuthoringDelay is the pause between visuals in authoring scripts.
func (a *App) AuthoringDelay() time.Duration {
	return time.Duration(a.Config.PacingDelayMS) * time.Millisecond
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// ApplyFlags applies global flag values to the app configuration.
func (a *App) ApplyFlags() {
	// Order matters: specific modes first.
	var format output.Format
	switch {
	case a.Flags.IDsOnly:
		format = output.FormatIDs
	case a.Flags.Count:
		format = output.FormatCount
	case a.Flags.Quiet:
		format = output.FormatQuiet
	case a.Flags.JSON:
		format = output.FormatJSON
	case a.Flags.Styled:
		// Force ANSI styled output (even when piped)
		format = output.FormatStyled
	case a.Flags.MD:
		// Literal Markdown syntax (portable, pipeable to glow/bat)
		format = output.FormatMarkdown
	default:
		format = output.FormatAuto
	}
	if format != output.FormatAuto {
		a.Output = output.New(output.Options{Format: format, Writer: os.Stdout})
	}

	verboseLevel := VerboseLevel(a.Flags.Verbose, os.Getenv(DebugEnv))
	if a.Hooks != nil {
		a.Hooks.SetLevel(verboseLevel)
	}
	if verboseLevel > 0 {
		a.Logger = newLogger(slog.LevelDebug)
	}
}

// VerboseLevel combines the -v count with the debug environment variable,
// which can be "1", "2", or "true" (treated as 2).
func VerboseLevel(flag int, env string) int {
	level := flag
	if env == "" {
		return level
	}
	if n, err := strconv.Atoi(env); err == nil {
		if n > level {
			level = n
		}
	} else if env == "true" {
		level = 2
	}
	return level
}

// OK outputs a success response, automatically including stats if --stats flag is set.
func (a *App) OK(data any, opts ...output.ResponseOption) error {
	if a.Flags.Stats && a.Collector != nil {
		stats := a.Collector.Summary()
		opts = append(opts, output.WithStats(&stats))
	}
	return a.Output.OK(data, opts...)
}

// Err outputs an error response, printing stats to stderr if --stats flag is set.
func (a *App) Err(err error) error {
	if outputErr := a.Output.Err(err); outputErr != nil {
		return outputErr
	}

	// Machine-consumable modes keep stderr quiet.
	if a.Flags.Stats && a.Collector != nil && !a.isMachineOutput() {
		stats := a.Collector.Summary()
		a.printStatsToStderr(&stats)
	}
	return nil
}

// isMachineOutput returns true if the output mode is intended for programmatic consumption.
// Checks both flags and config-driven format settings.
func (a *App) isMachineOutput() bool {
	if a.Flags.Quiet || a.Flags.IDsOnly || a.Flags.Count {
		return true
	}
	return a.Config != nil && a.Config.Format == "quiet"
}

// printStatsToStderr outputs a compact stats line to stderr.
func (a *App) printStatsToStderr(stats *observability.SessionMetrics) {
	if parts := stats.FormatParts(); len(parts) > 0 {
		fmt.Fprintf(os.Stderr, "\nStats: %s\n", strings.Join(parts, " | "))
	}
}

// Warn prints a warning line to stderr.
func (a *App) Warn(msg string) {
	fmt.Fprintf(os.Stderr, "warning: %s\n", msg)
}

// IsInteractive returns true if the terminal supports interactive prompts.
func (a *App) IsInteractive() bool {
	if a.Flags.JSON || a.Flags.Quiet || a.Flags.IDsOnly || a.Flags.Count {
		return false
	}
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// WithApp stores the app in the context.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

// FromContext retrieves the app from the context.
func FromContext(ctx context.Context) *App {
	app, _ := ctx.Value(appKey).(*App)
	return app
}
