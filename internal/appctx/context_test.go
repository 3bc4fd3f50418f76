package appctx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmd-analytics/reportbuilder/internal/config"
	"github.com/bmd-analytics/reportbuilder/internal/observability"
	"github.com/bmd-analytics/reportbuilder/internal/output"
	"github.com/bmd-analytics/reportbuilder/internal/resilience"
)

func TestNewApp(t *testing.T) {
	cfg := config.Default()
	app := NewApp(cfg)

	require.NotNil(t, app)
	assert.Same(t, cfg, app.Config)
	assert.NotNil(t, app.Auth)
	assert.NotNil(t, app.API)
	assert.NotNil(t, app.Output)
	assert.NotNil(t, app.Logger)
	assert.NotNil(t, app.Collector)
	assert.NotNil(t, app.Hooks)
	assert.Equal(t, 0, app.Hooks.Level())
}

func TestWithAppAndFromContext(t *testing.T) {
	app := NewApp(config.Default())
	ctx := WithApp(context.Background(), app)

	assert.Same(t, app, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
}

func TestApplyFlagsFormats(t *testing.T) {
	tests := []struct {
		name  string
		flags GlobalFlags
		want  output.Format
	}{
		{"json", GlobalFlags{JSON: true}, output.FormatJSON},
		{"quiet", GlobalFlags{Quiet: true}, output.FormatQuiet},
		{"ids", GlobalFlags{IDsOnly: true}, output.FormatIDs},
		{"count", GlobalFlags{Count: true}, output.FormatCount},
		{"styled", GlobalFlags{Styled: true}, output.FormatStyled},
		{"markdown", GlobalFlags{MD: true}, output.FormatMarkdown},
		{"ids beats json", GlobalFlags{IDsOnly: true, JSON: true}, output.FormatIDs},
		{"quiet beats json", GlobalFlags{Quiet: true, JSON: true}, output.FormatQuiet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := NewApp(config.Default())
			app.Flags = tt.flags
			app.ApplyFlags()
			assert.Equal(t, tt.want, app.Output.Format())
		})
	}
}

func TestApplyFlagsKeepsConfigFormat(t *testing.T) {
	cfg := config.Default()
	cfg.Format = "json"
	app := NewApp(cfg)
	app.ApplyFlags()
	assert.Equal(t, output.FormatJSON, app.Output.Format())
}

func TestApplyFlagsVerbose(t *testing.T) {
	t.Setenv(DebugEnv, "")
	app := NewApp(config.Default())
	app.Flags.Verbose = 2
	app.ApplyFlags()

	assert.Equal(t, 2, app.Hooks.Level())
	assert.True(t, app.Logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestVerboseLevel(t *testing.T) {
	tests := []struct {
		flag int
		env  string
		want int
	}{
		{0, "", 0},
		{1, "", 1},
		{0, "1", 1},
		{2, "1", 2},
		{0, "true", 2},
		{1, "nope", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VerboseLevel(tt.flag, tt.env), "flag=%d env=%q", tt.flag, tt.env)
	}
}

func TestRequestPacer(t *testing.T) {
	cfg := config.Default()
	assert.Nil(t, RequestPacer(cfg), "fixed pacing leaves requests unpaced")

	cfg.Pacing = config.PacingBucket
	cfg.StateDir = t.TempDir()
	p := RequestPacer(cfg)
	require.NotNil(t, p)
	_, ok := p.(*resilience.TokenBucket)
	assert.True(t, ok)
}

func TestAuthoringDelay(t *testing.T) {
	cfg := config.Default()
	cfg.PacingDelayMS = 350
	assert.Equal(t, 350*time.Millisecond, NewApp(cfg).AuthoringDelay())
}

func TestAppOKStats(t *testing.T) {
	for _, stats := range []bool{false, true} {
		app := NewApp(config.Default())
		var buf bytes.Buffer
		app.Output = output.New(output.Options{Format: output.FormatJSON, Writer: &buf})
		app.Flags.Stats = stats
		app.Collector.RecordOperation(observability.OperationInfo{Operation: "create_visual"}, nil)

		require.NoError(t, app.OK(map[string]string{"test": "data"}))

		var resp map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		meta, _ := resp["meta"].(map[string]any)
		assert.Equal(t, stats, meta["stats"] != nil, "stats=%v", stats)
	}
}

func TestAppErr(t *testing.T) {
	app := NewApp(config.Default())
	var buf bytes.Buffer
	app.Output = output.New(output.Options{Format: output.FormatJSON, Writer: &buf})

	require.NoError(t, app.Err(output.ErrAuth("no token")))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, false, resp["ok"])
	assert.Equal(t, output.CodeAuth, resp["code"])
}

func TestIsMachineOutput(t *testing.T) {
	tests := []struct {
		name   string
		flags  GlobalFlags
		format string
		want   bool
	}{
		{"default", GlobalFlags{}, "auto", false},
		{"json", GlobalFlags{JSON: true}, "auto", false},
		{"quiet flag", GlobalFlags{Quiet: true}, "auto", true},
		{"ids", GlobalFlags{IDsOnly: true}, "auto", true},
		{"count", GlobalFlags{Count: true}, "auto", true},
		{"quiet config", GlobalFlags{}, "quiet", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Format = tt.format
			app := NewApp(cfg)
			app.Flags = tt.flags
			assert.Equal(t, tt.want, app.isMachineOutput())
		})
	}
}

func TestIsInteractiveFalseInMachineModes(t *testing.T) {
	for _, flags := range []GlobalFlags{{JSON: true}, {Quiet: true}, {IDsOnly: true}, {Count: true}} {
		app := NewApp(config.Default())
		app.Flags = flags
		assert.False(t, app.IsInteractive())
	}
}
