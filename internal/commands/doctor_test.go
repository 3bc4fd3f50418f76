package commands

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmd-analytics/reportbuilder/internal/appctx"
	"github.com/bmd-analytics/reportbuilder/internal/auth"
	"github.com/bmd-analytics/reportbuilder/internal/config"
)

func checkNamed(t *testing.T, checks []Check, name string) Check {
	t.Helper()
	for _, c := range checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no %q check in %+v", name, checks)
	return Check{}
}

func TestDoctorAllPass(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1.0/myorg/datasets/") {
			_, _ = w.Write([]byte(`{"id":"ds1","name":"BMD Sales"}`))
			return
		}
		_, _ = w.Write([]byte(`{"value":[{"id":"ws1","name":"Sales"}]}`))
	})
	env.app.Config.DatasetID = "ds1"

	checks := runDoctorChecks(context.Background(), env.app, true)

	assert.Equal(t, checkPass, checkNamed(t, checks, "Runtime").Status)
	assert.Equal(t, "Using defaults (no config files)", checkNamed(t, checks, "Config").Message)
	assert.Equal(t, "Token from "+auth.TokenEnv, checkNamed(t, checks, "Credentials").Message)
	assert.Contains(t, checkNamed(t, checks, "API Connectivity").Message, "1 workspaces")
	assert.Equal(t, "BMD Sales (ds1) accessible", checkNamed(t, checks, "Dataset Access").Message)

	result := summarizeChecks(checks)
	assert.Zero(t, result.Failed)
	assert.Equal(t, len(checks), result.Passed)
	assert.Empty(t, buildDoctorBreadcrumbs(checks))
}

func TestDoctorSkipsRemoteChecksWithoutCredentials(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	env := newTestEnv(t, nil)
	t.Setenv(auth.TokenEnv, "")
	env.app.Auth = auth.NewResolver("false")

	checks := runDoctorChecks(context.Background(), env.app, false)

	assert.Equal(t, checkFail, checkNamed(t, checks, "Credentials").Status)
	assert.Equal(t, checkSkip, checkNamed(t, checks, "API Connectivity").Status)
	assert.Equal(t, checkSkip, checkNamed(t, checks, "Dataset Access").Status)
	assert.Empty(t, env.requests())

	crumbs := buildDoctorBreadcrumbs(checks)
	require.Len(t, crumbs, 1)
	assert.Equal(t, "az login", crumbs[0].Cmd)
}

func TestDoctorReportsBrokenConfigAndCatalog(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	require.NoError(t, os.MkdirAll(".reportbuilder", 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(".reportbuilder", "config.json"), []byte("{nope"), 0o600))
	env := newTestEnv(t, nil)
	env.app.Config.Catalog = writeFile(t, "bad.yaml", "pages: [")

	checks := runDoctorChecks(context.Background(), env.app, false)

	assert.Equal(t, checkFail, checkNamed(t, checks, "Local Config").Status)
	assert.Equal(t, checkFail, checkNamed(t, checks, "Catalog").Status)

	var cmds []string
	for _, b := range buildDoctorBreadcrumbs(checks) {
		cmds = append(cmds, b.Cmd)
	}
	assert.Equal(t, []string{"reportbuilder config show", "reportbuilder catalog validate"}, cmds)
}

func TestDoctorPacingCheck(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	env := newTestEnv(t, nil)
	env.app.Config.Pacing = config.PacingBucket

	checks := runDoctorChecks(context.Background(), env.app, false)

	pacing := checkNamed(t, checks, "Pacing")
	assert.Equal(t, checkPass, pacing.Status)
	assert.Contains(t, pacing.Message, "no paced requests yet")
	assert.Contains(t, pacing.Message, env.app.Config.StateDir)
}

func TestDoctorPacingReportsTokens(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	env := newTestEnv(t, nil)
	env.app.Config.Pacing = config.PacingBucket
	require.NoError(t, appctx.RequestBucket(env.app.Config).Wait(context.Background()))

	pacing := checkNamed(t, runDoctorChecks(context.Background(), env.app, false), "Pacing")

	assert.Equal(t, checkPass, pacing.Status)
	assert.Contains(t, pacing.Message, "of 10 tokens available")
}

func TestDoctorPacingThrottled(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	env := newTestEnv(t, nil)
	env.app.Config.Pacing = config.PacingBucket
	require.NoError(t, appctx.RequestBucket(env.app.Config).BlockFor(time.Hour))

	pacing := checkNamed(t, runDoctorChecks(context.Background(), env.app, false), "Pacing")

	assert.Equal(t, checkWarn, pacing.Status)
	assert.Contains(t, pacing.Message, "Throttled for another")
	assert.Contains(t, pacing.Hint, "--reset-pacing")
}

func TestDoctorResetPacing(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	env := newTestEnv(t, nil)
	env.app.Config.Pacing = config.PacingBucket
	bucket := appctx.RequestBucket(env.app.Config)
	require.NoError(t, bucket.BlockFor(time.Hour))

	require.NoError(t, env.run(t, NewDoctorCmd(), "--reset-pacing"))

	assert.False(t, bucket.Store().Exists())
	blocked, err := bucket.BlockedFor()
	require.NoError(t, err)
	assert.Zero(t, blocked)
}

func TestDoctorResultSummary(t *testing.T) {
	tests := []struct {
		name   string
		result DoctorResult
		want   string
	}{
		{"all passed", DoctorResult{Passed: 4}, "All 4 checks passed"},
		{"passed with skips", DoctorResult{Passed: 3, Skipped: 2}, "All 3 checks passed, 2 skipped"},
		{"mixed", DoctorResult{Passed: 2, Failed: 1, Warned: 1, Skipped: 1}, "2 passed, 1 failed, 1 warning, 1 skipped"},
		{"warnings only", DoctorResult{Warned: 2}, "2 warnings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.Summary())
		})
	}
}

func TestRenderDoctorStyled(t *testing.T) {
	var buf bytes.Buffer
	renderDoctorStyled(&buf, summarizeChecks([]Check{
		{Name: "Credentials", Status: checkFail, Message: "No token", Hint: "Run: az login"},
		{Name: "Catalog", Status: checkPass, Message: "(built-in): 6 pages"},
	}))

	out := buf.String()
	assert.Contains(t, out, "Credentials")
	assert.Contains(t, out, "Run: az login")
	assert.Contains(t, out, "1 passed, 1 failed")
}
