// Package commands implements the CLI commands.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/tidwall/jsonc"

	"github.com/bmd-analytics/reportbuilder/internal/appctx"
	"github.com/bmd-analytics/reportbuilder/internal/config"
	"github.com/bmd-analytics/reportbuilder/internal/output"
	"github.com/bmd-analytics/reportbuilder/internal/version"
)

// Check statuses.
const (
	checkPass = "pass"
	checkFail = "fail"
	checkWarn = "warn"
	checkSkip = "skip"
)

// Check represents a single diagnostic check result.
type Check struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "pass", "fail", "skip", "warn"
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// DoctorResult holds the complete diagnostic results.
type DoctorResult struct {
	Checks  []Check `json:"checks"`
	Passed  int     `json:"passed"`
	Failed  int     `json:"failed"`
	Warned  int     `json:"warned"`
	Skipped int     `json:"skipped"`
}

// Summary returns a human-readable summary of the results.
func (r *DoctorResult) Summary() string {
	if r.Failed == 0 && r.Warned == 0 && r.Passed > 0 {
		if r.Skipped > 0 {
			return fmt.Sprintf("All %d checks passed, %d skipped", r.Passed, r.Skipped)
		}
		return fmt.Sprintf("All %d checks passed", r.Passed)
	}
	parts := []string{}
	if r.Passed > 0 {
		parts = append(parts, fmt.Sprintf("%d passed", r.Passed))
	}
	if r.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", r.Failed))
	}
	if r.Warned > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", r.Warned, pluralize(r.Warned, "warning", "warnings")))
	}
	if r.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", r.Skipped))
	}
	return strings.Join(parts, ", ")
}

// NewDoctorCmd creates the doctor command.
func NewDoctorCmd() *cobra.Command {
	var verbose bool
	var resetPacing bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check credentials, configuration and connectivity",
		Long: `Run diagnostic checks on configuration, the catalog, the credential
helper and the Power BI API.

Checks:
  - Configuration files (existence and validity)
  - Catalog (parses and validates)
  - Credential helper (returns a token)
  - API connectivity (lists workspaces)
  - Dataset access (reads the configured dataset)
  - Pacing state (bucket pacing only)

--reset-pacing discards the shared token bucket, including any back-off a
throttled response left behind, before the checks run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}
			if resetPacing {
				if err := appctx.RequestBucket(app.Config).Reset(); err != nil {
					return fmt.Errorf("resetting pacing state: %w", err)
				}
			}

			checks := runDoctorChecks(cmd.Context(), app, verbose)
			result := summarizeChecks(checks)

			if app.Output.Format() == output.FormatStyled {
				renderDoctorStyled(app.Output.Out(), result)
				return nil
			}

			opts := []output.ResponseOption{
				output.WithSummary(result.Summary()),
			}
			if breadcrumbs := buildDoctorBreadcrumbs(checks); len(breadcrumbs) > 0 {
				opts = append(opts, output.WithBreadcrumbs(breadcrumbs...))
			}
			return app.OK(result, opts...)
		},
	}

	cmd.Flags().BoolVar(&verbose, "details", false, "Show additional debug information")
	cmd.Flags().BoolVar(&resetPacing, "reset-pacing", false, "Discard the shared pacing state first")

	return cmd
}

// runDoctorChecks executes all diagnostic checks. Remote checks are skipped
// once an earlier one they depend on has failed.
func runDoctorChecks(ctx context.Context, app *appctx.App, verbose bool) []Check {
	checks := []Check{checkVersion(verbose)}
	if verbose {
		checks = append(checks, checkRuntime())
	}
	checks = append(checks, checkConfigFiles()...)
	checks = append(checks, checkCatalog(app))

	cred := checkCredentials(ctx, app, verbose)
	checks = append(checks, cred)

	api := Check{Name: "API Connectivity", Status: checkSkip, Message: "Skipped (no credentials)"}
	if cred.Status == checkPass || cred.Status == checkWarn {
		api = checkAPIConnectivity(ctx, app, verbose)
	}
	checks = append(checks, api)

	switch {
	case app.Config.DatasetID == "":
		checks = append(checks, Check{
			Name:    "Dataset Access",
			Status:  checkSkip,
			Message: "Skipped (no dataset configured)",
			Hint:    "Set dataset_id in config or use --dataset",
		})
	case api.Status != checkPass:
		checks = append(checks, Check{Name: "Dataset Access", Status: checkSkip, Message: "Skipped (API not available)"})
	default:
		checks = append(checks, checkDatasetAccess(ctx, app))
	}

	if app.Config.Pacing == config.PacingBucket {
		checks = append(checks, checkPacing(app))
	}
	return checks
}

func checkVersion(verbose bool) Check {
	check := Check{Name: "CLI Version", Status: checkPass, Message: version.Version}
	if version.IsDev() {
		check.Message = "dev (built from source)"
	}
	if verbose {
		check.Message += fmt.Sprintf(" [commit: %s, date: %s]", version.Commit, version.Date)
	}
	return check
}

func checkRuntime() Check {
	return Check{
		Name:    "Runtime",
		Status:  checkPass,
		Message: fmt.Sprintf("Go %s (%s/%s)", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	}
}

// checkConfigFiles validates the global and local config files that exist.
func checkConfigFiles() []Check {
	files := []struct{ name, path string }{
		{"Global Config", filepath.Join(config.GlobalConfigDir(), "config.json")},
		{"Local Config", filepath.Join(".reportbuilder", "config.json")},
	}

	var checks []Check
	for _, f := range files {
		if _, err := os.Stat(f.path); err != nil {
			continue
		}
		checks = append(checks, validateConfigFile(f.path, f.name))
	}
	if len(checks) == 0 {
		checks = append(checks, Check{
			Name:    "Config",
			Status:  checkPass,
			Message: "Using defaults (no config files)",
		})
	}
	return checks
}

func validateConfigFile(path, name string) Check {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path is from trusted config locations
	if err != nil {
		return Check{
			Name:    name,
			Status:  checkFail,
			Message: fmt.Sprintf("Cannot read: %s", path),
			Hint:    fmt.Sprintf("Check file permissions: %v", err),
		}
	}

	var cfg map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return Check{
			Name:    name,
			Status:  checkFail,
			Message: fmt.Sprintf("Invalid JSON: %s", path),
			Hint:    fmt.Sprintf("JSON error: %v", err),
		}
	}
	return Check{Name: name, Status: checkPass, Message: fmt.Sprintf("%s (%d keys)", path, len(cfg))}
}

func checkCatalog(app *appctx.App) Check {
	check := Check{Name: "Catalog"}
	path := app.Config.Catalog
	summary, err := validateCatalogFile(path)
	if err != nil {
		check.Status = checkFail
		check.Message = fmt.Sprintf("Invalid: %s", path)
		check.Hint = output.AsError(err).Hint
		return check
	}
	check.Status = checkPass
	check.Message = describeCatalog(summary)
	if n := len(summary.Warnings); n > 0 {
		check.Status = checkWarn
		check.Hint = fmt.Sprintf("%d %s extend past the canvas; run: reportbuilder catalog validate",
			n, pluralize(n, "visual", "visuals"))
	}
	return check
}

func checkCredentials(ctx context.Context, app *appctx.App, verbose bool) Check {
	check := Check{Name: "Credentials"}

	cred, err := app.Auth.Resolve(ctx)
	if err != nil {
		e := output.AsError(err)
		check.Status = checkFail
		check.Message = e.Message
		check.Hint = e.Hint
		return check
	}

	check.Status = checkPass
	check.Message = "Token from " + cred.Source
	if cred.ExpiresAt.IsZero() {
		return check
	}
	expiresIn := time.Until(cred.ExpiresAt)
	switch {
	case expiresIn < 5*time.Minute:
		check.Status = checkWarn
		check.Message = fmt.Sprintf("Token from %s expires in %s", cred.Source, expiresIn.Round(time.Second))
		check.Hint = "Generated pages stop working when the token expires"
	case verbose:
		check.Message = fmt.Sprintf("Token from %s (expires in %s)", cred.Source, expiresIn.Round(time.Minute))
	}
	return check
}

func checkAPIConnectivity(ctx context.Context, app *appctx.App, verbose bool) Check {
	check := Check{Name: "API Connectivity"}

	start := time.Now()
	workspaces, err := app.API.ListWorkspaces(ctx)
	latency := time.Since(start)

	if err != nil {
		check.Status = checkFail
		check.Message = "Cannot connect to the Power BI API"
		check.Hint = fmt.Sprintf("Error: %v", err)
		return check
	}

	check.Status = checkPass
	check.Message = "Power BI API reachable"
	if verbose {
		check.Message = fmt.Sprintf("Power BI API reachable (%d workspaces, %dms)", len(workspaces), latency.Milliseconds())
	}
	return check
}

func checkDatasetAccess(ctx context.Context, app *appctx.App) Check {
	check := Check{Name: "Dataset Access"}
	id := app.Config.DatasetID

	raw, err := app.API.GetDataset(ctx, id, app.Config.WorkspaceID)
	if err != nil {
		check.Status = checkFail
		check.Message = fmt.Sprintf("Cannot read dataset %s", id)
		check.Hint = fmt.Sprintf("Error: %v", err)
		return check
	}

	var head struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(raw, &head)
	check.Status = checkPass
	check.Message = fmt.Sprintf("Dataset %s accessible", id)
	if head.Name != "" {
		check.Message = fmt.Sprintf("%s (%s) accessible", head.Name, id)
	}
	return check
}

// checkPacing reports the shared token bucket, including any back-off a
// throttled response left behind.
func checkPacing(app *appctx.App) Check {
	check := Check{Name: "Pacing"}
	bucket := appctx.RequestBucket(app.Config)
	store := bucket.Store()
	if !store.Exists() {
		check.Status = checkPass
		check.Message = "Token bucket full (no paced requests yet) at " + store.Path()
		return check
	}

	blocked, err := bucket.BlockedFor()
	if err != nil {
		check.Status = checkWarn
		check.Message = fmt.Sprintf("Cannot read pacing state: %s", store.Path())
		check.Hint = err.Error()
		return check
	}
	if blocked > 0 {
		check.Status = checkWarn
		check.Message = fmt.Sprintf("Throttled for another %s", blocked.Round(time.Second))
		check.Hint = "The service returned 429; requests wait until the back-off ends, or run: reportbuilder doctor --reset-pacing"
		return check
	}
	tokens, err := bucket.Tokens()
	if err != nil {
		check.Status = checkWarn
		check.Message = fmt.Sprintf("Cannot update pacing state: %s", store.Path())
		check.Hint = err.Error()
		return check
	}
	check.Status = checkPass
	check.Message = fmt.Sprintf("%.1f of %g tokens available at %s", tokens, bucket.Capacity(), store.Path())
	return check
}

// summarizeChecks counts results by status.
func summarizeChecks(checks []Check) *DoctorResult {
	result := &DoctorResult{Checks: checks}
	for _, c := range checks {
		switch c.Status {
		case checkPass:
			result.Passed++
		case checkFail:
			result.Failed++
		case checkWarn:
			result.Warned++
		case checkSkip:
			result.Skipped++
		}
	}
	return result
}

// buildDoctorBreadcrumbs creates next-step suggestions based on failures.
func buildDoctorBreadcrumbs(checks []Check) []output.Breadcrumb {
	var breadcrumbs []output.Breadcrumb
	seen := make(map[string]bool)
	add := func(b output.Breadcrumb) {
		if !seen[b.Cmd] {
			seen[b.Cmd] = true
			breadcrumbs = append(breadcrumbs, b)
		}
	}

	for _, c := range checks {
		if c.Status != checkFail {
			continue
		}
		switch c.Name {
		case "Credentials":
			add(output.Breadcrumb{Action: "login", Cmd: "az login", Description: "Sign in with the Azure CLI"})
		case "Catalog":
			add(output.Breadcrumb{Action: "validate", Cmd: "reportbuilder catalog validate", Description: "Show catalog errors"})
		case "Dataset Access", "Global Config", "Local Config":
			add(output.Breadcrumb{Action: "config", Cmd: "reportbuilder config show", Description: "Review configuration"})
		}
	}
	return breadcrumbs
}

// renderDoctorStyled outputs a human-friendly styled format for TTY.
func renderDoctorStyled(w io.Writer, result *DoctorResult) {
	r := output.NewRenderer(w, false)
	nameStyle := lipgloss.NewStyle().Bold(true)

	icons := map[string]string{
		checkPass: r.Success.Render("✓"),
		checkFail: r.Error.Render("✗"),
		checkWarn: r.Warning.Render("!"),
		checkSkip: r.Muted.Render("○"),
	}
	styles := map[string]lipgloss.Style{
		checkPass: r.Success,
		checkFail: r.Error,
		checkWarn: r.Warning,
		checkSkip: r.Muted,
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, r.Summary.Render("reportbuilder doctor"))
	fmt.Fprintln(w)

	for _, check := range result.Checks {
		fmt.Fprintf(w, "  %s %s %s\n",
			icons[check.Status],
			nameStyle.Render(check.Name),
			styles[check.Status].Render(check.Message),
		)
		if check.Hint != "" && (check.Status == checkFail || check.Status == checkWarn) {
			fmt.Fprintf(w, "      %s\n", r.Hint.Render("↳ "+check.Hint))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", r.Summary.Render(result.Summary()))
	fmt.Fprintln(w)
}
