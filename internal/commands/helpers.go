package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bmd-analytics/reportbuilder/internal/appctx"
	"github.com/bmd-analytics/reportbuilder/internal/catalog"
	"github.com/bmd-analytics/reportbuilder/internal/output"
	"github.com/bmd-analytics/reportbuilder/internal/urlarg"
)

// needArgs reports whether at least n positional arguments were given.
// Otherwise it prints the usage line: a missing argument is informational
// and the command exits 0.
func needArgs(cmd *cobra.Command, args []string, n int) bool {
	if len(args) >= n {
		return true
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Usage: %s\n", cmd.UseLine())
	if cmd.Example != "" {
		fmt.Fprintf(w, "Example:\n%s\n", cmd.Example)
	}
	return false
}

// argOr returns args[i], or fallback when it was not given.
func argOr(args []string, i int, fallback string) string {
	if i < len(args) && args[i] != "" {
		return args[i]
	}
	return fallback
}

// workspaceArg resolves the workspace from a positional argument, then
// --workspace and config. Empty means My Workspace.
func workspaceArg(app *appctx.App, args []string, i int) string {
	return argOr(args, i, app.Config.WorkspaceID)
}

// artifactArg resolves a report or dataset argument that may be a pasted
// Power BI link. An explicit workspace argument at wsIndex wins; otherwise a
// link's workspace, even My Workspace, beats the configured one.
func artifactArg(app *appctx.App, args []string, i, wsIndex int, fallback string) (id, workspaceID string) {
	id, ws, ok := urlarg.ExtractWithWorkspace(argOr(args, i, fallback))
	if wsIndex < len(args) && args[wsIndex] != "" {
		return id, args[wsIndex]
	}
	if ok {
		return id, ws
	}
	return id, app.Config.WorkspaceID
}

// loadCatalog returns the configured catalog, or the built-in design.
// Canvas overflow is left to the caller: the interpreter logs it while
// building, other commands call warnCatalog.
func loadCatalog(app *appctx.App) (*catalog.ReportCatalog, error) {
	path := app.Config.Catalog
	cat, err := readCatalog(path)
	if err != nil {
		return nil, &output.Error{
			Code:    output.CodeConfig,
			Message: "Invalid catalog " + path,
			Hint:    err.Error(),
			Cause:   err,
		}
	}
	return cat, nil
}

// warnCatalog prints the catalog's layout warnings to stderr.
func warnCatalog(app *appctx.App, cat *catalog.ReportCatalog) {
	for _, w := range cat.Warnings() {
		app.Warn(w)
	}
}

// pluralize returns singular or plural form based on count.
func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
