package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/bmd-analytics/reportbuilder/internal/appctx"
	"github.com/bmd-analytics/reportbuilder/internal/catalog"
	"github.com/bmd-analytics/reportbuilder/internal/output"
)

// watchSettle coalesces the burst of events an editor save produces.
const watchSettle = 100 * time.Millisecond

// CatalogSummary describes a valid catalog.
type CatalogSummary struct {
	Path     string   `json:"path"`
	Pages    int      `json:"pages"`
	Visuals  int      `json:"visuals"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewCatalogCmd creates the catalog command and its subcommands.
func NewCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Work with catalog files",
		Long: `A catalog describes the pages and visuals build lays out. Catalogs are
YAML (.yaml, .yml), JSON with comments (.json, .jsonc), or the text printed
by 'reportbuilder design' (.txt).`,
	}

	cmd.AddCommand(newCatalogValidateCmd())

	return cmd
}

func newCatalogValidateCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a catalog file",
		Long: `Parse and validate a catalog file. Without a file the --catalog flag or
configured catalog is checked, or the built-in design when neither is set.

With --watch the file is checked again every time it is saved.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app := appctx.FromContext(ctx)
			path := argOr(args, 0, app.Config.Catalog)

			if watch {
				if path == "" {
					return output.ErrUsage("--watch needs a catalog file")
				}
				return watchCatalog(ctx, path, app.Output.Out())
			}

			summary, err := validateCatalogFile(path)
			if err != nil {
				return err
			}
			for _, w := range summary.Warnings {
				app.Warn(w)
			}
			return app.OK(summary, output.WithSummary(describeCatalog(summary)))
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Re-validate whenever the file changes")

	return cmd
}

// readCatalog loads a catalog by extension; an empty path is the built-in one.
func readCatalog(path string) (*catalog.ReportCatalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return catalog.ParseDesign(f)
	}
	return catalog.Load(path)
}

func validateCatalogFile(path string) (*CatalogSummary, error) {
	cat, err := readCatalog(path)
	if err != nil {
		return nil, &output.Error{
			Code:    output.CodeConfig,
			Message: "Invalid catalog",
			Hint:    err.Error(),
			Cause:   err,
		}
	}
	name := path
	if name == "" {
		name = "(built-in)"
	}
	return &CatalogSummary{
		Path:     name,
		Pages:    cat.Len(),
		Visuals:  cat.VisualCount(),
		Warnings: cat.Warnings(),
	}, nil
}

func describeCatalog(s *CatalogSummary) string {
	return fmt.Sprintf("%s: %d %s, %d %s", s.Path,
		s.Pages, pluralize(s.Pages, "page", "pages"),
		s.Visuals, pluralize(s.Visuals, "visual", "visuals"))
}

// reportValidation prints one line per check, for watch mode.
func reportValidation(w io.Writer, path string) {
	summary, err := validateCatalogFile(path)
	if err != nil {
		fmt.Fprintf(w, "✗ %s: %s\n", path, output.AsError(err).Hint)
		return
	}
	fmt.Fprintf(w, "✓ %s\n", describeCatalog(summary))
	for _, warning := range summary.Warnings {
		fmt.Fprintf(w, "  ! %s\n", warning)
	}
}

// watchCatalog validates path, then again after every change, until ctx is
// done. The parent directory is watched so editors that replace the file on
// save are followed.
func watchCatalog(ctx context.Context, path string, w io.Writer) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	reportValidation(w, path)

	settle := time.NewTimer(watchSettle)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			settle.Reset(watchSettle)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(w, "watch error: %v\n", err)
		case <-settle.C:
			reportValidation(w, path)
		}
	}
}
