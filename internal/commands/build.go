package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bmd-analytics/reportbuilder/internal/appctx"
	"github.com/bmd-analytics/reportbuilder/internal/authoring"
	"github.com/bmd-analytics/reportbuilder/internal/builder"
	"github.com/bmd-analytics/reportbuilder/internal/htmlgen"
	"github.com/bmd-analytics/reportbuilder/internal/output"
)

// NewBuildCmd creates the build command.
func NewBuildCmd() *cobra.Command {
	var opts pageOptions

	cmd := &cobra.Command{
		Use:   "build <report-id> [workspace-id]",
		Short: "Generate HTML that builds every page of a report",
		Long: `Generate a page that opens an existing report in edit mode, lays out
every catalog page that already exists in the report, and saves it.

Catalog pages are matched to report pages by name, then display name,
then position. Pages cannot be created through the authoring API; those
without a counterpart are listed as requiring manual creation.

The report may be a link copied from the browser.`,
		Example: "  reportbuilder build 5b8d7d2a-0000-0000-0000-000000000000 -o build.html",
		Args:    cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !needArgs(cmd, args, 1) {
				return nil
			}
			ctx := cmd.Context()
			app := appctx.FromContext(ctx)
			reportID, ws := artifactArg(app, args, 0, 1, "")

			cat, err := loadCatalog(app)
			if err != nil {
				return err
			}
			report, err := app.API.GetReport(ctx, reportID, ws)
			if err != nil {
				return err
			}
			remote, err := app.API.ListPages(ctx, reportID, ws)
			if err != nil {
				return err
			}
			pages := make([]authoring.Page, len(remote))
			for i, p := range remote {
				pages[i] = authoring.Page{Name: p.Name, DisplayName: p.DisplayName, Ordinal: p.Order}
			}

			session := authoring.NewScriptSession(pages)
			result, err := newInterpreter(app, session, cat.Canvas()).BuildReport(ctx, cat, session)
			if err != nil {
				return err
			}
			if err := session.Save(ctx); err != nil {
				return err
			}

			skipped := result.Skipped()
			notes := make([]string, 0, len(skipped)+1)
			notes = append(notes, fmt.Sprintf("Lays out %d of %d pages (%d visuals), then saves the report.",
				len(result.Built()), len(result.Pages), session.Visuals()))
			for _, p := range skipped {
				notes = append(notes, skipNote(p))
			}

			url := report.EmbedURL
			if url == "" {
				url = embedURL(app, ws, reportID)
			}
			page := htmlgen.Page{
				Title:     opts.title,
				EmbedURL:  url,
				DatasetID: report.DatasetID,
				ReportID:  report.ID,
				Script:    session.Script(),
				Notes:     notes,
			}
			if page.ReportID == "" {
				page.ReportID = reportID
			}
			if opts.embedToken {
				tok, err := app.API.GenerateEditToken(ctx, reportID, ws)
				if err != nil {
					return err
				}
				page.Token, page.TokenType = tok.Token, htmlgen.TokenEmbed
			} else if page.Token, page.TokenType, err = aadToken(ctx, app); err != nil {
				return err
			}

			if err := approvePlaintextToken(app, page, opts); err != nil {
				return err
			}
			if err := writePage(app, page, opts); err != nil {
				return err
			}
			if opts.outPath == "" {
				for _, p := range skipped {
					app.Warn(skipNote(p))
				}
				return nil
			}

			return app.OK(GeneratedPage{
				Path:      opts.outPath,
				ReportID:  page.ReportID,
				TokenType: page.TokenType,
				Pages:     result.Pages,
			},
				output.WithSummary(fmt.Sprintf("Wrote %s: %d built, %d need manual creation",
					opts.outPath, len(result.Built()), len(skipped))),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "serve",
					Cmd:         "reportbuilder serve",
					Description: "Open the page from a local server",
				}),
			)
		},
	}

	addPageFlags(cmd, &opts)
	return cmd
}

func skipNote(p builder.PageResult) string {
	return fmt.Sprintf("%s %s: add it in the editor, save, and run build again.", p.DisplayName, p.Status)
}
