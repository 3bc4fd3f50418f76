package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bmd-analytics/reportbuilder/internal/api"
	"github.com/bmd-analytics/reportbuilder/internal/appctx"
	"github.com/bmd-analytics/reportbuilder/internal/output"
	"github.com/bmd-analytics/reportbuilder/internal/urlarg"
)

// NewReportsCmd creates the reports command.
func NewReportsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reports [workspace-id]",
		Short: "List reports",
		Long:  "List reports in a workspace, or in My Workspace when none is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app := appctx.FromContext(ctx)

			reports, err := app.API.ListReports(ctx, workspaceArg(app, args, 0))
			if err != nil {
				return err
			}

			return app.OK(reports,
				output.WithSummary(fmt.Sprintf("%d %s", len(reports), pluralize(len(reports), "report", "reports"))),
				output.WithBreadcrumbs(
					output.Breadcrumb{
						Action:      "pages",
						Cmd:         "reportbuilder pages <report-id>",
						Description: "List a report's pages",
					},
					output.Breadcrumb{
						Action:      "clone",
						Cmd:         "reportbuilder clone <report-id> <new-name>",
						Description: "Clone a report as a template",
					},
				),
			)
		},
	}
}

// NewPagesCmd creates the pages command.
func NewPagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pages <report-id> [workspace-id]",
		Short: "List the pages of a report",
		Long: `List the pages of a report in the service's order. These are the pages
build can populate.

The report may be a link copied from the browser; its workspace is used
unless one is given.`,
		Example: "  reportbuilder pages 5b8d7d2a-0000-0000-0000-000000000000",
		Args:    cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !needArgs(cmd, args, 1) {
				return nil
			}
			ctx := cmd.Context()
			app := appctx.FromContext(ctx)

			reportID, ws := artifactArg(app, args, 0, 1, "")
			pages, err := app.API.ListPages(ctx, reportID, ws)
			if err != nil {
				return err
			}

			return app.OK(pages,
				output.WithSummary(fmt.Sprintf("%d %s", len(pages), pluralize(len(pages), "page", "pages"))),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "build",
					Cmd:         "reportbuilder build " + reportID,
					Description: "Generate the page that builds this report",
				}),
			)
		},
	}
}

// NewCloneCmd creates the clone command.
func NewCloneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clone <source-report-id> <new-name> [workspace-id]",
		Short: "Clone a report",
		Long: `Clone a report as a template for a new one.

The clone is bound to the configured dataset (--dataset or dataset_id) and
placed in the given workspace, or next to the source when none is given.`,
		Example: `  reportbuilder clone 5b8d7d2a-0000-0000-0000-000000000000 "BMD Sales"`,
		Args:    cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !needArgs(cmd, args, 2) {
				return nil
			}
			ctx := cmd.Context()
			app := appctx.FromContext(ctx)

			report, err := app.API.CloneReport(ctx, urlarg.ExtractID(args[0]), api.CloneRequest{
				Name:              args[1],
				TargetWorkspaceID: workspaceArg(app, args, 2),
				TargetModelID:     app.Config.DatasetID,
			})
			if err != nil {
				return err
			}

			return app.OK(report,
				output.WithSummary("New report created: "+report.ID),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "build",
					Cmd:         "reportbuilder build " + report.ID,
					Description: "Lay out the catalog on the new report",
				}),
			)
		},
	}
}
