package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bmd-analytics/reportbuilder/internal/appctx"
	"github.com/bmd-analytics/reportbuilder/internal/output"
)

// NewWorkspacesCmd creates the workspaces command.
func NewWorkspacesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "workspaces",
		Aliases: []string{"groups", "ws"},
		Short:   "List available workspaces",
		Long:    "List the Power BI workspaces (groups) the signed-in account can see.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app := appctx.FromContext(ctx)

			workspaces, err := app.API.ListWorkspaces(ctx)
			if err != nil {
				return err
			}

			return app.OK(workspaces,
				output.WithSummary(fmt.Sprintf("%d %s", len(workspaces), pluralize(len(workspaces), "workspace", "workspaces"))),
				output.WithBreadcrumbs(
					output.Breadcrumb{
						Action:      "datasets",
						Cmd:         "reportbuilder datasets <workspace-id>",
						Description: "List datasets in a workspace",
					},
					output.Breadcrumb{
						Action:      "reports",
						Cmd:         "reportbuilder reports <workspace-id>",
						Description: "List reports in a workspace",
					},
				),
			)
		},
	}
}
