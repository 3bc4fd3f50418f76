package commands

import (
	"github.com/spf13/cobra"

	"github.com/bmd-analytics/reportbuilder/internal/appctx"
	"github.com/bmd-analytics/reportbuilder/internal/catalog"
	"github.com/bmd-analytics/reportbuilder/internal/output"
)

// NewDesignCmd creates the design command.
func NewDesignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "design",
		Short: "Print report design specification",
		Long: `Print every page and visual of the catalog with its position, size and
data bindings. No remote calls are made.

The text form can be read back with 'catalog validate'. With --json or
--quiet the catalog is printed as JSON instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			cat, err := loadCatalog(app)
			if err != nil {
				return err
			}
			warnCatalog(app, cat)

			if app.Flags.JSON || app.Flags.Quiet {
				return app.OK(cat, output.WithSummary("Report design"))
			}
			return catalog.FormatDesign(app.Output.Out(), cat)
		},
	}
}
