package commands

import (
	"github.com/spf13/cobra"

	"github.com/bmd-analytics/reportbuilder/internal/appctx"
	"github.com/bmd-analytics/reportbuilder/internal/output"
)

// CommandInfo describes a CLI command.
type CommandInfo struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Actions     []string `json:"actions,omitempty"`
}

// CommandCategory groups commands by category.
type CommandCategory struct {
	Name     string        `json:"name"`
	Commands []CommandInfo `json:"commands"`
}

// commandCategories returns all command categories for the catalog.
func commandCategories() []CommandCategory {
	return []CommandCategory{
		{
			Name: "Power BI",
			Commands: []CommandInfo{
				{Name: "workspaces", Category: "remote", Description: "List available workspaces"},
				{Name: "datasets", Category: "remote", Description: "List datasets"},
				{Name: "reports", Category: "remote", Description: "List reports"},
				{Name: "pages", Category: "remote", Description: "List the pages of a report"},
				{Name: "dataset-info", Category: "remote", Description: "Get dataset embed info"},
				{Name: "clone", Category: "remote", Description: "Clone a report"},
				{Name: "dax", Category: "remote", Description: "Execute DAX query"},
			},
		},
		{
			Name: "Report Design",
			Commands: []CommandInfo{
				{Name: "design", Category: "design", Description: "Print report design specification"},
				{Name: "catalog", Category: "design", Description: "Work with catalog files", Actions: []string{"validate"}},
				{Name: "instructions", Category: "design", Description: "Show visual creation API guide"},
			},
		},
		{
			Name: "Authoring",
			Commands: []CommandInfo{
				{Name: "generate-html", Category: "authoring", Description: "Generate HTML for embedded report creation"},
				{Name: "build", Category: "authoring", Description: "Generate HTML that builds every page of a report"},
				{Name: "serve", Category: "authoring", Description: "Serve generated pages locally"},
			},
		},
		{
			Name: "Additional Commands",
			Commands: []CommandInfo{
				{Name: "config", Category: "additional", Description: "Manage configuration", Actions: []string{"show", "set", "unset"}},
				{Name: "doctor", Category: "additional", Description: "Check credentials, configuration and connectivity"},
				{Name: "commands", Category: "additional", Description: "List all commands"},
				{Name: "version", Category: "additional", Description: "Show version"},
			},
		},
	}
}

// CatalogCommandNames returns all command names from the catalog.
// Used by tests to verify catalog matches registered commands.
func CatalogCommandNames() []string {
	categories := commandCategories()
	total := 0
	for _, cat := range categories {
		total += len(cat.Commands)
	}
	names := make([]string, 0, total)
	for _, cat := range categories {
		for _, cmd := range cat.Commands {
			names = append(names, cmd.Name)
		}
	}
	return names
}

// NewCommandsCmd creates the commands listing command.
func NewCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "commands",
		Aliases: []string{"cmds"},
		Short:   "List all commands",
		Long:    "List all available reportbuilder commands organized by category.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			return app.OK(commandCategories(),
				output.WithSummary("All available reportbuilder commands"),
				output.WithBreadcrumbs(
					output.Breadcrumb{
						Action:      "help",
						Cmd:         "reportbuilder --help",
						Description: "View help",
					},
				),
			)
		},
	}
}

// Register adds every command to root.
func Register(root *cobra.Command) {
	root.AddCommand(
		NewWorkspacesCmd(),
		NewDatasetsCmd(),
		NewReportsCmd(),
		NewPagesCmd(),
		NewDatasetInfoCmd(),
		NewCloneCmd(),
		NewDaxCmd(),
		NewDesignCmd(),
		NewCatalogCmd(),
		NewInstructionsCmd(),
		NewGenerateHTMLCmd(),
		NewBuildCmd(),
		NewServeCmd(),
		NewConfigCmd(),
		NewDoctorCmd(),
		NewCommandsCmd(),
		NewVersionCmd(),
	)
}
