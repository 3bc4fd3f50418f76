package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bmd-analytics/reportbuilder/internal/appctx"
	"github.com/bmd-analytics/reportbuilder/internal/output"
)

// NewDatasetsCmd creates the datasets command.
func NewDatasetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets [workspace-id]",
		Short: "List datasets",
		Long: `List datasets in a workspace.

Without a workspace ID the --workspace flag or configured workspace_id is
used; when neither is set, datasets in My Workspace are listed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app := appctx.FromContext(ctx)

			datasets, err := app.API.ListDatasets(ctx, workspaceArg(app, args, 0))
			if err != nil {
				return err
			}

			return app.OK(datasets,
				output.WithSummary(fmt.Sprintf("%d %s", len(datasets), pluralize(len(datasets), "dataset", "datasets"))),
				output.WithBreadcrumbs(
					output.Breadcrumb{
						Action:      "info",
						Cmd:         "reportbuilder dataset-info <dataset-id>",
						Description: "Show embed info for a dataset",
					},
				),
			)
		},
	}
}

// NewDatasetInfoCmd creates the dataset-info command.
func NewDatasetInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dataset-info [dataset-id] [workspace-id]",
		Short: "Get dataset embed info",
		Long: `Show a dataset's name, web URL and create-report embed URL.

The dataset defaults to --dataset or the configured dataset_id.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app := appctx.FromContext(ctx)

			datasetID, ws := artifactArg(app, args, 0, 1, app.Config.DatasetID)
			raw, err := app.API.GetDataset(ctx, datasetID, ws)
			if err != nil {
				return err
			}

			summary := "Dataset " + datasetID
			var head struct {
				Name                 string `json:"name"`
				CreateReportEmbedURL string `json:"createReportEmbedURL"`
			}
			if json.Unmarshal(raw, &head) == nil && head.Name != "" {
				summary = head.Name
			}

			opts := []output.ResponseOption{output.WithSummary(summary)}
			if head.CreateReportEmbedURL != "" {
				opts = append(opts, output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "generate",
					Cmd:         fmt.Sprintf("reportbuilder generate-html %q %s", head.CreateReportEmbedURL, datasetID),
					Description: "Generate an authoring page for this dataset",
				}))
			}
			return app.OK(raw, opts...)
		},
	}
}
