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

// GeneratedPage describes an authoring page written to disk.
type GeneratedPage struct {
	Path      string               `json:"path"`
	ReportID  string               `json:"reportId,omitempty"`
	TokenType htmlgen.TokenType    `json:"tokenType"`
	Pages     []builder.PageResult `json:"pages"`
}

// NewGenerateHTMLCmd creates the generate-html command.
func NewGenerateHTMLCmd() *cobra.Command {
	var opts pageOptions

	cmd := &cobra.Command{
		Use:   "generate-html [embed-url] [dataset-id]",
		Short: "Generate HTML for embedded report creation",
		Long: `Generate a page that opens a new report on the dataset in edit mode and
lays out the first catalog page once the report has loaded.

A fresh report has a single page. Add the remaining pages in the editor,
save the report, then run 'reportbuilder build <report-id>' for the rest.

The page embeds your Azure AD access token in plain text unless
--embed-token is given, which mints a short-lived token scoped to the
dataset instead.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app := appctx.FromContext(ctx)

			cat, err := loadCatalog(app)
			if err != nil {
				return err
			}
			first, ok := cat.PageAt(0)
			if !ok {
				return output.ErrConfig("Catalog has no pages")
			}
			datasetID := argOr(args, 1, app.Config.DatasetID)

			session := authoring.NewScriptSession(nil)
			remote, err := session.Pages(ctx)
			if err != nil {
				return err
			}
			if err := session.SetActive(ctx, remote[0]); err != nil {
				return err
			}
			report, err := newInterpreter(app, session, cat.Canvas()).BuildPage(ctx, first, session)
			if err != nil {
				return err
			}

			page := htmlgen.Page{
				Title:     opts.title,
				EmbedURL:  argOr(args, 0, embedURL(app, app.Config.WorkspaceID, "")),
				DatasetID: datasetID,
				Script:    session.Script(),
				Notes: []string{
					fmt.Sprintf("Lays out %s: %d %s.", first.DisplayName, len(first.Visuals), pluralize(len(first.Visuals), "visual", "visuals")),
					"Add the other pages in the editor, save, then run: reportbuilder build <report-id>",
				},
			}
			if opts.embedToken {
				tok, err := app.API.GenerateToken(ctx, datasetID, app.Config.WorkspaceID)
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
				return nil
			}

			return app.OK(GeneratedPage{
				Path:      opts.outPath,
				TokenType: page.TokenType,
				Pages: []builder.PageResult{{
					Page:        first.Name,
					DisplayName: first.DisplayName,
					Ordinal:     first.Ordinal,
					Status:      builder.PageStatusBuilt,
					Report:      report,
				}},
			},
				output.WithSummary(fmt.Sprintf("Wrote %s (%d visuals)", opts.outPath, report.Created())),
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

func addPageFlags(cmd *cobra.Command, opts *pageOptions) {
	cmd.Flags().StringVarP(&opts.outPath, "output", "o", "", "Write the page to a file instead of stdout")
	cmd.Flags().StringVar(&opts.title, "title", "", "Page title")
	cmd.Flags().BoolVar(&opts.embedToken, "embed-token", false, "Embed a short-lived scoped embed token instead of your access token")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Do not ask before embedding an access token")
}
