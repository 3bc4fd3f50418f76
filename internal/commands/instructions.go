package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/bmd-analytics/reportbuilder/internal/appctx"
	"github.com/bmd-analytics/reportbuilder/internal/catalog"
)

const guideTemplate = "# Power BI Report Authoring: Visual Creation Guide\n" +
	"\n" +
	"The report authoring API creates visuals on the active page of a report opened in edit mode.\n" +
	"\n" +
	"## 1. Create a visual\n" +
	"\n" +
	"```js\n" +
	"const response = await page.createVisual('card', {\n" +
	"    x: 100, y: 100, width: 300, height: 200\n" +
	"});\n" +
	"const visual = response.visual;\n" +
	"```\n" +
	"\n" +
	"## 2. Add a data field\n" +
	"\n" +
	"```js\n" +
	"await visual.addDataField('Values', {\n" +
	"    $schema: 'http://powerbi.com/product/schema#measure',\n" +
	"    table: 'Fact_Visit',\n" +
	"    measure: 'Total Visits'\n" +
	"});\n" +
	"```\n" +
	"\n" +
	"Columns use `http://powerbi.com/product/schema#column` and a `column` key.\n" +
	"\n" +
	"## 3. Set properties\n" +
	"\n" +
	"```js\n" +
	"await visual.setProperty(\n" +
	"    { objectName: 'title', propertyName: 'titleText' },\n" +
	"    { schema: 'text', value: 'VISITS' }\n" +
	");\n" +
	"```\n" +
	"\n" +
	"Wait 300 to 500 ms between visuals; the service drops calls that arrive faster.\n" +
	"\n" +
	"## Available visual types\n" +
	"\n" +
	"%s\n"

// Guide returns the visual creation guide as Markdown.
func Guide() string {
	kinds := catalog.Kinds()
	rows := make([]string, 0, len(kinds))
	for _, k := range kinds {
		rows = append(rows, fmt.Sprintf("- `%s` (%s)", k.SDKType(), k))
	}
	return fmt.Sprintf(guideTemplate, strings.Join(rows, "\n"))
}

// NewInstructionsCmd creates the instructions command.
func NewInstructionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "instructions",
		Aliases: []string{"guide"},
		Short:   "Show visual creation API guide",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			return writeGuide(app.Output.Out(), app.IsInteractive())
		},
	}
}

// writeGuide renders the guide for a terminal, or prints the Markdown source.
func writeGuide(w io.Writer, styled bool) error {
	md := Guide()
	if !styled {
		_, err := io.WriteString(w, md)
		return err
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return err
	}
	out, err := r.Render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
