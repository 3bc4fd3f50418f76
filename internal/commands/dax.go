package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"

	"github.com/bmd-analytics/reportbuilder/internal/appctx"
	"github.com/bmd-analytics/reportbuilder/internal/output"
)

// NewDaxCmd creates the dax command.
func NewDaxCmd() *cobra.Command {
	var filter string
	var rawOutput bool

	cmd := &cobra.Command{
		Use:   `dax "<query>"`,
		Short: "Execute DAX query",
		Long: `Run one DAX query against the dataset and print the service's JSON.

The query text is sent as given. Use --jq to reduce the response, e.g.
  --jq '.results[0].tables[0].rows[]'`,
		Example: `  reportbuilder dax "EVALUATE SUMMARIZECOLUMNS(Dim_Territory[ZoneName], \"Visits\", COUNTROWS(Fact_Visit))"`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !needArgs(cmd, args, 1) {
				return nil
			}
			ctx := cmd.Context()
			app := appctx.FromContext(ctx)

			var code *gojq.Code
			if filter != "" {
				var err error
				if code, err = compileFilter(filter); err != nil {
					return err
				}
			}

			raw, err := app.API.ExecuteQueries(ctx, app.Config.DatasetID, app.Config.WorkspaceID, args[0])
			if err != nil {
				return err
			}

			w := app.Output.Out()
			if code != nil {
				return runFilter(ctx, w, code, raw, rawOutput)
			}
			return writeIndented(w, raw)
		},
	}

	cmd.Flags().StringVar(&filter, "jq", "", "Filter the response with a jq expression")
	cmd.Flags().BoolVarP(&rawOutput, "raw-output", "r", false, "With --jq, print strings without quotes")

	return cmd
}

func compileFilter(expr string) (*gojq.Code, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, output.ErrUsageHint("Invalid --jq filter", err.Error())
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, output.ErrUsageHint("Invalid --jq filter", err.Error())
	}
	return code, nil
}

// runFilter prints every value the filter yields, one JSON document per line.
func runFilter(ctx context.Context, w io.Writer, code *gojq.Code, raw json.RawMessage, rawOutput bool) error {
	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		return fmt.Errorf("response is not JSON: %w", err)
	}

	iter := code.RunWithContext(ctx, input)
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, isErr := v.(error); isErr {
			var halt *gojq.HaltError
			if errors.As(err, &halt) && halt.Value() == nil {
				return nil
			}
			return output.ErrUsageHint("jq filter failed", err.Error())
		}
		if s, isString := v.(string); isString && rawOutput {
			fmt.Fprintln(w, s)
			continue
		}
		line, err := gojq.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(line))
	}
}

// writeIndented echoes the response with two-space indentation. Bodies that
// are not JSON are printed as they came.
func writeIndented(w io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		buf.Reset()
		buf.Write(raw)
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}
