// Package cli wires the root command and its subcommands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bmd-analytics/reportbuilder/internal/appctx"
	"github.com/bmd-analytics/reportbuilder/internal/commands"
	"github.com/bmd-analytics/reportbuilder/internal/config"
	"github.com/bmd-analytics/reportbuilder/internal/output"
	"github.com/bmd-analytics/reportbuilder/internal/version"
)

// usageText is printed for a bare invocation or an unknown command.
const usageText = `Usage: reportbuilder <command> [options]

Commands:
  workspaces                     List available workspaces
  datasets [workspace]           List datasets
  reports [workspace]            List reports
  pages <report>                 List the pages of a report
  dataset-info [id] [workspace]  Get dataset embed info
  clone <id> <name> [workspace]  Clone a report
  dax "<query>"                  Execute DAX query
  design                         Print report design specification
  instructions                   Show visual creation API guide
  generate-html [url] [dataset]  Generate HTML for embedded report creation
  build <report>                 Generate HTML that builds every page of a report
  catalog validate [file]        Check a catalog file
  serve [dir]                    Serve generated pages locally
  config                         Show effective configuration
  doctor                         Check credentials, configuration and connectivity
  commands                       List all commands
  version                        Show version

Examples:
  reportbuilder workspaces
  reportbuilder datasets
  reportbuilder design
  reportbuilder dax "EVALUATE SUMMARIZECOLUMNS(Dim_Territory[ZoneName])"
`

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	var flags appctx.GlobalFlags

	cmd := &cobra.Command{
		Use:           "reportbuilder",
		Short:         "Build Power BI reports from a catalog of visuals",
		Long:          "reportbuilder lists Power BI artifacts, runs DAX queries, and generates authoring pages that lay out the BMD Sales report.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "Unknown command: %s\n\n", args[0])
			}
			fmt.Fprint(cmd.OutOrStdout(), usageText)
			return nil
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Usage, help and version need no configuration.
			if !cmd.HasParent() || cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.Load(config.FlagOverrides{
				Workspace: flags.Workspace,
				Dataset:   flags.Dataset,
				Catalog:   flags.Catalog,
				Pacing:    flags.Pacing,
			})
			if err != nil {
				return output.ErrConfigHint("Invalid configuration", err.Error())
			}

			resolvePreferences(cmd, cfg, &flags)

			app := appctx.NewApp(cfg)
			app.Flags = flags
			app.ApplyFlags()

			cmd.SetContext(appctx.WithApp(cmd.Context(), app))
			return nil
		},
	}

	// Allow flags anywhere in the command line
	cmd.Flags().SetInterspersed(true)
	cmd.PersistentFlags().SetInterspersed(true)

	// Output format flags
	cmd.PersistentFlags().BoolVarP(&flags.JSON, "json", "j", false, "Output as JSON")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Output data only, no envelope")
	cmd.PersistentFlags().BoolVarP(&flags.MD, "md", "m", false, "Output as Markdown (portable)")
	cmd.PersistentFlags().BoolVar(&flags.MD, "markdown", false, "Output as Markdown (portable)")
	cmd.PersistentFlags().BoolVar(&flags.Styled, "styled", false, "Force styled output (ANSI colors)")
	cmd.PersistentFlags().BoolVar(&flags.IDsOnly, "ids-only", false, "Output only IDs")
	cmd.PersistentFlags().BoolVar(&flags.Count, "count", false, "Output only count")

	// Target flags
	cmd.PersistentFlags().StringVarP(&flags.Workspace, "workspace", "w", "", "Workspace (group) ID")
	cmd.PersistentFlags().StringVar(&flags.Dataset, "dataset", "", "Dataset ID")
	cmd.PersistentFlags().StringVar(&flags.Catalog, "catalog", "", "Catalog file (YAML or JSON) instead of the built-in design")
	cmd.PersistentFlags().StringVar(&flags.Pacing, "pacing", "", "Pacing strategy (fixed, bucket)")

	// Behavior flags
	cmd.PersistentFlags().CountVarP(&flags.Verbose, "verbose", "v", "Verbose output (-v for operations, -vv for requests)")
	cmd.PersistentFlags().BoolVar(&flags.Stats, "stats", false, "Show session statistics")

	return cmd
}

// Execute runs the root command and exits with the error's exit code.
func Execute() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := NewRootCmd()
	commands.Register(cmd)
	cmd.SetArgs(args)

	// Use ExecuteC to get the executed command (for correct context access)
	executedCmd, err := cmd.ExecuteContextC(ctx)
	if err == nil {
		return output.ExitOK
	}

	err = transformCobraError(err)
	apiErr := output.AsError(err)

	// app.Err adds --stats output when the app was built
	if executedCmd != nil {
		if app := appctx.FromContext(executedCmd.Context()); app != nil {
			_ = app.Err(err)
			return apiErr.ExitCode()
		}
	}

	// Fallback: setup failed before the app existed.
	writer := output.New(output.Options{
		Format: fallbackFormat(cmd.PersistentFlags()),
		Writer: os.Stdout,
	})
	_ = writer.Err(err)
	return apiErr.ExitCode()
}

// fallbackFormat picks the output format from raw flags when no app exists.
func fallbackFormat(pf *pflag.FlagSet) output.Format {
	quiet, _ := pf.GetBool("quiet")
	idsOnly, _ := pf.GetBool("ids-only")
	count, _ := pf.GetBool("count")
	styled, _ := pf.GetBool("styled")
	md, _ := pf.GetBool("md")
	jsonFlag, _ := pf.GetBool("json")

	switch {
	case quiet:
		return output.FormatQuiet
	case idsOnly:
		return output.FormatIDs
	case count:
		return output.FormatCount
	case jsonFlag:
		return output.FormatJSON
	case styled:
		return output.FormatStyled
	case md:
		return output.FormatMarkdown
	default:
		return output.FormatAuto
	}
}

// resolvePreferences fills behavior flags the user did not set from config.
func resolvePreferences(cmd *cobra.Command, cfg *config.Config, flags *appctx.GlobalFlags) {
	if cfg.Stats != nil && !flagChanged(cmd, "stats") {
		flags.Stats = *cfg.Stats
	}
	if cfg.Verbose != nil && !flagChanged(cmd, "verbose") {
		flags.Verbose = *cfg.Verbose
	}
}

func flagChanged(cmd *cobra.Command, name string) bool {
	for _, fs := range []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags(), cmd.InheritedFlags()} {
		if f := fs.Lookup(name); f != nil && f.Changed {
			return true
		}
	}
	return false
}

var shorthandFlagRe = regexp.MustCompile(`unknown shorthand flag: '.' in (-\w)`)

// transformCobraError turns cobra's parse errors into usage errors.
func transformCobraError(err error) error {
	msg := err.Error()

	if flag, ok := strings.CutPrefix(msg, "flag needs an argument: "); ok {
		return output.ErrUsage(flag + " requires a value")
	}

	if flag, ok := strings.CutPrefix(msg, "unknown flag: "); ok {
		return output.ErrUsage("Unknown option: " + flag)
	}

	if strings.HasPrefix(msg, "unknown shorthand flag: ") {
		if matches := shorthandFlagRe.FindStringSubmatch(msg); len(matches) > 1 {
			return output.ErrUsage("Unknown option: " + matches[1])
		}
	}

	if strings.Contains(msg, "invalid argument") {
		return output.ErrUsage(msg)
	}

	// Too many positional arguments
	if strings.Contains(msg, "accepts at most") || strings.Contains(msg, "accepts between") {
		return output.ErrUsageHint("Too many arguments", msg)
	}

	return err
}
