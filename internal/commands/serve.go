package commands

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bmd-analytics/reportbuilder/internal/appctx"
	"github.com/bmd-analytics/reportbuilder/internal/hostutil"
	"github.com/bmd-analytics/reportbuilder/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve [dir]",
		Short: "Serve generated pages locally",
		Long: `Serve the files in a directory over HTTP so generated pages can load the
Power BI scripts. "/" serves the entry document (entry_document, default
report-creator.html). Stop with Ctrl-C.

The server listens on 127.0.0.1 unless --host says otherwise. Generated
pages carry a token, so listening on other interfaces prints a warning.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app := appctx.FromContext(ctx)

			root := argOr(args, 0, app.Config.ServerRoot)
			if !cmd.Flags().Changed("port") {
				port = app.Config.ServerPort
			}
			addr := net.JoinHostPort(host, strconv.Itoa(port))
			if !hostutil.IsLoopback(host) {
				app.Warn(fmt.Sprintf("listening on %s: anyone who can reach it can read the tokens in %s", addr, root))
			}

			srv := server.New(root, app.Config.EntryDocument, app.Logger)
			return srv.ListenAndServe(ctx, addr, func(bound string) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Serving %s at http://%s/ (Ctrl-C to stop)\n", root, bound)
			})
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Interface to listen on")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default server_port, 3000)")

	return cmd
}
