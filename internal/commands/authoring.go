package commands

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/bmd-analytics/reportbuilder/internal/appctx"
	"github.com/bmd-analytics/reportbuilder/internal/authoring"
	"github.com/bmd-analytics/reportbuilder/internal/builder"
	"github.com/bmd-analytics/reportbuilder/internal/catalog"
	"github.com/bmd-analytics/reportbuilder/internal/htmlgen"
	"github.com/bmd-analytics/reportbuilder/internal/output"
)

// pageOptions are the flags shared by the commands that write authoring pages.
type pageOptions struct {
	outPath    string
	title      string
	embedToken bool
	yes        bool
}

// confirm asks a yes/no question on the terminal.
var confirm = func(title, description string) (bool, error) {
	var result bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&result).
		Run()
	if err != nil {
		return false, err
	}
	return result, nil
}

// newInterpreter builds an interpreter that compiles pacing into the script
// and warns about layouts past canvas.
func newInterpreter(app *appctx.App, session *authoring.ScriptSession, canvas catalog.Canvas) *builder.Interpreter {
	return builder.New(
		builder.WithPacer(session.Pacer(app.AuthoringDelay())),
		builder.WithLogger(app.Logger),
		builder.WithHooks(app.Hooks),
		builder.WithCanvas(canvas),
	)
}

// embedURL builds an embed URL on the configured base, scoped to the
// workspace and, when reportID is set, to an existing report.
func embedURL(app *appctx.App, workspaceID, reportID string) string {
	base := app.Config.EmbedBase
	if workspaceID == "" && reportID == "" {
		return base
	}
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	if reportID != "" {
		q.Set("reportId", reportID)
	}
	if workspaceID != "" {
		q.Set("groupId", workspaceID)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// aadToken returns the caller's own bearer token for embedding: the one the
// API client already resolved for this command.
func aadToken(ctx context.Context, app *appctx.App) (string, htmlgen.TokenType, error) {
	token, err := app.API.AccessToken(ctx)
	if err != nil {
		return "", "", err
	}
	return token, htmlgen.TokenAad, nil
}

// approvePlaintextToken prints the page's warnings and, on a terminal, asks
// before an AAD token is written out.
func approvePlaintextToken(app *appctx.App, page htmlgen.Page, opts pageOptions) error {
	warnings := page.Warnings()
	for _, w := range warnings {
		app.Warn(w)
	}
	if len(warnings) == 0 || opts.yes || !app.IsInteractive() {
		return nil
	}

	ok, err := confirm("Embed your access token in the page?", "Anyone who opens the file can act as you until the token expires.")
	if err != nil {
		return err
	}
	if !ok {
		return output.ErrUsageHint("Canceled", "Use --embed-token to embed a short-lived scoped token instead")
	}
	return nil
}

// writePage renders page to opts.outPath, or to stdout when no path is set.
// Files are created owner-only because they carry a bearer token.
func writePage(app *appctx.App, page htmlgen.Page, opts pageOptions) error {
	var buf bytes.Buffer
	if err := htmlgen.Render(&buf, page); err != nil {
		return output.ErrUsageHint("Cannot generate page", err.Error())
	}

	if opts.outPath == "" {
		_, err := app.Output.Out().Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(opts.outPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.outPath, err)
	}
	return nil
}
