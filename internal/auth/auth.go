// Package auth acquires Power BI bearer tokens from an external credential helper.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/bmd-analytics/reportbuilder/internal/output"
)

// TokenEnv overrides the credential helper when set.
const TokenEnv = "PBI_ACCESS_TOKEN"

// Credential is a bearer token minted for the Power BI resource.
type Credential struct {
	AccessToken string
	// ExpiresAt is zero when the helper printed a bare token.
	ExpiresAt time.Time
	Source    string
}

// Resolver runs the credential helper. It keeps no state between calls:
// every Resolve mints a fresh token.
type Resolver struct {
	helper string
	getenv func(string) string
}

// NewResolver creates a resolver for the given helper command line.
func NewResolver(helper string) *Resolver {
	return &Resolver{helper: helper, getenv: os.Getenv}
}

// Resolve returns a fresh credential or an auth error (exit code 3).
func (r *Resolver) Resolve(ctx context.Context) (*Credential, error) {
	if token := strings.TrimSpace(r.getenv(TokenEnv)); token != "" {
		return &Credential{AccessToken: token, Source: TokenEnv}, nil
	}

	args := strings.Fields(r.helper)
	if len(args) == 0 {
		return nil, output.ErrAuth("No credential helper configured")
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...) //nolint:gosec // G204: helper comes from trusted config layers only
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := fmt.Sprintf("Credential helper %q failed", args[0])
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			msg += ": " + firstLine(detail)
		}
		return nil, output.ErrAuthCause(msg, err)
	}

	cred, err := parseHelperOutput(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	cred.Source = args[0]
	return cred, nil
}

// Token implements the control-plane client's token source.
func (r *Resolver) Token(ctx context.Context) (string, error) {
	cred, err := r.Resolve(ctx)
	if err != nil {
		return "", err
	}
	return cred.AccessToken, nil
}

// helperJSON is the shape printed by `az account get-access-token` without --query.
type helperJSON struct {
	AccessToken string `json:"accessToken"`
	ExpiresOn   string `json:"expiresOn"`
}

// expiresOnLayouts covers the az CLI's local-time format and RFC 3339.
var expiresOnLayouts = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func parseHelperOutput(out []byte) (*Credential, error) {
	text := strings.TrimSpace(string(out))
	if text == "" {
		return nil, output.ErrAuth("Credential helper returned an empty token")
	}

	if strings.HasPrefix(text, "{") {
		var parsed helperJSON
		if err := json.Unmarshal([]byte(text), &parsed); err != nil {
			return nil, output.ErrAuthCause("Credential helper returned malformed JSON", err)
		}
		if parsed.AccessToken == "" {
			return nil, output.ErrAuth("Credential helper returned an empty token")
		}
		cred := &Credential{AccessToken: parsed.AccessToken}
		for _, layout := range expiresOnLayouts {
			if t, err := time.ParseInLocation(layout, parsed.ExpiresOn, time.Local); err == nil {
				cred.ExpiresAt = t
				break
			}
		}
		return cred, nil
	}

	return &Credential{AccessToken: firstLine(text)}, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
