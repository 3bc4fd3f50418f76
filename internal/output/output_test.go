package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmd-analytics/reportbuilder/internal/observability"
)

// =============================================================================
// Exit Codes Tests
// =============================================================================

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{CodeUsage, ExitUsage},
		{CodeAuth, ExitAuth},
		{CodeNetwork, ExitNetwork},
		{CodeAPI, ExitAPI},
		{CodeConfig, ExitConfig},
		{CodeBuild, ExitAPI},
		{"unknown_code", ExitAPI}, // Unknown codes default to ExitAPI
		{"", ExitAPI},             // Empty code defaults to ExitAPI
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			result := ExitCodeFor(tt.code)
			if result != tt.expected {
				t.Errorf("ExitCodeFor(%q) = %d, want %d", tt.code, result, tt.expected)
			}
		})
	}
}

func TestExitCodeValues(t *testing.T) {
	assert.Equal(t, 0, ExitOK)
	assert.Equal(t, 1, ExitUsage)
	assert.Equal(t, 3, ExitAuth)
	assert.Equal(t, 6, ExitNetwork)
	assert.Equal(t, 7, ExitAPI)
	assert.Equal(t, 8, ExitConfig)
}

// =============================================================================
// Error Struct Tests
// =============================================================================

func TestErrorInterface(t *testing.T) {
	errWithHint := &Error{
		Code:    CodeConfig,
		Message: "catalog invalid",
		Hint:    "check page Overview",
	}
	if errWithHint.Error() != "catalog invalid: check page Overview" {
		t.Errorf("Error() = %q", errWithHint.Error())
	}

	errNoHint := &Error{Code: CodeConfig, Message: "catalog invalid"}
	if errNoHint.Error() != "catalog invalid" {
		t.Errorf("Error() = %q", errNoHint.Error())
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &Error{Code: CodeAPI, Message: "api error", Cause: cause}

	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, cause))
}

func TestErrAPI(t *testing.T) {
	err := ErrAPI(404, `{"error":{"code":"PowerBIEntityNotFound"}}`)

	assert.Equal(t, CodeAPI, err.Code)
	assert.Equal(t, 404, err.HTTPStatus)
	assert.Equal(t, `{"error":{"code":"PowerBIEntityNotFound"}}`, err.RawBody)
	assert.Equal(t, `API Error 404: {"error":{"code":"PowerBIEntityNotFound"}}`, err.Message)
	assert.Equal(t, ExitAPI, err.ExitCode())
}

func TestErrAuth(t *testing.T) {
	cause := errors.New("exit status 1")
	err := ErrAuthCause("credential helper failed", cause)

	assert.Equal(t, CodeAuth, err.Code)
	assert.Equal(t, ExitAuth, err.ExitCode())
	assert.Contains(t, err.Hint, "az login")
	assert.ErrorIs(t, err, cause)
}

func TestErrNetwork(t *testing.T) {
	err := ErrNetwork(errors.New("dial tcp: connection refused"))

	assert.Equal(t, ExitNetwork, err.ExitCode())
	assert.Equal(t, "dial tcp: connection refused", err.Hint)
}

func TestIsRemote(t *testing.T) {
	status, ok := IsRemote(ErrAPI(429, "slow down"))
	assert.True(t, ok)
	assert.Equal(t, 429, status)

	_, ok = IsRemote(ErrNetwork(errors.New("timeout")))
	assert.False(t, ok)

	_, ok = IsRemote(errors.New("plain"))
	assert.False(t, ok)
}

func TestAsError(t *testing.T) {
	original := ErrConfig("no active session")
	assert.Same(t, original, AsError(original))

	wrapped := AsError(errors.New("boom"))
	assert.Equal(t, CodeAPI, wrapped.Code)
	assert.Equal(t, "boom", wrapped.Message)
}

// =============================================================================
// Writer Tests
// =============================================================================

func TestWriterOKJSON(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatJSON, Writer: &buf})

	err := w.OK([]map[string]any{{"id": "ws-1", "name": "Analytics"}},
		WithSummary("1 workspace"),
		WithBreadcrumbs(Breadcrumb{Action: "reports", Cmd: "reportbuilder reports ws-1"}),
	)
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "1 workspace", resp.Summary)
	require.Len(t, resp.Breadcrumbs, 1)
	assert.Equal(t, "reportbuilder reports ws-1", resp.Breadcrumbs[0].Cmd)
}

func TestWriterErrJSONCarriesRawBody(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatJSON, Writer: &buf})

	require.NoError(t, w.Err(ErrAPI(400, "bad query")))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.False(t, resp.OK)
	assert.Equal(t, CodeAPI, resp.Code)
	assert.Equal(t, 400, resp.Status)
	assert.Equal(t, "bad query", resp.RawBody)
}

func TestWriterQuietEmitsDataOnly(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatQuiet, Writer: &buf})

	require.NoError(t, w.OK(map[string]any{"id": "r1"}, WithSummary("ignored")))
	assert.NotContains(t, buf.String(), "ignored")
	assert.Contains(t, buf.String(), `"id": "r1"`)
}

func TestWriterIDsAndCount(t *testing.T) {
	data := []map[string]any{{"id": "a"}, {"id": "b"}}

	var ids bytes.Buffer
	require.NoError(t, New(Options{Format: FormatIDs, Writer: &ids}).OK(data))
	assert.Equal(t, "a\nb\n", ids.String())

	var count bytes.Buffer
	require.NoError(t, New(Options{Format: FormatCount, Writer: &count}).OK(data))
	assert.Equal(t, "2\n", count.String())
}

func TestWriterAutoNonTTYIsJSON(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Writer: &buf})
	assert.Equal(t, FormatJSON, w.Format())
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("json"))
	assert.Equal(t, FormatMarkdown, ParseFormat("md"))
	assert.Equal(t, FormatStyled, ParseFormat("styled"))
	assert.Equal(t, FormatQuiet, ParseFormat("quiet"))
	assert.Equal(t, FormatAuto, ParseFormat("whatever"))
}

func TestNormalizeDataStruct(t *testing.T) {
	type page struct {
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
	}
	got := NormalizeData([]page{{Name: "ReportSection1", DisplayName: "Overview"}})

	rows, ok := got.([]map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Overview", rows[0]["displayName"])
}

func TestNormalizeDataRawMessage(t *testing.T) {
	got := NormalizeData(json.RawMessage(`[{"id":"x"}]`))
	rows, ok := got.([]map[string]any)
	require.True(t, ok)
	assert.Equal(t, "x", rows[0]["id"])
}

// =============================================================================
// Rendering Tests
// =============================================================================

func TestStyledRendersTable(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	w := New(Options{Format: FormatStyled, Writer: &buf})

	err := w.OK([]map[string]any{
		{"id": "ws-1", "name": "Analytics"},
		{"id": "ws-2", "name": "Finance"},
	}, WithSummary("2 workspaces"))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "2 workspaces")
	assert.Contains(t, out, "Analytics")
	assert.Contains(t, out, "Finance")
	assert.Contains(t, out, "Name")
}

func TestStyledRendersError(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	w := New(Options{Format: FormatStyled, Writer: &buf})

	require.NoError(t, w.Err(ErrAuth("credential helper returned no token")))
	out := buf.String()
	assert.Contains(t, out, "Error: credential helper returned no token")
	assert.Contains(t, out, "Hint: Run: az login")
}

func TestStyledEmptyList(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	require.NoError(t, New(Options{Format: FormatStyled, Writer: &buf}).OK([]map[string]any{}))
	assert.Contains(t, buf.String(), "(no results)")
}

func TestMarkdownTable(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatMarkdown, Writer: &buf})

	require.NoError(t, w.OK([]map[string]any{{"id": "r1", "name": "Sales|Q1"}}, WithSummary("Reports")))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "## Reports\n"))
	assert.Contains(t, out, "| Id | Name |")
	assert.Contains(t, out, `Sales\|Q1`)
}

func TestMarkdownStats(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatMarkdown, Writer: &buf})

	stats := &observability.SessionMetrics{TotalRequests: 3}
	require.NoError(t, w.OK("done", WithStats(stats)))
	assert.Contains(t, buf.String(), "*Stats: 3 requests")
}

func TestFormatHeader(t *testing.T) {
	tests := map[string]string{
		"id":          "Id",
		"displayName": "Display Name",
		"dataset_id":  "Dataset Id",
		"webUrl":      "Web Url",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatHeader(in), in)
	}
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "", formatCell(nil))
	assert.Equal(t, "yes", formatCell(true))
	assert.Equal(t, "42", formatCell(float64(42)))
	assert.Equal(t, "0.85", formatCell(0.85))
	assert.Equal(t, "a, b", formatCell([]any{"a", "b"}))
	assert.Equal(t, strings.Repeat("x", 37)+"...", formatCell(strings.Repeat("x", 50)))
}
