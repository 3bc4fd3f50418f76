package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const yamlCatalog = `
canvas:
  width: 1280
  height: 720
pages:
  - name: Overview
    displayName: Overview
    ordinal: 0
    visuals:
      - kind: card
        x: 40
        y: 40
        width: 300
        height: 120
        title: VISITS
        bindings:
          - role: Values
            table: Fact_Visit
            measure: Total Visits
      - kind: lineChart
        x: 40
        y: 200
        width: 800
        height: 400
        bindings:
          - role: Category
            table: Dim_Date
            column: Date
          - role: Values
            table: Fact_Visit
            measure: Total Visits
`

const jsoncCatalog = `{
  // pages only; the canvas defaults
  "pages": [
    {
      "name": "Quality",
      "displayName": "Quality",
      "ordinal": 0,
      "visuals": [
        {
          "kind": "gauge",
          "x": 0, "y": 0, "width": 400, "height": 200,
          "target": 0.8,
          "bindings": [{"role": "Values", "table": "Fact_Visit", "measure": "GPS Capture %"}],
        },
      ],
    },
  ],
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	c, err := Load(writeFile(t, "catalog.yaml", yamlCatalog))
	require.NoError(t, err)

	assert.Equal(t, Canvas{Width: 1280, Height: 720}, c.Canvas())
	visuals, ok := c.Visuals("Overview")
	require.True(t, ok)
	require.Len(t, visuals, 2)

	assert.Equal(t, KindCard, visuals[0].Kind)
	assert.Equal(t, "VISITS", visuals[0].Title)
	assert.Equal(t, Rect(40, 40, 300, 120), visuals[0].Layout)
	assert.Equal(t, KindLine, visuals[1].Kind, "SDK type names are accepted")
	assert.Equal(t, []DataBinding{
		Bind(RoleCategory, Column("Dim_Date", "Date")),
		Bind(RoleValues, Measure("Fact_Visit", "Total Visits")),
	}, visuals[1].Bindings)
}

func TestLoadJSONC(t *testing.T) {
	c, err := Load(writeFile(t, "catalog.jsonc", jsoncCatalog))
	require.NoError(t, err)

	assert.Equal(t, Canvas{Width: DefaultCanvasWidth, Height: DefaultCanvasHeight}, c.Canvas())
	p, ok := c.PageAt(0)
	require.True(t, ok)
	require.Len(t, p.Visuals, 1)
	require.NotNil(t, p.Visuals[0].Target)
	assert.InDelta(t, 0.8, *p.Visuals[0].Target, 1e-9)
}

func TestLoadRejectsInvalidCatalog(t *testing.T) {
	bad := `
pages:
  - name: Overview
    ordinal: 0
    visuals:
      - kind: card
        x: 0
        y: 0
        width: 10
        height: 10
      - kind: scatter
        x: 0
        y: 0
        width: 10
        height: 10
`
	_, err := Load(writeFile(t, "bad.yml", bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page Overview visual 1")
	assert.Contains(t, err.Error(), `unknown visual kind "scatter"`)
}

func TestParseRejectsTextDesignCannotCarry(t *testing.T) {
	page := func(displayName, visual string) string {
		return "pages:\n  - name: Overview\n    displayName: " + displayName +
			"\n    ordinal: 0\n    visuals:\n      - kind: funnel\n        x: 0\n        y: 0\n        width: 10\n        height: 10\n" + visual
	}
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"multi-line display name", page(`"Executive\nSummary"`, ""), "display name must not contain control characters"},
		{"padded title", page("Overview", `        title: "Visits "`+"\n"), "title must not start or end with whitespace"},
		{"empty stage", page("Overview", `        stages: ["Visits", ""]`+"\n"), "stage 1 must not be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), FormatYAML)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(writeFile(t, "typo.yaml", "pages:\n  - name: A\n    ordnal: 0\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "typo.json", `{"pagez": []}`))
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "catalog.toml", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported catalog extension")
}

func TestMarshalRoundTrip(t *testing.T) {
	want := Default()

	t.Run("yaml", func(t *testing.T) {
		data, err := yaml.Marshal(want)
		require.NoError(t, err)
		got, err := Parse(data, FormatYAML)
		require.NoError(t, err)
		if diff := cmp.Diff(want.Pages(), got.Pages(), cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("yaml round trip mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("json", func(t *testing.T) {
		data, err := want.MarshalJSON()
		require.NoError(t, err)
		got, err := Parse(data, FormatJSON)
		require.NoError(t, err)
		if diff := cmp.Diff(want.Pages(), got.Pages(), cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("json round trip mismatch (-want +got):\n%s", diff)
		}
	})
}
