package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFormatDesignDefault(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatDesign(&buf, Default()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "REPORT DESIGN\n"+strings.Repeat("═", 80)+"\n"))
	assert.Contains(t, out, "Page 1: Executive Command Center\n")
	assert.Contains(t, out, "Page 4: Conversion Journey\n")
	assert.Contains(t, out, "  Name: ConversionFunnel\n")
	assert.Contains(t, out, "  2. card                      @ (40, 160) 340x150\n")
	assert.Contains(t, out, "     Measure: 'Fact_Visit'[Total Visits] as Values\n")
	assert.Contains(t, out, "     Column: 'Dim_Date'[Date] as Category\n")
	assert.Contains(t, out, "     Title: PHOTO RATE\n")
	assert.Contains(t, out, "     Target: 0.7\n")
	assert.Contains(t, out, "     Stages: Visits > Conversions > Orders > Delivered\n")
	assert.True(t, strings.HasSuffix(out, strings.Repeat("═", 80)+"\n"))
}

func TestDesignRoundTripDefault(t *testing.T) {
	want := Default()

	var buf bytes.Buffer
	require.NoError(t, FormatDesign(&buf, want))

	got, err := ParseDesign(&buf)
	require.NoError(t, err)

	assert.Equal(t, want.Canvas(), got.Canvas())
	if diff := cmp.Diff(want.Pages(), got.Pages(), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDesignRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		want := drawCatalog(t)

		var buf bytes.Buffer
		if err := FormatDesign(&buf, want); err != nil {
			t.Fatalf("format: %v", err)
		}
		got, err := ParseDesign(strings.NewReader(buf.String()))
		if err != nil {
			t.Fatalf("parse: %v\n%s", err, buf.String())
		}
		if want.Canvas() != got.Canvas() {
			t.Fatalf("canvas: want %v, got %v", want.Canvas(), got.Canvas())
		}
		if diff := cmp.Diff(want.Pages(), got.Pages(), cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestDesignRoundTripAnyTextProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		canvas, pages := drawLoosePages(t)
		want, err := New(canvas, pages)
		if err != nil {
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("unexpected error type %T: %v", err, err)
			}
			return
		}

		var buf bytes.Buffer
		if err := FormatDesign(&buf, want); err != nil {
			t.Fatalf("format: %v", err)
		}
		got, err := ParseDesign(strings.NewReader(buf.String()))
		if err != nil {
			t.Fatalf("parse: %v\n%s", err, buf.String())
		}
		if diff := cmp.Diff(want.Pages(), got.Pages(), cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestCatalogInvariantsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := drawCatalog(t)

		pages := c.Pages()
		overflow := 0
		for i, p := range pages {
			if p.Ordinal != i {
				t.Fatalf("page %d has ordinal %d", i, p.Ordinal)
			}
			for _, v := range p.Visuals {
				if v.X+v.Width > c.Canvas().Width || v.Y+v.Height > c.Canvas().Height {
					overflow++
				}
			}
		}
		if got := len(c.Warnings()); got != overflow {
			t.Fatalf("want %d warnings, got %d", overflow, got)
		}
	})
}

func TestParseDesignErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"visual before page", "  1. card @ (0, 0) 10x10\n", "visual outside of a page"},
		{"binding before visual", "Page 1: A\n  Name: A\n     Measure: 'T'[M] as Values\n", "outside of a visual"},
		{"unknown kind", "Page 1: A\n  Name: A\n  1. scatter @ (0, 0) 10x10\n", "unknown visual kind"},
		{"misnumbered visual", "Page 1: A\n  Name: A\n  2. card @ (0, 0) 10x10\n", "numbered 2, expected 1"},
		{"missing role", "Page 1: A\n  Name: A\n  1. card @ (0, 0) 10x10\n     Measure: 'T'[M]\n", "missing role"},
		{"unterminated table", "Page 1: A\n  Name: A\n  1. card @ (0, 0) 10x10\n     Column: 'T[M] as Values\n", "unterminated"},
		{"bad target", "Page 1: A\n  Name: A\n  1. gauge @ (0, 0) 10x10\n     Target: high\n", "invalid target"},
		{"garbage", "Page 1: A\nwhat is this\n", "unrecognized line"},
		{"invalid catalog", "Page 1: A\n  1. card @ (0, 0) 10x10\n", "name must not be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDesign(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func drawCatalog(t *rapid.T) *ReportCatalog {
	canvas := Canvas{
		Width:  rapid.IntRange(1, 4000).Draw(t, "canvasWidth"),
		Height: rapid.IntRange(1, 4000).Draw(t, "canvasHeight"),
	}
	n := rapid.IntRange(1, 4).Draw(t, "pages")
	ordinals := make([]int, n)
	for i := range ordinals {
		ordinals[i] = i
	}
	ordinals = rapid.Permutation(ordinals).Draw(t, "ordinals")

	pages := make([]PageSpec, n)
	for i := range pages {
		pages[i] = PageSpec{
			Name:        fmt.Sprintf("Page%d_%s", i, rapid.StringMatching(`[A-Za-z0-9_]{0,8}`).Draw(t, "name")),
			DisplayName: rapid.StringMatching(`[A-Za-z0-9]([A-Za-z0-9 &:-]{0,20}[A-Za-z0-9])?`).Draw(t, "displayName"),
			Ordinal:     ordinals[i],
			Visuals:     rapid.SliceOfN(visualGen(), 0, 6).Draw(t, "visuals"),
		}
	}

	c, err := New(canvas, pages)
	if err != nil {
		t.Fatalf("generated catalog is invalid: %v", err)
	}
	return c
}

func visualGen() *rapid.Generator[VisualDescriptor] {
	return rapid.Custom(func(t *rapid.T) VisualDescriptor {
		v := VisualDescriptor{
			Kind: rapid.SampledFrom(Kinds()).Draw(t, "kind"),
			Layout: Rect(
				rapid.IntRange(0, 3000).Draw(t, "x"),
				rapid.IntRange(0, 3000).Draw(t, "y"),
				rapid.IntRange(1, 2000).Draw(t, "width"),
				rapid.IntRange(1, 2000).Draw(t, "height"),
			),
			Bindings: rapid.SliceOfN(bindingGen(), 0, 4).Draw(t, "bindings"),
		}
		if rapid.Bool().Draw(t, "hasTitle") {
			v.Title = rapid.StringMatching(`[A-Za-z0-9%]([A-Za-z0-9 %:'-]{0,20}[A-Za-z0-9%])?`).Draw(t, "title")
		}
		if rapid.Bool().Draw(t, "hasTarget") {
			target := rapid.Float64Range(0, 1).Draw(t, "target")
			v.Target = &target
		}
		v.Stages = rapid.SliceOfN(rapid.StringMatching(`[A-Za-z][A-Za-z0-9]{0,10}`), 0, 5).Draw(t, "stages")
		return v
	})
}

func bindingGen() *rapid.Generator[DataBinding] {
	return rapid.Custom(func(t *rapid.T) DataBinding {
		role := rapid.SampledFrom([]string{RoleCategory, RoleValues, RoleSeries, RoleRows, "Tooltips"}).Draw(t, "role")
		table := rapid.StringMatching(`[A-Za-z_][A-Za-z0-9_ ']{0,15}`).Draw(t, "table")
		name := rapid.StringMatching(`[A-Za-z0-9 %\[\]']{1,15}`).Draw(t, "field")
		if rapid.Bool().Draw(t, "measure") {
			return Bind(role, Measure(table, name))
		}
		return Bind(role, Column(table, name))
	})
}

// looseText draws text that is often not representable on a design line.
func looseText() *rapid.Generator[string] {
	return rapid.StringOfN(rapid.SampledFrom([]rune("Ab9 >:%'[]\n\r\t-")), 0, 10, -1)
}

func drawLoosePages(t *rapid.T) (Canvas, []PageSpec) {
	n := rapid.IntRange(1, 3).Draw(t, "pages")
	pages := make([]PageSpec, n)
	for i := range pages {
		pages[i] = PageSpec{
			Name:        fmt.Sprintf("P%d%s", i, looseText().Draw(t, "name")),
			DisplayName: looseText().Draw(t, "displayName"),
			Ordinal:     i,
			Visuals: rapid.SliceOfN(rapid.Custom(func(t *rapid.T) VisualDescriptor {
				v := VisualDescriptor{
					Kind:   rapid.SampledFrom(Kinds()).Draw(t, "kind"),
					Layout: Rect(0, 0, 10, 10),
					Title:  looseText().Draw(t, "title"),
					Stages: rapid.SliceOfN(looseText(), 0, 3).Draw(t, "stages"),
				}
				for range rapid.IntRange(0, 2).Draw(t, "bindings") {
					field := Column(looseText().Draw(t, "table"), looseText().Draw(t, "field"))
					v.Bindings = append(v.Bindings, Bind(looseText().Draw(t, "role"), field))
				}
				return v
			}), 0, 3).Draw(t, "visuals"),
		}
	}
	return Canvas{Width: 1920, Height: 1080}, pages
}
