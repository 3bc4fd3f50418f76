package catalog

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPage() PageSpec {
	return PageSpec{
		Name:        "Main",
		DisplayName: "Main",
		Visuals: []VisualDescriptor{
			single(KindCard, Rect(0, 0, 100, 100), Measure("T", "M")),
		},
	}
}

func TestValidate(t *testing.T) {
	fraction := func(f float64) *float64 { return &f }

	tests := []struct {
		name    string
		mutate  func(p *PageSpec)
		visual  int
		wantMsg string
	}{
		{"unknown kind", func(p *PageSpec) { p.Visuals[0].Kind = "scatter" }, 0, `unknown visual kind "scatter"`},
		{"negative x", func(p *PageSpec) { p.Visuals[0].X = -1 }, 0, "must not be negative"},
		{"zero width", func(p *PageSpec) { p.Visuals[0].Width = 0 }, 0, "must be positive"},
		{"negative height", func(p *PageSpec) { p.Visuals[0].Height = -5 }, 0, "must be positive"},
		{"missing table", func(p *PageSpec) { p.Visuals[0].Bindings[0].Table = "" }, 0, "table must not be empty"},
		{"missing role", func(p *PageSpec) { p.Visuals[0].Bindings[0].Role = " " }, 0, "role must not be empty"},
		{"measure and column", func(p *PageSpec) { p.Visuals[0].Bindings[0].Column = "C" }, 0, "exactly one of measure or column"},
		{"neither measure nor column", func(p *PageSpec) { p.Visuals[0].Bindings[0].Measure = "" }, 0, "exactly one of measure or column"},
		{"target above one", func(p *PageSpec) { p.Visuals[0].Target = fraction(1.5) }, 0, "within [0, 1]"},
		{"target below zero", func(p *PageSpec) { p.Visuals[0].Target = fraction(-0.1) }, 0, "within [0, 1]"},
		{"target NaN", func(p *PageSpec) { p.Visuals[0].Target = fraction(math.NaN()) }, 0, "within [0, 1]"},
		{"padded title", func(p *PageSpec) { p.Visuals[0].Title = "Visits " }, 0, "title must not start or end with whitespace"},
		{"multi-line title", func(p *PageSpec) { p.Visuals[0].Title = "Visits\nToday" }, 0, "title must not contain control characters"},
		{"empty stage", func(p *PageSpec) { p.Visuals[0].Stages = []string{"Visits", ""} }, 0, "stage 1 must not be empty"},
		{"padded stage", func(p *PageSpec) { p.Visuals[0].Stages = []string{" Visits"} }, 0, "stage 0 must not start or end with whitespace"},
		{"stage with separator", func(p *PageSpec) { p.Visuals[0].Stages = []string{"Visits > Orders"} }, 0, `stage 0 must not contain ">"`},
		{"stage ending in arrow", func(p *PageSpec) { p.Visuals[0].Stages = []string{"Visits >", "Orders"} }, 0, `stage 0 must not contain ">"`},
		{"padded role", func(p *PageSpec) { p.Visuals[0].Bindings[0].Role = "Values\n" }, 0, "role must not start or end with whitespace"},
		{"control character in field", func(p *PageSpec) { p.Visuals[0].Bindings[0].Measure = "M\x00" }, 0, "field must not contain control characters"},
		{"second visual", func(p *PageSpec) {
			p.Visuals = append(p.Visuals, VisualDescriptor{Kind: KindLine, Layout: Rect(0, 0, 0, 10)})
		}, 1, "must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPage()
			tt.mutate(&p)

			err := Validate(Canvas{Width: 1920, Height: 1080}, []PageSpec{p})
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, "Main", verr.Page)
			assert.Equal(t, tt.visual, verr.Visual)
			assert.Contains(t, verr.Error(), tt.wantMsg)
			assert.Contains(t, verr.Error(), "page Main visual")
		})
	}
}

func TestValidatePages(t *testing.T) {
	canvas := Canvas{Width: 1920, Height: 1080}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, Validate(canvas, []PageSpec{validPage()}))
	})

	t.Run("no pages", func(t *testing.T) {
		assert.Error(t, Validate(canvas, nil))
	})

	t.Run("empty name", func(t *testing.T) {
		p := validPage()
		p.Name = ""
		err := Validate(canvas, []PageSpec{p})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "page #0")
	})

	t.Run("multi-line display name", func(t *testing.T) {
		p := validPage()
		p.DisplayName = "Executive\nSummary"
		err := Validate(canvas, []PageSpec{p})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "page Main: display name must not contain control characters")
	})

	t.Run("padded name", func(t *testing.T) {
		p := validPage()
		p.Name = "Main "
		err := Validate(canvas, []PageSpec{p})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name must not start or end with whitespace")
	})

	t.Run("arrow stage", func(t *testing.T) {
		p := validPage()
		p.Visuals[0].Stages = []string{">", "Orders"}
		assert.NoError(t, Validate(canvas, []PageSpec{p}))
	})

	t.Run("duplicate name", func(t *testing.T) {
		a, b := validPage(), validPage()
		b.Ordinal = 1
		err := Validate(canvas, []PageSpec{a, b})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate page name")
	})

	t.Run("duplicate ordinal", func(t *testing.T) {
		a, b := validPage(), validPage()
		b.Name = "Other"
		err := Validate(canvas, []PageSpec{a, b})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate ordinal 0")
	})

	t.Run("ordinal gap", func(t *testing.T) {
		a, b := validPage(), validPage()
		b.Name = "Other"
		b.Ordinal = 2
		err := Validate(canvas, []PageSpec{a, b})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ordinal 2 out of range")
	})

	t.Run("bad canvas", func(t *testing.T) {
		assert.Error(t, Validate(Canvas{Width: 0, Height: 10}, []PageSpec{validPage()}))
	})
}
