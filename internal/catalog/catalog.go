// Package catalog declares the report pages and visuals the builder creates.
package catalog

import (
	"slices"
	"strings"
)

// Schema URIs attached to data fields handed to the authoring SDK.
const (
	MeasureSchema = "http://powerbi.com/product/schema#measure"
	ColumnSchema  = "http://powerbi.com/product/schema#column"
)

// Default canvas dimensions.
const (
	DefaultCanvasWidth  = 1920
	DefaultCanvasHeight = 1080
)

// Position is the top-left corner of a visual in canvas units.
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Size is a visual's extent in canvas units.
type Size struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Layout places a visual on the canvas.
type Layout struct {
	Position `yaml:",inline"`
	Size     `yaml:",inline"`
}

// Rect is shorthand for building a Layout.
func Rect(x, y, width, height int) Layout {
	return Layout{Position{X: x, Y: y}, Size{Width: width, Height: height}}
}

// FieldRef names a model field: a table plus exactly one of measure or column.
type FieldRef struct {
	Table   string `json:"table" yaml:"table"`
	Measure string `json:"measure,omitempty" yaml:"measure,omitempty"`
	Column  string `json:"column,omitempty" yaml:"column,omitempty"`
}

// Measure builds a measure reference.
func Measure(table, name string) FieldRef {
	return FieldRef{Table: table, Measure: name}
}

// Column builds a column reference.
func Column(table, name string) FieldRef {
	return FieldRef{Table: table, Column: name}
}

// IsMeasure reports whether the reference names a measure.
func (f FieldRef) IsMeasure() bool {
	return f.Measure != ""
}

// Name returns the measure or column name.
func (f FieldRef) Name() string {
	if f.IsMeasure() {
		return f.Measure
	}
	return f.Column
}

// Schema returns the schema URI the SDK expects for this field.
func (f FieldRef) Schema() string {
	if f.IsMeasure() {
		return MeasureSchema
	}
	return ColumnSchema
}

// String renders the reference in DAX notation, e.g. 'Fact_Visit'[Total Visits].
func (f FieldRef) String() string {
	return quoteTable(f.Table) + quoteField(f.Name())
}

// DataBinding attaches a field to a data role of a visual.
type DataBinding struct {
	Role string `json:"role" yaml:"role"`

	FieldRef `yaml:",inline"`
}

// Bind builds a DataBinding.
func Bind(role string, field FieldRef) DataBinding {
	return DataBinding{Role: role, FieldRef: field}
}

// VisualDescriptor declares one visual to create.
type VisualDescriptor struct {
	Layout `yaml:",inline"`

	Kind     Kind          `json:"kind" yaml:"kind"`
	Bindings []DataBinding `json:"bindings,omitempty" yaml:"bindings,omitempty"`
	Title    string        `json:"title,omitempty" yaml:"title,omitempty"`
	Target   *float64      `json:"target,omitempty" yaml:"target,omitempty"`
	Stages   []string      `json:"stages,omitempty" yaml:"stages,omitempty"`
}

func (v VisualDescriptor) clone() VisualDescriptor {
	v.Bindings = slices.Clone(v.Bindings)
	v.Stages = slices.Clone(v.Stages)
	if v.Target != nil {
		t := *v.Target
		v.Target = &t
	}
	return v
}

// PageSpec declares one report page.
type PageSpec struct {
	Name        string             `json:"name" yaml:"name"`
	DisplayName string             `json:"displayName" yaml:"displayName"`
	Ordinal     int                `json:"ordinal" yaml:"ordinal"`
	Visuals     []VisualDescriptor `json:"visuals" yaml:"visuals"`
}

func (p PageSpec) clone() PageSpec {
	visuals := make([]VisualDescriptor, len(p.Visuals))
	for i, v := range p.Visuals {
		visuals[i] = v.clone()
	}
	p.Visuals = visuals
	return p
}

// Canvas is the page area visuals are laid out on.
type Canvas struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// ReportCatalog is a validated, immutable set of pages.
type ReportCatalog struct {
	canvas Canvas
	pages  []PageSpec
}

// New validates pages and returns a catalog holding its own copy of them.
// A zero canvas takes the default 1920x1080.
func New(canvas Canvas, pages []PageSpec) (*ReportCatalog, error) {
	if canvas.Width == 0 && canvas.Height == 0 {
		canvas = Canvas{Width: DefaultCanvasWidth, Height: DefaultCanvasHeight}
	}
	if err := Validate(canvas, pages); err != nil {
		return nil, err
	}
	sorted := make([]PageSpec, len(pages))
	for i, p := range pages {
		sorted[i] = p.clone()
	}
	slices.SortStableFunc(sorted, func(a, b PageSpec) int { return a.Ordinal - b.Ordinal })
	return &ReportCatalog{canvas: canvas, pages: sorted}, nil
}

// Canvas returns the catalog canvas.
func (c *ReportCatalog) Canvas() Canvas {
	return c.canvas
}

// Pages returns the pages in ordinal order.
func (c *ReportCatalog) Pages() []PageSpec {
	out := make([]PageSpec, len(c.pages))
	for i, p := range c.pages {
		out[i] = p.clone()
	}
	return out
}

// Len returns the number of pages.
func (c *ReportCatalog) Len() int {
	return len(c.pages)
}

// Page looks a page up by internal name.
func (c *ReportCatalog) Page(name string) (PageSpec, bool) {
	for _, p := range c.pages {
		if p.Name == name {
			return p.clone(), true
		}
	}
	return PageSpec{}, false
}

// PageAt looks a page up by ordinal.
func (c *ReportCatalog) PageAt(ordinal int) (PageSpec, bool) {
	if ordinal < 0 || ordinal >= len(c.pages) {
		return PageSpec{}, false
	}
	return c.pages[ordinal].clone(), true
}

// Visuals returns the visuals of the named page in declared order.
func (c *ReportCatalog) Visuals(page string) ([]VisualDescriptor, bool) {
	p, ok := c.Page(page)
	if !ok {
		return nil, false
	}
	return p.Visuals, true
}

// VisualCount returns the total number of visuals across pages.
func (c *ReportCatalog) VisualCount() int {
	n := 0
	for _, p := range c.pages {
		n += len(p.Visuals)
	}
	return n
}

// Warnings describes every visual that extends past the canvas.
func (c *ReportCatalog) Warnings() []string {
	var out []string
	for _, p := range c.pages {
		for i, v := range p.Visuals {
			if v.X+v.Width > c.canvas.Width || v.Y+v.Height > c.canvas.Height {
				out = append(out, overflowWarning(p, i, v, c.canvas))
			}
		}
	}
	return out
}

func quoteTable(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteField(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}
