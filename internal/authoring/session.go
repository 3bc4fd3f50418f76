// Package authoring drives the Power BI report authoring surface: pages,
// visuals, data fields and properties on an embedded report in edit mode.
package authoring

import (
	"context"
	"errors"

	"github.com/bmd-analytics/reportbuilder/internal/catalog"
)

// Handle identifies a visual created in a session.
type Handle string

// Page is a page that exists in the remote report.
type Page struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Ordinal     int    `json:"order"`
}

// Selector addresses a formatting property of a visual.
type Selector struct {
	ObjectName   string `json:"objectName"`
	PropertyName string `json:"propertyName"`
}

// TitleText is the selector for a visual's title.
var TitleText = Selector{ObjectName: "title", PropertyName: "titleText"}

// PropertyValue is the value half of a setProperty call.
type PropertyValue struct {
	Schema string `json:"schema"`
	Value  any    `json:"value"`
}

// Text wraps a string property value.
func Text(s string) PropertyValue {
	return PropertyValue{Schema: "text", Value: s}
}

// Errors returned by sessions.
var (
	ErrUnknownPage   = errors.New("page not found in report")
	ErrUnknownHandle = errors.New("unknown visual handle")
	ErrNoPage        = errors.New("no active page")
)

// Session is one authoring connection to a report. Sessions are not safe
// for concurrent use: a single goroutine owns a session for its lifetime.
type Session interface {
	// Lifecycle exposes the report's event futures.
	Lifecycle() *Lifecycle
	// Active reports whether the report has loaded and a page is selected.
	Active() bool
	// Pages lists the pages of the remote report.
	Pages(ctx context.Context) ([]Page, error)
	// SetActive selects the page subsequent visuals are created on.
	SetActive(ctx context.Context, page Page) error
	// CreateVisual adds a visual of the given SDK type to the active page.
	CreateVisual(ctx context.Context, visualType string, layout catalog.Layout) (Handle, error)
	// AddDataField binds a model field to a data role of a visual.
	AddDataField(ctx context.Context, h Handle, role string, field catalog.FieldRef) error
	// SetProperty sets a formatting property of a visual.
	SetProperty(ctx context.Context, h Handle, sel Selector, v PropertyValue) error
	// Save persists the report.
	Save(ctx context.Context) error
}

// DataField is the field object addDataField expects.
type DataField struct {
	Schema  string `json:"$schema"`
	Table   string `json:"table"`
	Measure string `json:"measure,omitempty"`
	Column  string `json:"column,omitempty"`
}

// NewDataField converts a catalog field reference.
func NewDataField(f catalog.FieldRef) DataField {
	return DataField{Schema: f.Schema(), Table: f.Table, Measure: f.Measure, Column: f.Column}
}
