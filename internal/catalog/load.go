package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// document is the on-disk shape of a catalog file.
type document struct {
	Canvas Canvas     `json:"canvas" yaml:"canvas"`
	Pages  []PageSpec `json:"pages" yaml:"pages"`
}

// Format identifies a catalog file encoding.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

// FormatForPath picks the decoder from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json", ".jsonc":
		return FormatJSON, nil
	default:
		return 0, fmt.Errorf("unsupported catalog extension %q (want .yaml, .yml, .json or .jsonc)", filepath.Ext(path))
	}
}

// Load reads and validates a catalog file.
func Load(path string) (*ReportCatalog, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is user-supplied by design
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	c, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates catalog data.
func Parse(data []byte, format Format) (*ReportCatalog, error) {
	var doc document
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parsing catalog YAML: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parsing catalog JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown catalog format %d", format)
	}
	return New(doc.Canvas, doc.Pages)
}

// MarshalYAML encodes the catalog in the file shape Load accepts.
func (c *ReportCatalog) MarshalYAML() (any, error) {
	return document{Canvas: c.canvas, Pages: c.Pages()}, nil
}

// MarshalJSON encodes the catalog in the file shape Load accepts.
func (c *ReportCatalog) MarshalJSON() ([]byte, error) {
	return json.Marshal(document{Canvas: c.canvas, Pages: c.Pages()})
}
