// Package htmlgen renders the self-contained authoring page that embeds a
// report in edit mode and runs a compiled build script once it loads.
package htmlgen

import (
	"errors"
	"html"
	"html/template"
	"io"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// SDK script locations.
const (
	ClientScriptURL    = "https://cdn.jsdelivr.net/npm/powerbi-client@2.23.0/dist/powerbi.min.js"
	AuthoringScriptURL = "https://cdn.jsdelivr.net/npm/powerbi-report-authoring@3.0.0/dist/powerbi-report-authoring.min.js"
)

// DefaultTitle is the document title when none is given.
const DefaultTitle = "BMD Sales Report Builder"

// TokenType selects how the embedded token is presented to the SDK.
type TokenType string

const (
	// TokenAad is the caller's own Azure AD access token.
	TokenAad TokenType = "Aad"
	// TokenEmbed is a short-lived embed token scoped to the dataset.
	TokenEmbed TokenType = "Embed"
)

// Page describes one authoring page. With ReportID set the page opens that
// report for editing; otherwise it creates a new report over DatasetID.
type Page struct {
	Title     string
	EmbedURL  string
	DatasetID string
	ReportID  string
	Token     string
	TokenType TokenType
	// Script holds authoring statements compiled by an
	// authoring.ScriptSession.
	Script string
	// Notes are shown above the report, e.g. pages that need manual
	// creation.
	Notes []string
}

// Errors returned by Render.
var (
	ErrNoToken    = errors.New("access token is required")
	ErrNoEmbedURL = errors.New("embed URL is required")
	ErrNoDataset  = errors.New("dataset ID is required to create a report")
)

// Warnings describes the risks of sharing the rendered page.
func (p Page) Warnings() []string {
	if p.tokenType() == TokenAad {
		return []string{"The generated HTML contains your Azure AD access token in plain text. " +
			"Do not share or commit it; use --embed-token for a short-lived scoped token."}
	}
	return nil
}

func (p Page) tokenType() TokenType {
	if p.TokenType == "" {
		return TokenAad
	}
	return p.TokenType
}

type view struct {
	Title        string
	ClientURL    string
	AuthoringURL string
	EmbedURL     string
	DatasetID    string
	ReportID     string
	Token        string
	TokenType    string
	Create       bool
	Script       template.JS
	Notes        []string
}

// Render writes the page as HTML.
func Render(w io.Writer, p Page) error {
	if strings.TrimSpace(p.Token) == "" {
		return ErrNoToken
	}
	if strings.TrimSpace(p.EmbedURL) == "" {
		return ErrNoEmbedURL
	}
	create := p.ReportID == ""
	if create && strings.TrimSpace(p.DatasetID) == "" {
		return ErrNoDataset
	}

	title := SanitizeText(p.Title)
	if title == "" {
		title = DefaultTitle
	}
	notes := make([]string, 0, len(p.Notes))
	for _, n := range p.Notes {
		if n = SanitizeText(n); n != "" {
			notes = append(notes, n)
		}
	}

	return pageTemplate.Execute(w, view{
		Title:        title,
		ClientURL:    ClientScriptURL,
		AuthoringURL: AuthoringScriptURL,
		EmbedURL:     p.EmbedURL,
		DatasetID:    p.DatasetID,
		ReportID:     p.ReportID,
		Token:        p.Token,
		TokenType:    string(p.tokenType()),
		Create:       create,
		// Script statements are compiled with every literal JSON-encoded.
		Script: template.JS(indent(p.Script, "            ")),
		Notes:  notes,
	})
}

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// SanitizeText strips markup from a display string and returns plain
// text.
func SanitizeText(s string) string {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

func indent(s, prefix string) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
