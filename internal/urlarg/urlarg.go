// Package urlarg parses Power BI links into IDs.
// This allows users to paste URLs from the browser as command arguments.
package urlarg

import (
	"net/url"
	"strings"
)

// Artifact types found in Power BI links.
const (
	TypeReport  = "reports"
	TypeDataset = "datasets"
)

// myWorkspace is the path segment the service uses for My Workspace.
const myWorkspace = "me"

// Parsed represents components extracted from a Power BI URL.
type Parsed struct {
	WorkspaceID string // empty for My Workspace
	Type        string // TypeReport or TypeDataset
	ID          string
	PageName    string // report section, when the link opens a page
}

// IsURL checks if the input is a Power BI link this package understands.
func IsURL(input string) bool {
	return Parse(input) != nil
}

// Parse extracts IDs from a Power BI URL.
// Returns nil if the input is not a recognized link.
//
// Supported URL patterns:
//   - https://app.powerbi.com/groups/{workspace}/reports/{id}
//   - https://app.powerbi.com/groups/{workspace}/reports/{id}/{page}
//   - https://app.powerbi.com/groups/me/reports/{id}
//   - https://app.powerbi.com/groups/{workspace}/datasets/{id}/details
//   - https://app.powerbi.com/reportEmbed?reportId={id}&groupId={workspace}
func Parse(input string) *Parsed {
	u, err := url.Parse(strings.TrimSpace(input))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if strings.EqualFold(segments[len(segments)-1], "reportEmbed") {
		q := u.Query()
		if q.Get("reportId") == "" {
			return nil
		}
		return &Parsed{WorkspaceID: q.Get("groupId"), Type: TypeReport, ID: q.Get("reportId")}
	}

	p := &Parsed{}
	if len(segments) >= 2 && segments[0] == "groups" {
		if segments[1] != myWorkspace {
			p.WorkspaceID = segments[1]
		}
		segments = segments[2:]
	}
	if len(segments) < 2 || segments[1] == "" {
		return nil
	}
	switch segments[0] {
	case TypeReport:
		p.Type = TypeReport
		if len(segments) > 2 {
			p.PageName = segments[2]
		}
	case TypeDataset:
		p.Type = TypeDataset
	default:
		return nil
	}
	p.ID = segments[1]
	return p
}

// ExtractID extracts the artifact ID from an argument.
// If the argument is a Power BI URL, extracts the report or dataset ID.
// Otherwise, returns the argument as-is (assumed to be an ID).
func ExtractID(arg string) string {
	if parsed := Parse(arg); parsed != nil {
		return parsed.ID
	}
	return arg
}

// ExtractWithWorkspace extracts the artifact ID and the workspace from an
// argument. ok is false when the argument is not a URL, in which case it is
// returned unchanged and carries no workspace.
func ExtractWithWorkspace(arg string) (id, workspaceID string, ok bool) {
	if parsed := Parse(arg); parsed != nil {
		return parsed.ID, parsed.WorkspaceID, true
	}
	return arg, "", false
}
