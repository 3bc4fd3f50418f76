package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// Workspace is a Power BI group.
type Workspace struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	IsReadOnly            bool   `json:"isReadOnly"`
	IsOnDedicatedCapacity bool   `json:"isOnDedicatedCapacity"`
	Type                  string `json:"type,omitempty"`
}

// Dataset is a semantic model.
type Dataset struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	ConfiguredBy         string `json:"configuredBy,omitempty"`
	IsRefreshable        bool   `json:"isRefreshable"`
	WebURL               string `json:"webUrl,omitempty"`
	CreateReportEmbedURL string `json:"createReportEmbedURL,omitempty"`
	QnaEmbedURL          string `json:"qnaEmbedURL,omitempty"`
	TargetStorageMode    string `json:"targetStorageMode,omitempty"`
}

// Report is a hosted report.
type Report struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DatasetID  string `json:"datasetId"`
	ReportType string `json:"reportType,omitempty"`
	WebURL     string `json:"webUrl,omitempty"`
	EmbedURL   string `json:"embedUrl,omitempty"`
}

// Page is one page of a hosted report.
type Page struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Order       int    `json:"order"`
}

// EmbedToken is a short-lived token scoped to the requested artifacts.
type EmbedToken struct {
	Token      string `json:"token"`
	TokenID    string `json:"tokenId"`
	Expiration string `json:"expiration"`
}

// CloneRequest is the body of a report clone.
type CloneRequest struct {
	Name              string `json:"name"`
	TargetWorkspaceID string `json:"targetWorkspaceId,omitempty"`
	TargetModelID     string `json:"targetModelId,omitempty"`
}

type idRef struct {
	ID string `json:"id"`
}

type generateTokenRequest struct {
	Datasets         []idRef `json:"datasets"`
	TargetWorkspaces []idRef `json:"targetWorkspaces"`
}

type reportTokenRequest struct {
	AccessLevel string `json:"accessLevel"`
}

type daxQuery struct {
	Query string `json:"query"`
}

type serializerSettings struct {
	IncludeNulls bool `json:"includeNulls"`
}

type executeQueriesRequest struct {
	Queries            []daxQuery         `json:"queries"`
	SerializerSettings serializerSettings `json:"serializerSettings"`
}

// odataList is the envelope of every collection response.
type odataList[T any] struct {
	Value []T `json:"value"`
}

// scoped prefixes path with /groups/{ws} when a workspace is given.
func scoped(workspaceID, path string) string {
	if workspaceID == "" {
		return path
	}
	return "/groups/" + url.PathEscape(workspaceID) + path
}

func list[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	var out odataList[T]
	if err := resp.UnmarshalData(&out); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if out.Value == nil {
		out.Value = []T{}
	}
	return out.Value, nil
}

// ListWorkspaces lists the workspaces visible to the caller.
func (c *Client) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	return list[Workspace](ctx, c, "/groups")
}

// ListDatasets lists datasets in a workspace, or in My Workspace when empty.
func (c *Client) ListDatasets(ctx context.Context, workspaceID string) ([]Dataset, error) {
	return list[Dataset](ctx, c, scoped(workspaceID, "/datasets"))
}

// ListReports lists reports in a workspace, or in My Workspace when empty.
func (c *Client) ListReports(ctx context.Context, workspaceID string) ([]Report, error) {
	return list[Report](ctx, c, scoped(workspaceID, "/reports"))
}

// ListPages lists the pages of a report in the service's order.
func (c *Client) ListPages(ctx context.Context, reportID, workspaceID string) ([]Page, error) {
	return list[Page](ctx, c, scoped(workspaceID, "/reports/"+url.PathEscape(reportID)+"/pages"))
}

// GetReport returns one report, including its embed URL.
func (c *Client) GetReport(ctx context.Context, reportID, workspaceID string) (*Report, error) {
	resp, err := c.Get(ctx, scoped(workspaceID, "/reports/"+url.PathEscape(reportID)))
	if err != nil {
		return nil, err
	}
	var report Report
	if err := resp.UnmarshalData(&report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// GetDataset returns the raw dataset document so callers see every field.
func (c *Client) GetDataset(ctx context.Context, datasetID, workspaceID string) (json.RawMessage, error) {
	resp, err := c.Get(ctx, scoped(workspaceID, "/datasets/"+url.PathEscape(datasetID)))
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// CloneReport copies a report, optionally into another workspace and onto
// another dataset.
func (c *Client) CloneReport(ctx context.Context, sourceReportID string, req CloneRequest) (*Report, error) {
	resp, err := c.Post(ctx, "/reports/"+url.PathEscape(sourceReportID)+"/Clone", req)
	if err != nil {
		return nil, err
	}
	var report Report
	if err := resp.UnmarshalData(&report); err != nil {
		return nil, fmt.Errorf("failed to parse clone response: %w", err)
	}
	return &report, nil
}

// GenerateToken mints an embed token for creating a report on datasetID.
func (c *Client) GenerateToken(ctx context.Context, datasetID, workspaceID string) (*EmbedToken, error) {
	body := generateTokenRequest{
		Datasets:         []idRef{{ID: datasetID}},
		TargetWorkspaces: []idRef{},
	}
	if workspaceID != "" {
		body.TargetWorkspaces = append(body.TargetWorkspaces, idRef{ID: workspaceID})
	}

	resp, err := c.Post(ctx, "/GenerateToken", body)
	if err != nil {
		return nil, err
	}
	var tok EmbedToken
	if err := resp.UnmarshalData(&tok); err != nil {
		return nil, fmt.Errorf("failed to parse embed token: %w", err)
	}
	return &tok, nil
}

// GenerateEditToken mints an embed token that can edit and save reportID.
func (c *Client) GenerateEditToken(ctx context.Context, reportID, workspaceID string) (*EmbedToken, error) {
	path := scoped(workspaceID, "/reports/"+url.PathEscape(reportID)+"/GenerateToken")
	resp, err := c.Post(ctx, path, reportTokenRequest{AccessLevel: "Edit"})
	if err != nil {
		return nil, err
	}
	var tok EmbedToken
	if err := resp.UnmarshalData(&tok); err != nil {
		return nil, fmt.Errorf("failed to parse embed token: %w", err)
	}
	return &tok, nil
}

// ExecuteQueries runs one DAX query and returns the service's JSON verbatim.
// The query text is not inspected.
func (c *Client) ExecuteQueries(ctx context.Context, datasetID, workspaceID, query string) (json.RawMessage, error) {
	body := executeQueriesRequest{
		Queries:            []daxQuery{{Query: query}},
		SerializerSettings: serializerSettings{IncludeNulls: true},
	}
	resp, err := c.Post(ctx, scoped(workspaceID, "/datasets/"+url.PathEscape(datasetID)+"/executeQueries"), body)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}
