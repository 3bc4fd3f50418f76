package builder

import (
	"fmt"

	"github.com/bmd-analytics/reportbuilder/internal/authoring"
	"github.com/bmd-analytics/reportbuilder/internal/catalog"
	"github.com/bmd-analytics/reportbuilder/internal/output"
)

// Status is the result of building one visual.
type Status string

const (
	StatusCreated Status = "created"
	StatusFailed  Status = "failed"
)

// Step is the authoring call a visual failed on.
type Step string

const (
	StepCreate Step = "create"
	StepBind   Step = "bind"
	StepTitle  Step = "title"
)

// VisualBuildError describes why a visual could not be built.
type VisualBuildError struct {
	Page  string
	Index int
	Kind  catalog.Kind
	Step  Step
	Role  string
	Err   error
}

func (e *VisualBuildError) Error() string {
	step := string(e.Step)
	if e.Role != "" {
		step += " " + e.Role
	}
	return fmt.Sprintf("page %s visual %d (%s): %s: %v", e.Page, e.Index, e.Kind, step, e.Err)
}

func (e *VisualBuildError) Unwrap() error {
	return e.Err
}

// Outcome records what happened to one visual.
type Outcome struct {
	Index  int              `json:"index"`
	Kind   catalog.Kind     `json:"kind"`
	Status Status           `json:"status"`
	Handle authoring.Handle `json:"handle,omitempty"`
	Code   string           `json:"code,omitempty"`
	Reason string           `json:"reason,omitempty"`
	Err    error            `json:"-"`
}

func failed(index int, kind catalog.Kind, h authoring.Handle, err *VisualBuildError) Outcome {
	return Outcome{
		Index:  index,
		Kind:   kind,
		Status: StatusFailed,
		Handle: h,
		Code:   output.CodeBuild,
		Reason: err.Error(),
		Err:    err,
	}
}

// PageReport lists the outcome of every visual on a page, in declared order.
type PageReport struct {
	Page        string    `json:"page"`
	DisplayName string    `json:"displayName"`
	Outcomes    []Outcome `json:"outcomes"`
}

// Created counts created visuals.
func (r *PageReport) Created() int {
	return r.count(StatusCreated)
}

// Failed counts failed visuals.
func (r *PageReport) Failed() int {
	return r.count(StatusFailed)
}

func (r *PageReport) count(s Status) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// PageStatus is the result of building one catalog page.
type PageStatus string

const (
	PageStatusBuilt PageStatus = "built"
	// PageStatusManualCreation marks a catalog page with no remote
	// counterpart. The authoring surface cannot create pages.
	PageStatusManualCreation PageStatus = "requires manual page creation"
	PageStatusFailed         PageStatus = "failed"
)

// PageResult is one catalog page's entry in a ReportResult.
type PageResult struct {
	Page        string      `json:"page"`
	DisplayName string      `json:"displayName"`
	Ordinal     int         `json:"ordinal"`
	Status      PageStatus  `json:"status"`
	Remote      string      `json:"remote,omitempty"`
	Reason      string      `json:"reason,omitempty"`
	Report      *PageReport `json:"report,omitempty"`
}

// ReportResult lists every catalog page in ordinal order.
type ReportResult struct {
	Pages []PageResult `json:"pages"`
}

// Built returns the pages that were built.
func (r *ReportResult) Built() []PageResult {
	return r.filter(PageStatusBuilt)
}

// Skipped returns the pages that need manual creation.
func (r *ReportResult) Skipped() []PageResult {
	return r.filter(PageStatusManualCreation)
}

func (r *ReportResult) filter(s PageStatus) []PageResult {
	var out []PageResult
	for _, p := range r.Pages {
		if p.Status == s {
			out = append(out, p)
		}
	}
	return out
}

// Created counts created visuals across pages.
func (r *ReportResult) Created() int {
	n := 0
	for _, p := range r.Pages {
		n += p.Report.Created()
	}
	return n
}

// Failed counts failed visuals across pages.
func (r *ReportResult) Failed() int {
	n := 0
	for _, p := range r.Pages {
		n += p.Report.Failed()
	}
	return n
}
