// Package builder turns catalog pages into authoring calls.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bmd-analytics/reportbuilder/internal/authoring"
	"github.com/bmd-analytics/reportbuilder/internal/catalog"
	"github.com/bmd-analytics/reportbuilder/internal/observability"
	"github.com/bmd-analytics/reportbuilder/internal/output"
	"github.com/bmd-analytics/reportbuilder/internal/resilience"
)

// ErrNoActiveSession is returned when a page is built before the report has
// loaded and a page is selected.
var ErrNoActiveSession = errors.New("no active authoring session")

// Interpreter issues the create/bind sequence for catalog pages. It holds
// no session; callers pass one per call.
type Interpreter struct {
	pacer  resilience.Pacer
	logger *slog.Logger
	hooks  observability.Hooks
	canvas catalog.Canvas
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithPacer sets the pacer consulted between visuals.
func WithPacer(p resilience.Pacer) Option {
	return func(in *Interpreter) {
		in.pacer = p
	}
}

// WithDelay paces visuals with a fixed delay.
func WithDelay(d time.Duration) Option {
	return func(in *Interpreter) {
		in.pacer = resilience.NewFixedDelay(d)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(in *Interpreter) {
		in.logger = l
	}
}

// WithHooks sets the observability hooks that receive one operation per
// visual.
func WithHooks(h observability.Hooks) Option {
	return func(in *Interpreter) {
		in.hooks = h
	}
}

// WithCanvas sets the canvas BuildPage checks layouts against. Visuals
// that extend past it are still created, with a warning. The zero Canvas
// disables the check.
func WithCanvas(c catalog.Canvas) Option {
	return func(in *Interpreter) {
		in.canvas = c
	}
}

// New returns an interpreter pacing visuals at resilience.DefaultDelay.
func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		pacer:  resilience.NewFixedDelay(resilience.DefaultDelay),
		logger: slog.New(slog.DiscardHandler),
		hooks:  observability.NopHooks{},
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

func errNoActiveSession() *output.Error {
	return &output.Error{
		Code:    output.CodeConfig,
		Message: ErrNoActiveSession.Error(),
		Hint:    "Wait for the report to load and select a page before building",
		Cause:   ErrNoActiveSession,
	}
}

// BuildPage creates every visual of page on the session's active page, in
// declared order. Failures are recorded per visual and never stop the
// loop; the returned report has one outcome per visual.
func (in *Interpreter) BuildPage(ctx context.Context, page catalog.PageSpec, session authoring.Session) (*PageReport, error) {
	return in.buildPage(ctx, page, session, in.canvas)
}

func (in *Interpreter) buildPage(ctx context.Context, page catalog.PageSpec, session authoring.Session, canvas catalog.Canvas) (*PageReport, error) {
	if session == nil || !session.Active() {
		return nil, errNoActiveSession()
	}

	report := &PageReport{
		Page:        page.Name,
		DisplayName: page.DisplayName,
		Outcomes:    make([]Outcome, 0, len(page.Visuals)),
	}
	for i, v := range page.Visuals {
		if i > 0 {
			if err := in.pacer.Wait(ctx); err != nil {
				in.abandon(report, page, i, err)
				return report, err
			}
		}
		in.checkOverflow(page, i, v, canvas)
		outcome := in.buildVisual(ctx, page, i, v, session)
		in.pacer.Observe(outcome.Err)
		report.Outcomes = append(report.Outcomes, outcome)
	}

	in.logger.Info("page built",
		"page", page.Name,
		"created", report.Created(),
		"failed", report.Failed())
	return report, nil
}

func (in *Interpreter) checkOverflow(page catalog.PageSpec, index int, v catalog.VisualDescriptor, canvas catalog.Canvas) {
	if canvas == (catalog.Canvas{}) {
		return
	}
	if v.X+v.Width <= canvas.Width && v.Y+v.Height <= canvas.Height {
		return
	}
	in.logger.Warn("visual overflows canvas",
		"page", page.Name,
		"index", index,
		"kind", v.Kind,
		"right", v.X+v.Width,
		"bottom", v.Y+v.Height,
		"canvas_width", canvas.Width,
		"canvas_height", canvas.Height)
}

// abandon records the visuals from index on as failed after the build was
// interrupted.
func (in *Interpreter) abandon(report *PageReport, page catalog.PageSpec, from int, cause error) {
	for i := from; i < len(page.Visuals); i++ {
		err := &VisualBuildError{Page: page.Name, Index: i, Kind: page.Visuals[i].Kind, Step: StepCreate, Err: cause}
		report.Outcomes = append(report.Outcomes, failed(i, page.Visuals[i].Kind, "", err))
	}
}

func (in *Interpreter) buildVisual(ctx context.Context, page catalog.PageSpec, index int, v catalog.VisualDescriptor, session authoring.Session) (outcome Outcome) {
	op := observability.OperationInfo{
		Operation: "create_visual",
		Target:    fmt.Sprintf("%s#%d %s", page.Name, index, v.Kind),
	}
	start := time.Now()
	ctx = in.hooks.OnOperationStart(ctx, op)
	defer func() {
		in.hooks.OnOperationEnd(ctx, op, outcome.Err, time.Since(start))
	}()

	fail := func(h authoring.Handle, step Step, role string, err error) Outcome {
		buildErr := &VisualBuildError{Page: page.Name, Index: index, Kind: v.Kind, Step: step, Role: role, Err: err}
		in.logger.Warn("visual failed",
			"page", page.Name,
			"index", index,
			"kind", v.Kind,
			"step", step,
			"error", err)
		return failed(index, v.Kind, h, buildErr)
	}

	h, err := session.CreateVisual(ctx, v.Kind.SDKType(), v.Layout)
	if err != nil {
		return fail("", StepCreate, "", err)
	}
	for _, b := range v.Bindings {
		if err := session.AddDataField(ctx, h, b.Role, b.FieldRef); err != nil {
			return fail(h, StepBind, b.Role, err)
		}
	}
	if v.Title != "" {
		if err := session.SetProperty(ctx, h, authoring.TitleText, authoring.Text(v.Title)); err != nil {
			return fail(h, StepTitle, "", err)
		}
	}

	in.logger.Debug("visual created",
		"page", page.Name,
		"index", index,
		"kind", v.Kind,
		"handle", h,
		"bindings", len(v.Bindings))
	return Outcome{Index: index, Kind: v.Kind, Status: StatusCreated, Handle: h}
}

// BuildReport waits for the report to load, then builds every catalog page
// that has a remote counterpart, in ordinal order. Pages without one are
// reported as needing manual creation. Layouts are checked against the
// catalog's canvas.
func (in *Interpreter) BuildReport(ctx context.Context, cat *catalog.ReportCatalog, session authoring.Session) (*ReportResult, error) {
	if err := session.Lifecycle().AwaitLoaded(ctx); err != nil {
		return nil, fmt.Errorf("waiting for report to load: %w", err)
	}
	remote, err := session.Pages(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing report pages: %w", err)
	}

	pages := cat.Pages()
	matches := MatchPages(pages, remote)
	result := &ReportResult{Pages: make([]PageResult, 0, len(pages))}

	for i, page := range pages {
		pr := PageResult{Page: page.Name, DisplayName: page.DisplayName, Ordinal: page.Ordinal}
		target := matches[i]
		if target == nil {
			pr.Status = PageStatusManualCreation
			in.logger.Info("page requires manual creation", "page", page.Name)
			result.Pages = append(result.Pages, pr)
			continue
		}
		pr.Remote = target.Name

		if err := session.SetActive(ctx, *target); err != nil {
			pr.Status = PageStatusFailed
			pr.Reason = err.Error()
			in.logger.Warn("page activation failed", "page", page.Name, "error", err)
			result.Pages = append(result.Pages, pr)
			continue
		}
		report, err := in.buildPage(ctx, page, session, cat.Canvas())
		pr.Status = PageStatusBuilt
		pr.Report = report
		if err != nil {
			pr.Status = PageStatusFailed
			pr.Reason = err.Error()
			result.Pages = append(result.Pages, pr)
			return result, err
		}
		result.Pages = append(result.Pages, pr)
	}
	return result, nil
}
