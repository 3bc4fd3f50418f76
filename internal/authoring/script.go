package authoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bmd-analytics/reportbuilder/internal/catalog"
	"github.com/bmd-analytics/reportbuilder/internal/resilience"
)

// ScriptSession compiles authoring calls into JavaScript for the
// authoring page. The script runs inside the report's loaded handler with
// `report`, `pages`, `step`, `sleep` and `pageNamed` in scope; every call
// goes through step so one failing visual does not stop the rest.
type ScriptSession struct {
	lifecycle *Lifecycle
	pages     []Page
	active    *Page
	handles   map[Handle]bool
	next      int
	lines     []string
}

// NewScriptSession seeds the session with the report's existing pages. A
// fresh report has a single page, which is used when pages is empty.
func NewScriptSession(pages []Page) *ScriptSession {
	if len(pages) == 0 {
		pages = []Page{{Name: "", DisplayName: "Page 1", Ordinal: 0}}
	}
	s := &ScriptSession{
		lifecycle: NewLifecycle(),
		pages:     append([]Page(nil), pages...),
		handles:   map[Handle]bool{},
	}
	// The script is executed from the loaded handler.
	s.lifecycle.Fire(EventLoaded)
	return s
}

func (s *ScriptSession) Lifecycle() *Lifecycle {
	return s.lifecycle
}

func (s *ScriptSession) Active() bool {
	return s.lifecycle.Fired(EventLoaded) && s.active != nil
}

func (s *ScriptSession) Pages(ctx context.Context) ([]Page, error) {
	return append([]Page(nil), s.pages...), nil
}

func (s *ScriptSession) SetActive(ctx context.Context, page Page) error {
	for i := range s.pages {
		if s.pages[i] == page {
			s.active = &s.pages[i]
			s.emit("")
			s.emit("// page %s", jsString(displayOrName(page)))
			if page.Name == "" {
				s.emit("page = pages[%d];", page.Ordinal)
			} else {
				s.emit("page = pageNamed(%s);", jsString(page.Name))
			}
			s.emit("await step(%s, () => page.setActive());", jsString("activate "+displayOrName(page)))
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownPage, displayOrName(page))
}

func (s *ScriptSession) CreateVisual(ctx context.Context, visualType string, layout catalog.Layout) (Handle, error) {
	if s.active == nil {
		return "", ErrNoPage
	}
	s.next++
	h := Handle(fmt.Sprintf("v%d", s.next))
	s.handles[h] = true
	s.emit("const %s = await step(%s, async () => (await page.createVisual(%s, %s)).visual);",
		h, jsString(fmt.Sprintf("create %s %s", h, visualType)), jsString(visualType), jsValue(layout))
	return h, nil
}

func (s *ScriptSession) AddDataField(ctx context.Context, h Handle, role string, field catalog.FieldRef) error {
	if !s.handles[h] {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	s.emit("if (%s) await step(%s, () => %s.addDataField(%s, %s));",
		h, jsString(fmt.Sprintf("bind %s %s %s", h, role, field)), h, jsString(role), jsValue(NewDataField(field)))
	return nil
}

func (s *ScriptSession) SetProperty(ctx context.Context, h Handle, sel Selector, v PropertyValue) error {
	if !s.handles[h] {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	s.emit("if (%s) await step(%s, () => %s.setProperty(%s, %s));",
		h, jsString(fmt.Sprintf("set %s %s.%s", h, sel.ObjectName, sel.PropertyName)), h, jsValue(sel), jsValue(v))
	return nil
}

func (s *ScriptSession) Save(ctx context.Context) error {
	s.emit("")
	s.emit("await step(%s, () => report.save());", jsString("save report"))
	return nil
}

// Pacer returns a pacer that writes its delay into the script instead of
// sleeping locally.
func (s *ScriptSession) Pacer(delay time.Duration) resilience.Pacer {
	return &scriptPacer{session: s, delay: delay}
}

// Visuals returns the number of visuals created so far.
func (s *ScriptSession) Visuals() int {
	return s.next
}

// Script returns the compiled statements.
func (s *ScriptSession) Script() string {
	if len(s.lines) == 0 {
		return ""
	}
	return strings.Join(s.lines, "\n") + "\n"
}

func (s *ScriptSession) emit(format string, args ...any) {
	if format == "" {
		s.lines = append(s.lines, "")
		return
	}
	s.lines = append(s.lines, fmt.Sprintf(format, args...))
}

type scriptPacer struct {
	session *ScriptSession
	delay   time.Duration
}

func (p *scriptPacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.delay > 0 {
		p.session.emit("await sleep(%d);", p.delay.Milliseconds())
	}
	return nil
}

func (p *scriptPacer) Observe(error) {}

func displayOrName(p Page) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Name
}

// jsString encodes s as a JavaScript string literal that is also safe
// inside an HTML script element.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// jsValue encodes v as a JavaScript literal.
func jsValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("authoring: encoding %T: %v", v, err))
	}
	return string(b)
}
