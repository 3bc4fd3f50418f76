package catalog

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ValidationError locates a catalog defect.
type ValidationError struct {
	Page   string // page name, or "#ordinal" when the name is empty
	Visual int    // zero-based visual index, -1 for page-level defects
	Msg    string
}

func (e *ValidationError) Error() string {
	if e.Visual < 0 {
		return fmt.Sprintf("page %s: %s", e.Page, e.Msg)
	}
	return fmt.Sprintf("page %s visual %d: %s", e.Page, e.Visual, e.Msg)
}

// Validate checks every catalog invariant and returns the first violation.
func Validate(canvas Canvas, pages []PageSpec) error {
	if canvas.Width <= 0 || canvas.Height <= 0 {
		return fmt.Errorf("canvas size must be positive, got %dx%d", canvas.Width, canvas.Height)
	}
	if len(pages) == 0 {
		return errors.New("catalog has no pages")
	}

	names := make(map[string]bool, len(pages))
	ordinals := make(map[int]bool, len(pages))
	for pi, p := range pages {
		label := p.Name
		if label == "" {
			label = fmt.Sprintf("#%d", pi)
		}
		pageErr := func(format string, args ...any) error {
			return &ValidationError{Page: label, Visual: -1, Msg: fmt.Sprintf(format, args...)}
		}

		if strings.TrimSpace(p.Name) == "" {
			return pageErr("name must not be empty")
		}
		if err := checkText(p.Name); err != nil {
			return pageErr("name %v", err)
		}
		if err := checkText(p.DisplayName); err != nil {
			return pageErr("display name %v", err)
		}
		if names[p.Name] {
			return pageErr("duplicate page name")
		}
		names[p.Name] = true

		if p.Ordinal < 0 || p.Ordinal >= len(pages) {
			return pageErr("ordinal %d out of range 0..%d", p.Ordinal, len(pages)-1)
		}
		if ordinals[p.Ordinal] {
			return pageErr("duplicate ordinal %d", p.Ordinal)
		}
		ordinals[p.Ordinal] = true

		for vi, v := range p.Visuals {
			if err := validateVisual(v); err != nil {
				return &ValidationError{Page: label, Visual: vi, Msg: err.Error()}
			}
		}
	}
	return nil
}

func validateVisual(v VisualDescriptor) error {
	if !v.Kind.Valid() {
		return fmt.Errorf("unknown visual kind %q", string(v.Kind))
	}
	if v.X < 0 || v.Y < 0 {
		return fmt.Errorf("position (%d, %d) must not be negative", v.X, v.Y)
	}
	if v.Width <= 0 || v.Height <= 0 {
		return fmt.Errorf("size %dx%d must be positive", v.Width, v.Height)
	}
	for bi, b := range v.Bindings {
		if strings.TrimSpace(b.Role) == "" {
			return fmt.Errorf("binding %d: role must not be empty", bi)
		}
		if strings.TrimSpace(b.Table) == "" {
			return fmt.Errorf("binding %d: table must not be empty", bi)
		}
		if (b.Measure == "") == (b.Column == "") {
			return fmt.Errorf("binding %d: exactly one of measure or column is required", bi)
		}
		if err := checkText(b.Role); err != nil {
			return fmt.Errorf("binding %d: role %w", bi, err)
		}
		if strings.ContainsFunc(b.Table+b.Measure+b.Column, unicode.IsControl) {
			return fmt.Errorf("binding %d: field must not contain control characters", bi)
		}
	}
	if err := checkText(v.Title); err != nil {
		return fmt.Errorf("title %w", err)
	}
	for si, stage := range v.Stages {
		if stage == "" {
			return fmt.Errorf("stage %d must not be empty", si)
		}
		if err := checkText(stage); err != nil {
			return fmt.Errorf("stage %d %w", si, err)
		}
		if strings.Contains(stage, " >") || strings.Contains(stage, "> ") {
			return fmt.Errorf("stage %d must not contain %q", si, strings.TrimSpace(stageSep))
		}
	}
	if v.Target != nil && !(*v.Target >= 0 && *v.Target <= 1) {
		return fmt.Errorf("target %g must be within [0, 1]", *v.Target)
	}
	return nil
}

// checkText rejects text the design format cannot carry on one line.
func checkText(s string) error {
	if strings.TrimSpace(s) != s {
		return errors.New("must not start or end with whitespace")
	}
	if strings.ContainsFunc(s, unicode.IsControl) {
		return errors.New("must not contain control characters")
	}
	return nil
}

func overflowWarning(p PageSpec, index int, v VisualDescriptor, canvas Canvas) string {
	return fmt.Sprintf("page %s visual %d (%s) @ (%d, %d) %dx%d extends past the %dx%d canvas",
		p.Name, index, v.Kind, v.X, v.Y, v.Width, v.Height, canvas.Width, canvas.Height)
}
