package catalog

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

const (
	designHeader = "REPORT DESIGN"
	stageSep     = " > "
)

var (
	heavyRule = strings.Repeat("═", 80)
	lightRule = strings.Repeat("─", 40)

	canvasLine = regexp.MustCompile(`^Canvas: (\d+)x(\d+)$`)
	pageLine   = regexp.MustCompile(`^Page (\d+):\s?(.*)$`)
	visualLine = regexp.MustCompile(`^(\d+)\.\s+(\S+)\s+@ \((-?\d+), (-?\d+)\) (-?\d+)x(-?\d+)$`)
)

// FormatDesign writes the human-readable design of a catalog. The output
// is accepted by ParseDesign.
func FormatDesign(w io.Writer, c *ReportCatalog) error {
	var b strings.Builder
	b.WriteString(designHeader + "\n")
	b.WriteString(heavyRule + "\n")
	fmt.Fprintf(&b, "Canvas: %dx%d\n", c.canvas.Width, c.canvas.Height)

	for _, p := range c.pages {
		fmt.Fprintf(&b, "\nPage %d: %s\n", p.Ordinal+1, p.DisplayName)
		fmt.Fprintf(&b, "  Name: %s\n", p.Name)
		b.WriteString(lightRule + "\n")
		for i, v := range p.Visuals {
			fmt.Fprintf(&b, "  %d. %-25s @ (%d, %d) %dx%d\n", i+1, v.Kind.SDKType(), v.X, v.Y, v.Width, v.Height)
			for _, bind := range v.Bindings {
				label := "Column"
				if bind.IsMeasure() {
					label = "Measure"
				}
				fmt.Fprintf(&b, "     %s: %s as %s\n", label, bind.FieldRef, bind.Role)
			}
			if v.Title != "" {
				fmt.Fprintf(&b, "     Title: %s\n", v.Title)
			}
			if v.Target != nil {
				fmt.Fprintf(&b, "     Target: %s\n", strconv.FormatFloat(*v.Target, 'g', -1, 64))
			}
			if len(v.Stages) > 0 {
				fmt.Fprintf(&b, "     Stages: %s\n", strings.Join(v.Stages, stageSep))
			}
		}
	}
	b.WriteString("\n" + heavyRule + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// ParseDesign reads text produced by FormatDesign back into a validated
// catalog.
func ParseDesign(r io.Reader) (*ReportCatalog, error) {
	var (
		canvas Canvas
		pages  []PageSpec
		lineNo int
	)
	fail := func(format string, args ...any) error {
		return fmt.Errorf("design line %d: %s", lineNo, fmt.Sprintf(format, args...))
	}
	currentPage := func() *PageSpec {
		if len(pages) == 0 {
			return nil
		}
		return &pages[len(pages)-1]
	}
	currentVisual := func() *VisualDescriptor {
		p := currentPage()
		if p == nil || len(p.Visuals) == 0 {
			return nil
		}
		return &p.Visuals[len(p.Visuals)-1]
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line == designHeader || isRule(line) {
			continue
		}

		if m := canvasLine.FindStringSubmatch(line); m != nil {
			canvas.Width, _ = strconv.Atoi(m[1])
			canvas.Height, _ = strconv.Atoi(m[2])
			continue
		}
		if m := pageLine.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[1])
			pages = append(pages, PageSpec{Ordinal: n - 1, DisplayName: m[2]})
			continue
		}
		if m := visualLine.FindStringSubmatch(line); m != nil {
			p := currentPage()
			if p == nil {
				return nil, fail("visual outside of a page")
			}
			if n, _ := strconv.Atoi(m[1]); n != len(p.Visuals)+1 {
				return nil, fail("visual numbered %d, expected %d", n, len(p.Visuals)+1)
			}
			kind, err := ParseKind(m[2])
			if err != nil {
				return nil, fail("%v", err)
			}
			nums := make([]int, 4)
			for i := range nums {
				nums[i], _ = strconv.Atoi(m[3+i])
			}
			p.Visuals = append(p.Visuals, VisualDescriptor{Kind: kind, Layout: Rect(nums[0], nums[1], nums[2], nums[3])})
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fail("unrecognized line %q", line)
		}
		value = strings.TrimPrefix(value, " ")

		if key == "Name" {
			p := currentPage()
			if p == nil {
				return nil, fail("page name outside of a page")
			}
			p.Name = value
			continue
		}

		v := currentVisual()
		if v == nil {
			return nil, fail("%s outside of a visual", key)
		}
		switch key {
		case "Measure", "Column":
			binding, err := parseBinding(value, key == "Measure")
			if err != nil {
				return nil, fail("%v", err)
			}
			v.Bindings = append(v.Bindings, binding)
		case "Title":
			v.Title = value
		case "Target":
			t, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fail("invalid target %q", value)
			}
			v.Target = &t
		case "Stages":
			v.Stages = strings.Split(value, stageSep)
		default:
			return nil, fail("unknown detail %q", key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading design: %w", err)
	}
	return New(canvas, pages)
}

func isRule(line string) bool {
	return strings.Trim(line, "═─") == ""
}

// parseBinding reads `'Table'[Field] as Role`.
func parseBinding(s string, measure bool) (DataBinding, error) {
	table, rest, err := readQuoted(s, '\'', '\'')
	if err != nil {
		return DataBinding{}, fmt.Errorf("table: %w", err)
	}
	name, rest, err := readQuoted(rest, '[', ']')
	if err != nil {
		return DataBinding{}, fmt.Errorf("field: %w", err)
	}
	role, ok := strings.CutPrefix(rest, " as ")
	if !ok || role == "" {
		return DataBinding{}, fmt.Errorf("missing role in %q", s)
	}
	if measure {
		return Bind(role, Measure(table, name)), nil
	}
	return Bind(role, Column(table, name)), nil
}

// readQuoted consumes a DAX-style quoted token where a doubled closing
// delimiter stands for a literal one.
func readQuoted(s string, open, closing byte) (token, rest string, err error) {
	if len(s) == 0 || s[0] != open {
		return "", "", fmt.Errorf("expected %q in %q", open, s)
	}
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		if s[i] != closing {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == closing {
			b.WriteByte(closing)
			i++
			continue
		}
		return b.String(), s[i+1:], nil
	}
	return "", "", fmt.Errorf("unterminated %q in %q", open, s)
}
