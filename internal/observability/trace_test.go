package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTraceWriter_WriteOperationStart(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteOperationStart(OperationInfo{Operation: "SetProperty", Target: "Sales/1"})

	output := buf.String()
	if !strings.Contains(output, "SetProperty Sales/1") {
		t.Errorf("expected operation line, got: %s", output)
	}
	if !strings.HasPrefix(output, "[") {
		t.Errorf("expected timestamp prefix, got: %s", output)
	}
}

func TestTraceWriter_WriteOperationEnd(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteOperationEnd(OperationInfo{Operation: "CreateVisual", Target: "Sales/0"}, nil, 50*time.Millisecond)

	output := buf.String()
	if !strings.Contains(output, "Completed CreateVisual Sales/0") {
		t.Errorf("expected completion line, got: %s", output)
	}
	if !strings.Contains(output, "(50ms)") {
		t.Errorf("expected duration, got: %s", output)
	}
}

func TestTraceWriter_WriteOperationEnd_Error(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteOperationEnd(OperationInfo{Operation: "AddDataField", Target: "Sales/0"}, errors.New("role not found"), 0)

	output := buf.String()
	if !strings.Contains(output, "Failed AddDataField Sales/0") {
		t.Errorf("expected failure line, got: %s", output)
	}
	if !strings.Contains(output, "role not found") {
		t.Errorf("expected error message, got: %s", output)
	}
}

func TestTraceWriter_WriteRequestEnd_Error(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteRequestEnd(RequestInfo{}, RequestResult{Error: errors.New("dial tcp: timeout")})
	if !strings.Contains(buf.String(), "<- ERROR: dial tcp: timeout") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestScrubURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no query", "https://api.powerbi.com/v1.0/myorg/groups", "https://api.powerbi.com/v1.0/myorg/groups"},
		{"safe query", "https://api.powerbi.com/v1.0/myorg/groups?$top=10", "https://api.powerbi.com/v1.0/myorg/groups?$top=10"},
		{"access token", "https://x/y?access_token=abc", "https://x/y?access_token=%5BREDACTED%5D"},
		{"mixed case", "https://x/y?EmbedToken=abc", "https://x/y?EmbedToken=%5BREDACTED%5D"},
		{"unparseable", "://bad", "[unparseable URL]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scrubURL(tt.in); got != tt.want {
				t.Errorf("scrubURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTraceWriter_Reset(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)
	time.Sleep(5 * time.Millisecond)
	w.Reset()
	w.WriteOperationStart(OperationInfo{Operation: "Save"})
	if !strings.HasPrefix(buf.String(), "[0.00") {
		t.Errorf("expected reset timestamp, got: %s", buf.String())
	}
}
