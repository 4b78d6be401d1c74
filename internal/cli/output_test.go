package cli

import (
	"bytes"
	"strings"
	"testing"
)

func captureOutput(t *testing.T, format string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFormat := stdout, outputFormat
	stdout, outputFormat = &buf, format
	t.Cleanup(func() { stdout, outputFormat = prevOut, prevFormat })
	return &buf
}

func TestTable_AddCounts(t *testing.T) {
	buf := captureOutput(t, "table")

	tbl := NewTable("SEVERITY", "COUNT")
	tbl.AddCounts(map[string]int{"medium": 4, "critical": 1, "low": 12})
	tbl.Render()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5:\n%s", len(lines), buf.String())
	}
	want := []string{"critical", "low", "medium"}
	for i, key := range want {
		if fields := strings.Fields(lines[i+2]); fields[0] != key {
			t.Errorf("row %d = %q, want key %q", i, lines[i+2], key)
		}
	}
	if !strings.HasPrefix(lines[1], "--------") {
		t.Errorf("separator = %q", lines[1])
	}
}

func TestPrintOutput_Formats(t *testing.T) {
	data := map[string]int{"total_alerts": 3}

	tests := []struct {
		format string
		want   string
	}{
		{"json", `"total_alerts": 3`},
		{"yaml", "total_alerts: 3"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			buf := captureOutput(t, tt.format)
			if err := printOutput(data); err != nil {
				t.Fatalf("printOutput() error = %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestFormatters(t *testing.T) {
	user := int64(42)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"response time", formatResponseTime(150.4), "2m30s"},
		{"no response time", formatResponseTime(0), "-"},
		{"confidence", formatConfidence(0.875), "87.5%"},
		{"user", formatUser(&user), "42"},
		{"no user", formatUser(nil), "-"},
		{"no time", formatTime(nil), "-"},
		{"truncate", truncate("Motion detected on camera 12", 12), "Motion de..."},
		{"short", truncate("Fire", 12), "Fire"},
		{"severity", formatSeverity("critical"), "[!] CRITICAL"},
		{"status", formatStatus("acknowledged"), "[~] acknowledged"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}
