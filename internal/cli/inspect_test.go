package cli

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestPrintInspectTable(t *testing.T) {
	entries := []inspectEntry{
		{Kind: "tool", ID: "search", Name: "search", File: "tools/search.ts", Exported: true},
		{Kind: "agent", ID: "support", Name: "support", File: "agents/support.ts", Exported: false},
		{Kind: "sub-agent", Name: "worker", File: "agents/sub-agents/worker.ts", Line: 4, Manual: true},
	}

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	if err := printInspectTable(cmd, entries); err != nil {
		t.Fatalf("printInspectTable failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("output has %d lines, want 4:\n%s", len(lines), buf.String())
	}

	rows := [][]string{
		{"KIND", "ID", "IDENTIFIER", "FILE", "EXPORT"},
		{"tool", "search", "search", "tools/search.ts", "yes"},
		{"agent", "support", "support", "agents/support.ts", "no"},
		{"sub-agent", "-", "worker", "agents/sub-agents/worker.ts:4", "manual"},
	}
	for i, want := range rows {
		if got := strings.Fields(lines[i]); !reflect.DeepEqual(got, want) {
			t.Errorf("row %d = %v, want %v", i, got, want)
		}
	}
}
