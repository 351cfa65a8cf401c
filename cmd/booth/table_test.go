package main

import (
	"strings"
	"testing"
)

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"ID", "Photos"},
		[][]string{{"s1", "12"}, {"s2"}},
		[]columnAlignment{alignLeft, alignRight},
	)

	// headers render upper-cased
	for _, want := range []string{"ID", "PHOTOS", "s1", "12", "s2", "╭"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if lines := strings.Count(out, "\n"); lines != 5 {
		t.Errorf("expected 6 lines, got %d:\n%s", lines+1, out)
	}
}

func TestRenderTableNoHeaders(t *testing.T) {
	if out := renderTable(nil, [][]string{{"x"}}, nil); out != "" {
		t.Errorf("expected empty output, got %q", out)
	}
}
