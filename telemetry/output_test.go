package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNilOutputManagerIsSafe(t *testing.T) {
	var om *OutputManager
	if err := om.WriteStats(WindowStats{}); err != nil {
		t.Errorf("nil WriteStats: %v", err)
	}
	if err := om.WritePerf(PerfStats{}, 0); err != nil {
		t.Errorf("nil WritePerf: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
	if om.Dir() != "" {
		t.Errorf("nil Dir = %q, want empty", om.Dir())
	}
}

func TestEmptyDirDisablesOutput(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil {
		t.Fatalf("NewOutputManager(\"\"): %v", err)
	}
	if om != nil {
		t.Error("empty dir should return a nil manager")
	}
}

func TestWriteStatsCSV(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	if err := om.WriteStats(WindowStats{WindowEndTick: 100, Population: 42, Births: 7}); err != nil {
		t.Fatalf("WriteStats: %v", err)
	}
	if err := om.WriteStats(WindowStats{WindowEndTick: 200, Population: 40, Births: 3}); err != nil {
		t.Fatalf("WriteStats: %v", err)
	}
	if err := om.WritePerf(PerfStats{TicksPerSecond: 10}, 200); err != nil {
		t.Fatalf("WritePerf: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "stats.csv"))
	if err != nil {
		t.Fatalf("reading stats.csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("stats.csv has %d lines, want header + 2 rows", len(lines))
	}
	if !strings.Contains(lines[0], "window_end") || !strings.Contains(lines[0], "population") {
		t.Errorf("header = %q, want window_end and population columns", lines[0])
	}
	if !strings.Contains(lines[1], "100") || !strings.Contains(lines[1], "42") {
		t.Errorf("row 1 = %q, want tick 100 and population 42", lines[1])
	}

	if _, err := os.Stat(filepath.Join(dir, "perf.csv")); err != nil {
		t.Errorf("perf.csv missing: %v", err)
	}
}
