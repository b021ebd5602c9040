package csvfile

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"telemetry-collector/internal/core/flatten"
	"telemetry-collector/internal/domain"
	"telemetry-collector/internal/logger"
)

func sampleRows(now time.Time, n int) []domain.FlatRow {
	nodes := make([]domain.NodeRecord, n)
	for i := range nodes {
		nodes[i] = domain.NodeRecord{
			ID:          domain.Ptr(int64(i + 1)),
			Name:        domain.Ptr("node, \"quoted\""),
			Validator:   domain.Ptr(i%2 == 0),
			StartupTime: domain.Ptr("1700000000000"),
			Hardware:    &domain.Hardware{Upload: []float64{10, 20, 30}},
		}
	}
	return flatten.NodesToRows(nodes, now)
}

func TestWriteRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	w := NewWriter(dir, "latest.csv", "nodes_", logger.Nop())
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	rows := sampleRows(now, 3)

	if err := w.Write(context.Background(), now, rows); err != nil {
		t.Fatalf("Write: %v", err)
	}

	header, records, err := ReadFile(w.LatestPath())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !slices.Equal(header, flatten.Columns()) {
		t.Errorf("header = %v", header)
	}
	if len(records) != len(rows) {
		t.Fatalf("got %d records, want %d", len(records), len(rows))
	}

	for i, row := range rows {
		for j, f := range row {
			if got, want := records[i][j], formatValue(f.Value); got != want {
				t.Errorf("row %d %s = %q, want %q", i, f.Name, got, want)
			}
		}
	}

	idx := slices.Index(header, "upload_bw_avg")
	if records[0][idx] != "20" {
		t.Errorf("upload_bw_avg = %q", records[0][idx])
	}
	idx = slices.Index(header, "cpu")
	if records[0][idx] != "" {
		t.Errorf("null cpu rendered as %q", records[0][idx])
	}
	idx = slices.Index(header, "name")
	if records[0][idx] != "node, \"quoted\"" {
		t.Errorf("name = %q", records[0][idx])
	}
}

func TestWriteLatestMatchesArchive(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "nodes_latest.csv", "nodes_", logger.Nop())

	first := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	second := first.Add(5 * time.Minute)

	if err := w.Write(context.Background(), first, sampleRows(first, 2)); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	if err := w.Write(context.Background(), second, sampleRows(second, 4)); err != nil {
		t.Fatalf("second Write: %v", err)
	}

	archives, err := filepath.Glob(filepath.Join(dir, "nodes_2026*.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if len(archives) != 2 {
		t.Fatalf("got archives %v, want 2", archives)
	}

	latest, err := os.ReadFile(w.LatestPath())
	if err != nil {
		t.Fatal(err)
	}
	archive, err := os.ReadFile(filepath.Join(dir, "nodes_20260101T120500Z.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(latest, archive) {
		t.Errorf("latest differs from second archive")
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, ".*"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}
}

func TestWriteEmpty(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w := NewWriter(dir, "latest.csv", "nodes_", logger.Nop())

	err := w.Write(context.Background(), time.Now(), nil)
	if !errors.Is(err, ErrNoRows) {
		t.Fatalf("err = %v, want ErrNoRows", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("output dir created for an empty write")
	}
}

func TestEncodeRejectsMismatchedRows(t *testing.T) {
	rows := []domain.FlatRow{
		{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}},
		{{Name: "a", Value: "1"}, {Name: "c", Value: "2"}},
	}
	if _, err := Encode(rows); err == nil {
		t.Fatal("expected error for mismatched field names")
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{int64(-3), "-3"},
		{120.0, "120"},
		{1.0 / 30, "0.03333333333333333"},
		{true, "true"},
		{false, "false"},
	}
	for _, tt := range tests {
		if got := formatValue(tt.in); got != tt.want {
			t.Errorf("formatValue(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteLatestFailureLeavesNoArchive(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "latest.csv", "nodes_", logger.Nop())
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// A non-empty directory in place of latest makes its rename fail.
	if err := os.MkdirAll(filepath.Join(w.LatestPath(), "blocker"), 0o755); err != nil {
		t.Fatal(err)
	}

	err := w.Write(context.Background(), now, sampleRows(now, 2))
	if err == nil {
		t.Fatal("expected Write to fail when latest cannot be replaced")
	}

	if _, err := os.Stat(w.ArchivePath(now)); !os.IsNotExist(err) {
		t.Errorf("archive left behind after failed write (stat err = %v)", err)
	}
	leftovers, _ := filepath.Glob(filepath.Join(dir, ".*"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}
}
