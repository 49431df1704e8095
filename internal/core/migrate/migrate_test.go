package migrate

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"takeout-migrator/internal/config"
	"takeout-migrator/internal/core/merge"
	"takeout-migrator/internal/shared"
)

type okRunner struct{}

func (okRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return []byte("1 image files updated"), nil
}

func writeArchive(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create archive: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Failed to add entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close archive: %v", err)
	}
}

func testConfig(t *testing.T, parallelism, batchSize int) *config.Config {
	t.Helper()
	return &config.Config{
		WorkDir:     filepath.Join(t.TempDir(), "work"),
		Parallelism: parallelism,
		BatchSize:   batchSize,
	}
}

func newTestMigrator(t *testing.T, cfg *config.Config, warnings *shared.WarningCollector) *Migrator {
	t.Helper()
	engine, err := merge.NewEngine(merge.Options{Warnings: warnings, Runner: okRunner{}})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return NewMigrator(cfg, engine, warnings, false, false)
}

// mixedExport builds an archive with five media files: four with healthy
// sidecars and one whose sidecar is truncated mid-document.
func mixedExport(t *testing.T, dir string) string {
	t.Helper()
	archive := filepath.Join(dir, "takeout-001.zip")
	good := `{"photoTakenTime": {"timestamp": "1609459200"}}`
	writeArchive(t, archive, map[string]string{
		"Trip/a.jpg":        "x",
		"Trip/a.jpg.json":   good,
		"Trip/b.jpg":        "x",
		"Trip/b.jpg.json":   good,
		"Pets/c.png":        "x",
		"Pets/c.png.json":   good,
		"Pets/d.mp4":        "x",
		"Pets/d.mp4.json":   good,
		"Trip/bad.jpg":      "x",
		"Trip/bad.jpg.json": `{"photoTakenTi`,
	})
	return archive
}

func TestRunMergesAndResolvesAlbums(t *testing.T) {
	dir := t.TempDir()
	warnings := shared.NewWarningCollector(true)
	cfg := testConfig(t, 2, 100)
	m := newTestMigrator(t, cfg, warnings)

	report, err := m.Run(context.Background(), []string{mixedExport(t, dir)})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Stats.Processed != 5 {
		t.Errorf("Processed = %d; want 5", report.Stats.Processed)
	}
	if report.Stats.Merged != 4 {
		t.Errorf("Merged = %d; want 4", report.Stats.Merged)
	}
	// A truncated sidecar means absent metadata, not a failed file
	if report.Stats.Skipped != 1 {
		t.Errorf("Skipped = %d; want 1", report.Stats.Skipped)
	}
	if report.Stats.Failed != 0 {
		t.Errorf("Failed = %d; want 0", report.Stats.Failed)
	}
	if len(report.Outcomes) != 5 {
		t.Errorf("Outcomes has %d entries; want one per media file", len(report.Outcomes))
	}
	if !warnings.HasWarnings() {
		t.Error("truncated sidecar should surface as a warning")
	}

	if members := report.Albums["Trip"]; len(members) != 3 {
		t.Errorf("Trip members = %v; want 3", members)
	}
	if members := report.Albums["Pets"]; len(members) != 2 {
		t.Errorf("Pets members = %v; want 2", members)
	}
}

func TestAggregateCountsIndependentOfPoolSize(t *testing.T) {
	run := func(parallelism int) Stats {
		dir := t.TempDir()
		cfg := testConfig(t, parallelism, 100)
		m := newTestMigrator(t, cfg, nil)
		report, err := m.Run(context.Background(), []string{mixedExport(t, dir)})
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		report.Stats.FailedItems = nil
		return report.Stats
	}

	serial := run(1)
	parallel := run(8)
	if !reflect.DeepEqual(serial, parallel) {
		t.Errorf("counts differ across pool sizes: %+v vs %+v", serial, parallel)
	}
}

func TestAggregateCountsIndependentOfBatchSize(t *testing.T) {
	run := func(batchSize int) Stats {
		dir := t.TempDir()
		cfg := testConfig(t, 4, batchSize)
		m := newTestMigrator(t, cfg, nil)
		report, err := m.Run(context.Background(), []string{mixedExport(t, dir)})
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		report.Stats.FailedItems = nil
		return report.Stats
	}

	small := run(2)
	large := run(100)
	if !reflect.DeepEqual(small, large) {
		t.Errorf("counts differ across batch sizes: %+v vs %+v", small, large)
	}
}

func TestCorruptArchiveSkipsOnlyItself(t *testing.T) {
	dir := t.TempDir()
	good := mixedExport(t, dir)
	corrupt := filepath.Join(dir, "takeout-002.zip")
	if err := os.WriteFile(corrupt, []byte("not a zip"), 0644); err != nil {
		t.Fatalf("Failed to write corrupt archive: %v", err)
	}

	warnings := shared.NewWarningCollector(true)
	m := newTestMigrator(t, testConfig(t, 2, 100), warnings)
	report, err := m.Run(context.Background(), []string{corrupt, good})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(report.FailedArchives) != 1 || report.FailedArchives[0] != corrupt {
		t.Errorf("FailedArchives = %v; want just the corrupt one", report.FailedArchives)
	}
	if report.Stats.Processed != 5 {
		t.Errorf("Processed = %d; the healthy archive must still run", report.Stats.Processed)
	}
	if !warnings.HasWarnings() {
		t.Error("skipped archive should surface as a warning")
	}
}

func TestCancelledContextStopsDispatch(t *testing.T) {
	dir := t.TempDir()
	first := mixedExport(t, dir)
	second := filepath.Join(dir, "takeout-002.zip")
	writeArchive(t, second, map[string]string{"Trip/e.jpg": "x"})

	m := newTestMigrator(t, testConfig(t, 1, 100), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := m.Run(ctx, []string{first, second})
	if err != nil {
		t.Fatalf("Run must not error on cancellation: %v", err)
	}
	if report.Stats.Processed != 0 {
		t.Errorf("Processed = %d; a pre-cancelled run must dispatch nothing", report.Stats.Processed)
	}
	// Archive dispatch stops too, not just the merge pass
	if len(report.ExtractedRoots) != 0 {
		t.Errorf("cancelled run still extracted %d archive(s): %v",
			len(report.ExtractedRoots), report.ExtractedRoots)
	}
}

func TestCleanupRemovesExtractedTrees(t *testing.T) {
	dir := t.TempDir()
	m := newTestMigrator(t, testConfig(t, 2, 100), nil)
	report, err := m.Run(context.Background(), []string{mixedExport(t, dir)})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(report.ExtractedRoots) != 1 {
		t.Fatalf("ExtractedRoots = %v; want one tree", report.ExtractedRoots)
	}

	m.Cleanup(report)
	if _, statErr := os.Stat(report.ExtractedRoots[0]); !os.IsNotExist(statErr) {
		t.Errorf("extracted tree %s still present after Cleanup", report.ExtractedRoots[0])
	}
}

func TestReportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := newTestMigrator(t, testConfig(t, 2, 100), nil)
	report, err := m.Run(context.Background(), []string{mixedExport(t, dir)})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	path := filepath.Join(dir, ReportFileName)
	if err := report.Write(path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("report file missing: %v", err)
	}

	// Skipped files still made it through the pipeline and remain uploadable
	candidates := report.UploadCandidates()
	if len(candidates) != 5 {
		t.Errorf("UploadCandidates = %d entries; want all non-failed files", len(candidates))
	}
	for i := 1; i < len(candidates); i++ {
		if candidates[i-1] >= candidates[i] {
			t.Fatalf("candidates not sorted: %s before %s", candidates[i-1], candidates[i])
		}
	}
}
