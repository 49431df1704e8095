// Package migrate drives the full pipeline across archives: extract, build
// the pairing index, resolve albums, and merge metadata. One item's failure
// never halts the batch; everything the run learns ends up in the Report.
package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/sync/semaphore"

	"takeout-migrator/internal/config"
	"takeout-migrator/internal/core/albums"
	"takeout-migrator/internal/core/extractor"
	"takeout-migrator/internal/core/merge"
	"takeout-migrator/internal/core/pairing"
	"takeout-migrator/internal/shared"
)

// Merger is the per-file merge operation the orchestrator fans out over.
// Satisfied by *merge.Engine.
type Merger interface {
	MergeFile(ctx context.Context, mediaPath, sidecarPath string) merge.Outcome
}

// Stats accumulates aggregate counts for a run
type Stats struct {
	Processed   int      `json:"processed"`
	Merged      int      `json:"merged"`
	Skipped     int      `json:"skipped"`
	Failed      int      `json:"failed"`
	FailedItems []string `json:"failedItems,omitempty"`
}

// Report is the run's full result: the album registry, the file-to-albums
// reverse lookup, and every per-file outcome. This is the handoff contract
// for the upload stage.
type Report struct {
	Albums         map[string][]string      `json:"albums"`
	FileAlbums     map[string][]string      `json:"fileAlbums"`
	Outcomes       map[string]merge.Outcome `json:"outcomes"`
	Stats          Stats                    `json:"stats"`
	FailedArchives []string                 `json:"failedArchives,omitempty"`
	ExtractedRoots []string                 `json:"extractedRoots,omitempty"`
}

// Migrator orchestrates a batch run
type Migrator struct {
	cfg      *config.Config
	merger   Merger
	warnings *shared.WarningCollector
	debug    bool
	progress bool
}

// NewMigrator creates a batch orchestrator
func NewMigrator(cfg *config.Config, merger Merger, warnings *shared.WarningCollector, debug, progress bool) *Migrator {
	return &Migrator{
		cfg:      cfg,
		merger:   merger,
		warnings: warnings,
		debug:    debug,
		progress: progress,
	}
}

// Run processes every archive: extraction, pairing, album resolution, and
// the merge pass. A corrupt archive skips only that archive's contents.
// Cancelling ctx stops dispatching new archives and files; in-flight
// merges finish.
func (m *Migrator) Run(ctx context.Context, archives []string) (*Report, error) {
	if err := config.CreateDirIfNotExists(m.cfg.WorkDir); err != nil {
		return nil, fmt.Errorf("work directory unusable: %w", err)
	}
	if m.cfg.OutputDir != "" {
		if err := config.CreateDirIfNotExists(m.cfg.OutputDir); err != nil {
			return nil, fmt.Errorf("output directory unusable: %w", err)
		}
	}

	report := &Report{Outcomes: make(map[string]merge.Outcome)}
	resolver := albums.NewResolver(m.warnings, m.debug)
	var pairs []pairing.Pair

	for _, archive := range archives {
		if ctx.Err() != nil {
			// Stop signal: no further archive is dispatched
			break
		}
		root, err := m.extractOne(archive)
		if err != nil {
			shared.ColorError.Printf("❌ %v\n", err)
			if m.warnings != nil {
				m.warnings.AddArchiveSkippedWarning(archive, err.Error())
			}
			report.FailedArchives = append(report.FailedArchives, archive)
			continue
		}
		report.ExtractedRoots = append(report.ExtractedRoots, root)

		index, err := pairing.BuildIndex(root)
		if err != nil {
			shared.ColorError.Printf("❌ Failed to index %s: %v\n", root, err)
			report.FailedArchives = append(report.FailedArchives, archive)
			continue
		}
		shared.DebugPrint(m.debug, "indexed %s: %d media files, %d with sidecars",
			root, index.Len(), index.WithSidecar())

		// Album resolution and the merge pass consume the same index, so
		// both signals see an identical file universe.
		resolver.FromLayout(index)
		resolver.FromSidecars(index)
		pairs = append(pairs, index.Pairs()...)
	}

	report.Albums, report.FileAlbums = resolver.Merge()

	m.mergePass(ctx, pairs, report)
	return report, nil
}

// extractOne unpacks a single archive into a directory named after it
func (m *Migrator) extractOne(archive string) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(archive), filepath.Ext(archive))
	stem = strings.TrimSuffix(stem, ".tar") // for .tar.gz
	dest := filepath.Join(m.cfg.WorkDir, shared.SanitizeFileName(stem))
	shared.ColorInfo.Printf("📦 Extracting %s...\n", filepath.Base(archive))
	return extractor.Extract(archive, dest)
}

// mergePass fans the merge out over fixed-size batches. Batching bounds
// peak resource usage only; outcomes are keyed by file identity and do not
// depend on batch boundaries or completion order.
func (m *Migrator) mergePass(ctx context.Context, pairs []pairing.Pair, report *Report) {
	if len(pairs) == 0 {
		return
	}

	var bar *pb.ProgressBar
	if m.progress && shared.IsTTY() {
		bar = pb.StartNew(len(pairs))
	}

	var mu sync.Mutex
	sem := semaphore.NewWeighted(int64(m.cfg.ToolParallelism()))
	batchSize := m.cfg.EffectiveBatchSize()

	for start := 0; start < len(pairs); start += batchSize {
		end := start + batchSize
		if end > len(pairs) {
			end = len(pairs)
		}
		if m.runBatch(ctx, pairs[start:end], sem, &mu, report, bar) {
			break // cooperative stop: finish nothing new
		}
	}

	if bar != nil {
		bar.Finish()
	}
}

// runBatch processes one batch and reports whether the run was cancelled
func (m *Migrator) runBatch(ctx context.Context, batch []pairing.Pair, sem *semaphore.Weighted, mu *sync.Mutex, report *Report, bar *pb.ProgressBar) bool {
	var wg sync.WaitGroup
	cancelled := false

	for _, pair := range batch {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled: stop dispatching, let in-flight work finish
			cancelled = true
			break
		}

		wg.Add(1)
		go func(pair pairing.Pair) {
			defer wg.Done()
			defer sem.Release(1)

			outcome := m.merger.MergeFile(ctx, pair.Media, pair.Sidecar)

			mu.Lock()
			report.Outcomes[pair.Media] = outcome
			report.Stats.Processed++
			switch outcome.Status {
			case merge.StatusMerged:
				report.Stats.Merged++
			case merge.StatusSkipped:
				report.Stats.Skipped++
			case merge.StatusFailed:
				report.Stats.Failed++
				report.Stats.FailedItems = append(report.Stats.FailedItems,
					fmt.Sprintf("%s: %s", pair.Media, outcome.Detail))
			}
			mu.Unlock()

			if bar != nil {
				bar.Increment()
			}
		}(pair)
	}

	wg.Wait()
	return cancelled
}

// Cleanup removes extracted intermediate trees after a run
func (m *Migrator) Cleanup(report *Report) {
	for _, root := range report.ExtractedRoots {
		if err := os.RemoveAll(root); err != nil {
			shared.ColorWarning.Printf("⚠️ Failed to remove extracted tree %s: %v\n", root, err)
		}
	}
}
