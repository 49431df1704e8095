package migrate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"takeout-migrator/internal/config"
	"takeout-migrator/internal/core/merge"
)

// ReportFileName is the handoff artifact consumed by the upload stage
const ReportFileName = "migration-report.json"

// Write saves the report as indented JSON at path
func (r *Report) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := config.CreateDirIfNotExists(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// UploadCandidates returns the final on-disk paths eligible for upload:
// every file whose outcome is not failed
func (r *Report) UploadCandidates() []string {
	var paths []string
	for _, outcome := range r.Outcomes {
		if outcome.Status != merge.StatusFailed {
			paths = append(paths, outcome.FinalPath)
		}
	}
	sort.Strings(paths)
	return paths
}
