package shared

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// WarningType represents different types of warnings
type WarningType int

const (
	SidecarParseWarning WarningType = iota
	AlbumHintWarning
	TimestampParseWarning
	ArchiveSkippedWarning
)

// Warning represents a single warning with context
type Warning struct {
	Type    WarningType
	Message string
	Context string // File/album context
	Details string // Additional details like error message
}

// WarningCollector collects warnings during a migration run.
// Merge workers run concurrently, so all access is mutex-guarded.
type WarningCollector struct {
	mu        sync.Mutex
	warnings  []Warning
	enabled   bool
	immediate bool
}

// NewWarningCollector creates a new warning collector
func NewWarningCollector(enabled bool) *WarningCollector {
	return &WarningCollector{
		warnings: make([]Warning, 0),
		enabled:  enabled,
	}
}

// SetImmediate makes every subsequent warning print as it is added,
// in addition to being collected for the summary
func (wc *WarningCollector) SetImmediate(immediate bool) {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	wc.immediate = immediate
}

// AddWarning adds a warning to the collector
func (wc *WarningCollector) AddWarning(warningType WarningType, context, message, details string) {
	if !wc.enabled {
		return
	}

	warning := Warning{
		Type:    warningType,
		Message: message,
		Context: context,
		Details: details,
	}

	wc.mu.Lock()
	wc.warnings = append(wc.warnings, warning)
	immediate := wc.immediate
	wc.mu.Unlock()

	if immediate {
		ColorWarning.Printf("⚠️ %s\n", warning.String())
	}
}

// AddSidecarParseWarning adds a warning for a sidecar that could not be parsed
func (wc *WarningCollector) AddSidecarParseWarning(sidecarPath, details string) {
	wc.AddWarning(SidecarParseWarning, sidecarPath, "Could not parse metadata sidecar", details)
}

// AddAlbumHintWarning adds a warning for malformed album fields in a sidecar
func (wc *WarningCollector) AddAlbumHintWarning(sidecarPath, details string) {
	wc.AddWarning(AlbumHintWarning, sidecarPath, "Could not read album hint from sidecar", details)
}

// AddTimestampParseWarning adds a warning for an unparseable capture timestamp
func (wc *WarningCollector) AddTimestampParseWarning(mediaPath, raw string) {
	wc.AddWarning(TimestampParseWarning, mediaPath, "Dropped unparseable timestamp", raw)
}

// AddArchiveSkippedWarning adds a warning for an archive excluded from the run
func (wc *WarningCollector) AddArchiveSkippedWarning(archivePath, details string) {
	wc.AddWarning(ArchiveSkippedWarning, archivePath, "Archive skipped", details)
}

// HasWarnings returns true if there are any warnings
func (wc *WarningCollector) HasWarnings() bool {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	return len(wc.warnings) > 0
}

// GetWarningCount returns the total number of warnings
func (wc *WarningCollector) GetWarningCount() int {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	return len(wc.warnings)
}

// GetWarningsByType returns warnings grouped by type
func (wc *WarningCollector) GetWarningsByType() map[WarningType][]Warning {
	wc.mu.Lock()
	defer wc.mu.Unlock()

	grouped := make(map[WarningType][]Warning)
	for _, warning := range wc.warnings {
		grouped[warning.Type] = append(grouped[warning.Type], warning)
	}
	return grouped
}

// PrintSummary prints a formatted summary of all warnings
func (wc *WarningCollector) PrintSummary() {
	if !wc.HasWarnings() {
		return
	}

	ColorWarning.Printf("\n⚠️  Warning Summary (%d warnings):\n", wc.GetWarningCount())
	ColorWarning.Println(strings.Repeat("─", 50))

	grouped := wc.GetWarningsByType()

	// Sort warning types for consistent output
	var types []WarningType
	for warningType := range grouped {
		types = append(types, warningType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	for _, warningType := range types {
		wc.printWarningTypeSection(warningType, grouped[warningType])
	}
}

// printWarningTypeSection prints warnings for a specific type
func (wc *WarningCollector) printWarningTypeSection(warningType WarningType, warnings []Warning) {
	if len(warnings) == 0 {
		return
	}

	sectionTitle := wc.getWarningTypeTitle(warningType)
	ColorWarning.Printf("\n%s (%d):\n", sectionTitle, len(warnings))

	// Group similar warnings to avoid repetition
	contextCounts := make(map[string]int)
	for _, warning := range warnings {
		contextCounts[warning.Context]++
	}

	var contexts []string
	for context := range contextCounts {
		contexts = append(contexts, context)
	}
	sort.Strings(contexts)

	for _, context := range contexts {
		count := contextCounts[context]
		if count > 1 {
			ColorWarning.Printf("  • %s (×%d)\n", context, count)
		} else {
			ColorWarning.Printf("  • %s\n", context)
		}
	}
}

// getWarningTypeTitle returns a human-readable title for a warning type
func (wc *WarningCollector) getWarningTypeTitle(warningType WarningType) string {
	switch warningType {
	case SidecarParseWarning:
		return "Sidecar Parse Failures"
	case AlbumHintWarning:
		return "Album Hint Failures"
	case TimestampParseWarning:
		return "Dropped Timestamps"
	case ArchiveSkippedWarning:
		return "Archives Skipped"
	default:
		return "Other Warnings"
	}
}

func (w Warning) String() string {
	if w.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", w.Context, w.Message, w.Details)
	}
	return fmt.Sprintf("%s: %s", w.Context, w.Message)
}
