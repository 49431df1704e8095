// Package merge rewrites a media file's embedded metadata from its paired
// sidecar. Each file gets exactly one in-place exiftool invocation built
// from the sidecar's recognized fields; the same sidecar always produces
// the same invocation, so re-running a merge is a no-op for the tags.
package merge

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sync/semaphore"

	"takeout-migrator/internal/core/sidecar"
	"takeout-migrator/internal/shared"
)

// Options configures a merge engine
type Options struct {
	// OutputDir, when set, makes the engine merge into a copy under this
	// root instead of mutating the extracted file in place
	OutputDir string
	// SourceRoot anchors the relative layout mirrored under OutputDir
	SourceRoot string
	// IOParallelism bounds concurrent file copies in output mode
	IOParallelism int
	Debug         bool
	Warnings      *shared.WarningCollector
	// Runner overrides the exiftool invocation; nil means the real binary,
	// whose presence is then verified at construction
	Runner Runner
}

// Engine merges sidecar metadata into media files
type Engine struct {
	opts   Options
	runner Runner
	ioSem  *semaphore.Weighted
}

// NewEngine creates a merge engine. The external tool's presence is
// verified here, once: a missing tool fails construction rather than
// surfacing later as per-file failures.
func NewEngine(opts Options) (*Engine, error) {
	runner := opts.Runner
	if runner == nil {
		if err := lookupExiftool(); err != nil {
			return nil, &ToolError{Err: err}
		}
		runner = execRunner{}
	}

	ioWorkers := opts.IOParallelism
	if ioWorkers < 1 {
		ioWorkers = 1
	}
	return &Engine{
		opts:   opts,
		runner: runner,
		ioSem:  semaphore.NewWeighted(int64(ioWorkers)),
	}, nil
}

// MergeFile merges the sidecar's metadata into the media file and reports
// the outcome. sidecarPath may be empty, meaning no sidecar was paired.
// This never returns an error and never panics past its own boundary; every
// failure mode becomes a StatusFailed outcome.
func (e *Engine) MergeFile(ctx context.Context, mediaPath, sidecarPath string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = failed(mediaPath, mediaPath, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if sidecarPath == "" {
		return skipped(mediaPath, "no metadata sidecar")
	}

	sc, err := sidecar.Parse(sidecarPath)
	if err != nil {
		// Metadata absence is not a processing error
		shared.DebugPrint(e.opts.Debug, "skipping %s: %v", mediaPath, err)
		if e.opts.Warnings != nil {
			e.opts.Warnings.AddSidecarParseWarning(sidecarPath, err.Error())
		}
		return skipped(mediaPath, "sidecar could not be parsed")
	}

	tagArgs := e.buildRequest(mediaPath, sc)
	if len(tagArgs) == 0 {
		return skipped(mediaPath, "sidecar has no usable fields")
	}

	if _, err := os.Stat(mediaPath); err != nil {
		return failed(mediaPath, mediaPath, fmt.Sprintf("cannot access media file: %v", err))
	}

	target := mediaPath
	if e.opts.OutputDir != "" {
		target, err = e.copyToOutput(ctx, mediaPath)
		if err != nil {
			return failed(mediaPath, mediaPath, err.Error())
		}
	}

	// One atomic tool invocation per file: overwrite in place, preserve
	// every tag the request does not name, no ".original" backup copy.
	args := append([]string{"-overwrite_original"}, tagArgs...)
	args = append(args, target)
	output, err := e.runner.Run(ctx, exiftoolBinary, args...)
	if err != nil {
		return failed(mediaPath, target, fmt.Sprintf("exiftool failed: %v: %s", err, string(output)))
	}

	shared.DebugPrint(e.opts.Debug, "merged %d tags into %s", len(tagArgs), target)
	return merged(mediaPath, target)
}

// copyToOutput duplicates the original under the output root, mirroring its
// path relative to the source root, and returns the copy's path
func (e *Engine) copyToOutput(ctx context.Context, mediaPath string) (string, error) {
	rel := filepath.Base(mediaPath)
	if e.opts.SourceRoot != "" {
		if r, err := filepath.Rel(e.opts.SourceRoot, mediaPath); err == nil && !filepath.IsAbs(r) {
			rel = r
		}
	}
	target := filepath.Join(e.opts.OutputDir, rel)

	if err := e.ioSem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("failed to copy into output directory: %w", err)
	}
	defer e.ioSem.Release(1)

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := shared.CopyFile(mediaPath, target); err != nil {
		return "", fmt.Errorf("failed to copy into output directory: %w", err)
	}
	return target, nil
}

// buildRequest translates the sidecar's recognized fields into exiftool tag
// arguments, in fixed order so identical sidecars build identical requests.
func (e *Engine) buildRequest(mediaPath string, sc *sidecar.Sidecar) []string {
	var args []string

	if epoch, ok := e.captureTime(mediaPath, sc); ok {
		args = append(args, "-AllDates="+sidecar.ExifTime(epoch))
	}

	if lat, lon, ok := sc.Coordinates(); ok {
		latRef, lonRef := "N", "E"
		if lat < 0 {
			latRef = "S"
		}
		if lon < 0 {
			lonRef = "W"
		}
		args = append(args,
			"-GPSLatitude="+formatCoord(lat),
			"-GPSLatitudeRef="+latRef,
			"-GPSLongitude="+formatCoord(lon),
			"-GPSLongitudeRef="+lonRef,
		)
	}

	if sc.Description != "" {
		args = append(args,
			"-Description="+sc.Description,
			"-Caption-Abstract="+sc.Description,
			"-UserComment="+sc.Description,
		)
	}
	if sc.Title != "" {
		args = append(args, "-Title="+sc.Title)
	}

	return args
}

// captureTime picks the timestamp to write: the capture-time field when it
// parses, the creation-time field only as a fallback. A value that parses
// under neither encoding is dropped with a warning, not a failure.
func (e *Engine) captureTime(mediaPath string, sc *sidecar.Sidecar) (int64, bool) {
	if raw, ok := sc.TakenTimestamp(); ok {
		if epoch, err := sidecar.ParseTimestamp(raw); err == nil {
			return epoch, true
		}
		e.dropTimestamp(mediaPath, raw)
	}
	if raw, ok := sc.CreationTimestamp(); ok {
		if epoch, err := sidecar.ParseTimestamp(raw); err == nil {
			return epoch, true
		}
		e.dropTimestamp(mediaPath, raw)
	}
	return 0, false
}

func (e *Engine) dropTimestamp(mediaPath, raw string) {
	shared.DebugPrint(e.opts.Debug, "dropping unparseable timestamp %q for %s", raw, mediaPath)
	if e.opts.Warnings != nil {
		e.opts.Warnings.AddTimestampParseWarning(mediaPath, raw)
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(math.Abs(v), 'f', -1, 64)
}
