// Package extractor unpacks export archives into a working directory.
// Integrity is verified in full before any member touches disk, so a
// corrupt archive never leaves a half-written tree behind; interruption
// mid-unpack is recovered by re-running the extraction over the same
// target.
package extractor

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ExtractionError describes a failed archive extraction. Kind separates an
// archive that could not be read at all from one that is structurally
// invalid, since the two call for different operator responses.
type ExtractionError struct {
	Archive string
	Size    int64
	Kind    ErrorKind
	Err     error
}

type ErrorKind int

const (
	// KindUnreadable means the archive file itself could not be opened or read
	KindUnreadable ErrorKind = iota
	// KindCorrupt means the archive was read but is not structurally valid
	KindCorrupt
)

func (e *ExtractionError) Error() string {
	name := filepath.Base(e.Archive)
	switch e.Kind {
	case KindUnreadable:
		return fmt.Sprintf("could not read archive %s (%d bytes): %v", name, e.Size, e.Err)
	default:
		return fmt.Sprintf("%s (%d bytes) is not a valid archive: %v", name, e.Size, e.Err)
	}
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extract validates the archive at archivePath and unpacks it into destDir,
// preserving relative paths. It returns the directory it unpacked into.
// Supported formats: .zip, .tgz, .tar.gz.
func Extract(archivePath, destDir string) (string, error) {
	info, err := os.Stat(archivePath)
	if err != nil {
		return "", &ExtractionError{Archive: archivePath, Kind: KindUnreadable, Err: err}
	}

	switch {
	case hasSuffix(archivePath, ".zip"):
		if err := extractZip(archivePath, destDir, info.Size()); err != nil {
			return "", err
		}
	case hasSuffix(archivePath, ".tgz"), hasSuffix(archivePath, ".tar.gz"):
		if err := extractTarGz(archivePath, destDir, info.Size()); err != nil {
			return "", err
		}
	default:
		return "", &ExtractionError{
			Archive: archivePath,
			Size:    info.Size(),
			Kind:    KindCorrupt,
			Err:     fmt.Errorf("unsupported archive format %q", filepath.Ext(archivePath)),
		}
	}

	return destDir, nil
}

func hasSuffix(path, suffix string) bool {
	return strings.HasSuffix(strings.ToLower(path), suffix)
}

func extractZip(archivePath, destDir string, size int64) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		// zip.OpenReader conflates I/O and format errors; retry a plain open
		// to tell "could not read" apart from "not a valid archive".
		if f, openErr := os.Open(archivePath); openErr != nil {
			return &ExtractionError{Archive: archivePath, Size: size, Kind: KindUnreadable, Err: openErr}
		} else {
			f.Close()
		}
		return &ExtractionError{Archive: archivePath, Size: size, Kind: KindCorrupt, Err: err}
	}
	defer zr.Close()

	// Full CRC pass over every member before anything is written
	for _, f := range zr.File {
		if err := verifyZipEntry(f); err != nil {
			return &ExtractionError{Archive: archivePath, Size: size, Kind: KindCorrupt, Err: err}
		}
	}

	for _, f := range zr.File {
		if err := writeZipEntry(f, destDir); err != nil {
			return &ExtractionError{Archive: archivePath, Size: size, Kind: KindCorrupt, Err: err}
		}
	}
	return nil
}

func verifyZipEntry(f *zip.File) error {
	if f.FileInfo().IsDir() {
		return nil
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("entry %s: %w", f.Name, err)
	}
	defer rc.Close()
	// Reading to EOF forces the CRC check
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("entry %s: %w", f.Name, err)
	}
	return nil
}

func writeZipEntry(f *zip.File, destDir string) error {
	target, err := safeJoin(destDir, f.Name)
	if err != nil {
		return err
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", f.Name, err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return nil
}

func extractTarGz(archivePath, destDir string, size int64) error {
	// Validation pass: read every header and body to EOF
	if err := walkTarGz(archivePath, func(hdr *tar.Header, r io.Reader) error {
		_, err := io.Copy(io.Discard, r)
		return err
	}); err != nil {
		return classifyTarErr(archivePath, size, err)
	}

	// Extraction pass
	if err := walkTarGz(archivePath, func(hdr *tar.Header, r io.Reader) error {
		return writeTarEntry(hdr, r, destDir)
	}); err != nil {
		return classifyTarErr(archivePath, size, err)
	}
	return nil
}

type unreadableError struct{ err error }

func (u *unreadableError) Error() string { return u.err.Error() }
func (u *unreadableError) Unwrap() error { return u.err }

func classifyTarErr(archivePath string, size int64, err error) error {
	if u, ok := err.(*unreadableError); ok {
		return &ExtractionError{Archive: archivePath, Size: size, Kind: KindUnreadable, Err: u.err}
	}
	return &ExtractionError{Archive: archivePath, Size: size, Kind: KindCorrupt, Err: err}
}

func walkTarGz(archivePath string, fn func(hdr *tar.Header, r io.Reader) error) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return &unreadableError{err}
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("bad gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("bad tar stream: %w", err)
		}
		if err := fn(hdr, tr); err != nil {
			return err
		}
	}
}

func writeTarEntry(hdr *tar.Header, r io.Reader, destDir string) error {
	target, err := safeJoin(destDir, hdr.Name)
	if err != nil {
		return err
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, 0755)
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", hdr.Name, err)
		}
		out, err := os.Create(target)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", target, err)
		}
		defer out.Close()
		if _, err := io.Copy(out, r); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
	}
	// Other entry types (links, devices) do not occur in exports; skip them
	return nil
}

// safeJoin joins an archive member name onto destDir, rejecting names that
// would escape the destination
func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	cleanDest := filepath.Clean(destDir)
	if target != cleanDest && !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
		return "", fmt.Errorf("entry %s escapes extraction directory", name)
	}
	return target, nil
}
