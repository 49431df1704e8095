package shared

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"takeout-001", "takeout-001"},
		{"photos: 2021/summer", "photos_ 2021_summer"},
		{`a<b>c|d?e*f`, "a_b_c_d_e_f"},
		{"  trailing dots.. ", "trailing dots"},
		{"", "unknown"},
		{"...", "unknown"},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.in); got != tt.want {
			t.Errorf("SanitizeFileName(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFileNameTruncates(t *testing.T) {
	long := strings.Repeat("a", 300)
	if got := SanitizeFileName(long); len(got) != 255 {
		t.Errorf("len = %d; want 255", len(got))
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present.txt")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	if !FileExists(path) {
		t.Error("FileExists should be true for an existing file")
	}
	if FileExists(filepath.Join(dir, "absent.txt")) {
		t.Error("FileExists should be false for a missing file")
	}
	if FileExists(dir) {
		t.Error("FileExists should be false for a directory")
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "dst.jpg")
	if err := os.WriteFile(src, []byte("jpegdata"), 0600); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile failed: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "jpegdata" {
		t.Errorf("Copied content = %q, err %v; want jpegdata", data, err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Mode = %v; want source permissions preserved", info.Mode().Perm())
	}
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFile(filepath.Join(dir, "gone.jpg"), filepath.Join(dir, "dst.jpg")); err == nil {
		t.Error("CopyFile should fail on a missing source")
	}
}

func TestCreateDirIfNotExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	if err := CreateDirIfNotExists(dir); err != nil {
		t.Fatalf("CreateDirIfNotExists failed: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("Expected directory at %s, err %v", dir, err)
	}
	// Second call on an existing directory is a no-op
	if err := CreateDirIfNotExists(dir); err != nil {
		t.Errorf("CreateDirIfNotExists on existing dir failed: %v", err)
	}
}
