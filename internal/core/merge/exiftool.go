package merge

import (
	"context"
	"fmt"
	"os/exec"
)

const exiftoolBinary = "exiftool"

// ToolError means the external metadata tool is missing. It is raised once
// at engine construction and is fatal to the whole run, never a per-file
// outcome.
type ToolError struct {
	Err error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("exiftool not found in PATH: %v\n"+
		"Install it first, e.g.:\n"+
		"  Debian/Ubuntu: sudo apt install libimage-exiftool-perl\n"+
		"  macOS:         brew install exiftool", e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// CheckExiftool checks if exiftool is installed and available in the
// system's PATH.
func CheckExiftool() bool {
	return lookupExiftool() == nil
}

func lookupExiftool() error {
	_, err := exec.LookPath(exiftoolBinary)
	return err
}

// Runner abstracts the subprocess invocation so tests can record
// invocations without exiftool installed
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

// Run deliberately ignores ctx: cancellation is gated before dispatch, and
// an invocation already started is allowed to finish. The unit of
// cancellation is a whole file, never a half-written one.
func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	return cmd.CombinedOutput()
}
