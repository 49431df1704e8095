package shared

import "testing"

func TestIsDebugMode(t *testing.T) {
	t.Setenv("DEBUG", "")
	if IsDebugMode() {
		t.Error("IsDebugMode should be false without the env var")
	}
	t.Setenv("DEBUG", "1")
	if !IsDebugMode() {
		t.Error("IsDebugMode should honor DEBUG=1")
	}
	t.Setenv("DEBUG", "true")
	if !IsDebugMode() {
		t.Error("IsDebugMode should honor DEBUG=true")
	}
	t.Setenv("DEBUG", "no")
	if IsDebugMode() {
		t.Error("IsDebugMode should ignore unrecognized values")
	}
}
