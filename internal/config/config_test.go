package config_test

import (
	"testing"

	"github.com/jeweledtech/bare-metal-forth/internal/config"
)

func TestFromEnvDefaultsWhenUnset(t *testing.T) {
	t.Setenv("SYSEXTRACT_MAX_IMPORT_DLLS", "")
	t.Setenv("SYSEXTRACT_MAX_IMPORT_FUNCS", "")
	t.Setenv("SYSEXTRACT_MAX_EXPORTS", "")
	t.Setenv("SYSEXTRACT_VERBOSE", "")

	got := config.FromEnv()
	if got.Limits != config.DefaultLimits {
		t.Errorf("Limits = %+v, want defaults %+v", got.Limits, config.DefaultLimits)
	}
	if got.Verbose {
		t.Error("Verbose = true, want false when unset")
	}
}

func TestFromEnvReadsOverrides(t *testing.T) {
	t.Setenv("SYSEXTRACT_MAX_EXPORTS", "42")
	t.Setenv("SYSEXTRACT_VERBOSE", "true")

	got := config.FromEnv()
	if got.Limits.MaxExports != 42 {
		t.Errorf("MaxExports = %d, want 42", got.Limits.MaxExports)
	}
	if !got.Verbose {
		t.Error("Verbose = false, want true")
	}
}
