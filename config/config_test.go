package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Hubold17/reliable-project/config"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("unexpected error writing temp config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTemp(t, "listen: \":9000\"\npeer: \"203.0.113.9:9000\"\n")

	c, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.WindowSize != 64 {
		t.Fatalf("got window size %d, want default 64", c.WindowSize)
	}
	if c.TimeoutMillis != 500 {
		t.Fatalf("got timeout %d, want default 500", c.TimeoutMillis)
	}
}

func TestLoadHonorsExplicitValues(t *testing.T) {
	path := writeTemp(t, "listen: \":9001\"\nwindow_size: 16\ntimeout_ms: 250\nmetrics_addr: \":2112\"\n")

	c, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.WindowSize != 16 || c.TimeoutMillis != 250 || c.MetricsAddr != ":2112" {
		t.Fatalf("got %+v, want explicit values preserved", c)
	}
	if c.Timeout().Milliseconds() != 250 {
		t.Fatalf("got timeout duration %v, want 250ms", c.Timeout())
	}
}

func TestLoadRequiresListen(t *testing.T) {
	path := writeTemp(t, "peer: \"203.0.113.9:9000\"\n")

	if _, err := config.Load(path); err == nil {
		t.Fatalf("got nil error, want error for missing listen address")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatalf("got nil error, want error for missing file")
	}
}
