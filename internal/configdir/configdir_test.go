package configdir

import (
	"path/filepath"
	"testing"
)

func TestConfigDir(t *testing.T) {
	t.Setenv(EnvVar, "")
	if got := ConfigDir(); got != defaultConfigDir {
		t.Errorf("ConfigDir() = %s, want %s", got, defaultConfigDir)
	}

	dir := t.TempDir()
	t.Setenv(EnvVar, dir)
	if got := ConfigDir(); got != dir {
		t.Errorf("ConfigDir() = %s, want %s", got, dir)
	}

	t.Setenv(EnvVar, "relative/conf")
	want, _ := filepath.Abs("relative/conf")
	if got := ConfigDir(); got != want {
		t.Errorf("ConfigDir() = %s, want %s", got, want)
	}
}
