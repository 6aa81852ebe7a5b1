package platform

import (
	"path/filepath"
	"testing"
)

// TestPathsForLinuxWithXDG verifies behavior for the covered scenario.
func TestPathsForLinuxWithXDG(t *testing.T) {
	p, err := PathsFor("linux", map[string]string{
		"XDG_CONFIG_HOME": "/xdg/config",
		"XDG_DATA_HOME":   "/xdg/data",
	}, "/fallback/config", "/fallback/data", "dragboard")
	if err != nil {
		t.Fatalf("PathsFor() error = %v", err)
	}
	if want := filepath.Join("/xdg/config", "dragboard", "config.toml"); p.ConfigPath != want {
		t.Fatalf("unexpected config path %q", p.ConfigPath)
	}
	if want := filepath.Join("/xdg/data", "dragboard", "dragboard.db"); p.DBPath != want {
		t.Fatalf("unexpected db path %q", p.DBPath)
	}
	if want := filepath.Join("/xdg/data", "dragboard", "log"); p.LogDir != want {
		t.Fatalf("unexpected log dir %q", p.LogDir)
	}
}

// TestPathsForWindowsUsesAppData verifies behavior for the covered scenario.
func TestPathsForWindowsUsesAppData(t *testing.T) {
	p, err := PathsFor("windows", map[string]string{
		"APPDATA":      `C:\Users\me\AppData\Roaming`,
		"LOCALAPPDATA": `C:\Users\me\AppData\Local`,
	}, `C:\fallback\config`, `C:\fallback\data`, "dragboard")
	if err != nil {
		t.Fatalf("PathsFor() error = %v", err)
	}
	if want := filepath.Join(`C:\Users\me\AppData\Roaming`, "dragboard", "config.toml"); p.ConfigPath != want {
		t.Fatalf("unexpected config path %q", p.ConfigPath)
	}
	if want := filepath.Join(`C:\Users\me\AppData\Local`, "dragboard", "dragboard.db"); p.DBPath != want {
		t.Fatalf("unexpected db path %q", p.DBPath)
	}
}

// TestPathsForRejectsEmptyInputs verifies argument validation.
func TestPathsForRejectsEmptyInputs(t *testing.T) {
	if _, err := PathsFor("linux", nil, "", "/data", "dragboard"); err == nil {
		t.Fatal("expected error for empty config dir")
	}
	if _, err := PathsFor("linux", nil, "/config", "/data", "  "); err == nil {
		t.Fatal("expected error for empty app name")
	}
}

// TestDefaultPathsWithOptionsDevMode verifies the dev suffix.
func TestDefaultPathsWithOptionsDevMode(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	p, err := DefaultPathsWithOptions(Options{DevMode: true})
	if err != nil {
		t.Fatalf("DefaultPathsWithOptions() error = %v", err)
	}
	if filepath.Base(filepath.Dir(p.ConfigPath)) != "dragboard-dev" {
		t.Fatalf("expected dev app dir, got %q", p.ConfigPath)
	}
}

// TestApplyEnv verifies env overrides.
func TestApplyEnv(t *testing.T) {
	base := Paths{ConfigPath: "/c/config.toml", DBPath: "/d/dragboard.db"}
	env := map[string]string{EnvDBPath: " /tmp/other.db "}
	p, overridden := ApplyEnv(base, func(key string) string { return env[key] })
	if !overridden || p.DBPath != "/tmp/other.db" || p.ConfigPath != base.ConfigPath {
		t.Fatalf("unexpected paths %#v (overridden=%t)", p, overridden)
	}
}
