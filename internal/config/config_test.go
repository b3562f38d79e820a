package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ---------- Load ----------

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}"))
	if err != nil {
		t.Fatalf("expected empty config to load with defaults, got: %v", err)
	}

	if cfg.Camera.Mode != "local" {
		t.Errorf("Mode = %q, want local", cfg.Camera.Mode)
	}
	if cfg.Camera.IdealWidth != 1920 || cfg.Camera.IdealHeight != 1080 {
		t.Errorf("ideal = %dx%d, want 1920x1080", cfg.Camera.IdealWidth, cfg.Camera.IdealHeight)
	}
	if cfg.Camera.MaxWidth != 2560 || cfg.Camera.MaxHeight != 1440 {
		t.Errorf("max = %dx%d, want 2560x1440", cfg.Camera.MaxWidth, cfg.Camera.MaxHeight)
	}
	if cfg.Camera.IdealFPS != 60 || cfg.Camera.MinFPS != 30 {
		t.Errorf("fps = %d/%d, want 60/30", cfg.Camera.IdealFPS, cfg.Camera.MinFPS)
	}
	if cfg.Storage.ThumbWidth != 320 {
		t.Errorf("ThumbWidth = %d, want 320", cfg.Storage.ThumbWidth)
	}
	if cfg.Defaults.CountdownSec != 3 {
		t.Errorf("CountdownSec = %d, want 3", cfg.Defaults.CountdownSec)
	}
	if cfg.Defaults.MaxZoom != 4 {
		t.Errorf("MaxZoom = %v, want 4", cfg.Defaults.MaxZoom)
	}
	if cfg.Defaults.FallbackWidth != 1280 || cfg.Defaults.FallbackHeight != 720 {
		t.Errorf("fallback = %dx%d, want 1280x720",
			cfg.Defaults.FallbackWidth, cfg.Defaults.FallbackHeight)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "camera: [broken")); err == nil {
		t.Error("expected error for invalid YAML, got nil")
	}
}

func TestLoad_UnknownMode(t *testing.T) {
	if _, err := Load(writeConfig(t, "camera:\n  mode: usb3\n")); err == nil {
		t.Error("expected error for unknown camera mode, got nil")
	}
}

func TestLoad_RemoteRequiresBaseURL(t *testing.T) {
	if _, err := Load(writeConfig(t, "camera:\n  mode: remote\n")); err == nil {
		t.Error("expected error for remote mode without base URL, got nil")
	}
}

func TestLoad_RemoteBaseURLMustBeHTTP(t *testing.T) {
	yaml := "camera:\n  mode: remote\n  remote_base_url: ftp://phone:21\n"
	if _, err := Load(writeConfig(t, yaml)); err == nil {
		t.Error("expected error for non-http base URL, got nil")
	}
}

func TestLoad_RemoteBaseURLTrailingSlashTrimmed(t *testing.T) {
	yaml := "camera:\n  mode: remote\n  remote_base_url: http://phone:8080/\n"
	cfg, err := Load(writeConfig(t, yaml))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Camera.RemoteBaseURL != "http://phone:8080" {
		t.Errorf("RemoteBaseURL = %q, want trailing slash trimmed", cfg.Camera.RemoteBaseURL)
	}
	if cfg.PreviewURL() != "http://phone:8080/video" {
		t.Errorf("PreviewURL = %q", cfg.PreviewURL())
	}
	if cfg.SnapshotURL() != "http://phone:8080/shot.jpg" {
		t.Errorf("SnapshotURL = %q", cfg.SnapshotURL())
	}
}

func TestLoad_MaxBelowIdealRejected(t *testing.T) {
	yaml := "camera:\n  ideal_width: 1920\n  ideal_height: 1080\n  max_width: 1280\n  max_height: 720\n"
	if _, err := Load(writeConfig(t, yaml)); err == nil {
		t.Error("expected error for max below ideal, got nil")
	}
}

func TestLoad_ButtonEnabledRequiresPin(t *testing.T) {
	if _, err := Load(writeConfig(t, "button:\n  enabled: true\n")); err == nil {
		t.Error("expected error for enabled button without pin, got nil")
	}
}

func TestLoad_DebugLevelRange(t *testing.T) {
	if _, err := Load(writeConfig(t, "defaults:\n  debug_level: 7\n")); err == nil {
		t.Error("expected error for debug level 7, got nil")
	}
	if _, err := Load(writeConfig(t, "defaults:\n  debug_level: 4\n")); err != nil {
		t.Errorf("debug level 4 should be valid, got: %v", err)
	}
}

func TestLoad_MaxZoomUpperBound(t *testing.T) {
	if _, err := Load(writeConfig(t, "defaults:\n  max_zoom: 12\n")); err == nil {
		t.Error("expected error for max_zoom above 10, got nil")
	}
}

// ---------- Accessors ----------

func TestMirrorLocal_DefaultTrue(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.MirrorLocal() {
		t.Error("MirrorLocal should default to true")
	}
}

func TestMirrorLocal_ExplicitFalse(t *testing.T) {
	cfg, err := Load(writeConfig(t, "camera:\n  mirror: false\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MirrorLocal() {
		t.Error("MirrorLocal should honor an explicit false")
	}
}

func TestDurationAccessors(t *testing.T) {
	yaml := "camera:\n  warmup_timeout_ms: 2500\nbutton:\n  poll_ms: 10\n  debounce_ms: 300\ndefaults:\n  countdown_sec: 5\n"
	cfg, err := Load(writeConfig(t, yaml))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.WarmupTimeout() != 2500*time.Millisecond {
		t.Errorf("WarmupTimeout = %v, want 2.5s", cfg.WarmupTimeout())
	}
	if cfg.ButtonPoll() != 10*time.Millisecond {
		t.Errorf("ButtonPoll = %v, want 10ms", cfg.ButtonPoll())
	}
	if cfg.ButtonDebounce() != 300*time.Millisecond {
		t.Errorf("ButtonDebounce = %v, want 300ms", cfg.ButtonDebounce())
	}
	if cfg.Countdown() != 5*time.Second {
		t.Errorf("Countdown = %v, want 5s", cfg.Countdown())
	}
}

func TestRemoteMode(t *testing.T) {
	local, err := Load(writeConfig(t, "{}"))
	if err != nil {
		t.Fatal(err)
	}
	if local.RemoteMode() {
		t.Error("local config should not report remote mode")
	}

	remote, err := Load(writeConfig(t, "camera:\n  mode: remote\n  remote_base_url: http://phone:8080\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !remote.RemoteMode() {
		t.Error("remote config should report remote mode")
	}
}
