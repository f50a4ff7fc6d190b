package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestExpandVerbosityFlags(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{[]string{"-vv"}, []string{"-v", "-v"}},
		{[]string{"-v", "-port", "9000"}, []string{"-v", "-port", "9000"}},
		{[]string{"-verbose"}, []string{"-verbose"}},
	}
	for _, tt := range tests {
		if got := expandVerbosityFlags(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("expandVerbosityFlags(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("test", []string{"-config", filepath.Join(t.TempDir(), "missing.toml")})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8888 {
		t.Errorf("Expected default port 8888, got %d", cfg.Server.Port)
	}
	if len(cfg.Maps) != len(DefaultMaps) {
		t.Errorf("Expected default map catalog, got %d maps", len(cfg.Maps))
	}
	if img, ok := cfg.MapImage("Kalahari"); !ok || filepath.Base(img) != "kalahari.png" {
		t.Errorf("Unexpected Kalahari image %q %v", img, ok)
	}
	if _, ok := cfg.MapImage("Erangel"); ok {
		t.Error("Unknown map should not resolve")
	}
}

func TestLoadTOMLAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tacticalboard.toml")
	data := `
[server]
port = 9100

[storage]
type = "memory"

[client]
timeout = "3s"

[export]
watermark = "Team Rocket"

[[maps]]
name = "Training"
image = "training.png"

[[maps]]
name = "Remote"
image = "https://example.com/remote.png"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("test", []string{"-config", path, "-port", "9200", "-vv", "in.json", "out.png"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9200 {
		t.Errorf("Flag should override file, got port %d", cfg.Server.Port)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("Expected memory storage, got %s", cfg.Storage.Type)
	}
	if cfg.Client.Timeout.Duration() != 3*time.Second {
		t.Errorf("Expected 3s timeout, got %s", cfg.Client.Timeout)
	}
	if cfg.Export.Watermark != "Team Rocket" {
		t.Errorf("Unexpected watermark %q", cfg.Export.Watermark)
	}
	if !reflect.DeepEqual(cfg.MapNames(), []string{"Training", "Remote"}) {
		t.Errorf("Unexpected maps %v", cfg.MapNames())
	}
	if img, _ := cfg.MapImage("Training"); img != filepath.Join(dir, "training.png") {
		t.Errorf("Relative map path not resolved: %s", img)
	}
	if img, _ := cfg.MapImage("Remote"); img != "https://example.com/remote.png" {
		t.Errorf("URL map path should be untouched: %s", img)
	}
	if !cfg.Debug() {
		t.Error("Expected -vv to enable debug")
	}
	if !reflect.DeepEqual(cfg.Args, []string{"in.json", "out.png"}) {
		t.Errorf("Unexpected positional args %v", cfg.Args)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("TB_PORT", "7000")
	t.Setenv("TB_SERVER", "ws://board.local:7000/ws")
	cfg, err := Load("test", []string{"-config", filepath.Join(t.TempDir(), "none.toml")})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 7000 || cfg.Client.Server != "ws://board.local:7000/ws" {
		t.Errorf("Env not applied: %+v %+v", cfg.Server, cfg.Client)
	}
}

func TestLoadBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	os.WriteFile(path, []byte("[server\nport = "), 0o644)
	if _, err := Load("test", []string{"-config", path}); err == nil {
		t.Error("Expected error for malformed TOML")
	}
}
