// ABOUTME: Tests for player configuration
// ABOUTME: Covers defaults, TOML overlay, identity parsing and validation
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "squeeze.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Resolve(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.UUID == uuid.Nil {
		t.Error("expected generated uuid")
	}
	if len(cfg.MAC) != 6 || cfg.MAC[0] != 0x02 {
		t.Errorf("expected locally administered mac, got %v", cfg.MAC)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
server = " 192.168.1.20 "
name = "Kitchen"
mac = "00:04:20:12:34:56"
uuid = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
max_sample_rate = 96000
output = "NULL"
log_level = "debug"
tui = true
mdns = true
mdns_service = "_custom._tcp"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server != "192.168.1.20" {
		t.Fatalf("unexpected server: %q", cfg.Server)
	}
	if cfg.Name != "Kitchen" {
		t.Fatalf("unexpected name: %q", cfg.Name)
	}
	if cfg.MACBytes() != [6]byte{0x00, 0x04, 0x20, 0x12, 0x34, 0x56} {
		t.Fatalf("unexpected mac: %v", cfg.MAC)
	}
	if cfg.UUID.String() != "6ba7b810-9dad-11d1-80b4-00c04fd430c8" {
		t.Fatalf("unexpected uuid: %v", cfg.UUID)
	}
	if cfg.MaxSampleRate != 96000 {
		t.Fatalf("unexpected rate: %d", cfg.MaxSampleRate)
	}
	if cfg.Output != "null" {
		t.Fatalf("unexpected output: %q", cfg.Output)
	}
	if cfg.LogLevel != "debug" || !cfg.TUI || !cfg.MDNS || cfg.MDNSService != "_custom._tcp" {
		t.Fatalf("unexpected ambient settings: %+v", cfg)
	}
	if cfg.StreamBufferSize != Default().StreamBufferSize {
		t.Fatalf("undefined key changed stream buffer: %d", cfg.StreamBufferSize)
	}
}

func TestLoadKeepsDefaultsForEmptyName(t *testing.T) {
	cfg, err := Load(writeConfig(t, `name = "  "`))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Name != Default().Name {
		t.Fatalf("unexpected name: %q", cfg.Name)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad mac", `mac = "zz:zz"`, "parse mac"},
		{"long mac", `mac = "00:00:5e:00:53:00:00:01"`, "6-byte"},
		{"bad uuid", `uuid = "nope"`, "parse uuid"},
		{"unknown key", `volume = 3`, "unknown key"},
		{"bad toml", `server = `, "load config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"rate too low", func(c *Config) { c.MaxSampleRate = 4000 }},
		{"stream buffer", func(c *Config) { c.StreamBufferSize = 1024 }},
		{"output buffer", func(c *Config) { c.OutputBufferSize = 0 }},
		{"output device", func(c *Config) { c.Output = "alsa" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Resolve(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestMACFromUUIDStable(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	a, b := Default(), Default()
	a.UUID, b.UUID = id, id
	a.Resolve()
	b.Resolve()
	if a.MAC.String() != b.MAC.String() {
		t.Errorf("expected stable mac, got %v and %v", a.MAC, b.MAC)
	}
	if a.MAC.String() != "02:c0:4f:d4:30:c8" {
		t.Errorf("unexpected derived mac %v", a.MAC)
	}
}

func TestResolveTUILogFile(t *testing.T) {
	tests := []struct {
		name    string
		tui     bool
		logFile string
		want    string
	}{
		{"tui without file", true, "", DefaultTUILogFile},
		{"tui with file", true, "/tmp/player.log", "/tmp/player.log"},
		{"console", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.TUI = tt.tui
			cfg.LogFile = tt.logFile
			if err := cfg.Resolve(); err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if cfg.LogFile != tt.want {
				t.Errorf("expected log file %q, got %q", tt.want, cfg.LogFile)
			}
		})
	}
}
