// ABOUTME: Player configuration
// ABOUTME: Defaults, TOML file overlay and identity (MAC, UUID) resolution
package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
)

// Config is the resolved player configuration
type Config struct {
	Server string
	Name   string
	MAC    net.HardwareAddr
	UUID   uuid.UUID

	MaxSampleRate    int
	StreamBufferSize int
	OutputBufferSize int
	// Output selects the audio device: "oto" or "null"
	Output string

	LogLevel string
	LogFile  string
	LogJSON  bool

	TUI         bool
	MDNS        bool
	MDNSService string
}

// DefaultTUILogFile receives logs while the TUI owns the terminal
const DefaultTUILogFile = "squeezego.log"

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Name:             "SqueezeGo",
		MaxSampleRate:    44100,
		StreamBufferSize: 2 * 1024 * 1024,
		OutputBufferSize: 44100 * 4 * 10,
		Output:           "oto",
		LogLevel:         "info",
	}
}

type fileConfig struct {
	Server           string `toml:"server"`
	Name             string `toml:"name"`
	MAC              string `toml:"mac"`
	UUID             string `toml:"uuid"`
	MaxSampleRate    int    `toml:"max_sample_rate"`
	StreamBufferSize int    `toml:"stream_buffer_size"`
	OutputBufferSize int    `toml:"output_buffer_size"`
	Output           string `toml:"output"`
	LogLevel         string `toml:"log_level"`
	LogFile          string `toml:"log_file"`
	LogJSON          bool   `toml:"log_json"`
	TUI              bool   `toml:"tui"`
	MDNS             bool   `toml:"mdns"`
	MDNSService      string `toml:"mdns_service"`
}

// Load overlays the TOML file at path on the defaults
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("server") {
		cfg.Server = strings.TrimSpace(raw.Server)
	}
	if meta.IsDefined("name") {
		if name := strings.TrimSpace(raw.Name); name != "" {
			cfg.Name = name
		}
	}
	if meta.IsDefined("mac") {
		if err := cfg.SetMAC(raw.MAC); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("uuid") {
		if err := cfg.SetUUID(raw.UUID); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("max_sample_rate") {
		cfg.MaxSampleRate = raw.MaxSampleRate
	}
	if meta.IsDefined("stream_buffer_size") {
		cfg.StreamBufferSize = raw.StreamBufferSize
	}
	if meta.IsDefined("output_buffer_size") {
		cfg.OutputBufferSize = raw.OutputBufferSize
	}
	if meta.IsDefined("output") {
		cfg.Output = strings.ToLower(strings.TrimSpace(raw.Output))
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("log_file") {
		cfg.LogFile = strings.TrimSpace(raw.LogFile)
	}
	if meta.IsDefined("log_json") {
		cfg.LogJSON = raw.LogJSON
	}
	if meta.IsDefined("tui") {
		cfg.TUI = raw.TUI
	}
	if meta.IsDefined("mdns") {
		cfg.MDNS = raw.MDNS
	}
	if meta.IsDefined("mdns_service") {
		cfg.MDNSService = strings.TrimSpace(raw.MDNSService)
	}

	return cfg, nil
}

// SetMAC parses a colon-separated 6-byte hardware address
func (c *Config) SetMAC(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		c.MAC = nil
		return nil
	}
	mac, err := net.ParseMAC(s)
	if err != nil {
		return fmt.Errorf("parse mac: %w", err)
	}
	if len(mac) != 6 {
		return fmt.Errorf("parse mac: %q is not a 6-byte address", s)
	}
	c.MAC = mac
	return nil
}

// SetUUID parses a player UUID
func (c *Config) SetUUID(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		c.UUID = uuid.Nil
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return fmt.Errorf("parse uuid: %w", err)
	}
	c.UUID = id
	return nil
}

// Resolve fills a random UUID and a MAC derived from it when unset, picks a
// log file when the TUI is on, then validates the result
func (c *Config) Resolve() error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.MAC == nil {
		c.MAC = macFromUUID(c.UUID)
	}
	if c.TUI && c.LogFile == "" {
		c.LogFile = DefaultTUILogFile
	}
	return c.Validate()
}

// macFromUUID builds a locally administered unicast address
func macFromUUID(id uuid.UUID) net.HardwareAddr {
	mac := make(net.HardwareAddr, 6)
	copy(mac[1:], id[len(id)-5:])
	mac[0] = 0x02
	return mac
}

// Validate checks ranges
func (c *Config) Validate() error {
	if c.MaxSampleRate < 8000 || c.MaxSampleRate > 384000 {
		return fmt.Errorf("max sample rate %d out of range", c.MaxSampleRate)
	}
	if c.StreamBufferSize < 64*1024 {
		return fmt.Errorf("stream buffer size %d too small", c.StreamBufferSize)
	}
	if c.OutputBufferSize < 64*1024 {
		return fmt.Errorf("output buffer size %d too small", c.OutputBufferSize)
	}
	switch c.Output {
	case "oto", "null":
	default:
		return fmt.Errorf("unknown output %q", c.Output)
	}
	return nil
}

// MACBytes returns the MAC in HELO layout
func (c *Config) MACBytes() [6]byte {
	var b [6]byte
	copy(b[:], c.MAC)
	return b
}

// UUIDBytes returns the UUID in HELO layout
func (c *Config) UUIDBytes() [16]byte {
	return c.UUID
}
