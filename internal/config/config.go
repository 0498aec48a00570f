package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"elkdrive/internal/logging"
	"elkdrive/internal/midi"
	"elkdrive/internal/proto"
	"elkdrive/internal/session"
)

// Config controls the client. Every field has a working default, so an empty
// file (or no file at all) is a valid configuration.
type Config struct {
	// Port selects the first raw MIDI port whose name contains this text
	// (case-insensitive), e.g. "digitakt".
	Port string `json:"port"`
	// PortPath opens this device file directly, e.g. "/dev/snd/midiC1D0".
	// It takes precedence over Port.
	PortPath string `json:"port_path,omitempty"`

	// DeviceID is the id byte placed in every envelope (0..127).
	DeviceID int `json:"device_id"`
	// TimeoutMs bounds every request/response exchange.
	TimeoutMs int `json:"timeout_ms"`
	// HistorySize is the number of exchanges kept for -trace.
	HistorySize int `json:"history_size"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
	// LogFile writes logs to a file instead of stderr.
	LogFile string `json:"log_file,omitempty"`

	// MetricsListen serves /metrics on this address when set, e.g. "127.0.0.1:9464".
	MetricsListen string `json:"metrics_listen,omitempty"`

	// EmulatorRoot answers requests from this directory instead of a MIDI port.
	EmulatorRoot string `json:"emulator_root,omitempty"`
	// EmulatorLatencyMs delays every emulated response.
	EmulatorLatencyMs int `json:"emulator_latency_ms,omitempty"`
}

const (
	minTimeoutMs = 50
	maxTimeoutMs = 10 * 60 * 1000
)

func Default() Config {
	return Config{
		Port:        midi.DefaultMatch,
		DeviceID:    int(proto.DefaultDeviceID),
		TimeoutMs:   int(session.DefaultTimeout / time.Millisecond),
		HistorySize: session.DefaultHistorySize,
		LogLevel:    "info",
		LogFormat:   "console",
	}
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate fills zero values with defaults and rejects values the client
// cannot use.
func (c *Config) Validate() error {
	c.Port = strings.TrimSpace(c.Port)
	if c.Port == "" {
		c.Port = midi.DefaultMatch
	}
	c.PortPath = strings.TrimSpace(c.PortPath)

	if c.DeviceID == 0 {
		c.DeviceID = int(proto.DefaultDeviceID)
	}
	if c.DeviceID < 0 || c.DeviceID > 0x7F {
		return fmt.Errorf("device_id (%d) must be in 1..127", c.DeviceID)
	}

	if c.TimeoutMs < 0 {
		return fmt.Errorf("timeout_ms must not be negative")
	}
	if c.TimeoutMs == 0 {
		c.TimeoutMs = int(session.DefaultTimeout / time.Millisecond)
	}
	// Clamp to sane bounds.
	if c.TimeoutMs < minTimeoutMs {
		c.TimeoutMs = minTimeoutMs
	}
	if c.TimeoutMs > maxTimeoutMs {
		c.TimeoutMs = maxTimeoutMs
	}

	if c.HistorySize < 0 {
		return fmt.Errorf("history_size must not be negative")
	}
	if c.HistorySize == 0 {
		c.HistorySize = session.DefaultHistorySize
	}

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	switch c.LogFormat {
	case "":
		c.LogFormat = "console"
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}

	if c.MetricsListen != "" {
		if _, _, err := net.SplitHostPort(c.MetricsListen); err != nil {
			return fmt.Errorf("metrics_listen %q: %w", c.MetricsListen, err)
		}
	}

	if c.EmulatorLatencyMs < 0 {
		return fmt.Errorf("emulator_latency_ms must not be negative")
	}
	if c.EmulatorRoot != "" {
		fi, err := os.Stat(c.EmulatorRoot)
		if err != nil {
			return fmt.Errorf("emulator_root: %w", err)
		}
		if !fi.IsDir() {
			return fmt.Errorf("emulator_root %s is not a directory", c.EmulatorRoot)
		}
	}
	return nil
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c Config) EmulatorLatency() time.Duration {
	return time.Duration(c.EmulatorLatencyMs) * time.Millisecond
}

func (c Config) Logging() logging.Config {
	return logging.Config{Level: c.LogLevel, Format: c.LogFormat, OutputPath: c.LogFile}
}
