package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
gpio:
  pin: 4
  carrier_off_level: low
  led_pin: 27
  software_timestamps: true
poll: 50ms
mqtt:
  broker: tcp://192.168.1.200:1883
  topic_prefix: home/clock
log:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GPIO.Pin != 4 {
		t.Errorf("GPIO.Pin: got %d, want 4", cfg.GPIO.Pin)
	}
	if high, _ := cfg.GPIO.CarrierOffHigh(); high {
		t.Error("carrier_off_level low should not report high")
	}
	if cfg.GPIO.LEDPin != 27 {
		t.Errorf("GPIO.LEDPin: got %d, want 27", cfg.GPIO.LEDPin)
	}
	if !cfg.GPIO.SoftwareTimestamps {
		t.Error("GPIO.SoftwareTimestamps should be set")
	}
	if cfg.GPIO.Chip != "gpiochip0" {
		t.Errorf("GPIO.Chip should keep the default, got %q", cfg.GPIO.Chip)
	}
	if cfg.Poll != 50*time.Millisecond {
		t.Errorf("Poll: got %v, want 50ms", cfg.Poll)
	}
	if cfg.MQTT.TopicPrefix != "home/clock" {
		t.Errorf("MQTT.TopicPrefix: got %q", cfg.MQTT.TopicPrefix)
	}
	if cfg.Heartbeat != 15*time.Minute {
		t.Errorf("Heartbeat should keep the default, got %v", cfg.Heartbeat)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level: got %q", cfg.Log.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist in chain, got %v", err)
	}
}

func TestLoadBadYAML(t *testing.T) {
	if _, err := Load(writeFile(t, "gpio: [")); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"slow poll", func(c *Config) { c.Poll = 200 * time.Millisecond }},
		{"zero poll", func(c *Config) { c.Poll = 0 }},
		{"bad level", func(c *Config) { c.GPIO.CarrierOffLevel = "sideways" }},
		{"bad bias", func(c *Config) { c.GPIO.Bias = "float" }},
		{"led on input", func(c *Config) { c.GPIO.LEDPin = c.GPIO.Pin }},
		{"pon on input", func(c *Config) { c.GPIO.PONPin = c.GPIO.Pin }},
		{"negative pin", func(c *Config) { c.GPIO.Pin = -1 }},
		{"empty chip", func(c *Config) { c.GPIO.Chip = "" }},
		{"negative heartbeat", func(c *Config) { c.Heartbeat = -time.Second }},
		{"empty topic", func(c *Config) { c.MQTT.TopicPrefix = "" }},
		{"negative buffer", func(c *Config) { c.MQTT.Buffer = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestValidateMQTTDisabled(t *testing.T) {
	cfg := Default()
	cfg.MQTT.Broker = ""
	cfg.MQTT.TopicPrefix = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty broker should disable topic checks: %v", err)
	}
}
