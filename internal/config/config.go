// Package config loads the daemon configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// MaxPoll is the slowest poll interval that still resolves every pulse edge.
const MaxPoll = 100 * time.Millisecond

// Config is the complete daemon configuration.
type Config struct {
	GPIO      GPIOConfig    `yaml:"gpio"`
	MQTT      MQTTConfig    `yaml:"mqtt"`
	Log       LogConfig     `yaml:"log"`
	Poll      time.Duration `yaml:"poll"`
	Heartbeat time.Duration `yaml:"heartbeat"`
	HTTP      string        `yaml:"http"`
}

// GPIOConfig describes the receiver wiring. Pin numbers are line offsets
// on Chip (BCM numbering on a Raspberry Pi). A negative pin disables it.
type GPIOConfig struct {
	Chip            string `yaml:"chip"`
	Pin             int    `yaml:"pin"`
	Bias            string `yaml:"bias"`              // "up", "down" or "none"
	CarrierOffLevel string `yaml:"carrier_off_level"` // "high" or "low"
	LEDPin          int    `yaml:"led_pin"`
	LEDActiveLow    bool   `yaml:"led_active_low"`
	PONPin          int    `yaml:"pon_pin"`
	PONActiveLow    bool   `yaml:"pon_active_low"`
	QueueSize       int    `yaml:"queue_size"`

	// SoftwareTimestamps stamps edges in user space, for kernels whose
	// GPIO events carry no usable timestamp.
	SoftwareTimestamps bool `yaml:"software_timestamps"`
}

// MQTTConfig configures the broker connection. An empty Broker disables MQTT.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	Buffer      int    `yaml:"buffer"`
}

// LogConfig selects the log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		GPIO: GPIOConfig{
			Chip:            "gpiochip0",
			Pin:             17,
			Bias:            "up",
			CarrierOffLevel: "high",
			LEDPin:          -1,
			PONPin:          -1,
			PONActiveLow:    true,
			QueueSize:       64,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			TopicPrefix: "time/dcf77/receiver",
			Buffer:      100,
		},
		Log:       LogConfig{Level: "info"},
		Poll:      20 * time.Millisecond,
		Heartbeat: 15 * time.Minute,
		HTTP:      ":8080",
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	if c.GPIO.Chip == "" {
		return fmt.Errorf("%w: gpio.chip is empty", ErrInvalid)
	}
	if c.GPIO.Pin < 0 {
		return fmt.Errorf("%w: gpio.pin %d", ErrInvalid, c.GPIO.Pin)
	}
	switch c.GPIO.Bias {
	case "up", "down", "none":
	default:
		return fmt.Errorf("%w: gpio.bias %q (want up, down or none)", ErrInvalid, c.GPIO.Bias)
	}
	if _, err := c.GPIO.CarrierOffHigh(); err != nil {
		return err
	}
	if c.GPIO.LEDPin >= 0 && c.GPIO.LEDPin == c.GPIO.Pin {
		return fmt.Errorf("%w: gpio.led_pin equals gpio.pin", ErrInvalid)
	}
	if c.GPIO.PONPin >= 0 && c.GPIO.PONPin == c.GPIO.Pin {
		return fmt.Errorf("%w: gpio.pon_pin equals gpio.pin", ErrInvalid)
	}
	if c.Poll <= 0 || c.Poll > MaxPoll {
		return fmt.Errorf("%w: poll %v (want 0 < poll <= %v)", ErrInvalid, c.Poll, MaxPoll)
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("%w: heartbeat %v", ErrInvalid, c.Heartbeat)
	}
	if c.MQTT.Broker != "" && c.MQTT.TopicPrefix == "" {
		return fmt.Errorf("%w: mqtt.topic_prefix is empty", ErrInvalid)
	}
	if c.MQTT.Buffer < 0 {
		return fmt.Errorf("%w: mqtt.buffer %d", ErrInvalid, c.MQTT.Buffer)
	}
	return nil
}

// CarrierOffHigh reports whether the receiver drives the line high while
// the carrier is reduced.
func (g GPIOConfig) CarrierOffHigh() (bool, error) {
	switch strings.ToLower(g.CarrierOffLevel) {
	case "high":
		return true, nil
	case "low":
		return false, nil
	}
	return false, fmt.Errorf("%w: gpio.carrier_off_level %q (want high or low)", ErrInvalid, g.CarrierOffLevel)
}
