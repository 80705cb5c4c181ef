package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SourceIMU    = "imu"
	SourceSerial = "serial"
	SourceReplay = "replay"
	SourceSim    = "sim"
)

type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	State    StateConfig    `yaml:"state"`
	Alert    AlertConfig    `yaml:"alert"`
	Web      WebConfig      `yaml:"web"`
	Record   RecordConfig   `yaml:"record"`
}

type SourceConfig struct {
	Kind   string       `yaml:"kind"`
	IMU    IMUConfig    `yaml:"imu"`
	Serial SerialConfig `yaml:"serial"`
	Replay ReplayConfig `yaml:"replay"`
	Sim    SimConfig    `yaml:"sim"`
}

type IMUConfig struct {
	I2CBus   int           `yaml:"i2c_bus"`
	Addr     uint16        `yaml:"addr"`
	Interval time.Duration `yaml:"interval"`
}

type SerialConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

type ReplayConfig struct {
	Path  string  `yaml:"path"`
	Speed float64 `yaml:"speed"`
	Loop  bool    `yaml:"loop"`
}

type SimConfig struct {
	// Scenario is a YAML scenario script; empty selects the built-in fall.
	Scenario string        `yaml:"scenario"`
	Interval time.Duration `yaml:"interval"`
	Loop     bool          `yaml:"loop"`
}

type PipelineConfig struct {
	MinInterval time.Duration `yaml:"min_interval"`
	// Debug logs every scorer and classifier decision.
	Debug bool `yaml:"debug"`
}

type StateConfig struct {
	Path string `yaml:"path"`
	// AlwaysStart starts monitoring even when the persisted flag is off.
	AlwaysStart bool `yaml:"always_start"`
}

type AlertConfig struct {
	// Cooldown suppresses repeated emergency alerts within this period.
	Cooldown time.Duration `yaml:"cooldown"`
	// Device identifies this unit in outgoing alerts.
	Device string `yaml:"device"`

	MQTT MQTTConfig `yaml:"mqtt"`
	UDP  UDPConfig  `yaml:"udp"`
	GPIO GPIOConfig `yaml:"gpio"`
}

type MQTTConfig struct {
	Enable   bool   `yaml:"enable"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
	Retain   bool   `yaml:"retain"`
}

type UDPConfig struct {
	Enable bool   `yaml:"enable"`
	Dest   string `yaml:"dest"`
}

type GPIOConfig struct {
	Enable bool          `yaml:"enable"`
	Chip   string        `yaml:"chip"`
	Pin    int           `yaml:"pin"`
	Pulse  time.Duration `yaml:"pulse"`
}

type WebConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

type RecordConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes a YAML document, applies defaults and validates the result.
// An empty document is valid and yields the defaults.
func Parse(b []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg, _ := Parse(nil)
	return cfg
}

func (cfg *Config) applyDefaults() error {
	if cfg.Source.Kind == "" {
		cfg.Source.Kind = SourceSim
	}
	switch cfg.Source.Kind {
	case SourceIMU:
		if cfg.Source.IMU.I2CBus <= 0 {
			cfg.Source.IMU.I2CBus = 1
		}
		if cfg.Source.IMU.Addr == 0 {
			cfg.Source.IMU.Addr = 0x68
		}
		if cfg.Source.IMU.Interval <= 0 {
			cfg.Source.IMU.Interval = 20 * time.Millisecond
		}
	case SourceSerial:
		if cfg.Source.Serial.Device == "" {
			return fmt.Errorf("source.serial.device is required when source.kind is 'serial'")
		}
		if cfg.Source.Serial.Baud == 0 {
			cfg.Source.Serial.Baud = 115200
		}
		if cfg.Source.Serial.Baud < 0 {
			return fmt.Errorf("source.serial.baud must be > 0")
		}
	case SourceReplay:
		if cfg.Source.Replay.Path == "" {
			return fmt.Errorf("source.replay.path is required when source.kind is 'replay'")
		}
		if cfg.Source.Replay.Speed == 0 {
			cfg.Source.Replay.Speed = 1
		}
		if cfg.Source.Replay.Speed < 0 {
			return fmt.Errorf("source.replay.speed must be > 0")
		}
	case SourceSim:
		if cfg.Source.Sim.Interval <= 0 {
			cfg.Source.Sim.Interval = 20 * time.Millisecond
		}
	default:
		return fmt.Errorf("source.kind must be one of imu, serial, replay, sim (got %q)", cfg.Source.Kind)
	}

	if cfg.Pipeline.MinInterval < 0 {
		return fmt.Errorf("pipeline.min_interval must be >= 0")
	}
	if cfg.Pipeline.MinInterval == 0 {
		cfg.Pipeline.MinInterval = 50 * time.Millisecond
	}

	if cfg.State.Path == "" {
		cfg.State.Path = "fallwatch.db"
	}

	if cfg.Alert.Cooldown < 0 {
		return fmt.Errorf("alert.cooldown must be >= 0")
	}
	if cfg.Alert.Cooldown == 0 {
		cfg.Alert.Cooldown = 10 * time.Second
	}

	mqtt := &cfg.Alert.MQTT
	if mqtt.Enable {
		if mqtt.Broker == "" {
			return fmt.Errorf("alert.mqtt.broker is required when alert.mqtt.enable is true")
		}
		if mqtt.QoS > 2 {
			return fmt.Errorf("alert.mqtt.qos must be 0, 1 or 2")
		}
	}
	if mqtt.ClientID == "" {
		mqtt.ClientID = "fallwatch"
	}
	if mqtt.Topic == "" {
		mqtt.Topic = "fallwatch/events"
	}

	if cfg.Alert.UDP.Enable && cfg.Alert.UDP.Dest == "" {
		return fmt.Errorf("alert.udp.dest is required when alert.udp.enable is true")
	}

	gpio := &cfg.Alert.GPIO
	if gpio.Enable && gpio.Pin < 0 {
		return fmt.Errorf("alert.gpio.pin must be >= 0")
	}
	if gpio.Chip == "" {
		gpio.Chip = "gpiochip0"
	}
	if gpio.Pulse <= 0 {
		gpio.Pulse = 2 * time.Second
	}

	if cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}

	if cfg.Record.Enable {
		if cfg.Record.Path == "" {
			return fmt.Errorf("record.path is required when record.enable is true")
		}
		if cfg.Source.Kind == SourceReplay {
			return fmt.Errorf("record cannot be used with source.kind 'replay'")
		}
	}
	return nil
}
