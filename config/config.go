// SPDX-License-Identifier: EPL-2.0

// Package config loads the settings of the voxmix command line tool from an
// optional YAML file, VOXMIX_* environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/ik5/voxmix/audio"
	"github.com/ik5/voxmix/recorder"
)

// EnvPrefix prefixes every environment override, e.g. VOXMIX_SAMPLE_RATE
// or VOXMIX_BACKGROUND_VOLUME.
const EnvPrefix = "VOXMIX"

// Output names.
const (
	OutputDevice = "device"
	OutputNull   = "null"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	File          string           `mapstructure:"file" yaml:"file"`
	SampleRate    int              `mapstructure:"sample_rate" yaml:"sample_rate"`
	Channels      int              `mapstructure:"channels" yaml:"channels"`
	MaxRecordTime time.Duration    `mapstructure:"max_record_time" yaml:"max_record_time"`
	BGMLatency    time.Duration    `mapstructure:"bgm_latency" yaml:"bgm_latency"`
	Lookahead     int              `mapstructure:"lookahead" yaml:"lookahead"`
	BufferFrames  int              `mapstructure:"buffer_frames" yaml:"buffer_frames"`
	PeriodFrames  int              `mapstructure:"period_frames" yaml:"period_frames"`
	Output        string           `mapstructure:"output" yaml:"output"`
	Background    BackgroundConfig `mapstructure:"background" yaml:"background"`
	Log           LogConfig        `mapstructure:"log" yaml:"log"`
}

// BackgroundConfig selects the track mixed under recordings. An empty
// Path records without one.
type BackgroundConfig struct {
	Path   string        `mapstructure:"path" yaml:"path"`
	Volume float64       `mapstructure:"volume" yaml:"volume"`
	Offset time.Duration `mapstructure:"offset" yaml:"offset"`
	Length time.Duration `mapstructure:"length" yaml:"length"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("file", "recording.wav")
	v.SetDefault("sample_rate", audio.DefaultSampleRate)
	v.SetDefault("channels", 1)
	v.SetDefault("max_record_time", time.Duration(0))
	v.SetDefault("bgm_latency", recorder.DefaultBGMLatency)
	v.SetDefault("lookahead", recorder.DefaultLookahead)
	v.SetDefault("buffer_frames", 1024)
	v.SetDefault("period_frames", 1024)
	v.SetDefault("output", OutputDevice)
	v.SetDefault("background.path", "")
	v.SetDefault("background.volume", 0.4)
	v.SetDefault("background.offset", time.Duration(0))
	v.SetDefault("background.length", time.Duration(0))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads configFile, if not empty, applies environment overrides and
// validates the result.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.File == "" {
		return fmt.Errorf("%w: 'file' is required", ErrInvalid)
	}
	if _, err := audio.NewFormat(c.SampleRate, c.Channels); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.MaxRecordTime < 0 {
		return fmt.Errorf("%w: 'max_record_time' must not be negative", ErrInvalid)
	}
	if c.BGMLatency < 0 {
		return fmt.Errorf("%w: 'bgm_latency' must not be negative", ErrInvalid)
	}
	if c.Lookahead < 1 || c.BufferFrames < 1 || c.PeriodFrames < 1 {
		return fmt.Errorf("%w: 'lookahead', 'buffer_frames' and 'period_frames' must be positive", ErrInvalid)
	}
	switch c.Output {
	case OutputDevice, OutputNull:
	default:
		return fmt.Errorf("%w: 'output' must be %q or %q, got %q", ErrInvalid, OutputDevice, OutputNull, c.Output)
	}
	if err := c.Background.validate(); err != nil {
		return err
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: 'log.level': %w", ErrInvalid, err)
	}
	return nil
}

func (b BackgroundConfig) validate() error {
	switch {
	case b.Volume < 0 || b.Volume > 1:
		return fmt.Errorf("%w: 'background.volume' %v outside [0,1]", ErrInvalid, b.Volume)
	case b.Offset < 0:
		return fmt.Errorf("%w: 'background.offset' must not be negative", ErrInvalid)
	case b.Length < 0:
		return fmt.Errorf("%w: 'background.length' must not be negative", ErrInvalid)
	}
	return nil
}

// yamlView renders durations as strings.
type yamlView struct {
	File          string         `yaml:"file"`
	SampleRate    int            `yaml:"sample_rate"`
	Channels      int            `yaml:"channels"`
	MaxRecordTime string         `yaml:"max_record_time"`
	BGMLatency    string         `yaml:"bgm_latency"`
	Lookahead     int            `yaml:"lookahead"`
	BufferFrames  int            `yaml:"buffer_frames"`
	PeriodFrames  int            `yaml:"period_frames"`
	Output        string         `yaml:"output"`
	Background    backgroundView `yaml:"background"`
	Log           LogConfig      `yaml:"log"`
}

type backgroundView struct {
	Path   string  `yaml:"path"`
	Volume float64 `yaml:"volume"`
	Offset string  `yaml:"offset"`
	Length string  `yaml:"length"`
}

// MarshalYAML writes the configuration in the same shape Load reads.
func (c Config) MarshalYAML() (any, error) {
	return yamlView{
		File:          c.File,
		SampleRate:    c.SampleRate,
		Channels:      c.Channels,
		MaxRecordTime: c.MaxRecordTime.String(),
		BGMLatency:    c.BGMLatency.String(),
		Lookahead:     c.Lookahead,
		BufferFrames:  c.BufferFrames,
		PeriodFrames:  c.PeriodFrames,
		Output:        c.Output,
		Background: backgroundView{
			Path:   c.Background.Path,
			Volume: c.Background.Volume,
			Offset: c.Background.Offset.String(),
			Length: c.Background.Length.String(),
		},
		Log: c.Log,
	}, nil
}
