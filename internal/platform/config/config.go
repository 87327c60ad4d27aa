// Package config provides configuration loading and management using koanf.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Default configuration values.
const (
	// EnvPrefix is the prefix for environment variable overrides.
	// Nested keys are separated by a double underscore, e.g. QUOTEBOX_SPEECH__MODEL_PATH.
	EnvPrefix = "QUOTEBOX_"

	// DefaultSampleRate is the microphone sample rate expected by whisper.
	DefaultSampleRate = 16000

	// DefaultGPIOLine is the push button line on the voice kit hat.
	DefaultGPIOLine = 23

	// Speech server client.
	DefaultClientRetryMaxAttempts     = 3
	DefaultClientRetryMultiplier      = 2.0
	DefaultClientRetryJitterFactor    = 0.25
	DefaultClientCircuitMaxFailures   = 5
	DefaultClientCircuitHalfOpenLimit = 1
	DefaultTransportMaxIdleConns      = 4

	// Log rotation. Sized for an SD card.
	DefaultLogFileMaxSizeMB  = 10
	DefaultLogFileMaxBackups = 3
	DefaultLogFileMaxAgeDays = 28
)

// Speech recognizer backends.
const (
	RecognizerConsole       = "console"
	RecognizerWhisper       = "whisper"
	RecognizerWhisperServer = "whisper-server"
)

// Voice output backends.
const (
	VoiceConsole     = "console"
	VoiceSynthesizer = "synthesizer"
)

// Trigger kinds.
const (
	TriggerConsole = "console"
	TriggerGPIO    = "gpio"
)

// Config is the root configuration structure.
type Config struct {
	App       AppConfig       `koanf:"app"       validate:"required"`
	Log       LogConfig       `koanf:"log"       validate:"required"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Storage   StorageConfig   `koanf:"storage"   validate:"required"`
	Speech    SpeechConfig    `koanf:"speech"    validate:"required"`
	Trigger   TriggerConfig   `koanf:"trigger"   validate:"required"`
	Dialog    DialogConfig    `koanf:"dialog"`
	Client    ClientConfig    `koanf:"client"    validate:"required"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev prod test"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig contains rolling log file settings.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"        validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"    validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"     validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig contains OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
}

// MetricsConfig contains Prometheus textfile settings.
// Metrics are written to a file for the node exporter textfile collector;
// the appliance never listens on a socket.
type MetricsConfig struct {
	Textfile string `koanf:"textfile"`
}

// StorageConfig contains quote persistence settings.
type StorageConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// SpeechConfig contains speech recognition and synthesis settings.
type SpeechConfig struct {
	Recognizer   string        `koanf:"recognizer"    validate:"required,oneof=console whisper whisper-server"`
	Voice        string        `koanf:"voice"         validate:"required,oneof=console synthesizer"`
	Language     string        `koanf:"language"`
	ModelPath    string        `koanf:"model_path"    validate:"required_if=Recognizer whisper"`
	ServerURL    string        `koanf:"server_url"    validate:"required_if=Recognizer whisper-server,omitempty,url"`
	Synthesizer  string        `koanf:"synthesizer"   validate:"required_if=Voice synthesizer,omitempty,voicetemplate"`
	ScratchDir   string        `koanf:"scratch_dir"`
	SampleRate   int           `koanf:"sample_rate"   validate:"required,min=8000,max=48000"`
	QuietPeriod  time.Duration `koanf:"quiet_period"  validate:"required,min=50ms"`
	MaxUtterance time.Duration `koanf:"max_utterance" validate:"required,min=1s"`
}

// TriggerConfig contains push button settings.
type TriggerConfig struct {
	Kind     string        `koanf:"kind"     validate:"required,oneof=console gpio"`
	Chip     string        `koanf:"chip"     validate:"required_if=Kind gpio"`
	Line     int           `koanf:"line"     validate:"min=0"`
	Debounce time.Duration `koanf:"debounce"`
}

// DialogConfig contains confirmation dialog settings.
type DialogConfig struct {
	// MaxRounds bounds how many times a question is asked. Zero means unlimited.
	MaxRounds int `koanf:"max_rounds" validate:"min=0"`
}

// ClientConfig contains HTTP client settings for the speech server.
type ClientConfig struct {
	Timeout        time.Duration        `koanf:"timeout"         validate:"required,min=100ms"`
	Retry          RetryConfig          `koanf:"retry"           validate:"required"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker" validate:"required"`
	Transport      TransportConfig      `koanf:"transport"       validate:"required"`
}

// RetryConfig contains retry settings for HTTP clients.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts"     validate:"required,min=1,max=10"`
	InitialInterval time.Duration `koanf:"initial_interval" validate:"required,min=10ms"`
	MaxInterval     time.Duration `koanf:"max_interval"     validate:"required,min=100ms"`
	Multiplier      float64       `koanf:"multiplier"       validate:"required,min=1.1,max=10"`
	JitterFactor    float64       `koanf:"jitter_factor"    validate:"min=0,max=1"`
}

// CircuitBreakerConfig contains circuit breaker settings for HTTP clients.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"    validate:"required,min=1"`
	Timeout       time.Duration `koanf:"timeout"         validate:"required,min=1s"`
	HalfOpenLimit int           `koanf:"half_open_limit" validate:"required,min=1"`
}

// TransportConfig contains HTTP transport pool settings.
type TransportConfig struct {
	MaxIdleConns    int           `koanf:"max_idle_conns"    validate:"required,min=1"`
	IdleConnTimeout time.Duration `koanf:"idle_conn_timeout" validate:"required,min=1s"`
}

// defaults returns the default configuration values.
func defaults() map[string]any {
	return map[string]any{
		"app.name":        "quotebox",
		"app.version":     "dev",
		"app.environment": "local",

		"log.level":            "info",
		"log.format":           "pretty",
		"log.file.enabled":     false,
		"log.file.path":        "./logs/quotebox.log",
		"log.file.max_size":    DefaultLogFileMaxSizeMB,
		"log.file.max_backups": DefaultLogFileMaxBackups,
		"log.file.max_age":     DefaultLogFileMaxAgeDays,
		"log.file.compress":    true,

		"telemetry.enabled":       false,
		"telemetry.endpoint":      "",
		"telemetry.service_name":  "quotebox",
		"telemetry.sampling_rate": 1.0,

		"metrics.textfile": "",

		"storage.path": "./data/quotes.toml",

		"speech.recognizer":    RecognizerConsole,
		"speech.voice":         VoiceConsole,
		"speech.language":      "",
		"speech.model_path":    "",
		"speech.server_url":    "",
		"speech.synthesizer":   "pico2wave --lang={lang} --wave={out} {text}",
		"speech.scratch_dir":   "",
		"speech.sample_rate":   DefaultSampleRate,
		"speech.quiet_period":  "800ms",
		"speech.max_utterance": "15s",

		"trigger.kind":     TriggerConsole,
		"trigger.chip":     "gpiochip0",
		"trigger.line":     DefaultGPIOLine,
		"trigger.debounce": "20ms",

		"dialog.max_rounds": 0,

		"client.timeout":                         "20s",
		"client.retry.max_attempts":              DefaultClientRetryMaxAttempts,
		"client.retry.initial_interval":          "200ms",
		"client.retry.max_interval":              "2s",
		"client.retry.multiplier":                DefaultClientRetryMultiplier,
		"client.retry.jitter_factor":             DefaultClientRetryJitterFactor,
		"client.circuit_breaker.max_failures":    DefaultClientCircuitMaxFailures,
		"client.circuit_breaker.timeout":         "30s",
		"client.circuit_breaker.half_open_limit": DefaultClientCircuitHalfOpenLimit,
		"client.transport.max_idle_conns":        DefaultTransportMaxIdleConns,
		"client.transport.idle_conn_timeout":     "90s",
	}
}

// Load layers configuration, later layers winning:
// defaults, {dir}/base.yaml, {dir}/{profile}.yaml, then QUOTEBOX_ variables.
// Missing YAML files are skipped.
func Load(dir, profile string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	files := []struct{ label, name string }{{"base config", "base"}}
	if profile != "" {
		files = append(files, struct{ label, name string }{fmt.Sprintf("profile config %q", profile), profile})
	}

	for _, f := range files {
		if err := loadYAML(k, filepath.Join(dir, f.name+".yaml")); err != nil {
			return nil, fmt.Errorf("loading %s: %w", f.label, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := new(Config)
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envKey maps QUOTEBOX_SPEECH__MODEL_PATH to speech.model_path. Single
// underscores stay, so keys like model_path survive.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

func loadYAML(k *koanf.Koanf, path string) error {
	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return k.Load(file.Provider(path), yaml.Parser())
}
