package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Logging       LoggingConfig       `yaml:"logging"`
	App           AppConfig           `yaml:"app"`
	Worker        WorkerConfig        `yaml:"worker"`
	Reaper        ReaperConfig        `yaml:"reaper"`
	Stream        StreamConfig        `yaml:"stream"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Storage       StorageConfig       `yaml:"storage"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds job admission and concurrency limits
type WorkerConfig struct {
	MaxWorkers   int           `yaml:"max_workers"`
	MaxQueueSize int           `yaml:"max_queue_size"`
	JobTimeout   time.Duration `yaml:"job_timeout"`
}

// ReaperConfig holds terminal job eviction settings
type ReaperConfig struct {
	Interval  time.Duration `yaml:"interval"`
	Retention time.Duration `yaml:"retention"`
}

// StreamConfig holds streaming session buffer thresholds
type StreamConfig struct {
	MinTriggerBytes int `yaml:"min_trigger_bytes"`
	MaxBufferBytes  int `yaml:"max_buffer_bytes"`
}

// TranscriptionConfig selects and configures the transcription backend
type TranscriptionConfig struct {
	Provider   string        `yaml:"provider"` // openai, whisper.cpp
	Model      string        `yaml:"model"`
	APIKeyEnv  string        `yaml:"api_key_env"`
	FFmpegPath string        `yaml:"ffmpeg_path"`
	Whisper    WhisperConfig `yaml:"whisper"`
}

// WhisperConfig holds local whisper.cpp paths
type WhisperConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ModelPath  string `yaml:"model_path"`
}

// StorageConfig holds artifact storage settings
type StorageConfig struct {
	TempDir string `yaml:"temp_dir"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// APIKey resolves the transcription API key from the configured
// environment variable.
func (c *TranscriptionConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return os.Getenv("OPENAI_API_KEY")
	}
	return os.Getenv(c.APIKeyEnv)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Worker.MaxWorkers <= 0 {
		return fmt.Errorf("worker max_workers must be greater than 0")
	}

	if c.Worker.MaxQueueSize <= 0 {
		return fmt.Errorf("worker max_queue_size must be greater than 0")
	}

	if c.Worker.JobTimeout <= 0 {
		return fmt.Errorf("worker job_timeout must be greater than 0")
	}

	if c.Reaper.Interval <= 0 {
		return fmt.Errorf("reaper interval must be greater than 0")
	}

	if c.Reaper.Retention <= 0 {
		return fmt.Errorf("reaper retention must be greater than 0")
	}

	if c.Stream.MinTriggerBytes <= 0 {
		return fmt.Errorf("stream min_trigger_bytes must be greater than 0")
	}

	if c.Stream.MaxBufferBytes < c.Stream.MinTriggerBytes {
		return fmt.Errorf("stream max_buffer_bytes must be at least min_trigger_bytes")
	}

	if c.Transcription.Provider == "" {
		return fmt.Errorf("transcription provider is required")
	}

	return nil
}
