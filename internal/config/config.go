package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации редактора.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Editor    EditorConfig    `yaml:"editor"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type StorageConfig struct {
	Path             string `yaml:"path"`
	CompressionLevel int    `yaml:"compression_level"` // 1..4, см. zstd.EncoderLevel
}

// EventBusConfig: пустой URL означает in-memory шину.
type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

// RedisConfig: пустой Addr отключает публикацию атласов.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTL      int    `yaml:"ttl_seconds"`
}

type LoggingConfig struct {
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
	Dir          string `yaml:"dir"`
	MaxSizeMB    int    `yaml:"max_size_mb"`
	MaxBackups   int    `yaml:"max_backups"`
}

type EditorConfig struct {
	TextureGenerator string `yaml:"texture_generator"` // bevel | perlin
	Seed             int64  `yaml:"seed"`              // 0 = от времени
}

type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Service string `yaml:"service"`
}

// Default возвращает конфигурацию, с которой редактор стартует без файла.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:             "./data",
			CompressionLevel: 2,
		},
		EventBus: EventBusConfig{
			Stream:    "EDITOR",
			Retention: 24,
			Buffer:    1024,
		},
		Redis: RedisConfig{
			TTL: 3600,
		},
		Logging: LoggingConfig{
			ConsoleLevel: "info",
			FileLevel:    "debug",
			Dir:          "logs",
			MaxSizeMB:    50,
			MaxBackups:   5,
		},
		Editor: EditorConfig{
			TextureGenerator: "bevel",
		},
		Telemetry: TelemetryConfig{
			Service: "voxel-editor",
		},
	}
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "EDITOR_REST_PORT", 8090)
}

// GetMetricsPort возвращает порт Prometheus метрик с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "EDITOR_METRICS_PORT", 2113)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации поверх Default().
// Если path == "", берётся EDITOR_CONFIG; если и он пуст, возвращаются дефолты.
// Файл .env в рабочем каталоге (если есть) загружается до чтения окружения.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("EDITOR_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
