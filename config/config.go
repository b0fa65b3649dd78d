package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Booking   BookingConfig   `yaml:"booking"`
	Providers ProvidersConfig `yaml:"providers"`
	Worker    WorkerConfig    `yaml:"worker"`
	Log       LogConfig       `yaml:"log"`
}

type HTTPConfig struct {
	Address    string `yaml:"address"`
	SwaggerDir string `yaml:"swagger_dir"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	ItineraryTopic     string   `yaml:"itinerary_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type BookingConfig struct {
	SessionTTLMinutes     int `yaml:"session_ttl_minutes"`
	SearchCacheTTLSeconds int `yaml:"search_cache_ttl_seconds"`
	EventBuffer           int `yaml:"event_buffer"`
}

func (b BookingConfig) SessionTTL() time.Duration {
	if b.SessionTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(b.SessionTTLMinutes) * time.Minute
}

func (b BookingConfig) SearchCacheTTL() time.Duration {
	if b.SearchCacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(b.SearchCacheTTLSeconds) * time.Second
}

type ProvidersConfig struct {
	Offline   bool           `yaml:"offline"`
	SynthSeed int64          `yaml:"synth_seed"`
	Flight    ProviderConfig `yaml:"flight"`
	Hotel     ProviderConfig `yaml:"hotel"`
}

type ProviderConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (p ProviderConfig) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

type WorkerConfig struct {
	SweepMinutes int `yaml:"sweep_minutes"`
}

func (w WorkerConfig) SweepInterval() time.Duration {
	if w.SweepMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(w.SweepMinutes) * time.Minute
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// envOverrides is applied on top of the file so addresses and secrets
// can come from the environment in deployments.
type envOverrides struct {
	HTTPAddress      string   `env:"HTTP_ADDRESS"`
	DatabaseHost     string   `env:"DB_HOST"`
	DatabasePassword string   `env:"DB_PASSWORD"`
	RedisAddr        string   `env:"REDIS_ADDR"`
	RedisPassword    string   `env:"REDIS_PASSWORD"`
	KafkaBrokers     []string `env:"KAFKA_BROKERS" envSeparator:","`
	FlightBaseURL    string   `env:"FLIGHT_API_BASE_URL"`
	FlightAPIKey     string   `env:"FLIGHT_API_KEY"`
	HotelBaseURL     string   `env:"HOTEL_API_BASE_URL"`
	HotelAPIKey      string   `env:"HOTEL_API_KEY"`
	ProvidersOffline *bool    `env:"PROVIDERS_OFFLINE"`
	LogLevel         string   `env:"LOG_LEVEL"`
}

func LoadConfig(path string) (*Config, error) {
	// A .env file is a local convenience; absence is normal.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return nil, fmt.Errorf("failed to parse env overrides: %w", err)
	}
	applyOverrides(&cfg, ov)

	return &cfg, nil
}

func applyOverrides(cfg *Config, ov envOverrides) {
	if ov.HTTPAddress != "" {
		cfg.HTTP.Address = ov.HTTPAddress
	}
	if ov.DatabaseHost != "" {
		cfg.Database.Host = ov.DatabaseHost
	}
	if ov.DatabasePassword != "" {
		cfg.Database.Password = ov.DatabasePassword
	}
	if ov.RedisAddr != "" {
		cfg.Redis.Addr = ov.RedisAddr
	}
	if ov.RedisPassword != "" {
		cfg.Redis.Password = ov.RedisPassword
	}
	if len(ov.KafkaBrokers) > 0 {
		cfg.Kafka.Brokers = ov.KafkaBrokers
	}
	if ov.FlightBaseURL != "" {
		cfg.Providers.Flight.BaseURL = ov.FlightBaseURL
	}
	if ov.FlightAPIKey != "" {
		cfg.Providers.Flight.APIKey = ov.FlightAPIKey
	}
	if ov.HotelBaseURL != "" {
		cfg.Providers.Hotel.BaseURL = ov.HotelBaseURL
	}
	if ov.HotelAPIKey != "" {
		cfg.Providers.Hotel.APIKey = ov.HotelAPIKey
	}
	if ov.ProvidersOffline != nil {
		cfg.Providers.Offline = *ov.ProvidersOffline
	}
	if ov.LogLevel != "" {
		cfg.Log.Level = ov.LogLevel
	}
}

func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}
