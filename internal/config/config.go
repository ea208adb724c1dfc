package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL  string `yaml:"ttl"`
		File string `yaml:"file"`
	} `yaml:"quiz"`
	Game struct {
		LeadIn            string `yaml:"leadIn"`
		FinishedRetention string `yaml:"finishedRetention"`
		PersistTimeout    string `yaml:"persistTimeout"`
		PinAttempts       int    `yaml:"pinAttempts"`
	} `yaml:"game"`
	Host struct {
		TokenSecret string `yaml:"tokenSecret"`
		TokenTTL    string `yaml:"tokenTTL"`
	} `yaml:"host"`
	AMQP struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"amqp"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// Load reads YAML config from path, then applies .env and environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	override(&c.Server.Port, "PORT")
	override(&c.Redis.Addr, "REDIS_ADDR")
	override(&c.Redis.Password, "REDIS_PASSWORD")
	override(&c.Postgres.URL, "POSTGRES_URL")
	override(&c.AMQP.URL, "AMQP_URL")
	override(&c.Host.TokenSecret, "HOST_TOKEN_SECRET")
	override(&c.Log.Level, "LOG_LEVEL")
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		if db, err := strconv.Atoi(raw); err == nil {
			c.Redis.DB = db
		}
	}
}

func override(field *string, key string) {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		*field = value
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
