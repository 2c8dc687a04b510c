package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultFile = "chatd.yaml"

type Config struct {
	Http     Http     `yaml:"http"`
	Log      Log      `yaml:"log"`
	Database Database `yaml:"database"`
	LLM      LLM      `yaml:"llm"`
}

type Http struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	BasePath        string        `yaml:"base_path"`
	MaxRequestSize  int64         `yaml:"max_request_size"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func (h Http) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File, when set, receives logs through a rotating writer instead of stderr.
	File string `yaml:"file"`
}

type Database struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type LLM struct {
	Provider string        `yaml:"provider"`
	BaseURL  string        `yaml:"base_url"`
	Model    string        `yaml:"model"`
	Token    string        `yaml:"token"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Http: Http{
			Host:            "0.0.0.0",
			Port:            8000,
			MaxRequestSize:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Log: Log{
			Level:  "info",
			Format: "json",
		},
		Database: Database{
			Driver: "sqlite3",
			DSN:    "chatd.db",
		},
		LLM: LLM{
			Provider: "ollama",
			BaseURL:  "http://localhost:11434",
			Model:    "deepseek-coder-v2",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file, then
// environment variables. A missing file is not an error unless it was
// named explicitly.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	explicit := path != ""
	if path == "" {
		path = os.Getenv("CHATD_CONFIG_FILE")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultFile
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Http.Host, "CHATD_HTTP_HOST")
	setString(&cfg.Http.BasePath, "CHATD_HTTP_BASE_PATH")
	if err := setInt(&cfg.Http.Port, "CHATD_HTTP_PORT"); err != nil {
		return err
	}

	setString(&cfg.Log.Level, "CHATD_LOG_LEVEL")
	setString(&cfg.Log.Format, "CHATD_LOG_FORMAT")
	setString(&cfg.Log.File, "CHATD_LOG_FILE")

	setString(&cfg.Database.Driver, "CHATD_DB_DRIVER")
	setString(&cfg.Database.DSN, "CHATD_DB_DSN")

	setString(&cfg.LLM.Provider, "CHATD_LLM_PROVIDER")
	setString(&cfg.LLM.BaseURL, "CHATD_LLM_BASE_URL")
	setString(&cfg.LLM.Model, "CHATD_LLM_MODEL")
	setString(&cfg.LLM.Token, "CHATD_LLM_TOKEN")
	if v := os.Getenv("CHATD_LLM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CHATD_LLM_TIMEOUT %q: %w", v, err)
		}
		cfg.LLM.Timeout = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite3 or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}

	switch c.LLM.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("llm.provider must be ollama or openai, got %q", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return errors.New("llm.model is required")
	}

	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", c.Http.Port)
	}
	return nil
}
