package config

import (
	"encoding/json"
	"os"
)

type Config struct {
	Bot     BotConfig     `json:"bot"`
	Storage StorageConfig `json:"storage"`
	Logging LoggingConfig `json:"logging"`
	Scripts ScriptConfig  `json:"scripts"`
}

type BotConfig struct {
	Token         string `json:"token"`
	CommandPrefix string `json:"command_prefix"`
}

type StorageConfig struct {
	DatabasePath string `json:"database_path"`
}

type LoggingConfig struct {
	Path  string `json:"path"`
	Level string `json:"level"`
}

type ScriptConfig struct {
	// BudgetMS is the wall-clock execution budget per script invocation.
	BudgetMS int `json:"budget_ms"`
	// Workers is the number of goroutines stepping queued invocations.
	Workers int `json:"workers"`
	// QueueSize bounds the pending invocation queue.
	QueueSize int `json:"queue_size"`
}

var GlobalConfig *Config

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	GlobalConfig = &cfg
	return &cfg, nil
}

func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		cfg = DefaultConfig()
		applyEnv(cfg)
		GlobalConfig = cfg
	}
	return cfg
}

func applyEnv(cfg *Config) {
	if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		cfg.Bot.Token = token
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.Storage.DatabasePath = dbPath
	}
	if logPath := os.Getenv("LOG_PATH"); logPath != "" {
		cfg.Logging.Path = logPath
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.CommandPrefix == "" {
		cfg.Bot.CommandPrefix = "!"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "eventlogger.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Scripts.BudgetMS <= 0 {
		cfg.Scripts.BudgetMS = 3000
	}
	if cfg.Scripts.Workers <= 0 {
		cfg.Scripts.Workers = 4
	}
	if cfg.Scripts.QueueSize <= 0 {
		cfg.Scripts.QueueSize = 4096
	}
}

func DefaultConfig() *Config {
	cfg := &Config{
		Bot: BotConfig{
			CommandPrefix: "!",
		},
		Storage: StorageConfig{
			DatabasePath: "eventlogger.db",
		},
		Logging: LoggingConfig{
			Path:  "eventlogger.log",
			Level: "info",
		},
	}
	applyDefaults(cfg)
	return cfg
}

func Get() *Config {
	if GlobalConfig == nil {
		return DefaultConfig()
	}
	return GlobalConfig
}
