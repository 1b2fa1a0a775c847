package main

import (
	"fmt"
	"log"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/m3rciful/statusbot/bot/handlers"
	"github.com/m3rciful/statusbot/bot/history"
	"github.com/m3rciful/statusbot/core/bootstrap"
	"github.com/m3rciful/statusbot/core/cmd"
	coreconfig "github.com/m3rciful/statusbot/core/config"
	coredatabase "github.com/m3rciful/statusbot/core/database"
)

// AppConfig is the full bot configuration: the core sections plus the
// optional database block.
type AppConfig struct {
	coreconfig.Config `yaml:",inline"`
	Database          coredatabase.Config `yaml:"database"`
}

// CoreConfig exposes the embedded core configuration to the runner.
func (c *AppConfig) CoreConfig() *coreconfig.Config {
	return &c.Config
}

func loadConfig(path string) (cmd.ConfigCarrier, error) {
	var cfg AppConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func buildApp(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg, ok := carrier.(*AppConfig)
	if !ok {
		return nil, fmt.Errorf("unexpected config type %T", carrier)
	}

	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	var store history.Store
	if res.DB != nil {
		store = history.NewPostgresStore(res.DB)
	} else {
		store = history.NewMemoryStore()
	}

	return handlers.New(cfg.CoreConfig(), store), nil
}

func main() {
	err := cmd.Run(cmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig:        loadConfig,
		Bootstrap:         buildApp,
	})
	if err != nil {
		log.Fatalf("statusbot: %v", err)
	}
}
