package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "GOOPCHAT"

// Env holds the GOOPCHAT_* overrides. Unset fields leave the file value.
type Env struct {
	Token        string `envconfig:"TOKEN"`
	APIURL       string `envconfig:"API_URL"`
	SocketURL    string `envconfig:"SOCKET_URL"`
	PageSize     int    `envconfig:"PAGE_SIZE"`
	TypingTTLSec *int   `envconfig:"TYPING_TTL_SECONDS"`
	MetricsAddr  string `envconfig:"METRICS_ADDR"`
	DBPath       string `envconfig:"DB_PATH"`
}

// LoadEnv reads <dir>/.env when present, then the process environment.
// Variables already set in the environment win over the file.
func LoadEnv(dir string) (Env, error) {
	dotenv := filepath.Join(dir, ".env")
	if _, err := os.Stat(dotenv); err == nil {
		if err := godotenv.Load(dotenv); err != nil {
			return Env{}, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}
	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return Env{}, fmt.Errorf("env: %w", err)
	}
	return env, nil
}

// Apply overlays the set overrides onto cfg and revalidates.
func (e Env) Apply(cfg *Config) error {
	if e.Token != "" {
		cfg.Identity.Token = e.Token
	}
	if e.APIURL != "" {
		cfg.Server.APIURL = e.APIURL
	}
	if e.SocketURL != "" {
		cfg.Server.SocketURL = e.SocketURL
	}
	if e.PageSize != 0 {
		cfg.Chat.PageSize = e.PageSize
	}
	if e.TypingTTLSec != nil {
		cfg.Chat.TypingTTLSec = *e.TypingTTLSec
	}
	if e.MetricsAddr != "" {
		cfg.Metrics.HTTPAddr = e.MetricsAddr
	}
	if e.DBPath != "" {
		cfg.Storage.DBPath = e.DBPath
	}
	return cfg.Validate()
}
