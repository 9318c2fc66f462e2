// Package config loads application settings from an optional YAML file
// and AGENTDECK_* environment variables.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the settings for all subsystems.
type Config struct {
	DataDir string

	Agent struct {
		Binary string
	}

	API struct {
		Addr string
	}

	Stream struct {
		PollInterval time.Duration
	}

	Notify struct {
		Telegram struct {
			Token  string
			ChatID int64
		}
		Slack struct {
			WebhookURL string
		}
		PollInterval time.Duration
	}
}

// Load reads config.yaml from the given directory (or the data dir when
// empty) and overlays environment variables. A missing config file is
// fine: everything has a default or comes from the environment.
func Load(configDir string) (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	v.AddConfigPath(defaultDataDir())

	v.SetEnvPrefix("AGENTDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("agent.binary", "claude")
	v.SetDefault("api.addr", "127.0.0.1:7777")
	v.SetDefault("stream.poll_interval", time.Second)
	v.SetDefault("notify.poll_interval", 15*time.Second)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	var cfg Config
	cfg.DataDir = v.GetString("data_dir")
	cfg.Agent.Binary = v.GetString("agent.binary")
	cfg.API.Addr = v.GetString("api.addr")
	cfg.Stream.PollInterval = v.GetDuration("stream.poll_interval")
	cfg.Notify.Telegram.Token = v.GetString("notify.telegram.token")
	cfg.Notify.Telegram.ChatID = v.GetInt64("notify.telegram.chat_id")
	cfg.Notify.Slack.WebhookURL = v.GetString("notify.slack.webhook_url")
	cfg.Notify.PollInterval = v.GetDuration("notify.poll_interval")
	return cfg, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".agentdeck"
	}
	return filepath.Join(home, ".agentdeck")
}
