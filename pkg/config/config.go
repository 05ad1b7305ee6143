// Package config loads tgscrap configuration from an optional YAML
// file, applies environment overrides and defaults, and validates the
// result so the rest of the program can rely on populated values.
package config

import (
	"os"
	"strconv"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds MTProto credentials and session location.
type TelegramConfig struct {
	APIID       int    `yaml:"api_id"`
	APIHash     string `yaml:"api_hash"`
	SessionFile string `yaml:"session_file"`
}

// BotConfig holds bot behavior settings.
type BotConfig struct {
	OwnerID     int64  `yaml:"owner_id"`
	UsageLimit  int    `yaml:"usage_limit"`
	DownloadDir string `yaml:"download_dir"`
	DataFile    string `yaml:"data_file"`
	ActionLog   string `yaml:"action_log"`
	Creator     string `yaml:"creator"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Debug bool `yaml:"debug"`
}

// Config mirrors the tgscrap.yaml schema.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Bot      BotConfig      `yaml:"bot"`
	Log      LogConfig      `yaml:"log"`
}

// Load reads an optional YAML file, overlays environment variables and
// defaults, and validates. An empty path skips the file entirely.
func Load(path string) (Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, errors.Wrap(err, "parse config")
		}
	}
	applyEnv(&c)
	applyDefaults(&c)
	if err := validate(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("TG_API_ID"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			c.Telegram.APIID = id
		}
	}
	if v := os.Getenv("TG_API_HASH"); v != "" {
		c.Telegram.APIHash = v
	}
	if v := os.Getenv("TG_SESSION_FILE"); v != "" {
		c.Telegram.SessionFile = v
	}
	if v := os.Getenv("TG_DOWNLOAD_DIR"); v != "" {
		c.Bot.DownloadDir = v
	}
	if v := os.Getenv("TG_DATA_FILE"); v != "" {
		c.Bot.DataFile = v
	}
	if v := os.Getenv("TG_LOG_FILE"); v != "" {
		c.Bot.ActionLog = v
	}
	if v := os.Getenv("BOT_CREATOR"); v != "" {
		c.Bot.Creator = v
	}
	if v := os.Getenv("OWNER_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Bot.OwnerID = id
		}
	}
	if v := os.Getenv("USAGE_LIMIT_NON_ADMIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Bot.UsageLimit = n
		}
	}
}

func applyDefaults(c *Config) {
	if c.Telegram.SessionFile == "" {
		c.Telegram.SessionFile = "tgscrap.session"
	}
	if c.Bot.UsageLimit == 0 {
		c.Bot.UsageLimit = 10
	}
	if c.Bot.DownloadDir == "" {
		c.Bot.DownloadDir = "/tmp/downloads"
	}
	if c.Bot.DataFile == "" {
		c.Bot.DataFile = "data.json"
	}
	if c.Bot.ActionLog == "" {
		c.Bot.ActionLog = "actions.log"
	}
}

func validate(c *Config) error {
	if c.Telegram.APIID == 0 {
		return errors.New("telegram.api_id is required")
	}
	if c.Telegram.APIHash == "" {
		return errors.New("telegram.api_hash is required")
	}
	if c.Bot.UsageLimit < 0 {
		return errors.New("bot.usage_limit must not be negative")
	}
	return nil
}
