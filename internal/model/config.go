package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// MailConfig holds the IMAP mailbox settings and the sender being watched.
type MailConfig struct {
	Server   string `mapstructure:"server" yaml:"server"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Login    string `mapstructure:"login" yaml:"login"`
	Password string `mapstructure:"password" yaml:"-"`

	// Sender is the From address whose messages are inspected.
	Sender string `mapstructure:"sender" yaml:"sender"`

	Mailbox string `mapstructure:"mailbox" yaml:"mailbox"`

	// TLS selects implicit TLS (port 993). When false, STARTTLS is used.
	TLS bool `mapstructure:"tls" yaml:"tls"`

	TimeoutSec    int  `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	RetryCount    int  `mapstructure:"retry_count" yaml:"retry_count"`
	RetryDelaySec int  `mapstructure:"retry_delay_sec" yaml:"retry_delay_sec"`
	MarkSeen      bool `mapstructure:"mark_seen" yaml:"mark_seen"`
}

// TelegramConfig holds the chat channel the alerts are delivered to.
type TelegramConfig struct {
	Token      string `mapstructure:"token" yaml:"-"`
	ChatID     string `mapstructure:"chat_id" yaml:"chat_id"`
	ProxyURL   string `mapstructure:"proxy_url" yaml:"proxy_url"`
	APIURL     string `mapstructure:"api_url" yaml:"api_url"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// BotConfig holds the cycle controller timing and error policy.
type BotConfig struct {
	CheckInterval int `mapstructure:"check_interval" yaml:"check_interval"`
	MaxErrors     int `mapstructure:"max_errors" yaml:"max_errors"`
	ErrorCooldown int `mapstructure:"error_cooldown" yaml:"error_cooldown"`
}

// StateConfig selects where the checkpoint and the sent-message ledger live.
type StateConfig struct {
	// Backend is "json" (two flat files) or "sqlite".
	Backend    string `mapstructure:"backend" yaml:"backend"`
	File       string `mapstructure:"file" yaml:"file"`
	LedgerFile string `mapstructure:"ledger_file" yaml:"ledger_file"`
	DBPath     string `mapstructure:"db_path" yaml:"db_path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Dir    string `mapstructure:"dir" yaml:"dir"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Mail     MailConfig     `mapstructure:"mail" yaml:"mail"`
	Telegram TelegramConfig `mapstructure:"telegram" yaml:"telegram"`
	Bot      BotConfig      `mapstructure:"bot" yaml:"bot"`
	State    StateConfig    `mapstructure:"state" yaml:"state"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

const (
	StateBackendJSON   = "json"
	StateBackendSQLite = "sqlite"
)

// envBindings maps configuration keys to the environment variables the
// service has always been configured with.
var envBindings = map[string]string{
	"mail.server":          "EMAIL_SERVER",
	"mail.port":            "EMAIL_PORT",
	"mail.login":           "EMAIL_LOGIN",
	"mail.password":        "EMAIL_PASSWORD",
	"mail.sender":          "EMAIL_SENDER",
	"mail.mailbox":         "EMAIL_MAILBOX",
	"mail.tls":             "EMAIL_TLS",
	"mail.timeout_sec":     "EMAIL_TIMEOUT",
	"mail.retry_count":     "EMAIL_RETRY_COUNT",
	"mail.retry_delay_sec": "EMAIL_RETRY_DELAY",
	"mail.mark_seen":       "EMAIL_MARK_SEEN",
	"telegram.token":       "TELEGRAM_BOT_TOKEN",
	"telegram.chat_id":     "TELEGRAM_CHAT_ID",
	"telegram.proxy_url":   "TELEGRAM_PROXY_URL",
	"telegram.api_url":     "TELEGRAM_API_URL",
	"telegram.timeout_sec": "TELEGRAM_TIMEOUT",
	"bot.check_interval":   "CHECK_INTERVAL",
	"bot.max_errors":       "MAX_ERRORS",
	"bot.error_cooldown":   "ERROR_COOLDOWN",
	"state.backend":        "STATE_BACKEND",
	"state.file":           "STATE_FILE",
	"state.ledger_file":    "SENT_MESSAGES_FILE",
	"state.db_path":        "STATE_DB",
	"log.level":            "LOG_LEVEL",
	"log.format":           "LOG_FORMAT",
	"log.dir":              "LOG_DIR",
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/maintwatch/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "maintwatch", "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mail.server", "imap.yandex.ru")
	v.SetDefault("mail.port", 993)
	v.SetDefault("mail.mailbox", "INBOX")
	v.SetDefault("mail.tls", true)
	v.SetDefault("mail.timeout_sec", 30)
	v.SetDefault("mail.retry_count", 3)
	v.SetDefault("mail.retry_delay_sec", 5)
	v.SetDefault("mail.mark_seen", false)
	v.SetDefault("telegram.api_url", "https://api.telegram.org")
	v.SetDefault("telegram.timeout_sec", 10)
	v.SetDefault("bot.check_interval", 1800)
	v.SetDefault("bot.max_errors", 5)
	v.SetDefault("bot.error_cooldown", 300)
	v.SetDefault("state.backend", StateBackendJSON)
	v.SetDefault("state.file", "bot_state.json")
	v.SetDefault("state.ledger_file", "sent_messages.json")
	v.SetDefault("state.db_path", "maintwatch.db")
	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.dir", "logs")
}

// LoadConfig reads configuration from the given YAML file path using Viper
// and overlays the environment. A missing file is not an error; the
// environment alone is enough to run the service.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s to %s: %w", key, env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			_, missing := err.(*os.PathError)
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				missing = true
			}
			if !missing {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.State.Backend = strings.ToLower(strings.TrimSpace(cfg.State.Backend))
	cfg.Log.Level = strings.ToUpper(strings.TrimSpace(cfg.Log.Level))

	return cfg, nil
}

// FillSecrets resolves the mail password and the bot token through lookup
// (normally the system keyring) when the environment did not supply them.
// Lookup failures leave the field empty; Validate reports it.
func (c *AppConfig) FillSecrets(lookup func(key string) (string, error)) {
	if c.Mail.Password == "" {
		if val, err := lookup(SecretMailPassword); err == nil {
			c.Mail.Password = val
		}
	}
	if c.Telegram.Token == "" {
		if val, err := lookup(SecretTelegramToken); err == nil {
			c.Telegram.Token = val
		}
	}
}

// Keyring keys for the secrets FillSecrets resolves.
const (
	SecretMailPassword  = "email-password"
	SecretTelegramToken = "telegram-token"
)

// Validate reports every missing required setting at once.
func (c *AppConfig) Validate() error {
	var missing []string
	required := []struct {
		env string
		val string
	}{
		{"EMAIL_LOGIN", c.Mail.Login},
		{"EMAIL_PASSWORD", c.Mail.Password},
		{"EMAIL_SENDER", c.Mail.Sender},
		{"TELEGRAM_BOT_TOKEN", c.Telegram.Token},
		{"TELEGRAM_CHAT_ID", c.Telegram.ChatID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			missing = append(missing, r.env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	switch c.State.Backend {
	case StateBackendJSON, StateBackendSQLite:
	default:
		return fmt.Errorf("unknown state backend %q", c.State.Backend)
	}

	if c.Bot.CheckInterval <= 0 {
		return fmt.Errorf("check interval must be positive, got %d", c.Bot.CheckInterval)
	}

	return nil
}

// SaveConfig writes the non-secret part of cfg to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("mail.server", cfg.Mail.Server)
	v.Set("mail.port", cfg.Mail.Port)
	v.Set("mail.login", cfg.Mail.Login)
	v.Set("mail.sender", cfg.Mail.Sender)
	v.Set("mail.mailbox", cfg.Mail.Mailbox)
	v.Set("mail.tls", cfg.Mail.TLS)
	v.Set("telegram.chat_id", cfg.Telegram.ChatID)
	v.Set("telegram.proxy_url", cfg.Telegram.ProxyURL)
	v.Set("bot", cfg.Bot)
	v.Set("state", cfg.State)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
