package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Discord  DiscordConfig  `mapstructure:"discord"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

type DiscordConfig struct {
	Token              string   `mapstructure:"token"`
	AllowedChannelIDs  []string `mapstructure:"allowed_channel_ids"`
	ThreadNameTemplate string   `mapstructure:"thread_name_template"`
}

type OpenAIConfig struct {
	APIKey             string        `mapstructure:"api_key"`
	Model              string        `mapstructure:"model"`
	AssistantName      string        `mapstructure:"assistant_name"`
	SystemPromptPrefix string        `mapstructure:"system_prompt_prefix"`
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	PollTimeout        time.Duration `mapstructure:"poll_timeout"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	// Values longer than this are never treated as a prompt file path.
	maxPromptPathLength = 1024
)

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

// LoadConfig reads the optional YAML file at path, then applies environment
// overrides and validates the result. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("discord.thread_name_template", "genie-{author}-{id}")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.assistant_name", "GenieBot Assistant")
	v.SetDefault("openai.poll_interval", 500*time.Millisecond)
	v.SetDefault("openai.poll_timeout", time.Duration(0))
	v.SetDefault("storage.driver", StorageFile)
	v.SetDefault("storage.path", ".geniebot.json")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("log.development", false)

	// Enable environment variable support
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Database = dbConfig
	}

	if token := strings.TrimSpace(v.GetString("DISCORD_BOT_TOKEN")); token != "" {
		config.Discord.Token = token
	}
	if raw := v.GetString("DISCORD_ALLOWED_CHANNEL_IDS"); raw != "" {
		config.Discord.AllowedChannelIDs = ParseChannelIDs(raw)
	} else {
		config.Discord.AllowedChannelIDs = ParseChannelIDs(strings.Join(config.Discord.AllowedChannelIDs, ","))
	}
	if tmpl := strings.TrimSpace(v.GetString("THREAD_NAME_TEMPLATE")); tmpl != "" {
		config.Discord.ThreadNameTemplate = tmpl
	}
	if apiKey := strings.TrimSpace(v.GetString("OPENAI_API_KEY")); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}
	if model := strings.TrimSpace(v.GetString("OPENAI_MODEL")); model != "" {
		config.OpenAI.Model = model
	}
	if prefix := v.GetString("SYSTEM_PROMPT_PREFIX"); strings.TrimSpace(prefix) != "" {
		config.OpenAI.SystemPromptPrefix = prefix
	}

	config.OpenAI.SystemPromptPrefix = ResolvePrompt(config.OpenAI.SystemPromptPrefix)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Discord.Token) == "" {
		problems = append(problems, "DISCORD_BOT_TOKEN is required")
	}
	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		problems = append(problems, "OPENAI_API_KEY is required")
	}
	if c.OpenAI.SystemPromptPrefix == "" {
		problems = append(problems, "SYSTEM_PROMPT_PREFIX must be set and non-empty")
	}
	if c.OpenAI.PollInterval <= 0 {
		problems = append(problems, "openai.poll_interval must be positive")
	}
	if c.OpenAI.PollTimeout < 0 {
		problems = append(problems, "openai.poll_timeout must not be negative")
	}
	switch c.Storage.Driver {
	case StorageFile, StoragePostgres, StorageMemory:
	default:
		problems = append(problems, fmt.Sprintf("unknown storage.driver %q", c.Storage.Driver))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ParseChannelIDs splits a comma separated list, keeping digit-only entries.
func ParseChannelIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" && isDigits(part) {
			ids = append(ids, part)
		}
	}
	return ids
}

// ResolvePrompt returns the contents of raw when it names a readable file,
// otherwise raw itself. Multi-line or very long values are always literal.
func ResolvePrompt(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.ContainsAny(raw, "\n\x00") || len(raw) > maxPromptPathLength {
		return raw
	}

	info, err := os.Stat(raw)
	if err != nil || !info.Mode().IsRegular() {
		return raw
	}
	data, err := os.ReadFile(raw)
	if err != nil {
		return raw
	}
	return strings.TrimSpace(string(data))
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
