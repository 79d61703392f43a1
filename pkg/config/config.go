package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Auto-close duration bounds in hours.
const (
	MinAutoCloseHours = 1
	MaxAutoCloseHours = 168
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Bot       BotConfig
	Dashboard DashboardConfig
}

type DatabaseConfig struct {
	Path         string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// BotConfig carries the moderation parameters. It is re-read per operation
// through Source so external edits take effect on the next event.
type BotConfig struct {
	TrackedForums       []string
	TosTimeout          time.Duration
	TosMessage          string
	TosDeclineMessage   string
	AutoCloseEnabled    bool
	AutoCloseHours      int
	SweepInterval       time.Duration
	AdminUserIDs        []string
	AdminRoleIDs        []string
	LogChannelID        string
	BannedTitlePatterns []string
	TonePoolDir         string
}

// DashboardConfig governs the read-only dashboard API exposure and cache tuning.
type DashboardConfig struct {
	Enabled  bool
	CacheTTL time.Duration
}

// Source rebuilds runtime bot settings from viper on every call.
type Source struct {
	v *viper.Viper
}

// Bot returns a fresh snapshot of the bot settings.
func (s *Source) Bot() BotConfig {
	return botFromViper(s.v)
}

func Load() (*Config, *Source, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Viper reports a missing explicit config file as a bare path error,
		// not ConfigFileNotFoundError. Defaults cover everything either way.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Path:         v.GetString("DB_PATH"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Bot = botFromViper(v)

	cfg.Dashboard = DashboardConfig{
		Enabled:  v.GetBool("ENABLE_DASHBOARD"),
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	return cfg, &Source{v: v}, nil
}

func botFromViper(v *viper.Viper) BotConfig {
	hours := v.GetInt("AUTO_CLOSE_HOURS")
	if hours < MinAutoCloseHours {
		hours = MinAutoCloseHours
	}
	if hours > MaxAutoCloseHours {
		hours = MaxAutoCloseHours
	}

	return BotConfig{
		TrackedForums:       splitAndTrim(v.GetString("TRACKED_FORUMS")),
		TosTimeout:          parseDuration(v.GetString("TOS_TIMEOUT"), 30*time.Second),
		TosMessage:          v.GetString("TOS_MESSAGE"),
		TosDeclineMessage:   v.GetString("TOS_DECLINE_MESSAGE"),
		AutoCloseEnabled:    v.GetBool("AUTO_CLOSE_ENABLED"),
		AutoCloseHours:      hours,
		SweepInterval:       parseDuration(v.GetString("SWEEP_INTERVAL"), 10*time.Minute),
		AdminUserIDs:        splitAndTrim(v.GetString("ADMIN_USER_IDS")),
		AdminRoleIDs:        splitAndTrim(v.GetString("ADMIN_ROLE_IDS")),
		LogChannelID:        v.GetString("LOG_CHANNEL_ID"),
		BannedTitlePatterns: splitAndTrim(v.GetString("BANNED_TITLE_PATTERNS")),
		TonePoolDir:         v.GetString("TONE_POOL_DIR"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_PATH", "./data/tradegate.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 1)
	v.SetDefault("DB_MAX_IDLE_CONNS", 1)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TRACKED_FORUMS", "")
	v.SetDefault("TOS_TIMEOUT", "30s")
	v.SetDefault("TOS_MESSAGE", "Welcome! Accept the marketplace terms within {timeout} or this post will be closed.")
	v.SetDefault("TOS_DECLINE_MESSAGE", "Terms were declined. This post has been closed.")
	v.SetDefault("AUTO_CLOSE_ENABLED", true)
	v.SetDefault("AUTO_CLOSE_HOURS", 24)
	v.SetDefault("SWEEP_INTERVAL", "10m")
	v.SetDefault("ADMIN_USER_IDS", "")
	v.SetDefault("ADMIN_ROLE_IDS", "")
	v.SetDefault("LOG_CHANNEL_ID", "")
	v.SetDefault("BANNED_TITLE_PATTERNS", "scam,fraud,illegal,stolen")
	v.SetDefault("TONE_POOL_DIR", "./assets/tones")

	v.SetDefault("ENABLE_DASHBOARD", true)
	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
