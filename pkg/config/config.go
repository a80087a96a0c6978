package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Session store backends.
const (
	SessionStoreFile  = "file"
	SessionStoreRedis = "redis"
)

type Config struct {
	Env string

	API     APIConfig
	Session SessionConfig
	Redis   RedisConfig
	Log     LogConfig
	Lists   ListConfig
	Chat    ChatConfig
	Export  ExportConfig
	Mock    MockConfig
	CORS    CORSConfig
}

// APIConfig points the client at a backend deployment.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SessionConfig selects where the durable session lives.
type SessionConfig struct {
	Store         string
	Dir           string
	KeyPrefix     string
	WatchInterval time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

// ListConfig tunes list/filter controllers.
type ListConfig struct {
	SearchDebounce time.Duration
}

// ChatConfig tunes the AI assistant client.
type ChatConfig struct {
	HistoryWindow  int
	IncludeContext bool
}

// ExportConfig controls where roster exports are written.
type ExportConfig struct {
	Dir string
}

// MockConfig configures the development backend.
type MockConfig struct {
	Port      int
	JWTSecret string
	TokenTTL  time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg := &Config{}
	cfg.Env = v.GetString("ENV")

	cfg.API = APIConfig{
		BaseURL: strings.TrimRight(v.GetString("API_BASE_URL"), "/"),
		Timeout: parseDuration(v.GetString("HTTP_TIMEOUT"), 20*time.Second),
	}

	cfg.Session = SessionConfig{
		Store:         strings.ToLower(v.GetString("SESSION_STORE")),
		Dir:           v.GetString("SESSION_DIR"),
		KeyPrefix:     v.GetString("SESSION_KEY_PREFIX"),
		WatchInterval: parseDuration(v.GetString("SESSION_WATCH_INTERVAL"), 2*time.Second),
	}
	if cfg.Session.Dir == "" {
		cfg.Session.Dir = defaultSessionDir()
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Lists = ListConfig{
		SearchDebounce: parseDuration(v.GetString("SEARCH_DEBOUNCE"), 300*time.Millisecond),
	}

	historyWindow := v.GetInt("CHAT_HISTORY_WINDOW")
	if historyWindow <= 0 {
		historyWindow = 10
	}
	cfg.Chat = ChatConfig{
		HistoryWindow:  historyWindow,
		IncludeContext: v.GetBool("CHAT_INCLUDE_CONTEXT"),
	}

	cfg.Export = ExportConfig{Dir: v.GetString("EXPORT_DIR")}

	cfg.Mock = MockConfig{
		Port:      v.GetInt("MOCK_PORT"),
		JWTSecret: v.GetString("MOCK_JWT_SECRET"),
		TokenTTL:  parseDuration(v.GetString("MOCK_TOKEN_TTL"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("API_BASE_URL", "http://localhost:8000/api")
	v.SetDefault("HTTP_TIMEOUT", "20s")

	v.SetDefault("SESSION_STORE", SessionStoreFile)
	v.SetDefault("SESSION_DIR", "")
	v.SetDefault("SESSION_KEY_PREFIX", "smartsql:session")
	v.SetDefault("SESSION_WATCH_INTERVAL", "2s")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("SEARCH_DEBOUNCE", "300ms")
	v.SetDefault("CHAT_HISTORY_WINDOW", 10)
	v.SetDefault("CHAT_INCLUDE_CONTEXT", true)

	v.SetDefault("EXPORT_DIR", "./exports")

	v.SetDefault("MOCK_PORT", 8000)
	v.SetDefault("MOCK_JWT_SECRET", "dev_secret")
	v.SetDefault("MOCK_TOKEN_TTL", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
}

func defaultSessionDir() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ".smartsql"
	}
	return filepath.Join(dir, "smartsql")
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
