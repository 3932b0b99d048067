package config

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shouni/go-utils/envutil"

	"github.com/shouni/itihas-kahani/pkg/controller"
	"github.com/shouni/itihas-kahani/pkg/domain"
	"github.com/shouni/itihas-kahani/pkg/generator"
)

// デフォルト値の定義なのだ
const (
	DefaultServerAddr         = ":8080"
	DefaultSessionTTL         = 30 * time.Minute
	DefaultGenerationInterval = 2 * time.Second
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
)

// Config はアプリケーション全体の設定を保持する構造体なのだ。
type Config struct {
	// GeminiAPIKey はここでは検証しない。不正なキーは生成時の GenerationError になる。
	GeminiAPIKey string
	GeminiModel  string

	Style    domain.Style
	Length   domain.Length
	Language domain.Language

	ServerAddr         string
	SessionTTL         time.Duration
	GenerationInterval time.Duration // 0 以下で無制限
	CompressImage      bool

	LogLevel  string
	LogFormat string
}

// LoadConfig は .env と環境変数から設定を読み込むのだ！
// envFiles を省略するとカレントディレクトリの .env を読むのだ。
func LoadConfig(envFiles ...string) *Config {
	if err := godotenv.Load(envFiles...); err != nil {
		slog.Debug(".env が見つからないため環境変数のみを使用します", "files", envFiles)
	}

	return &Config{
		GeminiAPIKey:       envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:        envutil.GetEnv("GEMINI_MODEL", generator.DefaultModel),
		Style:              domain.ParseStyle(envutil.GetEnv("STORY_STYLE", string(domain.StyleEducational))),
		Length:             domain.ParseLength(envutil.GetEnv("STORY_LENGTH", string(domain.LengthMedium))),
		Language:           domain.ParseLanguage(envutil.GetEnv("STORY_LANGUAGE", string(domain.LanguageHindi))),
		ServerAddr:         envutil.GetEnv("SERVER_ADDR", DefaultServerAddr),
		SessionTTL:         parseDuration("SESSION_TTL", DefaultSessionTTL),
		GenerationInterval: parseDuration("GENERATION_INTERVAL", DefaultGenerationInterval),
		CompressImage:      parseBool("IMAGE_COMPRESSION", false),
		LogLevel:           envutil.GetEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:          envutil.GetEnv("LOG_FORMAT", DefaultLogFormat),
	}
}

// StoryOptions は新規セッションに使う生成パラメータを返すのだ。
func (c *Config) StoryOptions() controller.StoryOptions {
	return controller.StoryOptions{
		Style:    c.Style,
		Length:   c.Length,
		Language: c.Language,
	}
}

// SlogLevel は LogLevel を slog.Level に変換するのだ。未知の値は Info なのだ。
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseDuration(key string, def time.Duration) time.Duration {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("不正な期間指定のため既定値を使用します", "key", key, "value", raw, "default", def)
		return def
	}
	return d
}

func parseBool(key string, def bool) bool {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("不正な真偽値のため既定値を使用します", "key", key, "value", raw, "default", def)
		return def
	}
	return b
}
