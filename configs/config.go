package configs

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"logoforge/internal/infrastructure/config"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config は、アプリケーション全体の設定を定義します
type Config struct {
	Gemini  config.GeminiConfig
	Session config.SessionConfig
	HTTP    config.HTTPConfig
	Discord config.DiscordConfig
	Log     config.LogConfig
}

// LoadConfig は、環境変数から設定を読み込みます
func LoadConfig() (*Config, error) {
	// .envファイルを読み込み（ファイルが存在しない場合は無視）
	if err := godotenv.Load(); err != nil {
		fmt.Printf("警告: .envファイルの読み込みに失敗しました: %v\n", err)
	}

	defaults := config.DefaultGeminiConfig()
	cfg := &Config{
		Gemini: config.GeminiConfig{
			APIKey:         getEnvOrDefault("GEMINI_API_KEY", ""),
			BaseURL:        getEnvOrDefault("GEMINI_BASE_URL", defaults.BaseURL),
			ImageModelName: getEnvOrDefault("GEMINI_IMAGE_MODEL", defaults.ImageModelName),
			Backend:        getEnvOrDefault("GEMINI_BACKEND", defaults.Backend),
		},
		Session: config.SessionConfig{
			RequestTimeout: getEnvAsDurationOrDefault("SESSION_REQUEST_TIMEOUT", 90*time.Second),
			IdleTimeout:    getEnvAsDurationOrDefault("SESSION_IDLE_TIMEOUT", 2*time.Hour),
			SweepSchedule:  getEnvOrDefault("SESSION_SWEEP_SCHEDULE", "@every 10m"),
			MaxUploadBytes: int64(getEnvAsIntOrDefault("UPLOAD_MAX_BYTES", 10<<20)),
		},
		HTTP: config.HTTPConfig{
			Addr:          getEnvOrDefault("HTTP_ADDR", ":8080"),
			AllowedOrigin: getEnvOrDefault("HTTP_ALLOWED_ORIGIN", "*"),
		},
		Discord: config.DiscordConfig{
			BotToken: getEnvOrDefault("DISCORD_BOT_TOKEN", ""),
		},
		Log: config.LogConfig{
			Development: getEnvAsBoolOrDefault("LOG_DEVELOPMENT", false),
			FilePath:    getEnvOrDefault("LOG_FILE_PATH", ""),
			MaxSizeMB:   getEnvAsIntOrDefault("LOG_MAX_SIZE_MB", 100),
			MaxBackups:  getEnvAsIntOrDefault("LOG_MAX_BACKUPS", 5),
			MaxAgeDays:  getEnvAsIntOrDefault("LOG_MAX_AGE_DAYS", 30),
		},
	}

	// 必須設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate は、設定の妥当性を検証します
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY が設定されていません")
	}

	if c.Gemini.Backend != config.BackendREST && c.Gemini.Backend != config.BackendSDK {
		return fmt.Errorf("GEMINI_BACKEND は %q または %q である必要があります", config.BackendREST, config.BackendSDK)
	}

	if c.Gemini.ImageModelName == "" {
		return fmt.Errorf("GEMINI_IMAGE_MODEL が設定されていません")
	}

	if c.Session.RequestTimeout <= 0 {
		return fmt.Errorf("SESSION_REQUEST_TIMEOUT は正の値である必要があります")
	}

	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT は正の値である必要があります")
	}

	if _, err := cron.ParseStandard(c.Session.SweepSchedule); err != nil {
		return fmt.Errorf("SESSION_SWEEP_SCHEDULE が不正です: %w", err)
	}

	if c.Session.MaxUploadBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES は正の整数である必要があります")
	}

	if c.HTTP.Addr == "" {
		return fmt.Errorf("HTTP_ADDR が設定されていません")
	}

	return nil
}

// getEnvOrDefault は、環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は、環境変数を整数として取得し、存在しない場合はデフォルト値を返します
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDurationOrDefault は、環境変数を時間として取得し、存在しない場合はデフォルト値を返します
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsBoolOrDefault は、環境変数を真偽値として取得し、存在しない場合はデフォルト値を返します
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
