package config

import "time"

// Gemini のバックエンド種別
const (
	BackendREST = "rest"
	BackendSDK  = "sdk"
)

// GeminiConfig は、Gemini API関連の設定を定義します
type GeminiConfig struct {
	APIKey         string
	BaseURL        string
	ImageModelName string // 画像生成用モデル名
	Backend        string // "rest" または "sdk"
}

// DefaultGeminiConfig は、デフォルトのGemini設定を返します
func DefaultGeminiConfig() *GeminiConfig {
	return &GeminiConfig{
		BaseURL:        "https://generativelanguage.googleapis.com",
		ImageModelName: "gemini-2.5-flash-image",
		Backend:        BackendREST,
	}
}

// SessionConfig は、編集セッション関連の設定を定義します
type SessionConfig struct {
	RequestTimeout time.Duration
	IdleTimeout    time.Duration // これより長く操作のないセッションは削除
	SweepSchedule  string        // cron形式
	MaxUploadBytes int64
}

// HTTPConfig は、HTTP API関連の設定を定義します
type HTTPConfig struct {
	Addr          string
	AllowedOrigin string
}

// DiscordConfig は、Discord関連の設定を定義します
// BotToken が空の場合、Discord連携は無効になります
type DiscordConfig struct {
	BotToken string
}

// Enabled は、Discord連携が有効かどうかを返します
func (c DiscordConfig) Enabled() bool {
	return c.BotToken != ""
}

// LogConfig は、ログ出力の設定を定義します
type LogConfig struct {
	Development bool
	FilePath    string // 空の場合はファイルに出力しない
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
}
