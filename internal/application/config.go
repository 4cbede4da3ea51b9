package application

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config は、セッション処理の設定です
type Config struct {
	RequestTimeout time.Duration
}

// DefaultConfig は、デフォルトの設定を返します
func DefaultConfig() *Config {
	return &Config{
		RequestTimeout: 90 * time.Second,
	}
}

// Dependencies は、セッションが利用する外部コンポーネントをまとめたものです
type Dependencies struct {
	Client  ImageClient
	Decoder ImageDecoder
	Encoder ImageEncoder
	Logger  *zap.Logger

	// Now と NewID はテストで差し替えられます
	Now   func() time.Time
	NewID func() string
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	return d
}
