package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"logoforge/configs"
	"logoforge/internal/application"
	"logoforge/internal/infrastructure/config"
	discordInfra "logoforge/internal/infrastructure/discord"
	"logoforge/internal/infrastructure/gemini"
	"logoforge/internal/infrastructure/imaging"
	"logoforge/internal/infrastructure/logging"
	"logoforge/internal/infrastructure/scheduler"
	discordPres "logoforge/internal/presentation/discord"
	"logoforge/internal/presentation/web"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func main() {
	// 設定を読み込み
	cfg, err := configs.LoadConfig()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	logger := logging.NewLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("LogoForgeを起動中...",
		zap.String("backend", cfg.Gemini.Backend),
		zap.String("model", cfg.Gemini.ImageModelName))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 画像生成クライアントを作成
	client, err := newImageClient(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("画像生成クライアントの作成に失敗", zap.Error(err))
	}

	codec := imaging.NewCodec(cfg.Session.MaxUploadBytes)
	sessions := application.NewSessionManager(application.Dependencies{
		Client:  client,
		Decoder: codec,
		Encoder: codec,
		Logger:  logger.Named("session"),
	}, &application.Config{RequestTimeout: cfg.Session.RequestTimeout})

	sweeper, err := scheduler.NewSweeper(cfg.Session.SweepSchedule, sessions, cfg.Session.IdleTimeout, logger.Named("sweeper"))
	if err != nil {
		logger.Fatal("スケジューラーの作成に失敗", zap.Error(err))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	// Discordは任意
	if cfg.Discord.Enabled() {
		bot, err := startDiscord(cfg, sessions, logger.Named("discord"))
		if err != nil {
			logger.Fatal("Discord Botの起動に失敗", zap.Error(err))
		}
		defer func() {
			if err := bot.Close(); err != nil {
				logger.Warn("Discordセッションのクローズに失敗", zap.Error(err))
			}
		}()
	} else {
		logger.Info("DISCORD_BOT_TOKEN が未設定のため、Discord Botは起動しません")
	}

	server := web.NewServer(sessions, cfg.HTTP, cfg.Session.MaxUploadBytes, logger.Named("http"))
	if err := server.Run(ctx); err != nil {
		logger.Error("HTTPサーバーが異常終了しました", zap.Error(err))
		stop()
	}

	logger.Info("終了シグナルを受信しました。停止中...")
	wg.Wait()
	logger.Info("LogoForgeが正常に停止しました")
}

// newImageClient は、設定されたバックエンドの画像生成クライアントを作成します
func newImageClient(ctx context.Context, cfg *configs.Config, logger *zap.Logger) (application.ImageClient, error) {
	if cfg.Gemini.Backend == config.BackendSDK {
		return gemini.NewSDKClient(ctx, &cfg.Gemini, logger.Named("gemini"))
	}
	return gemini.NewRESTClient(&cfg.Gemini, &http.Client{}, logger.Named("gemini")), nil
}

// startDiscord は、Discordに接続してスラッシュコマンドを登録します
func startDiscord(cfg *configs.Config, sessions *application.SessionManager, logger *zap.Logger) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + cfg.Discord.BotToken)
	if err != nil {
		return nil, err
	}

	user, err := session.User("@me")
	if err != nil {
		return nil, err
	}
	logger.Info("Bot情報", zap.String("username", user.Username), zap.String("id", user.ID))

	fetcher := discordInfra.NewAttachmentFetcher(&http.Client{Timeout: 30 * time.Second}, cfg.Session.MaxUploadBytes, logger)
	handler := discordPres.NewDiscordHandler(session, sessions, fetcher, logger)
	handler.SetupHandlers()

	if err := session.Open(); err != nil {
		return nil, err
	}
	if err := handler.RegisterCommands(user.ID); err != nil {
		session.Close()
		return nil, err
	}

	logger.Info("Discordに接続しました。Botが準備完了しました！")
	return session, nil
}
