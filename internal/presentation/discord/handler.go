package discord

import (
	"context"
	"fmt"

	"logoforge/internal/application"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// DiscordMessageLimit は、Discordのメッセージ長制限です
const DiscordMessageLimit = 2000

// AttachmentFetcher は、コマンドに添付された画像を取得します
type AttachmentFetcher interface {
	Fetch(ctx context.Context, attachment *discordgo.MessageAttachment) (application.UploadFile, error)
}

// DiscordHandler は、ロゴ編集用のスラッシュコマンドを処理するハンドラです
// セッションはチャンネルとユーザーの組ごとに作成されます
type DiscordHandler struct {
	session  *discordgo.Session
	sessions *application.SessionManager
	fetcher  AttachmentFetcher
	logger   *zap.Logger
}

// NewDiscordHandler は新しいDiscordHandlerインスタンスを作成します
func NewDiscordHandler(
	session *discordgo.Session,
	sessions *application.SessionManager,
	fetcher AttachmentFetcher,
	logger *zap.Logger,
) *DiscordHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DiscordHandler{
		session:  session,
		sessions: sessions,
		fetcher:  fetcher,
		logger:   logger,
	}
}

// SetupHandlers は、Discordのイベントハンドラを設定します
func (h *DiscordHandler) SetupHandlers() {
	h.session.AddHandler(h.handleInteractionCreate)
}

// RegisterCommands は、スラッシュコマンドをグローバルコマンドとして登録します
func (h *DiscordHandler) RegisterCommands(appID string) error {
	registered, err := h.session.ApplicationCommandBulkOverwrite(appID, "", Commands())
	if err != nil {
		return fmt.Errorf("スラッシュコマンドの登録に失敗: %w", err)
	}

	for _, command := range registered {
		h.logger.Info("スラッシュコマンドを登録しました", zap.String("command", command.Name))
	}
	return nil
}

// handleInteractionCreate は、インタラクション作成イベントを処理します
func (h *DiscordHandler) handleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	key := sessionKey(i)
	logger := h.logger.With(zap.String("command", data.Name), zap.String("session_id", key))

	// 画像生成は3秒の応答期限を超えるため、先に遅延応答を返す
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		logger.Warn("インタラクションへの応答に失敗", zap.Error(err))
		return
	}

	result := h.execute(context.Background(), key, data)

	_, err = s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: truncateMessage(result.content),
		Files:   result.files,
	})
	if err != nil {
		logger.Warn("フォローアップメッセージの送信に失敗", zap.Error(err))
	}
}

// sessionKey は、インタラクションからセッションキー <チャンネルID>:<ユーザーID> を作成します
func sessionKey(i *discordgo.InteractionCreate) string {
	userID := ""
	switch {
	case i.Member != nil && i.Member.User != nil:
		userID = i.Member.User.ID
	case i.User != nil:
		userID = i.User.ID
	}
	return i.ChannelID + ":" + userID
}
