package discord

import (
	"bytes"
	"context"
	"fmt"

	"logoforge/internal/application"
	"logoforge/internal/domain"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// スラッシュコマンド名
const (
	CommandMode    = "forge-mode"
	CommandUpload  = "forge-upload"
	CommandSubmit  = "forge-submit"
	CommandPreset  = "forge-preset"
	CommandRevert  = "forge-revert"
	CommandHistory = "forge-history"
	CommandSelect  = "forge-select"
	CommandExport  = "forge-export"
)

// reply は、フォローアップとして送信する内容です
type reply struct {
	content string
	files   []*discordgo.File
}

// Commands は、登録するスラッシュコマンドの定義を返します
func Commands() []*discordgo.ApplicationCommand {
	minIndex := 1.0

	return []*discordgo.ApplicationCommand{
		{
			Name:        CommandMode,
			Description: "生成モードと編集モードを切り替えます",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "mode",
					Description: "使用するモード",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "新規生成", Value: domain.ModeGenerate.String()},
						{Name: "編集", Value: domain.ModeEdit.String()},
					},
				},
			},
		},
		{
			Name:        CommandUpload,
			Description: "編集する画像をアップロードします",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionAttachment,
					Name:        "image",
					Description: "PNG / JPEG / WebP などの画像",
					Required:    true,
				},
			},
		},
		{
			Name:        CommandSubmit,
			Description: "プロンプトで画像を生成または編集します",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "prompt",
					Description: "省略すると保存中のプロンプトを使います",
				},
			},
		},
		{
			Name:        CommandPreset,
			Description: "ロゴ用のプリセットプロンプトを読み込みます",
		},
		{
			Name:        CommandRevert,
			Description: "現在の画像を元画像に戻します",
		},
		{
			Name:        CommandHistory,
			Description: "編集履歴を表示します",
		},
		{
			Name:        CommandSelect,
			Description: "履歴の画像を現在の画像にします",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "number",
					Description: "/forge-history に表示される番号",
					Required:    true,
					MinValue:    &minIndex,
				},
			},
		},
		{
			Name:        CommandExport,
			Description: "現在の画像をPNGで書き出します",
		},
	}
}

// execute は、コマンドをセッションに適用し、返信内容を作成します
func (h *DiscordHandler) execute(ctx context.Context, key string, data discordgo.ApplicationCommandInteractionData) reply {
	session := h.sessions.GetOrCreate(key)
	options := optionMap(data.Options)

	switch data.Name {
	case CommandMode:
		state, err := session.SetMode(domain.Mode(stringOption(options, "mode")))
		if err != nil {
			return reply{content: formatError(err)}
		}
		return reply{content: fmt.Sprintf("✅ モードを **%s** に切り替えました。", state.Mode)}

	case CommandUpload:
		attachment, err := attachmentOption(data, options, "image")
		if err != nil {
			return reply{content: formatError(err)}
		}
		file, err := h.fetcher.Fetch(ctx, attachment)
		if err != nil {
			h.logger.Warn("添付ファイルの取得に失敗", zap.String("session_id", key), zap.Error(err))
			return reply{content: formatError(err)}
		}
		state, err := session.Upload(ctx, file)
		if err != nil {
			return reply{content: formatError(err)}
		}
		return h.withImage(session, "📥 画像を読み込みました。`/forge-submit` で編集内容を指示してください。\n"+formatState(state))

	case CommandSubmit:
		prompt := stringOption(options, "prompt")
		if prompt == "" {
			prompt = session.Snapshot().Prompt
		}
		state, err := session.Submit(ctx, prompt)
		if err != nil {
			return reply{content: formatError(err)}
		}
		return h.withImage(session, fmt.Sprintf("🎨 **%s** が完了しました。\n%s", modeLabel(state.Mode), formatState(state)))

	case CommandPreset:
		state, err := session.LoadPreset()
		if err != nil {
			return reply{content: formatError(err)}
		}
		return reply{content: fmt.Sprintf("📝 プリセットを読み込み、生成モードに切り替えました。`/forge-submit` をプロンプトなしで実行すると使用されます。\n```\n%s\n```", state.Prompt)}

	case CommandRevert:
		if _, err := session.Revert(); err != nil {
			return reply{content: formatError(err)}
		}
		return h.withImage(session, "↩️ 元の画像に戻しました。")

	case CommandHistory:
		return reply{content: formatHistory(session.Snapshot().History)}

	case CommandSelect:
		index := intOption(options, "number")
		history := session.Snapshot().History
		if index < 1 || int(index) > len(history) {
			return reply{content: formatError(fmt.Errorf("%w: %d 番", domain.ErrHistoryEntryNotFound, index))}
		}
		if _, err := session.SelectHistoryEntry(history[index-1].ID); err != nil {
			return reply{content: formatError(err)}
		}
		return h.withImage(session, fmt.Sprintf("🕘 履歴 %d 番の画像を現在の画像にしました。", index))

	case CommandExport:
		artifact, err := session.Export()
		if err != nil {
			return reply{content: formatError(err)}
		}
		return reply{content: "💾 現在の画像を書き出しました。", files: []*discordgo.File{artifactFile(artifact)}}

	default:
		h.logger.Warn("未知のスラッシュコマンド", zap.String("command", data.Name))
		return reply{content: "❌ 未知のコマンドです。"}
	}
}

// withImage は、現在の画像をPNGとして添付した返信を作成します
func (h *DiscordHandler) withImage(session *application.Session, content string) reply {
	artifact, err := session.Export()
	if err != nil {
		h.logger.Warn("画像の書き出しに失敗", zap.String("session_id", session.ID()), zap.Error(err))
		return reply{content: content}
	}
	return reply{content: content, files: []*discordgo.File{artifactFile(artifact)}}
}

func artifactFile(artifact *application.ExportArtifact) *discordgo.File {
	return &discordgo.File{
		Name:        artifact.Filename,
		ContentType: artifact.ContentType,
		Reader:      bytes.NewReader(artifact.Data),
	}
}

func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

func stringOption(options map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	opt, ok := options[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionString {
		return ""
	}
	return opt.StringValue()
}

func intOption(options map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) int64 {
	opt, ok := options[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionInteger {
		return 0
	}
	return opt.IntValue()
}

// attachmentOption は、オプションの添付ファイルIDを解決済みデータから引きます
func attachmentOption(
	data discordgo.ApplicationCommandInteractionData,
	options map[string]*discordgo.ApplicationCommandInteractionDataOption,
	name string,
) (*discordgo.MessageAttachment, error) {
	opt, ok := options[name]
	if !ok {
		return nil, fmt.Errorf("%w: 画像が添付されていません", domain.ErrValidation)
	}
	id, _ := opt.Value.(string)
	if data.Resolved == nil || data.Resolved.Attachments[id] == nil {
		return nil, fmt.Errorf("%w: 添付ファイル %s が見つかりません", domain.ErrValidation, id)
	}
	return data.Resolved.Attachments[id], nil
}
