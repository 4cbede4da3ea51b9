package discord

import (
	"errors"
	"fmt"
	"strings"

	"logoforge/internal/application"
	"logoforge/internal/domain"
)

const historyPromptLimit = 80

// formatError は、エラーの種類に応じたメッセージを作成します
func formatError(err error) string {
	if err == nil {
		return ""
	}
	message := application.ErrorMessage(err)

	switch {
	case errors.Is(err, domain.ErrBusy):
		return "⏳ 別の処理が進行中です。完了してから再度お試しください。"
	case errors.Is(err, domain.ErrRequestTimeout):
		return "⏰ **タイムアウトしました**\n画像生成に時間がかかりすぎています。しばらく待ってから再度お試しください。"
	case errors.Is(err, domain.ErrNoImageProduced):
		return "🖼️ **画像が返されませんでした**\nプロンプトを変えて再度お試しください。"
	case errors.Is(err, domain.ErrRemoteRequestFailed):
		return fmt.Sprintf("❌ **画像生成サービスでエラーが発生しました**\n%s", message)
	case errors.Is(err, domain.ErrNothingToRevert),
		errors.Is(err, domain.ErrNoCurrentImage),
		errors.Is(err, domain.ErrHistoryEntryNotFound):
		return "ℹ️ " + message
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidImageFormat):
		return "⚠️ " + message
	default:
		return fmt.Sprintf("❌ エラーが発生しました: %s", message)
	}
}

// formatState は、セッションの要約を1行で返します
func formatState(state domain.SessionState) string {
	return fmt.Sprintf("モード: `%s` / 履歴: %d件", state.Mode, len(state.History))
}

// formatHistory は、履歴を新しい順に番号付きで一覧にします
func formatHistory(entries []domain.HistoryEntry) string {
	if len(entries) == 0 {
		return "📜 履歴はまだありません。"
	}

	var b strings.Builder
	b.WriteString("📜 **編集履歴** (新しい順)\n")
	for n, entry := range entries {
		line := fmt.Sprintf("`%d.` %s  %s\n",
			n+1,
			entry.Timestamp.Format("2006年1月2日 15:04"),
			truncateRunes(entry.Prompt, historyPromptLimit))

		// 収まらない分は省略する
		if b.Len()+len(line) > DiscordMessageLimit-40 {
			fmt.Fprintf(&b, "…ほか %d 件", len(entries)-n)
			break
		}
		b.WriteString(line)
	}
	b.WriteString("`/forge-select number:<番号>` で画像を選択できます。")
	return truncateMessage(b.String())
}

func modeLabel(mode domain.Mode) string {
	if mode == domain.ModeGenerate {
		return "生成"
	}
	return "編集"
}

// truncateMessage は、Discordのメッセージ長制限に収まるように切り詰めます
func truncateMessage(content string) string {
	runes := []rune(content)
	if len(runes) <= DiscordMessageLimit {
		return content
	}
	return string(runes[:DiscordMessageLimit-1]) + "…"
}

func truncateRunes(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
