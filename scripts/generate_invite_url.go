package main

import (
	"fmt"
	"log"
	"os"

	discordPres "logoforge/internal/presentation/discord"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
)

// Botに必要な権限
var requiredPermissions = []struct {
	name  string
	value int64
}{
	{"View Channels", discordgo.PermissionViewChannel},
	{"Send Messages", discordgo.PermissionSendMessages},
	{"Attach Files", discordgo.PermissionAttachFiles},
	{"Use Application Commands", discordgo.PermissionUseSlashCommands},
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("警告: .envファイルの読み込みに失敗しました: %v", err)
	}

	botToken := os.Getenv("DISCORD_BOT_TOKEN")
	if botToken == "" {
		log.Fatal("DISCORD_BOT_TOKEN が設定されていません")
	}

	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		log.Fatalf("Discordセッションの作成に失敗: %v", err)
	}
	defer session.Close()

	user, err := session.User("@me")
	if err != nil {
		log.Fatalf("Bot情報の取得に失敗: %v", err)
	}

	var permissions int64
	for _, p := range requiredPermissions {
		permissions |= p.value
	}

	fmt.Printf("🤖 Bot情報:\n")
	fmt.Printf("   名前: %s\n", user.Username)
	fmt.Printf("   Client ID: %s\n", user.ID)
	fmt.Println()

	inviteURL := fmt.Sprintf("https://discord.com/api/oauth2/authorize?client_id=%s&permissions=%d&scope=bot%%20applications.commands", user.ID, permissions)
	fmt.Printf("🔗 Bot招待URL:\n")
	fmt.Printf("   %s\n", inviteURL)
	fmt.Println()

	fmt.Printf("📋 必要な権限:\n")
	for _, p := range requiredPermissions {
		fmt.Printf("   - %s (%d)\n", p.name, p.value)
	}
	fmt.Printf("   - 合計: %d\n", permissions)
	fmt.Println()

	fmt.Printf("🎯 使えるコマンド:\n")
	for _, command := range discordPres.Commands() {
		fmt.Printf("   /%s  %s\n", command.Name, command.Description)
	}
}
