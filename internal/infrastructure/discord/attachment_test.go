package discord

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"logoforge/internal/domain"

	"github.com/bwmarrin/discordgo"
)

func TestAttachmentFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/logo.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte("png-bytes"))
		case "/large.png":
			w.Write([]byte(strings.Repeat("x", 64)))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	tests := []struct {
		name        string
		attachment  *discordgo.MessageAttachment
		wantData    string
		wantType    string
		expectError bool
		validation  bool
	}{
		{
			name:       "正常な取得",
			attachment: &discordgo.MessageAttachment{ID: "1", URL: server.URL + "/logo.png", Filename: "logo.png", Size: 9},
			wantData:   "png-bytes",
			wantType:   "image/png",
		},
		{
			name:       "添付ファイルのContent-Typeを優先",
			attachment: &discordgo.MessageAttachment{ID: "2", URL: server.URL + "/logo.png", Filename: "logo.webp", ContentType: "image/webp", Size: 9},
			wantData:   "png-bytes",
			wantType:   "image/webp",
		},
		{
			name:        "申告サイズが上限超過",
			attachment:  &discordgo.MessageAttachment{ID: "3", URL: server.URL + "/logo.png", Filename: "big.png", Size: 1024},
			expectError: true,
			validation:  true,
		},
		{
			name:        "実サイズが上限超過",
			attachment:  &discordgo.MessageAttachment{ID: "4", URL: server.URL + "/large.png", Filename: "large.png", Size: 1},
			expectError: true,
			validation:  true,
		},
		{
			name:        "存在しないファイル",
			attachment:  &discordgo.MessageAttachment{ID: "5", URL: server.URL + "/missing.png", Filename: "missing.png", Size: 1},
			expectError: true,
		},
		{
			name:        "添付ファイルなし",
			attachment:  nil,
			expectError: true,
			validation:  true,
		},
	}

	fetcher := NewAttachmentFetcher(server.Client(), 32, nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := fetcher.Fetch(context.Background(), tt.attachment)

			if tt.expectError {
				if err == nil {
					t.Fatal("エラーが期待されましたが、nilが返されました")
				}
				if tt.validation && !errors.Is(err, domain.ErrValidation) {
					t.Errorf("ErrValidation が期待されましたが、実際: %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("予期しないエラー: %v", err)
			}
			if string(file.Data) != tt.wantData {
				t.Errorf("期待されるデータ: %s, 実際: %s", tt.wantData, file.Data)
			}
			if file.ContentType != tt.wantType {
				t.Errorf("期待されるContent-Type: %s, 実際: %s", tt.wantType, file.ContentType)
			}
			if file.Name != tt.attachment.Filename {
				t.Errorf("期待されるファイル名: %s, 実際: %s", tt.attachment.Filename, file.Name)
			}
		})
	}
}
