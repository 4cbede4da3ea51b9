package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"logoforge/internal/application"
	"logoforge/internal/domain"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// AttachmentFetcher は、Discordの添付ファイルをダウンロードしてアップロードファイルに変換します
type AttachmentFetcher struct {
	client   *http.Client
	maxBytes int64
	logger   *zap.Logger
}

// NewAttachmentFetcher は新しいAttachmentFetcherインスタンスを作成します
func NewAttachmentFetcher(client *http.Client, maxBytes int64, logger *zap.Logger) *AttachmentFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentFetcher{
		client:   client,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Fetch は、添付ファイルを取得します
// サイズが上限を超える場合はダウンロードせずにエラーを返します
func (f *AttachmentFetcher) Fetch(ctx context.Context, attachment *discordgo.MessageAttachment) (application.UploadFile, error) {
	if attachment == nil || attachment.URL == "" {
		return application.UploadFile{}, fmt.Errorf("%w: 添付ファイルがありません", domain.ErrValidation)
	}
	if f.maxBytes > 0 && int64(attachment.Size) > f.maxBytes {
		return application.UploadFile{}, fmt.Errorf("%w: %s のサイズ %d バイトが上限 %d バイトを超えています",
			domain.ErrValidation, attachment.Filename, attachment.Size, f.maxBytes)
	}

	f.logger.Debug("添付ファイルを取得中",
		zap.String("attachment_id", attachment.ID),
		zap.String("filename", attachment.Filename),
		zap.Int("size", attachment.Size))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, attachment.URL, nil)
	if err != nil {
		return application.UploadFile{}, fmt.Errorf("リクエストの作成に失敗: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		// 署名付きURLをログやメッセージに残さない
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return application.UploadFile{}, fmt.Errorf("添付ファイルの取得に失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return application.UploadFile{}, fmt.Errorf("添付ファイルの取得に失敗: ステータス %d", resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return application.UploadFile{}, fmt.Errorf("添付ファイルの読み込みに失敗: %w", err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return application.UploadFile{}, fmt.Errorf("%w: %s が上限 %d バイトを超えています", domain.ErrValidation, attachment.Filename, f.maxBytes)
	}

	contentType := attachment.ContentType
	if contentType == "" {
		contentType = resp.Header.Get("Content-Type")
	}

	return application.UploadFile{
		Name:        attachment.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}
