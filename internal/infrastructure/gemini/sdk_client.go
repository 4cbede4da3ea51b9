package gemini

import (
	"context"
	"errors"
	"fmt"

	"logoforge/internal/domain"
	"logoforge/internal/infrastructure/config"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// SDKClient は、google.golang.org/genai を使って画像生成を行うクライアントです
type SDKClient struct {
	client *genai.Client
	config *config.GeminiConfig
	logger *zap.Logger
}

// NewSDKClient は新しいSDKClientインスタンスを作成します
func NewSDKClient(ctx context.Context, geminiConfig *config.GeminiConfig, logger *zap.Logger) (*SDKClient, error) {
	if geminiConfig == nil {
		geminiConfig = config.DefaultGeminiConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  geminiConfig.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if geminiConfig.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: geminiConfig.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("Gemini APIクライアントの作成に失敗: %w", err)
	}

	return &SDKClient{
		client: client,
		config: geminiConfig,
		logger: logger,
	}, nil
}

// RequestImage は、Partの列を送信して最初の画像を返します
func (c *SDKClient) RequestImage(ctx context.Context, parts []domain.Part) (*domain.EncodedImage, error) {
	contents, err := buildContents(parts)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Gemini SDKで画像生成をリクエスト中",
		zap.String("model", c.config.ImageModelName),
		zap.Int("parts", len(parts)))

	resp, err := c.client.Models.GenerateContent(ctx, c.config.ImageModelName, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("Gemini APIへのリクエストが中断されました: %w", err)
		}
		return nil, toRemoteError(err)
	}

	return extractImage(resp)
}

// buildContents は、Partの列をgenaiのContentに変換します
// 画像パートは1つまでです
func buildContents(parts []domain.Part) ([]*genai.Content, error) {
	if len(parts) == 0 {
		return nil, domain.ErrEmptyParts
	}

	out := make([]*genai.Part, 0, len(parts))
	images := 0
	for i, part := range parts {
		if !part.IsImage() {
			out = append(out, genai.NewPartFromText(part.Text))
			continue
		}
		if part.Image.IsZero() {
			return nil, fmt.Errorf("%w: パート %d の画像が空です", domain.ErrInvalidImageFormat, i)
		}
		if images++; images > 1 {
			return nil, fmt.Errorf("%w: 画像パートは1つまでです (パート %d)", domain.ErrInvalidImageFormat, i)
		}
		out = append(out, genai.NewPartFromBytes(part.Image.Data(), part.Image.MIMEType()))
	}

	return []*genai.Content{genai.NewContentFromParts(out, genai.RoleUser)}, nil
}

// extractImage は、最初の候補から最初の画像パートを取り出します
// 画像がない場合は (nil, nil) を返します
func extractImage(resp *genai.GenerateContentResponse) (*domain.EncodedImage, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, nil
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}

		mimeType := part.InlineData.MIMEType
		if mimeType == "" {
			mimeType = domain.DefaultImageMIMEType
		}

		image, err := domain.NewEncodedImage(mimeType, part.InlineData.Data)
		if err != nil {
			return nil, err
		}
		return &image, nil
	}

	return nil, nil
}

// toRemoteError は、SDKのエラーを RemoteRequestError に変換します
func toRemoteError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewRemoteRequestError(apiErr.Code, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return domain.NewRemoteRequestError(apiErrPtr.Code, apiErrPtr.Message)
	}
	return domain.NewRemoteRequestError(0, err.Error())
}
