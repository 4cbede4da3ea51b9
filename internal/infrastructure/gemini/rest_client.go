package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"logoforge/internal/domain"
	"logoforge/internal/infrastructure/config"

	"go.uber.org/zap"
)

// maxResponseBytes は、読み込むレスポンスボディの上限です
const maxResponseBytes = 64 << 20

// RESTClient は、generateContent エンドポイントをHTTPで直接呼び出すクライアントです
type RESTClient struct {
	httpClient *http.Client
	config     *config.GeminiConfig
	logger     *zap.Logger
}

// NewRESTClient は新しいRESTClientインスタンスを作成します
func NewRESTClient(geminiConfig *config.GeminiConfig, httpClient *http.Client, logger *zap.Logger) *RESTClient {
	if geminiConfig == nil {
		geminiConfig = config.DefaultGeminiConfig()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RESTClient{
		httpClient: httpClient,
		config:     geminiConfig,
		logger:     logger,
	}
}

// リクエストボディ
type restRequest struct {
	Contents         []restContent        `json:"contents"`
	GenerationConfig restGenerationConfig `json:"generationConfig"`
}

type restContent struct {
	Parts []restRequestPart `json:"parts"`
}

type restRequestPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *restInlineData `json:"inline_data,omitempty"`
}

type restInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type restGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

// レスポンスボディ
type restResponse struct {
	Candidates []struct {
		Content struct {
			Parts []restResponsePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type restResponsePart struct {
	Text       string `json:"text,omitempty"`
	InlineData *struct {
		MIMEType string `json:"mimeType"`
		Data     string `json:"data"`
	} `json:"inlineData,omitempty"`
}

// RequestImage は、Partの列を送信して最初の画像を返します
func (c *RESTClient) RequestImage(ctx context.Context, parts []domain.Part) (*domain.EncodedImage, error) {
	body, err := buildRESTRequest(parts)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("リクエストのエンコードに失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("Gemini APIに画像生成をリクエスト中",
		zap.String("model", c.config.ImageModelName),
		zap.Int("parts", len(parts)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error はAPIキーを含むURLを保持しているため取り除く
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("Gemini APIへのリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("レスポンスの読み込みに失敗: %w", err)
	}

	var decoded restResponse
	decodeErr := json.Unmarshal(raw, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := ""
		if decodeErr == nil && decoded.Error != nil {
			message = decoded.Error.Message
		}
		c.logger.Warn("Gemini APIがエラーを返しました",
			zap.Int("status", resp.StatusCode),
			zap.String("message", message))
		return nil, domain.NewRemoteRequestError(resp.StatusCode, message)
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("%w: レスポンスのデコードに失敗: %v", domain.ErrRemoteRequestFailed, decodeErr)
	}
	if decoded.Error != nil {
		return nil, domain.NewRemoteRequestError(resp.StatusCode, decoded.Error.Message)
	}

	return extractRESTImage(decoded)
}

func (c *RESTClient) endpoint() string {
	base := strings.TrimRight(c.config.BaseURL, "/")
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		base, url.PathEscape(c.config.ImageModelName), url.QueryEscape(c.config.APIKey))
}

// buildRESTRequest は、Partの列をリクエストボディに変換します
// 画像パートは1つまでです
func buildRESTRequest(parts []domain.Part) (*restRequest, error) {
	if len(parts) == 0 {
		return nil, domain.ErrEmptyParts
	}

	out := make([]restRequestPart, 0, len(parts))
	images := 0
	for i, part := range parts {
		if !part.IsImage() {
			out = append(out, restRequestPart{Text: part.Text})
			continue
		}
		if part.Image.IsZero() {
			return nil, fmt.Errorf("%w: パート %d の画像が空です", domain.ErrInvalidImageFormat, i)
		}
		if images++; images > 1 {
			return nil, fmt.Errorf("%w: 画像パートは1つまでです (パート %d)", domain.ErrInvalidImageFormat, i)
		}
		out = append(out, restRequestPart{
			InlineData: &restInlineData{
				MIMEType: part.Image.MIMEType(),
				Data:     part.Image.Base64(),
			},
		})
	}

	return &restRequest{
		Contents: []restContent{{Parts: out}},
		GenerationConfig: restGenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}, nil
}

// extractRESTImage は、最初の候補から最初の画像パートを取り出します
// 画像がない場合は (nil, nil) を返します
func extractRESTImage(resp restResponse) (*domain.EncodedImage, error) {
	if len(resp.Candidates) == 0 {
		return nil, nil
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData == nil || part.InlineData.Data == "" {
			continue
		}

		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: 画像データのデコードに失敗: %v", domain.ErrInvalidImageFormat, err)
		}

		mimeType := part.InlineData.MIMEType
		if mimeType == "" {
			mimeType = domain.DefaultImageMIMEType
		}

		image, err := domain.NewEncodedImage(mimeType, data)
		if err != nil {
			return nil, err
		}
		return &image, nil
	}

	return nil, nil
}
