package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"logoforge/internal/domain"
	"logoforge/internal/infrastructure/config"

	"google.golang.org/genai"
)

func newTestSDKClient(t *testing.T, handler http.HandlerFunc) *SDKClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewSDKClient(context.Background(), &config.GeminiConfig{
		APIKey:         "test-key",
		BaseURL:        server.URL,
		ImageModelName: "gemini-2.5-flash-image",
		Backend:        config.BackendSDK,
	}, nil)
	if err != nil {
		t.Fatalf("SDKクライアントの作成に失敗: %v", err)
	}
	return client
}

func TestSDKClient_RequestImage_Success(t *testing.T) {
	source, _ := domain.NewEncodedImage("image/jpeg", []byte("source-bytes"))

	client := newTestSDKClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("期待されるメソッド: POST, 実際: %s", r.Method)
		}
		if !strings.Contains(r.URL.Path, "gemini-2.5-flash-image") || !strings.HasSuffix(r.URL.Path, ":generateContent") {
			t.Errorf("予期しないパス: %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("APIキーがヘッダーで渡されていません")
		}

		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("リクエストボディのデコードに失敗: %v", err)
			return
		}

		generationConfig, _ := body["generationConfig"].(map[string]any)
		modalities, _ := generationConfig["responseModalities"].([]any)
		if len(modalities) != 2 || modalities[0] != "TEXT" || modalities[1] != "IMAGE" {
			t.Errorf("予期しないresponseModalities: %v", generationConfig)
		}

		contents, _ := body["contents"].([]any)
		if len(contents) != 1 {
			t.Errorf("期待されるContent数: 1, 実際: %d", len(contents))
			return
		}
		parts, _ := contents[0].(map[string]any)["parts"].([]any)
		if len(parts) != 2 {
			t.Errorf("期待されるパート数: 2, 実際: %d", len(parts))
			return
		}
		inline, _ := parts[0].(map[string]any)["inlineData"].(map[string]any)
		if inline["mimeType"] != "image/jpeg" || inline["data"] != base64.StdEncoding.EncodeToString([]byte("source-bytes")) {
			t.Errorf("最初のパートは元画像であるべきです: %v", parts[0])
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[
			{"text":"here you go"},
			{"inlineData":{"mimeType":"image/png","data":"`+base64.StdEncoding.EncodeToString([]byte("result-bytes"))+`"}}
		]}}]}`)
	})

	image, err := client.RequestImage(context.Background(), []domain.Part{
		domain.NewImagePart(source),
		domain.NewTextPart("edit it"),
	})
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if image == nil {
		t.Fatal("画像が返されるべきです")
	}
	if image.MIMEType() != "image/png" || string(image.Data()) != "result-bytes" {
		t.Errorf("予期しない画像: %s %s", image.MIMEType(), image.Data())
	}
}

func TestSDKClient_RequestImage_NoCandidates(t *testing.T) {
	client := newTestSDKClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[]}`)
	})

	image, err := client.RequestImage(context.Background(), []domain.Part{domain.NewTextPart("logo")})
	if err != nil {
		t.Fatalf("候補なしはエラーではありません: %v", err)
	}
	if image != nil {
		t.Errorf("nil が期待されましたが、画像が返されました")
	}
}

func TestSDKClient_RequestImage_RemoteFailure(t *testing.T) {
	client := newTestSDKClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`)
	})

	_, err := client.RequestImage(context.Background(), []domain.Part{domain.NewTextPart("logo")})

	var remoteErr *domain.RemoteRequestError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("RemoteRequestError が期待されましたが、実際: %v", err)
	}
	if remoteErr.StatusCode != http.StatusForbidden || remoteErr.Message != "API key not valid" {
		t.Errorf("予期しない内容: %+v", remoteErr)
	}
}

func TestSDKClient_RequestImage_ValidationBeforeNetwork(t *testing.T) {
	called := false
	client := newTestSDKClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	if _, err := client.RequestImage(context.Background(), nil); !errors.Is(err, domain.ErrEmptyParts) {
		t.Errorf("ErrEmptyParts が期待されましたが、実際: %v", err)
	}
	if called {
		t.Errorf("検証エラーの場合はネットワーク呼び出しが行われてはいけません")
	}
}

func TestBuildContents(t *testing.T) {
	source, _ := domain.NewEncodedImage("image/png", []byte("png"))

	contents, err := buildContents([]domain.Part{
		domain.NewImagePart(source),
		domain.NewTextPart(domain.EditInstruction("add stars")),
	})
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}

	if len(contents) != 1 || contents[0].Role != genai.RoleUser {
		t.Fatalf("ユーザーロールのContentが1つ作成されるべきです: %+v", contents)
	}
	parts := contents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("期待されるパート数: 2, 実際: %d", len(parts))
	}
	if parts[0].InlineData == nil || parts[0].InlineData.MIMEType != "image/png" || string(parts[0].InlineData.Data) != "png" {
		t.Errorf("最初のパートはインライン画像であるべきです: %+v", parts[0])
	}
	if parts[1].Text != "Instruction: add stars. Apply this edit and return the image." {
		t.Errorf("予期しないテキスト: %s", parts[1].Text)
	}
}

func TestBuildContents_Invalid(t *testing.T) {
	if _, err := buildContents(nil); !errors.Is(err, domain.ErrEmptyParts) {
		t.Errorf("ErrEmptyParts が期待されましたが、実際: %v", err)
	}
	if _, err := buildContents([]domain.Part{{Image: &domain.EncodedImage{}}}); !errors.Is(err, domain.ErrInvalidImageFormat) {
		t.Errorf("ErrInvalidImageFormat が期待されましたが、実際: %v", err)
	}

	first, _ := domain.NewEncodedImage("image/png", []byte("first"))
	second, _ := domain.NewEncodedImage("image/jpeg", []byte("second"))
	_, err := buildContents([]domain.Part{domain.NewImagePart(first), domain.NewImagePart(second)})
	if !errors.Is(err, domain.ErrInvalidImageFormat) {
		t.Errorf("画像パートが複数の場合は ErrInvalidImageFormat が期待されましたが、実際: %v", err)
	}
}

func TestExtractImage(t *testing.T) {
	tests := []struct {
		name     string
		resp     *genai.GenerateContentResponse
		wantNil  bool
		wantMIME string
		wantData string
	}{
		{name: "nilレスポンス", resp: nil, wantNil: true},
		{name: "候補なし", resp: &genai.GenerateContentResponse{}, wantNil: true},
		{
			name: "テキストのみ",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: genai.NewContentFromText("sorry", genai.RoleModel)},
			}},
			wantNil: true,
		},
		{
			name: "最初の画像",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []*genai.Part{
					genai.NewPartFromText("done"),
					{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: []byte("first")}},
					{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("second")}},
				}}},
			}},
			wantMIME: "image/jpeg",
			wantData: "first",
		},
		{
			name: "MIMEタイプなし",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []*genai.Part{
					{InlineData: &genai.Blob{Data: []byte("bare")}},
				}}},
			}},
			wantMIME: domain.DefaultImageMIMEType,
			wantData: "bare",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			image, err := extractImage(tt.resp)
			if err != nil {
				t.Fatalf("予期しないエラー: %v", err)
			}
			if tt.wantNil {
				if image != nil {
					t.Errorf("nil が期待されました")
				}
				return
			}
			if image == nil {
				t.Fatal("画像が返されるべきです")
			}
			if image.MIMEType() != tt.wantMIME || string(image.Data()) != tt.wantData {
				t.Errorf("期待: %s %s, 実際: %s %s", tt.wantMIME, tt.wantData, image.MIMEType(), image.Data())
			}
		})
	}
}

func TestToRemoteError(t *testing.T) {
	err := toRemoteError(fmt.Errorf("wrapped: %w", genai.APIError{Code: 403, Message: "permission denied"}))

	var remoteErr *domain.RemoteRequestError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("RemoteRequestError が期待されましたが、実際: %v", err)
	}
	if remoteErr.StatusCode != 403 || remoteErr.Message != "permission denied" {
		t.Errorf("予期しない内容: %+v", remoteErr)
	}
	if !errors.Is(err, domain.ErrRemoteRequestFailed) {
		t.Errorf("ErrRemoteRequestFailed として判定できるべきです")
	}

	pointerErr := toRemoteError(fmt.Errorf("wrapped: %w", &genai.APIError{Code: 429, Message: "quota exceeded"}))
	if !errors.As(pointerErr, &remoteErr) || remoteErr.StatusCode != 429 || remoteErr.Message != "quota exceeded" {
		t.Errorf("ポインタ型のAPIErrorも変換されるべきです: %v", pointerErr)
	}

	generic := toRemoteError(errors.New("connection reset"))
	if !errors.Is(generic, domain.ErrRemoteRequestFailed) {
		t.Errorf("一般的なエラーも ErrRemoteRequestFailed として判定できるべきです")
	}
}
