package application

import (
	"context"

	"logoforge/internal/domain"
)

// ImageClient は、画像生成サービスと通信するクライアントのインターフェースです
type ImageClient interface {
	// RequestImage は、Partの列を送信して最初の画像を返します
	// 応答に画像が含まれない場合は (nil, nil) を返します
	RequestImage(ctx context.Context, parts []domain.Part) (*domain.EncodedImage, error)
}

// UploadFile は、ユーザーがアップロードしたファイルを表します
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ImageDecoder は、アップロードされたファイルを画像として読み込みます
type ImageDecoder interface {
	Decode(ctx context.Context, file UploadFile) (domain.EncodedImage, error)
}

// ImageEncoder は、画像をPNGに変換します
type ImageEncoder interface {
	EncodePNG(image domain.EncodedImage) ([]byte, error)
}
