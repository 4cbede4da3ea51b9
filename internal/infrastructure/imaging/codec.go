package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"logoforge/internal/application"
	"logoforge/internal/domain"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Codec は、アップロード画像の検証とPNGへの変換を行います
type Codec struct {
	maxBytes int64
}

// NewCodec は新しいCodecインスタンスを作成します
// maxBytes が0以下の場合、サイズを制限しません
func NewCodec(maxBytes int64) *Codec {
	return &Codec{maxBytes: maxBytes}
}

// Decode は、ファイルが対応形式の画像であることを確認し、EncodedImageとして返します
// 画像データは再エンコードせず、そのまま保持します
func (c *Codec) Decode(ctx context.Context, file application.UploadFile) (domain.EncodedImage, error) {
	if err := ctx.Err(); err != nil {
		return domain.EncodedImage{}, err
	}
	if len(file.Data) == 0 {
		return domain.EncodedImage{}, fmt.Errorf("%w: ファイルが空です", domain.ErrInvalidImageFormat)
	}
	if c.maxBytes > 0 && int64(len(file.Data)) > c.maxBytes {
		return domain.EncodedImage{}, fmt.Errorf("%w: ファイルサイズが上限 %d バイトを超えています", domain.ErrValidation, c.maxBytes)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(file.Data))
	if err != nil {
		return domain.EncodedImage{}, fmt.Errorf("%w: %s を画像として読み込めません: %v", domain.ErrInvalidImageFormat, file.Name, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return domain.EncodedImage{}, fmt.Errorf("%w: 画像サイズが不正です (%dx%d)", domain.ErrInvalidImageFormat, cfg.Width, cfg.Height)
	}

	return domain.NewEncodedImage(MIMETypeForFormat(format), file.Data)
}

// EncodePNG は、画像をPNGに変換します
// すでにPNGの場合はそのまま返します
func (c *Codec) EncodePNG(img domain.EncodedImage) ([]byte, error) {
	if img.IsZero() {
		return nil, fmt.Errorf("%w: 画像が空です", domain.ErrInvalidImageFormat)
	}
	if img.MIMEType() == "image/png" {
		return img.Data(), nil
	}

	decoded, _, err := image.Decode(bytes.NewReader(img.Data()))
	if err != nil {
		return nil, fmt.Errorf("%w: %s のデコードに失敗: %v", domain.ErrInvalidImageFormat, img.MIMEType(), err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return nil, fmt.Errorf("PNGのエンコードに失敗: %w", err)
	}
	return buf.Bytes(), nil
}

// MIMETypeForFormat は、image パッケージのフォーマット名をMIMEタイプに変換します
func MIMETypeForFormat(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png", "gif", "webp", "bmp", "tiff":
		return "image/" + format
	default:
		return domain.DefaultImageMIMEType
	}
}
