package domain

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

// DefaultImageMIMEType は、MIMEタイプが不明な画像に使うタイプです
const DefaultImageMIMEType = "image/png"

var dataURIPattern = regexp.MustCompile(`^data:([^;,]+);base64,(.+)$`)

// EncodedImage は、MIMEタイプ付きの画像データを表す値オブジェクトです
// 文字列表現は data:<mime>;base64,<payload> 形式のdata URIです
type EncodedImage struct {
	mimeType string
	data     []byte
}

// NewEncodedImage は、MIMEタイプとバイト列からEncodedImageを作成します
func NewEncodedImage(mimeType string, data []byte) (EncodedImage, error) {
	mimeType = strings.TrimSpace(mimeType)
	if !isValidMIMEType(mimeType) {
		return EncodedImage{}, fmt.Errorf("%w: MIMEタイプ %q を解釈できません", ErrInvalidImageFormat, mimeType)
	}
	if len(data) == 0 {
		return EncodedImage{}, fmt.Errorf("%w: 画像データが空です", ErrInvalidImageFormat)
	}

	copied := make([]byte, len(data))
	copy(copied, data)
	return EncodedImage{mimeType: mimeType, data: copied}, nil
}

// ParseDataURI は、data URI文字列を解析してEncodedImageを返します
// 形式に合わない場合は ErrInvalidImageFormat を返し、既定値で補うことはしません
func ParseDataURI(uri string) (EncodedImage, error) {
	matches := dataURIPattern.FindStringSubmatch(uri)
	if matches == nil {
		return EncodedImage{}, fmt.Errorf("%w: data URIの形式ではありません", ErrInvalidImageFormat)
	}

	data, err := base64.StdEncoding.DecodeString(matches[2])
	if err != nil {
		return EncodedImage{}, fmt.Errorf("%w: base64のデコードに失敗: %v", ErrInvalidImageFormat, err)
	}

	return NewEncodedImage(matches[1], data)
}

// MIMEType は、画像のMIMEタイプを返します
func (i EncodedImage) MIMEType() string {
	return i.mimeType
}

// Data は、画像のバイト列のコピーを返します
func (i EncodedImage) Data() []byte {
	copied := make([]byte, len(i.data))
	copy(copied, i.data)
	return copied
}

// Base64 は、画像データを標準base64でエンコードした文字列を返します
func (i EncodedImage) Base64() string {
	return base64.StdEncoding.EncodeToString(i.data)
}

// DataURI は、画像をdata URI文字列として返します
func (i EncodedImage) DataURI() string {
	if i.IsZero() {
		return ""
	}
	return "data:" + i.mimeType + ";base64," + i.Base64()
}

// String は、DataURI と同じ文字列を返します
func (i EncodedImage) String() string {
	return i.DataURI()
}

// IsZero は、画像が未設定かどうかを判定します
func (i EncodedImage) IsZero() bool {
	return i.mimeType == "" && len(i.data) == 0
}

// Equal は、MIMEタイプとデータが一致するかを判定します
func (i EncodedImage) Equal(other EncodedImage) bool {
	return i.mimeType == other.mimeType && bytes.Equal(i.data, other.data)
}

// Size は、画像データのバイト数を返します
func (i EncodedImage) Size() int {
	return len(i.data)
}

func isValidMIMEType(mimeType string) bool {
	slash := strings.Index(mimeType, "/")
	if slash <= 0 || slash == len(mimeType)-1 {
		return false
	}
	return !strings.ContainsAny(mimeType, " ;,")
}
