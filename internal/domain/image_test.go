package domain

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseDataURI_RoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		data     []byte
	}{
		{name: "PNG", mimeType: "image/png", data: []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}},
		{name: "JPEG", mimeType: "image/jpeg", data: []byte{0xff, 0xd8, 0xff, 0xe0}},
		{name: "WebP", mimeType: "image/webp", data: []byte("RIFF....WEBP")},
		{name: "1バイト", mimeType: "image/gif", data: []byte{0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := NewEncodedImage(tt.mimeType, tt.data)
			if err != nil {
				t.Fatalf("NewEncodedImage でエラー: %v", err)
			}

			parsed, err := ParseDataURI(img.DataURI())
			if err != nil {
				t.Fatalf("ParseDataURI でエラー: %v", err)
			}

			if parsed.MIMEType() != tt.mimeType {
				t.Errorf("期待されるMIMEタイプ: %s, 実際: %s", tt.mimeType, parsed.MIMEType())
			}
			if !bytes.Equal(parsed.Data(), tt.data) {
				t.Errorf("デコード後のデータが一致しません")
			}
			if !parsed.Equal(img) {
				t.Errorf("Equal が false を返しました")
			}
		})
	}
}

func TestParseDataURI_Malformed(t *testing.T) {
	tests := []struct {
		name string
		uri  string
	}{
		{name: "空文字列", uri: ""},
		{name: "プレフィックスなし", uri: "aGVsbG8="},
		{name: "base64指定なし", uri: "data:image/png,aGVsbG8="},
		{name: "ペイロードなし", uri: "data:image/png;base64,"},
		{name: "MIMEタイプなし", uri: "data:;base64,aGVsbG8="},
		{name: "サブタイプなし", uri: "data:image;base64,aGVsbG8="},
		{name: "不正なbase64", uri: "data:image/png;base64,@@@"},
		{name: "URL", uri: "https://example.com/logo.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDataURI(tt.uri)
			if err == nil {
				t.Fatalf("エラーが期待されましたが、nil が返されました")
			}
			if !errors.Is(err, ErrInvalidImageFormat) {
				t.Errorf("ErrInvalidImageFormat が期待されましたが、実際: %v", err)
			}
		})
	}
}

func TestNewEncodedImage_CopiesData(t *testing.T) {
	data := []byte{1, 2, 3}
	img, err := NewEncodedImage("image/png", data)
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}

	data[0] = 9
	if img.Data()[0] != 1 {
		t.Errorf("元のスライスの変更が画像に反映されてはいけません")
	}

	out := img.Data()
	out[1] = 9
	if img.Data()[1] != 2 {
		t.Errorf("Data の戻り値の変更が画像に反映されてはいけません")
	}
}

func TestEncodedImage_DataURI(t *testing.T) {
	img, err := NewEncodedImage("image/png", []byte("hello"))
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}

	expected := "data:image/png;base64,aGVsbG8="
	if img.DataURI() != expected {
		t.Errorf("期待される値: %s, 実際: %s", expected, img.DataURI())
	}
	if img.String() != expected {
		t.Errorf("String は DataURI と同じ値を返すべきです")
	}

	var zero EncodedImage
	if !zero.IsZero() || zero.DataURI() != "" {
		t.Errorf("ゼロ値は空のdata URIを返すべきです")
	}
}
