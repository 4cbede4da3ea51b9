package domain

import (
	"fmt"
	"strings"
)

// Mode は、生成モードか編集モードかを表します
type Mode string

const (
	// ModeGenerate は、プロンプトのみから新しい画像を生成するモードです
	ModeGenerate Mode = "generate"
	// ModeEdit は、現在の画像をプロンプトに従って編集するモードです
	ModeEdit Mode = "edit"
)

// DefaultMode は、新しいセッションの初期モードです
const DefaultMode = ModeEdit

// ParseMode は、文字列をModeに変換します
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeGenerate:
		return ModeGenerate, nil
	case ModeEdit:
		return ModeEdit, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

func (m Mode) String() string {
	return string(m)
}

// Status は、セッションの処理状態を表します
type Status string

const (
	StatusIdle       Status = "idle"
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusError      Status = "error"
)

// IsBusy は、処理中で他の操作を受け付けない状態かを判定します
func (s Status) IsBusy() bool {
	return s == StatusUploading || s == StatusProcessing
}

func (s Status) String() string {
	return string(s)
}

// Part は、画像生成リクエストを構成する1つの要素です
// Text か Image のどちらか一方だけが設定されます
type Part struct {
	Text  string
	Image *EncodedImage
}

// NewTextPart は、テキストのPartを作成します
func NewTextPart(text string) Part {
	return Part{Text: text}
}

// NewImagePart は、インライン画像のPartを作成します
func NewImagePart(image EncodedImage) Part {
	return Part{Image: &image}
}

// IsImage は、このPartがインライン画像かどうかを判定します
func (p Part) IsImage() bool {
	return p.Image != nil
}

// EditInstruction は、編集モードでプロンプトを包む指示文を作成します
func EditInstruction(prompt string) string {
	return fmt.Sprintf("Instruction: %s. Apply this edit and return the image.", prompt)
}

// GenerationRequest は、1回の画像生成・編集の要求を表します
type GenerationRequest struct {
	Mode        Mode
	Prompt      string
	SourceImage *EncodedImage
}

// Validate は、ネットワーク呼び出しの前に要求の妥当性を検証します
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return ErrEmptyPrompt
	}

	switch r.Mode {
	case ModeGenerate:
		return nil
	case ModeEdit:
		if r.SourceImage == nil || r.SourceImage.IsZero() {
			return ErrMissingSourceImage
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, r.Mode)
	}
}

// Parts は、要求を画像生成サービスへ送るPartの列に変換します
// 生成モードはプロンプトのみ、編集モードは元画像の後に指示文を置きます
func (r GenerationRequest) Parts() ([]Part, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	prompt := strings.TrimSpace(r.Prompt)
	if r.Mode == ModeGenerate {
		return []Part{NewTextPart(prompt)}, nil
	}

	return []Part{
		NewImagePart(*r.SourceImage),
		NewTextPart(EditInstruction(prompt)),
	}, nil
}
