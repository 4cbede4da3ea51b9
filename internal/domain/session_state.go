package domain

import "time"

// SessionState は、ある時点のセッション状態のスナップショットです
type SessionState struct {
	ID            string
	Mode          Mode
	OriginalImage *EncodedImage
	CurrentImage  *EncodedImage
	Prompt        string
	Status        Status
	ErrorMessage  string
	History       []HistoryEntry
	UpdatedAt     time.Time

	// Revision は、状態が変わるたびに増える番号です
	// 通知の到着順が前後した場合、大きい方が新しい状態です
	Revision uint64
}

// NewerThan は、s が other より後の状態かを判定します
func (s SessionState) NewerThan(other SessionState) bool {
	return s.Revision > other.Revision
}

// CanRevert は、元画像に戻せる状態かを判定します
func (s SessionState) CanRevert() bool {
	if s.Status.IsBusy() || s.OriginalImage == nil {
		return false
	}
	return s.CurrentImage == nil || !s.OriginalImage.Equal(*s.CurrentImage)
}

// CanExport は、現在の画像を書き出せる状態かを判定します
func (s SessionState) CanExport() bool {
	return !s.Status.IsBusy() && s.CurrentImage != nil
}
