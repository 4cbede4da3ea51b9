package domain

import "time"

// HistoryEntry は、成功した1回の生成・編集の記録です
// 作成後に変更されることはありません
type HistoryEntry struct {
	ID        string
	Original  EncodedImage
	Edited    EncodedImage
	Prompt    string
	Timestamp time.Time
}

// History は、新しいものが先頭に来る履歴の列です
type History struct {
	entries []HistoryEntry
}

// Prepend は、エントリを履歴の先頭に追加します
func (h *History) Prepend(entry HistoryEntry) {
	h.entries = append([]HistoryEntry{entry}, h.entries...)
}

// Entries は、履歴のコピーを新しい順に返します
func (h *History) Entries() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Find は、IDに一致するエントリを返します
func (h *History) Find(id string) (HistoryEntry, bool) {
	for _, entry := range h.entries {
		if entry.ID == id {
			return entry, true
		}
	}
	return HistoryEntry{}, false
}

// Len は、履歴の件数を返します
func (h *History) Len() int {
	return len(h.entries)
}
