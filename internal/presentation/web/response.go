package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"logoforge/internal/application"
	"logoforge/internal/domain"

	"go.uber.org/zap"
)

// sessionResponse は、セッション状態のJSON表現です
type sessionResponse struct {
	ID            string                 `json:"id"`
	Mode          string                 `json:"mode"`
	Status        string                 `json:"status"`
	ErrorMessage  string                 `json:"errorMessage,omitempty"`
	Prompt        string                 `json:"prompt"`
	OriginalImage string                 `json:"originalImage,omitempty"`
	CurrentImage  string                 `json:"currentImage,omitempty"`
	CanRevert     bool                   `json:"canRevert"`
	CanExport     bool                   `json:"canExport"`
	History       []historyEntryResponse `json:"history"`
	Revision      uint64                 `json:"revision"`
}

// historyEntryResponse の画像はdata URIで返します
type historyEntryResponse struct {
	ID          string `json:"id"`
	OriginalURL string `json:"originalUrl"`
	EditedURL   string `json:"editedUrl"`
	Prompt      string `json:"prompt"`
	Timestamp   int64  `json:"timestamp"` // unixミリ秒
}

type errorResponse struct {
	Error   string           `json:"error"`
	Session *sessionResponse `json:"session,omitempty"`
}

func newSessionResponse(state domain.SessionState) sessionResponse {
	resp := sessionResponse{
		ID:           state.ID,
		Mode:         state.Mode.String(),
		Status:       state.Status.String(),
		ErrorMessage: state.ErrorMessage,
		Prompt:       state.Prompt,
		CanRevert:    state.CanRevert(),
		CanExport:    state.CanExport(),
		History:      make([]historyEntryResponse, 0, len(state.History)),
		Revision:     state.Revision,
	}
	if state.OriginalImage != nil {
		resp.OriginalImage = state.OriginalImage.DataURI()
	}
	if state.CurrentImage != nil {
		resp.CurrentImage = state.CurrentImage.DataURI()
	}
	for _, entry := range state.History {
		resp.History = append(resp.History, historyEntryResponse{
			ID:          entry.ID,
			OriginalURL: entry.Original.DataURI(),
			EditedURL:   entry.Edited.DataURI(),
			Prompt:      entry.Prompt,
			Timestamp:   entry.Timestamp.UnixMilli(),
		})
	}
	return resp
}

// writeJSON は、ヘッダー送信後のエンコード失敗をログに残します
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("レスポンスの送信に失敗", zap.Int("status", status), zap.Error(err))
	}
}

func (s *Server) writeSession(w http.ResponseWriter, status int, state domain.SessionState) {
	s.writeJSON(w, status, newSessionResponse(state))
}

// writeError は、エラーの種類に応じたステータスコードで応答します
// state が渡された場合は、失敗後のセッション状態も含めます
func (s *Server) writeError(w http.ResponseWriter, err error, state *domain.SessionState) {
	resp := errorResponse{Error: application.ErrorMessage(err)}
	if state != nil {
		session := newSessionResponse(*state)
		resp.Session = &session
	}
	s.writeJSON(w, statusForError(err), resp)
}

// statusForError は、ドメインエラーをHTTPステータスコードに変換します
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrHistoryEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidImageFormat):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrBusy), errors.Is(err, domain.ErrNothingToRevert), errors.Is(err, domain.ErrNoCurrentImage):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoImageProduced):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRequestTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrRemoteRequestFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
