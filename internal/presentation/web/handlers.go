package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"logoforge/internal/application"
	"logoforge/internal/domain"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type modeRequest struct {
	Mode string `json:"mode"`
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

// uploadRequest は、data URIでのアップロードです
type uploadRequest struct {
	Image string `json:"image"`
	Name  string `json:"name,omitempty"`
}

type submitRequest struct {
	Prompt string `json:"prompt"`
	Mode   string `json:"mode,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"service":  "logoforge",
		"sessions": s.sessions.Len(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session := s.sessions.Create()
	s.writeSession(w, http.StatusCreated, session.Snapshot())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	s.writeSession(w, http.StatusOK, session.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req modeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	state, err := session.SetMode(domain.Mode(req.Mode))
	s.respond(w, http.StatusOK, state, err)
}

func (s *Server) handleSetPrompt(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req promptRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	state, err := session.SetPrompt(req.Prompt)
	s.respond(w, http.StatusOK, state, err)
}

func (s *Server) handleLoadPreset(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	state, err := session.LoadPreset()
	s.respond(w, http.StatusOK, state, err)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	if isJSON(r) {
		s.handleUploadDataURI(w, r, session)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, fmt.Errorf("%w: マルチパートの解析に失敗: %v", domain.ErrValidation, err), nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: file フィールドがありません", domain.ErrValidation), nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: ファイルの読み込みに失敗: %v", domain.ErrValidation, err), nil)
		return
	}

	state, err := session.Upload(r.Context(), application.UploadFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	s.respond(w, http.StatusOK, state, err)
}

// handleUploadDataURI は、{"image": "data:<mime>;base64,..."} 形式のアップロードを処理します
func (s *Server) handleUploadDataURI(w http.ResponseWriter, r *http.Request, session *application.Session) {
	// base64は元のサイズの約4/3になる
	limit := s.maxBytes/3*4 + multipartOverhead

	var req uploadRequest
	if !s.decodeJSONLimit(w, r, &req, limit) {
		return
	}

	name := req.Name
	if name == "" {
		name = "upload"
	}

	state, err := session.UploadDataURI(r.Context(), name, req.Image)
	s.respond(w, http.StatusOK, state, err)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req submitRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	if req.Mode != "" {
		if state, err := session.SetMode(domain.Mode(req.Mode)); err != nil {
			s.respond(w, http.StatusOK, state, err)
			return
		}
	}

	state, err := session.Submit(r.Context(), req.Prompt)
	s.respond(w, http.StatusOK, state, err)
}

func (s *Server) handleRevert(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	state, err := session.Revert()
	s.respond(w, http.StatusOK, state, err)
}

func (s *Server) handleSelectHistory(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	state, err := session.SelectHistoryEntry(mux.Vars(r)["entryId"])
	s.respond(w, http.StatusOK, state, err)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	artifact, err := session.Export()
	if err != nil {
		state := session.Snapshot()
		s.writeError(w, err, &state)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(artifact.Data); err != nil {
		s.logger.Warn("書き出しデータの送信に失敗", zap.Error(err))
	}
}

// session は、パスのIDに対応するセッションを取得します
// 見つからない場合は404を書き込み false を返します
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*application.Session, bool) {
	session, err := s.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err, nil)
		return nil, false
	}
	return session, true
}

func (s *Server) respond(w http.ResponseWriter, status int, state domain.SessionState, err error) {
	if err != nil {
		if statusForError(err) >= http.StatusInternalServerError {
			s.logger.Warn("リクエストの処理に失敗", zap.String("session_id", state.ID), zap.Error(err))
		}
		s.writeError(w, err, &state)
		return
	}
	s.writeSession(w, status, state)
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	return s.decodeJSONLimit(w, r, v, 1<<20)
}

func (s *Server) decodeJSONLimit(w http.ResponseWriter, r *http.Request, v any, limit int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, fmt.Errorf("%w: JSONの解析に失敗: %v", domain.ErrValidation, err), nil)
		return false
	}
	return true
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}
