package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"logoforge/internal/application"
	"logoforge/internal/infrastructure/config"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// multipartOverhead は、アップロード上限に加えて許容するマルチパートのヘッダー分です
const multipartOverhead = 1 << 20

// Server は、編集セッションをHTTP APIとして公開します
type Server struct {
	sessions *application.SessionManager
	config   config.HTTPConfig
	maxBytes int64
	logger   *zap.Logger
	upgrader websocket.Upgrader
	router   *mux.Router
}

// NewServer は新しいServerインスタンスを作成します
func NewServer(sessions *application.SessionManager, httpConfig config.HTTPConfig, maxUploadBytes int64, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		sessions: sessions,
		config:   httpConfig,
		maxBytes: maxUploadBytes,
		logger:   logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.router = s.routes()
	return s
}

// Handler は、ルーティング済みのhttp.Handlerを返します
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.enableCORS)

	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := r.PathPrefix("/api/sessions").Subrouter()
	api.HandleFunc("", s.handleCreateSession).Methods("POST", "OPTIONS")
	api.HandleFunc("/{id}", s.handleGetSession).Methods("GET", "OPTIONS")
	api.HandleFunc("/{id}", s.handleDeleteSession).Methods("DELETE")
	api.HandleFunc("/{id}/mode", s.handleSetMode).Methods("PUT", "OPTIONS")
	api.HandleFunc("/{id}/prompt", s.handleSetPrompt).Methods("PUT", "OPTIONS")
	api.HandleFunc("/{id}/preset", s.handleLoadPreset).Methods("POST", "OPTIONS")
	api.HandleFunc("/{id}/upload", s.handleUpload).Methods("POST", "OPTIONS")
	api.HandleFunc("/{id}/submit", s.handleSubmit).Methods("POST", "OPTIONS")
	api.HandleFunc("/{id}/revert", s.handleRevert).Methods("POST", "OPTIONS")
	api.HandleFunc("/{id}/history/{entryId}/select", s.handleSelectHistory).Methods("POST", "OPTIONS")
	api.HandleFunc("/{id}/export", s.handleExport).Methods("GET", "OPTIONS")
	api.HandleFunc("/{id}/ws", s.handleWebSocket).Methods("GET")

	return r
}

// Run は、ctx がキャンセルされるまでHTTPサーバーを実行します
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTPサーバーを起動しました", zap.String("addr", s.config.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
	}
	s.logger.Info("HTTPサーバーを停止しました")
	return nil
}

// enableCORS は、CORSヘッダーを付与します
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin())
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowedOrigin() string {
	if s.config.AllowedOrigin == "" {
		return "*"
	}
	return s.config.AllowedOrigin
}

func (s *Server) checkOrigin(r *http.Request) bool {
	allowed := s.allowedOrigin()
	if allowed == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || origin == allowed
}
