package web

import (
	"net/http"
	"time"

	"logoforge/internal/domain"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// handleWebSocket は、セッション状態が変化するたびにスナップショットを送信します
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocketのアップグレードに失敗", zap.Error(err))
		return
	}

	// 最新の状態だけが意味を持つため、溢れた通知は捨てる
	send := make(chan domain.SessionState, 8)
	unsubscribe := session.Subscribe(func(state domain.SessionState) {
		select {
		case send <- state:
		default:
		}
	})

	logger := s.logger.With(zap.String("session_id", session.ID()))
	logger.Debug("WebSocket接続を開始しました")

	done := make(chan struct{})
	go func() {
		defer close(done)
		readLoop(conn)
	}()

	writeLoop(conn, session.Snapshot(), send, done, logger)

	unsubscribe()
	conn.Close()
	logger.Debug("WebSocket接続を終了しました")
}

// readLoop は、クライアントが切断するまで受信を続けます
// クライアントからのメッセージは使わず、pongによる生存確認のためだけに読み込みます
func readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeLoop(conn *websocket.Conn, initial domain.SessionState, send <-chan domain.SessionState, done <-chan struct{}, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := writeState(conn, initial); err != nil {
		logger.Debug("WebSocketへの書き込みに失敗", zap.Error(err))
		return
	}
	last := initial

	for {
		select {
		case state := <-send:
			// 送信済みより古い通知は捨てる
			if !state.NewerThan(last) {
				continue
			}
			last = state
			if err := writeState(conn, state); err != nil {
				logger.Debug("WebSocketへの書き込みに失敗", zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func writeState(conn *websocket.Conn, state domain.SessionState) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(newSessionResponse(state))
}
