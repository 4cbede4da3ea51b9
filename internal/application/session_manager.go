package application

import (
	"fmt"
	"sync"
	"time"

	"logoforge/internal/domain"

	"go.uber.org/zap"
)

// SessionManager は、メモリ上でセッションを管理します
// 永続化は行わず、プロセスの終了とともにすべて破棄されます
type SessionManager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex

	deps   Dependencies
	config *Config
}

// NewSessionManager は新しいSessionManagerインスタンスを作成します
func NewSessionManager(deps Dependencies, config *Config) *SessionManager {
	if config == nil {
		config = DefaultConfig()
	}

	return &SessionManager{
		sessions: make(map[string]*Session),
		deps:     deps.withDefaults(),
		config:   config,
	}
}

// Create は、新しいIDでセッションを作成します
func (m *SessionManager) Create() *Session {
	session := NewSession(m.deps.NewID(), m.deps, m.config)

	m.mutex.Lock()
	m.sessions[session.ID()] = session
	m.mutex.Unlock()

	m.deps.Logger.Info("セッションを作成しました", zap.String("session_id", session.ID()))
	return session
}

// Get は、IDに対応するセッションを返します
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return session, nil
}

// GetOrCreate は、キーに対応するセッションを返し、なければ作成します
func (m *SessionManager) GetOrCreate(key string) *Session {
	m.mutex.RLock()
	session, exists := m.sessions[key]
	m.mutex.RUnlock()
	if exists {
		return session
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	// 別のゴルーチンが先に作成している可能性がある
	if session, exists := m.sessions[key]; exists {
		return session
	}

	session = NewSession(key, m.deps, m.config)
	m.sessions[key] = session
	m.deps.Logger.Info("セッションを作成しました", zap.String("session_id", key))
	return session
}

// Delete は、セッションを削除します
func (m *SessionManager) Delete(id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.sessions[id]; !exists {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	delete(m.sessions, id)
	return nil
}

// Len は、管理しているセッション数を返します
func (m *SessionManager) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// SweepIdle は、maxIdle より長く操作されていないセッションを削除し、削除数を返します
// 処理中のセッションは削除しません
func (m *SessionManager) SweepIdle(maxIdle time.Duration) int {
	cutoff := m.deps.Now().Add(-maxIdle)

	m.mutex.Lock()
	defer m.mutex.Unlock()

	removed := 0
	for id, session := range m.sessions {
		if session.IsBusy() || session.LastActivity().After(cutoff) {
			continue
		}
		delete(m.sessions, id)
		removed++
	}

	if removed > 0 {
		m.deps.Logger.Info("アイドルセッションを削除しました",
			zap.Int("removed", removed),
			zap.Int("remaining", len(m.sessions)))
	}
	return removed
}
