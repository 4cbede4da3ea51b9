package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"logoforge/internal/domain"

	"go.uber.org/zap"
)

// ExportArtifact は、書き出し用に用意された画像ファイルです
type ExportArtifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Listener は、セッション状態が変化するたびに呼び出されます
type Listener func(state domain.SessionState)

// Session は、1人のユーザーの編集セッションを管理する状態機械です
// 状態の変更はすべてここに定義された遷移を通して行われます
type Session struct {
	mu sync.Mutex

	id           string
	mode         domain.Mode
	original     *domain.EncodedImage
	current      *domain.EncodedImage
	prompt       string
	status       domain.Status
	errorMessage string
	history      domain.History
	updatedAt    time.Time
	revision     uint64

	listeners    map[int]Listener
	nextListener int

	deps   Dependencies
	config *Config
	logger *zap.Logger
}

// NewSession は新しいSessionインスタンスを作成します
func NewSession(id string, deps Dependencies, config *Config) *Session {
	if config == nil {
		config = DefaultConfig()
	}
	deps = deps.withDefaults()

	return &Session{
		id:        id,
		mode:      domain.DefaultMode,
		status:    domain.StatusIdle,
		updatedAt: deps.Now(),
		listeners: make(map[int]Listener),
		deps:      deps,
		config:    config,
		logger:    deps.Logger.With(zap.String("session_id", id)),
	}
}

// ID は、セッションIDを返します
func (s *Session) ID() string {
	return s.id
}

// Snapshot は、現在の状態のコピーを返します
func (s *Session) Snapshot() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// LastActivity は、最後に状態が変化した時刻を返します
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// IsBusy は、アップロードまたは生成の処理中かを判定します
func (s *Session) IsBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.IsBusy()
}

// Subscribe は、状態変化の通知先を登録し、登録解除用の関数を返します
func (s *Session) Subscribe(listener Listener) func() {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// SetMode は、生成モードと編集モードを切り替えます
func (s *Session) SetMode(mode domain.Mode) (domain.SessionState, error) {
	parsed, err := domain.ParseMode(string(mode))
	if err != nil {
		return s.Snapshot(), err
	}

	return s.mutate(func() error {
		s.mode = parsed
		return nil
	})
}

// SetPrompt は、入力中のプロンプトを保存します
func (s *Session) SetPrompt(prompt string) (domain.SessionState, error) {
	return s.mutate(func() error {
		s.prompt = prompt
		return nil
	})
}

// LoadPreset は、ロゴのプリセットプロンプトを読み込み、生成モードに切り替えます
func (s *Session) LoadPreset() (domain.SessionState, error) {
	return s.mutate(func() error {
		s.prompt = LogoPresetPrompt
		s.mode = domain.ModeGenerate
		return nil
	})
}

// Upload は、ファイルを読み込んで元画像と現在の画像に設定します
// 失敗した場合、画像は変更されずステータスがエラーになります
func (s *Session) Upload(ctx context.Context, file UploadFile) (domain.SessionState, error) {
	return s.upload(ctx, file.Name, func() (UploadFile, error) {
		return file, nil
	})
}

// UploadDataURI は、data URI形式の画像を読み込みます
// data URIとして不正な場合は ErrInvalidImageFormat でエラー状態になり、デコーダーは呼ばれません
func (s *Session) UploadDataURI(ctx context.Context, name, dataURI string) (domain.SessionState, error) {
	return s.upload(ctx, name, func() (UploadFile, error) {
		image, err := domain.ParseDataURI(dataURI)
		if err != nil {
			return UploadFile{}, err
		}
		return UploadFile{Name: name, ContentType: image.MIMEType(), Data: image.Data()}, nil
	})
}

func (s *Session) upload(ctx context.Context, name string, read func() (UploadFile, error)) (domain.SessionState, error) {
	s.mu.Lock()
	if s.status.IsBusy() {
		state := s.snapshotLocked()
		s.mu.Unlock()
		return state, domain.ErrBusy
	}
	s.status = domain.StatusUploading
	s.errorMessage = ""
	s.touchLocked()
	s.publishAndUnlock()

	var image domain.EncodedImage
	file, err := read()
	if err == nil {
		s.logger.Debug("画像を読み込み中", zap.String("file", name), zap.Int("bytes", len(file.Data)))
		image, err = s.deps.Decoder.Decode(ctx, file)
	}

	s.mu.Lock()
	if err != nil {
		err = fmt.Errorf("画像の読み込みに失敗: %w", err)
		s.failLocked(err)
		state := s.snapshotLocked()
		s.publishAndUnlock()
		s.logger.Warn("画像の読み込みに失敗", zap.String("file", name), zap.Error(err))
		return state, err
	}

	s.original = &image
	s.current = &image
	s.mode = domain.ModeEdit
	s.status = domain.StatusIdle
	s.touchLocked()
	state := s.snapshotLocked()
	s.publishAndUnlock()

	s.logger.Info("画像を読み込みました", zap.String("mime_type", image.MIMEType()), zap.Int("bytes", image.Size()))
	return state, nil
}

// Submit は、プロンプトと現在のモードで画像の生成または編集を要求します
func (s *Session) Submit(ctx context.Context, prompt string) (domain.SessionState, error) {
	s.mu.Lock()
	if s.status.IsBusy() {
		state := s.snapshotLocked()
		s.mu.Unlock()
		return state, domain.ErrBusy
	}

	s.prompt = prompt
	mode := s.mode
	prior := s.current
	request := domain.GenerationRequest{Mode: mode, Prompt: prompt, SourceImage: prior}

	parts, err := request.Parts()
	if err != nil {
		s.failLocked(err)
		state := s.snapshotLocked()
		s.publishAndUnlock()
		return state, err
	}

	s.status = domain.StatusProcessing
	s.errorMessage = ""
	s.touchLocked()
	s.publishAndUnlock()

	s.logger.Info("画像生成をリクエスト中", zap.String("mode", mode.String()), zap.Int("parts", len(parts)))

	reqCtx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	result, err := s.deps.Client.RequestImage(reqCtx, parts)
	if err == nil && result == nil {
		err = domain.ErrNoImageProduced
	}
	if err != nil && errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("%w: %v", domain.ErrRequestTimeout, err)
	}

	s.mu.Lock()
	if err != nil {
		s.failLocked(err)
		state := s.snapshotLocked()
		s.publishAndUnlock()
		s.logger.Warn("画像生成に失敗", zap.Error(err))
		return state, err
	}

	edited := *result
	original := edited
	if mode == domain.ModeEdit && prior != nil {
		original = *prior
	}

	s.history.Prepend(domain.HistoryEntry{
		ID:        s.deps.NewID(),
		Original:  original,
		Edited:    edited,
		Prompt:    prompt,
		Timestamp: s.deps.Now(),
	})
	s.current = &edited
	if mode == domain.ModeGenerate || s.original == nil {
		s.original = &edited
	}
	s.prompt = ""
	s.status = domain.StatusIdle
	s.touchLocked()
	state := s.snapshotLocked()
	s.publishAndUnlock()

	s.logger.Info("画像生成が完了しました", zap.String("mime_type", edited.MIMEType()), zap.Int("history", len(state.History)))
	return state, nil
}

// Revert は、現在の画像を元画像に戻します
// ステータスは変更しません
func (s *Session) Revert() (domain.SessionState, error) {
	return s.mutate(func() error {
		if s.original == nil || (s.current != nil && s.original.Equal(*s.current)) {
			return domain.ErrNothingToRevert
		}
		original := *s.original
		s.current = &original
		return nil
	})
}

// SelectHistoryEntry は、履歴エントリの編集後画像を現在の画像にします
func (s *Session) SelectHistoryEntry(id string) (domain.SessionState, error) {
	return s.mutate(func() error {
		entry, ok := s.history.Find(id)
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrHistoryEntryNotFound, id)
		}
		edited := entry.Edited
		s.current = &edited
		return nil
	})
}

// Export は、現在の画像をPNGファイルとして書き出します
// セッションの状態は変更しません
func (s *Session) Export() (*ExportArtifact, error) {
	s.mu.Lock()
	if s.status.IsBusy() {
		s.mu.Unlock()
		return nil, domain.ErrBusy
	}
	if s.current == nil {
		s.mu.Unlock()
		return nil, domain.ErrNoCurrentImage
	}
	current := *s.current
	mode := s.mode
	s.mu.Unlock()

	data, err := s.deps.Encoder.EncodePNG(current)
	if err != nil {
		return nil, fmt.Errorf("PNGへの変換に失敗: %w", err)
	}

	return &ExportArtifact{
		Filename:    ExportFilename(mode, s.deps.Now()),
		ContentType: "image/png",
		Data:        data,
	}, nil
}

// ExportFilename は、書き出しファイル名 forge-<mode>-<unixミリ秒>.png を返します
func ExportFilename(mode domain.Mode, at time.Time) string {
	return fmt.Sprintf("forge-%s-%d.png", mode, at.UnixMilli())
}

// mutate は、処理中でない場合にだけ fn を実行し、変化を通知します
func (s *Session) mutate(fn func() error) (domain.SessionState, error) {
	s.mu.Lock()
	if s.status.IsBusy() {
		state := s.snapshotLocked()
		s.mu.Unlock()
		return state, domain.ErrBusy
	}

	if err := fn(); err != nil {
		state := s.snapshotLocked()
		s.mu.Unlock()
		return state, err
	}

	s.touchLocked()
	state := s.snapshotLocked()
	s.publishAndUnlock()
	return state, nil
}

func (s *Session) failLocked(err error) {
	s.status = domain.StatusError
	s.errorMessage = ErrorMessage(err)
	s.touchLocked()
}

func (s *Session) touchLocked() {
	s.updatedAt = s.deps.Now()
}

// publishAndUnlock は、ロック中にリビジョンを進めて状態を取得し、ロック解除後に通知します
// 通知は並行する変更と前後することがあるため、受け手は Revision で順序を判定します
func (s *Session) publishAndUnlock() {
	s.revision++
	state := s.snapshotLocked()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(state)
	}
}

func (s *Session) snapshotLocked() domain.SessionState {
	state := domain.SessionState{
		ID:           s.id,
		Mode:         s.mode,
		Prompt:       s.prompt,
		Status:       s.status,
		ErrorMessage: s.errorMessage,
		History:      s.history.Entries(),
		UpdatedAt:    s.updatedAt,
		Revision:     s.revision,
	}
	if s.original != nil {
		original := *s.original
		state.OriginalImage = &original
	}
	if s.current != nil {
		current := *s.current
		state.CurrentImage = &current
	}
	return state
}

// ErrorMessage は、エラーからユーザー向けのメッセージを作成します
// 画像生成サービスのメッセージがあればそれを優先します
func ErrorMessage(err error) string {
	var remoteErr *domain.RemoteRequestError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &remoteErr):
		return remoteErr.Message
	case errors.Is(err, domain.ErrRequestTimeout):
		return domain.ErrRequestTimeout.Error()
	case errors.Is(err, domain.ErrNoImageProduced):
		return domain.ErrNoImageProduced.Error()
	default:
		return err.Error()
	}
}
