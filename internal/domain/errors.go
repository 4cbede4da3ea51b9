package domain

import (
	"errors"
	"fmt"
)

// ドメイン固有のエラー型を定義
var (
	// ErrValidation は、入力検証に失敗した場合の基底エラーです
	ErrValidation = errors.New("入力が不正です")

	// ErrEmptyPrompt は、プロンプトが空の場合のエラーです
	ErrEmptyPrompt = fmt.Errorf("%w: プロンプトが空です", ErrValidation)

	// ErrMissingSourceImage は、編集モードで元画像がない場合のエラーです
	ErrMissingSourceImage = fmt.Errorf("%w: 編集対象の画像がありません", ErrValidation)

	// ErrInvalidMode は、未知のモードが指定された場合のエラーです
	ErrInvalidMode = fmt.Errorf("%w: 不明なモードです", ErrValidation)

	// ErrEmptyParts は、リクエストパートが1つもない場合のエラーです
	ErrEmptyParts = fmt.Errorf("%w: リクエストパートがありません", ErrValidation)

	// ErrInvalidImageFormat は、data URIとして解釈できない画像の場合のエラーです
	ErrInvalidImageFormat = errors.New("画像形式が不正です")

	// ErrRemoteRequestFailed は、画像生成サービスが失敗を返した場合のエラーです
	ErrRemoteRequestFailed = errors.New("画像生成サービスへのリクエストに失敗しました")

	// ErrNoImageProduced は、応答に画像が含まれていなかった場合のエラーです
	ErrNoImageProduced = errors.New("画像が返されませんでした")

	// ErrRequestTimeout は、画像生成リクエストがタイムアウトした場合のエラーです
	ErrRequestTimeout = errors.New("画像生成リクエストがタイムアウトしました")

	// ErrBusy は、別の処理が進行中の場合のエラーです
	ErrBusy = errors.New("別の処理が進行中です")

	// ErrNothingToRevert は、元に戻せる画像がない場合のエラーです
	ErrNothingToRevert = errors.New("元に戻せる画像がありません")

	// ErrNoCurrentImage は、現在の画像がない場合のエラーです
	ErrNoCurrentImage = errors.New("現在の画像がありません")

	// ErrHistoryEntryNotFound は、履歴エントリが見つからない場合のエラーです
	ErrHistoryEntryNotFound = errors.New("履歴エントリが見つかりません")

	// ErrSessionNotFound は、セッションが見つからない場合のエラーです
	ErrSessionNotFound = errors.New("セッションが見つかりません")
)

// DefaultRemoteErrorMessage は、プロバイダーがメッセージを返さなかった場合の文言です
const DefaultRemoteErrorMessage = "画像生成サービスがエラーを返しました"

// RemoteRequestError は、画像生成サービスが返した失敗を表します
type RemoteRequestError struct {
	StatusCode int
	Message    string
}

// NewRemoteRequestError は、メッセージが空の場合に汎用メッセージを補ってエラーを作成します
func NewRemoteRequestError(statusCode int, message string) *RemoteRequestError {
	if message == "" {
		message = DefaultRemoteErrorMessage
	}
	return &RemoteRequestError{StatusCode: statusCode, Message: message}
}

func (e *RemoteRequestError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

// Unwrap は、errors.Is で ErrRemoteRequestFailed と判定できるようにします
func (e *RemoteRequestError) Unwrap() error {
	return ErrRemoteRequestFailed
}
