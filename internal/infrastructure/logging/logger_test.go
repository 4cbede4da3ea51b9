package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"logoforge/internal/infrastructure/config"

	"go.uber.org/zap"
)

func TestNewLogger_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{}, &buf)

	logger.Debug("表示されないメッセージ")
	logger.Info("セッションを作成しました", zap.String("session_id", "abc"))
	logger.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Infoレベル以上のみ出力されるべきです: %q", buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("JSONとして読み込めるべきです: %v", err)
	}
	if entry["message"] != "セッションを作成しました" || entry["session_id"] != "abc" {
		t.Errorf("予期しないログ内容: %v", entry)
	}
	if entry["level"] != "info" {
		t.Errorf("期待されるレベル: info, 実際: %v", entry["level"])
	}
}

func TestNewLogger_DevelopmentEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{Development: true}, &buf)

	logger.Debug("デバッグメッセージ")
	logger.Sync()

	if !strings.Contains(buf.String(), "デバッグメッセージ") {
		t.Errorf("開発モードではDebugレベルが出力されるべきです: %q", buf.String())
	}
}

func TestNewLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logoforge.log")

	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{FilePath: path}, &buf)
	logger.Info("ファイル出力")
	logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ログファイルの読み込みに失敗: %v", err)
	}
	if !strings.Contains(string(data), "ファイル出力") {
		t.Errorf("ログファイルにメッセージが出力されるべきです: %q", data)
	}
}

func TestPositiveOr(t *testing.T) {
	if positiveOr(0, 5) != 5 || positiveOr(-1, 5) != 5 || positiveOr(3, 5) != 3 {
		t.Error("positiveOr の結果が不正です")
	}
}
