package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// IdleSweeper は、一定時間操作のないものを削除できる対象です
type IdleSweeper interface {
	SweepIdle(maxIdle time.Duration) int
}

// Sweeper は、cronスケジュールに従ってアイドルセッションを削除します
type Sweeper struct {
	cron    *cron.Cron
	target  IdleSweeper
	maxIdle time.Duration
	logger  *zap.Logger
}

// NewSweeper は新しいSweeperインスタンスを作成します
// schedule は "@every 10m" や "*/5 * * * *" のような標準形式です
func NewSweeper(schedule string, target IdleSweeper, maxIdle time.Duration, logger *zap.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Sweeper{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		target:  target,
		maxIdle: maxIdle,
		logger:  logger,
	}

	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return nil, fmt.Errorf("スケジュール %q の登録に失敗: %w", schedule, err)
	}

	return s, nil
}

// RunOnce は、アイドルセッションの削除を1回実行します
func (s *Sweeper) RunOnce() {
	removed := s.target.SweepIdle(s.maxIdle)
	s.logger.Debug("アイドルセッションの削除を実行しました", zap.Int("removed", removed))
}

// Run は、ctx がキャンセルされるまでスケジューラーを実行します
func (s *Sweeper) Run(ctx context.Context) {
	s.cron.Start()
	s.logger.Info("セッション削除スケジューラーを開始しました", zap.Duration("max_idle", s.maxIdle))

	<-ctx.Done()

	// 実行中のジョブの完了を待つ
	<-s.cron.Stop().Done()
	s.logger.Info("セッション削除スケジューラーを停止しました")
}
