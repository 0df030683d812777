package job

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const SweepSchedule = "@every 1m"

// 期限切れの画面状態を消せるストア
type Sweepable interface {
	Sweep(ctx context.Context) int
}

// Scheduler は定期ジョブをまとめて動かす。
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
}

func NewScheduler(log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		log:  log,
	}
}

// AddStateSweeper はcron式のスケジュールで期限切れの状態を掃除する。
func (s *Scheduler) AddStateSweeper(schedule string, store Sweepable) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if n := store.Sweep(context.Background()); n > 0 {
			s.log.Info("swept idle page states", zap.Int("count", n))
		}
	})
	return err
}

// Run はctxが終わるまでジョブを動かし、実行中のジョブを待って戻る。
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}
