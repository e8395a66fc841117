package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"needboard/internal/core/metrics"
)

// Sweeper 定期删除过期需求；关系型后端没有 TTL 索引，靠它清理
type Sweeper struct{ d Deps }

func NewSweeper(d Deps) *Sweeper { return &Sweeper{d: d.withDefaults()} }

func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	n, err := s.d.Store.Needs().DeleteExpired(ctx, s.d.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.NeedsExpired.Add(float64(n))
		s.d.Log.Info("expired needs removed", zap.Int64("count", n))
	}
	return n, nil
}

// Run 阻塞直到 ctx 结束
func (s *Sweeper) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = 10 * time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			s.d.Log.Warn("expiry sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
