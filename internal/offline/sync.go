package offline

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
)

var ErrSyncInFlight = errors.New("offline: sync already in flight")

type Report struct {
	Attempted int `json:"attempted"`
	Submitted int `json:"submitted"`
	Failed    int `json:"failed"`
}

type Syncer struct {
	q        *Queue
	sub      Submitter
	log      *zap.Logger
	inFlight atomic.Bool
}

func NewSyncer(q *Queue, sub Submitter, l *zap.Logger) *Syncer {
	if l == nil {
		l = zap.NewNop()
	}
	return &Syncer{q: q, sub: sub, log: l}
}

// Flush 按 FIFO 走一遍队列；同一时刻只允许一遍
func (s *Syncer) Flush(ctx context.Context) (Report, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return Report{}, ErrSyncInFlight
	}
	defer s.inFlight.Store(false)

	var rep Report
	items, err := s.q.List(ctx)
	if err != nil {
		return rep, err
	}
	for i := range items {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		p := &items[i]
		rep.Attempted++

		if err := s.sub.Submit(ctx, p); err != nil {
			rep.Failed++
			lvl := s.log.Info
			if IsRejected(err) {
				lvl = s.log.Warn
			}
			lvl("queued need not submitted",
				zap.String("client_id", p.ClientID),
				zap.Uint64("seq", p.Seq),
				zap.Int("attempts", p.Attempts+1),
				zap.Error(err))
			if merr := s.q.MarkFailed(ctx, p.ClientID, err); merr != nil {
				s.log.Error("record sync failure", zap.String("client_id", p.ClientID), zap.Error(merr))
			}
			continue
		}

		// 已确认；此处删除失败会导致下一遍重复提交
		if err := s.q.Delete(ctx, p.ClientID); err != nil {
			s.log.Error("dequeue submitted need", zap.String("client_id", p.ClientID), zap.Error(err))
			continue
		}
		rep.Submitted++
	}
	if rep.Attempted > 0 {
		s.log.Info("sync pass done",
			zap.Int("attempted", rep.Attempted),
			zap.Int("submitted", rep.Submitted),
			zap.Int("failed", rep.Failed))
	}
	return rep, nil
}

// Run 每收到一次恢复联网信号就 Flush 一次，直到 ctx 结束或信号关闭
func (s *Syncer) Run(ctx context.Context, online <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-online:
			if !ok {
				return
			}
			if _, err := s.Flush(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Warn("sync pass failed", zap.Error(err))
			}
		}
	}
}
