package offline

import (
	"context"
	"time"
)

type Prober interface {
	Healthy(ctx context.Context) bool
}

// Watcher 周期探测连通性，只在 离线→在线 的边沿发信号
type Watcher struct {
	Probe Prober
	Every time.Duration
	// 首次探测在线时也发一次，用于启动即回放
	FireOnStart bool
}

func (w *Watcher) Watch(ctx context.Context) <-chan struct{} {
	out := make(chan struct{}, 1)
	every := w.Every
	if every <= 0 {
		every = 15 * time.Second
	}
	go func() {
		defer close(out)
		t := time.NewTicker(every)
		defer t.Stop()

		online := !w.FireOnStart
		first := true
		for {
			if !first {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
				}
			}
			first = false

			pctx, cancel := context.WithTimeout(ctx, every)
			up := w.Probe.Healthy(pctx)
			cancel()

			if up && !online {
				// 上一个信号还没消费就合并
				select {
				case out <- struct{}{}:
				default:
				}
			}
			online = up
		}
	}()
	return out
}
