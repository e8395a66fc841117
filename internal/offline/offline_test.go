package offline_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"needboard/internal/offline"
)

func newQueue(t *testing.T) *offline.Queue {
	t.Helper()
	q, err := offline.OpenQueue(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func draft(title string) offline.Draft {
	return offline.Draft{
		Title: title, Description: "d", Budget: 500,
		Category: "services", Location: "Lagos",
	}
}

// fakeSubmitter 记录调用顺序，按标题决定是否失败
type fakeSubmitter struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
	gate  chan struct{}
}

func (f *fakeSubmitter) Submit(ctx context.Context, p *offline.PendingNeed) error {
	d, err := p.Draft()
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.calls = append(f.calls, d.Title)
	f.mu.Unlock()
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.fail[d.Title]
}

func (f *fakeSubmitter) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestQueueKeepsInsertionOrder(t *testing.T) {
	q := newQueue(t)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, offline.Draft{})
	require.ErrorIs(t, err, offline.ErrEmptyDraft)

	a, err := q.Enqueue(ctx, draft("first"))
	require.NoError(t, err)
	b, err := q.Enqueue(ctx, draft("second"))
	require.NoError(t, err)
	assert.NotEqual(t, a.ClientID, b.ClientID)

	items, err := q.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, a.ClientID, items[0].ClientID)
	assert.Less(t, items[0].Seq, items[1].Seq)

	d, err := items[1].Draft()
	require.NoError(t, err)
	assert.Equal(t, "second", d.Title)
}

func TestFlushRetainsFailuresAndContinues(t *testing.T) {
	q := newQueue(t)
	ctx := context.Background()
	_, err := q.Enqueue(ctx, draft("first"))
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, draft("second"))
	require.NoError(t, err)

	sub := &fakeSubmitter{fail: map[string]error{"first": errors.New("connection reset")}}
	s := offline.NewSyncer(q, sub, nil)

	rep, err := s.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, offline.Report{Attempted: 2, Submitted: 1, Failed: 1}, rep)
	assert.Equal(t, []string{"first", "second"}, sub.Calls())

	left, err := q.List(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	d, _ := left[0].Draft()
	assert.Equal(t, "first", d.Title)
	assert.Equal(t, 1, left[0].Attempts)
	assert.Equal(t, "connection reset", left[0].LastError)

	// 下一遍成功后出队
	delete(sub.fail, "first")
	rep, err = s.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Submitted)
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOverlappingFlushDoesNotDoubleSubmit(t *testing.T) {
	q := newQueue(t)
	ctx := context.Background()
	_, err := q.Enqueue(ctx, draft("only"))
	require.NoError(t, err)

	sub := &fakeSubmitter{gate: make(chan struct{})}
	s := offline.NewSyncer(q, sub, nil)

	done := make(chan offline.Report, 1)
	go func() {
		rep, _ := s.Flush(ctx)
		done <- rep
	}()
	require.Eventually(t, func() bool { return len(sub.Calls()) == 1 }, 2*time.Second, 5*time.Millisecond)

	_, err = s.Flush(ctx)
	require.ErrorIs(t, err, offline.ErrSyncInFlight)

	close(sub.gate)
	rep := <-done
	assert.Equal(t, 1, rep.Submitted)
	assert.Len(t, sub.Calls(), 1)

	// 守卫已释放
	rep, err = s.Flush(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Attempted)
}

func TestHTTPSubmitterPostsWithBearer(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/api/v1/needs":
			hits.Add(1)
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"code":401,"msg":"unauthorized","error":"missing bearer token"}`))
				return
			}
			var d offline.Draft
			if err := json.NewDecoder(r.Body).Decode(&d); err != nil || d.Title == "" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"code":0,"msg":"ok","data":{}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	q := newQueue(t)
	ctx := context.Background()
	p, err := q.Enqueue(ctx, draft("fix sink"))
	require.NoError(t, err)

	bad := offline.NewHTTPSubmitter(srv.URL+"/", "", time.Second)
	err = bad.Submit(ctx, p)
	var se *offline.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Status)
	assert.Equal(t, "missing bearer token", se.Msg)
	assert.True(t, offline.IsRejected(err))

	good := offline.NewHTTPSubmitter(srv.URL, "tok", time.Second)
	assert.True(t, good.Healthy(ctx))
	rep, err := offline.NewSyncer(q, good, nil).Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Submitted)
	assert.EqualValues(t, 2, hits.Load())

	n, _ := q.Len(ctx)
	assert.Zero(t, n)
}

func TestHealthyFalseWhenServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	assert.False(t, offline.NewHTTPSubmitter(url, "", 200*time.Millisecond).Healthy(context.Background()))
}

// seqProber 每次探测取一个值，由测试逐步推进
type seqProber struct{ seq chan bool }

func (p seqProber) Healthy(context.Context) bool {
	v, ok := <-p.seq
	return ok && v
}

func TestWatcherFiresOnlyOnReconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := seqProber{seq: make(chan bool)}
	w := &offline.Watcher{Probe: p, Every: time.Millisecond}
	sig := w.Watch(ctx)

	pending := func() bool {
		select {
		case <-sig:
			return true
		default:
			return false
		}
	}

	// 每次送值成功都意味着上一次探测已处理完
	p.seq <- true
	p.seq <- false
	assert.False(t, pending(), "online at start without FireOnStart")
	p.seq <- true
	p.seq <- true
	assert.True(t, pending(), "offline to online")
	p.seq <- true
	assert.False(t, pending(), "still online")
	p.seq <- false
	p.seq <- true
	p.seq <- false
	assert.True(t, pending(), "second reconnect")

	cancel()
	close(p.seq)
	for range sig {
	}
}

func TestRunFlushesOnSignal(t *testing.T) {
	q := newQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := q.Enqueue(ctx, draft("one"))
	require.NoError(t, err)

	sub := &fakeSubmitter{}
	s := offline.NewSyncer(q, sub, nil)
	online := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		s.Run(ctx, online)
		close(stopped)
	}()

	online <- struct{}{}
	require.Eventually(t, func() bool {
		n, err := q.Len(ctx)
		return err == nil && n == 0
	}, 2*time.Second, 5*time.Millisecond)

	close(online)
	<-stopped
}
