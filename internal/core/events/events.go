package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	SubjectNeedPosted       = "need.posted"
	SubjectNeedUnlocked     = "need.unlocked"
	SubjectNeedCompleted    = "need.completed"
	SubjectCreditsPurchased = "credits.purchased"
	SubjectTxRefunded       = "transaction.refunded"
)

// Envelope 所有事件统一外层
type Envelope struct {
	Subject string    `json:"subject"`
	At      time.Time `json:"at"`
	Data    any       `json:"data"`
}

type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
	Close()
}

type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

func ConnectNATS(url, prefix string, l *zap.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("needboard"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				l.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			l.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSPublisher{nc: nc, prefix: prefix}, nil
}

func (p *NATSPublisher) Subject(s string) string {
	if p.prefix == "" {
		return s
	}
	return p.prefix + "." + s
}

func (p *NATSPublisher) Publish(_ context.Context, subject string, data any) error {
	if !p.nc.IsConnected() {
		return nats.ErrConnectionClosed
	}
	subject = p.Subject(subject)
	b, err := json.Marshal(Envelope{Subject: subject, At: time.Now().UTC(), Data: data})
	if err != nil {
		return err
	}
	return p.nc.Publish(subject, b)
}

func (p *NATSPublisher) Close() {
	if p.nc != nil && !p.nc.IsClosed() {
		_ = p.nc.Drain()
	}
}

// Nop 未配置 nats 时使用
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close()                                     {}

// Recorder 记录已发布事件，测试用
type Recorder struct {
	mu     sync.Mutex
	Events []Envelope
}

func (r *Recorder) Publish(_ context.Context, subject string, data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Envelope{Subject: subject, At: time.Now(), Data: data})
	return nil
}

func (r *Recorder) Close() {}

func (r *Recorder) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.Subject)
	}
	return out
}
