// Package offline 离线发布需求的本地队列与回放
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"needboard/internal/core/database"
	"needboard/pkg/utils"
)

// Draft 与 POST /api/v1/needs 的请求体一致
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Budget      int64  `json:"budget"`
	Category    string `json:"category"`
	Location    string `json:"location"`
	Timeframe   string `json:"timeframe,omitempty"`
}

type PendingNeed struct {
	Seq       uint64 `gorm:"primaryKey;autoIncrement"`
	ClientID  string `gorm:"size:36;uniqueIndex;not null"`
	Payload   []byte `gorm:"not null"`
	Attempts  int    `gorm:"not null;default:0"`
	LastError string `gorm:"size:512"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PendingNeed) TableName() string { return "pending_needs" }

func (p *PendingNeed) Draft() (Draft, error) {
	var d Draft
	err := json.Unmarshal(p.Payload, &d)
	return d, err
}

var ErrEmptyDraft = errors.New("offline: draft title is required")

type Queue struct{ db *gorm.DB }

// OpenQueue 打开（必要时创建）本地 sqlite 队列文件
func OpenQueue(path string) (*Queue, error) {
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          path + "?_busy_timeout=5000",
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	if err != nil {
		return nil, fmt.Errorf("open queue %s: %w", path, err)
	}
	return NewQueue(db)
}

func NewQueue(db *gorm.DB) (*Queue, error) {
	if err := db.AutoMigrate(&PendingNeed{}); err != nil {
		return nil, fmt.Errorf("migrate queue: %w", err)
	}
	return &Queue{db: db}, nil
}

func (q *Queue) Close() error {
	sqlDB, err := q.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (q *Queue) Enqueue(ctx context.Context, d Draft) (*PendingNeed, error) {
	if d.Title == "" {
		return nil, ErrEmptyDraft
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	p := &PendingNeed{ClientID: utils.NewID(), Payload: b}
	if err := q.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// List 按入队顺序
func (q *Queue) List(ctx context.Context) ([]PendingNeed, error) {
	var out []PendingNeed
	err := q.db.WithContext(ctx).Order("seq ASC").Find(&out).Error
	return out, err
}

func (q *Queue) Len(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.WithContext(ctx).Model(&PendingNeed{}).Count(&n).Error
	return n, err
}

func (q *Queue) Delete(ctx context.Context, clientID string) error {
	return q.db.WithContext(ctx).Where("client_id = ?", clientID).Delete(&PendingNeed{}).Error
}

func (q *Queue) MarkFailed(ctx context.Context, clientID string, cause error) error {
	msg := cause.Error()
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return q.db.WithContext(ctx).Model(&PendingNeed{}).
		Where("client_id = ?", clientID).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": msg,
		}).Error
}
