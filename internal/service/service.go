// Package service 业务层：所有多记录写入都经过 domain.Store.WithinTx，
// 提交成功后再做事件、邮件、缓存失效和指标这些副作用。
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"needboard/internal/core/cache"
	"needboard/internal/core/events"
	"needboard/internal/core/notify"
	"needboard/internal/domain"
)

// Deps 各 service 共享的依赖；Cache 为 nil 表示不缓存，其余可选项为 nil 时用空实现
type Deps struct {
	Store    domain.Store
	Log      *zap.Logger
	Cache    *cache.Cache
	Events   events.Publisher
	Notifier notify.Notifier
	Now      func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// publish 事件失败只记日志，不影响已提交的写入
func (d Deps) publish(ctx context.Context, subject string, data any) {
	if err := d.Events.Publish(ctx, subject, data); err != nil {
		d.Log.Warn("publish event failed", zap.String("subject", subject), zap.Error(err))
	}
}

func needKey(id string) string { return "need:" + id }

func (d Deps) invalidateNeed(ctx context.Context, id string) {
	if err := d.Cache.Invalidate(ctx, needKey(id)); err != nil {
		d.Log.Warn("cache invalidate failed", zap.String("need", id), zap.Error(err))
	}
}

// requireRole 读取用户并校验角色；用户不存在按 ErrUnauthorized 处理（token 指向已删除账号）
func requireRole(ctx context.Context, users domain.UserRepository, uid string, role domain.Role) (*domain.User, error) {
	u, err := users.FindByID(ctx, uid)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if u.Role != role {
		return nil, domainForbidden("only " + string(role) + "s can do this")
	}
	return u, nil
}
