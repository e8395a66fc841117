package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"needboard/internal/core/auth"
	"needboard/internal/core/events"
	"needboard/internal/domain"
	"needboard/internal/repo/repotest"
	"needboard/internal/service"
	"needboard/pkg/utils"
)

func init() { utils.HashCost = 4 }

type notified struct {
	mu    sync.Mutex
	needs []string
}

func (n *notified) NeedUnlocked(_ context.Context, _ *domain.User, need *domain.Need) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.needs = append(n.needs, need.ID)
	return nil
}

func (n *notified) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.needs)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	st     domain.Store
	clock  *clock
	events *events.Recorder
	mail   *notified

	users     *service.UserService
	unlocks   *service.UnlockService
	needs     *service.NeedService
	dashboard *service.DashboardService
	ledger    *service.LedgerService
	sweeper   *service.Sweeper
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		st:     repotest.NewStore(t),
		clock:  &clock{now: time.Now().UTC().Truncate(time.Second)},
		events: &events.Recorder{},
		mail:   &notified{},
	}
	d := service.Deps{
		Store:    f.st,
		Log:      zap.NewNop(),
		Events:   f.events,
		Notifier: f.mail,
		Now:      f.clock.Now,
	}
	jwt := &auth.JWTer{Secret: []byte("test-secret"), Issuer: "needboard", TTL: time.Hour}
	f.users = service.NewUserService(d, jwt)
	f.unlocks = service.NewUnlockService(d, service.Market{UnitPrice: 100, PaymentPrefixes: []string{"MP"}})
	f.needs = service.NewNeedService(d, 30*24*time.Hour, 0)
	f.dashboard = service.NewDashboardService(d)
	f.ledger = service.NewLedgerService(d)
	f.sweeper = service.NewSweeper(d)
	return f
}

func (f *fixture) user(t *testing.T, role domain.Role, credits int64) *domain.User {
	t.Helper()
	id := utils.NewID()
	u := &domain.User{
		ID: id, Email: id + "@example.com", Phone: "+254" + id[:8], PasswordHash: "x",
		Role: role, Name: "user " + id[:4], Location: "Nairobi", Credits: credits, Rating: domain.DefaultRating,
	}
	require.NoError(t, f.st.Users().Create(context.Background(), u))
	return u
}

func (f *fixture) need(t *testing.T, askerID string) *domain.PublicNeed {
	t.Helper()
	n, err := f.needs.Post(context.Background(), askerID, service.PostNeedInput{
		Title: "Plumber needed", Description: "Kitchen sink leaking", Budget: 1500,
		Category: "services", Location: "Westlands, Nairobi", Timeframe: "urgent",
	})
	require.NoError(t, err)
	return n
}

func (f *fixture) credits(t *testing.T, uid string) int64 {
	t.Helper()
	u, err := f.st.Users().FindByID(context.Background(), uid)
	require.NoError(t, err)
	return u.Credits
}
