package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"needboard/internal/core/auth"
	"needboard/internal/core/config"
	"needboard/internal/repo/repotest"
	"needboard/internal/service"
	"needboard/internal/transport/http/router"
	"needboard/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.HashCost = 4
}

type env struct {
	t     *testing.T
	api   *gin.Engine
	admin *gin.Engine
	svc   router.Services
}

func newEnv(t *testing.T) *env {
	st := repotest.NewStore(t)
	d := service.Deps{Store: st, Log: zap.NewNop()}
	jwt := &auth.JWTer{Secret: []byte("router-test"), Issuer: "needboard", TTL: time.Hour}
	svc := router.Services{
		Users:     service.NewUserService(d, jwt),
		Needs:     service.NewNeedService(d, 0, 0),
		Unlocks:   service.NewUnlockService(d, service.Market{UnitPrice: 100, PaymentPrefixes: []string{"MP"}}),
		Dashboard: service.NewDashboardService(d),
		Ledger:    service.NewLedgerService(d),
		Sweeper:   service.NewSweeper(d),
	}
	deps := router.Deps{
		Log: zap.NewNop(), JWT: jwt, Svc: svc,
		HTTP: config.HTTP{MaxBodyBytes: 1 << 20, RequestTimeoutSec: 5},
	}
	return &env{t: t, api: router.NewAPIEngine(deps), admin: router.NewAdminEngine(deps), svc: svc}
}

type envelope struct {
	Code  int             `json:"code"`
	Msg   string          `json:"msg"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func (e *env) call(h http.Handler, method, path, token string, body any) (int, envelope) {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var out envelope
	require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func (e *env) register(role, email, phone string) (string, string) {
	e.t.Helper()
	code, res := e.call(e.api, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"role": role, "email": email, "phone": phone, "password": "password123",
		"name": role + " one", "location": "Nairobi",
	})
	require.Equal(e.t, http.StatusCreated, code, res.Error)
	var out struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(e.t, json.Unmarshal(res.Data, &out))
	return out.Token, out.User.ID
}

func TestMarketplaceFlow(t *testing.T) {
	e := newEnv(t)
	askerTok, _ := e.register("asker", "ann@example.com", "+254711111111")
	fulTok, _ := e.register("fulfiller", "fred@example.com", "+254722222222")

	code, res := e.call(e.api, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"role": "asker", "email": "ann@example.com", "phone": "+254733333333",
		"password": "password123", "name": "dup",
	})
	assert.Equal(t, http.StatusBadRequest, code, "duplicate registration")
	assert.NotEmpty(t, res.Error)

	code, _ = e.call(e.api, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "ann@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, code)

	// 发布需求
	code, _ = e.call(e.api, http.MethodPost, "/api/v1/needs", fulTok, gin.H{"title": "x"})
	assert.Equal(t, http.StatusForbidden, code)
	code, res = e.call(e.api, http.MethodPost, "/api/v1/needs", askerTok, gin.H{"title": "", "description": "d"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, res.Error, "title")

	code, res = e.call(e.api, http.MethodPost, "/api/v1/needs", askerTok, gin.H{
		"title": "Need a mover", "description": "2 bedroom flat", "budget": 8000,
		"category": "transport", "location": "Karen", "timeframe": "this_week",
	})
	require.Equal(t, http.StatusCreated, code, res.Error)
	var need struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &need))

	// 公开列表不含联系方式
	code, res = e.call(e.api, http.MethodGet, "/api/v1/needs?category=transport&sort=budget_high", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, string(res.Data), "ann@example.com")
	assert.NotContains(t, string(res.Data), "+254711111111")
	assert.Contains(t, string(res.Data), need.ID)

	code, _ = e.call(e.api, http.MethodGet, "/api/v1/needs/"+need.ID, "", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = e.call(e.api, http.MethodGet, "/api/v1/needs/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	// 解锁
	unlock := "/api/v1/needs/" + need.ID + "/unlock"
	code, _ = e.call(e.api, http.MethodPost, unlock, "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = e.call(e.api, http.MethodPost, unlock, "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = e.call(e.api, http.MethodPost, unlock, askerTok, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, res = e.call(e.api, http.MethodPost, unlock, fulTok, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, res.Error, "insufficient credits")

	code, res = e.call(e.api, http.MethodPost, "/api/v1/credits", fulTok, gin.H{"amountPaid": 300, "paymentCode": "MPX7Y8Z9"})
	require.Equal(t, http.StatusOK, code, res.Error)
	assert.JSONEq(t, `{"credits":3,"added":3}`, string(res.Data))
	code, _ = e.call(e.api, http.MethodPost, "/api/v1/credits", fulTok, gin.H{"amountPaid": 300, "paymentCode": "MPX7Y8Z9"})
	assert.Equal(t, http.StatusConflict, code)
	code, _ = e.call(e.api, http.MethodPost, "/api/v1/credits", fulTok, gin.H{"amountPaid": 300, "paymentCode": "bad"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, res = e.call(e.api, http.MethodPost, unlock, fulTok, nil)
	require.Equal(t, http.StatusOK, code, res.Error)
	var un service.UnlockResult
	require.NoError(t, json.Unmarshal(res.Data, &un))
	assert.Equal(t, "+254711111111", un.Contact.Phone)
	assert.EqualValues(t, 2, un.Credits)

	code, _ = e.call(e.api, http.MethodPost, unlock, fulTok, nil)
	assert.Equal(t, http.StatusBadRequest, code, "already unlocked")

	code, res = e.call(e.api, http.MethodGet, "/api/v1/needs/unlocked", fulTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(res.Data), "+254711111111")

	code, res = e.call(e.api, http.MethodGet, "/api/v1/dashboard/stats", fulTok, nil)
	require.Equal(t, http.StatusOK, code)
	var stats service.Stats
	require.NoError(t, json.Unmarshal(res.Data, &stats))
	require.NotNil(t, stats.Fulfiller)
	assert.EqualValues(t, 1, stats.Fulfiller.UnlockedNeeds)
	assert.EqualValues(t, 2, stats.Fulfiller.Credits)

	code, res = e.call(e.api, http.MethodGet, "/api/v1/transactions", fulTok, nil)
	require.Equal(t, http.StatusOK, code)
	var page service.TxPage
	require.NoError(t, json.Unmarshal(res.Data, &page))
	assert.EqualValues(t, 2, page.Total)

	code, _ = e.call(e.api, http.MethodGet, "/api/v1/me", askerTok, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAdminRefund(t *testing.T) {
	e := newEnv(t)
	ctx := t.Context()
	require.NoError(t, e.svc.Users.EnsureAdmin(ctx, "root@example.com", "", "admin-password"))
	admin, err := e.svc.Users.Login(ctx, "root@example.com", "admin-password")
	require.NoError(t, err)

	askerTok, _ := e.register("asker", "ann@example.com", "+254711111111")
	fulTok, fulID := e.register("fulfiller", "fred@example.com", "+254722222222")
	_, res := e.call(e.api, http.MethodPost, "/api/v1/needs", askerTok, gin.H{
		"title": "Cat sitter", "description": "weekend", "budget": 100, "category": "pets", "location": "Lavington",
	})
	var need struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &need))
	_, _ = e.call(e.api, http.MethodPost, "/api/v1/credits", fulTok, gin.H{"amountPaid": 100, "paymentCode": "MPREFUND1"})
	code, _ := e.call(e.api, http.MethodPost, "/api/v1/needs/"+need.ID+"/unlock", fulTok, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = e.call(e.admin, http.MethodGet, "/admin/v1/transactions", fulTok, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, res = e.call(e.admin, http.MethodGet, "/admin/v1/transactions?type=unlock&userId="+fulID, admin.Token, nil)
	require.Equal(t, http.StatusOK, code)
	var page service.TxPage
	require.NoError(t, json.Unmarshal(res.Data, &page))
	require.Len(t, page.Items, 1)

	refund := "/admin/v1/transactions/" + page.Items[0].ID + "/refund"
	code, res = e.call(e.admin, http.MethodPost, refund, admin.Token, nil)
	require.Equal(t, http.StatusOK, code, res.Error)
	code, _ = e.call(e.admin, http.MethodPost, refund, admin.Token, nil)
	assert.Equal(t, http.StatusConflict, code)

	me, err := e.svc.Users.Me(ctx, fulID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, me.Credits)

	code, res = e.call(e.admin, http.MethodGet, "/admin/v1/users?q=fred", admin.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(res.Data), "fred@example.com")

	code, res = e.call(e.admin, http.MethodPost, "/admin/v1/needs/sweep", admin.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"removed":0}`, string(res.Data))
}
