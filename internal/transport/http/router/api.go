package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"needboard/internal/core/auth"
	"needboard/internal/core/config"
	"needboard/internal/core/server"
	"needboard/internal/service"
	"needboard/internal/transport/http/handler"
	mdw "needboard/internal/transport/http/middleware"
)

// Services 路由需要的全部 service，由 main 组装
type Services struct {
	Users     *service.UserService
	Needs     *service.NeedService
	Unlocks   *service.UnlockService
	Dashboard *service.DashboardService
	Ledger    *service.LedgerService
	Sweeper   *service.Sweeper
}

type Deps struct {
	Log    *zap.Logger
	JWT    *auth.JWTer
	HTTP   config.HTTP
	Server server.Options
	Svc    Services
}

func baseChain(r *gin.Engine, d Deps) {
	h := d.HTTP
	chain := []gin.HandlerFunc{
		mdw.RequestID(),
		mdw.Recovery(d.Log),
	}
	if h.RateLimitRPS > 0 {
		chain = append(chain, mdw.RateLimit(rate.Limit(h.RateLimitRPS), max(1, h.RateLimitBurst)))
	}
	if h.PerIPRPS > 0 {
		chain = append(chain, mdw.RateLimitPerIP(rate.Limit(h.PerIPRPS), max(1, h.PerIPBurst)))
	}
	if h.MaxConcurrent > 0 {
		chain = append(chain, mdw.ConcurrencyLimit(h.MaxConcurrent))
	}
	if h.MaxBodyBytes > 0 {
		chain = append(chain, mdw.MaxBodyBytes(h.MaxBodyBytes))
	}
	if h.RequestTimeoutSec > 0 {
		chain = append(chain, mdw.Timeout(time.Duration(h.RequestTimeoutSec)*time.Second))
	}
	chain = append(chain, mdw.Metrics(), mdw.AccessLog(d.Log))
	r.Use(chain...)

	// 健康检查
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func NewAPIEngine(d Deps) *gin.Engine {
	r := server.NewEngine(d.Server)
	baseChain(r, d)

	base := handler.Base{JWT: d.JWT, Log: d.Log}
	reg := (&Registry{}).Register(
		handler.Auth{Base: base, Users: d.Svc.Users},
		handler.Needs{Base: base, Needs: d.Svc.Needs, Unlocks: d.Svc.Unlocks},
		handler.Account{Base: base, Unlocks: d.Svc.Unlocks, Ledger: d.Svc.Ledger, Dashboard: d.Svc.Dashboard},
	)
	reg.MountAPI(r.Group("/api/v1"))
	return r
}
