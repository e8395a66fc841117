package router

import (
	"github.com/gin-gonic/gin"

	"needboard/internal/core/server"
	"needboard/internal/domain"
	"needboard/internal/transport/http/handler"
	mdw "needboard/internal/transport/http/middleware"
)

func NewAdminEngine(d Deps) *gin.Engine {
	r := server.NewEngine(d.Server)
	baseChain(r, d)

	// 管理端 v1（统一要求 admin 角色）
	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(d.JWT, string(domain.RoleAdmin)))

	reg := (&Registry{}).Register(
		handler.Admin{
			Base:    handler.Base{JWT: d.JWT, Log: d.Log},
			Users:   d.Svc.Users,
			Ledger:  d.Svc.Ledger,
			Sweeper: d.Svc.Sweeper,
		},
	)
	reg.MountAdmin(admin)
	return r
}
