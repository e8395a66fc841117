// Package handler 把 service 以 ez.Action 的形式挂到路由上
package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"needboard/internal/core/auth"
	"needboard/internal/domain"
	"needboard/internal/transport/http/ez"
	mdw "needboard/internal/transport/http/middleware"
)

// Base 各模块共用：日志和 token 校验
type Base struct {
	JWT *auth.JWTer
	Log *zap.Logger
}

func (b Base) public(g *gin.RouterGroup) ez.EZ { return ez.New(g, b.Log) }

func (b Base) authed(g *gin.RouterGroup) ez.EZ {
	return ez.New(g.Group("", mdw.AuthJWT(b.JWT)), b.Log)
}

var (
	askerOnly     = []string{string(domain.RoleAsker)}
	fulfillerOnly = []string{string(domain.RoleFulfiller)}
)

// Paging 公共分页参数；page 从 1 开始
type Paging struct {
	Page  int `form:"page,default=1"`
	Limit int `form:"limit,default=20"`
}

func (p Paging) offsetLimit() (int, int) {
	if p.Limit < 1 || p.Limit > 100 {
		p.Limit = 20
	}
	if p.Page < 1 {
		p.Page = 1
	}
	return (p.Page - 1) * p.Limit, p.Limit
}
