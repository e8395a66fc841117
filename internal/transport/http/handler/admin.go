package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"needboard/internal/domain"
	"needboard/internal/service"
	"needboard/internal/transport/http/ez"
)

// Admin 管理端；分组已经走了 AuthJWT("admin")
type Admin struct {
	Base
	Users   *service.UserService
	Ledger  *service.LedgerService
	Sweeper *service.Sweeper
}

func (h Admin) MountAdmin(admin *gin.RouterGroup) {
	e := h.public(admin)

	type usersQ struct {
		Offset int    `form:"offset,default=0"`
		Limit  int    `form:"limit,default=20"`
		Q      string `form:"q"` // 按 email/name/phone 模糊搜
		Role   string `form:"role"`
	}
	type usersOut struct {
		Total int64                `json:"total"`
		Items []domain.UserProfile `json:"items"`
	}
	ez.RegisterAction(e, ez.Action[usersQ, usersOut]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *usersQ) (usersOut, error) {
			items, total, err := h.Users.List(c.Request.Context(), domain.UserFilter{
				Q: in.Q, Role: domain.Role(in.Role), Offset: in.Offset, Limit: in.Limit,
			})
			if err != nil {
				return usersOut{}, err
			}
			return usersOut{Total: total, Items: items}, nil
		},
	})

	type txQ struct {
		UserID string `form:"userId"`
		Type   string `form:"type"`
		Offset int    `form:"offset,default=0"`
		Limit  int    `form:"limit,default=20"`
	}
	ez.RegisterAction(e, ez.Action[txQ, *service.TxPage]{
		Method: http.MethodGet,
		Path:   "/transactions",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *txQ) (*service.TxPage, error) {
			return h.Ledger.List(c.Request.Context(), domain.TxFilter{
				User: in.UserID, Type: domain.TxType(in.Type), Offset: in.Offset, Limit: in.Limit,
			})
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, *service.RefundResult]{
		Method: http.MethodPost,
		Path:   "/transactions/:id/refund",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*service.RefundResult, error) {
			return h.Ledger.Refund(c.Request.Context(), c.Param("id"), ez.UserID(c))
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/needs/sweep",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			n, err := h.Sweeper.SweepOnce(c.Request.Context())
			if err != nil {
				return nil, ez.Internal("sweep failed", err)
			}
			return gin.H{"removed": n}, nil
		},
	})
}
