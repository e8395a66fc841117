package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"needboard/internal/domain"
	"needboard/internal/service"
	"needboard/internal/transport/http/ez"
)

// Account 当前用户的 credits、账本和看板
type Account struct {
	Base
	Unlocks   *service.UnlockService
	Ledger    *service.LedgerService
	Dashboard *service.DashboardService
}

func (h Account) MountAPI(api *gin.RouterGroup) {
	auth := h.authed(api)

	type creditsIn struct {
		AmountPaid  int64  `json:"amountPaid"  binding:"required"`
		PaymentCode string `json:"paymentCode" binding:"max=64"`
	}
	ez.RegisterAction(auth, ez.Action[creditsIn, *service.CreditResult]{
		Method: http.MethodPost,
		Path:   "/credits",
		Binder: ez.BindJSON,
		Auth:   true,
		Roles:  fulfillerOnly,
		Handler: func(c *gin.Context, in *creditsIn) (*service.CreditResult, error) {
			return h.Unlocks.AddCredits(c.Request.Context(), ez.UserID(c), in.AmountPaid, strings.TrimSpace(in.PaymentCode))
		},
	})

	type txQ struct {
		Type string `form:"type"`
		Paging
	}
	ez.RegisterAction(auth, ez.Action[txQ, *service.TxPage]{
		Method: http.MethodGet,
		Path:   "/transactions",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *txQ) (*service.TxPage, error) {
			off, lim := in.offsetLimit()
			return h.Ledger.List(c.Request.Context(), domain.TxFilter{
				User: ez.UserID(c), Type: domain.TxType(in.Type), Offset: off, Limit: lim,
			})
		},
	})

	ez.RegisterAction(auth, ez.Action[struct{}, *service.Stats]{
		Method: http.MethodGet,
		Path:   "/dashboard/stats",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*service.Stats, error) {
			return h.Dashboard.Stats(c.Request.Context(), ez.UserID(c))
		},
	})
}
