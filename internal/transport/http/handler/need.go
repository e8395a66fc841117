package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"needboard/internal/domain"
	"needboard/internal/service"
	"needboard/internal/transport/http/ez"
)

type Needs struct {
	Base
	Needs   *service.NeedService
	Unlocks *service.UnlockService
}

func (h Needs) MountAPI(api *gin.RouterGroup) {
	pub := h.public(api)
	auth := h.authed(api)

	type listQ struct {
		Category  string `form:"category"`
		Location  string `form:"location"`
		MinBudget *int64 `form:"minBudget"`
		MaxBudget *int64 `form:"maxBudget"`
		Sort      string `form:"sort"`
		Paging
	}
	ez.RegisterAction(pub, ez.Action[listQ, *service.NeedPage]{
		Method: http.MethodGet,
		Path:   "/needs",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *listQ) (*service.NeedPage, error) {
			return h.Needs.List(c.Request.Context(), service.ListNeedsInput{
				Category: in.Category, Location: in.Location,
				MinBudget: in.MinBudget, MaxBudget: in.MaxBudget,
				Sort: in.Sort, Page: in.Page, Limit: in.Limit,
			})
		},
	})

	// 静态路径先于 /needs/:id 注册
	ez.RegisterAction(auth, ez.Action[struct{}, []domain.OwnerNeed]{
		Method: http.MethodGet,
		Path:   "/needs/mine",
		Binder: ez.BindNone,
		Auth:   true,
		Roles:  askerOnly,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.OwnerNeed, error) {
			return h.Needs.Mine(c.Request.Context(), ez.UserID(c))
		},
	})
	ez.RegisterAction(auth, ez.Action[struct{}, []service.UnlockedNeed]{
		Method: http.MethodGet,
		Path:   "/needs/unlocked",
		Binder: ez.BindNone,
		Auth:   true,
		Roles:  fulfillerOnly,
		Handler: func(c *gin.Context, _ *struct{}) ([]service.UnlockedNeed, error) {
			return h.Needs.Unlocked(c.Request.Context(), ez.UserID(c))
		},
	})

	ez.RegisterAction(pub, ez.Action[struct{}, *domain.PublicNeed]{
		Method: http.MethodGet,
		Path:   "/needs/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.PublicNeed, error) {
			return h.Needs.Get(c.Request.Context(), c.Param("id"))
		},
	})

	type postIn struct {
		Title       string `json:"title"       binding:"max=200"`
		Description string `json:"description" binding:"max=5000"`
		Budget      int64  `json:"budget"`
		Category    string `json:"category"`
		Location    string `json:"location"    binding:"max=200"`
		Timeframe   string `json:"timeframe"`
	}
	ez.RegisterAction(auth, ez.Action[postIn, *domain.PublicNeed]{
		Method: http.MethodPost,
		Path:   "/needs",
		Binder: ez.BindJSON,
		Auth:   true,
		Roles:  askerOnly,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *postIn) (*domain.PublicNeed, error) {
			return h.Needs.Post(c.Request.Context(), ez.UserID(c), service.PostNeedInput{
				Title: in.Title, Description: in.Description, Budget: in.Budget,
				Category: in.Category, Location: in.Location, Timeframe: in.Timeframe,
			})
		},
	})

	ez.RegisterAction(auth, ez.Action[struct{}, *service.UnlockResult]{
		Method: http.MethodPost,
		Path:   "/needs/:id/unlock",
		Binder: ez.BindNone,
		Auth:   true,
		Roles:  fulfillerOnly,
		Handler: func(c *gin.Context, _ *struct{}) (*service.UnlockResult, error) {
			return h.Unlocks.Unlock(c.Request.Context(), c.Param("id"), ez.UserID(c))
		},
	})

	type offerIn struct {
		Amount  int64  `json:"amount"  binding:"min=0"`
		Message string `json:"message" binding:"max=1000"`
	}
	ez.RegisterAction(auth, ez.Action[offerIn, *domain.Offer]{
		Method: http.MethodPost,
		Path:   "/needs/:id/offers",
		Binder: ez.BindJSON,
		Auth:   true,
		Roles:  fulfillerOnly,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *offerIn) (*domain.Offer, error) {
			return h.Needs.MakeOffer(c.Request.Context(), c.Param("id"), ez.UserID(c),
				service.OfferInput{Amount: in.Amount, Message: in.Message})
		},
	})

	ownerAction := func(path string, run func(c *gin.Context) (*domain.OwnerNeed, error)) {
		ez.RegisterAction(auth, ez.Action[struct{}, *domain.OwnerNeed]{
			Method: http.MethodPost,
			Path:   path,
			Binder: ez.BindNone,
			Auth:   true,
			Roles:  askerOnly,
			Handler: func(c *gin.Context, _ *struct{}) (*domain.OwnerNeed, error) {
				return run(c)
			},
		})
	}
	ownerAction("/needs/:id/offers/:offerId/accept", func(c *gin.Context) (*domain.OwnerNeed, error) {
		return h.Needs.AcceptOffer(c.Request.Context(), c.Param("id"), ez.UserID(c), c.Param("offerId"))
	})
	ownerAction("/needs/:id/complete", func(c *gin.Context) (*domain.OwnerNeed, error) {
		return h.Needs.Complete(c.Request.Context(), c.Param("id"), ez.UserID(c))
	})
	ownerAction("/needs/:id/cancel", func(c *gin.Context) (*domain.OwnerNeed, error) {
		return h.Needs.Cancel(c.Request.Context(), c.Param("id"), ez.UserID(c))
	})
}
