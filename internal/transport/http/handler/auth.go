package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"needboard/internal/domain"
	"needboard/internal/service"
	"needboard/internal/transport/http/ez"
)

type Auth struct {
	Base
	Users *service.UserService
}

func (Auth) Priority() int { return 10 }

func (h Auth) MountAPI(api *gin.RouterGroup) {
	pub := h.public(api)

	type registerIn struct {
		Role     string `json:"role"     binding:"required"`
		Email    string `json:"email"    binding:"required,max=254"`
		Phone    string `json:"phone"    binding:"required,max=32"`
		Password string `json:"password" binding:"required,max=128"`
		Name     string `json:"name"     binding:"required,max=64"`
		Location string `json:"location" binding:"max=128"`
		Bio      string `json:"bio"      binding:"max=1000"`
	}
	ez.RegisterAction(pub, ez.Action[registerIn, *service.AuthResult]{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Binder: ez.BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *registerIn) (*service.AuthResult, error) {
			return h.Users.Register(c.Request.Context(), service.RegisterInput{
				Role: in.Role, Email: in.Email, Phone: in.Phone, Password: in.Password,
				Name: in.Name, Location: in.Location, Bio: in.Bio,
			})
		},
	})

	type loginIn struct {
		Email    string `json:"email"    binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	ez.RegisterAction(pub, ez.Action[loginIn, *service.AuthResult]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *loginIn) (*service.AuthResult, error) {
			return h.Users.Login(c.Request.Context(), in.Email, in.Password)
		},
	})

	ez.RegisterAction(h.authed(api), ez.Action[struct{}, *domain.UserProfile]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.UserProfile, error) {
			return h.Users.Me(c.Request.Context(), ez.UserID(c))
		},
	})
}
