package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"needboard/internal/core/auth"
	"needboard/internal/domain"
	"needboard/pkg/utils"
)

const minPasswordLen = 8

type UserService struct {
	d   Deps
	jwt *auth.JWTer
}

func NewUserService(d Deps, jwt *auth.JWTer) *UserService {
	return &UserService{d: d.withDefaults(), jwt: jwt}
}

type RegisterInput struct {
	Role     string
	Email    string
	Phone    string
	Password string
	Name     string
	Location string
	Bio      string
}

type AuthResult struct {
	Token string             `json:"token"`
	User  domain.UserProfile `json:"user"`
}

func (in *RegisterInput) normalize() {
	in.Role = strings.TrimSpace(strings.ToLower(in.Role))
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	in.Bio = strings.TrimSpace(in.Bio)
}

func (in *RegisterInput) validate() error {
	switch domain.Role(in.Role) {
	case domain.RoleAsker, domain.RoleFulfiller:
	default:
		return domain.Invalid("role", "must be asker or fulfiller")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil || in.Email == "" {
		return domain.Invalid("email", "must be a valid email address")
	}
	if in.Phone == "" {
		return domain.Invalid("phone", "is required")
	}
	if len(in.Password) < minPasswordLen {
		return domain.Invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}
	if in.Name == "" {
		return domain.Invalid("name", "is required")
	}
	return nil
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	taken, err := s.d.Store.Users().ExistsByEmailOrPhone(ctx, in.Email, in.Phone)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("email or phone already registered: %w", domain.ErrAlreadyExists)
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		ID:           utils.NewID(),
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: hash,
		Role:         domain.Role(in.Role),
		Name:         in.Name,
		Location:     in.Location,
		Bio:          in.Bio,
		Rating:       domain.DefaultRating,
	}
	// 并发注册由唯一索引兜底，返回 ErrAlreadyExists
	if err := s.d.Store.Users().Create(ctx, u); err != nil {
		return nil, err
	}
	s.d.Log.Info("user registered", zap.String("uid", u.ID), zap.String("role", in.Role))
	return s.issue(u)
}

func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	u, err := s.d.Store.Users().FindByEmail(ctx, email)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if u == nil || !utils.CheckPassword(password, u.PasswordHash) {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	return s.issue(u)
}

func (s *UserService) issue(u *domain.User) (*AuthResult, error) {
	tok, err := s.jwt.Issue(u.ID, string(u.Role))
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: tok, User: u.Profile()}, nil
}

func (s *UserService) Me(ctx context.Context, uid string) (*domain.UserProfile, error) {
	u, err := s.d.Store.Users().FindByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	p := u.Profile()
	return &p, nil
}

func (s *UserService) List(ctx context.Context, f domain.UserFilter) ([]domain.UserProfile, int64, error) {
	us, total, err := s.d.Store.Users().List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.UserProfile, 0, len(us))
	for i := range us {
		out = append(out, us[i].Profile())
	}
	return out, total, nil
}

// EnsureAdmin 管理端启动时调用；账号已存在则什么都不做
func (s *UserService) EnsureAdmin(ctx context.Context, email, phone, password string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil
	}
	_, err := s.d.Store.Users().FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return err
	}
	if len(password) < minPasswordLen {
		return domain.Invalid("password", "bootstrap admin password too short")
	}
	if phone == "" {
		phone = "admin:" + email
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	err = s.d.Store.Users().Create(ctx, &domain.User{
		ID: utils.NewID(), Email: email, Phone: phone, PasswordHash: hash,
		Role: domain.RoleAdmin, Name: "admin", Rating: domain.DefaultRating, IsVerified: true,
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return nil
	}
	if err == nil {
		s.d.Log.Info("bootstrap admin created", zap.String("email", email))
	}
	return err
}
