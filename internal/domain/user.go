package domain

import (
	"context"
	"time"
)

type Role string

const (
	RoleAsker     Role = "asker"
	RoleFulfiller Role = "fulfiller"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAsker, RoleFulfiller, RoleAdmin:
		return true
	}
	return false
}

const DefaultRating = 5.0

type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	PasswordHash  string    `json:"-"`
	Role          Role      `json:"role"`
	Name          string    `json:"name"`
	Location      string    `json:"location"`
	Bio           string    `json:"bio"`
	Credits       int64     `json:"credits"`
	Rating        float64   `json:"rating"`
	CompletedJobs int64     `json:"completedJobs"`
	IsVerified    bool      `json:"isVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type UserFilter struct {
	Q      string // email/name/phone 模糊
	Role   Role
	Offset int
	Limit  int
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// ExistsByEmailOrPhone 注册前的唯一性检查
	ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error)
	List(ctx context.Context, f UserFilter) ([]User, int64, error)
	// AdjustCredits 条件更新：credits+delta < 0 时返回 ErrInsufficientCredits，不做修改
	AdjustCredits(ctx context.Context, id string, delta int64) (int64, error)
	IncrementCompletedJobs(ctx context.Context, id string) error
}
