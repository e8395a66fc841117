package user

import (
	"time"

	"needboard/internal/domain"
)

type UserModel struct {
	ID            string  `gorm:"primaryKey;size:36"`
	Email         string  `gorm:"uniqueIndex;size:191;not null"`
	Phone         string  `gorm:"uniqueIndex;size:32;not null"`
	PasswordHash  string  `gorm:"size:100;not null"`
	Role          string  `gorm:"size:16;not null;index"`
	Name          string  `gorm:"size:64;not null"`
	Location      string  `gorm:"size:128"`
	Bio           string  `gorm:"size:512"`
	Credits       int64   `gorm:"not null;default:0"`
	Rating        float64 `gorm:"not null;default:5"`
	CompletedJobs int64   `gorm:"not null;default:0"`
	IsVerified    bool    `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string { return "users" }

func FromDomain(u *domain.User) *UserModel {
	return &UserModel{
		ID: u.ID, Email: u.Email, Phone: u.Phone, PasswordHash: u.PasswordHash,
		Role: string(u.Role), Name: u.Name, Location: u.Location, Bio: u.Bio,
		Credits: u.Credits, Rating: u.Rating, CompletedJobs: u.CompletedJobs,
		IsVerified: u.IsVerified, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func (m *UserModel) ToDomain() *domain.User {
	return &domain.User{
		ID: m.ID, Email: m.Email, Phone: m.Phone, PasswordHash: m.PasswordHash,
		Role: domain.Role(m.Role), Name: m.Name, Location: m.Location, Bio: m.Bio,
		Credits: m.Credits, Rating: m.Rating, CompletedJobs: m.CompletedJobs,
		IsVerified: m.IsVerified, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}
