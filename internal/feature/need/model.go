package need

import (
	"time"

	"needboard/internal/domain"
)

type NeedModel struct {
	ID                string    `gorm:"primaryKey;size:36"`
	UserID            string    `gorm:"size:36;not null;index"`
	Title             string    `gorm:"size:160;not null"`
	Description       string    `gorm:"type:text;not null"`
	Budget            int64     `gorm:"not null;default:0;index"`
	Category          string    `gorm:"size:16;not null;index"`
	Location          string    `gorm:"size:128;not null"`
	Timeframe         string    `gorm:"size:16;not null"`
	Status            string    `gorm:"size:16;not null;index:idx_needs_status_created,priority:1"`
	SelectedFulfiller string    `gorm:"size:36"`
	ExpiresAt         time.Time `gorm:"not null;index"`

	Unlocks []UnlockModel `gorm:"foreignKey:NeedID"`
	Offers  []OfferModel  `gorm:"foreignKey:NeedID"`

	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_needs_status_created,priority:2"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (NeedModel) TableName() string { return "needs" }

// UnlockModel 复合主键保证同一 fulfiller 只出现一次
type UnlockModel struct {
	NeedID      string    `gorm:"primaryKey;size:36"`
	FulfillerID string    `gorm:"primaryKey;size:36;index"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (UnlockModel) TableName() string { return "need_unlocks" }

type OfferModel struct {
	ID          string    `gorm:"primaryKey;size:36"`
	NeedID      string    `gorm:"size:36;not null;uniqueIndex:idx_offers_need_fulfiller,priority:1"`
	FulfillerID string    `gorm:"size:36;not null;uniqueIndex:idx_offers_need_fulfiller,priority:2"`
	Amount      int64     `gorm:"not null;default:0"`
	Message     string    `gorm:"size:1000"`
	Status      string    `gorm:"size:16;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (OfferModel) TableName() string { return "need_offers" }

func FromDomain(n *domain.Need) *NeedModel {
	return &NeedModel{
		ID: n.ID, UserID: n.User, Title: n.Title, Description: n.Description,
		Budget: n.Budget, Category: string(n.Category), Location: n.Location,
		Timeframe: string(n.Timeframe), Status: string(n.Status),
		SelectedFulfiller: n.SelectedFulfiller, ExpiresAt: n.ExpiresAt,
		CreatedAt: n.CreatedAt, UpdatedAt: n.UpdatedAt,
	}
}

func OfferFromDomain(needID string, o *domain.Offer) *OfferModel {
	return &OfferModel{
		ID: o.ID, NeedID: needID, FulfillerID: o.Fulfiller, Amount: o.Amount,
		Message: o.Message, Status: string(o.Status), CreatedAt: o.CreatedAt,
	}
}

func (m *NeedModel) ToDomain() *domain.Need {
	n := &domain.Need{
		ID: m.ID, User: m.UserID, Title: m.Title, Description: m.Description,
		Budget: m.Budget, Category: domain.Category(m.Category), Location: m.Location,
		Timeframe: domain.Timeframe(m.Timeframe), Status: domain.NeedStatus(m.Status),
		SelectedFulfiller: m.SelectedFulfiller, ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
		UnlockedBy: make([]string, 0, len(m.Unlocks)),
		Offers:     make([]domain.Offer, 0, len(m.Offers)),
	}
	for _, u := range m.Unlocks {
		n.UnlockedBy = append(n.UnlockedBy, u.FulfillerID)
	}
	for _, o := range m.Offers {
		n.Offers = append(n.Offers, domain.Offer{
			ID: o.ID, Fulfiller: o.FulfillerID, Amount: o.Amount,
			Message: o.Message, Status: domain.OfferStatus(o.Status), CreatedAt: o.CreatedAt,
		})
	}
	return n
}
