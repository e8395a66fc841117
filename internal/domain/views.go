package domain

import "time"

// UserProfile 对外用户信息（无密码）
type UserProfile struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Role          Role      `json:"role"`
	Name          string    `json:"name"`
	Location      string    `json:"location"`
	Bio           string    `json:"bio"`
	Credits       int64     `json:"credits"`
	Rating        float64   `json:"rating"`
	CompletedJobs int64     `json:"completedJobs"`
	IsVerified    bool      `json:"isVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (u *User) Profile() UserProfile {
	return UserProfile{
		ID: u.ID, Email: u.Email, Phone: u.Phone, Role: u.Role,
		Name: u.Name, Location: u.Location, Bio: u.Bio,
		Credits: u.Credits, Rating: u.Rating, CompletedJobs: u.CompletedJobs,
		IsVerified: u.IsVerified, CreatedAt: u.CreatedAt,
	}
}

// PublicNeed 公开列表/详情；不含提问者联系方式和 fulfiller 名单
type PublicNeed struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Budget      int64      `json:"budget"`
	Category    Category   `json:"category"`
	Location    string     `json:"location"`
	Timeframe   Timeframe  `json:"timeframe"`
	Status      NeedStatus `json:"status"`
	UnlockCount int        `json:"unlockCount"`
	OfferCount  int        `json:"offerCount"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (n *Need) Public() PublicNeed {
	return PublicNeed{
		ID: n.ID, Title: n.Title, Description: n.Description, Budget: n.Budget,
		Category: n.Category, Location: n.Location, Timeframe: n.Timeframe,
		Status: n.Status, UnlockCount: len(n.UnlockedBy), OfferCount: len(n.Offers),
		ExpiresAt: n.ExpiresAt, CreatedAt: n.CreatedAt,
	}
}

// OwnerNeed 提问者自己看到的需求（含报价）
type OwnerNeed struct {
	PublicNeed
	Offers            []Offer `json:"offers"`
	SelectedFulfiller string  `json:"selectedFulfiller,omitempty"`
}

func (n *Need) Owner() OwnerNeed {
	offers := n.Offers
	if offers == nil {
		offers = []Offer{}
	}
	return OwnerNeed{PublicNeed: n.Public(), Offers: offers, SelectedFulfiller: n.SelectedFulfiller}
}

// ContactInfo 解锁后返回
type ContactInfo struct {
	Name     string  `json:"name"`
	Phone    string  `json:"phone"`
	Email    string  `json:"email"`
	Location string  `json:"location"`
	Rating   float64 `json:"rating"`
}

func (u *User) Contact() ContactInfo {
	return ContactInfo{Name: u.Name, Phone: u.Phone, Email: u.Email, Location: u.Location, Rating: u.Rating}
}
