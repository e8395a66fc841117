package domain

import (
	"context"
	"time"
)

type Category string

const (
	CategoryServices  Category = "services"
	CategoryProducts  Category = "products"
	CategoryRentals   Category = "rentals"
	CategoryPets      Category = "pets"
	CategoryTransport Category = "transport"
	CategoryOther     Category = "other"
)

var Categories = []Category{
	CategoryServices, CategoryProducts, CategoryRentals,
	CategoryPets, CategoryTransport, CategoryOther,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

type Timeframe string

const (
	TimeframeUrgent    Timeframe = "urgent"
	TimeframeToday     Timeframe = "today"
	TimeframeThisWeek  Timeframe = "this_week"
	TimeframeThisMonth Timeframe = "this_month"
	TimeframeFlexible  Timeframe = "flexible"
)

var Timeframes = []Timeframe{
	TimeframeUrgent, TimeframeToday, TimeframeThisWeek, TimeframeThisMonth, TimeframeFlexible,
}

func (t Timeframe) Valid() bool {
	for _, v := range Timeframes {
		if t == v {
			return true
		}
	}
	return false
}

type NeedStatus string

const (
	NeedActive    NeedStatus = "active"
	NeedFulfilled NeedStatus = "fulfilled"
	NeedExpired   NeedStatus = "expired"
	NeedCancelled NeedStatus = "cancelled"
)

type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
)

type Offer struct {
	ID        string      `json:"id"`
	Fulfiller string      `json:"fulfiller"`
	Amount    int64       `json:"amount"`
	Message   string      `json:"message"`
	Status    OfferStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

type Need struct {
	ID                string     `json:"id"`
	User              string     `json:"user"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Budget            int64      `json:"budget"`
	Category          Category   `json:"category"`
	Location          string     `json:"location"`
	Timeframe         Timeframe  `json:"timeframe"`
	Status            NeedStatus `json:"status"`
	UnlockedBy        []string   `json:"unlockedBy"`
	Offers            []Offer    `json:"offers"`
	SelectedFulfiller string     `json:"selectedFulfiller,omitempty"`
	ExpiresAt         time.Time  `json:"expiresAt"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (n *Need) IsUnlockedBy(fulfillerID string) bool {
	for _, id := range n.UnlockedBy {
		if id == fulfillerID {
			return true
		}
	}
	return false
}

// Open 可解锁/可报价：active 且未过期
func (n *Need) Open(now time.Time) bool {
	return n.Status == NeedActive && now.Before(n.ExpiresAt)
}

func (n *Need) FindOffer(id string) (*Offer, bool) {
	for i := range n.Offers {
		if n.Offers[i].ID == id {
			return &n.Offers[i], true
		}
	}
	return nil, false
}

func (n *Need) AcceptedOffer() (*Offer, bool) {
	for i := range n.Offers {
		if n.Offers[i].Status == OfferAccepted {
			return &n.Offers[i], true
		}
	}
	return nil, false
}

type NeedSort string

const (
	SortNewest     NeedSort = "newest"
	SortBudgetHigh NeedSort = "budget_high"
	SortBudgetLow  NeedSort = "budget_low"
	SortUrgent     NeedSort = "urgent"
)

func (s NeedSort) Valid() bool {
	switch s {
	case SortNewest, SortBudgetHigh, SortBudgetLow, SortUrgent:
		return true
	}
	return false
}

type NeedFilter struct {
	Category  Category
	Location  string
	MinBudget *int64
	MaxBudget *int64
	Sort      NeedSort
	Offset    int
	Limit     int
	Now       time.Time
}

type NeedCounts struct {
	Active    int64
	Fulfilled int64
	Cancelled int64
	Unlocks   int64
	Offers    int64
}

type NeedRepository interface {
	Create(ctx context.Context, n *Need) error
	FindByID(ctx context.Context, id string) (*Need, error)
	ListActive(ctx context.Context, f NeedFilter) ([]Need, int64, error)
	ListByOwner(ctx context.Context, askerID string) ([]Need, error)
	ListUnlockedBy(ctx context.Context, fulfillerID string) ([]Need, error)

	// AddUnlock 同一 fulfiller 重复写入返回 ErrAlreadyUnlocked
	AddUnlock(ctx context.Context, needID, fulfillerID string) error
	// AddOffer 同一 fulfiller 只允许一条 offer，重复返回 ErrConflict
	AddOffer(ctx context.Context, needID string, o *Offer) error
	AcceptOffer(ctx context.Context, needID, offerID, fulfillerID string) error
	// TransitionStatus 仅当当前状态为 from 时更新，否则 ErrConflict
	TransitionStatus(ctx context.Context, needID string, from, to NeedStatus) error

	CountsForOwner(ctx context.Context, askerID string) (NeedCounts, error)
	CountUnlockedBy(ctx context.Context, fulfillerID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
