package service

import (
	"context"

	"needboard/internal/domain"
)

type DashboardService struct{ d Deps }

func NewDashboardService(d Deps) *DashboardService {
	return &DashboardService{d: d.withDefaults()}
}

type AskerStats struct {
	ActiveNeeds     int64 `json:"activeNeeds"`
	CompletedNeeds  int64 `json:"completedNeeds"`
	CancelledNeeds  int64 `json:"cancelledNeeds"`
	UnlocksReceived int64 `json:"unlocksReceived"`
	OffersReceived  int64 `json:"offersReceived"`
}

type FulfillerStats struct {
	Credits       int64   `json:"credits"`
	UnlockedNeeds int64   `json:"unlockedNeeds"`
	CompletedJobs int64   `json:"completedJobs"`
	Earnings      int64   `json:"earnings"`
	Rating        float64 `json:"rating"`
}

// Stats 按角色返回其中一组统计；admin 两者都为空
type Stats struct {
	Role      domain.Role     `json:"role"`
	Asker     *AskerStats     `json:"asker,omitempty"`
	Fulfiller *FulfillerStats `json:"fulfiller,omitempty"`
}

func (s *DashboardService) Stats(ctx context.Context, uid string) (*Stats, error) {
	u, err := s.d.Store.Users().FindByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	out := &Stats{Role: u.Role}
	switch u.Role {
	case domain.RoleAsker:
		c, err := s.d.Store.Needs().CountsForOwner(ctx, uid)
		if err != nil {
			return nil, err
		}
		out.Asker = &AskerStats{
			ActiveNeeds:     c.Active,
			CompletedNeeds:  c.Fulfilled,
			CancelledNeeds:  c.Cancelled,
			UnlocksReceived: c.Unlocks,
			OffersReceived:  c.Offers,
		}
	case domain.RoleFulfiller:
		unlocked, err := s.d.Store.Needs().CountUnlockedBy(ctx, uid)
		if err != nil {
			return nil, err
		}
		earnings, err := s.d.Store.Transactions().Sum(ctx, uid, domain.TxJobCompleted, domain.TxCompleted)
		if err != nil {
			return nil, err
		}
		out.Fulfiller = &FulfillerStats{
			Credits:       u.Credits,
			UnlockedNeeds: unlocked,
			CompletedJobs: u.CompletedJobs,
			Earnings:      earnings,
			Rating:        u.Rating,
		}
	}
	return out, nil
}
