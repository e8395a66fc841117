package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"needboard/internal/domain"
	"needboard/internal/repo/repotest"
	"needboard/pkg/utils"
)

func seedNeed(t *testing.T, st domain.Store, mutate func(n *domain.Need)) *domain.Need {
	t.Helper()
	now := time.Now()
	n := &domain.Need{
		ID: utils.NewID(), User: "asker-1", Title: "Fix sink", Description: "leaking",
		Budget: 1000, Category: domain.CategoryServices, Location: "Nairobi West",
		Timeframe: domain.TimeframeFlexible, Status: domain.NeedActive,
		ExpiresAt: now.Add(30 * 24 * time.Hour),
	}
	if mutate != nil {
		mutate(n)
	}
	require.NoError(t, st.Needs().Create(context.Background(), n))
	return n
}

func TestAddUnlockRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	st := repotest.NewStore(t)
	n := seedNeed(t, st, nil)

	require.NoError(t, st.Needs().AddUnlock(ctx, n.ID, "f-1"))
	require.NoError(t, st.Needs().AddUnlock(ctx, n.ID, "f-2"))
	err := st.Needs().AddUnlock(ctx, n.ID, "f-1")
	require.ErrorIs(t, err, domain.ErrAlreadyUnlocked)

	got, err := st.Needs().FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"f-1", "f-2"}, got.UnlockedBy)
}

func TestFindByIDNotFound(t *testing.T) {
	st := repotest.NewStore(t)
	_, err := st.Needs().FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListActiveFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	st := repotest.NewStore(t)

	cheap := seedNeed(t, st, func(n *domain.Need) { n.Budget = 100; n.Location = "Westlands" })
	pricey := seedNeed(t, st, func(n *domain.Need) { n.Budget = 5000; n.Category = domain.CategoryPets })
	urgent := seedNeed(t, st, func(n *domain.Need) { n.Budget = 300; n.Timeframe = domain.TimeframeUrgent })
	seedNeed(t, st, func(n *domain.Need) { n.Status = domain.NeedCancelled })
	seedNeed(t, st, func(n *domain.Need) { n.ExpiresAt = time.Now().Add(-time.Minute) })

	ids := func(ns []domain.Need) []string {
		out := make([]string, 0, len(ns))
		for _, n := range ns {
			out = append(out, n.ID)
		}
		return out
	}

	all, total, err := st.Needs().ListActive(ctx, domain.NeedFilter{Sort: domain.SortBudgetHigh, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, []string{pricey.ID, urgent.ID, cheap.ID}, ids(all))

	low, _, err := st.Needs().ListActive(ctx, domain.NeedFilter{Sort: domain.SortBudgetLow, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{cheap.ID, urgent.ID, pricey.ID}, ids(low))

	urg, _, err := st.Needs().ListActive(ctx, domain.NeedFilter{Sort: domain.SortUrgent, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, urgent.ID, urg[0].ID)

	pets, total, err := st.Needs().ListActive(ctx, domain.NeedFilter{Category: domain.CategoryPets})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, pricey.ID, pets[0].ID)

	west, _, err := st.Needs().ListActive(ctx, domain.NeedFilter{Location: "WEST"})
	require.NoError(t, err)
	assert.Len(t, west, 3) // "Nairobi West" x2 + "Westlands"

	lo, hi := int64(200), int64(1000)
	mid, _, err := st.Needs().ListActive(ctx, domain.NeedFilter{MinBudget: &lo, MaxBudget: &hi})
	require.NoError(t, err)
	assert.Equal(t, []string{urgent.ID}, ids(mid))

	page2, total, err := st.Needs().ListActive(ctx, domain.NeedFilter{Sort: domain.SortBudgetHigh, Offset: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, []string{cheap.ID}, ids(page2))
}

func TestOffersAcceptAndCounts(t *testing.T) {
	ctx := context.Background()
	st := repotest.NewStore(t)
	n := seedNeed(t, st, nil)

	o1 := &domain.Offer{ID: utils.NewID(), Fulfiller: "f-1", Amount: 900, Status: domain.OfferPending}
	o2 := &domain.Offer{ID: utils.NewID(), Fulfiller: "f-2", Amount: 800, Status: domain.OfferPending}
	require.NoError(t, st.Needs().AddOffer(ctx, n.ID, o1))
	require.NoError(t, st.Needs().AddOffer(ctx, n.ID, o2))
	dup := &domain.Offer{ID: utils.NewID(), Fulfiller: "f-1", Amount: 1, Status: domain.OfferPending}
	require.ErrorIs(t, st.Needs().AddOffer(ctx, n.ID, dup), domain.ErrConflict)

	require.NoError(t, st.Needs().AcceptOffer(ctx, n.ID, o2.ID, "f-2"))
	require.ErrorIs(t, st.Needs().AcceptOffer(ctx, n.ID, o2.ID, "f-2"), domain.ErrConflict)

	got, err := st.Needs().FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "f-2", got.SelectedFulfiller)
	acc, ok := got.AcceptedOffer()
	require.True(t, ok)
	assert.Equal(t, o2.ID, acc.ID)
	first, _ := got.FindOffer(o1.ID)
	assert.Equal(t, domain.OfferRejected, first.Status)

	require.NoError(t, st.Needs().AddUnlock(ctx, n.ID, "f-1"))
	counts, err := st.Needs().CountsForOwner(ctx, "asker-1")
	require.NoError(t, err)
	assert.Equal(t, domain.NeedCounts{Active: 1, Unlocks: 1, Offers: 2}, counts)
}

func TestTransitionStatus(t *testing.T) {
	ctx := context.Background()
	st := repotest.NewStore(t)
	n := seedNeed(t, st, nil)

	require.NoError(t, st.Needs().TransitionStatus(ctx, n.ID, domain.NeedActive, domain.NeedCancelled))
	require.ErrorIs(t, st.Needs().TransitionStatus(ctx, n.ID, domain.NeedActive, domain.NeedFulfilled), domain.ErrConflict)
	require.ErrorIs(t, st.Needs().TransitionStatus(ctx, "nope", domain.NeedActive, domain.NeedFulfilled), domain.ErrNotFound)
}

func TestDeleteExpiredRemovesChildren(t *testing.T) {
	ctx := context.Background()
	st := repotest.NewStore(t)
	old := seedNeed(t, st, func(n *domain.Need) { n.ExpiresAt = time.Now().Add(-time.Hour) })
	fresh := seedNeed(t, st, nil)
	require.NoError(t, st.Needs().AddUnlock(ctx, old.ID, "f-1"))

	n, err := st.Needs().DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = st.Needs().FindByID(ctx, old.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = st.Needs().FindByID(ctx, fresh.ID)
	require.NoError(t, err)

	cnt, err := st.Needs().CountUnlockedBy(ctx, "f-1")
	require.NoError(t, err)
	assert.Zero(t, cnt)
}
