package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"needboard/internal/domain"
	"needboard/internal/service"
)

func TestPostNeedValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asker := f.user(t, domain.RoleAsker, 0)
	ful := f.user(t, domain.RoleFulfiller, 0)

	valid := service.PostNeedInput{
		Title: "Dog walker", Description: "Two walks a day", Budget: 0,
		Category: "pets", Location: "Kilimani",
	}
	cases := []struct {
		name  string
		edit  func(*service.PostNeedInput)
		field string
	}{
		{"title", func(in *service.PostNeedInput) { in.Title = "  " }, "title"},
		{"first violation wins", func(in *service.PostNeedInput) { in.Description = ""; in.Budget = -1 }, "description"},
		{"location", func(in *service.PostNeedInput) { in.Location = "" }, "location"},
		{"category", func(in *service.PostNeedInput) { in.Category = "boats" }, "category"},
		{"timeframe", func(in *service.PostNeedInput) { in.Timeframe = "someday" }, "timeframe"},
		{"budget", func(in *service.PostNeedInput) { in.Budget = -5 }, "budget"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			in := valid
			c.edit(&in)
			_, err := f.needs.Post(ctx, asker.ID, in)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, c.field, ve.Field)
		})
	}

	_, err := f.needs.Post(ctx, ful.ID, valid)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	n, err := f.needs.Post(ctx, asker.ID, valid)
	require.NoError(t, err)
	assert.Equal(t, domain.NeedActive, n.Status)
	assert.Equal(t, domain.TimeframeFlexible, n.Timeframe)
	assert.WithinDuration(t, f.clock.Now().Add(30*24*time.Hour), n.ExpiresAt, time.Second)

	mine, err := f.needs.Mine(ctx, asker.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestListNeedsHidesContactAndExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asker := f.user(t, domain.RoleAsker, 0)
	ful := f.user(t, domain.RoleFulfiller, 5)

	old := f.need(t, asker.ID)
	f.clock.Advance(20 * 24 * time.Hour)
	fresh := f.need(t, asker.ID)
	_, err := f.unlocks.Unlock(ctx, fresh.ID, ful.ID)
	require.NoError(t, err)

	page, err := f.needs.List(ctx, service.ListNeedsInput{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	assert.Equal(t, fresh.ID, page.Needs[0].ID, "newest first")
	assert.Equal(t, 1, page.Needs[0].UnlockCount)

	raw, err := json.Marshal(page)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), asker.Phone)
	assert.NotContains(t, string(raw), asker.Email)
	assert.NotContains(t, string(raw), ful.ID)

	f.clock.Advance(11 * 24 * time.Hour)
	page, err = f.needs.List(ctx, service.ListNeedsInput{})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	assert.NotEqual(t, old.ID, page.Needs[0].ID)
}

func TestListNeedsPaginationAndValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asker := f.user(t, domain.RoleAsker, 0)
	for i := 0; i < 5; i++ {
		f.need(t, asker.ID)
	}

	page, err := f.needs.List(ctx, service.ListNeedsInput{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Needs, 2)
	assert.Equal(t, 3, page.Pages)
	assert.EqualValues(t, 5, page.Total)

	page, err = f.needs.List(ctx, service.ListNeedsInput{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 100, page.Limit)

	_, err = f.needs.List(ctx, service.ListNeedsInput{Sort: "cheapest"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	lo, hi := int64(10), int64(5)
	_, err = f.needs.List(ctx, service.ListNeedsInput{MinBudget: &lo, MaxBudget: &hi})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetNeed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asker := f.user(t, domain.RoleAsker, 0)
	n := f.need(t, asker.ID)

	got, err := f.needs.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.Title, got.Title)

	_, err = f.needs.Get(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOfferLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asker := f.user(t, domain.RoleAsker, 0)
	other := f.user(t, domain.RoleAsker, 0)
	a := f.user(t, domain.RoleFulfiller, 2)
	b := f.user(t, domain.RoleFulfiller, 2)
	n := f.need(t, asker.ID)

	_, err := f.needs.MakeOffer(ctx, n.ID, a.ID, service.OfferInput{Amount: 1200})
	require.ErrorIs(t, err, domain.ErrForbidden, "offer requires unlock")

	for _, u := range []*domain.User{a, b} {
		_, err = f.unlocks.Unlock(ctx, n.ID, u.ID)
		require.NoError(t, err)
	}
	oa, err := f.needs.MakeOffer(ctx, n.ID, a.ID, service.OfferInput{Amount: 1200, Message: "today"})
	require.NoError(t, err)
	_, err = f.needs.MakeOffer(ctx, n.ID, a.ID, service.OfferInput{Amount: 1100})
	require.ErrorIs(t, err, domain.ErrConflict)
	ob, err := f.needs.MakeOffer(ctx, n.ID, b.ID, service.OfferInput{Amount: 1400})
	require.NoError(t, err)

	unlocked, err := f.needs.Unlocked(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	require.NotNil(t, unlocked[0].MyOffer)
	assert.Equal(t, oa.ID, unlocked[0].MyOffer.ID)
	assert.Equal(t, asker.Phone, unlocked[0].Contact.Phone)

	_, err = f.needs.AcceptOffer(ctx, n.ID, other.ID, oa.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.needs.Complete(ctx, n.ID, asker.ID)
	require.ErrorIs(t, err, domain.ErrConflict, "nothing accepted yet")

	view, err := f.needs.AcceptOffer(ctx, n.ID, asker.ID, oa.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, view.SelectedFulfiller)
	for _, o := range view.Offers {
		if o.ID == ob.ID {
			assert.Equal(t, domain.OfferRejected, o.Status)
		} else {
			assert.Equal(t, domain.OfferAccepted, o.Status)
		}
	}

	view, err = f.needs.Complete(ctx, n.ID, asker.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NeedFulfilled, view.Status)

	stats, err := f.dashboard.Stats(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, stats.Fulfiller)
	assert.EqualValues(t, 1200, stats.Fulfiller.Earnings)
	assert.EqualValues(t, 1, stats.Fulfiller.CompletedJobs)
	assert.EqualValues(t, 1, stats.Fulfiller.UnlockedNeeds)
	assert.EqualValues(t, 1, stats.Fulfiller.Credits)

	stats, err = f.dashboard.Stats(ctx, asker.ID)
	require.NoError(t, err)
	require.NotNil(t, stats.Asker)
	assert.EqualValues(t, 1, stats.Asker.CompletedNeeds)
	assert.EqualValues(t, 0, stats.Asker.ActiveNeeds)
	assert.EqualValues(t, 2, stats.Asker.UnlocksReceived)
	assert.EqualValues(t, 2, stats.Asker.OffersReceived)

	_, err = f.needs.Cancel(ctx, n.ID, asker.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCancelNeed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asker := f.user(t, domain.RoleAsker, 0)
	n := f.need(t, asker.ID)

	v, err := f.needs.Cancel(ctx, n.ID, asker.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NeedCancelled, v.Status)

	page, err := f.needs.List(ctx, service.ListNeedsInput{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	stats, err := f.dashboard.Stats(ctx, asker.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Asker.CancelledNeeds)
}
