package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"needboard/internal/core/cache"
	"needboard/internal/core/events"
	"needboard/internal/core/metrics"
	"needboard/internal/domain"
	"needboard/pkg/utils"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type NeedService struct {
	d        Deps
	ttl      time.Duration
	cacheTTL time.Duration
}

// NewNeedService ttl 是需求有效期，cacheTTL 是公开详情在 redis 中的缓存时间
func NewNeedService(d Deps, ttl, cacheTTL time.Duration) *NeedService {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &NeedService{d: d.withDefaults(), ttl: ttl, cacheTTL: cacheTTL}
}

type PostNeedInput struct {
	Title       string
	Description string
	Budget      int64
	Category    string
	Location    string
	Timeframe   string
}

func (in *PostNeedInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	in.Category = strings.TrimSpace(strings.ToLower(in.Category))
	in.Timeframe = strings.TrimSpace(strings.ToLower(in.Timeframe))
	if in.Timeframe == "" {
		in.Timeframe = string(domain.TimeframeFlexible)
	}

	switch {
	case in.Title == "":
		return domain.Invalid("title", "is required")
	case in.Description == "":
		return domain.Invalid("description", "is required")
	case in.Location == "":
		return domain.Invalid("location", "is required")
	case in.Category == "":
		return domain.Invalid("category", "is required")
	case !domain.Category(in.Category).Valid():
		return domain.Invalid("category", "unknown category")
	case !domain.Timeframe(in.Timeframe).Valid():
		return domain.Invalid("timeframe", "unknown timeframe")
	case in.Budget < 0:
		return domain.Invalid("budget", "must be >= 0")
	}
	return nil
}

func (s *NeedService) Post(ctx context.Context, askerID string, in PostNeedInput) (*domain.PublicNeed, error) {
	if _, err := requireRole(ctx, s.d.Store.Users(), askerID, domain.RoleAsker); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.d.Now()
	n := &domain.Need{
		ID:          utils.NewID(),
		User:        askerID,
		Title:       in.Title,
		Description: in.Description,
		Budget:      in.Budget,
		Category:    domain.Category(in.Category),
		Location:    in.Location,
		Timeframe:   domain.Timeframe(in.Timeframe),
		Status:      domain.NeedActive,
		UnlockedBy:  []string{},
		Offers:      []domain.Offer{},
		ExpiresAt:   now.Add(s.ttl),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.d.Store.Needs().Create(ctx, n); err != nil {
		return nil, err
	}
	metrics.NeedsPosted.WithLabelValues(in.Category).Inc()
	p := n.Public()
	s.d.publish(ctx, events.SubjectNeedPosted, p)
	return &p, nil
}

type ListNeedsInput struct {
	Category  string
	Location  string
	MinBudget *int64
	MaxBudget *int64
	Sort      string
	Page      int
	Limit     int
}

type NeedPage struct {
	Needs []domain.PublicNeed `json:"needs"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
	Total int64               `json:"total"`
	Pages int                 `json:"pages"`
}

func (s *NeedService) List(ctx context.Context, in ListNeedsInput) (*NeedPage, error) {
	if in.Page < 1 {
		in.Page = 1
	}
	if in.Limit < 1 {
		in.Limit = defaultPageLimit
	}
	in.Limit = min(in.Limit, maxPageLimit)
	sort := domain.NeedSort(strings.ToLower(in.Sort))
	if sort == "" {
		sort = domain.SortNewest
	}
	if !sort.Valid() {
		return nil, domain.Invalid("sort", "must be newest, budget_high, budget_low or urgent")
	}
	cat := domain.Category(strings.ToLower(strings.TrimSpace(in.Category)))
	if cat != "" && !cat.Valid() {
		return nil, domain.Invalid("category", "unknown category")
	}
	if in.MinBudget != nil && in.MaxBudget != nil && *in.MinBudget > *in.MaxBudget {
		return nil, domain.Invalid("minBudget", "must not exceed maxBudget")
	}

	needs, total, err := s.d.Store.Needs().ListActive(ctx, domain.NeedFilter{
		Category:  cat,
		Location:  in.Location,
		MinBudget: in.MinBudget,
		MaxBudget: in.MaxBudget,
		Sort:      sort,
		Offset:    (in.Page - 1) * in.Limit,
		Limit:     in.Limit,
		Now:       s.d.Now(),
	})
	if err != nil {
		return nil, err
	}
	out := &NeedPage{
		Needs: make([]domain.PublicNeed, 0, len(needs)),
		Page:  in.Page,
		Limit: in.Limit,
		Total: total,
		Pages: int((total + int64(in.Limit) - 1) / int64(in.Limit)),
	}
	for i := range needs {
		out.Needs = append(out.Needs, needs[i].Public())
	}
	return out, nil
}

// Get 公开详情，走 redis 读穿缓存
func (s *NeedService) Get(ctx context.Context, id string) (*domain.PublicNeed, error) {
	return cache.GetOrLoadJSON(s.d.Cache, ctx, needKey(id), s.cacheTTL, func(ctx context.Context) (*domain.PublicNeed, error) {
		n, err := s.d.Store.Needs().FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		p := n.Public()
		return &p, nil
	})
}

func (s *NeedService) Mine(ctx context.Context, askerID string) ([]domain.OwnerNeed, error) {
	if _, err := requireRole(ctx, s.d.Store.Users(), askerID, domain.RoleAsker); err != nil {
		return nil, err
	}
	needs, err := s.d.Store.Needs().ListByOwner(ctx, askerID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.OwnerNeed, 0, len(needs))
	for i := range needs {
		out = append(out, needs[i].Owner())
	}
	return out, nil
}

// UnlockedNeed fulfiller 已付费的需求：附带联系方式和自己的报价
type UnlockedNeed struct {
	domain.PublicNeed
	Contact *domain.ContactInfo `json:"contact,omitempty"`
	MyOffer *domain.Offer       `json:"myOffer,omitempty"`
}

func (s *NeedService) Unlocked(ctx context.Context, fulfillerID string) ([]UnlockedNeed, error) {
	if _, err := requireRole(ctx, s.d.Store.Users(), fulfillerID, domain.RoleFulfiller); err != nil {
		return nil, err
	}
	needs, err := s.d.Store.Needs().ListUnlockedBy(ctx, fulfillerID)
	if err != nil {
		return nil, err
	}
	askers := map[string]*domain.User{}
	out := make([]UnlockedNeed, 0, len(needs))
	for i := range needs {
		n := &needs[i]
		item := UnlockedNeed{PublicNeed: n.Public()}
		a, ok := askers[n.User]
		if !ok {
			a, err = s.d.Store.Users().FindByID(ctx, n.User)
			if err != nil && !isNotFound(err) {
				return nil, err
			}
			askers[n.User] = a
		}
		if a != nil {
			c := a.Contact()
			item.Contact = &c
		}
		for j := range n.Offers {
			if n.Offers[j].Fulfiller == fulfillerID {
				o := n.Offers[j]
				item.MyOffer = &o
				break
			}
		}
		out = append(out, item)
	}
	return out, nil
}

type OfferInput struct {
	Amount  int64
	Message string
}

// MakeOffer 只有已解锁该需求的 fulfiller 才能报价，每人一条
func (s *NeedService) MakeOffer(ctx context.Context, needID, fulfillerID string, in OfferInput) (*domain.Offer, error) {
	if _, err := requireRole(ctx, s.d.Store.Users(), fulfillerID, domain.RoleFulfiller); err != nil {
		return nil, err
	}
	if in.Amount < 0 {
		return nil, domain.Invalid("amount", "must be >= 0")
	}
	n, err := s.d.Store.Needs().FindByID(ctx, needID)
	if err != nil {
		return nil, err
	}
	if !n.IsUnlockedBy(fulfillerID) {
		return nil, domainForbidden("unlock the need before making an offer")
	}
	if !n.Open(s.d.Now()) {
		return nil, conflict("need is closed")
	}
	o := &domain.Offer{
		ID:        utils.NewID(),
		Fulfiller: fulfillerID,
		Amount:    in.Amount,
		Message:   strings.TrimSpace(in.Message),
		Status:    domain.OfferPending,
		CreatedAt: s.d.Now(),
	}
	if err := s.d.Store.Needs().AddOffer(ctx, needID, o); err != nil {
		return nil, err
	}
	s.d.invalidateNeed(ctx, needID)
	return o, nil
}

// ownedActive 读取需求并校验归属与状态
func (s *NeedService) ownedActive(ctx context.Context, st domain.Store, needID, askerID string) (*domain.Need, error) {
	n, err := st.Needs().FindByID(ctx, needID)
	if err != nil {
		return nil, err
	}
	if n.User != askerID {
		return nil, domainForbidden("not your need")
	}
	if n.Status != domain.NeedActive {
		return nil, conflict("need is " + string(n.Status))
	}
	return n, nil
}

// AcceptOffer 接受一条 pending 报价，其余 pending 报价置为 rejected
func (s *NeedService) AcceptOffer(ctx context.Context, needID, askerID, offerID string) (*domain.OwnerNeed, error) {
	err := s.d.Store.WithinTx(ctx, func(ctx context.Context, st domain.Store) error {
		n, err := s.ownedActive(ctx, st, needID, askerID)
		if err != nil {
			return err
		}
		o, ok := n.FindOffer(offerID)
		if !ok {
			return fmtNotFound("offer " + offerID)
		}
		if o.Status != domain.OfferPending {
			return conflict("offer is " + string(o.Status))
		}
		return st.Needs().AcceptOffer(ctx, needID, offerID, o.Fulfiller)
	})
	if err != nil {
		return nil, err
	}
	s.d.invalidateNeed(ctx, needID)
	return s.reload(ctx, needID)
}

// Complete active -> fulfilled，同时给 fulfiller 记一笔 job_completed
func (s *NeedService) Complete(ctx context.Context, needID, askerID string) (*domain.OwnerNeed, error) {
	var accepted domain.Offer
	err := s.d.Store.WithinTx(ctx, func(ctx context.Context, st domain.Store) error {
		n, err := s.ownedActive(ctx, st, needID, askerID)
		if err != nil {
			return err
		}
		o, ok := n.AcceptedOffer()
		if !ok || n.SelectedFulfiller == "" {
			return conflict("no accepted offer")
		}
		accepted = *o
		if err := st.Needs().TransitionStatus(ctx, needID, domain.NeedActive, domain.NeedFulfilled); err != nil {
			return err
		}
		if err := st.Users().IncrementCompletedJobs(ctx, o.Fulfiller); err != nil {
			return err
		}
		now := s.d.Now()
		return st.Transactions().Create(ctx, &domain.Transaction{
			ID:          utils.NewID(),
			User:        o.Fulfiller,
			Need:        needID,
			Amount:      o.Amount,
			Type:        domain.TxJobCompleted,
			Status:      domain.TxCompleted,
			Metadata:    map[string]string{"offer": o.ID, "asker": askerID},
			CreatedAt:   now,
			CompletedAt: &now,
		})
	})
	if err != nil {
		return nil, err
	}
	s.d.invalidateNeed(ctx, needID)
	s.d.publish(ctx, events.SubjectNeedCompleted, map[string]any{
		"need": needID, "asker": askerID, "fulfiller": accepted.Fulfiller, "amount": accepted.Amount,
	})
	s.d.Log.Info("need completed", zap.String("need", needID), zap.String("fulfiller", accepted.Fulfiller))
	return s.reload(ctx, needID)
}

func (s *NeedService) Cancel(ctx context.Context, needID, askerID string) (*domain.OwnerNeed, error) {
	if _, err := s.ownedActive(ctx, s.d.Store, needID, askerID); err != nil {
		return nil, err
	}
	if err := s.d.Store.Needs().TransitionStatus(ctx, needID, domain.NeedActive, domain.NeedCancelled); err != nil {
		return nil, err
	}
	s.d.invalidateNeed(ctx, needID)
	return s.reload(ctx, needID)
}

func (s *NeedService) reload(ctx context.Context, needID string) (*domain.OwnerNeed, error) {
	n, err := s.d.Store.Needs().FindByID(ctx, needID)
	if err != nil {
		return nil, err
	}
	v := n.Owner()
	return &v, nil
}
