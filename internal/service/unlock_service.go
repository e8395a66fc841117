package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"needboard/internal/core/events"
	"needboard/internal/core/metrics"
	"needboard/internal/domain"
	"needboard/pkg/utils"
)

type Market struct {
	UnitPrice       int64
	PaymentPrefixes []string
}

type UnlockService struct {
	d      Deps
	market Market
}

func NewUnlockService(d Deps, m Market) *UnlockService {
	if m.UnitPrice <= 0 {
		m.UnitPrice = 100
	}
	if len(m.PaymentPrefixes) == 0 {
		m.PaymentPrefixes = []string{"MP"}
	}
	return &UnlockService{d: d.withDefaults(), market: m}
}

type UnlockResult struct {
	Contact domain.ContactInfo `json:"contact"`
	Credits int64              `json:"credits"`
}

type unlockedEvent struct {
	Need      string `json:"need"`
	Asker     string `json:"asker"`
	Fulfiller string `json:"fulfiller"`
	TxID      string `json:"tx"`
}

// Unlock 扣 1 credit 换取提问者联系方式。解锁记录、扣费、账本在同一事务内
func (s *UnlockService) Unlock(ctx context.Context, needID, fulfillerID string) (*UnlockResult, error) {
	var (
		res   UnlockResult
		need  *domain.Need
		asker *domain.User
		txID  = utils.NewID()
	)
	err := s.d.Store.WithinTx(ctx, func(ctx context.Context, st domain.Store) error {
		u, err := requireRole(ctx, st.Users(), fulfillerID, domain.RoleFulfiller)
		if err != nil {
			return err
		}
		need, err = st.Needs().FindByID(ctx, needID)
		if err != nil {
			return err
		}
		if !need.Open(s.d.Now()) {
			return conflict("need is closed")
		}
		if need.IsUnlockedBy(fulfillerID) {
			return domain.ErrAlreadyUnlocked
		}
		if u.Credits < 1 {
			return domain.ErrInsufficientCredits
		}
		asker, err = st.Users().FindByID(ctx, need.User)
		if err != nil {
			return err
		}

		// 唯一约束兜底同一 fulfiller 的并发解锁
		if err := st.Needs().AddUnlock(ctx, needID, fulfillerID); err != nil {
			return err
		}
		if res.Credits, err = st.Users().AdjustCredits(ctx, fulfillerID, -1); err != nil {
			return err
		}
		now := s.d.Now()
		return st.Transactions().Create(ctx, &domain.Transaction{
			ID:          txID,
			User:        fulfillerID,
			Need:        needID,
			Amount:      s.market.UnitPrice,
			Type:        domain.TxUnlock,
			Status:      domain.TxCompleted,
			CreatedAt:   now,
			CompletedAt: &now,
		})
	})
	metrics.Unlocks.WithLabelValues(unlockLabel(err)).Inc()
	if err != nil {
		return nil, err
	}

	res.Contact = asker.Contact()
	need.UnlockedBy = append(need.UnlockedBy, fulfillerID)
	s.d.invalidateNeed(ctx, needID)
	s.d.publish(ctx, events.SubjectNeedUnlocked, unlockedEvent{
		Need: needID, Asker: asker.ID, Fulfiller: fulfillerID, TxID: txID,
	})
	s.notifyAsker(ctx, asker, need)
	s.d.Log.Info("need unlocked",
		zap.String("need", needID), zap.String("fulfiller", fulfillerID), zap.Int64("credits", res.Credits))
	return &res, nil
}

// notifyAsker 邮件异步发送，失败只记日志
func (s *UnlockService) notifyAsker(ctx context.Context, asker *domain.User, need *domain.Need) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := s.d.Notifier.NeedUnlocked(ctx, asker, need); err != nil {
			s.d.Log.Warn("unlock notification failed", zap.String("need", need.ID), zap.Error(err))
		}
	}()
}

func unlockLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrAlreadyUnlocked):
		return "already_unlocked"
	case errors.Is(err, domain.ErrInsufficientCredits):
		return "insufficient_credits"
	case errors.Is(err, domain.ErrConflict):
		return "closed"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrUnauthorized):
		return "rejected"
	default:
		return "error"
	}
}

type CreditResult struct {
	Credits int64 `json:"credits"`
	Added   int64 `json:"added"`
}

// AddCredits 兑换支付码。每个码只能用一次，由 paymentRef 唯一索引保证
func (s *UnlockService) AddCredits(ctx context.Context, userID string, amountPaid int64, code string) (*CreditResult, error) {
	if _, err := requireRole(ctx, s.d.Store.Users(), userID, domain.RoleFulfiller); err != nil {
		return nil, err
	}
	if amountPaid < s.market.UnitPrice {
		return nil, domain.Invalid("amountPaid", fmt.Sprintf("must be at least %d", s.market.UnitPrice))
	}
	if code == "" || !ValidPaymentCode(code, s.market.PaymentPrefixes) {
		return nil, domain.ErrInvalidPaymentCode
	}
	added := amountPaid / s.market.UnitPrice

	var res CreditResult
	err := s.d.Store.WithinTx(ctx, func(ctx context.Context, st domain.Store) error {
		now := s.d.Now()
		err := st.Transactions().Create(ctx, &domain.Transaction{
			ID:          utils.NewID(),
			User:        userID,
			Amount:      amountPaid,
			Type:        domain.TxCreditPurchase,
			Status:      domain.TxCompleted,
			PaymentRef:  code,
			Metadata:    map[string]string{"paymentCode": code, "credits": strconv.FormatInt(added, 10)},
			CreatedAt:   now,
			CompletedAt: &now,
		})
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return conflict("payment code already redeemed")
			}
			return err
		}
		res.Credits, err = st.Users().AdjustCredits(ctx, userID, added)
		return err
	})
	if err != nil {
		return nil, err
	}
	res.Added = added
	metrics.CreditsPurchased.Add(float64(added))
	s.d.publish(ctx, events.SubjectCreditsPurchased, map[string]any{
		"user": userID, "credits": added, "amountPaid": amountPaid,
	})
	return &res, nil
}
