package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"needboard/internal/core/events"
	"needboard/internal/core/metrics"
	"needboard/internal/domain"
	"needboard/pkg/utils"
)

type LedgerService struct{ d Deps }

func NewLedgerService(d Deps) *LedgerService {
	return &LedgerService{d: d.withDefaults()}
}

type TxPage struct {
	Items []domain.Transaction `json:"items"`
	Total int64                `json:"total"`
}

func (s *LedgerService) List(ctx context.Context, f domain.TxFilter) (*TxPage, error) {
	if f.Type != "" {
		switch f.Type {
		case domain.TxUnlock, domain.TxCreditPurchase, domain.TxJobCompleted, domain.TxRefund:
		default:
			return nil, domain.Invalid("type", "unknown transaction type")
		}
	}
	items, total, err := s.d.Store.Transactions().List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &TxPage{Items: items, Total: total}, nil
}

type RefundResult struct {
	Original domain.Transaction `json:"original"`
	Refund   domain.Transaction `json:"refund"`
	Credits  int64              `json:"credits"`
}

// Refund 只退 completed 的 unlock：原记录置为 refunded，返还 1 credit，追加一条 refund
func (s *LedgerService) Refund(ctx context.Context, txID, adminID string) (*RefundResult, error) {
	var res RefundResult
	err := s.d.Store.WithinTx(ctx, func(ctx context.Context, st domain.Store) error {
		orig, err := st.Transactions().FindByID(ctx, txID)
		if err != nil {
			return err
		}
		if orig.Type != domain.TxUnlock {
			return domain.Invalid("type", "only unlock transactions can be refunded")
		}
		if orig.Status != domain.TxCompleted {
			return conflict(fmt.Sprintf("transaction is %s", orig.Status))
		}
		// 条件迁移，并发退款只有一个成功
		if err := st.Transactions().TransitionStatus(ctx, txID, domain.TxCompleted, domain.TxRefunded); err != nil {
			return err
		}
		if res.Credits, err = st.Users().AdjustCredits(ctx, orig.User, 1); err != nil {
			return err
		}
		now := s.d.Now()
		res.Refund = domain.Transaction{
			ID:          utils.NewID(),
			User:        orig.User,
			Need:        orig.Need,
			Amount:      orig.Amount,
			Type:        domain.TxRefund,
			Status:      domain.TxCompleted,
			Metadata:    map[string]string{"original": orig.ID, "by": adminID},
			CreatedAt:   now,
			CompletedAt: &now,
		}
		orig.Status = domain.TxRefunded
		res.Original = *orig
		return st.Transactions().Create(ctx, &res.Refund)
	})
	if err != nil {
		return nil, err
	}
	metrics.Refunds.Inc()
	s.d.publish(ctx, events.SubjectTxRefunded, map[string]any{
		"original": txID, "refund": res.Refund.ID, "user": res.Refund.User, "by": adminID,
	})
	s.d.Log.Info("unlock refunded", zap.String("tx", txID), zap.String("admin", adminID))
	return &res, nil
}
