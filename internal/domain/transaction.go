package domain

import (
	"context"
	"time"
)

type TxType string

const (
	TxUnlock         TxType = "unlock"
	TxCreditPurchase TxType = "credit_purchase"
	TxJobCompleted   TxType = "job_completed"
	TxRefund         TxType = "refund"
)

type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxCompleted TxStatus = "completed"
	TxFailed    TxStatus = "failed"
	TxRefunded  TxStatus = "refunded"
)

// Transaction 账本条目，写入后只允许 completed -> refunded
type Transaction struct {
	ID          string            `json:"id"`
	User        string            `json:"user"`
	Need        string            `json:"need,omitempty"`
	Amount      int64             `json:"amount"`
	Type        TxType            `json:"type"`
	Status      TxStatus          `json:"status"`
	PaymentRef  string            `json:"paymentRef,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
}

type TxFilter struct {
	User   string
	Type   TxType
	Offset int
	Limit  int
}

type TransactionRepository interface {
	Create(ctx context.Context, t *Transaction) error
	FindByID(ctx context.Context, id string) (*Transaction, error)
	List(ctx context.Context, f TxFilter) ([]Transaction, int64, error)
	Sum(ctx context.Context, userID string, typ TxType, status TxStatus) (int64, error)
	TransitionStatus(ctx context.Context, id string, from, to TxStatus) error
}
