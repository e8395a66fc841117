package ledger

import (
	"time"

	"needboard/internal/domain"
)

type TransactionModel struct {
	ID          string            `gorm:"primaryKey;size:36"`
	UserID      string            `gorm:"size:36;not null;index:idx_tx_user_created,priority:1"`
	NeedID      *string           `gorm:"size:36;index"`
	Amount      int64             `gorm:"not null;default:0"`
	Type        string            `gorm:"size:24;not null;index"`
	Status      string            `gorm:"size:16;not null"`
	PaymentRef  *string           `gorm:"size:64;uniqueIndex"` // NULL 不参与唯一
	Metadata    map[string]string `gorm:"serializer:json;type:text"`
	CreatedAt   time.Time         `gorm:"autoCreateTime;index:idx_tx_user_created,priority:2"`
	CompletedAt *time.Time
}

func (TransactionModel) TableName() string { return "transactions" }

func FromDomain(t *domain.Transaction) *TransactionModel {
	m := &TransactionModel{
		ID: t.ID, UserID: t.User, Amount: t.Amount, Type: string(t.Type),
		Status: string(t.Status), Metadata: t.Metadata, CreatedAt: t.CreatedAt,
		CompletedAt: t.CompletedAt,
	}
	if t.Need != "" {
		m.NeedID = &t.Need
	}
	if t.PaymentRef != "" {
		m.PaymentRef = &t.PaymentRef
	}
	return m
}

func (m *TransactionModel) ToDomain() *domain.Transaction {
	t := &domain.Transaction{
		ID: m.ID, User: m.UserID, Amount: m.Amount, Type: domain.TxType(m.Type),
		Status: domain.TxStatus(m.Status), Metadata: m.Metadata, CreatedAt: m.CreatedAt,
		CompletedAt: m.CompletedAt,
	}
	if m.NeedID != nil {
		t.Need = *m.NeedID
	}
	if m.PaymentRef != nil {
		t.PaymentRef = *m.PaymentRef
	}
	return t
}
