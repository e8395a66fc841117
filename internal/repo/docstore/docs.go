package docstore

import (
	"time"

	"needboard/internal/domain"
)

type userDoc struct {
	ID            string    `bson:"_id"`
	Email         string    `bson:"email"`
	Phone         string    `bson:"phone"`
	PasswordHash  string    `bson:"passwordHash"`
	Role          string    `bson:"role"`
	Name          string    `bson:"name"`
	Location      string    `bson:"location"`
	Bio           string    `bson:"bio"`
	Credits       int64     `bson:"credits"`
	Rating        float64   `bson:"rating"`
	CompletedJobs int64     `bson:"completedJobs"`
	IsVerified    bool      `bson:"isVerified"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

func userToDoc(u *domain.User) userDoc {
	return userDoc{
		ID: u.ID, Email: u.Email, Phone: u.Phone, PasswordHash: u.PasswordHash,
		Role: string(u.Role), Name: u.Name, Location: u.Location, Bio: u.Bio,
		Credits: u.Credits, Rating: u.Rating, CompletedJobs: u.CompletedJobs,
		IsVerified: u.IsVerified, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func (d *userDoc) toDomain() *domain.User {
	return &domain.User{
		ID: d.ID, Email: d.Email, Phone: d.Phone, PasswordHash: d.PasswordHash,
		Role: domain.Role(d.Role), Name: d.Name, Location: d.Location, Bio: d.Bio,
		Credits: d.Credits, Rating: d.Rating, CompletedJobs: d.CompletedJobs,
		IsVerified: d.IsVerified, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

type offerDoc struct {
	ID        string    `bson:"id"`
	Fulfiller string    `bson:"fulfiller"`
	Amount    int64     `bson:"amount"`
	Message   string    `bson:"message"`
	Status    string    `bson:"status"`
	CreatedAt time.Time `bson:"createdAt"`
}

type needDoc struct {
	ID                string     `bson:"_id"`
	User              string     `bson:"user"`
	Title             string     `bson:"title"`
	Description       string     `bson:"description"`
	Budget            int64      `bson:"budget"`
	Category          string     `bson:"category"`
	Location          string     `bson:"location"`
	Timeframe         string     `bson:"timeframe"`
	Status            string     `bson:"status"`
	UnlockedBy        []string   `bson:"unlockedBy"`
	Offers            []offerDoc `bson:"offers"`
	SelectedFulfiller string     `bson:"selectedFulfiller,omitempty"`
	ExpiresAt         time.Time  `bson:"expiresAt"`
	CreatedAt         time.Time  `bson:"createdAt"`
	UpdatedAt         time.Time  `bson:"updatedAt"`
}

func offerToDoc(o *domain.Offer) offerDoc {
	return offerDoc{
		ID: o.ID, Fulfiller: o.Fulfiller, Amount: o.Amount, Message: o.Message,
		Status: string(o.Status), CreatedAt: o.CreatedAt,
	}
}

func needToDoc(n *domain.Need) needDoc {
	d := needDoc{
		ID: n.ID, User: n.User, Title: n.Title, Description: n.Description,
		Budget: n.Budget, Category: string(n.Category), Location: n.Location,
		Timeframe: string(n.Timeframe), Status: string(n.Status),
		UnlockedBy: append([]string{}, n.UnlockedBy...), Offers: []offerDoc{},
		SelectedFulfiller: n.SelectedFulfiller, ExpiresAt: n.ExpiresAt,
		CreatedAt: n.CreatedAt, UpdatedAt: n.UpdatedAt,
	}
	for i := range n.Offers {
		d.Offers = append(d.Offers, offerToDoc(&n.Offers[i]))
	}
	return d
}

func (d *needDoc) toDomain() *domain.Need {
	n := &domain.Need{
		ID: d.ID, User: d.User, Title: d.Title, Description: d.Description,
		Budget: d.Budget, Category: domain.Category(d.Category), Location: d.Location,
		Timeframe: domain.Timeframe(d.Timeframe), Status: domain.NeedStatus(d.Status),
		UnlockedBy: append([]string{}, d.UnlockedBy...), Offers: make([]domain.Offer, 0, len(d.Offers)),
		SelectedFulfiller: d.SelectedFulfiller, ExpiresAt: d.ExpiresAt,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
	for _, o := range d.Offers {
		n.Offers = append(n.Offers, domain.Offer{
			ID: o.ID, Fulfiller: o.Fulfiller, Amount: o.Amount, Message: o.Message,
			Status: domain.OfferStatus(o.Status), CreatedAt: o.CreatedAt,
		})
	}
	return n
}

type txDoc struct {
	ID          string            `bson:"_id"`
	User        string            `bson:"user"`
	Need        string            `bson:"need,omitempty"`
	Amount      int64             `bson:"amount"`
	Type        string            `bson:"type"`
	Status      string            `bson:"status"`
	PaymentRef  string            `bson:"paymentRef,omitempty"`
	Metadata    map[string]string `bson:"metadata,omitempty"`
	CreatedAt   time.Time         `bson:"createdAt"`
	CompletedAt *time.Time        `bson:"completedAt,omitempty"`
}

func txToDoc(t *domain.Transaction) txDoc {
	return txDoc{
		ID: t.ID, User: t.User, Need: t.Need, Amount: t.Amount, Type: string(t.Type),
		Status: string(t.Status), PaymentRef: t.PaymentRef, Metadata: t.Metadata,
		CreatedAt: t.CreatedAt, CompletedAt: t.CompletedAt,
	}
}

func (d *txDoc) toDomain() *domain.Transaction {
	return &domain.Transaction{
		ID: d.ID, User: d.User, Need: d.Need, Amount: d.Amount, Type: domain.TxType(d.Type),
		Status: domain.TxStatus(d.Status), PaymentRef: d.PaymentRef, Metadata: d.Metadata,
		CreatedAt: d.CreatedAt, CompletedAt: d.CompletedAt,
	}
}
