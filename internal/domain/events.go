package domain

import "time"

// Event types
const (
	EventTypeTransferCreated = "transfer.created"
	EventTypePurchaseCreated = "purchase.created"
	EventTypeAccountCreated  = "account.created"
)

// Aggregate types
const (
	AggregateTypeTransfer = "transfer"
	AggregateTypePurchase = "purchase"
	AggregateTypeAccount  = "account"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Payload       map[string]any
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Published     bool
}

// NewTransferCreatedEvent builds the outbox event for a committed transfer.
func NewTransferCreatedEvent(id string, t *Transfer) *OutboxEvent {
	return &OutboxEvent{
		ID:            id,
		AggregateID:   t.ID,
		AggregateType: AggregateTypeTransfer,
		EventType:     EventTypeTransferCreated,
		Payload: map[string]any{
			"transfer_id":     t.ID,
			"from_account_id": t.FromAccountID,
			"to_account_id":   t.ToAccountID,
			"amount":          t.Amount,
			"created_at":      t.CreatedAt.Format(time.RFC3339Nano),
		},
		CreatedAt: t.CreatedAt,
	}
}

// NewPurchaseCreatedEvent builds the outbox event for a committed purchase.
func NewPurchaseCreatedEvent(id string, p *Purchase) *OutboxEvent {
	return &OutboxEvent{
		ID:            id,
		AggregateID:   p.ID,
		AggregateType: AggregateTypePurchase,
		EventType:     EventTypePurchaseCreated,
		Payload: map[string]any{
			"purchase_id": p.ID,
			"account_id":  p.AccountID,
			"item":        p.Item,
			"price":       p.Price,
			"created_at":  p.CreatedAt.Format(time.RFC3339Nano),
		},
		CreatedAt: p.CreatedAt,
	}
}

// NewAccountCreatedEvent builds the outbox event for a newly opened account.
func NewAccountCreatedEvent(id string, a *Account) *OutboxEvent {
	return &OutboxEvent{
		ID:            id,
		AggregateID:   a.ID,
		AggregateType: AggregateTypeAccount,
		EventType:     EventTypeAccountCreated,
		Payload: map[string]any{
			"account_id": a.ID,
			"username":   a.Username,
			"balance":    a.Balance,
		},
		CreatedAt: a.CreatedAt,
	}
}
