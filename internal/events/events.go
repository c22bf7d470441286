package events

import (
	"context"
	"time"
)

const (
	TypeTableStatusChanged  = "table.status_changed"
	TypeTableCartChanged    = "table.cart_changed"
	TypeKitchenTicketChange = "kitchen.ticket_changed"
	TypeSaleFinalized       = "sale.finalized"
)

// Event is a UI hint published after a committed state change. Delivery is
// at-most-once: a missed event only delays the next poll-based refresh.
type Event struct {
	Type       string    `json:"type"`
	UnitID     string    `json:"unit_id"`
	EntityID   string    `json:"entity_id"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, _ Event) error {
	return nil
}
