package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mejapos/backend/internal/cache"
	"mejapos/backend/internal/domain"
	"mejapos/backend/internal/events"
	"mejapos/backend/internal/logger"
	"mejapos/backend/internal/store"
)

const kitchenViewTTL = 15 * time.Second

// SendTableOrder replaces the table's staged cart and fires a kitchen ticket
// for the delta between the new cart and everything already sent for this
// seating. Re-sending an unchanged cart produces no ticket.
func (s *Service) SendTableOrder(ctx context.Context, tableID string, req domain.SendOrderRequest) (domain.SendOrderResponse, error) {
	unitID := defaultString(req.UnitID, s.defaultUnitID)
	if tableID == "" {
		return domain.SendOrderResponse{}, store.ErrInvalidRequest
	}

	lines, products, err := s.priceCartLines(ctx, unitID, req.Lines)
	if err != nil {
		return domain.SendOrderResponse{}, err
	}
	if len(lines) == 0 {
		return domain.SendOrderResponse{}, store.ErrInvalidRequest
	}

	defer s.lockTable(tableID)()

	openTickets, err := s.repo.ListOpenTicketsByTable(ctx, unitID, tableID)
	if err != nil {
		return domain.SendOrderResponse{}, err
	}

	orderedQty := make(map[string]int)
	orderedNames := make(map[string]string)
	for _, ticket := range openTickets {
		for _, item := range ticket.NewItems {
			orderedQty[item.SKU] += item.Qty
			orderedNames[item.SKU] = item.Name
		}
	}

	newItems := make([]domain.TicketItem, 0, len(lines))
	for _, line := range lines {
		delta := line.Qty - orderedQty[line.SKU]
		if delta < 1 {
			continue
		}
		newItems = append(newItems, domain.TicketItem{
			SKU:  line.SKU,
			Name: products[line.SKU].Name,
			Qty:  delta,
		})
	}

	now := time.Now().UTC()
	table, err := s.repo.ReplaceTableCart(ctx, unitID, tableID, lines, &now)
	if err != nil {
		return domain.SendOrderResponse{}, err
	}

	if len(newItems) == 0 {
		s.invalidateViews(ctx, unitID)
		return domain.SendOrderResponse{NoNewItems: true, Table: *table}, nil
	}

	alreadyOrdered := make([]domain.TicketItem, 0, len(orderedQty))
	for sku, qty := range orderedQty {
		alreadyOrdered = append(alreadyOrdered, domain.TicketItem{SKU: sku, Name: orderedNames[sku], Qty: qty})
	}

	ticket, err := s.repo.CreateTicket(ctx, domain.KitchenTicket{
		UnitID:         unitID,
		TableID:        tableID,
		TableNumber:    table.Number,
		Status:         domain.TicketStatusInPreparation,
		NewItems:       newItems,
		AlreadyOrdered: alreadyOrdered,
		CreatedAt:      now,
	})
	if err != nil {
		return domain.SendOrderResponse{}, err
	}

	s.logAudit(ctx, unitID, "order_send", "ticket", ticket.ID, fmt.Sprintf("table=%d,new_items=%d", table.Number, len(newItems)))
	s.emit(events.Event{Type: events.TypeKitchenTicketChange, UnitID: unitID, EntityID: ticket.ID})
	s.emit(events.Event{Type: events.TypeTableCartChanged, UnitID: unitID, EntityID: tableID})
	s.invalidateViews(ctx, unitID)

	return domain.SendOrderResponse{Ticket: ticket, Table: *table}, nil
}

// StartTicket stamps the moment the kitchen begins cooking. The ticket stays
// in preparation; StartedAt only feeds the elapsed-time display.
func (s *Service) StartTicket(ctx context.Context, ticketID string) (domain.KitchenTicket, error) {
	if ticketID == "" {
		return domain.KitchenTicket{}, store.ErrInvalidRequest
	}

	ticket, err := s.repo.GetTicketByID(ctx, ticketID)
	if err != nil {
		return domain.KitchenTicket{}, err
	}
	if ticket.Status != domain.TicketStatusInPreparation {
		return domain.KitchenTicket{}, store.ErrTicketTransition
	}
	if ticket.StartedAt == nil {
		now := time.Now().UTC()
		ticket.StartedAt = &now
		if _, err := s.repo.UpdateTicket(ctx, *ticket, domain.TicketStatusInPreparation); err != nil {
			return domain.KitchenTicket{}, err
		}
	}

	s.emit(events.Event{Type: events.TypeKitchenTicketChange, UnitID: ticket.UnitID, EntityID: ticket.ID})
	s.invalidateKitchenView(ctx, ticket.UnitID)

	return *ticket, nil
}

// AdvanceTicket moves a ticket through the preparation pipeline. Cancelled is
// terminal; served can be undone back to ready to correct a mis-tap.
func (s *Service) AdvanceTicket(ctx context.Context, ticketID string, target string) (domain.KitchenTicket, error) {
	if ticketID == "" {
		return domain.KitchenTicket{}, store.ErrInvalidRequest
	}

	ticket, err := s.repo.GetTicketByID(ctx, ticketID)
	if err != nil {
		return domain.KitchenTicket{}, err
	}
	if !isTicketTransitionAllowed(ticket.Status, target) {
		return domain.KitchenTicket{}, store.ErrTicketTransition
	}
	prior := ticket.Status

	now := time.Now().UTC()
	switch target {
	case domain.TicketStatusReady:
		if ticket.Status == domain.TicketStatusServed {
			ticket.ServedAt = nil
		} else {
			ticket.ReadyAt = &now
		}
	case domain.TicketStatusServed:
		ticket.ServedAt = &now
		if ticket.ReadyAt == nil {
			ticket.ReadyAt = &now
		}
	}
	ticket.Status = target

	updated, err := s.repo.UpdateTicket(ctx, *ticket, prior)
	if err != nil {
		return domain.KitchenTicket{}, err
	}

	s.logAudit(ctx, ticket.UnitID, "ticket_advance", "ticket", ticket.ID, "status="+target)
	s.emit(events.Event{Type: events.TypeKitchenTicketChange, UnitID: ticket.UnitID, EntityID: ticket.ID})
	s.invalidateKitchenView(ctx, ticket.UnitID)

	return *updated, nil
}

// KitchenView lists non-terminal tickets for the unit, oldest first, for the
// preparation display. Cached briefly; ticket mutations invalidate it.
func (s *Service) KitchenView(ctx context.Context, unitID string) (domain.KitchenView, error) {
	unitID = defaultString(unitID, s.defaultUnitID)
	key := cache.KitchenViewKey(unitID)

	if payload, ok, err := s.views.Get(ctx, key); err == nil && ok {
		var view domain.KitchenView
		if err := json.Unmarshal(payload, &view); err == nil {
			return view, nil
		}
	}

	tickets, err := s.repo.ListActiveTickets(ctx, unitID)
	if err != nil {
		return domain.KitchenView{}, err
	}
	view := domain.KitchenView{UnitID: unitID, Tickets: tickets}

	if payload, err := json.Marshal(view); err == nil {
		if err := s.views.Set(ctx, key, payload, kitchenViewTTL); err != nil {
			logger.Warn().Err(err).Str("unit_id", unitID).Msg("failed to cache kitchen view")
		}
	}

	return view, nil
}

func (s *Service) invalidateKitchenView(ctx context.Context, unitID string) {
	if err := s.views.Invalidate(ctx, cache.KitchenViewKey(unitID)); err != nil {
		logger.Warn().Err(err).Str("unit_id", unitID).Msg("failed to invalidate kitchen view")
	}
}

func isTicketTransitionAllowed(current string, target string) bool {
	switch current {
	case domain.TicketStatusInPreparation:
		return target == domain.TicketStatusReady || target == domain.TicketStatusServed || target == domain.TicketStatusCancelled
	case domain.TicketStatusReady:
		return target == domain.TicketStatusServed || target == domain.TicketStatusCancelled
	case domain.TicketStatusServed:
		return target == domain.TicketStatusReady
	}
	return false
}
