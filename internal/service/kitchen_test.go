package service

import (
	"context"
	"errors"
	"testing"

	"mejapos/backend/internal/domain"
	"mejapos/backend/internal/store"
)

func waiterCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "waiter-a", Role: "waiter"})
}

func TestSendOrderCreatesTicketForFirstBatch(t *testing.T) {
	svc := newTestService()
	ctx := waiterCtx()
	table := firstTable(t, svc, ctx)

	resp, err := svc.SendTableOrder(ctx, table.ID, domain.SendOrderRequest{
		Lines: []domain.CartLine{{SKU: "SKU-NASGOR-01", Qty: 2}},
	})
	if err != nil {
		t.Fatalf("send order failed: %v", err)
	}
	if resp.NoNewItems || resp.Ticket == nil {
		t.Fatalf("expected a ticket for the first batch")
	}
	if resp.Ticket.Status != domain.TicketStatusInPreparation {
		t.Fatalf("expected in_preparation, got %s", resp.Ticket.Status)
	}
	if len(resp.Ticket.NewItems) != 1 || resp.Ticket.NewItems[0].Qty != 2 {
		t.Fatalf("expected new items [2x nasgor], got %+v", resp.Ticket.NewItems)
	}
	if len(resp.Ticket.AlreadyOrdered) != 0 {
		t.Fatalf("first batch has nothing already ordered, got %+v", resp.Ticket.AlreadyOrdered)
	}
	if resp.Table.ServiceStatus != domain.ServiceStatusOrdered {
		t.Fatalf("expected ordered service status, got %s", resp.Table.ServiceStatus)
	}
}

func TestSendOrderSecondBatchCarriesDeltaOnly(t *testing.T) {
	svc := newTestService()
	ctx := waiterCtx()
	table := firstTable(t, svc, ctx)

	if _, err := svc.SendTableOrder(ctx, table.ID, domain.SendOrderRequest{
		Lines: []domain.CartLine{{SKU: "SKU-NASGOR-01", Qty: 2}},
	}); err != nil {
		t.Fatalf("first batch failed: %v", err)
	}

	resp, err := svc.SendTableOrder(ctx, table.ID, domain.SendOrderRequest{
		Lines: []domain.CartLine{
			{SKU: "SKU-NASGOR-01", Qty: 2},
			{SKU: "SKU-ESTEH-01", Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("second batch failed: %v", err)
	}
	if resp.Ticket == nil {
		t.Fatalf("expected a ticket for the added item")
	}
	if len(resp.Ticket.NewItems) != 1 || resp.Ticket.NewItems[0].SKU != "SKU-ESTEH-01" || resp.Ticket.NewItems[0].Qty != 1 {
		t.Fatalf("expected delta [1x es teh], got %+v", resp.Ticket.NewItems)
	}
	if len(resp.Ticket.AlreadyOrdered) != 1 || resp.Ticket.AlreadyOrdered[0].SKU != "SKU-NASGOR-01" || resp.Ticket.AlreadyOrdered[0].Qty != 2 {
		t.Fatalf("expected already ordered [2x nasgor], got %+v", resp.Ticket.AlreadyOrdered)
	}
}

func TestSendOrderUnchangedCartProducesNoTicket(t *testing.T) {
	svc := newTestService()
	ctx := waiterCtx()
	table := firstTable(t, svc, ctx)

	cart := domain.SendOrderRequest{
		Lines: []domain.CartLine{{SKU: "SKU-SATE-01", Qty: 1}},
	}
	if _, err := svc.SendTableOrder(ctx, table.ID, cart); err != nil {
		t.Fatalf("first send failed: %v", err)
	}

	resp, err := svc.SendTableOrder(ctx, table.ID, cart)
	if err != nil {
		t.Fatalf("resend failed: %v", err)
	}
	if !resp.NoNewItems || resp.Ticket != nil {
		t.Fatalf("expected no-new-items response, got %+v", resp)
	}

	view, err := svc.KitchenView(ctx, "unit-main")
	if err != nil {
		t.Fatalf("kitchen view failed: %v", err)
	}
	count := 0
	for _, ticket := range view.Tickets {
		if ticket.TableID == table.ID {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("resend must not add tickets, got %d", count)
	}
}

func TestSendOrderRejectsEmptyCart(t *testing.T) {
	svc := newTestService()
	ctx := waiterCtx()
	table := firstTable(t, svc, ctx)

	_, err := svc.SendTableOrder(ctx, table.ID, domain.SendOrderRequest{
		Lines: []domain.CartLine{{SKU: "SKU-NASGOR-01", Qty: 0}},
	})
	if !errors.Is(err, store.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestStartTicketStampsStartedAtOnce(t *testing.T) {
	svc := newTestService()
	ctx := waiterCtx()
	table := firstTable(t, svc, ctx)

	sent, err := svc.SendTableOrder(ctx, table.ID, domain.SendOrderRequest{
		Lines: []domain.CartLine{{SKU: "SKU-AYAMBKR-01", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("send order failed: %v", err)
	}

	started, err := svc.StartTicket(ctx, sent.Ticket.ID)
	if err != nil {
		t.Fatalf("start ticket failed: %v", err)
	}
	if started.StartedAt == nil {
		t.Fatalf("expected StartedAt to be stamped")
	}

	again, err := svc.StartTicket(ctx, sent.Ticket.ID)
	if err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	if !again.StartedAt.Equal(*started.StartedAt) {
		t.Fatalf("second start must not move StartedAt")
	}
}

func TestTicketLifecycleTransitions(t *testing.T) {
	svc := newTestService()
	ctx := waiterCtx()
	table := firstTable(t, svc, ctx)

	sent, err := svc.SendTableOrder(ctx, table.ID, domain.SendOrderRequest{
		Lines: []domain.CartLine{{SKU: "SKU-MIEAYAM-01", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("send order failed: %v", err)
	}
	ticketID := sent.Ticket.ID

	ready, err := svc.AdvanceTicket(ctx, ticketID, domain.TicketStatusReady)
	if err != nil {
		t.Fatalf("advance to ready failed: %v", err)
	}
	if ready.ReadyAt == nil {
		t.Fatalf("expected ReadyAt stamp")
	}

	served, err := svc.AdvanceTicket(ctx, ticketID, domain.TicketStatusServed)
	if err != nil {
		t.Fatalf("advance to served failed: %v", err)
	}
	if served.ServedAt == nil {
		t.Fatalf("expected ServedAt stamp")
	}

	// Served can be undone back to ready to correct a mis-tap.
	undone, err := svc.AdvanceTicket(ctx, ticketID, domain.TicketStatusReady)
	if err != nil {
		t.Fatalf("undo to ready failed: %v", err)
	}
	if undone.ServedAt != nil {
		t.Fatalf("undo must clear ServedAt")
	}
	if undone.ReadyAt == nil {
		t.Fatalf("undo must keep ReadyAt")
	}
}

func TestServedSkipsReadyBackfillsStamp(t *testing.T) {
	svc := newTestService()
	ctx := waiterCtx()
	table := firstTable(t, svc, ctx)

	sent, err := svc.SendTableOrder(ctx, table.ID, domain.SendOrderRequest{
		Lines: []domain.CartLine{{SKU: "SKU-ESJERUK-01", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("send order failed: %v", err)
	}

	served, err := svc.AdvanceTicket(ctx, sent.Ticket.ID, domain.TicketStatusServed)
	if err != nil {
		t.Fatalf("advance to served failed: %v", err)
	}
	if served.ReadyAt == nil {
		t.Fatalf("serving straight from preparation must backfill ReadyAt")
	}
}

func TestCancelledTicketIsTerminal(t *testing.T) {
	svc := newTestService()
	ctx := waiterCtx()
	table := firstTable(t, svc, ctx)

	sent, err := svc.SendTableOrder(ctx, table.ID, domain.SendOrderRequest{
		Lines: []domain.CartLine{{SKU: "SKU-KOPI-01", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("send order failed: %v", err)
	}
	ticketID := sent.Ticket.ID

	if _, err := svc.AdvanceTicket(ctx, ticketID, domain.TicketStatusCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	for _, target := range []string{domain.TicketStatusReady, domain.TicketStatusServed, domain.TicketStatusInPreparation} {
		if _, err := svc.AdvanceTicket(ctx, ticketID, target); !errors.Is(err, store.ErrTicketTransition) {
			t.Fatalf("expected ErrTicketTransition from cancelled to %s, got %v", target, err)
		}
	}

	if _, err := svc.StartTicket(ctx, ticketID); !errors.Is(err, store.ErrTicketTransition) {
		t.Fatalf("expected ErrTicketTransition starting a cancelled ticket, got %v", err)
	}
}

func TestCancelledTicketFreesDeltaForResend(t *testing.T) {
	svc := newTestService()
	ctx := waiterCtx()
	table := firstTable(t, svc, ctx)

	cart := domain.SendOrderRequest{
		Lines: []domain.CartLine{{SKU: "SKU-PISGOR-01", Qty: 2}},
	}
	sent, err := svc.SendTableOrder(ctx, table.ID, cart)
	if err != nil {
		t.Fatalf("send order failed: %v", err)
	}
	if _, err := svc.AdvanceTicket(ctx, sent.Ticket.ID, domain.TicketStatusCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	// Once cancelled, the items count as never ordered and fire again.
	resend, err := svc.SendTableOrder(ctx, table.ID, cart)
	if err != nil {
		t.Fatalf("resend failed: %v", err)
	}
	if resend.Ticket == nil || len(resend.Ticket.NewItems) != 1 || resend.Ticket.NewItems[0].Qty != 2 {
		t.Fatalf("expected full delta after cancellation, got %+v", resend.Ticket)
	}
}

func TestKitchenViewListsTicketsOldestFirst(t *testing.T) {
	svc := newTestService()
	ctx := waiterCtx()

	view, err := svc.FloorView(ctx, "unit-main")
	if err != nil {
		t.Fatalf("floor view failed: %v", err)
	}
	if len(view.Tables) < 2 {
		t.Fatalf("expected at least two seeded tables")
	}

	if _, err := svc.SendTableOrder(ctx, view.Tables[0].ID, domain.SendOrderRequest{
		Lines: []domain.CartLine{{SKU: "SKU-NASGOR-01", Qty: 1}},
	}); err != nil {
		t.Fatalf("first order failed: %v", err)
	}
	if _, err := svc.SendTableOrder(ctx, view.Tables[1].ID, domain.SendOrderRequest{
		Lines: []domain.CartLine{{SKU: "SKU-SATE-01", Qty: 1}},
	}); err != nil {
		t.Fatalf("second order failed: %v", err)
	}

	kitchen, err := svc.KitchenView(ctx, "unit-main")
	if err != nil {
		t.Fatalf("kitchen view failed: %v", err)
	}
	if len(kitchen.Tickets) != 2 {
		t.Fatalf("expected 2 tickets, got %d", len(kitchen.Tickets))
	}
	if kitchen.Tickets[0].CreatedAt.After(kitchen.Tickets[1].CreatedAt) {
		t.Fatalf("expected oldest ticket first")
	}
}
