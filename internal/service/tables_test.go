package service

import (
	"context"
	"errors"
	"testing"

	"mejapos/backend/internal/domain"
	"mejapos/backend/internal/store"
)

func firstTable(t *testing.T, svc *Service, ctx context.Context) domain.Table {
	t.Helper()
	view, err := svc.FloorView(ctx, "unit-main")
	if err != nil {
		t.Fatalf("floor view failed: %v", err)
	}
	if len(view.Tables) == 0 {
		t.Fatalf("expected seeded tables")
	}
	return view.Tables[0]
}

func TestSelectTableClaimsAvailableTable(t *testing.T) {
	svc := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Username: "waiter-a", Role: "waiter"})
	table := firstTable(t, svc, ctx)

	resp, err := svc.SelectTable(ctx, "unit-main", table.ID)
	if err != nil {
		t.Fatalf("select table failed: %v", err)
	}
	if resp.Table.Status != domain.TableStatusOccupied {
		t.Fatalf("expected occupied table, got %s", resp.Table.Status)
	}
	if len(resp.Table.Cart) != 0 {
		t.Fatalf("fresh seating must start with an empty cart")
	}
}

func TestSelectOccupiedTableReturnsCurrentState(t *testing.T) {
	svc := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Username: "waiter-a", Role: "waiter"})
	table := firstTable(t, svc, ctx)

	if _, err := svc.SelectTable(ctx, "unit-main", table.ID); err != nil {
		t.Fatalf("first select failed: %v", err)
	}
	if _, err := svc.UpdateStagedCart(ctx, table.ID, domain.TableCartRequest{
		Lines: []domain.CartLine{{SKU: "SKU-NASGOR-01", Qty: 2}},
	}); err != nil {
		t.Fatalf("cart update failed: %v", err)
	}

	// A second device selecting the same table converges on the staged cart.
	resp, err := svc.SelectTable(ctx, "unit-main", table.ID)
	if err != nil {
		t.Fatalf("second select failed: %v", err)
	}
	if resp.Table.Status != domain.TableStatusOccupied {
		t.Fatalf("expected occupied table, got %s", resp.Table.Status)
	}
	if len(resp.Table.Cart) != 1 || resp.Table.Cart[0].Qty != 2 {
		t.Fatalf("expected staged cart to survive re-select, got %+v", resp.Table.Cart)
	}
}

func TestUpdateStagedCartSnapshotsServerPrices(t *testing.T) {
	svc := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Username: "waiter-a", Role: "waiter"})
	table := firstTable(t, svc, ctx)

	resp, err := svc.UpdateStagedCart(ctx, table.ID, domain.TableCartRequest{
		Lines: []domain.CartLine{
			// Client-sent prices are ignored.
			{SKU: "sku-nasgor-01", Qty: 1, UnitPriceCents: 1},
			{SKU: "SKU-ESTEH-01", Qty: 2},
		},
	})
	if err != nil {
		t.Fatalf("cart update failed: %v", err)
	}
	if len(resp.Table.Cart) != 2 {
		t.Fatalf("expected 2 cart lines, got %d", len(resp.Table.Cart))
	}
	if resp.Table.Cart[0].SKU != "SKU-NASGOR-01" || resp.Table.Cart[0].UnitPriceCents != 3200 {
		t.Fatalf("expected server-priced line, got %+v", resp.Table.Cart[0])
	}
}

func TestUpdateStagedCartRejectsUnknownSKU(t *testing.T) {
	svc := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Username: "waiter-a", Role: "waiter"})
	table := firstTable(t, svc, ctx)

	_, err := svc.UpdateStagedCart(ctx, table.ID, domain.TableCartRequest{
		Lines: []domain.CartLine{{SKU: "SKU-TIDAK-ADA", Qty: 1}},
	})
	if !errors.Is(err, store.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestMarkTableBilling(t *testing.T) {
	svc := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Username: "waiter-a", Role: "waiter"})
	table := firstTable(t, svc, ctx)

	if _, err := svc.SelectTable(ctx, "unit-main", table.ID); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	resp, err := svc.MarkTableBilling(ctx, "unit-main", table.ID)
	if err != nil {
		t.Fatalf("mark billing failed: %v", err)
	}
	if resp.Table.ServiceStatus != domain.ServiceStatusBilling {
		t.Fatalf("expected billing status, got %s", resp.Table.ServiceStatus)
	}
}

func TestReleaseTableResetsStateAndSettlesTickets(t *testing.T) {
	svc := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Username: "waiter-a", Role: "waiter"})
	table := firstTable(t, svc, ctx)

	if _, err := svc.SelectTable(ctx, "unit-main", table.ID); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	sent, err := svc.SendTableOrder(ctx, table.ID, domain.SendOrderRequest{
		Lines: []domain.CartLine{{SKU: "SKU-NASGOR-01", Qty: 2}},
	})
	if err != nil {
		t.Fatalf("send order failed: %v", err)
	}
	if sent.Ticket == nil {
		t.Fatalf("expected kitchen ticket for first batch")
	}

	resp, err := svc.ReleaseTable(ctx, "unit-main", table.ID)
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if resp.Table.Status != domain.TableStatusAvailable {
		t.Fatalf("expected available table, got %s", resp.Table.Status)
	}
	if len(resp.Table.Cart) != 0 || resp.Table.ServiceStatus != domain.ServiceStatusNone {
		t.Fatalf("release must clear cart and service status, got %+v", resp.Table)
	}

	view, err := svc.KitchenView(ctx, "unit-main")
	if err != nil {
		t.Fatalf("kitchen view failed: %v", err)
	}
	for _, ticket := range view.Tickets {
		if ticket.TableID == table.ID {
			t.Fatalf("settled ticket must leave the kitchen view")
		}
	}
}

func TestFinalizeSaleReleasesTable(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	openShift(t, svc, ctx)
	table := firstTable(t, svc, ctx)

	if _, err := svc.SelectTable(ctx, "unit-main", table.ID); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if _, err := svc.SendTableOrder(ctx, table.ID, domain.SendOrderRequest{
		Lines: []domain.CartLine{{SKU: "SKU-MIEAYAM-01", Qty: 1}},
	}); err != nil {
		t.Fatalf("send order failed: %v", err)
	}

	resp, err := svc.FinalizeSale(ctx, domain.SaleRequest{
		IdempotencyKey: "idem-table",
		PaymentMethod:  "cash",
		TableID:        table.ID,
		Lines:          []domain.CartLine{{SKU: "SKU-MIEAYAM-01", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if resp.TableID != table.ID {
		t.Fatalf("expected sale to reference table %s", table.ID)
	}

	view, err := svc.FloorView(ctx, "unit-main")
	if err != nil {
		t.Fatalf("floor view failed: %v", err)
	}
	for _, tbl := range view.Tables {
		if tbl.ID == table.ID && tbl.Status != domain.TableStatusAvailable {
			t.Fatalf("expected table released after settlement, got %s", tbl.Status)
		}
	}
}

func TestCreateTableRequiresAdmin(t *testing.T) {
	svc := newTestService()

	if _, err := svc.CreateTable(cashierCtx(), domain.TableCreateRequest{Number: 9, Capacity: 2}); err == nil {
		t.Fatalf("expected non-admin table create to fail")
	}

	table, err := svc.CreateTable(adminCtx(), domain.TableCreateRequest{Number: 9, Capacity: 2})
	if err != nil {
		t.Fatalf("create table failed: %v", err)
	}
	if table.Status != domain.TableStatusAvailable {
		t.Fatalf("new table must start available, got %s", table.Status)
	}
}
