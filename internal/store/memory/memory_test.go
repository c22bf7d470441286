package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"mejapos/backend/internal/domain"
	"mejapos/backend/internal/store"
)

func openTestShift(t *testing.T, repo *Store) domain.Shift {
	t.Helper()
	shift, err := repo.OpenShift(context.Background(), domain.Shift{
		UnitID:        "unit-main",
		StaffUsername: "cashier",
	})
	if err != nil {
		t.Fatalf("open shift failed: %v", err)
	}
	return *shift
}

func TestFinalizeSaleRejectsDuplicateSKULines(t *testing.T) {
	repo := NewSeeded()
	shift := openTestShift(t, repo)

	_, err := repo.FinalizeSale(context.Background(), domain.Sale{
		UnitID:        "unit-main",
		ShiftID:       shift.ID,
		PaymentMethod: domain.PaymentMethodCash,
		CreatedBy:     "cashier",
		Items: []domain.SaleLine{
			{SKU: "SKU-NASGOR-01", Qty: 1},
			{SKU: "SKU-NASGOR-01", Qty: 1},
		},
	})
	if !errors.Is(err, store.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for duplicate lines, got %v", err)
	}

	product, err := repo.GetProductBySKU(context.Background(), "unit-main", "SKU-NASGOR-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.StockQty != 120 {
		t.Fatalf("rejected sale must not touch stock, got %d", product.StockQty)
	}
}

func TestFinalizeSaleRejectsClosedShift(t *testing.T) {
	repo := NewSeeded()
	shift := openTestShift(t, repo)

	if _, err := repo.CloseShift(context.Background(), shift.ID, 0, time.Now().UTC()); err != nil {
		t.Fatalf("close shift failed: %v", err)
	}

	// A caller holding a stale "shift is open" lookup must still be refused.
	_, err := repo.FinalizeSale(context.Background(), domain.Sale{
		UnitID:        "unit-main",
		ShiftID:       shift.ID,
		PaymentMethod: domain.PaymentMethodCash,
		CreatedBy:     "cashier",
		Items:         []domain.SaleLine{{SKU: "SKU-ESTEH-01", Qty: 1}},
	})
	if !errors.Is(err, store.ErrShiftNotOpen) {
		t.Fatalf("expected ErrShiftNotOpen, got %v", err)
	}
}

func TestUpdateTicketRejectsStaleStatus(t *testing.T) {
	repo := NewSeeded()

	created, err := repo.CreateTicket(context.Background(), domain.KitchenTicket{
		UnitID:   "unit-main",
		TableID:  "tbl-1",
		NewItems: []domain.TicketItem{{SKU: "SKU-NASGOR-01", Name: "Nasi Goreng", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("create ticket failed: %v", err)
	}

	cancelled := *created
	cancelled.Status = domain.TicketStatusCancelled
	if _, err := repo.UpdateTicket(context.Background(), cancelled, domain.TicketStatusInPreparation); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	// Replay a write built from the pre-cancellation snapshot.
	stale := *created
	stale.Status = domain.TicketStatusReady
	now := time.Now().UTC()
	stale.ReadyAt = &now
	if _, err := repo.UpdateTicket(context.Background(), stale, domain.TicketStatusInPreparation); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict for stale write, got %v", err)
	}

	after, err := repo.GetTicketByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get ticket failed: %v", err)
	}
	if after.Status != domain.TicketStatusCancelled {
		t.Fatalf("cancelled ticket must stay cancelled, got %s", after.Status)
	}
}

func TestUpdateTicketUnknownIDNotFound(t *testing.T) {
	repo := NewSeeded()

	_, err := repo.UpdateTicket(context.Background(), domain.KitchenTicket{
		ID:     "tkt-missing",
		Status: domain.TicketStatusReady,
	}, domain.TicketStatusInPreparation)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
