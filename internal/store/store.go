package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mejapos/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrShiftNotOpen      = errors.New("shift not open")
	ErrUnitMismatch      = errors.New("business unit mismatch")
	ErrTicketTransition  = errors.New("invalid ticket transition")
	ErrConflict          = errors.New("concurrency conflict")
	ErrInvalidRequest    = errors.New("invalid request")
)

// StockShortfallError reports which SKU could not be fulfilled and by how
// much. It matches errors.Is(err, ErrInsufficientStock).
type StockShortfallError struct {
	SKU       string
	Requested int
	Available int
}

func (e *StockShortfallError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.SKU, e.Requested, e.Available)
}

func (e *StockShortfallError) Is(target error) bool {
	return target == ErrInsufficientStock
}

func (e *StockShortfallError) Shortfall() int {
	return e.Requested - e.Available
}

type Repository interface {
	ListProducts(ctx context.Context, unitID string) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductBySKU(ctx context.Context, unitID string, sku string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductsBySKUs(ctx context.Context, unitID string, skus []string) (map[string]domain.Product, error)

	AdjustStock(ctx context.Context, entry domain.InventoryLog) (*domain.InventoryLog, error)
	ListInventoryLogs(ctx context.Context, unitID string, sku string, from time.Time, to time.Time, limit int) ([]domain.InventoryLog, error)

	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	GetCustomerByID(ctx context.Context, customerID string) (*domain.Customer, error)
	ListCustomers(ctx context.Context, unitID string) ([]domain.Customer, error)
	PostRepayment(ctx context.Context, customerID string, amountCents int64, at time.Time) (*domain.CreditEntry, error)
	ListCreditEntries(ctx context.Context, customerID string, limit int) ([]domain.CreditEntry, error)

	CreateTable(ctx context.Context, table domain.Table) (*domain.Table, error)
	GetTableByID(ctx context.Context, tableID string) (*domain.Table, error)
	ListTables(ctx context.Context, unitID string) ([]domain.Table, error)
	SelectTable(ctx context.Context, unitID string, tableID string) (*domain.Table, error)
	ReplaceTableCart(ctx context.Context, unitID string, tableID string, cart []domain.CartLine, orderedAt *time.Time) (*domain.Table, error)
	SetTableServiceStatus(ctx context.Context, unitID string, tableID string, serviceStatus string) (*domain.Table, error)
	ReleaseTable(ctx context.Context, unitID string, tableID string) (*domain.Table, error)

	CreateTicket(ctx context.Context, ticket domain.KitchenTicket) (*domain.KitchenTicket, error)
	GetTicketByID(ctx context.Context, ticketID string) (*domain.KitchenTicket, error)
	ListOpenTicketsByTable(ctx context.Context, unitID string, tableID string) ([]domain.KitchenTicket, error)
	ListActiveTickets(ctx context.Context, unitID string) ([]domain.KitchenTicket, error)
	// UpdateTicket writes only if the stored status still equals priorStatus,
	// so a stale snapshot can never overwrite a concurrent transition.
	// Returns ErrConflict when the ticket moved in the meantime.
	UpdateTicket(ctx context.Context, ticket domain.KitchenTicket, priorStatus string) (*domain.KitchenTicket, error)

	OpenShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error)
	GetShiftByID(ctx context.Context, shiftID string) (*domain.Shift, error)
	GetActiveShift(ctx context.Context, staffUsername string) (*domain.Shift, error)
	CloseShift(ctx context.Context, shiftID string, closingCashCents int64, closedAt time.Time) (*domain.Shift, error)

	FinalizeSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	FindSaleByID(ctx context.Context, saleID string) (*domain.Sale, error)
	FindSaleByIdempotency(ctx context.Context, key string) (*domain.Sale, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, unitID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
