package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"mejapos/backend/internal/domain"
	"mejapos/backend/internal/store"
	"mejapos/backend/internal/xid"
)

type Store struct {
	mu                 sync.RWMutex
	products           map[string]domain.Product
	inventoryLogs      []domain.InventoryLog
	customersByID      map[string]domain.Customer
	creditEntries      map[string][]domain.CreditEntry
	tablesByID         map[string]domain.Table
	ticketsByID        map[string]domain.KitchenTicket
	shiftsByID         map[string]domain.Shift
	activeShiftByStaff map[string]string
	salesByID          map[string]*domain.Sale
	salesByIdem        map[string]*domain.Sale
	auditLogs          []domain.AuditLog
	usersByUsername    map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
		{"waiter", cashierPwd, "waiter"},
		{"kitchen", cashierPwd, "kitchen"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	now := time.Now().UTC()
	unit := "unit-main"

	products := []domain.Product{
		{SKU: "SKU-NASGOR-01", Name: "Nasi Goreng Spesial", Category: "main", PriceCents: 3200, CostCents: 1400, StockQty: 120, MinStockQty: 10},
		{SKU: "SKU-MIEAYAM-01", Name: "Mie Ayam Bakso", Category: "main", PriceCents: 2800, CostCents: 1200, StockQty: 120, MinStockQty: 10},
		{SKU: "SKU-SATE-01", Name: "Sate Ayam 10 Tusuk", Category: "main", PriceCents: 3500, CostCents: 1800, StockQty: 80, MinStockQty: 10},
		{SKU: "SKU-GADO-01", Name: "Gado-Gado", Category: "main", PriceCents: 2400, CostCents: 1000, StockQty: 60, MinStockQty: 5},
		{SKU: "SKU-AYAMBKR-01", Name: "Ayam Bakar", Category: "main", PriceCents: 3800, CostCents: 2000, StockQty: 90, MinStockQty: 10},
		{SKU: "SKU-ESTEH-01", Name: "Es Teh Manis", Category: "beverage", PriceCents: 800, CostCents: 250, StockQty: 300, MinStockQty: 30},
		{SKU: "SKU-ESJERUK-01", Name: "Es Jeruk", Category: "beverage", PriceCents: 1000, CostCents: 350, StockQty: 250, MinStockQty: 30},
		{SKU: "SKU-KOPI-01", Name: "Kopi Tubruk", Category: "beverage", PriceCents: 1200, CostCents: 400, StockQty: 200, MinStockQty: 20},
		{SKU: "SKU-KRUPUK-01", Name: "Kerupuk Udang", Category: "side", PriceCents: 500, CostCents: 150, StockQty: 400, MinStockQty: 40},
		{SKU: "SKU-PISGOR-01", Name: "Pisang Goreng", Category: "dessert", PriceCents: 1500, CostCents: 600, StockQty: 100, MinStockQty: 10},
	}

	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		p.UnitID = unit
		p.Status = domain.ProductStatusActive
		p.CreatedAt = now
		productMap[productKey(p.UnitID, p.SKU)] = p
	}

	tables := make(map[string]domain.Table, 8)
	for n := 1; n <= 8; n++ {
		t := domain.Table{
			ID:        xid.New("tbl"),
			UnitID:    unit,
			Number:    n,
			Capacity:  4,
			Status:    domain.TableStatusAvailable,
			Cart:      []domain.CartLine{},
			CreatedAt: now,
		}
		tables[t.ID] = t
	}

	customers := map[string]domain.Customer{}
	for _, c := range []domain.Customer{
		{ID: "cust-warung-01", Name: "Warung Bu Sri", Phone: "0812-0001", CreditLimitCents: 50000},
		{ID: "cust-kantor-01", Name: "Kantor Desa", Phone: "0812-0002", CreditLimitCents: 100000},
	} {
		c.UnitID = unit
		c.CreatedAt = now
		customers[c.ID] = c
	}

	return &Store{
		products:           productMap,
		inventoryLogs:      make([]domain.InventoryLog, 0, 256),
		customersByID:      customers,
		creditEntries:      make(map[string][]domain.CreditEntry),
		tablesByID:         tables,
		ticketsByID:        make(map[string]domain.KitchenTicket),
		shiftsByID:         make(map[string]domain.Shift),
		activeShiftByStaff: make(map[string]string),
		salesByID:          make(map[string]*domain.Sale),
		salesByIdem:        make(map[string]*domain.Sale),
		auditLogs:          make([]domain.AuditLog, 0, 128),
		usersByUsername:    seedUsers(),
	}
}

func (s *Store) ListProducts(_ context.Context, unitID string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.UnitID != unitID || p.Status != domain.ProductStatusActive {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})

	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.UnitID == "" || product.SKU == "" || product.Name == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidRequest
	}
	key := productKey(product.UnitID, product.SKU)
	if _, exists := s.products[key]; exists {
		return nil, store.ErrInvalidRequest
	}

	product.Status = domain.ProductStatusActive
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	s.products[key] = product
	created := product
	return &created, nil
}

func (s *Store) GetProductBySKU(_ context.Context, unitID string, sku string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[productKey(unitID, sku)]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.SKU == "" || product.Name == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidRequest
	}
	key := productKey(product.UnitID, product.SKU)
	current, exists := s.products[key]
	if !exists {
		return nil, store.ErrNotFound
	}

	product.StockQty = current.StockQty
	product.CreatedAt = current.CreatedAt
	s.products[key] = product
	updated := product
	return &updated, nil
}

func (s *Store) GetProductsBySKUs(_ context.Context, unitID string, skus []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(skus))
	for _, sku := range skus {
		if p, ok := s.products[productKey(unitID, sku)]; ok {
			result[sku] = p
		}
	}
	return result, nil
}

func (s *Store) AdjustStock(_ context.Context, entry domain.InventoryLog) (*domain.InventoryLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := productKey(entry.UnitID, entry.SKU)
	product, exists := s.products[key]
	if !exists {
		return nil, store.ErrNotFound
	}

	entry.PrevStock = product.StockQty
	entry.NewStock = product.StockQty + entry.DeltaQty
	product.StockQty = entry.NewStock
	s.products[key] = product

	if entry.ID == "" {
		entry.ID = xid.New("inv")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.inventoryLogs = append(s.inventoryLogs, entry)
	created := entry
	return &created, nil
}

func (s *Store) ListInventoryLogs(_ context.Context, unitID string, sku string, from time.Time, to time.Time, limit int) ([]domain.InventoryLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.InventoryLog, 0, limit)
	for i := len(s.inventoryLogs) - 1; i >= 0; i-- {
		entry := s.inventoryLogs[i]
		if entry.UnitID != unitID {
			continue
		}
		if sku != "" && entry.SKU != sku {
			continue
		}
		if !from.IsZero() && entry.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && entry.CreatedAt.After(to) {
			continue
		}
		logs = append(logs, entry)
		if limit > 0 && len(logs) >= limit {
			break
		}
	}
	return logs, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.UnitID == "" || customer.Name == "" {
		return nil, store.ErrInvalidRequest
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customersByID[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) GetCustomerByID(_ context.Context, customerID string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customersByID[customerID]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyCustomer := customer
	return &copyCustomer, nil
}

func (s *Store) ListCustomers(_ context.Context, unitID string) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customersByID))
	for _, c := range s.customersByID {
		if c.UnitID != unitID {
			continue
		}
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return cmpString(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) PostRepayment(_ context.Context, customerID string, amountCents int64, at time.Time) (*domain.CreditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, exists := s.customersByID[customerID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if amountCents < 1 || amountCents > customer.BalanceCents {
		return nil, store.ErrInvalidAmount
	}

	customer.BalanceCents -= amountCents
	s.customersByID[customerID] = customer

	entry := domain.CreditEntry{
		ID:                xid.New("cre"),
		CustomerID:        customerID,
		AmountCents:       -amountCents,
		Type:              domain.CreditEntryTypeRepayment,
		BalanceAfterCents: customer.BalanceCents,
		CreatedAt:         at,
	}
	s.creditEntries[customerID] = append(s.creditEntries[customerID], entry)
	created := entry
	return &created, nil
}

func (s *Store) ListCreditEntries(_ context.Context, customerID string, limit int) ([]domain.CreditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.creditEntries[customerID]
	result := make([]domain.CreditEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		result = append(result, entries[i])
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (s *Store) CreateTable(_ context.Context, table domain.Table) (*domain.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if table.UnitID == "" || table.Number < 1 {
		return nil, store.ErrInvalidRequest
	}
	for _, existing := range s.tablesByID {
		if existing.UnitID == table.UnitID && existing.Number == table.Number {
			return nil, store.ErrInvalidRequest
		}
	}
	if table.ID == "" {
		table.ID = xid.New("tbl")
	}
	table.Status = domain.TableStatusAvailable
	table.ServiceStatus = domain.ServiceStatusNone
	table.Cart = []domain.CartLine{}
	if table.CreatedAt.IsZero() {
		table.CreatedAt = time.Now().UTC()
	}
	s.tablesByID[table.ID] = table
	created := cloneTable(table)
	return &created, nil
}

func (s *Store) GetTableByID(_ context.Context, tableID string) (*domain.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table, exists := s.tablesByID[tableID]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyTable := cloneTable(table)
	return &copyTable, nil
}

func (s *Store) ListTables(_ context.Context, unitID string) ([]domain.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tables := make([]domain.Table, 0, len(s.tablesByID))
	for _, t := range s.tablesByID {
		if t.UnitID != unitID {
			continue
		}
		tables = append(tables, cloneTable(t))
	}
	slices.SortFunc(tables, func(a, b domain.Table) int {
		return a.Number - b.Number
	})
	return tables, nil
}

func (s *Store) SelectTable(_ context.Context, unitID string, tableID string) (*domain.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, exists := s.tablesByID[tableID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if table.UnitID != unitID {
		return nil, store.ErrUnitMismatch
	}

	if table.Status == domain.TableStatusAvailable {
		table.Status = domain.TableStatusOccupied
		table.ServiceStatus = domain.ServiceStatusNone
		table.Cart = []domain.CartLine{}
		s.tablesByID[tableID] = table
	}

	copyTable := cloneTable(table)
	return &copyTable, nil
}

func (s *Store) ReplaceTableCart(_ context.Context, unitID string, tableID string, cart []domain.CartLine, orderedAt *time.Time) (*domain.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, exists := s.tablesByID[tableID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if table.UnitID != unitID {
		return nil, store.ErrUnitMismatch
	}

	table.Cart = make([]domain.CartLine, len(cart))
	copy(table.Cart, cart)
	if table.Status == domain.TableStatusAvailable {
		table.Status = domain.TableStatusOccupied
	}
	if orderedAt != nil {
		at := orderedAt.UTC()
		table.LastOrderedAt = &at
		table.ServiceStatus = domain.ServiceStatusOrdered
	}
	s.tablesByID[tableID] = table

	copyTable := cloneTable(table)
	return &copyTable, nil
}

func (s *Store) SetTableServiceStatus(_ context.Context, unitID string, tableID string, serviceStatus string) (*domain.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, exists := s.tablesByID[tableID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if table.UnitID != unitID {
		return nil, store.ErrUnitMismatch
	}

	table.ServiceStatus = serviceStatus
	s.tablesByID[tableID] = table
	copyTable := cloneTable(table)
	return &copyTable, nil
}

func (s *Store) ReleaseTable(_ context.Context, unitID string, tableID string) (*domain.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, exists := s.tablesByID[tableID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if table.UnitID != unitID {
		return nil, store.ErrUnitMismatch
	}

	table.Status = domain.TableStatusAvailable
	table.ServiceStatus = domain.ServiceStatusNone
	table.Cart = []domain.CartLine{}
	table.LastOrderedAt = nil
	s.tablesByID[tableID] = table

	for id, ticket := range s.ticketsByID {
		if ticket.TableID != tableID || ticket.Settled {
			continue
		}
		ticket.Settled = true
		s.ticketsByID[id] = ticket
	}

	copyTable := cloneTable(table)
	return &copyTable, nil
}

func (s *Store) CreateTicket(_ context.Context, ticket domain.KitchenTicket) (*domain.KitchenTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ticket.UnitID == "" || ticket.TableID == "" || len(ticket.NewItems) == 0 {
		return nil, store.ErrInvalidRequest
	}
	if ticket.ID == "" {
		ticket.ID = xid.New("tkt")
	}
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusInPreparation
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now().UTC()
	}
	s.ticketsByID[ticket.ID] = ticket
	created := cloneTicket(ticket)
	return &created, nil
}

func (s *Store) GetTicketByID(_ context.Context, ticketID string) (*domain.KitchenTicket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ticket, exists := s.ticketsByID[ticketID]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyTicket := cloneTicket(ticket)
	return &copyTicket, nil
}

func (s *Store) ListOpenTicketsByTable(_ context.Context, unitID string, tableID string) ([]domain.KitchenTicket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tickets := make([]domain.KitchenTicket, 0, 4)
	for _, t := range s.ticketsByID {
		if t.UnitID != unitID || t.TableID != tableID || t.Settled {
			continue
		}
		if t.Status == domain.TicketStatusCancelled {
			continue
		}
		tickets = append(tickets, cloneTicket(t))
	}
	sortTicketsByCreated(tickets)
	return tickets, nil
}

func (s *Store) ListActiveTickets(_ context.Context, unitID string) ([]domain.KitchenTicket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tickets := make([]domain.KitchenTicket, 0, 8)
	for _, t := range s.ticketsByID {
		if t.UnitID != unitID || t.Settled {
			continue
		}
		if t.Status == domain.TicketStatusCancelled || t.Status == domain.TicketStatusServed {
			continue
		}
		tickets = append(tickets, cloneTicket(t))
	}
	sortTicketsByCreated(tickets)
	return tickets, nil
}

func (s *Store) UpdateTicket(_ context.Context, ticket domain.KitchenTicket, priorStatus string) (*domain.KitchenTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.ticketsByID[ticket.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if current.Status != priorStatus {
		return nil, store.ErrConflict
	}
	s.ticketsByID[ticket.ID] = ticket
	updated := cloneTicket(ticket)
	return &updated, nil
}

func (s *Store) OpenShift(_ context.Context, shift domain.Shift) (*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if shift.UnitID == "" || shift.StaffUsername == "" || shift.OpeningCashCents < 0 {
		return nil, store.ErrInvalidRequest
	}
	if _, open := s.activeShiftByStaff[shift.StaffUsername]; open {
		return nil, store.ErrInvalidRequest
	}

	if shift.ID == "" {
		shift.ID = xid.New("shift")
	}
	shift.Status = domain.ShiftStatusOpen
	if shift.OpenedAt.IsZero() {
		shift.OpenedAt = time.Now().UTC()
	}
	s.shiftsByID[shift.ID] = shift
	s.activeShiftByStaff[shift.StaffUsername] = shift.ID
	created := shift
	return &created, nil
}

func (s *Store) GetShiftByID(_ context.Context, shiftID string) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shift, exists := s.shiftsByID[shiftID]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyShift := shift
	return &copyShift, nil
}

func (s *Store) GetActiveShift(_ context.Context, staffUsername string) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shiftID, open := s.activeShiftByStaff[staffUsername]
	if !open {
		return nil, store.ErrNotFound
	}
	shift := s.shiftsByID[shiftID]
	copyShift := shift
	return &copyShift, nil
}

func (s *Store) CloseShift(_ context.Context, shiftID string, closingCashCents int64, closedAt time.Time) (*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shift, exists := s.shiftsByID[shiftID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if shift.Status != domain.ShiftStatusOpen {
		return nil, store.ErrInvalidRequest
	}

	for _, sale := range s.salesByID {
		if sale.ShiftID != shiftID {
			continue
		}
		shift.SaleCount++
		shift.TotalCents += sale.TotalCents
		switch sale.PaymentMethod {
		case domain.PaymentMethodCash:
			shift.CashCents += sale.TotalCents
		case domain.PaymentMethodCard:
			shift.CardCents += sale.TotalCents
		case domain.PaymentMethodMobile:
			shift.MobileCents += sale.TotalCents
		case domain.PaymentMethodCredit:
			shift.CreditCents += sale.TotalCents
		}
	}

	shift.ClosingCashCents = closingCashCents
	shift.Status = domain.ShiftStatusClosed
	at := closedAt.UTC()
	shift.ClosedAt = &at
	s.shiftsByID[shiftID] = shift
	delete(s.activeShiftByStaff, shift.StaffUsername)

	closed := shift
	return &closed, nil
}

func (s *Store) FinalizeSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.IdempotencyKey != "" {
		if existing, ok := s.salesByIdem[sale.IdempotencyKey]; ok {
			return cloneSale(existing), nil
		}
	}
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidRequest
	}

	// The shift must still be open at commit time, not just when the caller
	// looked it up; a close racing this sale would otherwise miss it in its
	// aggregation.
	shift, shiftExists := s.shiftsByID[sale.ShiftID]
	if !shiftExists || shift.Status != domain.ShiftStatusOpen {
		return nil, store.ErrShiftNotOpen
	}

	// Validate every line against current stock before touching anything.
	// Lines must arrive pre-aggregated: a duplicate SKU would apply twice
	// against the same stock read.
	total := int64(0)
	seen := make(map[string]struct{}, len(sale.Items))
	finalItems := make([]domain.SaleLine, 0, len(sale.Items))
	for _, item := range sale.Items {
		if item.Qty < 1 {
			return nil, store.ErrInvalidRequest
		}
		if _, dup := seen[item.SKU]; dup {
			return nil, store.ErrInvalidRequest
		}
		seen[item.SKU] = struct{}{}
		product, exists := s.products[productKey(sale.UnitID, item.SKU)]
		if !exists || product.Status != domain.ProductStatusActive {
			return nil, store.ErrProductNotFound
		}
		if product.StockQty < item.Qty {
			return nil, &store.StockShortfallError{SKU: item.SKU, Requested: item.Qty, Available: product.StockQty}
		}
		finalItems = append(finalItems, domain.SaleLine{
			SKU:            item.SKU,
			Name:           product.Name,
			Qty:            item.Qty,
			UnitPriceCents: product.PriceCents,
		})
		total += int64(item.Qty) * product.PriceCents
	}

	var customer domain.Customer
	if sale.PaymentMethod == domain.PaymentMethodCredit {
		c, exists := s.customersByID[sale.CustomerID]
		if !exists {
			return nil, store.ErrNotFound
		}
		if c.UnitID != sale.UnitID {
			return nil, store.ErrUnitMismatch
		}
		customer = c
	}

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	sale.Items = finalItems
	sale.TotalCents = total
	if sale.OrderStatus == "" {
		sale.OrderStatus = domain.OrderStatusPlaced
	}

	for _, item := range sale.Items {
		key := productKey(sale.UnitID, item.SKU)
		product := s.products[key]
		prev := product.StockQty
		product.StockQty -= item.Qty
		s.products[key] = product
		s.inventoryLogs = append(s.inventoryLogs, domain.InventoryLog{
			ID:        xid.New("inv"),
			UnitID:    sale.UnitID,
			SKU:       item.SKU,
			DeltaQty:  -item.Qty,
			PrevStock: prev,
			NewStock:  product.StockQty,
			Type:      domain.StockLogTypeSale,
			Actor:     sale.CreatedBy,
			SaleID:    sale.ID,
			CreatedAt: sale.CreatedAt,
		})
	}

	if sale.PaymentMethod == domain.PaymentMethodCredit {
		customer.BalanceCents += total
		s.customersByID[customer.ID] = customer
		s.creditEntries[customer.ID] = append(s.creditEntries[customer.ID], domain.CreditEntry{
			ID:                xid.New("cre"),
			CustomerID:        customer.ID,
			AmountCents:       total,
			Type:              domain.CreditEntryTypeSale,
			BalanceAfterCents: customer.BalanceCents,
			SaleID:            sale.ID,
			CreatedAt:         sale.CreatedAt,
		})
	}

	saleCopy := cloneSale(&sale)
	s.salesByID[sale.ID] = saleCopy
	if sale.IdempotencyKey != "" {
		s.salesByIdem[sale.IdempotencyKey] = saleCopy
	}

	return cloneSale(saleCopy), nil
}

func (s *Store) FindSaleByID(_ context.Context, saleID string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.salesByID[saleID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneSale(sale), nil
}

func (s *Store) FindSaleByIdempotency(_ context.Context, key string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.salesByIdem[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneSale(sale), nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, unitID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.AuditLog, 0, limit)
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		entry := s.auditLogs[i]
		if unitID != "" && entry.UnitID != unitID {
			continue
		}
		if !from.IsZero() && entry.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && entry.CreatedAt.After(to) {
			continue
		}
		logs = append(logs, entry)
		if limit > 0 && len(logs) >= limit {
			break
		}
	}
	return logs, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidRequest
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrInvalidRequest
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func productKey(unitID string, sku string) string {
	return unitID + "::" + sku
}

func sortTicketsByCreated(tickets []domain.KitchenTicket) {
	slices.SortFunc(tickets, func(a, b domain.KitchenTicket) int {
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return 1
		}
		return cmpString(a.ID, b.ID)
	})
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneSale(src *domain.Sale) *domain.Sale {
	if src == nil {
		return nil
	}
	dup := *src
	dupItems := make([]domain.SaleLine, len(src.Items))
	copy(dupItems, src.Items)
	dup.Items = dupItems
	return &dup
}

func cloneTable(src domain.Table) domain.Table {
	dup := src
	cart := make([]domain.CartLine, len(src.Cart))
	copy(cart, src.Cart)
	dup.Cart = cart
	if src.LastOrderedAt != nil {
		at := src.LastOrderedAt.UTC()
		dup.LastOrderedAt = &at
	}
	return dup
}

func cloneTicket(src domain.KitchenTicket) domain.KitchenTicket {
	dup := src
	newItems := make([]domain.TicketItem, len(src.NewItems))
	copy(newItems, src.NewItems)
	dup.NewItems = newItems
	ordered := make([]domain.TicketItem, len(src.AlreadyOrdered))
	copy(ordered, src.AlreadyOrdered)
	dup.AlreadyOrdered = ordered
	if src.StartedAt != nil {
		at := src.StartedAt.UTC()
		dup.StartedAt = &at
	}
	if src.ReadyAt != nil {
		at := src.ReadyAt.UTC()
		dup.ReadyAt = &at
	}
	if src.ServedAt != nil {
		at := src.ServedAt.UTC()
		dup.ServedAt = &at
	}
	return dup
}
