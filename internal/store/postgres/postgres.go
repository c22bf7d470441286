package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"mejapos/backend/internal/domain"
	"mejapos/backend/internal/store"
	"mejapos/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context, unitID string) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sku, unit_id, name, category, price_cents, cost_cents, stock_qty, min_stock_qty, status, created_at
		FROM products
		WHERE unit_id = $1 AND status = 'active'
		ORDER BY category, name
	`, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.SKU, &p.UnitID, &p.Name, &p.Category, &p.PriceCents, &p.CostCents, &p.StockQty, &p.MinStockQty, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.UnitID == "" || product.SKU == "" || product.Name == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidRequest
	}

	product.Status = domain.ProductStatusActive
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (sku, unit_id, name, category, price_cents, cost_cents, stock_qty, min_stock_qty, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now())
	`, product.SKU, product.UnitID, product.Name, product.Category, product.PriceCents, product.CostCents,
		product.StockQty, product.MinStockQty, product.Status, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRequest
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProductBySKU(ctx context.Context, unitID string, sku string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT sku, unit_id, name, category, price_cents, cost_cents, stock_qty, min_stock_qty, status, created_at
		FROM products
		WHERE unit_id = $1 AND sku = $2
	`, unitID, sku).Scan(&p.SKU, &p.UnitID, &p.Name, &p.Category, &p.PriceCents, &p.CostCents, &p.StockQty, &p.MinStockQty, &p.Status, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.SKU == "" || product.Name == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidRequest
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $3, category = $4, price_cents = $5, cost_cents = $6, min_stock_qty = $7, status = $8, updated_at = now()
		WHERE unit_id = $1 AND sku = $2
	`, product.UnitID, product.SKU, product.Name, product.Category, product.PriceCents, product.CostCents,
		product.MinStockQty, product.Status)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetProductBySKU(ctx, product.UnitID, product.SKU)
}

func (s *Store) GetProductsBySKUs(ctx context.Context, unitID string, skus []string) (map[string]domain.Product, error) {
	if len(skus) == 0 {
		return map[string]domain.Product{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT sku, unit_id, name, category, price_cents, cost_cents, stock_qty, min_stock_qty, status, created_at
		FROM products
		WHERE unit_id = $1 AND sku = ANY($2)
	`, unitID, skus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]domain.Product, len(skus))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.SKU, &p.UnitID, &p.Name, &p.Category, &p.PriceCents, &p.CostCents, &p.StockQty, &p.MinStockQty, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		result[p.SKU] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) AdjustStock(ctx context.Context, entry domain.InventoryLog) (*domain.InventoryLog, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var prev int
	err = tx.QueryRowContext(ctx, `
		SELECT stock_qty
		FROM products
		WHERE unit_id = $1 AND sku = $2
		FOR UPDATE
	`, entry.UnitID, entry.SKU).Scan(&prev)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, mapTxError(err)
	}

	entry.PrevStock = prev
	entry.NewStock = prev + entry.DeltaQty
	if entry.ID == "" {
		entry.ID = xid.New("inv")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE products
		SET stock_qty = $3, updated_at = now()
		WHERE unit_id = $1 AND sku = $2
	`, entry.UnitID, entry.SKU, entry.NewStock)
	if err != nil {
		return nil, mapTxError(err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO inventory_logs (id, unit_id, sku, delta_qty, prev_stock, new_stock, type, actor, reason, sale_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, entry.ID, entry.UnitID, entry.SKU, entry.DeltaQty, entry.PrevStock, entry.NewStock, entry.Type,
		nullIfEmpty(entry.Actor), nullIfEmpty(entry.Reason), nullIfEmpty(entry.SaleID), entry.CreatedAt)
	if err != nil {
		return nil, mapTxError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapTxError(err)
	}
	created := entry
	return &created, nil
}

func (s *Store) ListInventoryLogs(ctx context.Context, unitID string, sku string, from time.Time, to time.Time, limit int) ([]domain.InventoryLog, error) {
	if limit < 1 {
		limit = 100
	}
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(time.Hour)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, unit_id, sku, delta_qty, prev_stock, new_stock, type, COALESCE(actor, ''), COALESCE(reason, ''), COALESCE(sale_id, ''), created_at
		FROM inventory_logs
		WHERE unit_id = $1 AND ($2 = '' OR sku = $2) AND created_at BETWEEN $3 AND $4
		ORDER BY created_at DESC
		LIMIT $5
	`, unitID, sku, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.InventoryLog, 0, limit)
	for rows.Next() {
		var entry domain.InventoryLog
		if err := rows.Scan(&entry.ID, &entry.UnitID, &entry.SKU, &entry.DeltaQty, &entry.PrevStock, &entry.NewStock,
			&entry.Type, &entry.Actor, &entry.Reason, &entry.SaleID, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.UnitID == "" || customer.Name == "" {
		return nil, store.ErrInvalidRequest
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, unit_id, name, phone, credit_limit_cents, balance_cents, risk_tag, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
	`, customer.ID, customer.UnitID, customer.Name, nullIfEmpty(customer.Phone), customer.CreditLimitCents,
		customer.BalanceCents, nullIfEmpty(customer.RiskTag), customer.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRequest
		}
		return nil, err
	}
	created := customer
	return &created, nil
}

func (s *Store) GetCustomerByID(ctx context.Context, customerID string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, unit_id, name, COALESCE(phone, ''), credit_limit_cents, balance_cents, COALESCE(risk_tag, ''), created_at
		FROM customers
		WHERE id = $1
	`, customerID).Scan(&c.ID, &c.UnitID, &c.Name, &c.Phone, &c.CreditLimitCents, &c.BalanceCents, &c.RiskTag, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListCustomers(ctx context.Context, unitID string) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, unit_id, name, COALESCE(phone, ''), credit_limit_cents, balance_cents, COALESCE(risk_tag, ''), created_at
		FROM customers
		WHERE unit_id = $1
		ORDER BY name
	`, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.UnitID, &c.Name, &c.Phone, &c.CreditLimitCents, &c.BalanceCents, &c.RiskTag, &c.CreatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) PostRepayment(ctx context.Context, customerID string, amountCents int64, at time.Time) (*domain.CreditEntry, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var balance int64
	err = tx.QueryRowContext(ctx, `
		SELECT balance_cents
		FROM customers
		WHERE id = $1
		FOR UPDATE
	`, customerID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, mapTxError(err)
	}
	if amountCents < 1 || amountCents > balance {
		return nil, store.ErrInvalidAmount
	}

	newBalance := balance - amountCents
	_, err = tx.ExecContext(ctx, `
		UPDATE customers
		SET balance_cents = $2, updated_at = now()
		WHERE id = $1
	`, customerID, newBalance)
	if err != nil {
		return nil, mapTxError(err)
	}

	entry := domain.CreditEntry{
		ID:                xid.New("cre"),
		CustomerID:        customerID,
		AmountCents:       -amountCents,
		Type:              domain.CreditEntryTypeRepayment,
		BalanceAfterCents: newBalance,
		CreatedAt:         at.UTC(),
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO credit_entries (id, customer_id, amount_cents, type, balance_after_cents, sale_id, created_at)
		VALUES ($1,$2,$3,$4,$5,NULL,$6)
	`, entry.ID, entry.CustomerID, entry.AmountCents, entry.Type, entry.BalanceAfterCents, entry.CreatedAt)
	if err != nil {
		return nil, mapTxError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapTxError(err)
	}
	return &entry, nil
}

func (s *Store) ListCreditEntries(ctx context.Context, customerID string, limit int) ([]domain.CreditEntry, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, amount_cents, type, balance_after_cents, COALESCE(sale_id, ''), created_at
		FROM credit_entries
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.CreditEntry, 0, limit)
	for rows.Next() {
		var e domain.CreditEntry
		if err := rows.Scan(&e.ID, &e.CustomerID, &e.AmountCents, &e.Type, &e.BalanceAfterCents, &e.SaleID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) CreateTable(ctx context.Context, table domain.Table) (*domain.Table, error) {
	if table.UnitID == "" || table.Number < 1 {
		return nil, store.ErrInvalidRequest
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
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dining_tables (id, unit_id, number, capacity, status, service_status, cart, last_ordered_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,'[]'::jsonb,NULL,$7,now())
	`, table.ID, table.UnitID, table.Number, table.Capacity, table.Status, table.ServiceStatus, table.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRequest
		}
		return nil, err
	}
	created := table
	return &created, nil
}

func (s *Store) GetTableByID(ctx context.Context, tableID string) (*domain.Table, error) {
	return s.scanTable(s.db.QueryRowContext(ctx, `
		SELECT id, unit_id, number, capacity, status, COALESCE(service_status, ''), cart, last_ordered_at, created_at
		FROM dining_tables
		WHERE id = $1
	`, tableID))
}

func (s *Store) ListTables(ctx context.Context, unitID string) ([]domain.Table, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, unit_id, number, capacity, status, COALESCE(service_status, ''), cart, last_ordered_at, created_at
		FROM dining_tables
		WHERE unit_id = $1
		ORDER BY number
	`, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := make([]domain.Table, 0, 32)
	for rows.Next() {
		var t domain.Table
		var serviceStatus string
		var cartRaw []byte
		var lastOrdered sql.NullTime
		if err := rows.Scan(&t.ID, &t.UnitID, &t.Number, &t.Capacity, &t.Status, &serviceStatus, &cartRaw, &lastOrdered, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.ServiceStatus = serviceStatus
		if err := json.Unmarshal(cartRaw, &t.Cart); err != nil {
			return nil, err
		}
		if lastOrdered.Valid {
			at := lastOrdered.Time.UTC()
			t.LastOrderedAt = &at
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tables, nil
}

func (s *Store) SelectTable(ctx context.Context, unitID string, tableID string) (*domain.Table, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	table, err := s.lockTable(ctx, tx, unitID, tableID)
	if err != nil {
		return nil, err
	}

	if table.Status == domain.TableStatusAvailable {
		table.Status = domain.TableStatusOccupied
		table.ServiceStatus = domain.ServiceStatusNone
		table.Cart = []domain.CartLine{}
		_, err = tx.ExecContext(ctx, `
			UPDATE dining_tables
			SET status = $2, service_status = $3, cart = '[]'::jsonb, updated_at = now()
			WHERE id = $1
		`, tableID, table.Status, table.ServiceStatus)
		if err != nil {
			return nil, mapTxError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, mapTxError(err)
	}
	return table, nil
}

func (s *Store) ReplaceTableCart(ctx context.Context, unitID string, tableID string, cart []domain.CartLine, orderedAt *time.Time) (*domain.Table, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	table, err := s.lockTable(ctx, tx, unitID, tableID)
	if err != nil {
		return nil, err
	}

	if cart == nil {
		cart = []domain.CartLine{}
	}
	cartJSON, err := json.Marshal(cart)
	if err != nil {
		return nil, err
	}

	table.Cart = cart
	if table.Status == domain.TableStatusAvailable {
		table.Status = domain.TableStatusOccupied
	}
	if orderedAt != nil {
		at := orderedAt.UTC()
		table.LastOrderedAt = &at
		table.ServiceStatus = domain.ServiceStatusOrdered
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE dining_tables
		SET status = $2, service_status = $3, cart = $4, last_ordered_at = $5, updated_at = now()
		WHERE id = $1
	`, tableID, table.Status, table.ServiceStatus, cartJSON, nullTime(table.LastOrderedAt))
	if err != nil {
		return nil, mapTxError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapTxError(err)
	}
	return table, nil
}

func (s *Store) SetTableServiceStatus(ctx context.Context, unitID string, tableID string, serviceStatus string) (*domain.Table, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	table, err := s.lockTable(ctx, tx, unitID, tableID)
	if err != nil {
		return nil, err
	}

	table.ServiceStatus = serviceStatus
	_, err = tx.ExecContext(ctx, `
		UPDATE dining_tables
		SET service_status = $2, updated_at = now()
		WHERE id = $1
	`, tableID, serviceStatus)
	if err != nil {
		return nil, mapTxError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapTxError(err)
	}
	return table, nil
}

func (s *Store) ReleaseTable(ctx context.Context, unitID string, tableID string) (*domain.Table, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	table, err := s.lockTable(ctx, tx, unitID, tableID)
	if err != nil {
		return nil, err
	}

	table.Status = domain.TableStatusAvailable
	table.ServiceStatus = domain.ServiceStatusNone
	table.Cart = []domain.CartLine{}
	table.LastOrderedAt = nil

	_, err = tx.ExecContext(ctx, `
		UPDATE dining_tables
		SET status = $2, service_status = '', cart = '[]'::jsonb, last_ordered_at = NULL, updated_at = now()
		WHERE id = $1
	`, tableID, table.Status)
	if err != nil {
		return nil, mapTxError(err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE kitchen_tickets
		SET settled = true, updated_at = now()
		WHERE table_id = $1 AND settled = false
	`, tableID)
	if err != nil {
		return nil, mapTxError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapTxError(err)
	}
	return table, nil
}

func (s *Store) CreateTicket(ctx context.Context, ticket domain.KitchenTicket) (*domain.KitchenTicket, error) {
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

	newItems, err := json.Marshal(ticket.NewItems)
	if err != nil {
		return nil, err
	}
	ordered, err := json.Marshal(orEmptyItems(ticket.AlreadyOrdered))
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kitchen_tickets (id, unit_id, table_id, table_number, status, new_items, already_ordered,
			started_at, ready_at, served_at, settled, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now())
	`, ticket.ID, ticket.UnitID, ticket.TableID, ticket.TableNumber, ticket.Status, newItems, ordered,
		nullTime(ticket.StartedAt), nullTime(ticket.ReadyAt), nullTime(ticket.ServedAt), ticket.Settled, ticket.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := ticket
	return &created, nil
}

func (s *Store) GetTicketByID(ctx context.Context, ticketID string) (*domain.KitchenTicket, error) {
	return s.scanTicket(s.db.QueryRowContext(ctx, `
		SELECT id, unit_id, table_id, table_number, status, new_items, already_ordered,
			started_at, ready_at, served_at, settled, created_at
		FROM kitchen_tickets
		WHERE id = $1
	`, ticketID))
}

func (s *Store) ListOpenTicketsByTable(ctx context.Context, unitID string, tableID string) ([]domain.KitchenTicket, error) {
	return s.listTickets(ctx, `
		SELECT id, unit_id, table_id, table_number, status, new_items, already_ordered,
			started_at, ready_at, served_at, settled, created_at
		FROM kitchen_tickets
		WHERE unit_id = $1 AND table_id = $2 AND settled = false AND status <> 'cancelled'
		ORDER BY created_at
	`, unitID, tableID)
}

func (s *Store) ListActiveTickets(ctx context.Context, unitID string) ([]domain.KitchenTicket, error) {
	return s.listTickets(ctx, `
		SELECT id, unit_id, table_id, table_number, status, new_items, already_ordered,
			started_at, ready_at, served_at, settled, created_at
		FROM kitchen_tickets
		WHERE unit_id = $1 AND settled = false AND status NOT IN ('cancelled', 'served')
		ORDER BY created_at
	`, unitID)
}

func (s *Store) UpdateTicket(ctx context.Context, ticket domain.KitchenTicket, priorStatus string) (*domain.KitchenTicket, error) {
	// Compare-and-swap on the status column: a stale snapshot loses instead
	// of overwriting a transition that landed between the read and this write.
	res, err := s.db.ExecContext(ctx, `
		UPDATE kitchen_tickets
		SET status = $2, started_at = $3, ready_at = $4, served_at = $5, settled = $6, updated_at = now()
		WHERE id = $1 AND status = $7
	`, ticket.ID, ticket.Status, nullTime(ticket.StartedAt), nullTime(ticket.ReadyAt), nullTime(ticket.ServedAt), ticket.Settled, priorStatus)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		if _, lookupErr := s.GetTicketByID(ctx, ticket.ID); lookupErr != nil {
			return nil, lookupErr
		}
		return nil, store.ErrConflict
	}
	updated := ticket
	return &updated, nil
}

func (s *Store) OpenShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error) {
	if shift.UnitID == "" || shift.StaffUsername == "" || shift.OpeningCashCents < 0 {
		return nil, store.ErrInvalidRequest
	}
	if shift.ID == "" {
		shift.ID = xid.New("shift")
	}
	shift.Status = domain.ShiftStatusOpen
	if shift.OpenedAt.IsZero() {
		shift.OpenedAt = time.Now().UTC()
	}

	// Relies on a partial unique index over (staff_username) WHERE status = 'open'.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shifts (id, unit_id, staff_username, opening_cash_cents, status, opened_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, shift.ID, shift.UnitID, shift.StaffUsername, shift.OpeningCashCents, shift.Status, shift.OpenedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRequest
		}
		return nil, err
	}
	created := shift
	return &created, nil
}

func (s *Store) GetShiftByID(ctx context.Context, shiftID string) (*domain.Shift, error) {
	return s.scanShift(s.db.QueryRowContext(ctx, `
		SELECT id, unit_id, staff_username, opening_cash_cents, COALESCE(closing_cash_cents, 0), status,
			total_cents, cash_cents, card_cents, mobile_cents, credit_cents, sale_count, opened_at, closed_at
		FROM shifts
		WHERE id = $1
	`, shiftID))
}

func (s *Store) GetActiveShift(ctx context.Context, staffUsername string) (*domain.Shift, error) {
	return s.scanShift(s.db.QueryRowContext(ctx, `
		SELECT id, unit_id, staff_username, opening_cash_cents, COALESCE(closing_cash_cents, 0), status,
			total_cents, cash_cents, card_cents, mobile_cents, credit_cents, sale_count, opened_at, closed_at
		FROM shifts
		WHERE staff_username = $1 AND status = 'open'
	`, staffUsername))
}

func (s *Store) CloseShift(ctx context.Context, shiftID string, closingCashCents int64, closedAt time.Time) (*domain.Shift, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var shift domain.Shift
	err = tx.QueryRowContext(ctx, `
		SELECT id, unit_id, staff_username, opening_cash_cents, status, opened_at
		FROM shifts
		WHERE id = $1
		FOR UPDATE
	`, shiftID).Scan(&shift.ID, &shift.UnitID, &shift.StaffUsername, &shift.OpeningCashCents, &shift.Status, &shift.OpenedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, mapTxError(err)
	}
	if shift.Status != domain.ShiftStatusOpen {
		return nil, store.ErrInvalidRequest
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT payment_method, COUNT(*), COALESCE(SUM(total_cents), 0)
		FROM sales
		WHERE shift_id = $1
		GROUP BY payment_method
	`, shiftID)
	if err != nil {
		return nil, mapTxError(err)
	}
	for rows.Next() {
		var method string
		var count int64
		var total int64
		if err := rows.Scan(&method, &count, &total); err != nil {
			_ = rows.Close()
			return nil, err
		}
		shift.SaleCount += count
		shift.TotalCents += total
		switch method {
		case domain.PaymentMethodCash:
			shift.CashCents = total
		case domain.PaymentMethodCard:
			shift.CardCents = total
		case domain.PaymentMethodMobile:
			shift.MobileCents = total
		case domain.PaymentMethodCredit:
			shift.CreditCents = total
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	shift.ClosingCashCents = closingCashCents
	shift.Status = domain.ShiftStatusClosed
	at := closedAt.UTC()
	shift.ClosedAt = &at

	_, err = tx.ExecContext(ctx, `
		UPDATE shifts
		SET closing_cash_cents = $2, status = $3, total_cents = $4, cash_cents = $5, card_cents = $6,
			mobile_cents = $7, credit_cents = $8, sale_count = $9, closed_at = $10
		WHERE id = $1
	`, shift.ID, shift.ClosingCashCents, shift.Status, shift.TotalCents, shift.CashCents, shift.CardCents,
		shift.MobileCents, shift.CreditCents, shift.SaleCount, at)
	if err != nil {
		return nil, mapTxError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapTxError(err)
	}
	return &shift, nil
}

// FinalizeSale performs the whole sale as one serializable transaction:
// product rows are locked, stock is validated and decremented, the sale and
// its items are inserted, one inventory log per line is appended, and for
// credit sales the customer balance and ledger move together. Any failure
// rolls back everything.
func (s *Store) FinalizeSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidRequest
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Lock the shift row so this sale and CloseShift's aggregation serialize;
	// a sale can never land on a shift whose summary is already computed.
	var shiftStatus string
	err = tx.QueryRowContext(ctx, `
		SELECT status
		FROM shifts
		WHERE id = $1
		FOR UPDATE
	`, sale.ShiftID).Scan(&shiftStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrShiftNotOpen
		}
		return nil, mapTxError(err)
	}
	if shiftStatus != domain.ShiftStatusOpen {
		return nil, store.ErrShiftNotOpen
	}

	// Lines must arrive pre-aggregated: a duplicate SKU would apply twice
	// against the same locked stock read.
	skus := uniqueSKUs(sale.Items)
	if len(skus) == 0 || len(skus) != len(sale.Items) {
		return nil, store.ErrInvalidRequest
	}

	productRows, err := tx.QueryContext(ctx, `
		SELECT sku, name, price_cents, stock_qty, status
		FROM products
		WHERE unit_id = $1 AND sku = ANY($2)
		FOR UPDATE
	`, sale.UnitID, skus)
	if err != nil {
		return nil, mapTxError(err)
	}
	type lockedProduct struct {
		name       string
		priceCents int64
		stockQty   int
		status     string
	}
	productMap := make(map[string]lockedProduct, len(skus))
	for productRows.Next() {
		var sku string
		var p lockedProduct
		if err := productRows.Scan(&sku, &p.name, &p.priceCents, &p.stockQty, &p.status); err != nil {
			_ = productRows.Close()
			return nil, err
		}
		productMap[sku] = p
	}
	if err := productRows.Err(); err != nil {
		_ = productRows.Close()
		return nil, err
	}
	_ = productRows.Close()

	totalCents := int64(0)
	finalItems := make([]domain.SaleLine, 0, len(sale.Items))
	for _, item := range sale.Items {
		if item.Qty < 1 {
			return nil, store.ErrInvalidRequest
		}
		product, exists := productMap[item.SKU]
		if !exists || product.status != domain.ProductStatusActive {
			return nil, store.ErrProductNotFound
		}
		if product.stockQty < item.Qty {
			return nil, &store.StockShortfallError{SKU: item.SKU, Requested: item.Qty, Available: product.stockQty}
		}
		finalItems = append(finalItems, domain.SaleLine{
			SKU:            item.SKU,
			Name:           product.name,
			Qty:            item.Qty,
			UnitPriceCents: product.priceCents,
		})
		totalCents += product.priceCents * int64(item.Qty)
	}

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	sale.Items = finalItems
	sale.TotalCents = totalCents
	if sale.OrderStatus == "" {
		sale.OrderStatus = domain.OrderStatusPlaced
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, unit_id, shift_id, table_id, customer_id, idempotency_key, payment_method,
			total_cents, order_status, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, sale.ID, sale.UnitID, sale.ShiftID, nullIfEmpty(sale.TableID), nullIfEmpty(sale.CustomerID),
		nullIfEmpty(sale.IdempotencyKey), sale.PaymentMethod, sale.TotalCents, sale.OrderStatus,
		sale.CreatedBy, sale.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) && sale.IdempotencyKey != "" {
			existing, lookupErr := s.FindSaleByIdempotency(ctx, sale.IdempotencyKey)
			if lookupErr == nil {
				return existing, nil
			}
		}
		return nil, mapTxError(err)
	}

	for _, item := range sale.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, sku, name, qty, unit_price_cents)
			VALUES ($1,$2,$3,$4,$5)
		`, sale.ID, item.SKU, item.Name, item.Qty, item.UnitPriceCents)
		if err != nil {
			return nil, mapTxError(err)
		}

		prev := productMap[item.SKU].stockQty
		newStock := prev - item.Qty
		_, err = tx.ExecContext(ctx, `
			UPDATE products
			SET stock_qty = $3, updated_at = now()
			WHERE unit_id = $1 AND sku = $2
		`, sale.UnitID, item.SKU, newStock)
		if err != nil {
			return nil, mapTxError(err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO inventory_logs (id, unit_id, sku, delta_qty, prev_stock, new_stock, type, actor, reason, sale_id, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULL,$9,$10)
		`, xid.New("inv"), sale.UnitID, item.SKU, -item.Qty, prev, newStock, domain.StockLogTypeSale,
			nullIfEmpty(sale.CreatedBy), sale.ID, sale.CreatedAt)
		if err != nil {
			return nil, mapTxError(err)
		}
	}

	if sale.PaymentMethod == domain.PaymentMethodCredit {
		var customerUnit string
		var balance int64
		err = tx.QueryRowContext(ctx, `
			SELECT unit_id, balance_cents
			FROM customers
			WHERE id = $1
			FOR UPDATE
		`, sale.CustomerID).Scan(&customerUnit, &balance)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, store.ErrNotFound
			}
			return nil, mapTxError(err)
		}
		if customerUnit != sale.UnitID {
			return nil, store.ErrUnitMismatch
		}

		newBalance := balance + totalCents
		_, err = tx.ExecContext(ctx, `
			UPDATE customers
			SET balance_cents = $2, updated_at = now()
			WHERE id = $1
		`, sale.CustomerID, newBalance)
		if err != nil {
			return nil, mapTxError(err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO credit_entries (id, customer_id, amount_cents, type, balance_after_cents, sale_id, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, xid.New("cre"), sale.CustomerID, totalCents, domain.CreditEntryTypeSale, newBalance, sale.ID, sale.CreatedAt)
		if err != nil {
			return nil, mapTxError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, mapTxError(err)
	}
	return &sale, nil
}

func (s *Store) FindSaleByID(ctx context.Context, saleID string) (*domain.Sale, error) {
	sale, err := s.scanSale(s.db.QueryRowContext(ctx, `
		SELECT id, unit_id, shift_id, COALESCE(table_id, ''), COALESCE(customer_id, ''), COALESCE(idempotency_key, ''),
			payment_method, total_cents, order_status, created_by, created_at
		FROM sales
		WHERE id = $1
	`, saleID))
	if err != nil {
		return nil, err
	}
	return s.attachSaleItems(ctx, sale)
}

func (s *Store) FindSaleByIdempotency(ctx context.Context, key string) (*domain.Sale, error) {
	sale, err := s.scanSale(s.db.QueryRowContext(ctx, `
		SELECT id, unit_id, shift_id, COALESCE(table_id, ''), COALESCE(customer_id, ''), COALESCE(idempotency_key, ''),
			payment_method, total_cents, order_status, created_by, created_at
		FROM sales
		WHERE idempotency_key = $1
	`, key))
	if err != nil {
		return nil, err
	}
	return s.attachSaleItems(ctx, sale)
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, unit_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.UnitID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType,
		nullIfEmpty(entry.EntityID), nullIfEmpty(entry.Detail), entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, unitID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(time.Hour)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, unit_id, actor_username, actor_role, action, entity_type, COALESCE(entity_id, ''), COALESCE(detail, ''), created_at
		FROM audit_logs
		WHERE ($1 = '' OR unit_id = $1) AND created_at BETWEEN $2 AND $3
		ORDER BY created_at DESC
		LIMIT $4
	`, unitID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.UnitID, &entry.ActorUsername, &entry.ActorRole, &entry.Action,
			&entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidRequest
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidRequest
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidRequest
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanTable(row rowScanner) (*domain.Table, error) {
	var t domain.Table
	var serviceStatus string
	var cartRaw []byte
	var lastOrdered sql.NullTime
	err := row.Scan(&t.ID, &t.UnitID, &t.Number, &t.Capacity, &t.Status, &serviceStatus, &cartRaw, &lastOrdered, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	t.ServiceStatus = serviceStatus
	if err := json.Unmarshal(cartRaw, &t.Cart); err != nil {
		return nil, err
	}
	if lastOrdered.Valid {
		at := lastOrdered.Time.UTC()
		t.LastOrderedAt = &at
	}
	return &t, nil
}

func (s *Store) lockTable(ctx context.Context, tx *sql.Tx, unitID string, tableID string) (*domain.Table, error) {
	table, err := s.scanTable(tx.QueryRowContext(ctx, `
		SELECT id, unit_id, number, capacity, status, COALESCE(service_status, ''), cart, last_ordered_at, created_at
		FROM dining_tables
		WHERE id = $1
		FOR UPDATE
	`, tableID))
	if err != nil {
		return nil, mapTxError(err)
	}
	if table.UnitID != unitID {
		return nil, store.ErrUnitMismatch
	}
	return table, nil
}

func (s *Store) scanTicket(row rowScanner) (*domain.KitchenTicket, error) {
	var t domain.KitchenTicket
	var newItemsRaw, orderedRaw []byte
	var startedAt, readyAt, servedAt sql.NullTime
	err := row.Scan(&t.ID, &t.UnitID, &t.TableID, &t.TableNumber, &t.Status, &newItemsRaw, &orderedRaw,
		&startedAt, &readyAt, &servedAt, &t.Settled, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(newItemsRaw, &t.NewItems); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(orderedRaw, &t.AlreadyOrdered); err != nil {
		return nil, err
	}
	if startedAt.Valid {
		at := startedAt.Time.UTC()
		t.StartedAt = &at
	}
	if readyAt.Valid {
		at := readyAt.Time.UTC()
		t.ReadyAt = &at
	}
	if servedAt.Valid {
		at := servedAt.Time.UTC()
		t.ServedAt = &at
	}
	return &t, nil
}

func (s *Store) listTickets(ctx context.Context, query string, args ...any) ([]domain.KitchenTicket, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]domain.KitchenTicket, 0, 16)
	for rows.Next() {
		ticket, err := s.scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Store) scanShift(row rowScanner) (*domain.Shift, error) {
	var shift domain.Shift
	var closedAt sql.NullTime
	err := row.Scan(&shift.ID, &shift.UnitID, &shift.StaffUsername, &shift.OpeningCashCents, &shift.ClosingCashCents,
		&shift.Status, &shift.TotalCents, &shift.CashCents, &shift.CardCents, &shift.MobileCents, &shift.CreditCents,
		&shift.SaleCount, &shift.OpenedAt, &closedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if closedAt.Valid {
		at := closedAt.Time.UTC()
		shift.ClosedAt = &at
	}
	return &shift, nil
}

func (s *Store) scanSale(row rowScanner) (*domain.Sale, error) {
	var sale domain.Sale
	err := row.Scan(&sale.ID, &sale.UnitID, &sale.ShiftID, &sale.TableID, &sale.CustomerID, &sale.IdempotencyKey,
		&sale.PaymentMethod, &sale.TotalCents, &sale.OrderStatus, &sale.CreatedBy, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &sale, nil
}

func (s *Store) attachSaleItems(ctx context.Context, sale *domain.Sale) (*domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sku, name, qty, unit_price_cents
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY sku
	`, sale.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.SaleLine, 0, 8)
	for rows.Next() {
		var item domain.SaleLine
		if err := rows.Scan(&item.SKU, &item.Name, &item.Qty, &item.UnitPriceCents); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sale.Items = items
	return sale, nil
}

func uniqueSKUs(items []domain.SaleLine) []string {
	if len(items) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.SKU == "" {
			continue
		}
		set[item.SKU] = struct{}{}
	}

	skus := make([]string, 0, len(set))
	for sku := range set {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	return skus
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// mapTxError translates serialization failures and deadlocks into
// store.ErrConflict so callers can retry from fresh state.
func mapTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "40001" || pgErr.Code == "40P01" {
			return store.ErrConflict
		}
	}
	return err
}

func orEmptyItems(items []domain.TicketItem) []domain.TicketItem {
	if items == nil {
		return []domain.TicketItem{}
	}
	return items
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
