package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"mejapos/backend/internal/cache"
	"mejapos/backend/internal/domain"
	"mejapos/backend/internal/events"
	"mejapos/backend/internal/logger"
	"mejapos/backend/internal/store"
	"mejapos/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Emitter receives domain events after a state change has committed.
type Emitter interface {
	Emit(event events.Event)
}

type Service struct {
	repo          store.Repository
	views         cache.ViewCache
	emitter       Emitter
	defaultUnitID string

	// tableLocks serializes order batching per table: the open-ticket read and
	// the ticket insert in SendTableOrder must not interleave, or two devices
	// sending the same cart would both see the old cumulative and double-fire
	// the delta to the kitchen.
	tableLocks sync.Map
}

func (s *Service) lockTable(tableID string) func() {
	v, _ := s.tableLocks.LoadOrStore(tableID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func New(repo store.Repository, views cache.ViewCache, emitter Emitter, defaultUnitID string) *Service {
	if views == nil {
		views = cache.NoopViewCache{}
	}
	if defaultUnitID == "" {
		defaultUnitID = "unit-main"
	}

	return &Service{
		repo:          repo,
		views:         views,
		emitter:       emitter,
		defaultUnitID: defaultUnitID,
	}
}

func (s *Service) ListProducts(ctx context.Context, unitID string) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, defaultString(unitID, s.defaultUnitID))
}

func (s *Service) GetProduct(ctx context.Context, unitID string, sku string) (domain.Product, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		return domain.Product{}, store.ErrInvalidRequest
	}
	product, err := s.repo.GetProductBySKU(ctx, defaultString(unitID, s.defaultUnitID), sku)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	req.UnitID = defaultString(req.UnitID, s.defaultUnitID)
	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)

	if req.SKU == "" || req.Name == "" || req.Category == "" {
		return domain.Product{}, store.ErrInvalidRequest
	}
	if req.PriceCents < 1 || req.CostCents < 0 || req.InitialStock < 0 || req.MinStockQty < 0 {
		return domain.Product{}, store.ErrInvalidRequest
	}

	product := domain.Product{
		SKU:         req.SKU,
		UnitID:      req.UnitID,
		Name:        req.Name,
		Category:    req.Category,
		PriceCents:  req.PriceCents,
		CostCents:   req.CostCents,
		MinStockQty: req.MinStockQty,
		Status:      domain.ProductStatusActive,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	if req.InitialStock > 0 {
		adjusted, err := s.repo.AdjustStock(ctx, domain.InventoryLog{
			UnitID:   req.UnitID,
			SKU:      created.SKU,
			DeltaQty: req.InitialStock,
			Type:     domain.StockLogTypeStockIn,
			Actor:    actor.Username,
			Reason:   "initial stock",
		})
		if err != nil {
			return domain.Product{}, err
		}
		created.StockQty = adjusted.NewStock
	}

	s.logAudit(ctx, req.UnitID, "product_create", "product", created.SKU, fmt.Sprintf("name=%s,price=%d,stock=%d", created.Name, created.PriceCents, req.InitialStock))

	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, unitID string, sku string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	unitID = defaultString(unitID, s.defaultUnitID)
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		return domain.Product{}, store.ErrInvalidRequest
	}

	existing, err := s.repo.GetProductBySKU(ctx, unitID, sku)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidRequest
		}
		updated.Name = name
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return domain.Product{}, store.ErrInvalidRequest
		}
		updated.Category = category
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 1 {
			return domain.Product{}, store.ErrInvalidRequest
		}
		updated.PriceCents = *req.PriceCents
	}
	if req.CostCents != nil {
		if *req.CostCents < 0 {
			return domain.Product{}, store.ErrInvalidRequest
		}
		updated.CostCents = *req.CostCents
	}
	if req.MinStockQty != nil {
		if *req.MinStockQty < 0 {
			return domain.Product{}, store.ErrInvalidRequest
		}
		updated.MinStockQty = *req.MinStockQty
	}
	if req.Status != nil {
		if *req.Status != domain.ProductStatusActive && *req.Status != domain.ProductStatusArchived {
			return domain.Product{}, store.ErrInvalidRequest
		}
		updated.Status = *req.Status
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, unitID, "product_update", "product", saved.SKU, fmt.Sprintf("status=%s,price=%d", saved.Status, saved.PriceCents))

	return *saved, nil
}

// AdjustStock records a manual stock movement. The sale path never goes
// through here; committed sales write their own ledger rows inside the sale
// transaction. A negative result is allowed for post-count corrections.
func (s *Service) AdjustStock(ctx context.Context, req domain.StockAdjustRequest) (domain.InventoryLog, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.InventoryLog{}, fmt.Errorf("admin role required")
	}

	req.UnitID = defaultString(req.UnitID, s.defaultUnitID)
	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	if req.SKU == "" || req.DeltaQty == 0 {
		return domain.InventoryLog{}, store.ErrInvalidRequest
	}
	if req.Type != domain.StockLogTypeStockIn && req.Type != domain.StockLogTypeAdjustment {
		return domain.InventoryLog{}, store.ErrInvalidRequest
	}

	entry, err := s.repo.AdjustStock(ctx, domain.InventoryLog{
		UnitID:   req.UnitID,
		SKU:      req.SKU,
		DeltaQty: req.DeltaQty,
		Type:     req.Type,
		Actor:    actor.Username,
		Reason:   strings.TrimSpace(req.Reason),
	})
	if err != nil {
		return domain.InventoryLog{}, err
	}

	s.logAudit(ctx, req.UnitID, "stock_adjust", "product", req.SKU, fmt.Sprintf("delta=%d,type=%s,new=%d", entry.DeltaQty, entry.Type, entry.NewStock))

	return *entry, nil
}

func (s *Service) ListInventoryLogs(ctx context.Context, unitID string, sku string, date string, limit int) (domain.InventoryLogListResponse, error) {
	unitID = defaultString(unitID, s.defaultUnitID)
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if limit < 1 {
		limit = 100
	}

	from, to, err := dayWindow(date)
	if err != nil {
		return domain.InventoryLogListResponse{}, store.ErrInvalidRequest
	}

	logs, err := s.repo.ListInventoryLogs(ctx, unitID, sku, from, to, limit)
	if err != nil {
		return domain.InventoryLogListResponse{}, err
	}
	return domain.InventoryLogListResponse{Logs: logs}, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || (actor.Role != "admin" && actor.Role != "cashier") {
		return domain.Customer{}, fmt.Errorf("admin or cashier role required")
	}

	req.UnitID = defaultString(req.UnitID, s.defaultUnitID)
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.CreditLimitCents < 0 {
		return domain.Customer{}, store.ErrInvalidRequest
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		UnitID:           req.UnitID,
		Name:             req.Name,
		Phone:            strings.TrimSpace(req.Phone),
		CreditLimitCents: req.CreditLimitCents,
		RiskTag:          strings.TrimSpace(req.RiskTag),
	})
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, req.UnitID, "customer_create", "customer", created.ID, created.Name)

	return *created, nil
}

func (s *Service) ListCustomers(ctx context.Context, unitID string) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx, defaultString(unitID, s.defaultUnitID))
}

// PostRepayment reduces a customer's outstanding balance. The amount must be
// positive and must not exceed the current balance.
func (s *Service) PostRepayment(ctx context.Context, req domain.RepaymentRequest) (domain.CreditEntry, error) {
	if req.CustomerID == "" {
		return domain.CreditEntry{}, store.ErrInvalidRequest
	}
	if req.AmountCents < 1 {
		return domain.CreditEntry{}, store.ErrInvalidAmount
	}

	entry, err := s.repo.PostRepayment(ctx, req.CustomerID, req.AmountCents, time.Now().UTC())
	if err != nil {
		return domain.CreditEntry{}, err
	}

	s.logAudit(ctx, s.defaultUnitID, "credit_repayment", "customer", req.CustomerID, fmt.Sprintf("amount=%d,balance_after=%d", req.AmountCents, entry.BalanceAfterCents))

	return *entry, nil
}

func (s *Service) GetCreditStatement(ctx context.Context, customerID string, limit int) (domain.CreditStatement, error) {
	if customerID == "" {
		return domain.CreditStatement{}, store.ErrInvalidRequest
	}
	if limit < 1 {
		limit = 100
	}

	customer, err := s.repo.GetCustomerByID(ctx, customerID)
	if err != nil {
		return domain.CreditStatement{}, err
	}
	entries, err := s.repo.ListCreditEntries(ctx, customerID, limit)
	if err != nil {
		return domain.CreditStatement{}, err
	}
	return domain.CreditStatement{Customer: *customer, Entries: entries}, nil
}

func (s *Service) OpenShift(ctx context.Context, req domain.ShiftOpenRequest) (domain.ShiftResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.ShiftResponse{}, fmt.Errorf("authenticated staff required")
	}

	req.UnitID = defaultString(req.UnitID, s.defaultUnitID)
	if req.OpeningCashCents < 0 {
		return domain.ShiftResponse{}, store.ErrInvalidRequest
	}

	shift := domain.Shift{
		ID:               xid.New("shift"),
		UnitID:           req.UnitID,
		StaffUsername:    actor.Username,
		OpeningCashCents: req.OpeningCashCents,
		Status:           domain.ShiftStatusOpen,
		OpenedAt:         time.Now().UTC(),
	}
	saved, err := s.repo.OpenShift(ctx, shift)
	if err != nil {
		if errors.Is(err, store.ErrInvalidRequest) {
			return domain.ShiftResponse{}, fmt.Errorf("shift already open: %w", store.ErrConflict)
		}
		return domain.ShiftResponse{}, err
	}

	s.logAudit(ctx, req.UnitID, "shift_open", "shift", saved.ID, fmt.Sprintf("opening_cash=%d", req.OpeningCashCents))

	return domain.ShiftResponse{Shift: *saved}, nil
}

func (s *Service) CloseShift(ctx context.Context, shiftID string, req domain.ShiftCloseRequest) (domain.ShiftResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.ShiftResponse{}, fmt.Errorf("authenticated staff required")
	}
	if shiftID == "" {
		return domain.ShiftResponse{}, store.ErrInvalidRequest
	}

	shift, err := s.repo.GetShiftByID(ctx, shiftID)
	if err != nil {
		return domain.ShiftResponse{}, err
	}
	if shift.StaffUsername != actor.Username && actor.Role != "admin" {
		return domain.ShiftResponse{}, fmt.Errorf("admin role required to close another staff's shift")
	}

	closed, err := s.repo.CloseShift(ctx, shiftID, req.ClosingCashCents, time.Now().UTC())
	if err != nil {
		return domain.ShiftResponse{}, err
	}

	s.logAudit(ctx, closed.UnitID, "shift_close", "shift", closed.ID, fmt.Sprintf("closing_cash=%d,total=%d,sales=%d", req.ClosingCashCents, closed.TotalCents, closed.SaleCount))

	return domain.ShiftResponse{Shift: *closed}, nil
}

func (s *Service) GetActiveShift(ctx context.Context) (domain.ShiftResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.ShiftResponse{}, fmt.Errorf("authenticated staff required")
	}

	shift, err := s.repo.GetActiveShift(ctx, actor.Username)
	if err != nil {
		return domain.ShiftResponse{}, err
	}
	return domain.ShiftResponse{Shift: *shift}, nil
}

// FinalizeSale is the single entry point that turns a cart into a committed
// sale. The shift guard runs first; the store then executes the whole
// mutation set in one transaction. After the commit the originating table is
// released and cached views are invalidated.
func (s *Service) FinalizeSale(ctx context.Context, req domain.SaleRequest) (domain.SaleResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.SaleResponse{}, fmt.Errorf("authenticated staff required")
	}

	req.UnitID = defaultString(req.UnitID, s.defaultUnitID)
	req.PaymentMethod = defaultString(req.PaymentMethod, domain.PaymentMethodCash)
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = xid.New("idem")
	}

	if !isSupportedPaymentMethod(req.PaymentMethod) {
		return domain.SaleResponse{}, store.ErrInvalidRequest
	}
	if req.PaymentMethod == domain.PaymentMethodCredit && req.CustomerID == "" {
		return domain.SaleResponse{}, store.ErrInvalidRequest
	}

	normalized := normalizeLines(req.Lines)
	if len(normalized) == 0 {
		return domain.SaleResponse{}, store.ErrInvalidRequest
	}

	shift, err := s.repo.GetActiveShift(ctx, actor.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SaleResponse{}, store.ErrShiftNotOpen
		}
		return domain.SaleResponse{}, err
	}
	if shift.UnitID != req.UnitID {
		return domain.SaleResponse{}, store.ErrUnitMismatch
	}

	if existing, err := s.repo.FindSaleByIdempotency(ctx, req.IdempotencyKey); err == nil {
		return toSaleResponse(existing, true), nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.SaleResponse{}, err
	}

	items := make([]domain.SaleLine, 0, len(normalized))
	for _, line := range normalized {
		items = append(items, domain.SaleLine{SKU: line.SKU, Qty: line.Qty})
	}

	saleID := xid.New("sale")
	sale := domain.Sale{
		ID:             saleID,
		UnitID:         req.UnitID,
		ShiftID:        shift.ID,
		TableID:        req.TableID,
		CustomerID:     req.CustomerID,
		IdempotencyKey: req.IdempotencyKey,
		PaymentMethod:  req.PaymentMethod,
		OrderStatus:    domain.OrderStatusPlaced,
		CreatedBy:      actor.Username,
		CreatedAt:      time.Now().UTC(),
		Items:          items,
	}

	created, err := s.repo.FinalizeSale(ctx, sale)
	if err != nil {
		return domain.SaleResponse{}, err
	}
	duplicate := created.ID != saleID
	if duplicate {
		return toSaleResponse(created, true), nil
	}

	if created.TableID != "" {
		if _, err := s.repo.ReleaseTable(ctx, created.UnitID, created.TableID); err != nil {
			logger.Warn().Err(err).Str("table_id", created.TableID).Msg("failed to release table after sale")
		}
		s.emit(events.Event{Type: events.TypeTableStatusChanged, UnitID: created.UnitID, EntityID: created.TableID})
	}

	s.logAudit(ctx, created.UnitID, "sale_finalize", "sale", created.ID, fmt.Sprintf("total=%d,payment=%s,items=%d", created.TotalCents, created.PaymentMethod, len(created.Items)))
	s.emit(events.Event{Type: events.TypeSaleFinalized, UnitID: created.UnitID, EntityID: created.ID})
	s.invalidateViews(ctx, created.UnitID)

	return toSaleResponse(created, false), nil
}

func (s *Service) LookupSaleByIdempotency(ctx context.Context, idempotencyKey string) (domain.SaleLookupResponse, error) {
	if idempotencyKey == "" {
		return domain.SaleLookupResponse{}, store.ErrInvalidRequest
	}

	sale, err := s.repo.FindSaleByIdempotency(ctx, idempotencyKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SaleLookupResponse{Found: false}, nil
		}
		return domain.SaleLookupResponse{}, err
	}

	resp := toSaleResponse(sale, true)
	return domain.SaleLookupResponse{Found: true, Sale: &resp}, nil
}

func (s *Service) GetSale(ctx context.Context, saleID string) (domain.SaleResponse, error) {
	if saleID == "" {
		return domain.SaleResponse{}, store.ErrInvalidRequest
	}
	sale, err := s.repo.FindSaleByID(ctx, saleID)
	if err != nil {
		return domain.SaleResponse{}, err
	}
	return toSaleResponse(sale, false), nil
}

func (s *Service) ListAuditLogs(ctx context.Context, unitID string, date string, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	from, to, err := dayWindow(date)
	if err != nil {
		return nil, store.ErrInvalidRequest
	}
	return s.repo.ListAuditLogs(ctx, defaultString(unitID, s.defaultUnitID), from, to, limit)
}

func (s *Service) emit(event events.Event) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(event)
}

func (s *Service) invalidateViews(ctx context.Context, unitID string) {
	if err := s.views.Invalidate(ctx, cache.FloorViewKey(unitID), cache.KitchenViewKey(unitID)); err != nil {
		logger.Warn().Err(err).Str("unit_id", unitID).Msg("failed to invalidate cached views")
	}
}

func (s *Service) logAudit(ctx context.Context, unitID string, action string, entityType string, entityID string, detail string) {
	if unitID == "" {
		unitID = s.defaultUnitID
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		UnitID:        unitID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		logger.Warn().Err(err).Str("action", action).Str("entity", entityType+"/"+entityID).Msg("failed to write audit log")
	}
}

func toSaleResponse(sale *domain.Sale, duplicate bool) domain.SaleResponse {
	itemCount := 0
	for _, item := range sale.Items {
		itemCount += item.Qty
	}

	return domain.SaleResponse{
		SaleID:        sale.ID,
		UnitID:        sale.UnitID,
		ShiftID:       sale.ShiftID,
		TableID:       sale.TableID,
		CustomerID:    sale.CustomerID,
		PaymentMethod: sale.PaymentMethod,
		TotalCents:    sale.TotalCents,
		ItemCount:     itemCount,
		Duplicate:     duplicate,
		CreatedAt:     sale.CreatedAt.Format(time.RFC3339),
		Items:         sale.Items,
	}
}

// normalizeLines aggregates duplicate SKUs and drops empty or non-positive
// lines. Unit prices are never trusted from the caller.
func normalizeLines(lines []domain.CartLine) []domain.CartLine {
	agg := make(map[string]int, len(lines))
	order := make([]string, 0, len(lines))
	for _, line := range lines {
		if line.SKU == "" || line.Qty < 1 {
			continue
		}
		if _, seen := agg[line.SKU]; !seen {
			order = append(order, line.SKU)
		}
		agg[line.SKU] += line.Qty
	}

	normalized := make([]domain.CartLine, 0, len(agg))
	for _, sku := range order {
		normalized = append(normalized, domain.CartLine{SKU: sku, Qty: agg[sku]})
	}
	return normalized
}

func dayWindow(date string) (time.Time, time.Time, error) {
	if date == "" {
		return time.Time{}, time.Time{}, nil
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return from, from.Add(24 * time.Hour), nil
}

func defaultString(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func isSupportedPaymentMethod(method string) bool {
	switch method {
	case domain.PaymentMethodCash, domain.PaymentMethodCard, domain.PaymentMethodMobile, domain.PaymentMethodCredit:
		return true
	}
	return false
}
