package domain

import "time"

type Product struct {
	SKU         string    `json:"sku"`
	UnitID      string    `json:"unit_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	PriceCents  int64     `json:"price_cents"`
	CostCents   int64     `json:"cost_cents"`
	StockQty    int       `json:"stock_qty"`
	MinStockQty int       `json:"min_stock_qty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type ProductCreateRequest struct {
	UnitID       string `json:"unit_id"`
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	PriceCents   int64  `json:"price_cents"`
	CostCents    int64  `json:"cost_cents"`
	InitialStock int    `json:"initial_stock"`
	MinStockQty  int    `json:"min_stock_qty"`
}

type ProductUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Category    *string `json:"category,omitempty"`
	PriceCents  *int64  `json:"price_cents,omitempty"`
	CostCents   *int64  `json:"cost_cents,omitempty"`
	MinStockQty *int    `json:"min_stock_qty,omitempty"`
	Status      *string `json:"status,omitempty"`
}

type CartLine struct {
	SKU            string `json:"sku"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type InventoryLog struct {
	ID        string    `json:"id"`
	UnitID    string    `json:"unit_id"`
	SKU       string    `json:"sku"`
	DeltaQty  int       `json:"delta_qty"`
	PrevStock int       `json:"prev_stock"`
	NewStock  int       `json:"new_stock"`
	Type      string    `json:"type"`
	Actor     string    `json:"actor,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	SaleID    string    `json:"sale_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type StockAdjustRequest struct {
	UnitID     string `json:"unit_id"`
	SKU        string `json:"sku"`
	DeltaQty   int    `json:"delta_qty"`
	Type       string `json:"type"`
	Reason     string `json:"reason"`
	ManagerPIN string `json:"manager_pin"`
}

type InventoryLogListResponse struct {
	Logs []InventoryLog `json:"logs"`
}

type Customer struct {
	ID               string    `json:"id"`
	UnitID           string    `json:"unit_id"`
	Name             string    `json:"name"`
	Phone            string    `json:"phone,omitempty"`
	CreditLimitCents int64     `json:"credit_limit_cents"`
	BalanceCents     int64     `json:"balance_cents"`
	RiskTag          string    `json:"risk_tag,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

type CustomerCreateRequest struct {
	UnitID           string `json:"unit_id"`
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	CreditLimitCents int64  `json:"credit_limit_cents"`
	RiskTag          string `json:"risk_tag"`
}

type CreditEntry struct {
	ID                string    `json:"id"`
	CustomerID        string    `json:"customer_id"`
	AmountCents       int64     `json:"amount_cents"`
	Type              string    `json:"type"`
	BalanceAfterCents int64     `json:"balance_after_cents"`
	SaleID            string    `json:"sale_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

type RepaymentRequest struct {
	CustomerID  string `json:"customer_id"`
	AmountCents int64  `json:"amount_cents"`
}

type CreditStatement struct {
	Customer Customer      `json:"customer"`
	Entries  []CreditEntry `json:"entries"`
}

type Table struct {
	ID            string     `json:"id"`
	UnitID        string     `json:"unit_id"`
	Number        int        `json:"number"`
	Capacity      int        `json:"capacity"`
	Status        string     `json:"status"`
	ServiceStatus string     `json:"service_status,omitempty"`
	Cart          []CartLine `json:"cart"`
	LastOrderedAt *time.Time `json:"last_ordered_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type TableCreateRequest struct {
	UnitID   string `json:"unit_id"`
	Number   int    `json:"number"`
	Capacity int    `json:"capacity"`
}

type TableCartRequest struct {
	UnitID string     `json:"unit_id"`
	Lines  []CartLine `json:"lines"`
}

type TableReleaseRequest struct {
	UnitID     string `json:"unit_id"`
	ManagerPIN string `json:"manager_pin"`
}

type TableResponse struct {
	Table Table `json:"table"`
}

type FloorView struct {
	UnitID string  `json:"unit_id"`
	Tables []Table `json:"tables"`
}

type TicketItem struct {
	SKU  string `json:"sku"`
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

type KitchenTicket struct {
	ID             string       `json:"id"`
	UnitID         string       `json:"unit_id"`
	TableID        string       `json:"table_id"`
	TableNumber    int          `json:"table_number"`
	Status         string       `json:"status"`
	NewItems       []TicketItem `json:"new_items"`
	AlreadyOrdered []TicketItem `json:"already_ordered"`
	StartedAt      *time.Time   `json:"started_at,omitempty"`
	ReadyAt        *time.Time   `json:"ready_at,omitempty"`
	ServedAt       *time.Time   `json:"served_at,omitempty"`
	Settled        bool         `json:"settled"`
	CreatedAt      time.Time    `json:"created_at"`
}

type SendOrderRequest struct {
	UnitID string     `json:"unit_id"`
	Lines  []CartLine `json:"lines"`
}

type SendOrderResponse struct {
	NoNewItems bool           `json:"no_new_items"`
	Ticket     *KitchenTicket `json:"ticket,omitempty"`
	Table      Table          `json:"table"`
}

type TicketTransitionRequest struct {
	Status string `json:"status"`
}

type KitchenView struct {
	UnitID  string          `json:"unit_id"`
	Tickets []KitchenTicket `json:"tickets"`
}

type Shift struct {
	ID               string     `json:"id"`
	UnitID           string     `json:"unit_id"`
	StaffUsername    string     `json:"staff_username"`
	OpeningCashCents int64      `json:"opening_cash_cents"`
	ClosingCashCents int64      `json:"closing_cash_cents,omitempty"`
	Status           string     `json:"status"`
	TotalCents       int64      `json:"total_cents"`
	CashCents        int64      `json:"cash_cents"`
	CardCents        int64      `json:"card_cents"`
	MobileCents      int64      `json:"mobile_cents"`
	CreditCents      int64      `json:"credit_cents"`
	SaleCount        int64      `json:"sale_count"`
	OpenedAt         time.Time  `json:"opened_at"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`
}

type ShiftOpenRequest struct {
	UnitID           string `json:"unit_id"`
	OpeningCashCents int64  `json:"opening_cash_cents"`
}

type ShiftCloseRequest struct {
	ClosingCashCents int64  `json:"closing_cash_cents"`
	Notes            string `json:"notes"`
}

type ShiftResponse struct {
	Shift Shift `json:"shift"`
}

type SaleLine struct {
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type Sale struct {
	ID             string     `json:"id"`
	UnitID         string     `json:"unit_id"`
	ShiftID        string     `json:"shift_id"`
	TableID        string     `json:"table_id,omitempty"`
	CustomerID     string     `json:"customer_id,omitempty"`
	IdempotencyKey string     `json:"idempotency_key,omitempty"`
	PaymentMethod  string     `json:"payment_method"`
	TotalCents     int64      `json:"total_cents"`
	OrderStatus    string     `json:"order_status"`
	CreatedBy      string     `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	Items          []SaleLine `json:"items"`
}

type SaleRequest struct {
	UnitID         string     `json:"unit_id"`
	TableID        string     `json:"table_id,omitempty"`
	CustomerID     string     `json:"customer_id,omitempty"`
	IdempotencyKey string     `json:"idempotency_key"`
	PaymentMethod  string     `json:"payment_method"`
	Lines          []CartLine `json:"lines"`
}

type SaleResponse struct {
	SaleID        string     `json:"sale_id"`
	UnitID        string     `json:"unit_id"`
	ShiftID       string     `json:"shift_id"`
	TableID       string     `json:"table_id,omitempty"`
	CustomerID    string     `json:"customer_id,omitempty"`
	PaymentMethod string     `json:"payment_method"`
	TotalCents    int64      `json:"total_cents"`
	ItemCount     int        `json:"item_count"`
	Duplicate     bool       `json:"duplicate"`
	CreatedAt     string     `json:"created_at"`
	Items         []SaleLine `json:"items"`
}

type SaleLookupResponse struct {
	Found bool          `json:"found"`
	Sale  *SaleResponse `json:"sale,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	UnitID        string    `json:"unit_id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	ProductStatusActive   = "active"
	ProductStatusArchived = "archived"
)

const (
	StockLogTypeStockIn    = "stock-in"
	StockLogTypeSale       = "sale"
	StockLogTypeAdjustment = "adjustment"
)

const (
	CreditEntryTypeSale      = "sale"
	CreditEntryTypeRepayment = "repayment"
)

const (
	TableStatusAvailable = "available"
	TableStatusOccupied  = "occupied"
	TableStatusReserved  = "reserved"
)

const (
	ServiceStatusNone    = ""
	ServiceStatusOrdered = "ordered"
	ServiceStatusBilling = "billing"
)

const (
	TicketStatusInPreparation = "in_preparation"
	TicketStatusReady         = "ready"
	TicketStatusServed        = "served"
	TicketStatusCancelled     = "cancelled"
)

const (
	ShiftStatusOpen   = "open"
	ShiftStatusClosed = "closed"
)

const (
	PaymentMethodCash   = "cash"
	PaymentMethodCard   = "card"
	PaymentMethodMobile = "mobile"
	PaymentMethodCredit = "credit"
)

const (
	OrderStatusPlaced    = "placed"
	OrderStatusCompleted = "completed"
)
