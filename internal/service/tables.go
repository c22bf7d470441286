package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mejapos/backend/internal/cache"
	"mejapos/backend/internal/domain"
	"mejapos/backend/internal/events"
	"mejapos/backend/internal/logger"
	"mejapos/backend/internal/store"
)

const floorViewTTL = 30 * time.Second

func (s *Service) CreateTable(ctx context.Context, req domain.TableCreateRequest) (domain.Table, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Table{}, fmt.Errorf("admin role required")
	}

	req.UnitID = defaultString(req.UnitID, s.defaultUnitID)
	if req.Number < 1 || req.Capacity < 1 {
		return domain.Table{}, store.ErrInvalidRequest
	}

	created, err := s.repo.CreateTable(ctx, domain.Table{
		UnitID:   req.UnitID,
		Number:   req.Number,
		Capacity: req.Capacity,
	})
	if err != nil {
		return domain.Table{}, err
	}

	s.logAudit(ctx, req.UnitID, "table_create", "table", created.ID, fmt.Sprintf("number=%d,capacity=%d", created.Number, created.Capacity))
	s.invalidateViews(ctx, req.UnitID)

	return *created, nil
}

// FloorView returns every table in the unit with its live status and staged
// cart. The rendered view is cached briefly; any table mutation invalidates it.
func (s *Service) FloorView(ctx context.Context, unitID string) (domain.FloorView, error) {
	unitID = defaultString(unitID, s.defaultUnitID)
	key := cache.FloorViewKey(unitID)

	if payload, ok, err := s.views.Get(ctx, key); err == nil && ok {
		var view domain.FloorView
		if err := json.Unmarshal(payload, &view); err == nil {
			return view, nil
		}
	}

	tables, err := s.repo.ListTables(ctx, unitID)
	if err != nil {
		return domain.FloorView{}, err
	}
	view := domain.FloorView{UnitID: unitID, Tables: tables}

	if payload, err := json.Marshal(view); err == nil {
		if err := s.views.Set(ctx, key, payload, floorViewTTL); err != nil {
			logger.Warn().Err(err).Str("unit_id", unitID).Msg("failed to cache floor view")
		}
	}

	return view, nil
}

// SelectTable claims an available table for a new party. Selecting a table
// that is already occupied or reserved returns its current state, staged
// cart included, so a second device converges on the server's view.
func (s *Service) SelectTable(ctx context.Context, unitID string, tableID string) (domain.TableResponse, error) {
	unitID = defaultString(unitID, s.defaultUnitID)
	if tableID == "" {
		return domain.TableResponse{}, store.ErrInvalidRequest
	}

	table, err := s.repo.SelectTable(ctx, unitID, tableID)
	if err != nil {
		return domain.TableResponse{}, err
	}

	s.emit(events.Event{Type: events.TypeTableStatusChanged, UnitID: unitID, EntityID: tableID})
	s.invalidateViews(ctx, unitID)

	return domain.TableResponse{Table: *table}, nil
}

// UpdateStagedCart replaces the table's staged cart wholesale. Lines are
// validated against the catalog and unit prices are snapshotted server-side;
// submitting the same cart twice is a no-op.
func (s *Service) UpdateStagedCart(ctx context.Context, tableID string, req domain.TableCartRequest) (domain.TableResponse, error) {
	unitID := defaultString(req.UnitID, s.defaultUnitID)
	if tableID == "" {
		return domain.TableResponse{}, store.ErrInvalidRequest
	}

	lines, _, err := s.priceCartLines(ctx, unitID, req.Lines)
	if err != nil {
		return domain.TableResponse{}, err
	}

	table, err := s.repo.ReplaceTableCart(ctx, unitID, tableID, lines, nil)
	if err != nil {
		return domain.TableResponse{}, err
	}

	s.emit(events.Event{Type: events.TypeTableCartChanged, UnitID: unitID, EntityID: tableID})
	s.invalidateViews(ctx, unitID)

	return domain.TableResponse{Table: *table}, nil
}

func (s *Service) MarkTableBilling(ctx context.Context, unitID string, tableID string) (domain.TableResponse, error) {
	unitID = defaultString(unitID, s.defaultUnitID)
	if tableID == "" {
		return domain.TableResponse{}, store.ErrInvalidRequest
	}

	table, err := s.repo.SetTableServiceStatus(ctx, unitID, tableID, domain.ServiceStatusBilling)
	if err != nil {
		return domain.TableResponse{}, err
	}

	s.emit(events.Event{Type: events.TypeTableStatusChanged, UnitID: unitID, EntityID: tableID})
	s.invalidateViews(ctx, unitID)

	return domain.TableResponse{Table: *table}, nil
}

// ReleaseTable resets the table for the next party and settles its open
// kitchen tickets. Sale finalization calls this automatically; the endpoint
// also exists for manual resets (walk-outs, mis-seated parties).
func (s *Service) ReleaseTable(ctx context.Context, unitID string, tableID string) (domain.TableResponse, error) {
	unitID = defaultString(unitID, s.defaultUnitID)
	if tableID == "" {
		return domain.TableResponse{}, store.ErrInvalidRequest
	}

	table, err := s.repo.ReleaseTable(ctx, unitID, tableID)
	if err != nil {
		return domain.TableResponse{}, err
	}

	s.logAudit(ctx, unitID, "table_release", "table", tableID, "")
	s.emit(events.Event{Type: events.TypeTableStatusChanged, UnitID: unitID, EntityID: tableID})
	s.invalidateViews(ctx, unitID)

	return domain.TableResponse{Table: *table}, nil
}

// priceCartLines validates and normalizes cart lines, snapshotting the
// current unit price of every SKU. Returns the priced lines and the product
// map for callers that need names.
func (s *Service) priceCartLines(ctx context.Context, unitID string, lines []domain.CartLine) ([]domain.CartLine, map[string]domain.Product, error) {
	normalized := normalizeLines(lines)
	if len(normalized) == 0 {
		return []domain.CartLine{}, map[string]domain.Product{}, nil
	}

	skus := make([]string, 0, len(normalized))
	for i := range normalized {
		normalized[i].SKU = strings.ToUpper(strings.TrimSpace(normalized[i].SKU))
		skus = append(skus, normalized[i].SKU)
	}

	products, err := s.repo.GetProductsBySKUs(ctx, unitID, skus)
	if err != nil {
		return nil, nil, err
	}

	for i, line := range normalized {
		product, exists := products[line.SKU]
		if !exists || product.Status != domain.ProductStatusActive {
			return nil, nil, store.ErrProductNotFound
		}
		normalized[i].UnitPriceCents = product.PriceCents
	}

	return normalized, products, nil
}
