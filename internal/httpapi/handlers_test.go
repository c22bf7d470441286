package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"mejapos/backend/internal/cache"
	"mejapos/backend/internal/domain"
	"mejapos/backend/internal/service"
	"mejapos/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, cache.NoopViewCache{}, nil, "unit-main")
	auth := NewAuthManager("test-secret-key", time.Hour, "739154", repo)

	return New(svc, auth, "*")
}

// mustHashPassword generates a bcrypt hash of the given password or fails the test.
func mustHashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

// doJSON fires an authenticated JSON request against the handler and returns
// the recorder. Empty token or csrf skips the respective header.
func doJSON(t *testing.T, handler http.Handler, method, path, token, csrf string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_Success(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", "", map[string]string{
		"username": "admin",
		"password": "admin123",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.AccessToken == "" {
		t.Fatalf("expected access_token in response")
	}
	if body.Role != "admin" {
		t.Fatalf("expected role admin, got %s", body.Role)
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", "", map[string]string{
		"username": "admin",
		"password": "wrongpassword",
	})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleProducts_RequiresAuth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleProducts_WithValidToken(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/products", token, "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["products"] == nil {
		t.Fatalf("expected products key in response, got %v", body)
	}
}

func TestHandleKitchenTickets_CashierForbidden(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/kitchen/tickets", token, "", nil)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier on kitchen board, got %d", rec.Code)
	}
}

func TestHandleSales_CreatedThenDuplicate(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "cashier", "cashier123")
	csrf := fetchCSRFToken(t, api)

	openRec := doJSON(t, handler, http.MethodPost, "/api/v1/shifts/open", token, csrf, domain.ShiftOpenRequest{
		UnitID:           "unit-main",
		OpeningCashCents: 100000,
	})
	if openRec.Code != http.StatusCreated {
		t.Fatalf("open shift failed: %d (body: %s)", openRec.Code, openRec.Body.String())
	}

	sale := domain.SaleRequest{
		UnitID:         "unit-main",
		IdempotencyKey: "http-test-key-1",
		PaymentMethod:  "cash",
		Lines:          []domain.CartLine{{SKU: "SKU-NASGOR-01", Qty: 1}},
	}

	first := doJSON(t, handler, http.MethodPost, "/api/v1/sales", token, csrf, sale)
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 for new sale, got %d (body: %s)", first.Code, first.Body.String())
	}

	second := doJSON(t, handler, http.MethodPost, "/api/v1/sales", token, csrf, sale)
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200 for duplicate sale, got %d (body: %s)", second.Code, second.Body.String())
	}

	var firstResp, secondResp domain.SaleResponse
	if err := json.NewDecoder(first.Body).Decode(&firstResp); err != nil {
		t.Fatalf("decode first sale: %v", err)
	}
	if err := json.NewDecoder(second.Body).Decode(&secondResp); err != nil {
		t.Fatalf("decode second sale: %v", err)
	}
	if firstResp.SaleID != secondResp.SaleID {
		t.Fatalf("duplicate must return the original sale, got %s vs %s", firstResp.SaleID, secondResp.SaleID)
	}
	if !secondResp.Duplicate {
		t.Fatalf("expected duplicate flag on replay")
	}
}

func TestHandleSales_ShortfallDetailInBody(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "cashier", "cashier123")
	csrf := fetchCSRFToken(t, api)

	openRec := doJSON(t, handler, http.MethodPost, "/api/v1/shifts/open", token, csrf, domain.ShiftOpenRequest{
		UnitID: "unit-main",
	})
	if openRec.Code != http.StatusCreated {
		t.Fatalf("open shift failed: %d", openRec.Code)
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/sales", token, csrf, domain.SaleRequest{
		UnitID:         "unit-main",
		IdempotencyKey: "http-test-key-2",
		PaymentMethod:  "cash",
		Lines:          []domain.CartLine{{SKU: "SKU-GADO-01", Qty: 61}},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for shortfall, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["sku"] != "SKU-GADO-01" {
		t.Fatalf("expected sku detail, got %v", body)
	}
	if body["shortfall"] != float64(1) {
		t.Fatalf("expected shortfall 1, got %v", body["shortfall"])
	}
}

func TestHandleSales_NoOpenShiftConflict(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "cashier", "cashier123")
	csrf := fetchCSRFToken(t, api)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/sales", token, csrf, domain.SaleRequest{
		UnitID:         "unit-main",
		IdempotencyKey: "http-test-key-3",
		PaymentMethod:  "cash",
		Lines:          []domain.CartLine{{SKU: "SKU-ESTEH-01", Qty: 1}},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 without an open shift, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleTableRelease_ManagerPIN(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "waiter", "cashier123")
	csrf := fetchCSRFToken(t, api)

	floorRec := doJSON(t, handler, http.MethodGet, "/api/v1/tables?unit_id=unit-main", token, "", nil)
	if floorRec.Code != http.StatusOK {
		t.Fatalf("floor view failed: %d", floorRec.Code)
	}
	var floor domain.FloorView
	if err := json.NewDecoder(floorRec.Body).Decode(&floor); err != nil {
		t.Fatalf("decode floor view: %v", err)
	}
	if len(floor.Tables) == 0 {
		t.Fatalf("expected seeded tables")
	}
	tableID := floor.Tables[0].ID

	selRec := doJSON(t, handler, http.MethodPost, "/api/v1/tables/"+tableID+"/select?unit_id=unit-main", token, csrf, nil)
	if selRec.Code != http.StatusOK {
		t.Fatalf("select table failed: %d (body: %s)", selRec.Code, selRec.Body.String())
	}

	wrong := doJSON(t, handler, http.MethodPost, "/api/v1/tables/"+tableID+"/release", token, csrf, domain.TableReleaseRequest{
		UnitID:     "unit-main",
		ManagerPIN: "000000",
	})
	if wrong.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong manager pin, got %d", wrong.Code)
	}

	right := doJSON(t, handler, http.MethodPost, "/api/v1/tables/"+tableID+"/release", token, csrf, domain.TableReleaseRequest{
		UnitID:     "unit-main",
		ManagerPIN: "739154",
	})
	if right.Code != http.StatusOK {
		t.Fatalf("expected 200 for correct manager pin, got %d (body: %s)", right.Code, right.Body.String())
	}
}

func TestHandleInventoryAdjust_ManagerPIN(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "admin", "admin123")
	csrf := fetchCSRFToken(t, api)

	wrong := doJSON(t, handler, http.MethodPost, "/api/v1/inventory/adjust", token, csrf, domain.StockAdjustRequest{
		UnitID:     "unit-main",
		SKU:        "SKU-NASGOR-01",
		DeltaQty:   10,
		Type:       "stock-in",
		Reason:     "delivery",
		ManagerPIN: "000000",
	})
	if wrong.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong manager pin, got %d", wrong.Code)
	}

	right := doJSON(t, handler, http.MethodPost, "/api/v1/inventory/adjust", token, csrf, domain.StockAdjustRequest{
		UnitID:     "unit-main",
		SKU:        "SKU-NASGOR-01",
		DeltaQty:   10,
		Type:       "stock-in",
		Reason:     "delivery",
		ManagerPIN: "739154",
	})
	if right.Code != http.StatusCreated {
		t.Fatalf("expected 201 for valid adjustment, got %d (body: %s)", right.Code, right.Body.String())
	}
}

func TestHandleStaffCreate_AdminOnly(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	csrf := fetchCSRFToken(t, api)

	cashierToken := loginAs(t, api, "cashier", "cashier123")
	forbidden := doJSON(t, handler, http.MethodPost, "/api/v1/users/staff", cashierToken, csrf, domain.StaffCreateRequest{
		Username: "waiterbaru",
		Password: "pass1234",
		Role:     "waiter",
	})
	if forbidden.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier creating staff, got %d", forbidden.Code)
	}

	adminToken := loginAs(t, api, "admin", "admin123")
	created := doJSON(t, handler, http.MethodPost, "/api/v1/users/staff", adminToken, csrf, domain.StaffCreateRequest{
		Username: "waiterbaru",
		Password: "pass1234",
		Role:     "waiter",
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("expected 201 for admin creating staff, got %d (body: %s)", created.Code, created.Body.String())
	}

	loginRec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", "", map[string]string{
		"username": "waiterbaru",
		"password": "pass1234",
	})
	if loginRec.Code != http.StatusOK {
		t.Fatalf("new staff login failed: %d (body: %s)", loginRec.Code, loginRec.Body.String())
	}
}

// TestMustHashPassword verifies that the test helper produces valid bcrypt hashes
// (used to confirm test infrastructure is sound).
func TestMustHashPassword(t *testing.T) {
	hash := mustHashPassword(t, "secret")
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret")); err != nil {
		t.Fatalf("hash verification failed: %v", err)
	}
}
