package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/iho/merchledger/internal/adapter/http/dto"
	"github.com/iho/merchledger/internal/adapter/http/middleware"
	"github.com/iho/merchledger/internal/domain"
	"github.com/iho/merchledger/internal/infrastructure/catalog"
	"github.com/iho/merchledger/internal/usecase"
)

type authServiceStub struct {
	authenticateFn func(ctx context.Context, username, password string) (*usecase.AuthResult, error)
}

func (s *authServiceStub) Authenticate(ctx context.Context, username, password string) (*usecase.AuthResult, error) {
	return s.authenticateFn(ctx, username, password)
}

type authObserverStub struct {
	status string
}

func (o *authObserverStub) ObserveAuthAttempt(status string) {
	o.status = status
}

type ledgerServiceStub struct {
	sendFn     func(ctx context.Context, fromAccountID, toUsername string, amount int64) (*domain.Transfer, error)
	purchaseFn func(ctx context.Context, input usecase.PurchaseInput) (*domain.Purchase, error)
}

func (s *ledgerServiceStub) SendCoins(ctx context.Context, fromAccountID, toUsername string, amount int64) (*domain.Transfer, error) {
	return s.sendFn(ctx, fromAccountID, toUsername, amount)
}

func (s *ledgerServiceStub) Purchase(ctx context.Context, input usecase.PurchaseInput) (*domain.Purchase, error) {
	return s.purchaseFn(ctx, input)
}

type accountServiceStub struct {
	summarizeFn func(ctx context.Context, accountID string) (*domain.Summary, error)
}

func (s *accountServiceStub) Summarize(ctx context.Context, accountID string) (*domain.Summary, error) {
	return s.summarizeFn(ctx, accountID)
}

type reconciliationServiceStub struct {
	report *usecase.ConsistencyReport
	err    error
}

func (s *reconciliationServiceStub) CheckConsistency(context.Context) (*usecase.ConsistencyReport, error) {
	return s.report, s.err
}

type countingRetrier struct {
	calls int
}

func (c *countingRetrier) Retry(_ context.Context, operation func() error) error {
	c.calls++
	return operation()
}

func withAccount(req *http.Request, accountID string) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), middleware.AccountIDContextKey, accountID))
}

func withItem(req *http.Request, item string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("item", item)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Errors
}

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantToken  string
		wantAudit  string
	}{
		{name: "success", body: `{"username":"alice","password":"pw"}`, wantStatus: http.StatusOK, wantToken: "tok", wantAudit: "success"},
		{name: "missing password", body: `{"username":"alice"}`, wantStatus: http.StatusBadRequest},
		{name: "malformed body", body: `{`, wantStatus: http.StatusBadRequest},
		{name: "wrong password", body: `{"username":"alice","password":"x"}`, err: domain.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized, wantAudit: "invalid_credentials"},
		{name: "infrastructure failure", body: `{"username":"alice","password":"x"}`, err: errors.New("db down"), wantStatus: http.StatusInternalServerError, wantAudit: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			observer := &authObserverStub{}
			h := NewAuthHandler(&authServiceStub{
				authenticateFn: func(ctx context.Context, username, password string) (*usecase.AuthResult, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &usecase.AuthResult{Token: "tok"}, nil
				},
			}, observer)

			rec := httptest.NewRecorder()
			h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth", strings.NewReader(tt.body)))

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}

			if observer.status != tt.wantAudit {
				t.Fatalf("recorded attempt %q, want %q", observer.status, tt.wantAudit)
			}

			if tt.wantToken != "" {
				var resp dto.AuthResponse
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil || resp.Token != tt.wantToken {
					t.Fatalf("unexpected token response %+v (%v)", resp, err)
				}
			}
		})
	}
}

func TestLedgerHandler_SendCoin_Success(t *testing.T) {
	var gotFrom, gotTo string
	var gotAmount int64
	retrier := &countingRetrier{}

	h := NewLedgerHandler(&ledgerServiceStub{
		sendFn: func(ctx context.Context, from, to string, amount int64) (*domain.Transfer, error) {
			gotFrom, gotTo, gotAmount = from, to, amount
			return &domain.Transfer{ID: "t-1"}, nil
		},
	}, retrier)

	body, _ := json.Marshal(map[string]any{"toUser": "bob", "amount": 100})
	req := withAccount(httptest.NewRequest(http.MethodPost, "/api/sendCoin", bytes.NewReader(body)), "acc-1")
	rec := httptest.NewRecorder()

	h.SendCoin(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if gotFrom != "acc-1" || gotTo != "bob" || gotAmount != 100 {
		t.Fatalf("unexpected call %q %q %d", gotFrom, gotTo, gotAmount)
	}

	if retrier.calls != 1 {
		t.Fatalf("expected operation to run through the retrier")
	}

	var resp dto.MessageResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil || resp.Message != "Coins sent successfully" {
		t.Fatalf("unexpected response %+v (%v)", resp, err)
	}
}

func TestLedgerHandler_SendCoin_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantMsg    string
	}{
		{name: "fractional amount", body: `{"toUser":"bob","amount":1.5}`, wantStatus: http.StatusBadRequest, wantMsg: "Amount must be a positive whole number"},
		{name: "negative amount", body: `{"toUser":"bob","amount":-1}`, wantStatus: http.StatusBadRequest, wantMsg: "Amount must be a positive whole number"},
		{name: "missing recipient", body: `{"amount":10}`, wantStatus: http.StatusBadRequest, wantMsg: "toUser and amount are required"},
		{name: "missing amount", body: `{"toUser":"bob"}`, wantStatus: http.StatusBadRequest, wantMsg: "toUser and amount are required"},
		{name: "huge exponent", body: `{"toUser":"bob","amount":1e60000000}`, wantStatus: http.StatusBadRequest, wantMsg: "Amount must be a positive whole number"},
		{name: "unknown recipient", body: `{"toUser":"ghost","amount":10}`, serviceErr: domain.ErrRecipientNotFound, wantStatus: http.StatusBadRequest, wantMsg: "Recipient not found"},
		{name: "insufficient funds", body: `{"toUser":"bob","amount":5000}`, serviceErr: domain.ErrInsufficientFunds, wantStatus: http.StatusBadRequest, wantMsg: "Insufficient coins"},
		{name: "self transfer", body: `{"toUser":"alice","amount":5}`, serviceErr: domain.ErrSameAccount, wantStatus: http.StatusBadRequest, wantMsg: "Cannot send coins to yourself"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewLedgerHandler(&ledgerServiceStub{
				sendFn: func(ctx context.Context, from, to string, amount int64) (*domain.Transfer, error) {
					if tt.serviceErr == nil {
						t.Fatalf("service should not be called")
					}
					return nil, tt.serviceErr
				},
			}, nil)

			req := withAccount(httptest.NewRequest(http.MethodPost, "/api/sendCoin", strings.NewReader(tt.body)), "acc-1")
			rec := httptest.NewRecorder()

			h.SendCoin(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}

			if got := decodeError(t, rec); got != tt.wantMsg {
				t.Fatalf("expected message %q, got %q", tt.wantMsg, got)
			}
		})
	}
}

func TestLedgerHandler_RequiresAccount(t *testing.T) {
	h := NewLedgerHandler(&ledgerServiceStub{}, nil)

	rec := httptest.NewRecorder()
	h.SendCoin(rec, httptest.NewRequest(http.MethodPost, "/api/sendCoin", strings.NewReader(`{}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Buy(rec, withItem(httptest.NewRequest(http.MethodGet, "/api/buy/cup", nil), "cup"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if got := decodeError(t, rec); got != "unauthorized" {
		t.Fatalf("expected message %q, got %q", "unauthorized", got)
	}
}

func TestLedgerHandler_SendCoinToOwnUsernameSkipsService(t *testing.T) {
	h := NewLedgerHandler(&ledgerServiceStub{
		sendFn: func(ctx context.Context, from, to string, amount int64) (*domain.Transfer, error) {
			t.Fatalf("service should not be called")
			return nil, nil
		},
	}, nil)

	req := withAccount(httptest.NewRequest(http.MethodPost, "/api/sendCoin", strings.NewReader(`{"toUser":"alice","amount":5}`)), "acc-1")
	req = req.WithContext(context.WithValue(req.Context(), middleware.UsernameContextKey, "alice"))
	rec := httptest.NewRecorder()

	h.SendCoin(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decodeError(t, rec); got != "Cannot send coins to yourself" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestLedgerHandler_Buy(t *testing.T) {
	tests := []struct {
		name       string
		item       string
		serviceErr error
		wantStatus int
		wantBody   string
	}{
		{name: "success", item: "cup", wantStatus: http.StatusOK, wantBody: "Purchased cup successfully"},
		{name: "unknown item", item: "yacht", serviceErr: domain.ErrItemNotFound, wantStatus: http.StatusBadRequest, wantBody: "Item not found"},
		{name: "insufficient funds", item: "pink-hoody", serviceErr: domain.ErrInsufficientFunds, wantStatus: http.StatusBadRequest, wantBody: "Insufficient coins"},
		{name: "account gone", item: "cup", serviceErr: domain.ErrAccountNotFound, wantStatus: http.StatusNotFound, wantBody: "User not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured usecase.PurchaseInput
			h := NewLedgerHandler(&ledgerServiceStub{
				purchaseFn: func(ctx context.Context, input usecase.PurchaseInput) (*domain.Purchase, error) {
					captured = input
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					return &domain.Purchase{Item: input.Item, Price: 20}, nil
				},
			}, nil)

			req := withItem(withAccount(httptest.NewRequest(http.MethodGet, "/api/buy/"+tt.item, nil), "acc-1"), tt.item)
			rec := httptest.NewRecorder()

			h.Buy(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}

			if captured.AccountID != "acc-1" || captured.Item != tt.item {
				t.Fatalf("unexpected input %+v", captured)
			}

			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Fatalf("expected body to contain %q, got %s", tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestInfoHandler_Info(t *testing.T) {
	h := NewInfoHandler(&accountServiceStub{
		summarizeFn: func(ctx context.Context, accountID string) (*domain.Summary, error) {
			if accountID != "acc-1" {
				return nil, domain.ErrAccountNotFound
			}
			return &domain.Summary{
				AccountID: "acc-1",
				Balance:   980,
				Inventory: []domain.InventoryItem{{Item: "cup", Quantity: 1}},
			}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.Info(rec, withAccount(httptest.NewRequest(http.MethodGet, "/api/info", nil), "acc-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.InfoResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp.Coins != 980 || len(resp.Inventory) != 1 || resp.Inventory[0].Type != "cup" {
		t.Fatalf("unexpected info %+v", resp)
	}

	rec = httptest.NewRecorder()
	h.Info(rec, withAccount(httptest.NewRequest(http.MethodGet, "/api/info", nil), "acc-x"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing account, got %d", rec.Code)
	}
}

func TestCatalogHandler_List(t *testing.T) {
	h := NewCatalogHandler(catalog.MustDefault())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/catalog", nil))

	var items []dto.CatalogItemResponse
	if err := json.NewDecoder(rec.Body).Decode(&items); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(items) != len(catalog.DefaultPrices()) {
		t.Fatalf("expected %d items, got %d", len(catalog.DefaultPrices()), len(items))
	}

	for i := 1; i < len(items); i++ {
		if items[i-1].Item >= items[i].Item {
			t.Fatalf("catalog not sorted: %v", items)
		}
	}
}

func TestReconciliationHandler_Consistency(t *testing.T) {
	h := NewReconciliationHandler(&reconciliationServiceStub{
		report: &usecase.ConsistencyReport{Accounts: 2, TotalBalance: 1980, ExpectedBalance: 1980, TotalSpent: 20, Consistent: true},
	})

	rec := httptest.NewRecorder()
	h.Consistency(rec, httptest.NewRequest(http.MethodGet, "/api/ledger/consistency", nil))

	var resp dto.ConsistencyResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !resp.Consistent || resp.TotalSpent != 20 {
		t.Fatalf("unexpected report %+v", resp)
	}

	h = NewReconciliationHandler(&reconciliationServiceStub{err: errors.New("db down")})
	rec = httptest.NewRecorder()
	h.Consistency(rec, httptest.NewRequest(http.MethodGet, "/api/ledger/consistency", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	healthy := NewHealthHandler(map[string]Pinger{
		"postgres": PingFunc(func(context.Context) error { return nil }),
	})

	rec := httptest.NewRecorder()
	healthy.Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	unhealthy := NewHealthHandler(map[string]Pinger{
		"redis": PingFunc(func(context.Context) error { return errors.New("refused") }),
	})

	rec = httptest.NewRecorder()
	unhealthy.Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	unhealthy.Liveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected liveness 200, got %d", rec.Code)
	}
}
