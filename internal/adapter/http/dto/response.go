package dto

import (
	"time"

	"github.com/iho/merchledger/internal/domain"
	"github.com/iho/merchledger/internal/usecase"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Errors string `json:"errors"`
}

// MessageResponse acknowledges a successful operation.
type MessageResponse struct {
	Message string `json:"message"`
}

// AuthResponse carries the access token.
type AuthResponse struct {
	Token string `json:"token"`
}

// InfoResponse is the account summary returned by /api/info.
type InfoResponse struct {
	Inventory   []InventoryItemResponse `json:"inventory"`
	CoinHistory CoinHistoryResponse     `json:"coinHistory"`
	Coins       int64                   `json:"coins"`
}

// InventoryItemResponse is one owned item.
type InventoryItemResponse struct {
	Type     string `json:"type"`
	Quantity int64  `json:"quantity"`
}

// CoinHistoryResponse splits transfers by direction.
type CoinHistoryResponse struct {
	Received []ReceivedCoinsResponse `json:"received"`
	Sent     []SentCoinsResponse     `json:"sent"`
}

// ReceivedCoinsResponse is an incoming transfer.
type ReceivedCoinsResponse struct {
	FromUser string `json:"fromUser"`
	Amount   int64  `json:"amount"`
}

// SentCoinsResponse is an outgoing transfer.
type SentCoinsResponse struct {
	ToUser string `json:"toUser"`
	Amount int64  `json:"amount"`
}

// InfoFromDomain converts an account summary to response. Empty collections
// encode as [] rather than null.
func InfoFromDomain(s *domain.Summary) *InfoResponse {
	resp := &InfoResponse{
		Coins:     s.Balance,
		Inventory: make([]InventoryItemResponse, len(s.Inventory)),
		CoinHistory: CoinHistoryResponse{
			Received: make([]ReceivedCoinsResponse, len(s.History.Received)),
			Sent:     make([]SentCoinsResponse, len(s.History.Sent)),
		},
	}

	for i, item := range s.Inventory {
		resp.Inventory[i] = InventoryItemResponse{Type: item.Item, Quantity: item.Quantity}
	}

	for i, r := range s.History.Received {
		resp.CoinHistory.Received[i] = ReceivedCoinsResponse{FromUser: r.FromUsername, Amount: r.Amount}
	}

	for i, sent := range s.History.Sent {
		resp.CoinHistory.Sent[i] = SentCoinsResponse{ToUser: sent.ToUsername, Amount: sent.Amount}
	}

	return resp
}

// CatalogItemResponse is a purchasable item.
type CatalogItemResponse struct {
	Item  string `json:"item"`
	Price int64  `json:"price"`
}

// CatalogFromDomain converts catalog items to responses.
func CatalogFromDomain(items []domain.Item) []CatalogItemResponse {
	result := make([]CatalogItemResponse, len(items))
	for i, item := range items {
		result[i] = CatalogItemResponse{Item: item.Name, Price: item.Price}
	}
	return result
}

// ConsistencyResponse is the coin supply report.
type ConsistencyResponse struct {
	CheckedAt        time.Time `json:"checked_at"`
	Accounts         int64     `json:"accounts"`
	TotalBalance     int64     `json:"total_balance"`
	ExpectedBalance  int64     `json:"expected_balance"`
	TotalSpent       int64     `json:"total_spent"`
	NegativeAccounts int64     `json:"negative_accounts"`
	Consistent       bool      `json:"consistent"`
}

// ConsistencyFromReport converts a reconciliation report to response.
func ConsistencyFromReport(r *usecase.ConsistencyReport) *ConsistencyResponse {
	return &ConsistencyResponse{
		CheckedAt:        r.CheckedAt,
		Accounts:         r.Accounts,
		TotalBalance:     r.TotalBalance,
		ExpectedBalance:  r.ExpectedBalance,
		TotalSpent:       r.TotalSpent,
		NegativeAccounts: r.NegativeAccounts,
		Consistent:       r.Consistent,
	}
}
