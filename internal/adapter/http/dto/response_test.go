package dto

import (
	"encoding/json"
	"testing"

	"github.com/iho/merchledger/internal/domain"
)

func TestInfoFromDomain(t *testing.T) {
	summary := &domain.Summary{
		Balance:   880,
		Inventory: []domain.InventoryItem{{Item: "cup", Quantity: 2}},
		History: domain.CoinHistory{
			Received: []domain.ReceivedCoins{{FromAccountID: "a2", FromUsername: "bob", Amount: 10}},
			Sent:     []domain.SentCoins{{ToAccountID: "a3", ToUsername: "carol", Amount: 90}},
		},
	}

	data, err := json.Marshal(InfoFromDomain(summary))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"inventory":[{"type":"cup","quantity":2}],"coinHistory":{"received":[{"fromUser":"bob","amount":10}],"sent":[{"toUser":"carol","amount":90}]},"coins":880}`
	if string(data) != want {
		t.Fatalf("unexpected json:\n got %s\nwant %s", data, want)
	}
}

func TestInfoFromDomain_EmptyCollectionsAreArrays(t *testing.T) {
	data, err := json.Marshal(InfoFromDomain(&domain.Summary{Balance: 1000}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"inventory":[],"coinHistory":{"received":[],"sent":[]},"coins":1000}`
	if string(data) != want {
		t.Fatalf("unexpected json:\n got %s\nwant %s", data, want)
	}
}

func TestCatalogFromDomain(t *testing.T) {
	got := CatalogFromDomain([]domain.Item{{Name: "cup", Price: 20}, {Name: "pen", Price: 10}})

	if len(got) != 2 || got[0].Item != "cup" || got[1].Price != 10 {
		t.Fatalf("unexpected catalog: %+v", got)
	}
}
