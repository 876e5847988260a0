package domain

import "sort"

// Summary is a point-in-time view of an account.
type Summary struct {
	AccountID string
	Username  string
	Balance   int64
	Inventory []InventoryItem
	History   CoinHistory
}

// InventoryItem is the number of purchases of a single item.
type InventoryItem struct {
	Item     string
	Quantity int64
}

// CoinHistory splits transfers by direction relative to the account.
type CoinHistory struct {
	Received []ReceivedCoins
	Sent     []SentCoins
}

// ReceivedCoins is an incoming transfer.
type ReceivedCoins struct {
	FromAccountID string
	FromUsername  string
	Amount        int64
}

// SentCoins is an outgoing transfer.
type SentCoins struct {
	ToAccountID string
	ToUsername  string
	Amount      int64
}

// BuildInventory counts purchases per item. Items are sorted by name.
func BuildInventory(purchases []*Purchase) []InventoryItem {
	counts := make(map[string]int64)
	for _, p := range purchases {
		counts[p.Item]++
	}

	inventory := make([]InventoryItem, 0, len(counts))
	for item, qty := range counts {
		inventory = append(inventory, InventoryItem{Item: item, Quantity: qty})
	}

	sort.Slice(inventory, func(i, j int) bool {
		return inventory[i].Item < inventory[j].Item
	})

	return inventory
}
