package domain

import "time"

// Purchase is an immutable record of an item bought by an account.
// Price is the catalog price at the time of purchase.
type Purchase struct {
	CreatedAt time.Time
	ID        string
	AccountID string
	Item      string
	Price     int64
}

// Item is a catalog entry.
type Item struct {
	Name  string
	Price int64
}
