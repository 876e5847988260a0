// Package catalog provides the read-only item price list.
package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/iho/merchledger/internal/domain"
)

// ErrInvalidCatalog is returned when a price list cannot be used.
var ErrInvalidCatalog = errors.New("invalid catalog")

// DefaultPrices is the merch price list used when none is configured.
func DefaultPrices() map[string]int64 {
	return map[string]int64{
		"t-shirt":    80,
		"cup":        20,
		"book":       50,
		"pen":        10,
		"powerbank":  200,
		"hoody":      300,
		"umbrella":   200,
		"socks":      10,
		"wallet":     50,
		"pink-hoody": 500,
	}
}

// Static is an immutable catalog. It is safe for concurrent use.
type Static struct {
	prices map[string]int64
	items  []domain.Item
}

// NewStatic builds a catalog from an item to price mapping.
func NewStatic(prices map[string]int64) (*Static, error) {
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrInvalidCatalog)
	}

	c := &Static{
		prices: make(map[string]int64, len(prices)),
		items:  make([]domain.Item, 0, len(prices)),
	}

	for name, price := range prices {
		if name == "" {
			return nil, fmt.Errorf("%w: empty item name", ErrInvalidCatalog)
		}

		if price <= 0 {
			return nil, fmt.Errorf("%w: item %q has non-positive price %d", ErrInvalidCatalog, name, price)
		}

		c.prices[name] = price
		c.items = append(c.items, domain.Item{Name: name, Price: price})
	}

	sort.Slice(c.items, func(i, j int) bool { return c.items[i].Name < c.items[j].Name })

	return c, nil
}

// MustDefault returns the default catalog.
func MustDefault() *Static {
	c, err := NewStatic(DefaultPrices())
	if err != nil {
		panic(err)
	}

	return c
}

// Price returns the price of item and whether it exists.
func (c *Static) Price(item string) (int64, bool) {
	price, ok := c.prices[item]
	return price, ok
}

// Items returns all items sorted by name.
func (c *Static) Items() []domain.Item {
	items := make([]domain.Item, len(c.items))
	copy(items, c.items)

	return items
}
