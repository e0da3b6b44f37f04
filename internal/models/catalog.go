package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Catalog identifiers
const (
	CatalogItems       = "items"
	CatalogHotels      = "hotels"
	CatalogBlackMarket = "blackmarket"
)

// catalogTables maps catalog ids to their table
var catalogTables = map[string]string{
	CatalogItems:       "items",
	CatalogHotels:      "hotels",
	CatalogBlackMarket: "blackmarket_items",
}

// IsValidCatalog checks if a catalog id is valid
func IsValidCatalog(catalog string) bool {
	_, ok := catalogTables[catalog]
	return ok
}

// CatalogTable returns the table backing catalog
func CatalogTable(catalog string) (string, bool) {
	table, ok := catalogTables[catalog]
	return table, ok
}

// CatalogItem is a purchasable row from items, hotels or blackmarket_items
type CatalogItem struct {
	ID          int64  `json:"id" yaml:"-"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
	Price       int    `json:"price" yaml:"price"`
	HPRestore   int    `json:"hp_restore,omitempty" yaml:"hp_restore"`
}

// Purchase records one marketplace purchase in the inventory
type Purchase struct {
	Catalog     string    `json:"catalog"`
	ItemID      int64     `json:"item_id"`
	Name        string    `json:"name"`
	Price       int       `json:"price"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// Inventory is the purchase history stored as a JSONB array
type Inventory []Purchase

// TotalSpent sums the price of every purchase
func (inv Inventory) TotalSpent() int {
	total := 0
	for _, p := range inv {
		total += p.Price
	}
	return total
}

// Value implements driver.Valuer
func (inv Inventory) Value() (driver.Value, error) {
	if inv == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(inv)
}

// Scan implements sql.Scanner
func (inv *Inventory) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		*inv = Inventory{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Inventory", src)
	}
	items := Inventory{}
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("invalid inventory: %w", err)
	}
	*inv = items
	return nil
}
