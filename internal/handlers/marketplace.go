package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Agney-gt/sparklog-sub000/internal/database"
	"github.com/Agney-gt/sparklog-sub000/internal/logging"
	"github.com/Agney-gt/sparklog-sub000/internal/metrics"
	"github.com/Agney-gt/sparklog-sub000/internal/models"
)

// catalogQueries selects id, name, description, price, hp_restore from each catalog
var catalogQueries = map[string]string{
	models.CatalogItems:       `SELECT id, name, description, price, 0 FROM items`,
	models.CatalogHotels:      `SELECT id, name, '', price, hp_restore FROM hotels`,
	models.CatalogBlackMarket: `SELECT id, name, description, price, 0 FROM blackmarket_items`,
}

type MarketplaceHandler struct {
	db  *database.DB
	now func() time.Time
}

func NewMarketplaceHandler(db *database.DB) *MarketplaceHandler {
	return &MarketplaceHandler{db: db, now: time.Now}
}

// PurchaseRequest buys one item from a catalog
type PurchaseRequest struct {
	Catalog string `json:"catalog"`
	ItemID  int64  `json:"item_id"`
}

// PurchaseResponse returns the purchase and the updated progress
type PurchaseResponse struct {
	Purchase models.Purchase     `json:"purchase"`
	Progress models.UserProgress `json:"progress"`
}

// ListCatalog returns a handler listing one catalog, cheapest first
func (h *MarketplaceHandler) ListCatalog(catalog string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := currentUser(w, r); !ok {
			return
		}

		query, ok := catalogQueries[catalog]
		if !ok {
			fail(w, r, notFound("catalog"), "list catalog")
			return
		}

		rows, err := h.db.QueryContext(r.Context(), query+` ORDER BY price, id`)
		if err != nil {
			fail(w, r, err, "list catalog")
			return
		}
		defer rows.Close()

		items := []models.CatalogItem{}
		for rows.Next() {
			var item models.CatalogItem
			if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.Price, &item.HPRestore); err != nil {
				fail(w, r, err, "list catalog")
				return
			}
			items = append(items, item)
		}
		if err := rows.Err(); err != nil {
			fail(w, r, err, "list catalog")
			return
		}
		writeData(w, http.StatusOK, items)
	}
}

// Purchase debits the item price and records it in the inventory. The
// progress row is locked for the whole read-check-write so concurrent
// purchases cannot overspend.
func (h *MarketplaceHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req PurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err, "purchase item")
		return
	}
	if req.Catalog == "" {
		req.Catalog = models.CatalogItems
	}
	if !models.IsValidCatalog(req.Catalog) {
		fail(w, r, invalid("catalog", "Catalog must be items, hotels or blackmarket"), "purchase item")
		return
	}
	if req.ItemID <= 0 {
		fail(w, r, invalid("item_id", "A valid item_id is required"), "purchase item")
		return
	}

	resp, err := h.purchase(r.Context(), claims.UserID, req.Catalog, req.ItemID)
	metrics.RecordPurchase(req.Catalog, err == nil)
	if err != nil {
		fail(w, r, err, "purchase item")
		return
	}

	logging.FromContext(r.Context(), "marketplace").WithField("user_id", claims.UserID).
		Infof("Purchased %s from %s for %d", resp.Purchase.Name, req.Catalog, resp.Purchase.Price)
	writeDataMessage(w, http.StatusOK, resp, fmt.Sprintf("Purchased %s", resp.Purchase.Name))
}

func (h *MarketplaceHandler) purchase(ctx context.Context, userID, catalog string, itemID int64) (*PurchaseResponse, error) {
	var resp PurchaseResponse
	err := h.db.WithTx(ctx, func(tx *sql.Tx) error {
		var item models.CatalogItem
		err := tx.QueryRowContext(ctx, catalogQueries[catalog]+` WHERE id = $1`, itemID).
			Scan(&item.ID, &item.Name, &item.Description, &item.Price, &item.HPRestore)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("item")
		}
		if err != nil {
			return err
		}

		var (
			balance, hp int
			inventory   models.Inventory
		)
		err = tx.QueryRowContext(ctx, `
			SELECT balance, hp, inventory FROM user_progress WHERE user_id = $1 FOR UPDATE
		`, userID).Scan(&balance, &hp, &inventory)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("progress")
		}
		if err != nil {
			return err
		}

		if balance < item.Price {
			return errInsufficientBalance
		}

		if catalog == models.CatalogHotels {
			hp = min(hp+item.HPRestore, models.MaxHP)
		}
		resp.Purchase = models.Purchase{
			Catalog:     catalog,
			ItemID:      item.ID,
			Name:        item.Name,
			Price:       item.Price,
			PurchasedAt: h.now().UTC(),
		}
		inventory = append(inventory, resp.Purchase)

		resp.Progress, err = scanProgress(tx.QueryRowContext(ctx, `
			UPDATE user_progress SET balance = $1, hp = $2, inventory = $3
			WHERE user_id = $4
			RETURNING `+progressColumns, balance-item.Price, hp, inventory, userID))
		return err
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
