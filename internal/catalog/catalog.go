// Package catalog loads the static marketplace rows and default checklist
// from an embedded YAML file and writes them to the database.
package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Agney-gt/sparklog-sub000/internal/models"
)

//go:embed seed.yaml
var seedYAML []byte

// DefaultHabit is a habit created for every new account
type DefaultHabit struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
}

// Seed is the parsed contents of seed.yaml
type Seed struct {
	Items         []models.CatalogItem `yaml:"items"`
	Hotels        []models.CatalogItem `yaml:"hotels"`
	BlackMarket   []models.CatalogItem `yaml:"blackmarket"`
	DefaultHabits []DefaultHabit       `yaml:"default_habits"`
}

// Load parses the embedded seed file
func Load() (*Seed, error) {
	return Parse(seedYAML)
}

// Parse decodes and validates seed YAML
func Parse(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse catalog seed: %w", err)
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

// Validate checks names and prices
func (s *Seed) Validate() error {
	for catalog, rows := range map[string][]models.CatalogItem{
		models.CatalogItems:       s.Items,
		models.CatalogHotels:      s.Hotels,
		models.CatalogBlackMarket: s.BlackMarket,
	} {
		seen := make(map[string]bool, len(rows))
		for _, row := range rows {
			name := strings.TrimSpace(row.Name)
			if name == "" {
				return fmt.Errorf("%s: item without a name", catalog)
			}
			if seen[name] {
				return fmt.Errorf("%s: duplicate item %q", catalog, name)
			}
			seen[name] = true
			if row.Price < 0 {
				return fmt.Errorf("%s: %q has a negative price", catalog, name)
			}
			if row.HPRestore < 0 || row.HPRestore > models.MaxHP {
				return fmt.Errorf("%s: %q restores an invalid amount of HP", catalog, name)
			}
		}
	}
	for _, h := range s.DefaultHabits {
		if strings.TrimSpace(h.Name) == "" {
			return fmt.Errorf("default habit without a name")
		}
		if !models.IsValidHabitCategory(h.Category) {
			return fmt.Errorf("default habit %q has invalid category %q", h.Name, h.Category)
		}
	}
	return nil
}

// Apply upserts every catalog row by name inside one transaction
func (s *Seed) Apply(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin catalog seed: %w", err)
	}
	defer tx.Rollback()

	for _, item := range s.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO items (name, description, price) VALUES ($1, $2, $3)
			ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description, price = EXCLUDED.price
		`, item.Name, item.Description, item.Price); err != nil {
			return fmt.Errorf("failed to seed item %q: %w", item.Name, err)
		}
	}
	for _, hotel := range s.Hotels {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO hotels (name, price, hp_restore) VALUES ($1, $2, $3)
			ON CONFLICT (name) DO UPDATE SET price = EXCLUDED.price, hp_restore = EXCLUDED.hp_restore
		`, hotel.Name, hotel.Price, hotel.HPRestore); err != nil {
			return fmt.Errorf("failed to seed hotel %q: %w", hotel.Name, err)
		}
	}
	for _, item := range s.BlackMarket {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO blackmarket_items (name, description, price) VALUES ($1, $2, $3)
			ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description, price = EXCLUDED.price
		`, item.Name, item.Description, item.Price); err != nil {
			return fmt.Errorf("failed to seed black market item %q: %w", item.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog seed: %w", err)
	}
	return nil
}
