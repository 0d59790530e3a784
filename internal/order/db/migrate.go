package db

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"ms-marketplace/internal/models"
)

// Migrate creates the orders table and its lookup indexes. Production
// deployments run the SQL migrations instead; this path serves dev
// bootstrap and the sqlite-backed tests.
func Migrate(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().
		Model((*models.Order)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create orders table: %w", err)
	}

	indexes := []struct {
		name    string
		columns []string
	}{
		{"idx_orders_seller_status", []string{"seller_id", "status"}},
		{"idx_orders_buyer_status", []string{"buyer_id", "status"}},
		{"idx_orders_event_date", []string{"event_date"}},
	}
	for _, idx := range indexes {
		if _, err := db.NewCreateIndex().
			Model((*models.Order)(nil)).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}
