// Package catalog resolves service-type tokens against an event's
// published offerings. It backs the order service's Catalog interface.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"ms-marketplace/internal/models"
	"ms-marketplace/internal/order"
)

type Catalog struct {
	Bun *bun.DB
}

func New(db *bun.DB) *Catalog {
	return &Catalog{Bun: db}
}

func (c *Catalog) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	var event models.Event
	err := c.Bun.NewSelect().
		Model(&event).
		Where("id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", eventID, order.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

type resolvedLine struct {
	ServiceID   string          `bun:"service_id"`
	ServiceType string          `bun:"service_type"`
	DisplayName string          `bun:"display_name"`
	Price       decimal.Decimal `bun:"price"`
}

// ResolveServices maps requested service-type tokens to the event's
// available priced line items. Tokens that do not resolve to an
// available offering are dropped, not errored: partial fulfilment is
// deliberate, and the dropped count lets callers observe it. Request
// order is preserved in the returned snapshot.
func (c *Catalog) ResolveServices(ctx context.Context, eventID string, tokens []string) ([]models.SelectedService, int, error) {
	if len(tokens) == 0 {
		return nil, 0, nil
	}

	var rows []resolvedLine
	err := c.Bun.NewSelect().
		ColumnExpr("d.service_id, s.service_type, s.display_name, d.price").
		TableExpr("event_service_details AS d").
		Join("JOIN event_services AS s ON s.id = d.service_id").
		Where("d.event_id = ?", eventID).
		Where("d.is_available = ?", true).
		Where("s.service_type IN (?)", bun.In(tokens)).
		Scan(ctx, &rows)
	if err != nil {
		return nil, 0, fmt.Errorf("resolve services for event %s: %w", eventID, err)
	}

	byType := make(map[string]resolvedLine, len(rows))
	for _, row := range rows {
		byType[row.ServiceType] = row
	}

	var resolved []models.SelectedService
	dropped := 0
	for _, token := range tokens {
		row, ok := byType[token]
		if !ok {
			dropped++
			continue
		}
		resolved = append(resolved, models.SelectedService{
			ServiceID: row.ServiceID,
			Name:      row.DisplayName,
			Price:     row.Price,
		})
	}
	return resolved, dropped, nil
}
