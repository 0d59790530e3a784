package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"ms-marketplace/internal/models"
	"ms-marketplace/internal/order"
)

type DB struct {
	Bun *bun.DB
}

// CreateOrder inserts a new order. A primary-key collision surfaces as
// order.ErrDuplicateID so the service can retry with a fresh ID.
func (d *DB) CreateOrder(ctx context.Context, o models.Order) error {
	_, err := d.Bun.NewInsert().Model(&o).Exec(ctx)
	if err != nil && isDuplicate(err) {
		return fmt.Errorf("insert order %s: %w", o.ID, order.ErrDuplicateID)
	}
	return err
}

func (d *DB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	err := d.Bun.NewSelect().
		Model(&o).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, order.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateOrder persists the mutable order fields in one statement. The
// financial fields commit together or not at all.
func (d *DB) UpdateOrder(ctx context.Context, o models.Order) error {
	_, err := d.Bun.NewUpdate().
		Model(&o).
		Column("event_date", "event_time", "location",
			"seller_agreed", "status",
			"discount_price", "advance_paid", "is_fully_paid", "full_payment_date",
			"invoice_file", "updated_at").
		Where("id = ?", o.ID).
		Exec(ctx)
	return err
}

func (d *DB) DeleteOrder(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Order)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *DB) OrdersByBuyer(ctx context.Context, buyerID string) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (d *DB) OrdersBySeller(ctx context.Context, sellerID string) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// OrdersBySellerAndStatus serves the seller dashboard filter; it rides
// the (seller_id, status) index.
func (d *DB) OrdersBySellerAndStatus(ctx context.Context, sellerID, status string) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("seller_id = ? AND status = ?", sellerID, status).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func isDuplicate(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	// sqlite (tests) reports unique violations as plain strings.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
