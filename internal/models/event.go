package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Event is a seller's storefront offering one or more bookable services.
// Not a calendar event.
type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID        string    `bun:"id,pk" json:"id"`
	SellerID  string    `bun:"seller_id,notnull" json:"seller_id"`
	Title     string    `bun:"title,unique,notnull" json:"title"`
	BrandName string    `bun:"brand_name,unique,notnull" json:"brand_name"`
	Logo      string    `bun:"logo,nullzero" json:"logo,omitempty"`
	IsActive  bool      `bun:"is_active" json:"is_active"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

// EventService is a service type a storefront can offer
// (photography, catering, hall booking, ...).
type EventService struct {
	bun.BaseModel `bun:"table:event_services"`

	ID          string `bun:"id,pk" json:"id"`
	ServiceType string `bun:"service_type,notnull" json:"service_type"`
	DisplayName string `bun:"display_name,notnull" json:"display_name"`
}

// EventServiceDetail is the event-scoped, priced offering of a service
// type. Unique per (event, service).
type EventServiceDetail struct {
	bun.BaseModel `bun:"table:event_service_details"`

	ID          int64           `bun:"id,pk,autoincrement" json:"id"`
	EventID     string          `bun:"event_id,notnull" json:"event_id"`
	ServiceID   string          `bun:"service_id,notnull" json:"service_id"`
	Price       decimal.Decimal `bun:"price,type:decimal(10,2)" json:"price"`
	IsAvailable bool            `bun:"is_available" json:"is_available"`
}
