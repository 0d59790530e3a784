package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Order statuses. pending and accepted are the only states that admit
// further transitions; completed and cancelled are terminal.
const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// SelectedService is a priced line-item snapshot captured at order
// creation. Later catalog price changes never touch it.
type SelectedService struct {
	ServiceID string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
}

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID       string `bun:"id,pk" json:"id"`
	SellerID string `bun:"seller_id,notnull" json:"seller_id"`
	BuyerID  string `bun:"buyer_id,notnull" json:"buyer_id"`
	EventID  string `bun:"event_id,notnull" json:"event_id"`

	BuyerName string    `bun:"buyer_name" json:"buyer_name"`
	EventDate time.Time `bun:"event_date,notnull" json:"event_date"`
	EventTime string    `bun:"event_time" json:"event_time"`
	Location  string    `bun:"location" json:"location"`

	SelectedServices []SelectedService `bun:"selected_services,type:jsonb" json:"selected_services"`

	SellerAgreed bool   `bun:"seller_agreed" json:"seller_agreed"`
	Status       string `bun:"status,notnull" json:"status"`

	TotalAmount     decimal.Decimal `bun:"total_amount,type:decimal(10,2)" json:"total_amount"`
	DiscountPrice   decimal.Decimal `bun:"discount_price,type:decimal(10,2)" json:"discount_price"`
	AdvancePaid     decimal.Decimal `bun:"advance_paid,type:decimal(10,2)" json:"advance_paid"`
	IsFullyPaid     bool            `bun:"is_fully_paid" json:"is_fully_paid"`
	FullPaymentDate *time.Time      `bun:"full_payment_date,nullzero" json:"full_payment_date,omitempty"`

	InvoiceFile string `bun:"invoice_file,nullzero" json:"invoice_file,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero" json:"updated_at"`
}

// NetTotal is the total after the seller discount, floored at zero.
func (o *Order) NetTotal() decimal.Decimal {
	net := o.TotalAmount.Sub(o.DiscountPrice)
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}

// RemainingAmount is the net total minus the advance, floored at zero.
func (o *Order) RemainingAmount() decimal.Decimal {
	rem := o.TotalAmount.Sub(o.DiscountPrice).Sub(o.AdvancePaid)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

// Terminal reports whether the order admits no further transitions.
func (o *Order) Terminal() bool {
	return o.Status == StatusCompleted || o.Status == StatusCancelled
}

// Accept marks the seller as agreed and moves the order to accepted.
// Accepting an already-accepted order is a no-op.
func (o *Order) Accept() {
	o.SellerAgreed = true
	o.Status = StatusAccepted
}

// ApplySellerFinancials applies seller-provided discount and advance
// values and recomputes the paid state. A nil value keeps the stored one.
//
// Clamping here is lenient: negative values go to zero, and a discount
// above the total is capped at the total. The stricter per-request
// validation lives in the order service, which rejects an explicitly
// supplied over-total discount before calling this.
func (o *Order) ApplySellerFinancials(discount, advance *decimal.Decimal, now time.Time) {
	d := o.DiscountPrice
	if discount != nil {
		d = *discount
	}
	a := o.AdvancePaid
	if advance != nil {
		a = *advance
	}

	if d.IsNegative() {
		d = decimal.Zero
	}
	if a.IsNegative() {
		a = decimal.Zero
	}
	if d.GreaterThan(o.TotalAmount) {
		d = o.TotalAmount
	}

	o.DiscountPrice = d
	o.AdvancePaid = a
	o.recomputePaid(now)
}

// MarkCompleted moves the order to completed. If nothing is left to pay,
// the order is forced fully paid, stamping the payment date once.
func (o *Order) MarkCompleted(now time.Time) {
	o.Status = StatusCompleted
	net := o.NetTotal()
	if net.IsZero() || o.AdvancePaid.GreaterThanOrEqual(net) {
		o.markFullyPaid(now)
	}
}

func (o *Order) recomputePaid(now time.Time) {
	net := o.NetTotal()
	if net.IsZero() || o.AdvancePaid.GreaterThanOrEqual(net) {
		o.markFullyPaid(now)
		return
	}
	// full_payment_date is stamp-once: it survives the paid flag
	// dropping back to false.
	o.IsFullyPaid = false
}

func (o *Order) markFullyPaid(now time.Time) {
	o.IsFullyPaid = true
	if o.FullPaymentDate == nil {
		date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		o.FullPaymentDate = &date
	}
}

// OrderView is the read shape returned by the API: the stored order plus
// the derived financial fields.
type OrderView struct {
	Order
	NetTotal        decimal.Decimal `json:"net_total"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
}

func NewOrderView(o Order) OrderView {
	return OrderView{
		Order:           o,
		NetTotal:        o.NetTotal(),
		RemainingAmount: o.RemainingAmount(),
	}
}

// CreateOrderResult carries the created order plus the number of
// requested service tokens that did not resolve against the catalog.
// Unresolvable tokens are dropped rather than errored, so the count is
// the only way a caller can tell a partial fulfilment from a full one.
type CreateOrderResult struct {
	Order         Order `json:"order"`
	DroppedTokens int   `json:"dropped_tokens"`
}
