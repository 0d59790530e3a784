package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/utils"
)

// ErrDuplicateID is returned by the DB layer when an insert collides on
// the order primary key. Create retries with a fresh ID.
var ErrDuplicateID = errors.New("duplicate order id")

const createIDRetries = 5

type DBLayer interface {
	CreateOrder(ctx context.Context, order models.Order) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	UpdateOrder(ctx context.Context, order models.Order) error
	DeleteOrder(ctx context.Context, id string) error
	OrdersByBuyer(ctx context.Context, buyerID string) ([]models.Order, error)
	OrdersBySeller(ctx context.Context, sellerID string) ([]models.Order, error)
	OrdersBySellerAndStatus(ctx context.Context, sellerID, status string) ([]models.Order, error)
}

// Catalog resolves an event's published, available service line items.
// Tokens that do not resolve are dropped, not errored; the int return is
// the dropped count.
type Catalog interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	ResolveServices(ctx context.Context, eventID string, tokens []string) ([]models.SelectedService, int, error)
}

// Identity resolves users by their public profile slug and role.
type Identity interface {
	ResolveByProfileSlug(ctx context.Context, slug, role string) (*models.User, error)
}

// OrderLock serializes financial mutations per order so that no two
// concurrent updates interleave their clamp-then-recompute sequence.
type OrderLock interface {
	Lock(ctx context.Context, orderID, owner string) (bool, error)
	Unlock(ctx context.Context, orderID, owner string) error
}

// EventPublisher streams order lifecycle events. Publishing is
// best-effort: failures are logged, never surfaced to the caller.
type EventPublisher interface {
	PublishOrderEvent(eventType string, order models.Order) error
}

type OrderService struct {
	DB       DBLayer
	Catalog  Catalog
	Identity Identity
	Lock     OrderLock
	Events   EventPublisher
	Logger   *logger.Logger

	// Now is overridable in tests; it stamps full_payment_date.
	Now func() time.Time
}

func NewOrderService(db DBLayer, catalog Catalog, identity Identity, lock OrderLock, events EventPublisher, log *logger.Logger) *OrderService {
	return &OrderService{
		DB:       db,
		Catalog:  catalog,
		Identity: identity,
		Lock:     lock,
		Events:   events,
		Logger:   log,
		Now:      time.Now,
	}
}

type CreateOrderInput struct {
	EventID   string    `json:"event_id"`
	Services  []string  `json:"selected_services"`
	EventDate time.Time `json:"event_date"`
	EventTime string    `json:"event_time"`
	Location  string    `json:"location"`
}

// Create snapshots the requested services against the event's catalog
// and seeds a pending order. Unresolvable tokens are dropped (partial
// fulfilment is allowed); an order with zero line items is valid.
// Creation is all-or-nothing: any lookup failure aborts before insert.
func (s *OrderService) Create(ctx context.Context, buyerSlug, actorID string, in CreateOrderInput) (*models.CreateOrderResult, error) {
	buyer, err := s.Identity.ResolveByProfileSlug(ctx, buyerSlug, models.RoleCustomer)
	if err != nil {
		return nil, err
	}
	if buyer.ID != actorID {
		return nil, fmt.Errorf("only the buyer can create an order: %w", ErrForbidden)
	}

	event, err := s.Catalog.GetEvent(ctx, in.EventID)
	if err != nil {
		return nil, err
	}

	services, dropped, err := s.Catalog.ResolveServices(ctx, in.EventID, in.Services)
	if err != nil {
		return nil, fmt.Errorf("resolve services for event %s: %w", in.EventID, err)
	}
	if dropped > 0 {
		s.Logger.Warn("ORDER", fmt.Sprintf("create: %d of %d requested service tokens did not resolve for event %s", dropped, len(in.Services), in.EventID))
	}

	total := decimal.Zero
	for _, svc := range services {
		total = total.Add(svc.Price)
	}

	now := s.Now()
	o := models.Order{
		SellerID:         event.SellerID,
		BuyerID:          buyer.ID,
		EventID:          event.ID,
		BuyerName:        buyer.FullName,
		EventDate:        in.EventDate,
		EventTime:        in.EventTime,
		Location:         in.Location,
		SelectedServices: services,
		Status:           models.StatusPending,
		TotalAmount:      total,
		DiscountPrice:    decimal.Zero,
		AdvancePaid:      decimal.Zero,
		CreatedAt:        now,
	}

	for attempt := 0; ; attempt++ {
		o.ID = utils.GenerateOrderID()
		err = s.DB.CreateOrder(ctx, o)
		if err == nil {
			break
		}
		if errors.Is(err, ErrDuplicateID) && attempt < createIDRetries {
			continue
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.Logger.LogOrder("CREATE", o.ID, fmt.Sprintf("buyer=%s event=%s total=%s lines=%d", buyer.ID, event.ID, total, len(services)))
	s.publish("order.created", o)

	return &models.CreateOrderResult{Order: o, DroppedTokens: dropped}, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.DB.GetOrderByID(ctx, id)
}

// OrdersByBuyer lists a buyer's orders, newest first.
func (s *OrderService) OrdersByBuyer(ctx context.Context, buyerSlug string) ([]models.Order, error) {
	buyer, err := s.Identity.ResolveByProfileSlug(ctx, buyerSlug, models.RoleCustomer)
	if err != nil {
		return nil, err
	}
	return s.DB.OrdersByBuyer(ctx, buyer.ID)
}

// OrdersBySeller lists a seller's orders, newest first, optionally
// filtered to a single status.
func (s *OrderService) OrdersBySeller(ctx context.Context, sellerSlug, status string) ([]models.Order, error) {
	seller, err := s.Identity.ResolveByProfileSlug(ctx, sellerSlug, models.RoleSeller)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return s.DB.OrdersBySeller(ctx, seller.ID)
	}
	switch status {
	case models.StatusPending, models.StatusAccepted, models.StatusCompleted, models.StatusCancelled:
	default:
		return nil, fmt.Errorf("unknown order status %q: %w", status, ErrValidation)
	}
	return s.DB.OrdersBySellerAndStatus(ctx, seller.ID, status)
}

// Accept marks the order accepted by its seller. Re-accepting an
// already-accepted order is a no-op, not an error.
func (s *OrderService) Accept(ctx context.Context, sellerSlug, actorID, orderID string) (*models.Order, error) {
	o, err := s.ownedBySeller(ctx, sellerSlug, actorID, orderID)
	if err != nil {
		return nil, err
	}

	if o.SellerAgreed && o.Status == models.StatusAccepted {
		return o, nil
	}

	o.Accept()
	o.UpdatedAt = s.Now()
	if err := s.DB.UpdateOrder(ctx, *o); err != nil {
		return nil, fmt.Errorf("accept order %s: %w", orderID, err)
	}

	s.Logger.LogOrder("ACCEPT", o.ID, "seller agreed")
	s.publish("order.accepted", *o)
	return o, nil
}

type SellerUpdateInput struct {
	DiscountPrice   *decimal.Decimal `json:"discount_price,omitempty"`
	AdvancePaid     *decimal.Decimal `json:"advance_paid,omitempty"`
	InvoiceFile     *string          `json:"invoice_file,omitempty"`
	FullPaymentDate *time.Time       `json:"full_payment_date,omitempty"`
}

// ApplySellerFinancials applies seller-provided discount, advance,
// invoice and payment-date updates. Missing fields keep their stored
// values. The explicit-update path is strict: a supplied discount above
// the order total is rejected rather than clamped (the model-level
// recompute clamps silently; both policies are intentional and differ by
// entry point, matching the behavior the API has always had).
func (s *OrderService) ApplySellerFinancials(ctx context.Context, sellerSlug, actorID, orderID string, in SellerUpdateInput) (*models.Order, error) {
	o, err := s.ownedBySeller(ctx, sellerSlug, actorID, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == models.StatusCancelled {
		return nil, fmt.Errorf("cannot update a cancelled order: %w", ErrForbidden)
	}
	if in.DiscountPrice != nil && in.DiscountPrice.GreaterThan(o.TotalAmount) {
		return nil, fmt.Errorf("discount %s exceeds order total %s: %w", in.DiscountPrice, o.TotalAmount, ErrValidation)
	}

	unlock, err := s.lockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Re-read under the lock so the clamp-then-recompute sequence works
	// on the committed state, not on the pre-lock snapshot. The guards
	// run again on that state: a cancellation that commits between the
	// first read and the lock must not be overridden.
	o, err = s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == models.StatusCancelled {
		return nil, fmt.Errorf("cannot update a cancelled order: %w", ErrForbidden)
	}
	if in.DiscountPrice != nil && in.DiscountPrice.GreaterThan(o.TotalAmount) {
		return nil, fmt.Errorf("discount %s exceeds order total %s: %w", in.DiscountPrice, o.TotalAmount, ErrValidation)
	}

	if in.InvoiceFile != nil {
		o.InvoiceFile = *in.InvoiceFile
	}
	if in.FullPaymentDate != nil {
		// An explicitly supplied date is honored as given, even over an
		// automatic stamp.
		o.FullPaymentDate = in.FullPaymentDate
	}

	o.ApplySellerFinancials(in.DiscountPrice, in.AdvancePaid, s.Now())
	o.UpdatedAt = s.Now()

	if err := s.DB.UpdateOrder(ctx, *o); err != nil {
		return nil, fmt.Errorf("update order %s financials: %w", orderID, err)
	}

	s.Logger.LogOrder("SELLER_UPDATE", o.ID, fmt.Sprintf("discount=%s advance=%s fully_paid=%t", o.DiscountPrice, o.AdvancePaid, o.IsFullyPaid))
	s.publish("order.updated", *o)
	return o, nil
}

// BuyerTransition lets the owning buyer move a pending or accepted order
// to cancelled or completed. Completing an order with nothing left to
// pay forces the fully-paid state.
func (s *OrderService) BuyerTransition(ctx context.Context, buyerSlug, actorID, orderID, newStatus string) (*models.Order, error) {
	buyer, err := s.Identity.ResolveByProfileSlug(ctx, buyerSlug, models.RoleCustomer)
	if err != nil {
		return nil, err
	}

	o, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != buyer.ID {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if buyer.ID != actorID {
		return nil, fmt.Errorf("only the buyer can update this order: %w", ErrForbidden)
	}
	if o.Terminal() {
		return nil, fmt.Errorf("order %s cannot be updated after completion or cancellation: %w", orderID, ErrForbidden)
	}

	unlock, err := s.lockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	o, err = s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	// The order may have reached a terminal state between the first read
	// and the lock; re-check before transitioning.
	if o.Terminal() {
		return nil, fmt.Errorf("order %s cannot be updated after completion or cancellation: %w", orderID, ErrForbidden)
	}

	switch newStatus {
	case models.StatusCancelled:
		o.Status = models.StatusCancelled
	case models.StatusCompleted:
		o.MarkCompleted(s.Now())
	default:
		return nil, fmt.Errorf("buyer may only set status to cancelled or completed, got %q: %w", newStatus, ErrValidation)
	}

	o.UpdatedAt = s.Now()
	if err := s.DB.UpdateOrder(ctx, *o); err != nil {
		return nil, fmt.Errorf("transition order %s to %s: %w", orderID, newStatus, err)
	}

	s.Logger.LogOrder("BUYER_TRANSITION", o.ID, fmt.Sprintf("status=%s fully_paid=%t", o.Status, o.IsFullyPaid))
	s.publish("order."+newStatus, *o)
	return o, nil
}

// Delete outcomes.
const (
	OutcomeCancelled = "cancelled"
	OutcomeDeleted   = "deleted"
)

// DeleteOrCancel reinterprets a buyer's delete of a pending order as a
// cancellation; the owning seller gets a hard delete regardless of
// status. Anyone else is rejected.
func (s *OrderService) DeleteOrCancel(ctx context.Context, actorID, orderID string) (string, error) {
	o, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return "", err
	}

	if o.BuyerID == actorID && o.Status == models.StatusPending {
		unlock, err := s.lockOrder(ctx, orderID)
		if err != nil {
			return "", err
		}
		defer unlock()

		// The order may have been accepted or completed since the first
		// read; only a still-pending order is cancellable this way.
		o, err = s.DB.GetOrderByID(ctx, orderID)
		if err != nil {
			return "", err
		}
		if o.Status != models.StatusPending {
			return "", fmt.Errorf("order %s is no longer pending: %w", orderID, ErrForbidden)
		}

		o.Status = models.StatusCancelled
		o.UpdatedAt = s.Now()
		if err := s.DB.UpdateOrder(ctx, *o); err != nil {
			return "", fmt.Errorf("cancel order %s: %w", orderID, err)
		}
		s.Logger.LogOrder("CANCEL", o.ID, "buyer cancelled pending order")
		s.publish("order.cancelled", *o)
		return OutcomeCancelled, nil
	}

	if o.SellerID == actorID {
		if err := s.DB.DeleteOrder(ctx, orderID); err != nil {
			return "", fmt.Errorf("delete order %s: %w", orderID, err)
		}
		s.Logger.LogOrder("DELETE", o.ID, "seller removed order")
		s.publish("order.deleted", *o)
		return OutcomeDeleted, nil
	}

	return "", fmt.Errorf("cannot delete order %s: %w", orderID, ErrForbidden)
}

// ownedBySeller resolves the seller slug and loads the order, mapping a
// wrong-seller order to not-found (the order is invisible outside its
// seller's listing) and a token mismatch to forbidden.
func (s *OrderService) ownedBySeller(ctx context.Context, sellerSlug, actorID, orderID string) (*models.Order, error) {
	seller, err := s.Identity.ResolveByProfileSlug(ctx, sellerSlug, models.RoleSeller)
	if err != nil {
		return nil, err
	}

	o, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.SellerID != seller.ID {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if seller.ID != actorID {
		return nil, fmt.Errorf("only the seller can modify this order: %w", ErrForbidden)
	}
	return o, nil
}

func (s *OrderService) lockOrder(ctx context.Context, orderID string) (func(), error) {
	owner := uuid.NewString()
	ok, err := s.Lock.Lock(ctx, orderID, owner)
	if err != nil {
		return nil, fmt.Errorf("lock order %s: %w", orderID, err)
	}
	if !ok {
		return nil, fmt.Errorf("order %s has a concurrent update in flight: %w", orderID, ErrValidation)
	}
	return func() {
		if err := s.Lock.Unlock(ctx, orderID, owner); err != nil {
			s.Logger.Error("ORDER", fmt.Sprintf("unlock order %s: %v", orderID, err))
		}
	}, nil
}

func (s *OrderService) publish(eventType string, o models.Order) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishOrderEvent(eventType, o); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("publish %s for order %s: %v", eventType, o.ID, err))
	}
}
