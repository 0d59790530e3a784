package utils

import (
	"time"

	"ms-marketplace/internal/models"
)

// MessageResponse is the envelope for responses that carry no order
// body: cancellation acknowledgements and errors. Successful reads and
// mutations return order views directly.
type MessageResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func SuccessResponse(message string) MessageResponse {
	return MessageResponse{
		Success:   true,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func ErrorResponse(message, detail string) MessageResponse {
	return MessageResponse{
		Success:   false,
		Message:   message,
		Error:     detail,
		Timestamp: time.Now(),
	}
}

// OrderCreatedResponse pairs the created order with the count of
// requested service tokens that did not resolve against the catalog.
// Token resolution drops silently, so the count is the only signal a
// client gets that fulfilment was partial.
type OrderCreatedResponse struct {
	Order         models.OrderView `json:"order"`
	DroppedTokens int              `json:"dropped_tokens"`
}

func NewOrderCreatedResponse(result models.CreateOrderResult) OrderCreatedResponse {
	return OrderCreatedResponse{
		Order:         models.NewOrderView(result.Order),
		DroppedTokens: result.DroppedTokens,
	}
}

// OrderViews converts stored orders to their API read shape with the
// derived financial fields filled in.
func OrderViews(orders []models.Order) []models.OrderView {
	views := make([]models.OrderView, len(orders))
	for i, o := range orders {
		views[i] = models.NewOrderView(o)
	}
	return views
}
