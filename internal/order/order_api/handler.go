package order_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/order"
	"ms-marketplace/internal/order/invoice"
	"ms-marketplace/internal/utils"
)

type Handler struct {
	OrderService *order.OrderService
	Logger       *logger.Logger
}

func NewHandler(orderService *order.OrderService, log *logger.Logger) *Handler {
	return &Handler{
		OrderService: orderService,
		Logger:       log,
	}
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	buyerSlug := chi.URLParam(r, "buyerSlug")
	h.Logger.Info("API", fmt.Sprintf("CreateOrder: buyer=%s", buyerSlug))

	var in order.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateOrder: failed to decode request body: %v", err))
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	result, err := h.OrderService.Create(r.Context(), buyerSlug, auth.UserID(r.Context()), in)
	if err != nil {
		h.writeServiceError(w, "CreateOrder", err)
		return
	}

	h.Logger.Info("API", fmt.Sprintf("CreateOrder: created order %s (%d tokens dropped)", result.Order.ID, result.DroppedTokens))
	h.writeJSON(w, http.StatusCreated, utils.NewOrderCreatedResponse(*result))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	h.Logger.Info("API", fmt.Sprintf("GetOrder: orderId=%s", orderID))

	o, err := h.OrderService.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeServiceError(w, "GetOrder", err)
		return
	}
	h.writeJSON(w, http.StatusOK, models.NewOrderView(*o))
}

func (h *Handler) BuyerOrders(w http.ResponseWriter, r *http.Request) {
	buyerSlug := chi.URLParam(r, "buyerSlug")
	h.Logger.Info("API", fmt.Sprintf("BuyerOrders: buyer=%s", buyerSlug))

	orders, err := h.OrderService.OrdersByBuyer(r.Context(), buyerSlug)
	if err != nil {
		h.writeServiceError(w, "BuyerOrders", err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.OrderViews(orders))
}

func (h *Handler) SellerOrders(w http.ResponseWriter, r *http.Request) {
	sellerSlug := chi.URLParam(r, "sellerSlug")
	status := r.URL.Query().Get("status")
	h.Logger.Info("API", fmt.Sprintf("SellerOrders: seller=%s status=%q", sellerSlug, status))

	orders, err := h.OrderService.OrdersBySeller(r.Context(), sellerSlug, status)
	if err != nil {
		h.writeServiceError(w, "SellerOrders", err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.OrderViews(orders))
}

func (h *Handler) AcceptOrder(w http.ResponseWriter, r *http.Request) {
	sellerSlug := chi.URLParam(r, "sellerSlug")
	orderID := chi.URLParam(r, "orderId")
	h.Logger.Info("API", fmt.Sprintf("AcceptOrder: seller=%s orderId=%s", sellerSlug, orderID))

	o, err := h.OrderService.Accept(r.Context(), sellerSlug, auth.UserID(r.Context()), orderID)
	if err != nil {
		h.writeServiceError(w, "AcceptOrder", err)
		return
	}
	h.writeJSON(w, http.StatusOK, models.NewOrderView(*o))
}

func (h *Handler) SellerUpdateOrder(w http.ResponseWriter, r *http.Request) {
	sellerSlug := chi.URLParam(r, "sellerSlug")
	orderID := chi.URLParam(r, "orderId")
	h.Logger.Info("API", fmt.Sprintf("SellerUpdateOrder: seller=%s orderId=%s", sellerSlug, orderID))

	var in order.SellerUpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.Logger.Error("API", fmt.Sprintf("SellerUpdateOrder: failed to decode request body: %v", err))
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	o, err := h.OrderService.ApplySellerFinancials(r.Context(), sellerSlug, auth.UserID(r.Context()), orderID, in)
	if err != nil {
		h.writeServiceError(w, "SellerUpdateOrder", err)
		return
	}
	h.writeJSON(w, http.StatusOK, models.NewOrderView(*o))
}

type buyerUpdateRequest struct {
	Status string `json:"status"`
}

func (h *Handler) BuyerUpdateOrder(w http.ResponseWriter, r *http.Request) {
	buyerSlug := chi.URLParam(r, "buyerSlug")
	orderID := chi.URLParam(r, "orderId")
	h.Logger.Info("API", fmt.Sprintf("BuyerUpdateOrder: buyer=%s orderId=%s", buyerSlug, orderID))

	var in buyerUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.Logger.Error("API", fmt.Sprintf("BuyerUpdateOrder: failed to decode request body: %v", err))
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	o, err := h.OrderService.BuyerTransition(r.Context(), buyerSlug, auth.UserID(r.Context()), orderID, in.Status)
	if err != nil {
		h.writeServiceError(w, "BuyerUpdateOrder", err)
		return
	}
	h.writeJSON(w, http.StatusOK, models.NewOrderView(*o))
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	h.Logger.Info("API", fmt.Sprintf("DeleteOrder: orderId=%s", orderID))

	outcome, err := h.OrderService.DeleteOrCancel(r.Context(), auth.UserID(r.Context()), orderID)
	if err != nil {
		h.writeServiceError(w, "DeleteOrder", err)
		return
	}

	if outcome == order.OutcomeCancelled {
		h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Order cancelled"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) InvoiceQR(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	h.Logger.Info("API", fmt.Sprintf("InvoiceQR: orderId=%s", orderID))

	o, err := h.OrderService.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeServiceError(w, "InvoiceQR", err)
		return
	}

	png, err := invoice.QRForInvoice(o.InvoiceFile)
	if errors.Is(err, invoice.ErrNoInvoice) {
		h.writeJSON(w, http.StatusNotFound, utils.ErrorResponse("No invoice on file", err.Error()))
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("InvoiceQR: failed to render QR: %v", err))
		h.writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to render invoice QR", err.Error()))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("API", fmt.Sprintf("InvoiceQR: failed to write response: %v", err))
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, order.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, order.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, order.ErrValidation):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
	} else {
		h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
	}
	h.writeJSON(w, status, utils.ErrorResponse(http.StatusText(status), err.Error()))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.Logger.Error("API", fmt.Sprintf("failed to encode response: %v", err))
	}
}
