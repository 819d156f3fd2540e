package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/easybuy/backend/internal/apperr"
	"github.com/easybuy/backend/internal/logging"
	"github.com/easybuy/backend/internal/models"
	"github.com/easybuy/backend/internal/mykafka"
	"github.com/easybuy/backend/internal/payment"
)

type PaymentHandler struct {
	DB       *gorm.DB
	Gateway  payment.Gateway
	Producer *mykafka.Producer
}

// CreateCheckoutSession hands the cart to the payment provider and returns
// the hosted checkout URL. Nothing is persisted locally: the cart snapshot
// travels as customer metadata and comes back through the webhook.
func (h *PaymentHandler) CreateCheckoutSession(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout_session")

	var req struct {
		CartItems []struct {
			ID       uint    `json:"id"`
			Title    string  `json:"title"`
			Price    float64 `json:"price"`
			Quantity uint    `json:"quantity"`
			Poster   struct {
				URL string `json:"url"`
			} `json:"poster"`
		} `json:"cartItems"`
		User struct {
			ID uint `json:"id"`
		} `json:"user"`
		TotalPrice float64 `json:"totalPrice"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "invalid body")
	}
	if len(req.CartItems) == 0 || req.User.ID == 0 {
		return apperr.New(apperr.Validation, "All fields are required")
	}

	items := make([]payment.CartItem, 0, len(req.CartItems))
	for _, item := range req.CartItems {
		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		items = append(items, payment.CartItem{
			ID:        strconv.Itoa(int(item.ID)),
			Title:     item.Title,
			Price:     item.Price,
			PosterURL: item.Poster.URL,
			Quantity:  quantity,
		})
	}

	url, err := h.Gateway.CreateCheckoutSession(ctx, payment.CheckoutInput{
		Items:  items,
		UserID: strconv.Itoa(int(req.User.ID)),
		Total:  req.TotalPrice,
	})
	if err != nil {
		l.Error("checkout_session_failed", "status", 500, "error", err)
		return apperr.Wrap(apperr.Upstream, "could not create checkout session", err)
	}

	l.Info("checkout_session_created", "status", 200, "user_id", req.User.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"url":     url,
	})
}

// Webhook ingests provider events. The signature check is the only
// authentication on this route. Once an event is authenticated the endpoint
// answers 200 no matter what happens during materialization, so the provider
// never enters a redelivery storm; failures go to the order_errors topic
// and the log instead.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment_webhook")

	payloadBytes, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return apperr.Wrap(apperr.Validation, "cannot read body", err)
	}

	event, err := h.Gateway.VerifyEvent(payloadBytes, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		l.Warn("webhook_rejected", "status", 400, "reason", "invalid_signature")
		return apperr.Wrap(apperr.InvalidSignature, "invalid webhook signature", err)
	}

	if event.Type != payment.EventCheckoutCompleted {
		// Unknown and irrelevant event types are acknowledged so the
		// endpoint stays compatible as the provider's taxonomy grows.
		l.Info("webhook_ignored", "event_type", event.Type)
		return c.NoContent(http.StatusOK)
	}

	if err := h.materializeOrder(ctx, event); err != nil {
		l.Error("order_materialization_failed", "payment_intent", event.PaymentIntentID, "error", err)
		h.reportFailure(ctx, event, err)
	}

	return c.NoContent(http.StatusOK)
}

func (h *PaymentHandler) materializeOrder(ctx context.Context, event payment.Event) error {
	l := logging.FromContext(ctx)

	// Providers deliver at least once; the unique index on
	// payment_intent_id backs this lookup under concurrent redelivery.
	var existing models.Order
	err := h.DB.Where("payment_intent_id = ?", event.PaymentIntentID).First(&existing).Error
	if err == nil {
		l.Info("order_already_materialized", "order_id", existing.ID, "payment_intent", event.PaymentIntentID)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup order: %w", err)
	}

	cust, err := h.Gateway.Customer(ctx, event.CustomerID)
	if err != nil {
		return fmt.Errorf("recover cart metadata: %w", err)
	}

	var items []payment.CartItem
	if err := json.Unmarshal([]byte(cust.Metadata[payment.MetaCartItems]), &items); err != nil {
		return fmt.Errorf("decode cart snapshot: %w", err)
	}
	userID, err := strconv.Atoi(cust.Metadata[payment.MetaUserID])
	if err != nil {
		return fmt.Errorf("decode user id %q: %w", cust.Metadata[payment.MetaUserID], err)
	}

	lines := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, models.OrderItem{
			ProductRef: item.ID,
			Title:      item.Title,
			Price:      item.Price,
			PosterURL:  item.PosterURL,
			Quantity:   item.Quantity,
		})
	}

	// Amounts come from the verified event, never from the client-declared
	// total in the metadata.
	order := models.Order{
		UserID:          uint(userID),
		CustomerID:      event.CustomerID,
		PaymentIntentID: event.PaymentIntentID,
		Products:        lines,
		SubTotal:        event.AmountSubtotal,
		Total:           event.AmountTotal,
		ShippingJSON:    string(event.CustomerDetails),
		PaymentStatus:   event.PaymentStatus,
		DeliveryStatus:  "pending",
	}
	if err := h.DB.Create(&order).Error; err != nil {
		return fmt.Errorf("persist order: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(pubCtx, "order_events", fmt.Sprint(order.ID), map[string]any{
		"type":    "order_created",
		"orderID": order.ID,
		"userID":  order.UserID,
		"total":   order.Total,
	}); err != nil {
		l.Error("kafka_publish_failed", "error", err)
	}

	l.Info("order_materialized", "order_id", order.ID, "payment_intent", event.PaymentIntentID)
	return nil
}

// reportFailure routes a materialization failure to the operator channel.
func (h *PaymentHandler) reportFailure(ctx context.Context, event payment.Event, cause error) {
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(pubCtx, "order_errors", event.PaymentIntentID, map[string]any{
		"type":           "order_materialization_failed",
		"payment_intent": event.PaymentIntentID,
		"customer":       event.CustomerID,
		"error":          cause.Error(),
	}); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_failed", "topic", "order_errors", "error", err)
	}
}

func (h *PaymentHandler) GetAllOrders(c echo.Context) error {
	var orders []models.Order
	if err := h.DB.Preload("Products").Order("id DESC").Find(&orders).Error; err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"orders":  orders,
	})
}

// ChangeDeliveryStatus flips pending <-> delivered. DeliveryStatus is the
// only order field that is ever mutated after materialization.
func (h *PaymentHandler) ChangeDeliveryStatus(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.Validation, "invalid order id")
	}

	var order models.Order
	if err := h.DB.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "Order Not Found")
		}
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	status := "delivered"
	if order.DeliveryStatus == "delivered" {
		status = "pending"
	}
	if err := h.DB.Model(&order).Update("delivery_status", status).Error; err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Delivery status changed successfully",
	})
}
