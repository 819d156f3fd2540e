package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/easybuy/backend/internal/apperr"
	"github.com/easybuy/backend/internal/models"
	"github.com/easybuy/backend/internal/payment"
)

func (env *testEnv) paymentHandler() *PaymentHandler {
	return &PaymentHandler{DB: env.DB, Gateway: env.Gateway}
}

// completedEvent wires the fake gateway with a completed checkout and the
// customer metadata the webhook will pull back.
func (env *testEnv) completedEvent(t *testing.T, intentID string, items []payment.CartItem, userID uint) {
	t.Helper()

	snapshot, err := json.Marshal(items)
	require.NoError(t, err)

	env.Gateway.event = payment.Event{
		Type:            payment.EventCheckoutCompleted,
		CustomerID:      "cus_test",
		PaymentIntentID: intentID,
		AmountSubtotal:  4000,
		AmountTotal:     4000,
		PaymentStatus:   "paid",
		CustomerDetails: []byte(`{"address":{"country":"BE"},"email":"alice@example.com"}`),
	}
	env.Gateway.customers["cus_test"] = payment.Customer{
		ID: "cus_test",
		Metadata: map[string]string{
			payment.MetaUserID:    strconv.Itoa(int(userID)),
			payment.MetaCartItems: string(snapshot),
			payment.MetaTotal:     "40",
		},
	}
}

func TestCreateCheckoutSession(t *testing.T) {
	env := newTestEnv(t)
	h := env.paymentHandler()

	rec, c := env.jsonContext(t, http.MethodPost, "/api/v1/create-checkout-session", map[string]any{
		"cartItems": []map[string]any{
			{
				"id":       3,
				"title":    "Shirt",
				"price":    20,
				"quantity": 2,
				"poster":   map[string]string{"url": "https://cdn.test/shirt.png"},
			},
			{
				"id":       5,
				"title":    "Cap",
				"price":    10,
				"quantity": 0,
			},
		},
		"user":       map[string]any{"id": 7},
		"totalPrice": 50,
	})
	require.NoError(t, h.CreateCheckoutSession(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "https://checkout.test/session")

	in := env.Gateway.lastInput
	require.Equal(t, "7", in.UserID)
	require.Equal(t, 50.0, in.Total)
	require.Len(t, in.Items, 2)
	require.Equal(t, "3", in.Items[0].ID)
	require.Equal(t, uint(2), in.Items[0].Quantity)
	// Zero quantities are bumped to one.
	require.Equal(t, uint(1), in.Items[1].Quantity)
}

func TestCreateCheckoutSessionEmptyCart(t *testing.T) {
	env := newTestEnv(t)
	h := env.paymentHandler()

	_, c := env.jsonContext(t, http.MethodPost, "/api/v1/create-checkout-session", map[string]any{
		"cartItems": []map[string]any{},
		"user":      map[string]any{"id": 7},
	})
	err := h.CreateCheckoutSession(c)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, apperr.Validation, ae.Kind)
}

func TestWebhookInvalidSignature(t *testing.T) {
	env := newTestEnv(t)
	h := env.paymentHandler()
	env.Gateway.verifyErr = errors.New("signature mismatch")

	_, c := env.jsonContext(t, http.MethodPost, "/api/v1/webhook", map[string]string{"raw": "payload"})
	err := h.Webhook(c)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, apperr.InvalidSignature, ae.Kind)

	var orders int64
	require.NoError(t, env.DB.Model(&models.Order{}).Count(&orders).Error)
	require.Zero(t, orders)
}

func TestWebhookMaterializesOrder(t *testing.T) {
	env := newTestEnv(t)
	h := env.paymentHandler()
	user := env.createUser(t, "alice@example.com", "pass12345", "user")

	items := []payment.CartItem{
		{ID: "3", Title: "Shirt", Price: 20, PosterURL: "https://cdn.test/shirt.png", Quantity: 2},
	}
	env.completedEvent(t, "pi_123", items, user.ID)

	rec, c := env.jsonContext(t, http.MethodPost, "/api/v1/webhook", map[string]string{"raw": "payload"})
	require.NoError(t, h.Webhook(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var order models.Order
	require.NoError(t, env.DB.Preload("Products").Where("payment_intent_id = ?", "pi_123").First(&order).Error)
	require.Equal(t, user.ID, order.UserID)
	require.Equal(t, "cus_test", order.CustomerID)
	require.Equal(t, int64(4000), order.SubTotal)
	require.Equal(t, int64(4000), order.Total)
	require.Equal(t, "paid", order.PaymentStatus)
	require.Equal(t, "pending", order.DeliveryStatus)
	require.Contains(t, order.ShippingJSON, `"country":"BE"`)

	require.Len(t, order.Products, 1)
	line := order.Products[0]
	require.Equal(t, "3", line.ProductRef)
	require.Equal(t, "Shirt", line.Title)
	require.Equal(t, 20.0, line.Price)
	require.Equal(t, uint(2), line.Quantity)
}

func TestWebhookRedeliveryIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	h := env.paymentHandler()
	user := env.createUser(t, "alice@example.com", "pass12345", "user")
	env.completedEvent(t, "pi_123", []payment.CartItem{
		{ID: "3", Title: "Shirt", Price: 20, Quantity: 2},
	}, user.ID)

	for i := 0; i < 3; i++ {
		rec, c := env.jsonContext(t, http.MethodPost, "/api/v1/webhook", map[string]string{"raw": "payload"})
		require.NoError(t, h.Webhook(c))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	var orders int64
	require.NoError(t, env.DB.Model(&models.Order{}).Count(&orders).Error)
	require.Equal(t, int64(1), orders)
}

func TestWebhookIgnoresOtherEventTypes(t *testing.T) {
	env := newTestEnv(t)
	h := env.paymentHandler()
	env.Gateway.event = payment.Event{Type: "invoice.paid"}

	rec, c := env.jsonContext(t, http.MethodPost, "/api/v1/webhook", map[string]string{"raw": "payload"})
	require.NoError(t, h.Webhook(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var orders int64
	require.NoError(t, env.DB.Model(&models.Order{}).Count(&orders).Error)
	require.Zero(t, orders)
}

// The webhook acknowledges authenticated events even when the order cannot
// be written, so the provider does not keep redelivering.
func TestWebhookAcksOnMaterializationFailure(t *testing.T) {
	env := newTestEnv(t)
	h := env.paymentHandler()
	user := env.createUser(t, "alice@example.com", "pass12345", "user")
	env.completedEvent(t, "pi_123", []payment.CartItem{
		{ID: "3", Title: "Shirt", Price: 20, Quantity: 2},
	}, user.ID)
	env.Gateway.customerErr = errors.New("stripe is down")

	rec, c := env.jsonContext(t, http.MethodPost, "/api/v1/webhook", map[string]string{"raw": "payload"})
	require.NoError(t, h.Webhook(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var orders int64
	require.NoError(t, env.DB.Model(&models.Order{}).Count(&orders).Error)
	require.Zero(t, orders)
}

// An order is a frozen snapshot: later catalog edits must not leak into it.
func TestOrderLinesAreFrozenCopies(t *testing.T) {
	env := newTestEnv(t)
	h := env.paymentHandler()
	user := env.createUser(t, "alice@example.com", "pass12345", "user")
	category := env.createCategory(t, "Shirts")
	product := env.createProduct(t, "Shirt", 20, category.ID)

	env.completedEvent(t, "pi_123", []payment.CartItem{
		{ID: strconv.Itoa(int(product.ID)), Title: product.Title, Price: product.Price, Quantity: 2},
	}, user.ID)

	_, c := env.jsonContext(t, http.MethodPost, "/api/v1/webhook", map[string]string{"raw": "payload"})
	require.NoError(t, h.Webhook(c))

	require.NoError(t, env.DB.Model(product).Updates(map[string]any{
		"title": "Renamed Shirt",
		"price": 99.0,
	}).Error)

	var order models.Order
	require.NoError(t, env.DB.Preload("Products").First(&order).Error)
	require.Equal(t, "Shirt", order.Products[0].Title)
	require.Equal(t, 20.0, order.Products[0].Price)
}

func TestChangeDeliveryStatusToggle(t *testing.T) {
	env := newTestEnv(t)
	h := env.paymentHandler()
	order := models.Order{
		UserID:          1,
		PaymentIntentID: "pi_123",
		DeliveryStatus:  "pending",
	}
	require.NoError(t, env.DB.Create(&order).Error)

	flip := func() {
		rec, c := env.jsonContext(t, http.MethodPut, "/api/v1/orders/1", nil)
		c.SetParamNames("id")
		c.SetParamValues(strconv.Itoa(int(order.ID)))
		require.NoError(t, h.ChangeDeliveryStatus(c))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	flip()
	var stored models.Order
	require.NoError(t, env.DB.First(&stored, order.ID).Error)
	require.Equal(t, "delivered", stored.DeliveryStatus)

	flip()
	require.NoError(t, env.DB.First(&stored, order.ID).Error)
	require.Equal(t, "pending", stored.DeliveryStatus)
}

func TestChangeDeliveryStatusNotFound(t *testing.T) {
	env := newTestEnv(t)
	h := env.paymentHandler()

	_, c := env.jsonContext(t, http.MethodPut, "/api/v1/orders/9", nil)
	c.SetParamNames("id")
	c.SetParamValues("9")
	err := h.ChangeDeliveryStatus(c)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, apperr.NotFound, ae.Kind)
	require.Equal(t, "Order Not Found", ae.Message)
}

func TestGetAllOrders(t *testing.T) {
	env := newTestEnv(t)
	h := env.paymentHandler()
	user := env.createUser(t, "alice@example.com", "pass12345", "user")
	env.completedEvent(t, "pi_123", []payment.CartItem{
		{ID: "3", Title: "Shirt", Price: 20, Quantity: 2},
	}, user.ID)

	_, c := env.jsonContext(t, http.MethodPost, "/api/v1/webhook", map[string]string{"raw": "payload"})
	require.NoError(t, h.Webhook(c))

	rec, c := env.jsonContext(t, http.MethodGet, "/api/v1/orders", nil)
	require.NoError(t, h.GetAllOrders(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Orders []models.Order `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Orders, 1)
	require.Len(t, body.Orders[0].Products, 1)
}
