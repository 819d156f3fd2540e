// Package payment wraps the hosted-checkout provider. The rest of the app
// only sees the Gateway interface, so the webhook processor can be tested
// without provider credentials.
package payment

import "context"

// CartItem is one line of the cart snapshot that round-trips through the
// provider's customer metadata.
type CartItem struct {
	ID        string  `json:"_id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	PosterURL string  `json:"poster_url,omitempty"`
	Quantity  uint    `json:"quantity"`
}

// CheckoutInput carries everything the provider needs to host a checkout
// page. Nothing in it is persisted locally.
type CheckoutInput struct {
	Items  []CartItem
	UserID string
	Total  float64
}

// MetadataKey* are the keys the cart snapshot travels under.
const (
	MetaUserID    = "userId"
	MetaCartItems = "cartItems"
	MetaTotal     = "total"
)

// EventCheckoutCompleted is the only event type the webhook materializes
// orders from; everything else is acknowledged and dropped.
const EventCheckoutCompleted = "checkout.session.completed"

// Event is the provider-neutral view of a verified webhook event. The
// checkout fields are only populated for EventCheckoutCompleted.
type Event struct {
	Type            string
	CustomerID      string
	PaymentIntentID string
	AmountSubtotal  int64
	AmountTotal     int64
	PaymentStatus   string
	CustomerDetails []byte
}

// Customer is the provider-side record carrying the opaque cart metadata.
type Customer struct {
	ID       string
	Metadata map[string]string
}

type Gateway interface {
	// CreateCheckoutSession stores the cart snapshot on a provider customer
	// and returns the hosted checkout URL.
	CreateCheckoutSession(ctx context.Context, in CheckoutInput) (string, error)

	// VerifyEvent checks the webhook signature against the shared secret and
	// decodes the event. It is the sole authentication of the webhook route.
	VerifyEvent(payload []byte, sigHeader string) (Event, error)

	// Customer retrieves the provider customer referenced by an event.
	Customer(ctx context.Context, id string) (Customer, error)
}
