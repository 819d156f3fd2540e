package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeGateway implements Gateway on top of the official Stripe SDK.
type StripeGateway struct {
	sc            *client.API
	webhookSecret string
	frontendURL   string
}

func NewStripeGateway(secretKey, webhookSecret, frontendURL string) *StripeGateway {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeGateway{
		sc:            sc,
		webhookSecret: webhookSecret,
		frontendURL:   frontendURL,
	}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (string, error) {
	snapshot, err := json.Marshal(in.Items)
	if err != nil {
		return "", fmt.Errorf("stripe: marshal cart snapshot: %w", err)
	}

	custParams := &stripe.CustomerParams{Params: stripe.Params{Context: ctx}}
	custParams.AddMetadata(MetaUserID, in.UserID)
	custParams.AddMetadata(MetaCartItems, string(snapshot))
	custParams.AddMetadata(MetaTotal, strconv.FormatFloat(in.Total, 'f', -1, 64))

	cust, err := g.sc.Customers.New(custParams)
	if err != nil {
		return "", fmt.Errorf("stripe: create customer: %w", err)
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(in.Items))
	for _, item := range in.Items {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name:     stripe.String(item.Title),
			Metadata: map[string]string{"_id": item.ID},
		}
		if item.PosterURL != "" {
			productData.Images = stripe.StringSlice([]string{item.PosterURL})
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(string(stripe.CurrencyEUR)),
				ProductData: productData,
				UnitAmount:  stripe.Int64(int64(item.Price * 100)),
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}

	sessParams := &stripe.CheckoutSessionParams{
		Params:   stripe.Params{Context: ctx},
		Customer: stripe.String(cust.ID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModePayment)),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice([]string{"BE", "NL"}),
		},
		ShippingOptions: []*stripe.CheckoutSessionShippingOptionParams{
			shippingOption("Free shipping", 0, 5, 7),
			shippingOption("Next day air", 1500, 1, 1),
		},
		LineItems:  lineItems,
		SuccessURL: stripe.String(g.frontendURL + "/payment-success/"),
		CancelURL:  stripe.String(g.frontendURL + "/payment-cancel"),
	}

	sess, err := g.sc.CheckoutSessions.New(sessParams)
	if err != nil {
		return "", fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return sess.URL, nil
}

func shippingOption(name string, amount, minDays, maxDays int64) *stripe.CheckoutSessionShippingOptionParams {
	return &stripe.CheckoutSessionShippingOptionParams{
		ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
			Type: stripe.String("fixed_amount"),
			FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
				Amount:   stripe.Int64(amount),
				Currency: stripe.String(string(stripe.CurrencyEUR)),
			},
			DisplayName: stripe.String(name),
			DeliveryEstimate: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateParams{
				Minimum: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateMinimumParams{
					Unit:  stripe.String("business_day"),
					Value: stripe.Int64(minDays),
				},
				Maximum: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateMaximumParams{
					Unit:  stripe.String("business_day"),
					Value: stripe.Int64(maxDays),
				},
			},
		},
	}
}

func (g *StripeGateway) VerifyEvent(payload []byte, sigHeader string) (Event, error) {
	stripeEvent, err := webhook.ConstructEvent(payload, sigHeader, g.webhookSecret)
	if err != nil {
		return Event{}, fmt.Errorf("stripe: verify webhook signature: %w", err)
	}

	ev := Event{Type: string(stripeEvent.Type)}
	if ev.Type != EventCheckoutCompleted {
		return ev, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(stripeEvent.Data.Raw, &sess); err != nil {
		return Event{}, fmt.Errorf("stripe: decode checkout session: %w", err)
	}

	if sess.Customer != nil {
		ev.CustomerID = sess.Customer.ID
	}
	if sess.PaymentIntent != nil {
		ev.PaymentIntentID = sess.PaymentIntent.ID
	}
	ev.AmountSubtotal = sess.AmountSubtotal
	ev.AmountTotal = sess.AmountTotal
	ev.PaymentStatus = string(sess.PaymentStatus)
	if sess.CustomerDetails != nil {
		if details, err := json.Marshal(sess.CustomerDetails); err == nil {
			ev.CustomerDetails = details
		}
	}
	return ev, nil
}

func (g *StripeGateway) Customer(ctx context.Context, id string) (Customer, error) {
	cust, err := g.sc.Customers.Get(id, &stripe.CustomerParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return Customer{}, fmt.Errorf("stripe: retrieve customer %s: %w", id, err)
	}
	return Customer{ID: cust.ID, Metadata: cust.Metadata}, nil
}
