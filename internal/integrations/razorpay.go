package integrations

import (
	"context"
	"net/http"

	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
)

const razorpayURL = "https://api.razorpay.com"

type Razorpay struct {
	http    *httpx.Client
	BaseURL string
}

func NewRazorpay(client *httpx.Client) *Razorpay {
	return &Razorpay{http: client, BaseURL: razorpayURL}
}

type PaymentLink struct {
	APIKey    string
	APISecret string
	// Amount in the smallest currency unit.
	Amount   int64
	Currency string
	Name     string
	Email    string
	Contact  string
	Notes    map[string]any
}

// CreatePaymentLink returns the short url of a new payment link.
func (r *Razorpay) CreatePaymentLink(ctx context.Context, in PaymentLink) (string, *Exchange, error) {
	customer := map[string]any{}
	if in.Name != "" {
		customer["name"] = in.Name
	}
	if in.Email != "" {
		customer["email"] = in.Email
	}
	if in.Contact != "" {
		customer["contact"] = in.Contact
	}
	body := map[string]any{
		"amount":   in.Amount,
		"currency": in.Currency,
		"customer": customer,
		"notify":   map[string]any{"sms": in.Contact != "", "email": in.Email != ""},
	}
	if len(in.Notes) > 0 {
		body["notes"] = in.Notes
	}
	ex, err := call(ctx, r.http, "razorpay", httpx.Request{
		Method:    http.MethodPost,
		URL:       r.BaseURL + "/v1/payment_links",
		Body:      body,
		BasicAuth: &httpx.BasicAuth{Username: in.APIKey, Password: in.APISecret},
	})
	if err != nil {
		return "", ex, err
	}
	link, _ := field(ex.Response, "short_url").(string)
	if link == "" {
		return "", ex, errx.Ef(errx.KindIntegrationFailure, "razorpay response has no short_url")
	}
	return link, ex, nil
}
