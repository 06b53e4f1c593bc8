package domain

import "time"

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Shipping is the delivery party as the payment endpoint expects it.
type Shipping struct {
	Name    string  `json:"name"`
	Phone   string  `json:"phone,omitempty"`
	Address Address `json:"address"`
}

// Contact is everything the checkout form collects besides selections.
type Contact struct {
	Email       string    `json:"email"`
	Shipping    Shipping  `json:"shipping"`
	Billing     *Shipping `json:"billing,omitempty"` // nil when billing matches shipping
	GiftMessage string    `json:"gift_message,omitempty"`
}

// Order is the record of a confirmed payment.
type Order struct {
	ID           string     `json:"id"`
	SessionID    string     `json:"session_id"`
	Items        []CartItem `json:"items"`
	Totals       Totals     `json:"totals"`
	Currency     string     `json:"currency"`
	Selections   Selections `json:"selections"`
	Contact      Contact    `json:"contact"`
	ClientSecret string     `json:"client_secret"`
	ConfirmedAt  time.Time  `json:"confirmed_at"`
}
