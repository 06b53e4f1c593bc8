package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storefront/app/internal/config"
	"storefront/app/internal/domain"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

var (
	// ErrMissingSecret means the endpoint answered 2xx without a client_secret.
	ErrMissingSecret = errors.New("backend did not return a client_secret")
	// ErrEndpointUnreachable marks a 405 from the session endpoint, which means
	// the endpoint is not deployed rather than that it rejected the request.
	ErrEndpointUnreachable = errors.New("payment session endpoint not deployed")
)

const createSessionPath = "/create-payment-intent"

// PaymentSessionRequest is the body of the create-payment-intent call.
type PaymentSessionRequest struct {
	Amount   int64             `json:"amount"`   // Minor units
	Currency string            `json:"currency"` // Lower case ISO code
	Items    []domain.CartItem `json:"items"`
	Email    string            `json:"email"`
	Shipping domain.Shipping   `json:"shipping"`
}

// PaymentSession is bound to the amount it was created for.
type PaymentSession struct {
	ClientSecret string
	Amount       int64
}

// SessionError is a non-success response from the session endpoint.
type SessionError struct {
	URL        string
	StatusCode int
	Message    string
}

func (e *SessionError) Error() string {
	if e.StatusCode == http.StatusMethodNotAllowed {
		return fmt.Sprintf("received 405 from %s: the payment session endpoint is not running (functions disabled or not deployed)", e.URL)
	}
	return e.Message
}

func (e *SessionError) Unwrap() error {
	if e.StatusCode == http.StatusMethodNotAllowed {
		return ErrEndpointUnreachable
	}
	return nil
}

type PaymentClient interface {
	CreatePaymentSession(ctx context.Context, req PaymentSessionRequest) (*PaymentSession, error)
}

type paymentClient struct {
	rl         ratelimit.Limiter
	sessionURL string
	httpClient *resty.Client
}

func NewPaymentClient(cfg config.PaymentConfig) PaymentClient {
	client := resty.New().
		SetTimeout(time.Duration(cfg.Timeout)*time.Second).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	rps := cfg.MaxRequestsPerSecond
	if rps <= 0 {
		rps = 1
	}

	return &paymentClient{
		rl:         ratelimit.New(rps),
		sessionURL: strings.TrimSuffix(cfg.APIBase, "/") + createSessionPath,
		httpClient: client,
	}
}

func (c *paymentClient) CreatePaymentSession(ctx context.Context, req PaymentSessionRequest) (*PaymentSession, error) {
	c.rl.Take()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		Post(c.sessionURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("failed to reach %s: %w", c.sessionURL, err)
	}

	var body struct {
		ClientSecret string `json:"client_secret"`
		Error        string `json:"error"`
		Message      string `json:"message"`
	}
	raw := resp.String()
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &body); err != nil {
			log.Debugf("Session endpoint returned non-JSON body: %v", err)
		}
	}

	if resp.IsError() {
		msg := body.Error
		if msg == "" {
			msg = body.Message
		}
		if msg == "" {
			msg = resp.Status()
		}
		return nil, &SessionError{URL: c.sessionURL, StatusCode: resp.StatusCode(), Message: msg}
	}

	if body.ClientSecret == "" {
		return nil, ErrMissingSecret
	}

	log.Debugf("Created payment session for %d %s", req.Amount, req.Currency)
	return &PaymentSession{ClientSecret: body.ClientSecret, Amount: req.Amount}, nil
}
