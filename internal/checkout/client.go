package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/chainbazzar/chainbazzar/internal/domain/models"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

// ErrNotAuthenticated is reported once for the whole checkout when the
// bearer credential is missing or rejected; no per-seller calls are made.
var ErrNotAuthenticated = errors.New("not authenticated")

// OrderItem is one position of an order-creation request.
type OrderItem struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderRequest is the payload sent to the order service, one per seller
// group. IdempotencyKey makes resubmission safe.
type OrderRequest struct {
	SellerID        int64           `json:"seller_id"`
	Items           []OrderItem     `json:"items"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ShippingAddress string          `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	IdempotencyKey  string          `json:"idempotency_key"`
}

// OrderPlacer is the submitter's view of the order persistence service.
type OrderPlacer interface {
	VerifyToken(ctx context.Context, token string) (*models.User, error)
	CreateOrder(ctx context.Context, token string, req OrderRequest) (int64, error)
}

// Client talks to the order service over HTTP. Outbound calls run through
// a circuit breaker so a dead backend fails fast instead of tying up every
// checkout goroutine.
type Client struct {
	log        *slog.Logger
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(log *slog.Logger, baseURL string, requestTimeout time.Duration) *Client {
	settings := gobreaker.Settings{
		Name:    "order-service",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Client{
		log:        log,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		breaker:    gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

// VerifyToken validates the bearer credential via GET /api/auth/me.
func (c *Client) VerifyToken(ctx context.Context, token string) (*models.User, error) {
	const op = "checkout.Client.VerifyToken"

	body, err := c.do(ctx, http.MethodGet, "/api/auth/me", token, "", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var resp struct {
		ID            int64  `json:"id"`
		Email         string `json:"email"`
		WalletAddress string `json:"wallet_address"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%s: failed to decode profile: %w", op, err)
	}
	return &models.User{ID: resp.ID, Email: resp.Email, WalletAddress: resp.WalletAddress}, nil
}

// CreateOrder submits one seller group's order via POST /api/orders and
// returns the created order ID.
func (c *Client) CreateOrder(ctx context.Context, token string, req OrderRequest) (int64, error) {
	const op = "checkout.Client.CreateOrder"

	payload, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to marshal request: %w", op, err)
	}

	body, err := c.do(ctx, http.MethodPost, "/api/orders", token, req.IdempotencyKey, payload)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var resp struct {
		Order struct {
			ID int64 `json:"id"`
		} `json:"order"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	if resp.Order.ID == 0 {
		return 0, fmt.Errorf("%s: response carries no order id", op)
	}
	return resp.Order.ID, nil
}

// do executes the request inside the breaker and returns the response body.
// Non-2xx responses become errors carrying the backend's message; a 401
// maps to ErrNotAuthenticated.
func (c *Client) do(ctx context.Context, method, path, token, idempotencyKey string, payload []byte) ([]byte, error) {
	return c.breaker.Execute(func() ([]byte, error) {
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if idempotencyKey != "" {
			req.Header.Set("Idempotency-Key", idempotencyKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return nil, ErrNotAuthenticated
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			var errResp struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(body, &errResp) == nil && errResp.Message != "" {
				return nil, fmt.Errorf("order service rejected request (%d): %s", resp.StatusCode, errResp.Message)
			}
			return nil, fmt.Errorf("order service returned status %d", resp.StatusCode)
		}
		return body, nil
	})
}
