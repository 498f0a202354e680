package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tomas-aguilar/mesa-pos-api/models"
	"github.com/tomas-aguilar/mesa-pos-api/services"
)

// APIError is a failed API call's error envelope
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// envelope is the standard response wrapper used by every endpoint
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

// ItemAndOrder is the payload returned by item-level mutations
type ItemAndOrder struct {
	Item  models.OrderItem `json:"item"`
	Order models.Order     `json:"order"`
}

// Client is a typed HTTP client for the order API, used by staff
// devices. All calls carry the device's bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates an API client for the given base URL (e.g.
// "http://localhost:8080") and bearer token
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreateOrder places a new order
func (c *Client) CreateOrder(input services.CreateOrderInput) (*models.Order, error) {
	var order models.Order
	if err := c.do(http.MethodPost, "/api/v1/orders", input, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders fetches orders, optionally filtered by status
func (c *Client) ListOrders(status string) ([]models.Order, error) {
	path := "/api/v1/orders"
	if status != "" {
		path += "?status=" + status
	}

	var orders []models.Order
	if err := c.do(http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder fetches one order by id
func (c *Client) GetOrder(orderID uint) (*models.Order, error) {
	var order models.Order
	if err := c.do(http.MethodGet, fmt.Sprintf("/api/v1/orders/%d", orderID), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus changes an order's status
func (c *Client) UpdateOrderStatus(orderID uint, status string) (*models.Order, error) {
	var order models.Order
	path := fmt.Sprintf("/api/v1/orders/%d/status", orderID)
	if err := c.do(http.MethodPatch, path, map[string]string{"status": status}, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateItemStatus changes one item's status
func (c *Client) UpdateItemStatus(orderID, itemID uint, status string) (*ItemAndOrder, error) {
	var result ItemAndOrder
	path := fmt.Sprintf("/api/v1/orders/%d/items/%d/status", orderID, itemID)
	if err := c.do(http.MethodPatch, path, map[string]string{"status": status}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateItemQuantity changes one item's quantity
func (c *Client) UpdateItemQuantity(orderID, itemID uint, quantity int) (*ItemAndOrder, error) {
	var result ItemAndOrder
	path := fmt.Sprintf("/api/v1/orders/%d/items/%d/quantity", orderID, itemID)
	if err := c.do(http.MethodPatch, path, map[string]int{"quantity": quantity}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateOrderUrgency toggles an order's urgency flag
func (c *Client) UpdateOrderUrgency(orderID uint, isUrgent bool) (*models.Order, error) {
	var order models.Order
	path := fmt.Sprintf("/api/v1/orders/%d/urgency", orderID)
	if err := c.do(http.MethodPatch, path, map[string]bool{"is_urgent": isUrgent}, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// DeleteOrder removes an order and everything attached to it
func (c *Client) DeleteOrder(orderID uint) error {
	return c.do(http.MethodDelete, fmt.Sprintf("/api/v1/orders/%d", orderID), nil, nil)
}

// do executes one API call, unwrapping the response envelope into out
func (c *Client) do(method, path string, body, out interface{}) error {
	var reqBody *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewBuffer(encoded)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if !env.Success {
		if env.Error != nil {
			return env.Error
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}
