package coinbase

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ducminhle1904/momentum-trader/internal/exchange"
	"github.com/google/uuid"
)

// PlaceOrder submits a limit order. It is never retried.
func (c *Client) PlaceOrder(ctx context.Context, params exchange.OrderParams) (*exchange.PlacedOrder, error) {
	clientOID := params.ClientOrderID
	if clientOID == "" {
		clientOID = uuid.NewString()
	}

	req := orderRequest{
		ClientOID:   clientOID,
		Type:        "limit",
		Side:        string(params.Side),
		ProductID:   params.ProductID,
		Price:       params.Price.String(),
		Size:        params.Size.String(),
		TimeInForce: string(params.TimeInForce),
	}

	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/orders", req, &resp); err != nil {
		return nil, err
	}

	c.log.WithFields(map[string]interface{}{
		"order_id":   resp.ID,
		"client_oid": clientOID,
		"side":       req.Side,
		"price":      req.Price,
		"size":       req.Size,
	}).Debug("order accepted")

	return &exchange.PlacedOrder{ID: resp.ID, Status: resp.Status, CreatedAt: resp.CreatedAt}, nil
}

// GetOrder fetches the current state of an order
func (c *Client) GetOrder(ctx context.Context, orderID string) (*exchange.OrderDetails, error) {
	var resp orderResponse
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &resp); err != nil {
		return nil, err
	}

	return &exchange.OrderDetails{
		ID:            resp.ID,
		Side:          exchange.OrderSide(resp.Side),
		Status:        resp.Status,
		DoneReason:    resp.DoneReason,
		ExecutedValue: orZero(resp.ExecutedValue),
		FillFees:      orZero(resp.FillFees),
		FilledSize:    orZero(resp.FilledSize),
	}, nil
}

// CancelOrder cancels an order and returns the id echoed by the venue
func (c *Client) CancelOrder(ctx context.Context, orderID string) (string, error) {
	var echoed string
	if err := c.do(ctx, http.MethodDelete, "/orders/"+url.PathEscape(orderID), nil, &echoed); err != nil {
		return "", err
	}
	return echoed, nil
}
