package bybit

import (
	"context"
	"fmt"

	"github.com/ducminhle1904/momentum-trader/internal/exchange"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bybit order statuses
const (
	statusNew                     = "New"
	statusPartiallyFilled         = "PartiallyFilled"
	statusUntriggered             = "Untriggered"
	statusFilled                  = "Filled"
	statusCancelled               = "Cancelled"
	statusPartiallyFilledCanceled = "PartiallyFilledCanceled"
	statusDeactivated             = "Deactivated"
	statusRejected                = "Rejected"
)

type orderRecord struct {
	OrderID      string `json:"orderId"`
	OrderLinkID  string `json:"orderLinkId"`
	Symbol       string `json:"symbol"`
	Side         string `json:"side"`
	OrderStatus  string `json:"orderStatus"`
	AvgPrice     string `json:"avgPrice"`
	CumExecQty   string `json:"cumExecQty"`
	CumExecValue string `json:"cumExecValue"`
	CumExecFee   string `json:"cumExecFee"`
}

type orderList struct {
	List []orderRecord `json:"list"`
}

// PlaceOrder places a spot limit order
func (c *Client) PlaceOrder(ctx context.Context, params exchange.OrderParams) (*exchange.PlacedOrder, error) {
	linkID := params.ClientOrderID
	if linkID == "" {
		linkID = uuid.NewString()
	}
	tif := params.TimeInForce
	if tif == "" {
		tif = exchange.TimeInForceGTC
	}

	apiParams := map[string]interface{}{
		"category":    categorySpot,
		"symbol":      Symbol(params.ProductID),
		"side":        bybitSide(params.Side),
		"orderType":   "Limit",
		"qty":         params.Size.String(),
		"price":       params.Price.String(),
		"timeInForce": string(tif),
		"orderLinkId": linkID,
	}

	result, err := c.api().NewUtaBybitServiceWithParams(apiParams).PlaceOrder(ctx)
	if err != nil {
		return nil, transportError("place order", err)
	}

	var ack struct {
		OrderID string `json:"orderId"`
	}
	if err := decodeResult("place order", result, &ack); err != nil {
		return nil, err
	}
	c.rememberSymbol(ack.OrderID, apiParams["symbol"].(string))
	return &exchange.PlacedOrder{ID: ack.OrderID, Status: exchange.OrderStatusPending}, nil
}

// GetOrder looks the order up among open orders first, then in history
func (c *Client) GetOrder(ctx context.Context, orderID string) (*exchange.OrderDetails, error) {
	params := map[string]interface{}{
		"category": categorySpot,
		"orderId":  orderID,
	}

	result, err := c.api().NewUtaBybitServiceWithParams(params).GetOpenOrders(ctx)
	if err != nil {
		return nil, transportError("get open orders", err)
	}
	var open orderList
	if err := decodeResult("get open orders", result, &open); err != nil {
		return nil, err
	}
	if rec, ok := findOrder(open.List, orderID); ok {
		return toOrderDetails(rec)
	}

	result, err = c.api().NewUtaBybitServiceWithParams(params).GetOrderHistory(ctx)
	if err != nil {
		return nil, transportError("get order history", err)
	}
	var history orderList
	if err := decodeResult("get order history", result, &history); err != nil {
		return nil, err
	}
	if rec, ok := findOrder(history.List, orderID); ok {
		return toOrderDetails(rec)
	}

	return nil, &exchange.ExchangeError{
		Code:    exchange.ErrOrderNotFound.Code,
		Message: fmt.Sprintf("order %s not found", orderID),
	}
}

// CancelOrder cancels a spot order and returns the echoed order id
func (c *Client) CancelOrder(ctx context.Context, orderID string) (string, error) {
	params := map[string]interface{}{
		"category": categorySpot,
		"orderId":  orderID,
	}
	if symbol, ok := c.symbolFor(orderID); ok {
		params["symbol"] = symbol
	}

	result, err := c.api().NewUtaBybitServiceWithParams(params).CancelOrder(ctx)
	if err != nil {
		return "", transportError("cancel order", err)
	}

	var ack struct {
		OrderID string `json:"orderId"`
	}
	if err := decodeResult("cancel order", result, &ack); err != nil {
		return "", err
	}
	return ack.OrderID, nil
}

func findOrder(list []orderRecord, orderID string) (orderRecord, bool) {
	for _, rec := range list {
		if rec.OrderID == orderID {
			return rec, true
		}
	}
	return orderRecord{}, false
}

// toOrderDetails converts a Bybit order into the shared status model.
// Spot buy fees are charged in the base coin, so they are converted to
// quote at the average fill price.
func toOrderDetails(rec orderRecord) (*exchange.OrderDetails, error) {
	details := &exchange.OrderDetails{
		ID:            rec.OrderID,
		Side:          sideFromBybit(rec.Side),
		ExecutedValue: parseDecimal(rec.CumExecValue),
		FilledSize:    parseDecimal(rec.CumExecQty),
		FillFees:      parseDecimal(rec.CumExecFee),
	}
	if details.Side == exchange.OrderSideBuy {
		details.FillFees = details.FillFees.Mul(parseDecimal(rec.AvgPrice))
	}

	switch rec.OrderStatus {
	case statusNew, statusPartiallyFilled, statusUntriggered:
		details.Status = exchange.OrderStatusOpen
	case statusFilled:
		details.Status = exchange.OrderStatusDone
		details.DoneReason = exchange.DoneReasonFilled
	case statusCancelled, statusPartiallyFilledCanceled, statusDeactivated:
		details.Status = exchange.OrderStatusDone
		details.DoneReason = exchange.DoneReasonCanceled
	case statusRejected:
		details.Status = exchange.OrderStatusDone
		details.DoneReason = exchange.DoneReasonRejected
	default:
		return nil, fmt.Errorf("unknown bybit order status %q", rec.OrderStatus)
	}
	return details, nil
}

func bybitSide(side exchange.OrderSide) string {
	if side == exchange.OrderSideSell {
		return "Sell"
	}
	return "Buy"
}

func sideFromBybit(side string) exchange.OrderSide {
	if side == "Sell" {
		return exchange.OrderSideSell
	}
	return exchange.OrderSideBuy
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
