package nbdb

import (
	"context"
	"net/http"
	"net/url"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"nbapi/internal/broker"
	apperrors "nbapi/internal/errors"
)

// PlaceOrder validates the intent and submits the validated payload,
// returning the broker-assigned order id.
func (c *Client) PlaceOrder(ctx context.Context, s *Session, accountID string, intent OrderIntent, phone string) (string, error) {
	validated, err := c.Validate(ctx, s, accountID, intent, phone)
	if err != nil {
		return "", err
	}
	return c.Submit(ctx, s, validated)
}

// PlaceMarketOrder places a day market order.
func (c *Client) PlaceMarketOrder(ctx context.Context, s *Session, accountID, symbol, currency string, side broker.Side, qty int64, phone string) (string, error) {
	return c.PlaceOrder(ctx, s, accountID, OrderIntent{
		Side:     side,
		Quantity: qty,
		Symbol:   symbol,
		Currency: currency,
	}, phone)
}

// PlaceLimitOrder places a limit order. daysTillExpiration of 0 makes it a day order.
func (c *Client) PlaceLimitOrder(ctx context.Context, s *Session, accountID, symbol, currency string, side broker.Side, qty int64, phone string, limitPrice decimal.Decimal, daysTillExpiration int) (string, error) {
	return c.PlaceOrder(ctx, s, accountID, OrderIntent{
		Side:               side,
		Quantity:           qty,
		Symbol:             symbol,
		Currency:           currency,
		LimitPrice:         optional.Some(limitPrice),
		DaysTillExpiration: daysTillExpiration,
	}, phone)
}

// Submit posts a validated order and returns the broker-assigned order id.
func (c *Client) Submit(ctx context.Context, s *Session, order *ValidatedOrder) (string, error) {
	if order == nil || order.StockOrder == nil {
		return "", apperrors.Validation("order has not been validated")
	}
	if phone, err := order.Phone(); err != nil || phone == "" || phone == placeholderPhone {
		return "", apperrors.ValidationField("phone", "a contact phone is required to submit an order")
	}

	var resp submitResponse
	if err := c.do(ctx, s, "submit order", http.MethodPost, c.api(EndpointStockOrders), order, &resp); err != nil {
		return "", err
	}

	id := string(resp.Data.StockOrder.OrdID)
	if id == "" {
		return "", apperrors.New(apperrors.ErrBrokerRequest, "submission response carried no order id")
	}

	c.log.WithField("order_id", id).Info("order submitted")
	return id, nil
}

// CancelOrder deletes the order. The response body is not inspected.
func (c *Client) CancelOrder(ctx context.Context, s *Session, orderID string) error {
	if orderID == "" {
		return apperrors.ValidationField("order_id", "order id is required")
	}

	if err := c.do(ctx, s, "cancel order", http.MethodDelete, c.api(EndpointStockOrders)+"/"+url.PathEscape(orderID), nil, nil); err != nil {
		return err
	}

	c.log.WithField("order_id", orderID).Info("order cancelled")
	return nil
}

// ListOrders returns the account's orders in server order (most recent first).
func (c *Client) ListOrders(ctx context.Context, s *Session, accountID string) ([]broker.Order, error) {
	if accountID == "" {
		return nil, apperrors.ValidationField("account_id", "account id is required")
	}

	q := url.Values{"acctNo": {accountID}}
	var resp ordersResponse
	if err := c.do(ctx, s, "get orders", http.MethodGet, c.api(EndpointOrders)+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	orders := make([]broker.Order, 0, len(resp.Data.OrderList))
	for _, o := range resp.Data.OrderList {
		orders = append(orders, toOrder(o))
	}
	return orders, nil
}

// GetLatestOrder returns the first order the broker lists for the account.
func (c *Client) GetLatestOrder(ctx context.Context, s *Session, accountID string) (*broker.Order, error) {
	orders, err := c.ListOrders(ctx, s, accountID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, apperrors.Newf(apperrors.ErrOrderNotFound, "account %s has no orders", accountID)
	}
	return &orders[0], nil
}

// GetOrder finds an order by id in the account's order list.
func (c *Client) GetOrder(ctx context.Context, s *Session, accountID, orderID string) (*broker.Order, error) {
	orders, err := c.ListOrders(ctx, s, accountID)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].ID == orderID {
			return &orders[i], nil
		}
	}
	return nil, apperrors.Newf(apperrors.ErrOrderNotFound, "order %s not found in account %s", orderID, accountID)
}

// GetOrderStatus reports whether the order is still open (not yet filled).
func (c *Client) GetOrderStatus(ctx context.Context, s *Session, accountID, orderID string) (bool, error) {
	order, err := c.GetOrder(ctx, s, accountID, orderID)
	if err != nil {
		return false, err
	}
	return order.Open, nil
}

func toOrder(o orderEntry) broker.Order {
	return broker.Order{
		ID:             string(o.OrdID),
		Operation:      o.Operation,
		OrderQuantity:  o.OrdQty,
		FilledQuantity: o.ExecQty,
		FillPrice:      o.AvgExecPrice,
		Open:           o.OrderOpen,
	}
}
