package nbdb

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"nbapi/internal/broker"
	apperrors "nbapi/internal/errors"
)

// representativeReview marks a validation message that is really a rejection.
const representativeReview = "your order will be processed by one of our representatives"

const (
	PriceTypeMarket   = "MARKET"
	PriceTypeSpecific = "SPECIFIC"

	ExpiryDay  = "DAY"
	ExpiryDate = "DATE"

	expiryLayout = "2006-01-02"
)

var currencyCountries = map[string]string{
	"USD": "USA",
	"CAD": "CAN",
}

var validate = validator.New()

// OrderIntent describes a stock order before validation.
type OrderIntent struct {
	Side     broker.Side `validate:"required,oneof=BUY SELL"`
	Quantity int64       `validate:"gt=0"`
	Symbol   string      `validate:"required"`
	Currency string      `validate:"required,len=3"`

	// LimitPrice makes this a limit order when set.
	LimitPrice optional.Option[decimal.Decimal]

	// DaysTillExpiration of 0 means a day order.
	DaysTillExpiration int `validate:"gte=0"`
}

// normalized returns a copy with the textual fields upper-cased.
func (o OrderIntent) normalized() OrderIntent {
	o.Side = broker.Side(strings.ToUpper(strings.TrimSpace(string(o.Side))))
	o.Symbol = strings.ToUpper(strings.TrimSpace(o.Symbol))
	o.Currency = strings.ToUpper(strings.TrimSpace(o.Currency))
	return o
}

// Validate checks the intent's fields after normalisation.
func (o OrderIntent) Validate() error {
	n := o.normalized()
	if err := validate.Struct(n); err != nil {
		return apperrors.Wrap(apperrors.ErrValidation, "invalid order", err)
	}
	if n.LimitPrice.IsSome() && !n.LimitPrice.Unwrap().IsPositive() {
		return apperrors.ValidationField("limit_price", "limit price must be positive")
	}
	if _, ok := currencyCountries[n.Currency]; !ok {
		return apperrors.Newf(apperrors.ErrUnsupportedCurrency, "currency %s has no country mapping (USD or CAD)", n.Currency)
	}
	return nil
}

// PriceType is SPECIFIC for limit orders and MARKET otherwise.
func (o OrderIntent) PriceType() string {
	if o.LimitPrice.IsSome() {
		return PriceTypeSpecific
	}
	return PriceTypeMarket
}

// ExpiryMode is DAY for same-day orders and DATE otherwise.
func (o OrderIntent) ExpiryMode() string {
	if o.DaysTillExpiration == 0 {
		return ExpiryDay
	}
	return ExpiryDate
}

// ExpiryDate returns the weekend-adjusted expiry date relative to now, or
// None for day orders.
func (o OrderIntent) ExpiryDate(now time.Time) optional.Option[time.Time] {
	if o.DaysTillExpiration == 0 {
		return optional.None[time.Time]()
	}
	return optional.Some(ExpiryAfter(now, o.DaysTillExpiration))
}

// ValidatedOrder is the broker-echoed order returned by the validation step.
// StockOrder is kept field-for-field as the broker sent it so that the
// submission carries it back unchanged.
type ValidatedOrder struct {
	StockOrder map[string]json.RawMessage
	// Warnings holds the msgId of every non-fatal broker message. It is nil
	// when the broker sent no messageList at all.
	Warnings []string
}

// MarshalJSON renders the submission body.
func (v *ValidatedOrder) MarshalJSON() ([]byte, error) {
	body := map[string]any{"stockOrder": v.StockOrder}
	if v.Warnings != nil {
		body["warnsNoList"] = v.Warnings
	}
	return json.Marshal(body)
}

// Field decodes one stockOrder field into out.
func (v *ValidatedOrder) Field(name string, out any) error {
	raw, ok := v.StockOrder[name]
	if !ok {
		return apperrors.Newf(apperrors.ErrNotFound, "stockOrder has no %s field", name)
	}
	return json.Unmarshal(raw, out)
}

// Phone returns the phone number that will be submitted with the order.
func (v *ValidatedOrder) Phone() (string, error) {
	var phone string
	if err := v.Field("phone", &phone); err != nil {
		return "", err
	}
	return phone, nil
}

// buildStockOrder renders the validation payload for an already-validated,
// normalised intent.
func buildStockOrder(accountID string, o OrderIntent, now time.Time) stockOrderRequest {
	order := stockOrderRequest{
		AcctNo:      accountID,
		Operation:   string(o.Side),
		OrdQty:      strconv.FormatInt(o.Quantity, 10),
		Expiry:      o.ExpiryMode(),
		Restriction: restrictionNone,
		Phone:       placeholderPhone,
		PriceType:   o.PriceType(),
	}

	if expiry := o.ExpiryDate(now); expiry.IsSome() {
		date := expiry.Unwrap().Format(expiryLayout)
		order.ExpiryDt = &date
	}
	if o.LimitPrice.IsSome() {
		price := json.Number(o.LimitPrice.Unwrap().String())
		order.LimitPrice = &price
	}

	order.FinInstrument.MarketSymbol.SymbolCd = o.Symbol
	order.FinInstrument.MarketSymbol.SymbolCurrCd = o.Currency
	order.FinInstrument.MarketSymbol.SymbolCntryCd = currencyCountries[o.Currency]
	order.FinInstrument.FinInstrumentTypeCd = instrumentTypeStock

	return order
}

// Validate submits the intent to the broker's validation step. The broker
// receives a placeholder phone number; the caller's phone is written into the
// echoed order afterwards so that submission carries it. A message saying a
// representative will process the order is treated as a hard rejection.
func (c *Client) Validate(ctx context.Context, s *Session, accountID string, intent OrderIntent, phone string) (*ValidatedOrder, error) {
	if accountID == "" {
		return nil, apperrors.ValidationField("account_id", "account id is required")
	}
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	intent = intent.normalized()

	req := validationRequest{
		StockOrder: buildStockOrder(accountID, intent, c.now()),
		Mode:       modeInsert,
	}

	var resp validationResponse
	if err := c.do(ctx, s, "validate order", http.MethodPost, c.api(EndpointOrderValidation), req, &resp); err != nil {
		return nil, err
	}
	if resp.Data.StockOrder == nil {
		return nil, apperrors.New(apperrors.ErrBrokerRequest, "validation response carried no stockOrder")
	}

	validated := &ValidatedOrder{StockOrder: resp.Data.StockOrder}

	if resp.MessageList != nil {
		validated.Warnings = make([]string, 0, len(resp.MessageList))
		for _, msg := range resp.MessageList {
			if strings.Contains(strings.ToLower(msg.Message), representativeReview) {
				return nil, apperrors.New(apperrors.ErrOrderRejected, "broker refused the order: "+msg.Message).
					WithDetails(map[string]any{"msg_id": string(msg.MsgID)})
			}
			validated.Warnings = append(validated.Warnings, string(msg.MsgID))
		}
	}

	rawPhone, err := json.Marshal(phone)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrTransport, "encoding phone", err)
	}
	validated.StockOrder["phone"] = rawPhone

	c.log.WithFields(logrus.Fields{
		"symbol":     intent.Symbol,
		"side":       intent.Side,
		"price_type": intent.PriceType(),
		"expiry":     intent.ExpiryMode(),
		"warnings":   validated.Warnings,
	}).Debug("order validated")

	return validated, nil
}
