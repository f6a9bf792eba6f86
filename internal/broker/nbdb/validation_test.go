package nbdb

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nbapi/internal/broker"
	apperrors "nbapi/internal/errors"
)

func marketBuy(qty int64, symbol, currency string) OrderIntent {
	return OrderIntent{Side: "buy", Quantity: qty, Symbol: symbol, Currency: currency}
}

func TestValidate_MarketDayOrder_BuildsExpectedPayload(t *testing.T) {
	fake := newFakeNBDB()
	c, s := newTestSession(t, fake)

	validated, err := c.Validate(t.Context(), s, "2A2222", marketBuy(10, "aapl", "usd"), testPhone)
	require.NoError(t, err)

	require.Len(t, fake.validations, 1)
	body := fake.validations[0]
	assert.Equal(t, "INSERT", body["mode"])

	order := body["stockOrder"].(map[string]any)
	assert.Equal(t, "2A2222", order["acctNo"])
	assert.Equal(t, "BUY", order["operation"])
	assert.Equal(t, "10", order["ordQty"])
	assert.Equal(t, "DAY", order["expiry"])
	assert.Nil(t, order["expiryDt"])
	assert.Equal(t, "NONE", order["restriction"])
	assert.Equal(t, placeholderPhone, order["phone"])
	assert.Equal(t, "MARKET", order["priceType"])
	assert.Nil(t, order["limitPrice"])
	assert.Nil(t, order["stopLimitPrice"])
	assert.Contains(t, order, "ordId")
	assert.Nil(t, order["ordId"])

	instrument := order["finInstrument"].(map[string]any)
	assert.Equal(t, "STOCK", instrument["finInstrumentTypeCd"])
	symbol := instrument["marketSymbol"].(map[string]any)
	assert.Equal(t, "AAPL", symbol["symbolCd"])
	assert.Equal(t, "USD", symbol["symbolCurrCd"])
	assert.Equal(t, "USA", symbol["symbolCntryCd"])

	phone, err := validated.Phone()
	require.NoError(t, err)
	assert.Equal(t, testPhone, phone)
	assert.Nil(t, validated.Warnings)

	var commission float64
	require.NoError(t, validated.Field("commission", &commission))
	assert.Equal(t, 9.95, commission)
}

func TestValidate_LimitOrderWithExpiry(t *testing.T) {
	fake := newFakeNBDB()
	c, s := newTestSession(t, fake)

	intent := OrderIntent{
		Side:               broker.SideSell,
		Quantity:           3,
		Symbol:             "RY",
		Currency:           "CAD",
		LimitPrice:         optional.Some(decimal.RequireFromString("187.5")),
		DaysTillExpiration: 5,
	}
	_, err := c.Validate(t.Context(), s, "2A1111", intent, testPhone)
	require.NoError(t, err)

	order := fake.validations[0]["stockOrder"].(map[string]any)
	assert.Equal(t, "SELL", order["operation"])
	assert.Equal(t, "SPECIFIC", order["priceType"])
	assert.Equal(t, 187.5, order["limitPrice"])
	assert.Equal(t, "DATE", order["expiry"])
	assert.Equal(t, "2026-10-21", order["expiryDt"])

	symbol := order["finInstrument"].(map[string]any)["marketSymbol"].(map[string]any)
	assert.Equal(t, "CAN", symbol["symbolCntryCd"])
}

func TestValidate_CollectsWarnings(t *testing.T) {
	fake := newFakeNBDB()
	fake.messages = []map[string]any{
		{"msgId": "W100", "message": "Market is closed"},
		{"msgId": 42, "message": "Price differs from last trade"},
	}
	c, s := newTestSession(t, fake)

	validated, err := c.Validate(t.Context(), s, "2A2222", marketBuy(1, "MSFT", "USD"), testPhone)
	require.NoError(t, err)
	assert.Equal(t, []string{"W100", "42"}, validated.Warnings)
}

func TestValidate_EmptyMessageList_YieldsEmptyWarnings(t *testing.T) {
	fake := newFakeNBDB()
	fake.messages = []map[string]any{}
	c, s := newTestSession(t, fake)

	validated, err := c.Validate(t.Context(), s, "2A2222", marketBuy(1, "MSFT", "USD"), testPhone)
	require.NoError(t, err)
	assert.NotNil(t, validated.Warnings)
	assert.Empty(t, validated.Warnings)
}

func TestValidate_RepresentativeMessage_RejectsOrder(t *testing.T) {
	fake := newFakeNBDB()
	fake.messages = []map[string]any{
		{"msgId": "W100", "message": "Market is closed"},
		{"msgId": "R7", "message": "Your order will be processed by one of our representatives."},
	}
	c, s := newTestSession(t, fake)

	validated, err := c.Validate(t.Context(), s, "2A2222", marketBuy(1, "MSFT", "USD"), testPhone)
	assert.Nil(t, validated)
	require.ErrorIs(t, err, apperrors.ErrOrderRejected)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "R7", appErr.Details["msg_id"])
}

func TestValidate_UnsupportedCurrency_FailsBeforeRequest(t *testing.T) {
	fake := newFakeNBDB()
	c, s := newTestSession(t, fake)

	_, err := c.Validate(t.Context(), s, "2A2222", marketBuy(1, "SAP", "EUR"), testPhone)
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedCurrency)
	assert.Empty(t, fake.validations)
}

func TestOrderIntent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		intent  OrderIntent
		wantErr error
	}{
		{"valid market buy", marketBuy(1, "AAPL", "USD"), nil},
		{"zero quantity", marketBuy(0, "AAPL", "USD"), apperrors.ErrValidation},
		{"missing symbol", marketBuy(1, " ", "USD"), apperrors.ErrValidation},
		{"bad side", OrderIntent{Side: "hold", Quantity: 1, Symbol: "AAPL", Currency: "USD"}, apperrors.ErrValidation},
		{"negative expiry", OrderIntent{Side: "BUY", Quantity: 1, Symbol: "AAPL", Currency: "USD", DaysTillExpiration: -1}, apperrors.ErrValidation},
		{
			"non-positive limit",
			OrderIntent{Side: "BUY", Quantity: 1, Symbol: "AAPL", Currency: "USD", LimitPrice: optional.Some(decimal.Zero)},
			apperrors.ErrValidation,
		},
		{"unmapped currency", marketBuy(1, "AAPL", "GBP"), apperrors.ErrUnsupportedCurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.intent.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOrderIntent_PriceAndExpiryModes(t *testing.T) {
	day := marketBuy(1, "AAPL", "USD")
	assert.Equal(t, PriceTypeMarket, day.PriceType())
	assert.Equal(t, ExpiryDay, day.ExpiryMode())
	assert.True(t, day.ExpiryDate(fridayMorning).IsNone())

	limit := day
	limit.LimitPrice = optional.Some(decimal.NewFromInt(10))
	limit.DaysTillExpiration = 2
	assert.Equal(t, PriceTypeSpecific, limit.PriceType())
	assert.Equal(t, ExpiryDate, limit.ExpiryMode())
	assert.Equal(t, time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC), limit.ExpiryDate(fridayMorning).Unwrap())
}

func TestExpiryAfter_FromFriday(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{1, "2026-10-19"},
		{2, "2026-10-19"},
		{3, "2026-10-19"},
		{4, "2026-10-20"},
		{5, "2026-10-21"},
		{8, "2026-10-26"},
	}

	for _, tt := range tests {
		got := ExpiryAfter(fridayMorning, tt.days).Format(expiryLayout)
		assert.Equal(t, tt.want, got, "days=%d", tt.days)
	}
}

func TestExpiryAfter_NeverOnWeekend(t *testing.T) {
	start := time.Date(2026, time.January, 1, 9, 30, 0, 0, time.UTC)
	for offset := 0; offset < 7; offset++ {
		now := start.AddDate(0, 0, offset)
		for days := 1; days <= 30; days++ {
			expiry := ExpiryAfter(now, days)
			assert.NotEqual(t, time.Saturday, expiry.Weekday())
			assert.NotEqual(t, time.Sunday, expiry.Weekday())
			assert.False(t, expiry.Before(now.AddDate(0, 0, days)))
		}
	}
}
