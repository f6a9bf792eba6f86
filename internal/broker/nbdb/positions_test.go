package nbdb

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "nbapi/internal/errors"
)

func TestGetPositions_FlattensNativeCurrencyBucket(t *testing.T) {
	fake := newFakeNBDB()
	fake.assets["2A1111"] = map[string]any{
		"account": map[string]any{"acctCurrCd": "CAD"},
		"assetsDetailByCurrencyList": map[string]any{
			"CAD": map[string]any{
				"cashAmt": 100,
				"positionList": []any{
					map[string]any{
						"quantity":      20,
						"finInstrument": map[string]any{"quoteIdKey": "AC;RY;CAN;"},
						"positionEval": map[string]any{
							"avgCostPrice":   150.1,
							"pnlAmt":         -12.5,
							"pnlPerc":        -0.42,
							"marketValueAmt": 2989.5,
						},
					},
					map[string]any{
						"quantity":      5,
						"finInstrument": map[string]any{"quoteIdKey": "AC;TD;CAN;"},
						"positionEval":  map[string]any{"avgCostPrice": 80, "pnlAmt": 3, "pnlPerc": 0.75, "marketValueAmt": 403},
					},
				},
			},
			"USD": map[string]any{
				"positionList": []any{
					map[string]any{"quantity": 1, "finInstrument": map[string]any{"quoteIdKey": "AC;AAPL;USA;"}},
				},
			},
		},
	}
	c, s := newTestSession(t, fake)

	positions, err := c.GetPositions(t.Context(), s, "2A1111")
	require.NoError(t, err)
	require.Len(t, positions, 2)

	assert.Equal(t, "RY", positions[0].Symbol)
	assert.True(t, decimal.NewFromInt(20).Equal(positions[0].Quantity))
	assert.True(t, decimal.RequireFromString("150.1").Equal(positions[0].Cost))
	assert.True(t, decimal.RequireFromString("-12.5").Equal(positions[0].Change))
	assert.True(t, decimal.RequireFromString("-0.42").Equal(positions[0].ChangePercent))
	assert.True(t, decimal.RequireFromString("2989.5").Equal(positions[0].MarketValue))
	assert.Equal(t, "TD", positions[1].Symbol)
}

func TestGetPositions_Empty_ReturnsNoPositions(t *testing.T) {
	fake := newFakeNBDB()
	fake.assets["2A1111"] = map[string]any{
		"account": map[string]any{"acctCurrCd": "CAD"},
		"assetsDetailByCurrencyList": map[string]any{
			"CAD": map[string]any{"cashAmt": 100, "positionList": []any{}},
		},
	}
	c, s := newTestSession(t, fake)

	_, err := c.GetPositions(t.Context(), s, "2A1111")
	assert.ErrorIs(t, err, apperrors.ErrNoPositions)
}

func TestSymbolFromKey(t *testing.T) {
	tests := map[string]string{
		"AC;AAPL;USA;": "AAPL",
		"AC;BRK.B;USA": "BRK.B",
		"AAPL":         "AAPL",
		"AC;;USA;":     "AC;;USA;",
		"":             "",
	}
	for key, want := range tests {
		assert.Equal(t, want, symbolFromKey(key), "key=%q", key)
	}
}

func TestGetPositions_RepeatedSymbolKeepsEachEntry(t *testing.T) {
	fake := newFakeNBDB()
	fake.assets["2A2222"] = map[string]any{
		"account": map[string]any{"acctCurrCd": "USD"},
		"assetsDetailByCurrencyList": map[string]any{
			"USD": map[string]any{
				"positionList": []any{
					map[string]any{"quantity": 3, "finInstrument": map[string]any{"quoteIdKey": "AC;AAPL;USA;"}},
					map[string]any{"quantity": 7, "finInstrument": map[string]any{"quoteIdKey": "AC;AAPL;USA;"}},
				},
			},
		},
	}
	c, s := newTestSession(t, fake)

	positions, err := c.GetPositions(t.Context(), s, "2A2222")
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, "AAPL", positions[0].Symbol)
	assert.Equal(t, "AAPL", positions[1].Symbol)
	assert.True(t, decimal.NewFromInt(3).Equal(positions[0].Quantity))
	assert.True(t, decimal.NewFromInt(7).Equal(positions[1].Quantity))
}
