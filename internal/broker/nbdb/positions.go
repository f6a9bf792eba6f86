package nbdb

import (
	"context"
	"strings"

	"nbapi/internal/broker"
	apperrors "nbapi/internal/errors"
)

// GetPositions fetches the account's positions in its native currency,
// flattened to one row per broker entry in server order. A symbol the broker
// lists twice appears twice; rows are not merged.
func (c *Client) GetPositions(ctx context.Context, s *Session, accountID string) ([]broker.Position, error) {
	detail, err := c.assetsDetail(ctx, s, accountID)
	if err != nil {
		return nil, err
	}

	currency := detail.Account.AcctCurrCd
	assets := detail.AssetsDetailByCurrencyList[currency]
	if len(assets.PositionList) == 0 {
		return nil, apperrors.Newf(apperrors.ErrNoPositions, "account %s holds no %s positions", accountID, currency)
	}

	positions := make([]broker.Position, 0, len(assets.PositionList))
	for _, p := range assets.PositionList {
		positions = append(positions, broker.Position{
			Symbol:        symbolFromKey(p.FinInstrument.QuoteIDKey),
			Quantity:      p.Quantity,
			Cost:          p.PositionEval.AvgCostPrice,
			Change:        p.PositionEval.PnlAmt,
			ChangePercent: p.PositionEval.PnlPerc,
			MarketValue:   p.PositionEval.MarketValueAmt,
		})
	}

	c.log.WithField("account", accountID).WithField("count", len(positions)).Debug("positions fetched")

	return positions, nil
}

// symbolFromKey extracts SYMBOL from an "AC;SYMBOL;MARKET;" instrument key.
// Keys without a second field are returned whole.
func symbolFromKey(key string) string {
	parts := strings.Split(key, ";")
	if len(parts) < 2 || parts[1] == "" {
		return key
	}
	return parts[1]
}
