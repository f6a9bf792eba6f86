package nbdb

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"nbapi/internal/broker"
	apperrors "nbapi/internal/errors"
)

// instrumentKey builds the composite key NBDB uses for quotes and positions.
func instrumentKey(ticker string, market broker.Market) string {
	return fmt.Sprintf("AC;%s;%s;", ticker, market)
}

// GetQuote fetches the real-time bid and ask for ticker on market (USA or CAN).
// Nothing is cached.
func (c *Client) GetQuote(ctx context.Context, s *Session, ticker string, market broker.Market) (*broker.Quote, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	market = broker.Market(strings.ToUpper(string(market)))
	if ticker == "" {
		return nil, apperrors.ValidationField("ticker", "ticker is required")
	}
	if market != broker.MarketUSA && market != broker.MarketCAN {
		return nil, apperrors.ValidationField("market", fmt.Sprintf("market must be %s or %s, got %q", broker.MarketUSA, broker.MarketCAN, market))
	}

	key := instrumentKey(ticker, market)

	// The key goes into the query verbatim; NBDB expects unescaped semicolons.
	url := c.api(EndpointRealtimeQuotes) + "?ids=" + key

	var resp quoteResponse
	if err := c.do(ctx, s, "get quote", http.MethodGet, url, nil, &resp); err != nil {
		return nil, err
	}

	entry, ok := resp.Data[key]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrNotFound, "no quote returned for %s", key)
	}

	return &broker.Quote{
		Symbol: ticker,
		Market: market,
		Bid:    entry.FinInstrumentPrice.BidPrice,
		Ask:    entry.FinInstrumentPrice.AskPrice,
	}, nil
}
