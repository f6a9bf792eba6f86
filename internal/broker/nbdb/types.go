// Package nbdb provides a client for the National Bank Direct Brokerage web API.
package nbdb

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// FlexibleString handles identifier fields that NBDB sends either as a JSON
// string or as a bare number.
type FlexibleString string

// UnmarshalJSON implements custom unmarshaling for FlexibleString.
func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleString(n.String())
		return nil
	}

	*f = ""
	return nil
}

// loginRequest is the body of POST /session.
type loginRequest struct {
	UserID   string `json:"userid"`
	Password string `json:"password"`
	SiteCode string `json:"siteCode"`
}

// accessTokenResponse represents GET /access-token.
type accessTokenResponse struct {
	Data struct {
		AccessToken string `json:"accessToken"`
	} `json:"data"`
}

// quoteResponse represents GET /quotes/realtime, keyed by instrument key.
type quoteResponse struct {
	Data map[string]quoteEntry `json:"data"`
}

type quoteEntry struct {
	FinInstrumentPrice struct {
		BidPrice decimal.Decimal `json:"bidPrice"`
		AskPrice decimal.Decimal `json:"askPrice"`
	} `json:"finInstrumentPrice"`
}

// portfoliosResponse represents GET /portfolios.
type portfoliosResponse struct {
	Data []struct {
		AccountList []portfolioAccount `json:"accountList"`
	} `json:"data"`
}

type portfolioAccount struct {
	AcctNo       FlexibleString `json:"acctNo"`
	AcctTypeDesc string         `json:"acctTypeDesc"`
}

// assetsDetailResponse represents GET /accounts/assetsDetail.
type assetsDetailResponse struct {
	Data struct {
		AccountAssetDetailList []accountAssetDetail `json:"accountAssetDetailList"`
	} `json:"data"`
}

type accountAssetDetail struct {
	Account struct {
		AcctCurrCd string `json:"acctCurrCd"`
	} `json:"account"`
	AssetsDetailByCurrencyList map[string]currencyAssets `json:"assetsDetailByCurrencyList"`
}

type currencyAssets struct {
	CashAmt      decimal.Decimal `json:"cashAmt"`
	PositionList []positionEntry `json:"positionList"`
}

type positionEntry struct {
	Quantity      decimal.Decimal `json:"quantity"`
	FinInstrument struct {
		QuoteIDKey string `json:"quoteIdKey"`
	} `json:"finInstrument"`
	PositionEval struct {
		AvgCostPrice   decimal.Decimal `json:"avgCostPrice"`
		PnlAmt         decimal.Decimal `json:"pnlAmt"`
		PnlPerc        decimal.Decimal `json:"pnlPerc"`
		MarketValueAmt decimal.Decimal `json:"marketValueAmt"`
	} `json:"positionEval"`
}

// ordersResponse represents GET /orders.
type ordersResponse struct {
	Data struct {
		OrderList []orderEntry `json:"orderList"`
	} `json:"data"`
}

type orderEntry struct {
	OrdID        FlexibleString  `json:"ordId"`
	Operation    string          `json:"operation"`
	OrdQty       decimal.Decimal `json:"ordQty"`
	ExecQty      decimal.Decimal `json:"execQty"`
	AvgExecPrice decimal.Decimal `json:"avgExecPrice"`
	OrderOpen    bool            `json:"orderOpen"`
}

// validationRequest is the body of POST /stock-orders/validation.
type validationRequest struct {
	StockOrder stockOrderRequest `json:"stockOrder"`
	Mode       string            `json:"mode"`
}

type stockOrderRequest struct {
	OrdID          *string       `json:"ordId"`
	AcctNo         string        `json:"acctNo"`
	Operation      string        `json:"operation"`
	OrdQty         string        `json:"ordQty"`
	Expiry         string        `json:"expiry"`
	ExpiryDt       *string       `json:"expiryDt"`
	Restriction    string        `json:"restriction"`
	Phone          string        `json:"phone"`
	FinInstrument  finInstrument `json:"finInstrument"`
	LimitPrice     *json.Number  `json:"limitPrice"`
	PriceType      string        `json:"priceType"`
	StopLimitPrice *json.Number  `json:"stopLimitPrice"`
}

type finInstrument struct {
	MarketSymbol struct {
		SymbolCd      string `json:"symbolCd"`
		SymbolCurrCd  string `json:"symbolCurrCd"`
		SymbolCntryCd string `json:"symbolCntryCd"`
	} `json:"marketSymbol"`
	FinInstrumentTypeCd string `json:"finInstrumentTypeCd"`
}

// validationResponse represents the validation reply. MessageList is nil when
// the broker sent no messageList key.
type validationResponse struct {
	Data struct {
		StockOrder map[string]json.RawMessage `json:"stockOrder"`
	} `json:"data"`
	MessageList []brokerMessage `json:"messageList"`
}

type brokerMessage struct {
	MsgID   FlexibleString `json:"msgId"`
	Message string         `json:"message"`
}

// submitResponse represents POST /stock-orders.
type submitResponse struct {
	Data struct {
		StockOrder struct {
			OrdID FlexibleString `json:"ordId"`
		} `json:"stockOrder"`
	} `json:"data"`
}
