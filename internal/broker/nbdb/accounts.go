package nbdb

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"nbapi/internal/broker"
	apperrors "nbapi/internal/errors"
)

// ListAccounts returns the accounts of the first portfolio in server order.
func (c *Client) ListAccounts(ctx context.Context, s *Session) ([]broker.Account, error) {
	var resp portfoliosResponse
	if err := c.do(ctx, s, "get portfolios", http.MethodGet, c.api(EndpointPortfolios), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}

	accounts := make([]broker.Account, 0, len(resp.Data[0].AccountList))
	for _, a := range resp.Data[0].AccountList {
		accounts = append(accounts, broker.Account{
			Number:      string(a.AcctNo),
			Description: a.AcctTypeDesc,
		})
	}
	return accounts, nil
}

// GetAccountID returns the number of the first account whose description
// contains both the upper-cased currency and the title-cased account type
// (e.g. "usd", "tfsa" matches "Tfsa USD"). The result is not cached.
func (c *Client) GetAccountID(ctx context.Context, s *Session, currency, accountType string) (string, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	accountType = cases.Title(language.Und).String(strings.TrimSpace(accountType))

	accounts, err := c.ListAccounts(ctx, s)
	if err != nil {
		return "", err
	}

	for _, a := range accounts {
		if strings.Contains(a.Description, currency) && strings.Contains(a.Description, accountType) {
			return a.Number, nil
		}
	}

	return "", apperrors.Newf(apperrors.ErrAccountNotFound, "no %s %s account found", accountType, currency)
}

// GetAccountBalance returns the cash amount held in the account's native currency.
func (c *Client) GetAccountBalance(ctx context.Context, s *Session, accountID string) (decimal.Decimal, error) {
	detail, err := c.assetsDetail(ctx, s, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	currency := detail.Account.AcctCurrCd
	assets, ok := detail.AssetsDetailByCurrencyList[currency]
	if !ok {
		return decimal.Zero, apperrors.Newf(apperrors.ErrNotFound, "no %s assets for account %s", currency, accountID)
	}
	return assets.CashAmt, nil
}

// assetsDetail fetches the first asset-detail entry for the account.
func (c *Client) assetsDetail(ctx context.Context, s *Session, accountID string) (*accountAssetDetail, error) {
	if accountID == "" {
		return nil, apperrors.ValidationField("account_id", "account id is required")
	}

	q := url.Values{"acctNo": {accountID}}
	var resp assetsDetailResponse
	if err := c.do(ctx, s, "get assets detail", http.MethodGet, c.api(EndpointAssetsDetail)+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data.AccountAssetDetailList) == 0 {
		return nil, apperrors.Newf(apperrors.ErrAccountNotFound, "no asset detail for account %s", accountID)
	}
	return &resp.Data.AccountAssetDetailList[0], nil
}
