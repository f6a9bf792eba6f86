package nbdb

// Default service roots for the production NBDB web API.
const (
	DefaultSSOURL = "https://orion-api.bnc.ca/sso-api/api"
	DefaultAPIURL = "https://orion-api.bnc.ca/orion-api/v1/1"
)

// SSO endpoints
const (
	EndpointSession     = "/session"
	EndpointAccessToken = "/access-token"
)

// Trading API endpoints
const (
	EndpointRealtimeQuotes  = "/quotes/realtime/"
	EndpointPortfolios      = "/portfolios"
	EndpointAssetsDetail    = "/accounts/assetsDetail"
	EndpointOrderValidation = "/stock-orders/validation"
	EndpointStockOrders     = "/stock-orders"
	EndpointOrders          = "/orders"
)

const (
	siteCode = "CEBN"

	// placeholderPhone is what the broker's own web client sends while validating.
	placeholderPhone = "000-000-0000"

	modeInsert          = "INSERT"
	restrictionNone     = "NONE"
	instrumentTypeStock = "STOCK"
)
