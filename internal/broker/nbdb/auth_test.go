package nbdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nbapi/internal/broker"
	apperrors "nbapi/internal/errors"
	"nbapi/internal/logger"
)

func TestNewClient_MissingCredentials_ReturnsValidationError(t *testing.T) {
	_, err := NewClient(Options{Username: "jdoe"}, logger.Discard())
	assert.True(t, apperrors.IsValidation(err))
}

func TestNewClient_DefaultsToProductionURLs(t *testing.T) {
	c, err := NewClient(Options{Username: "jdoe", Password: "pw"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultSSOURL, c.ssoURL)
	assert.Equal(t, DefaultAPIURL, c.apiURL)
	assert.Equal(t, defaultTimeout, c.timeout)
}

func TestLogin_ValidCredentials_AttachesBearerToken(t *testing.T) {
	fake := newFakeNBDB()
	fake.quotes["AC;AAPL;USA;"] = map[string]any{"finInstrumentPrice": map[string]any{"bidPrice": 1, "askPrice": 2}}
	c, s := newTestSession(t, fake)

	assert.Equal(t, "token-1", s.Token())
	assert.Equal(t, fridayMorning, s.CreatedAt)

	_, err := c.GetQuote(t.Context(), s, "AAPL", broker.MarketUSA)
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-1", fake.lastAuth)
}

func TestLogin_WrongPassword_ReturnsAuthenticationError(t *testing.T) {
	fake := newFakeNBDB()
	c := newTestClient(t, fake)
	c.password = "wrong"

	s, err := c.Login(t.Context())
	assert.Nil(t, s)
	assert.True(t, apperrors.IsAuthentication(err))
	assert.Equal(t, 0, fake.logins)
}

func TestLogin_TokenEndpointFails_ReturnsAuthenticationError(t *testing.T) {
	fake := newFakeNBDB()
	fake.tokenErr = true
	c := newTestClient(t, fake)

	_, err := c.Login(t.Context())
	assert.True(t, apperrors.IsAuthentication(err))
}

func TestConnect_LogsIn(t *testing.T) {
	fake := newFakeNBDB()
	srvClient := newTestClient(t, fake)

	opts := Options{
		Username: testUser,
		Password: testPassword,
		SSOURL:   srvClient.ssoURL,
		APIURL:   srvClient.apiURL,
	}
	c, s, err := Connect(t.Context(), opts, logger.Discard())
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Equal(t, "token-1", s.Token())
}

func TestRefresh_ReturnsNewSessionAndLeavesOldUntouched(t *testing.T) {
	fake := newFakeNBDB()
	c, first := newTestSession(t, fake)

	second, err := c.Refresh(t.Context())
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, "token-1", first.Token())
	assert.Equal(t, "token-2", second.Token())
	assert.Equal(t, 2, fake.logins)
}

func TestRequest_RevokedToken_ReturnsSessionExpired(t *testing.T) {
	fake := newFakeNBDB()
	fake.portfolios = []any{}
	c, s := newTestSession(t, fake)

	fake.revoke()

	_, err := c.ListAccounts(t.Context(), s)
	assert.True(t, apperrors.IsSessionExpired(err))

	fresh, err := c.Refresh(t.Context())
	require.NoError(t, err)
	_, err = c.ListAccounts(t.Context(), fresh)
	assert.NoError(t, err)
}

func TestRequest_NilSession_ReturnsSessionExpired(t *testing.T) {
	c := newTestClient(t, newFakeNBDB())

	_, err := c.ListAccounts(t.Context(), nil)
	assert.True(t, apperrors.IsSessionExpired(err))
}
