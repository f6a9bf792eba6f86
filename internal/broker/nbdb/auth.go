package nbdb

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	apperrors "nbapi/internal/errors"
)

// Session is an authenticated NBDB login: a cookie jar, default headers and
// the bearer token, bundled in a dedicated transport. A Session is never
// modified after Login returns it; Refresh produces a new one.
type Session struct {
	http      *resty.Client
	token     string
	CreatedAt time.Time
}

// Token returns the bearer token attached to every request of this session.
func (s *Session) Token() string {
	return s.token
}

func (s *Session) check() error {
	if s == nil || s.http == nil || s.token == "" {
		return apperrors.New(apperrors.ErrSessionExpired, "no active session")
	}
	return nil
}

// Login performs the two-step handshake:
// 1. POST credentials to the SSO session endpoint (sets session cookies)
// 2. GET a bearer token from the access-token endpoint
func (c *Client) Login(ctx context.Context) (*Session, error) {
	rc, err := c.newTransport()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrTransport, "preparing login", err)
	}

	creds := loginRequest{
		UserID:   c.username,
		Password: c.password,
		SiteCode: siteCode,
	}
	resp, err := c.execute(ctx, rc, http.MethodPost, c.ssoURL+EndpointSession, creds)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		c.log.WithField("status", resp.StatusCode()).Warn("nbdb login refused")
		return nil, apperrors.Newf(apperrors.ErrAuthentication, "unable to log into National Bank Direct Brokerage: status %d", resp.StatusCode())
	}

	resp, err = c.execute(ctx, rc, http.MethodGet, c.ssoURL+EndpointAccessToken, nil)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, apperrors.Newf(apperrors.ErrAuthentication, "access token request refused: status %d", resp.StatusCode())
	}

	var tokenResp accessTokenResponse
	if err := decodeResponse("access token", resp, &tokenResp); err != nil {
		return nil, err
	}
	if tokenResp.Data.AccessToken == "" {
		return nil, apperrors.New(apperrors.ErrAuthentication, "access token missing from response")
	}

	rc.SetAuthToken(tokenResp.Data.AccessToken)

	c.log.Info("nbdb session established")

	return &Session{
		http:      rc,
		token:     tokenResp.Data.AccessToken,
		CreatedAt: c.now(),
	}, nil
}

// Refresh logs in again and returns a new session. Call it after an operation
// fails with ErrSessionExpired; expiry is never detected proactively.
func (c *Client) Refresh(ctx context.Context) (*Session, error) {
	c.log.Info("refreshing nbdb session")
	return c.Login(ctx)
}
