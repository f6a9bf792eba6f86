package nbdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	apperrors "nbapi/internal/errors"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultTimeout   = 30 * time.Second
)

// Options configures a Client.
type Options struct {
	Username  string
	Password  string
	SSOURL    string        // defaults to DefaultSSOURL
	APIURL    string        // defaults to DefaultAPIURL
	Timeout   time.Duration // per request, defaults to 30s
	UserAgent string

	// Now overrides the clock used for expiry dates.
	Now func() time.Time
}

// Client talks to the NBDB web API. It holds credentials and transport
// settings only; all per-login state lives in Session.
type Client struct {
	username  string
	password  string
	ssoURL    string
	apiURL    string
	timeout   time.Duration
	userAgent string
	now       func() time.Time
	log       logrus.FieldLogger
}

// NewClient creates a new NBDB client. It does not log in.
func NewClient(opts Options, log logrus.FieldLogger) (*Client, error) {
	if opts.Username == "" || opts.Password == "" {
		return nil, apperrors.Validation("username and password are required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	c := &Client{
		username:  opts.Username,
		password:  opts.Password,
		ssoURL:    strings.TrimSuffix(firstNonEmpty(opts.SSOURL, DefaultSSOURL), "/"),
		apiURL:    strings.TrimSuffix(firstNonEmpty(opts.APIURL, DefaultAPIURL), "/"),
		timeout:   opts.Timeout,
		userAgent: firstNonEmpty(opts.UserAgent, defaultUserAgent),
		now:       opts.Now,
		log:       log.WithField("broker", "nbdb"),
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// Connect creates a client and performs the login handshake.
func Connect(ctx context.Context, opts Options, log logrus.FieldLogger) (*Client, *Session, error) {
	c, err := NewClient(opts, log)
	if err != nil {
		return nil, nil, err
	}
	session, err := c.Login(ctx)
	if err != nil {
		return nil, nil, err
	}
	return c, session, nil
}

// newTransport builds a fresh resty client with its own cookie jar.
func (c *Client) newTransport() (*resty.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating cookie jar")
	}

	return resty.New().
		SetTimeout(c.timeout).
		SetCookieJar(jar).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json, text/plain, */*").
		SetHeader("User-Agent", c.userAgent), nil
}

// execute sends one request and logs its outcome. Transport failures are
// returned as ErrTransport; HTTP status interpretation is left to the caller.
func (c *Client) execute(ctx context.Context, rc *resty.Client, method, url string, body any) (*resty.Response, error) {
	req := rc.R().SetContext(ctx)
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrTransport, "encoding request", errors.Wrapf(err, "%s %s", method, url))
		}
		req.SetBody(payload)
	}

	start := time.Now()
	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrTransport, "request failed", errors.Wrapf(err, "%s %s", method, url))
	}

	c.log.WithFields(logrus.Fields{
		"method":   method,
		"url":      url,
		"status":   resp.StatusCode(),
		"duration": time.Since(start),
	}).Debug("nbdb request")

	return resp, nil
}

// do performs an authenticated call through the session and decodes the JSON
// body into out (when non-nil).
func (c *Client) do(ctx context.Context, s *Session, op, method, url string, body, out any) error {
	if err := s.check(); err != nil {
		return err
	}

	resp, err := c.execute(ctx, s.http, method, url, body)
	if err != nil {
		return err
	}
	return decodeResponse(op, resp, out)
}

// decodeResponse maps the HTTP status onto the error taxonomy and decodes the body.
func decodeResponse(op string, resp *resty.Response, out any) error {
	if resp.StatusCode() == http.StatusUnauthorized {
		return apperrors.New(apperrors.ErrSessionExpired, op+": broker rejected the session")
	}
	if !resp.IsSuccess() {
		return apperrors.BrokerStatus(op, resp.StatusCode(), string(resp.Body()))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return apperrors.Wrap(apperrors.ErrTransport, "decoding "+op, err)
	}
	return nil
}

func (c *Client) api(path string) string {
	return c.apiURL + path
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
