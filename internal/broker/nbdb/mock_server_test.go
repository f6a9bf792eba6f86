package nbdb

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"nbapi/internal/logger"
)

const (
	testUser     = "jdoe"
	testPassword = "s3cret"
	testPhone    = "514-555-0100"
)

// fakeNBDB simulates the NBDB SSO and trading endpoints.
type fakeNBDB struct {
	mu sync.Mutex

	logins   int
	token    string
	revoked  bool
	tokenErr bool

	quotes     map[string]any
	portfolios any
	assets     map[string]any
	orders     map[string][]map[string]any

	// messages, when non-nil, is returned as messageList by the validation endpoint.
	messages []map[string]any

	lastQuoteQuery string
	lastAuth       string
	validations    []map[string]any
	submissions    []map[string]any
	cancelled      []string
	nextOrderID    int
}

func newFakeNBDB() *fakeNBDB {
	return &fakeNBDB{
		quotes:      map[string]any{},
		assets:      map[string]any{},
		orders:      map[string][]map[string]any{},
		nextOrderID: 9001,
	}
}

func (f *fakeNBDB) router() http.Handler {
	r := chi.NewRouter()

	r.Route("/sso-api/api", func(r chi.Router) {
		r.Post("/session", func(w http.ResponseWriter, req *http.Request) {
			var body map[string]string
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if body["userid"] != testUser || body["password"] != testPassword || body["siteCode"] != "CEBN" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			f.mu.Lock()
			f.logins++
			n := f.logins
			f.mu.Unlock()

			http.SetCookie(w, &http.Cookie{Name: "SSO", Value: fmt.Sprintf("cookie-%d", n), Path: "/"})
			w.WriteHeader(http.StatusOK)
		})

		r.Get("/access-token", func(w http.ResponseWriter, req *http.Request) {
			cookie, err := req.Cookie("SSO")
			if err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			f.mu.Lock()
			defer f.mu.Unlock()
			if f.tokenErr {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			f.token = "token-" + strings.TrimPrefix(cookie.Value, "cookie-")
			f.revoked = false
			writeJSON(w, map[string]any{"data": map[string]any{"accessToken": f.token}})
		})
	})

	r.Route("/orion-api/v1/1", func(r chi.Router) {
		r.Use(f.requireBearer)

		r.Get("/quotes/realtime/", func(w http.ResponseWriter, req *http.Request) {
			ids := strings.TrimPrefix(req.URL.RawQuery, "ids=")

			f.mu.Lock()
			f.lastQuoteQuery = req.URL.RawQuery
			data := map[string]any{}
			if q, ok := f.quotes[ids]; ok {
				data[ids] = q
			}
			f.mu.Unlock()

			writeJSON(w, map[string]any{"data": data})
		})

		r.Get("/portfolios", func(w http.ResponseWriter, req *http.Request) {
			f.mu.Lock()
			defer f.mu.Unlock()
			writeJSON(w, map[string]any{"data": f.portfolios})
		})

		r.Get("/accounts/assetsDetail", func(w http.ResponseWriter, req *http.Request) {
			f.mu.Lock()
			defer f.mu.Unlock()
			list := []any{}
			if detail, ok := f.assets[req.URL.Query().Get("acctNo")]; ok {
				list = append(list, detail)
			}
			writeJSON(w, map[string]any{"data": map[string]any{"accountAssetDetailList": list}})
		})

		r.Post("/stock-orders/validation", func(w http.ResponseWriter, req *http.Request) {
			var body map[string]any
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}

			f.mu.Lock()
			defer f.mu.Unlock()
			f.validations = append(f.validations, body)

			echo := map[string]any{}
			for k, v := range body["stockOrder"].(map[string]any) {
				echo[k] = v
			}
			echo["commission"] = 9.95

			resp := map[string]any{"data": map[string]any{"stockOrder": echo}}
			if f.messages != nil {
				resp["messageList"] = f.messages
			}
			writeJSON(w, resp)
		})

		r.Post("/stock-orders", func(w http.ResponseWriter, req *http.Request) {
			var body map[string]any
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}

			f.mu.Lock()
			defer f.mu.Unlock()
			f.submissions = append(f.submissions, body)
			id := f.nextOrderID
			f.nextOrderID++

			writeJSON(w, map[string]any{"data": map[string]any{"stockOrder": map[string]any{"ordId": id}}})
		})

		r.Delete("/stock-orders/{id}", func(w http.ResponseWriter, req *http.Request) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.cancelled = append(f.cancelled, chi.URLParam(req, "id"))
			w.WriteHeader(http.StatusNoContent)
		})

		r.Get("/orders", func(w http.ResponseWriter, req *http.Request) {
			f.mu.Lock()
			defer f.mu.Unlock()
			list := f.orders[req.URL.Query().Get("acctNo")]
			if list == nil {
				list = []map[string]any{}
			}
			writeJSON(w, map[string]any{"data": map[string]any{"orderList": list}})
		})
	})

	return r
}

func (f *fakeNBDB) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		f.lastAuth = req.Header.Get("Authorization")
		ok := !f.revoked && f.token != "" && f.lastAuth == "Bearer "+f.token
		f.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// revoke simulates the broker force-expiring the current token.
func (f *fakeNBDB) revoke() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// fridayMorning is the fixed clock used by tests: Friday 2026-10-16 10:00 UTC.
var fridayMorning = time.Date(2026, time.October, 16, 10, 0, 0, 0, time.UTC)

// newTestClient starts a fake server and returns a client pointed at it.
func newTestClient(t *testing.T, fake *fakeNBDB) *Client {
	t.Helper()

	srv := httptest.NewServer(fake.router())
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{
		Username: testUser,
		Password: testPassword,
		SSOURL:   srv.URL + "/sso-api/api",
		APIURL:   srv.URL + "/orion-api/v1/1",
		Timeout:  5 * time.Second,
		Now:      func() time.Time { return fridayMorning },
	}, logger.Discard())
	require.NoError(t, err)
	return c
}

// newTestSession returns a client and a logged-in session.
func newTestSession(t *testing.T, fake *fakeNBDB) (*Client, *Session) {
	t.Helper()
	c := newTestClient(t, fake)
	s, err := c.Login(t.Context())
	require.NoError(t, err)
	return c, s
}
