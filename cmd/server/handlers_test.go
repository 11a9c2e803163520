package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stockquote/internal/catalog"
	"stockquote/internal/quote"
)

const quotePage = `<html><body><main>
<div data-last-price="2530.5" data-currency-code="INR">
  <div class="YMlKec">₹2,530.50</div>
</div>
</main></body></html>`

const noPricePage = `<html><body><main><div>No match for your search.</div></main></body></html>`

// newTestServer wires a server against a stubbed upstream that knows
// RELIANCE and TCS and answers a price-less page for everything else.
func newTestServer(t *testing.T) *server {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/RELIANCE:NSE", "/TCS:NSE":
			_, _ = io.WriteString(w, quotePage)
		default:
			_, _ = io.WriteString(w, noPricePage)
		}
	}))
	t.Cleanup(upstream.Close)

	fetcher := quote.NewFetcher(quote.Config{BaseURL: upstream.URL}, upstream.Client(), nil)
	return &server{
		log:     zap.NewNop(),
		cat:     catalog.Fallback("NSE"),
		fetcher: fetcher,
		resolver: &quote.Resolver{
			Fetcher:         fetcher,
			DefaultExchange: "NSE",
		},
		defaultExchange: "NSE",
		requestTimeout:  5 * time.Second,
	}
}

func do(t *testing.T, s *server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	s.routes().ServeHTTP(rr, r)
	return rr
}

func TestHandlePrice(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/api/price/RELIANCE:NSE", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var q quote.Quote
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &q))
	require.Equal(t, "RELIANCE", q.Symbol.Ticker)
	require.Equal(t, "INR", q.Currency)
	require.Empty(t, q.Raw)
}

func TestHandlePrice_DebugCarriesRawBody(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/api/price/RELIANCE?debug=true", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var q quote.Quote
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &q))
	require.Equal(t, quotePage, q.Raw)
}

func TestHandlePrice_Errors(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/api/price/A:B:C", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var e errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e))
	require.Equal(t, "InvalidSymbolFormat", e.ErrorKind)

	rr = do(t, s, http.MethodGet, "/api/price/UNKNOWN:NSE", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e))
	require.Equal(t, "SymbolNotFound", e.ErrorKind)
}

func TestHandleBatch_AllShapes(t *testing.T) {
	s := newTestServer(t)

	for name, rr := range map[string]*httptest.ResponseRecorder{
		"query param": do(t, s, http.MethodGet, "/api/prices?symbols=RELIANCE:NSE,BADSYMBOL:NSE,TCS:NSE", ""),
		"path param":  do(t, s, http.MethodGet, "/api/prices/RELIANCE:NSE,BADSYMBOL:NSE,TCS:NSE", ""),
		"post body":   do(t, s, http.MethodPost, "/api/prices", `{"symbols":["RELIANCE:NSE","BADSYMBOL:NSE","TCS:NSE"]}`),
	} {
		require.Equal(t, http.StatusOK, rr.Code, "%s: %s", name, rr.Body.String())
		var resp batchResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), name)
		require.Len(t, resp.Outcomes, 3, name)
		require.NotNil(t, resp.Outcomes[0].Quote, name)
		require.NotNil(t, resp.Outcomes[1].Error, name)
		require.Equal(t, "SymbolNotFound", resp.Outcomes[1].Error.Kind, name)
		require.NotNil(t, resp.Outcomes[2].Quote, name)
	}
}

func TestHandleBatch_EmptyIsRequestLevelError(t *testing.T) {
	s := newTestServer(t)

	for name, rr := range map[string]*httptest.ResponseRecorder{
		"missing query": do(t, s, http.MethodGet, "/api/prices?symbols=", ""),
		"empty body":    do(t, s, http.MethodPost, "/api/prices", `{"symbols":[]}`),
		"bad json":      do(t, s, http.MethodPost, "/api/prices", `{"symbols": nope}`),
	} {
		require.Equal(t, http.StatusBadRequest, rr.Code, name)
		var e errorResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e), name)
		require.Equal(t, "InvalidArgument", e.ErrorKind, name)
	}
}

func TestHandleStocks(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/api/stocks", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp stocksResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, 25, resp.Total)
	require.Equal(t, "RELIANCE", resp.Stocks[0].Symbol.Ticker)
}

func TestHandleSearch(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/api/search?query=reliance&limit=5", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp searchResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Results)
	require.Equal(t, "RELIANCE", resp.Results[0].Record.Symbol.Ticker)

	// Omitted limit applies the default cap.
	rr = do(t, s, http.MethodGet, "/api/search?query=limited", "")
	require.Equal(t, http.StatusOK, rr.Code)

	// Empty query is a no-op, not a full dump.
	rr = do(t, s, http.MethodGet, "/api/search?query=", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Empty(t, resp.Results)
}

func TestHandleSearch_InvalidLimit(t *testing.T) {
	s := newTestServer(t)

	for _, target := range []string{
		"/api/search?query=rel&limit=0",
		"/api/search?query=rel&limit=-3",
		"/api/search?query=rel&limit=abc",
	} {
		rr := do(t, s, http.MethodGet, target, "")
		require.Equal(t, http.StatusBadRequest, rr.Code, target)
		var e errorResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e))
		require.Equal(t, "InvalidArgument", e.ErrorKind)
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
}
