package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"stockquote/internal/catalog"
	"stockquote/internal/quote"
	"stockquote/internal/symbol"
)

// maxBatchSymbols caps a single batch request.
const maxBatchSymbols = 100

var errEmptyBatch = errors.New("symbols cannot be empty")

type server struct {
	log             *zap.Logger
	cat             *catalog.Catalog
	fetcher         *quote.Fetcher
	resolver        *quote.Resolver
	defaultExchange string
	requestTimeout  time.Duration
}

func (s *server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/price/{symbol}", s.handlePrice).Methods(http.MethodGet)
	r.HandleFunc("/api/prices", s.handlePricesQuery).Methods(http.MethodGet)
	r.HandleFunc("/api/prices", s.handlePricesBody).Methods(http.MethodPost)
	r.HandleFunc("/api/prices/{symbols}", s.handlePricesPath).Methods(http.MethodGet)
	r.HandleFunc("/api/stocks", s.handleStocks).Methods(http.MethodGet)
	r.HandleFunc("/api/search", s.handleSearch).Methods(http.MethodGet)
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handlePrice(w http.ResponseWriter, r *http.Request) {
	sym, err := symbol.Parse(mux.Vars(r)["symbol"], s.defaultExchange)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	debug, _ := strconv.ParseBool(r.URL.Query().Get("debug"))
	var q quote.Quote
	if debug {
		q, err = s.fetcher.FetchDebug(ctx, sym)
	} else {
		q, err = s.fetcher.Fetch(ctx, sym)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) handlePricesQuery(w http.ResponseWriter, r *http.Request) {
	s.writeBatch(w, r, splitCSV(r.URL.Query().Get("symbols")))
}

func (s *server) handlePricesPath(w http.ResponseWriter, r *http.Request) {
	s.writeBatch(w, r, splitCSV(mux.Vars(r)["symbols"]))
}

type pricesRequest struct {
	Symbols []string `json:"symbols"`
}

func (s *server) handlePricesBody(w http.ResponseWriter, r *http.Request) {
	var body pricesRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			ErrorKind: "InvalidArgument",
			Message:   "invalid JSON body",
		})
		return
	}
	s.writeBatch(w, r, body.Symbols)
}

type batchResponse struct {
	Outcomes []quote.Outcome `json:"outcomes"`
}

// writeBatch resolves raws and always answers 200 with per-item outcomes;
// only a malformed request itself (empty or oversized list) fails wholesale.
func (s *server) writeBatch(w http.ResponseWriter, r *http.Request, raws []string) {
	if len(raws) == 0 {
		s.writeError(w, errEmptyBatch)
		return
	}
	if len(raws) > maxBatchSymbols {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			ErrorKind: "InvalidArgument",
			Message:   "too many symbols (max 100)",
		})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()
	writeJSON(w, http.StatusOK, batchResponse{Outcomes: s.resolver.ResolveAll(ctx, raws)})
}

type stocksResponse struct {
	Stocks []catalog.Record `json:"stocks"`
	Total  int              `json:"total"`
}

func (s *server) handleStocks(w http.ResponseWriter, _ *http.Request) {
	stocks := s.cat.Popular(25)
	writeJSON(w, http.StatusOK, stocksResponse{Stocks: stocks, Total: len(stocks)})
}

type searchResponse struct {
	Results []catalog.SearchResult `json:"results"`
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	limit := catalog.DefaultSearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, catalog.ErrInvalidLimit)
			return
		}
		limit = n
	}
	results, err := s.cat.Search(r.URL.Query().Get("query"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: results})
}

type errorResponse struct {
	ErrorKind string `json:"errorKind"`
	Message   string `json:"message"`
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := quote.Kind(err)
	switch {
	case errors.Is(err, symbol.ErrInvalidFormat):
		status = http.StatusBadRequest
	case errors.Is(err, catalog.ErrInvalidLimit), errors.Is(err, errEmptyBatch):
		status = http.StatusBadRequest
		kind = "InvalidArgument"
	case errors.Is(err, quote.ErrSymbolNotFound):
		status = http.StatusNotFound
	case errors.Is(err, quote.ErrUpstreamUnavailable), errors.Is(err, quote.ErrParse):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, errorResponse{ErrorKind: kind, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
