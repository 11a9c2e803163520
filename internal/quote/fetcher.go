package quote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stockquote/internal/symbol"
)

// HTTPClient describes the outbound HTTP client used by the Fetcher.
//
//go:generate mockgen -package=quote_test -destination=mock_http_client_test.go -source=fetcher.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config controls the Fetcher.
type Config struct {
	// BaseURL of the quote page; the symbol is appended as /TICKER:EXCHANGE.
	BaseURL string
	// UserAgent sent upstream. The price source serves a different page to
	// non-browser agents, so the default mimics a desktop browser.
	UserAgent string
	// Timeout per attempt. Exceeding it counts as a transient failure.
	Timeout time.Duration
	// Retries on transient failure (timeout, connection reset, 429/5xx).
	Retries int
	// MaxBodyBytes caps how much of the response is read.
	MaxBodyBytes int64
}

const (
	defaultBaseURL   = "https://www.google.com/finance/quote"
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	defaultMaxBody   = 2 << 20
	maxRawDebugBytes = 64 << 10
)

// Fetcher resolves one validated symbol into a live Quote by scraping the
// upstream quote page.
type Fetcher struct {
	cfg    Config
	client HTTPClient
	log    *zap.Logger
}

func NewFetcher(cfg Config, client HTTPClient, log *zap.Logger) *Fetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBody
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{cfg: cfg, client: client, log: log}
}

// Fetch retrieves a live quote for sym.
func (f *Fetcher) Fetch(ctx context.Context, sym symbol.Symbol) (Quote, error) {
	return f.fetch(ctx, sym, false)
}

// FetchDebug behaves exactly like Fetch but additionally attaches the raw
// upstream body to the returned Quote. Parsing is unaffected.
func (f *Fetcher) FetchDebug(ctx context.Context, sym symbol.Symbol) (Quote, error) {
	return f.fetch(ctx, sym, true)
}

func (f *Fetcher) fetch(ctx context.Context, sym symbol.Symbol, debug bool) (Quote, error) {
	body, err := f.get(ctx, sym)
	if err != nil {
		return Quote{}, err
	}
	ex := extract(body)
	switch ex.state {
	case found:
	case priceFieldMissing:
		return Quote{}, fmt.Errorf("%w: no price on quote page for %s", ErrSymbolNotFound, sym)
	default:
		return Quote{}, fmt.Errorf("%w: extraction markers absent for %s", ErrParse, sym)
	}
	q := Quote{
		Symbol:        sym,
		Price:         ex.price,
		Currency:      ex.currency,
		AsOf:          ex.asOf,
		ChangePercent: ex.changePercent,
	}
	if debug {
		raw := body
		if len(raw) > maxRawDebugBytes {
			raw = raw[:maxRawDebugBytes]
		}
		q.Raw = raw
	}
	return q, nil
}

// get performs the outbound request with at most cfg.Retries extra attempts
// on transient failures. Non-transient failures surface immediately.
func (f *Fetcher) get(ctx context.Context, sym symbol.Symbol) (string, error) {
	url := fmt.Sprintf("%s/%s:%s", f.cfg.BaseURL, sym.Ticker, sym.Exchange)
	var lastErr error
	for attempt := 0; attempt <= f.cfg.Retries; attempt++ {
		body, transient, err := f.once(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !transient || ctx.Err() != nil {
			break
		}
		f.log.Debug("retrying after transient failure",
			zap.String("symbol", sym.String()), zap.Error(err))
	}
	return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, lastErr)
}

func (f *Fetcher) once(ctx context.Context, url string) (body string, transient bool, err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", false, err
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", isTransient(err), err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retry, fmt.Errorf("GET %s -> %d", url, resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
	if err != nil {
		return "", isTransient(err), err
	}
	return string(b), false, nil
}

func isTransient(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.DeadlineExceeded)
}

type extractState int

const (
	structureUnrecognized extractState = iota
	priceFieldMissing
	found
)

// extraction is the tagged result of reading the quote page: either a price
// with best-effort metadata, a recognized page with no locatable price, or
// a page we cannot read at all.
type extraction struct {
	state         extractState
	price         decimal.Decimal
	currency      string
	asOf          *time.Time
	changePercent *decimal.Decimal
}

var (
	// priceRe matches displayed prices with optional thousands separators,
	// e.g. "1,525.30", "1525" or "152.50".
	priceRe  = regexp.MustCompile(`[\d,]+(?:\.\d{2})?`)
	changeRe = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?%`)
)

func extract(body string) extraction {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return extraction{state: structureUnrecognized}
	}

	// Selectors that usually contain the displayed price, most specific
	// first. data-last-price also carries machine-readable metadata.
	el := doc.Find("div[data-last-price]").First()
	if el.Length() == 0 {
		el = doc.Find("div.YMlKec").First()
	}
	if el.Length() == 0 {
		el = doc.Find("div[data-attrid='Price'] span").First()
	}
	if el.Length() == 0 {
		// No price markers. A quote page always carries a main landmark;
		// without one the page shape is not something we know how to read.
		if doc.Find("main").Length() > 0 {
			return extraction{state: priceFieldMissing}
		}
		return extraction{state: structureUnrecognized}
	}

	price, ok := extractPrice(el)
	if !ok {
		return extraction{state: priceFieldMissing}
	}

	ex := extraction{state: found, price: price}
	if v, ok := el.Attr("data-currency-code"); ok {
		ex.currency = strings.TrimSpace(v)
	}
	if v, ok := el.Attr("data-last-normal-market-timestamp"); ok {
		if epoch, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && epoch > 0 {
			t := time.Unix(epoch, 0).UTC()
			ex.asOf = &t
		}
	}
	// Change percent lives in a sibling of the price text; scan the price
	// element's container for the first percentage token.
	scope := el.Text()
	if p := el.Parent(); p.Length() > 0 {
		scope += " " + p.Text()
	}
	if m := changeRe.FindString(scope); m != "" {
		m = strings.TrimSuffix(strings.TrimPrefix(m, "+"), "%")
		if d, err := decimal.NewFromString(m); err == nil {
			ex.changePercent = &d
		}
	}
	return ex
}

// extractPrice prefers the machine-readable attribute and falls back to the
// first parsable numeric token in the element text, tolerating thousands
// separators and surrounding markup.
func extractPrice(el *goquery.Selection) (decimal.Decimal, bool) {
	if v, ok := el.Attr("data-last-price"); ok {
		if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
			return d, true
		}
	}
	m := priceRe.FindString(el.Text())
	if m == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
