package quote

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"stockquote/internal/symbol"
)

// Fetch failure taxonomy. Handlers map these to status codes and the
// resolver maps them to per-item errorKind strings.
var (
	// ErrUpstreamUnavailable covers network failures, timeouts and non-2xx
	// responses from the price source.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrSymbolNotFound means the quote page was recognized but no price
	// could be located on it.
	ErrSymbolNotFound = errors.New("symbol not found upstream")
	// ErrParse means the response arrived but none of the extraction
	// markers were present.
	ErrParse = errors.New("unrecognized upstream response")
)

// Quote is a point-in-time price observation. Currency, AsOf and
// ChangePercent are best-effort: the upstream page may omit any of them.
// Raw carries the upstream body only when a debug fetch was requested.
type Quote struct {
	Symbol        symbol.Symbol    `json:"symbol"`
	Price         decimal.Decimal  `json:"price"`
	Currency      string           `json:"currency,omitempty"`
	AsOf          *time.Time       `json:"asOf,omitempty"`
	ChangePercent *decimal.Decimal `json:"changePercent,omitempty"`
	Raw           string           `json:"raw,omitempty"`
}

// Kind names the wire-level errorKind for a parse or fetch error.
func Kind(err error) string {
	switch {
	case errors.Is(err, symbol.ErrInvalidFormat):
		return "InvalidSymbolFormat"
	case errors.Is(err, ErrSymbolNotFound):
		return "SymbolNotFound"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "UpstreamUnavailable"
	case errors.Is(err, ErrParse):
		return "ParseError"
	default:
		return "Internal"
	}
}
