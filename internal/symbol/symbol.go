package symbol

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFormat reports a raw symbol string that cannot be parsed.
var ErrInvalidFormat = errors.New("invalid symbol format")

// Symbol identifies an instrument on a specific exchange.
type Symbol struct {
	Ticker   string `json:"ticker"`
	Exchange string `json:"exchange"`
}

func (s Symbol) String() string { return s.Ticker + ":" + s.Exchange }

// Parse normalizes raw input like "reliance:nse" into a Symbol.
// Unqualified input gets defaultExchange. Validation is purely
// syntactic; no catalog or network lookup happens here.
func Parse(raw, defaultExchange string) (Symbol, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return Symbol{}, fmt.Errorf("%w: empty input", ErrInvalidFormat)
	}
	ticker, exchange := s, strings.ToUpper(strings.TrimSpace(defaultExchange))
	if i := strings.Index(s, ":"); i >= 0 {
		if strings.Contains(s[i+1:], ":") {
			return Symbol{}, fmt.Errorf("%w: %q has more than one separator", ErrInvalidFormat, raw)
		}
		ticker, exchange = s[:i], s[i+1:]
	}
	if ticker == "" || exchange == "" {
		return Symbol{}, fmt.Errorf("%w: %q has an empty ticker or exchange", ErrInvalidFormat, raw)
	}
	if !allowed(ticker) || !allowed(exchange) {
		return Symbol{}, fmt.Errorf("%w: %q contains disallowed characters", ErrInvalidFormat, raw)
	}
	return Symbol{Ticker: ticker, Exchange: exchange}, nil
}

// allowed matches the character class for tickers and exchange codes:
// letters, digits, dot and hyphen.
func allowed(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-':
		default:
			return false
		}
	}
	return true
}
