package catalog

import (
	"errors"
	"sort"
	"strings"
)

// DefaultSearchLimit caps results when the caller does not supply a limit.
const DefaultSearchLimit = 20

// ErrInvalidLimit reports a caller-supplied limit below 1.
var ErrInvalidLimit = errors.New("search limit must be at least 1")

// SearchResult pairs a matching record with its rank score.
type SearchResult struct {
	Record Record `json:"record"`
	Score  int    `json:"score"`
}

// Score tiers. Exact ticker matches beat prefix matches beat other ticker
// substrings; company-name substrings rank lowest among matches.
const (
	scoreExactTicker     = 4
	scoreTickerPrefix    = 3
	scoreTickerSubstring = 2
	scoreNameSubstring   = 1
)

// Search returns records whose ticker or company name contains query,
// ordered by descending score then ascending ticker. An empty query yields
// an empty result set rather than a full dump. The index is recomputed per
// call; the catalog is small enough that this stays cheap.
func (c *Catalog) Search(query string, limit int) ([]SearchResult, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []SearchResult{}, nil
	}

	results := make([]SearchResult, 0, limit)
	for _, r := range c.records {
		ticker := strings.ToLower(r.Symbol.Ticker)
		var score int
		switch {
		case ticker == q:
			score = scoreExactTicker
		case strings.HasPrefix(ticker, q):
			score = scoreTickerPrefix
		case strings.Contains(ticker, q):
			score = scoreTickerSubstring
		case strings.Contains(strings.ToLower(r.CompanyName), q):
			score = scoreNameSubstring
		default:
			continue
		}
		results = append(results, SearchResult{Record: r, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Record.Symbol.Ticker < results[j].Record.Symbol.Ticker
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
