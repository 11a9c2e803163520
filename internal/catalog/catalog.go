package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"stockquote/internal/symbol"
)

// ErrLoadFailed wraps any problem reading or parsing the reference file.
var ErrLoadFailed = errors.New("catalog load failed")

// Record is one reference entry: a ticker and the company behind it.
type Record struct {
	Symbol      symbol.Symbol `json:"symbol"`
	CompanyName string        `json:"companyName"`
}

// Catalog is the immutable ticker reference dataset. It is built once at
// startup and never mutated afterwards, so concurrent readers need no
// locking.
type Catalog struct {
	records []Record
	byKey   map[symbol.Symbol]Record
}

// searchFile is the shape produced by the reference-data pipeline
// (nse_tickers_search.json). The symbolIndex/nameIndex maps exist for
// other consumers; we rebuild our own map at load time.
type searchFile struct {
	Total   int `json:"total"`
	Tickers []struct {
		ID     int    `json:"id"`
		Symbol string `json:"symbol"`
		Name   string `json:"name"`
	} `json:"tickers"`
}

// Load reads the reference file and builds the exact-match index.
// All entries in the file belong to a single exchange.
func Load(path, exchange string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrLoadFailed, path, err)
	}
	var f searchFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrLoadFailed, path, err)
	}
	if len(f.Tickers) == 0 {
		return nil, fmt.Errorf("%w: %s contains no tickers", ErrLoadFailed, path)
	}
	records := make([]Record, 0, len(f.Tickers))
	for _, t := range f.Tickers {
		if t.Symbol == "" {
			continue
		}
		records = append(records, Record{
			Symbol:      symbol.Symbol{Ticker: t.Symbol, Exchange: exchange},
			CompanyName: t.Name,
		})
	}
	return build(records), nil
}

// Fallback returns a small built-in catalog of well-known stocks, used when
// the reference file is unavailable so popular/search endpoints still
// answer something useful.
func Fallback(exchange string) *Catalog {
	records := make([]Record, 0, len(fallbackStocks))
	for _, s := range fallbackStocks {
		records = append(records, Record{
			Symbol:      symbol.Symbol{Ticker: s.ticker, Exchange: exchange},
			CompanyName: s.name,
		})
	}
	return build(records)
}

func build(records []Record) *Catalog {
	byKey := make(map[symbol.Symbol]Record, len(records))
	for _, r := range records {
		byKey[r.Symbol] = r
	}
	return &Catalog{records: records, byKey: byKey}
}

// Lookup is an exact-match index by (ticker, exchange).
func (c *Catalog) Lookup(sym symbol.Symbol) (Record, bool) {
	r, ok := c.byKey[sym]
	return r, ok
}

// Popular returns the first n records in file order.
func (c *Catalog) Popular(n int) []Record {
	if n < 0 {
		n = 0
	}
	if n > len(c.records) {
		n = len(c.records)
	}
	out := make([]Record, n)
	copy(out, c.records[:n])
	return out
}

func (c *Catalog) Len() int { return len(c.records) }

var fallbackStocks = []struct{ ticker, name string }{
	{"RELIANCE", "Reliance Industries Limited"},
	{"TCS", "Tata Consultancy Services Limited"},
	{"HDFCBANK", "HDFC Bank Limited"},
	{"INFY", "Infosys Limited"},
	{"ICICIBANK", "ICICI Bank Limited"},
	{"HINDUNILVR", "Hindustan Unilever Limited"},
	{"SBIN", "State Bank of India"},
	{"BHARTIARTL", "Bharti Airtel Limited"},
	{"ITC", "ITC Limited"},
	{"LT", "Larsen & Toubro Limited"},
	{"WIPRO", "Wipro Limited"},
	{"TITAN", "Titan Company Limited"},
	{"HCLTECH", "HCL Technologies Limited"},
	{"TECHM", "Tech Mahindra Limited"},
	{"AXISBANK", "Axis Bank Limited"},
	{"ULTRACEMCO", "Ultratech Cement Limited"},
	{"ASIANPAINT", "Asian Paints Limited"},
	{"MARUTI", "Maruti Suzuki India Limited"},
	{"BAJAJ-AUTO", "Bajaj Auto Limited"},
	{"DRREDDY", "Dr. Reddy's Laboratories Limited"},
	{"COALINDIA", "Coal India Limited"},
	{"POWERGRID", "Power Grid Corporation of India Limited"},
	{"JSWSTEEL", "JSW Steel Limited"},
	{"TATASTEEL", "Tata Steel Limited"},
	{"DIVISLAB", "Divi's Laboratories Limited"},
}
