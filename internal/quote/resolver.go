package quote

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stockquote/internal/symbol"
)

// Outcome is the per-symbol result of a batch resolution: either a Quote or
// a structured error, never both.
type Outcome struct {
	Symbol string        `json:"symbol"`
	Quote  *Quote        `json:"quote,omitempty"`
	Error  *OutcomeError `json:"error,omitempty"`
}

// OutcomeError mirrors the single-item error shape inside a batch envelope.
type OutcomeError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Resolver fans a Fetcher out over raw symbol strings with bounded
// concurrency.
type Resolver struct {
	Fetcher         *Fetcher
	DefaultExchange string
	// MaxConcurrency bounds simultaneous outbound fetches. <= 0 means the
	// default of 8.
	MaxConcurrency int
	// Debug attaches raw upstream bodies to successful quotes.
	Debug bool
	Log   *zap.Logger
}

const defaultMaxConcurrency = 8

// ResolveAll resolves each raw symbol independently: one outcome per input,
// in input order. A parse or fetch failure for one symbol never affects its
// siblings, and duplicate inputs are each fetched on their own.
func (r *Resolver) ResolveAll(ctx context.Context, raws []string) []Outcome {
	out := make([]Outcome, len(raws))
	limit := r.MaxConcurrency
	if limit <= 0 {
		limit = defaultMaxConcurrency
	}
	g := &errgroup.Group{}
	g.SetLimit(limit)
	for i, raw := range raws {
		i, raw := i, raw
		g.Go(func() error {
			out[i] = r.resolveOne(ctx, raw)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (r *Resolver) resolveOne(ctx context.Context, raw string) Outcome {
	sym, err := symbol.Parse(raw, r.DefaultExchange)
	if err != nil {
		return Outcome{Symbol: raw, Error: &OutcomeError{Kind: Kind(err), Message: err.Error()}}
	}
	var q Quote
	if r.Debug {
		q, err = r.Fetcher.FetchDebug(ctx, sym)
	} else {
		q, err = r.Fetcher.Fetch(ctx, sym)
	}
	if err != nil {
		if r.Log != nil {
			r.Log.Warn("fetch failed",
				zap.String("symbol", sym.String()),
				zap.String("kind", Kind(err)),
				zap.Error(err))
		}
		return Outcome{Symbol: sym.String(), Error: &OutcomeError{Kind: Kind(err), Message: err.Error()}}
	}
	return Outcome{Symbol: sym.String(), Quote: &q}
}
