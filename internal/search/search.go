// Package search ranks messages with one of two strategies: lexical
// substring match through the query layer, or embedding similarity through
// an external provider. Semantic mode degrades to lexical when the provider
// is unconfigured or the query embedding fails, and callers are always told
// which mode actually ran.
package search

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/chatbridge/chatbridge/internal/query"
)

// Mode names reported in results.
const (
	ModeLexical  = "lexical"
	ModeSemantic = "semantic"
)

// Provider computes embedding vectors. embed.Client satisfies it.
type Provider interface {
	Available() bool
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Result is a ranked message. Score is cosine similarity in [-1, 1] for
// semantic mode; lexical results carry no score.
type Result struct {
	query.Message
	Score float64 `json:"score,omitempty"`
}

// Results is a ranked result set tagged with the mode that produced it.
type Results struct {
	Mode  string   `json:"mode"`
	Items []Result `json:"items"`
}

// Candidate selection bounds for semantic mode.
const (
	defaultWindow    = 200 // recent messages considered for ranking
	minCandidateText = 8   // skip trivial texts ("ok", "lol", bare links do pass)
	embedConcurrency = 4
)

// Engine runs searches over the message store.
type Engine struct {
	queries  query.Engine
	provider Provider
	logger   *slog.Logger
	window   int
}

// New creates a search engine. provider may be an unavailable client; it is
// only consulted when a caller asks for semantic mode.
func New(queries query.Engine, provider Provider) *Engine {
	return &Engine{
		queries:  queries,
		provider: provider,
		logger:   slog.Default(),
		window:   defaultWindow,
	}
}

// WithLogger sets the logger for degradation diagnostics.
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	e.logger = logger
	return e
}

// WithWindow overrides the semantic candidate window.
func (e *Engine) WithWindow(n int) *Engine {
	if n > 0 {
		e.window = n
	}
	return e
}

// Search runs a lexical search, or a semantic one when requested and
// possible. The returned Mode names the strategy that actually executed.
func (e *Engine) Search(ctx context.Context, text string, limit int, semantic bool) (*Results, error) {
	if !semantic {
		return e.lexical(ctx, text, limit)
	}

	if e.provider == nil || !e.provider.Available() {
		return e.lexical(ctx, text, limit)
	}

	queryVec, err := e.provider.Embed(ctx, text)
	if err != nil {
		// Degrade transparently; the caller sees Mode: "lexical".
		e.logger.Warn("query embedding failed, falling back to lexical search", "error", err)
		return e.lexical(ctx, text, limit)
	}

	return e.semantic(ctx, queryVec, limit)
}

func (e *Engine) lexical(ctx context.Context, text string, limit int) (*Results, error) {
	msgs, err := e.queries.ListMessages(ctx, query.Filter{Text: text, Limit: limit})
	if err != nil {
		return nil, err
	}
	items := make([]Result, len(msgs))
	for i, m := range msgs {
		items[i] = Result{Message: m}
	}
	return &Results{Mode: ModeLexical, Items: items}, nil
}

func (e *Engine) semantic(ctx context.Context, queryVec []float32, limit int) (*Results, error) {
	recent, err := e.queries.ListMessages(ctx, query.Filter{Limit: e.window})
	if err != nil {
		return nil, err
	}

	var candidates []query.Message
	for _, m := range recent {
		if len(m.Text) >= minCandidateText {
			candidates = append(candidates, m)
		}
	}

	// One provider round trip per candidate. A failed embedding leaves a
	// nil vector, scoring that candidate 0 instead of aborting the ranking.
	vectors := make([][]float32, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i := range candidates {
		g.Go(func() error {
			vec, err := e.provider.Embed(gctx, candidates[i].Text)
			if err != nil {
				e.logger.Debug("candidate embedding failed", "message_id", candidates[i].ID, "error", err)
				return nil
			}
			vectors[i] = vec
			return nil
		})
	}
	_ = g.Wait()

	items := make([]Result, len(candidates))
	for i, m := range candidates {
		items[i] = Result{Message: m, Score: CosineSimilarity(queryVec, vectors[i])}
	}

	// Stable: equal scores keep the store's order.
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].Score > items[b].Score
	})

	// Same defaulting and cap as the lexical path, so both modes return
	// identically sized result sets for the same arguments.
	if n := (query.Filter{Limit: limit}).EffectiveLimit(); len(items) > n {
		items = items[:n]
	}
	return &Results{Mode: ModeSemantic, Items: items}, nil
}

// CosineSimilarity returns the cosine of the angle between two vectors.
// Defined as 0 when either vector is absent or has zero norm, so a single
// failed candidate embedding only sinks that candidate's rank.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
