package retrieval

import (
	"context"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/model"
)

// Mode selects the scoring backend for one retrieval call.
type Mode string

const (
	ModeKeyword Mode = "keyword"
	ModeVector  Mode = "vector"
	ModeHybrid  Mode = "hybrid"
)

var errUnknownMode = goerr.New("unknown retrieval mode")

// ParseMode validates a mode string from CLI flags or tool arguments.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeKeyword:
		return ModeKeyword, nil
	case ModeVector:
		return ModeVector, nil
	case ModeHybrid:
		return ModeHybrid, nil
	default:
		return "", goerr.Wrap(errUnknownMode, "cannot parse mode", goerr.V("mode", s))
	}
}

// DefaultTopK is the number of chunks returned when the caller does not ask
// for a specific count.
const DefaultTopK = 3

// Weights combines vector similarity and raw keyword occurrence count into
// the hybrid score. The keyword term is intentionally unnormalized: a single
// dominant keyword hit can outweigh vector similarity. The defaults are
// empirical; change them via config, not here.
type Weights struct {
	Vector  float64 `yaml:"vector"`
	Keyword float64 `yaml:"keyword"`
}

// DefaultWeights are the stock hybrid weights.
var DefaultWeights = Weights{Vector: 0.7, Keyword: 0.3}

// Retriever answers queries over one Index. Vector and hybrid modes need the
// index to be built with embeddings and use the same embedder for queries.
type Retriever struct {
	index    *Index
	embedder Embedder
	topK     int
	weights  Weights
}

type RetrieverOption func(*Retriever)

// WithTopK overrides the default result count used when a call passes topK <= 0.
func WithTopK(k int) RetrieverOption {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithWeights overrides the hybrid scoring weights.
func WithWeights(w Weights) RetrieverOption {
	return func(r *Retriever) {
		r.weights = w
	}
}

// NewRetriever creates a retriever over the index. The embedder may be nil
// for keyword-only use.
func NewRetriever(index *Index, embedder Embedder, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		index:    index,
		embedder: embedder,
		topK:     DefaultTopK,
		weights:  DefaultWeights,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns at most topK chunks ranked by descending relevance.
// topK <= 0 means the configured default. An empty corpus yields an empty
// result for every mode, never an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, mode Mode) ([]model.ScoredChunk, error) {
	if topK <= 0 {
		topK = r.topK
	}
	if r.index.Size() == 0 {
		return nil, nil
	}

	switch mode {
	case ModeKeyword:
		return r.retrieveKeyword(query, topK), nil
	case ModeVector:
		return r.retrieveVector(ctx, query, topK)
	case ModeHybrid:
		return r.retrieveHybrid(ctx, query, topK)
	default:
		return nil, goerr.Wrap(errUnknownMode, "cannot retrieve", goerr.V("mode", mode))
	}
}

// keywordScore counts occurrences of each case-folded query token as a
// substring of the case-folded content, summed with repetition. A token that
// happens to be a substring of a longer word still counts; that matches the
// scoring this engine inherits and keeps results reproducible.
func keywordScore(content, query string) int {
	folded := strings.ToLower(content)
	score := 0
	for _, token := range strings.Fields(strings.ToLower(query)) {
		score += strings.Count(folded, token)
	}
	return score
}

// retrieveKeyword scores every chunk and drops zero scores: a chunk with no
// token hit is never returned, even when fewer than topK chunks remain.
func (r *Retriever) retrieveKeyword(query string, topK int) []model.ScoredChunk {
	var scored []model.ScoredChunk
	for _, chunk := range r.index.Chunks() {
		score := keywordScore(chunk.Content, query)
		if score == 0 {
			continue
		}
		scored = append(scored, model.ScoredChunk{Chunk: chunk, Score: float64(score)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored
}

// retrieveVector converts nearest-neighbor distance into a similarity in
// (0,1] via 1/(1+distance). Unlike keyword mode there is no zero-score
// exclusion: a non-empty corpus always yields up to topK results.
func (r *Retriever) retrieveVector(ctx context.Context, query string, topK int) ([]model.ScoredChunk, error) {
	neighbors, err := r.nearest(ctx, query, topK*2)
	if err != nil {
		return nil, err
	}

	scored := make([]model.ScoredChunk, 0, len(neighbors))
	for _, n := range neighbors {
		scored = append(scored, model.ScoredChunk{
			Chunk: r.index.Chunks()[n.index],
			Score: 1.0 / (1.0 + n.distance),
		})
	}

	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

// retrieveHybrid rescores the topK*2 vector-nearest candidates with the
// weighted sum of similarity and raw keyword count, then re-ranks. Ties keep
// nearest-neighbor order (stable sort).
func (r *Retriever) retrieveHybrid(ctx context.Context, query string, topK int) ([]model.ScoredChunk, error) {
	neighbors, err := r.nearest(ctx, query, topK*2)
	if err != nil {
		return nil, err
	}

	scored := make([]model.ScoredChunk, 0, len(neighbors))
	for _, n := range neighbors {
		chunk := r.index.Chunks()[n.index]
		similarity := 1.0 / (1.0 + n.distance)
		count := keywordScore(chunk.Content, query)
		scored = append(scored, model.ScoredChunk{
			Chunk: chunk,
			Score: r.weights.Vector*similarity + r.weights.Keyword*float64(count),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

func (r *Retriever) nearest(ctx context.Context, query string, k int) ([]neighbor, error) {
	if r.embedder == nil {
		return nil, goerr.Wrap(ErrNoVectorIndex, "retriever has no embedder")
	}

	qvec, err := embedText(ctx, r.embedder, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}

	return r.index.search(qvec, k)
}
