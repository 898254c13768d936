package retrieval

import (
	"context"
	"math"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/model"
	"google.golang.org/genai"
)

var (
	// ErrDimensionMismatch is returned when embeddings of different lengths
	// would end up in the same index. A mixed-dimension index is invalid and
	// the only recovery is a full rebuild.
	ErrDimensionMismatch = goerr.New("embedding dimension mismatch")

	// ErrNoVectorIndex is returned when a vector or hybrid retrieval is
	// requested against an index built without embeddings.
	ErrNoVectorIndex = goerr.New("vector index not built")

	errEmptyEmbedding = goerr.New("embedding response has no values")
)

// Embedder turns text into a fixed-length vector. adapter.Gemini satisfies
// this; tests supply their own.
type Embedder interface {
	Embedding(ctx context.Context, text string) (*genai.EmbedContentResponse, error)
}

// Index holds the chunks of a corpus and, when built with an embedder, a flat
// vector table over them supporting exact nearest-neighbor search under
// Euclidean distance. Rebuilding from scratch is the only update path; there
// is no incremental add or delete after construction.
type Index struct {
	chunks  []model.Chunk
	vectors [][]float32
	dim     int
}

// NewIndex builds a keyword-only index. Scoring is deferred entirely to query
// time, so construction just takes ownership of the chunk list.
func NewIndex(chunks []model.Chunk) *Index {
	return &Index{chunks: chunks}
}

// BuildVectorIndex embeds every chunk and stores the (chunk, vector) pairs.
// Embedding cost is one call per chunk. All vectors must share one dimension;
// a mismatch aborts the build.
func BuildVectorIndex(ctx context.Context, embedder Embedder, chunks []model.Chunk) (*Index, error) {
	idx := &Index{chunks: chunks}

	for _, chunk := range chunks {
		vec, err := embedText(ctx, embedder, chunk.Content)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to embed chunk",
				goerr.V("source", chunk.SourceID), goerr.V("seq", chunk.Seq))
		}

		if idx.dim == 0 {
			idx.dim = len(vec)
		} else if len(vec) != idx.dim {
			return nil, goerr.Wrap(ErrDimensionMismatch, "chunk embedding does not match index dimension",
				goerr.V("expected", idx.dim), goerr.V("actual", len(vec)),
				goerr.V("source", chunk.SourceID), goerr.V("seq", chunk.Seq))
		}

		idx.vectors = append(idx.vectors, vec)
	}

	return idx, nil
}

// Chunks returns the indexed chunks in corpus order.
func (x *Index) Chunks() []model.Chunk {
	return x.chunks
}

// Size returns the number of indexed chunks.
func (x *Index) Size() int {
	return len(x.chunks)
}

// HasVectors reports whether the index was built with embeddings.
func (x *Index) HasVectors() bool {
	return x.dim > 0
}

// neighbor is one nearest-neighbor hit: the chunk position in the corpus and
// its Euclidean distance from the query vector.
type neighbor struct {
	index    int
	distance float64
}

// search returns the k nearest chunks to the query vector by Euclidean
// distance, closest first. Brute force over the flat table: exact results,
// O(n) per query, which is fine for the corpus sizes this engine targets
// (hundreds to low thousands of chunks).
func (x *Index) search(query []float32, k int) ([]neighbor, error) {
	if !x.HasVectors() {
		return nil, goerr.Wrap(ErrNoVectorIndex, "cannot search")
	}
	if len(query) != x.dim {
		return nil, goerr.Wrap(ErrDimensionMismatch, "query embedding does not match index dimension",
			goerr.V("expected", x.dim), goerr.V("actual", len(query)))
	}

	neighbors := make([]neighbor, len(x.vectors))
	for i, vec := range x.vectors {
		neighbors[i] = neighbor{index: i, distance: euclidean(query, vec)}
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].distance < neighbors[j].distance
	})

	if k > len(neighbors) {
		k = len(neighbors)
	}
	if k < 0 {
		k = 0
	}
	return neighbors[:k], nil
}

func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// embedText runs the embedder and unwraps the first embedding vector.
func embedText(ctx context.Context, embedder Embedder, text string) ([]float32, error) {
	resp, err := embedder.Embedding(ctx, text)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, goerr.Wrap(errEmptyEmbedding, "embedder returned nothing")
	}
	return resp.Embeddings[0].Values, nil
}
