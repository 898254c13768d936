package retrieval_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/tidepool/pkg/model"
	"github.com/m-mizutani/tidepool/pkg/retrieval"
)

func TestBuildVectorIndex(t *testing.T) {
	ctx := context.Background()
	chunks := []model.Chunk{
		{SourceID: "a", Content: "first", Seq: 0},
		{SourceID: "a", Content: "second", Seq: 1},
	}
	embedder := &mockEmbedder{vectors: map[string][]float32{
		"first":  {1, 2, 3},
		"second": {4, 5, 6},
	}}

	idx, err := retrieval.BuildVectorIndex(ctx, embedder, chunks)
	gt.NoError(t, err)
	gt.True(t, idx.HasVectors())
	gt.V(t, idx.Size()).Equal(2)
}

func TestBuildVectorIndexDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	chunks := []model.Chunk{
		{SourceID: "a", Content: "first", Seq: 0},
		{SourceID: "a", Content: "second", Seq: 1},
	}
	// Simulates an embedding model change mid-build: the partial index must
	// be rejected, not returned.
	embedder := &mockEmbedder{vectors: map[string][]float32{
		"first":  {1, 2, 3},
		"second": {4, 5},
	}}

	_, err := retrieval.BuildVectorIndex(ctx, embedder, chunks)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, retrieval.ErrDimensionMismatch))
}

func TestBuildVectorIndexEmbedFailure(t *testing.T) {
	ctx := context.Background()
	chunks := []model.Chunk{{SourceID: "a", Content: "missing", Seq: 0}}
	embedder := &mockEmbedder{vectors: map[string][]float32{}}

	_, err := retrieval.BuildVectorIndex(ctx, embedder, chunks)
	gt.Error(t, err)
}

func TestQueryDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	chunks := []model.Chunk{{SourceID: "a", Content: "first", Seq: 0}}
	embedder := &mockEmbedder{vectors: map[string][]float32{
		"first": {1, 2, 3},
		"query": {1, 2},
	}}

	idx, err := retrieval.BuildVectorIndex(ctx, embedder, chunks)
	gt.NoError(t, err)

	r := retrieval.NewRetriever(idx, embedder)
	_, err = r.Retrieve(ctx, "query", 1, retrieval.ModeVector)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, retrieval.ErrDimensionMismatch))
}

func TestKeywordOnlyIndex(t *testing.T) {
	idx := retrieval.NewIndex([]model.Chunk{{SourceID: "a", Content: "x", Seq: 0}})
	gt.True(t, !idx.HasVectors())
	gt.V(t, idx.Size()).Equal(1)
}
