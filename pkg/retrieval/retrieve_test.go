package retrieval_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/tidepool/pkg/model"
	"github.com/m-mizutani/tidepool/pkg/retrieval"
	"google.golang.org/genai"
)

// mockEmbedder maps text to a fixed vector for deterministic tests
type mockEmbedder struct {
	vectors map[string][]float32
}

func (m *mockEmbedder) Embedding(ctx context.Context, text string) (*genai.EmbedContentResponse, error) {
	vec, ok := m.vectors[text]
	if !ok {
		return nil, errors.New("no vector for text: " + text)
	}
	return &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: vec}},
	}, nil
}

func TestParseMode(t *testing.T) {
	mode, err := retrieval.ParseMode("Hybrid")
	gt.NoError(t, err)
	gt.V(t, mode).Equal(retrieval.ModeHybrid)

	_, err = retrieval.ParseMode("semantic")
	gt.Error(t, err)
}

func TestKeywordRetrieval(t *testing.T) {
	chunks := []model.Chunk{
		{SourceID: "a.txt", Content: "ocean ocean currents", Seq: 0},
		{SourceID: "b.txt", Content: "desert sands dunes", Seq: 0},
	}
	r := retrieval.NewRetriever(retrieval.NewIndex(chunks), nil)
	ctx := context.Background()

	t.Run("repeated token counts per occurrence", func(t *testing.T) {
		results, err := r.Retrieve(ctx, "ocean", 5, retrieval.ModeKeyword)
		gt.NoError(t, err)
		gt.V(t, len(results)).Equal(1)
		gt.V(t, results[0].Chunk.SourceID).Equal("a.txt")
		gt.V(t, results[0].Score).Equal(2.0)
	})

	t.Run("zero-score chunks are excluded", func(t *testing.T) {
		results, err := r.Retrieve(ctx, "volcano", 5, retrieval.ModeKeyword)
		gt.NoError(t, err)
		gt.V(t, len(results)).Equal(0)
	})

	t.Run("substring of longer word counts", func(t *testing.T) {
		results, err := r.Retrieve(ctx, "sand", 5, retrieval.ModeKeyword)
		gt.NoError(t, err)
		gt.V(t, len(results)).Equal(1)
		gt.V(t, results[0].Chunk.SourceID).Equal("b.txt")
	})

	t.Run("case folded", func(t *testing.T) {
		results, err := r.Retrieve(ctx, "OCEAN", 5, retrieval.ModeKeyword)
		gt.NoError(t, err)
		gt.V(t, len(results)).Equal(1)
	})
}

func TestKeywordRanking(t *testing.T) {
	chunks := []model.Chunk{
		{SourceID: "low", Content: "fish", Seq: 0},
		{SourceID: "high", Content: "fish fish fish", Seq: 0},
		{SourceID: "mid", Content: "fish and more fish", Seq: 0},
	}
	r := retrieval.NewRetriever(retrieval.NewIndex(chunks), nil)

	results, err := r.Retrieve(context.Background(), "fish", 2, retrieval.ModeKeyword)
	gt.NoError(t, err)
	gt.V(t, len(results)).Equal(2)
	gt.V(t, results[0].Chunk.SourceID).Equal("high")
	gt.V(t, results[1].Chunk.SourceID).Equal("mid")
}

func TestVectorRetrieval(t *testing.T) {
	ctx := context.Background()
	chunks := []model.Chunk{
		{SourceID: "a.txt", Content: "alpha", Seq: 0},
		{SourceID: "b.txt", Content: "beta", Seq: 0},
	}
	embedder := &mockEmbedder{vectors: map[string][]float32{
		"alpha": {1, 0},
		"beta":  {0, 1},
		"query": {0.9, 0.1},
	}}

	idx, err := retrieval.BuildVectorIndex(ctx, embedder, chunks)
	gt.NoError(t, err)
	r := retrieval.NewRetriever(idx, embedder)

	t.Run("topK larger than corpus returns all, scores in (0,1]", func(t *testing.T) {
		results, err := r.Retrieve(ctx, "query", 5, retrieval.ModeVector)
		gt.NoError(t, err)
		gt.V(t, len(results)).Equal(2)
		gt.V(t, results[0].Chunk.SourceID).Equal("a.txt")
		for _, sc := range results {
			gt.True(t, sc.Score > 0 && sc.Score <= 1)
		}
	})

	t.Run("descending by similarity", func(t *testing.T) {
		results, err := r.Retrieve(ctx, "query", 2, retrieval.ModeVector)
		gt.NoError(t, err)
		gt.V(t, len(results)).Equal(2)
		gt.True(t, results[0].Score >= results[1].Score)
	})

	t.Run("keyword-only index rejects vector mode", func(t *testing.T) {
		kr := retrieval.NewRetriever(retrieval.NewIndex(chunks), nil)
		_, err := kr.Retrieve(ctx, "query", 2, retrieval.ModeVector)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, retrieval.ErrNoVectorIndex))
	})
}

func TestHybridRetrieval(t *testing.T) {
	ctx := context.Background()

	// Both chunks are equidistant from the query; only one contains the
	// query token, so it must rank first.
	chunks := []model.Chunk{
		{SourceID: "plain.txt", Content: "nothing relevant here", Seq: 0},
		{SourceID: "match.txt", Content: "coral reefs and coral bleaching", Seq: 0},
	}
	embedder := &mockEmbedder{vectors: map[string][]float32{
		"nothing relevant here":           {1, 0},
		"coral reefs and coral bleaching": {0, 1},
		"coral":                           {0.5, 0.5},
	}}

	idx, err := retrieval.BuildVectorIndex(ctx, embedder, chunks)
	gt.NoError(t, err)
	r := retrieval.NewRetriever(idx, embedder)

	results, err := r.Retrieve(ctx, "coral", 2, retrieval.ModeHybrid)
	gt.NoError(t, err)
	gt.V(t, len(results)).Equal(2)
	gt.V(t, results[0].Chunk.SourceID).Equal("match.txt")
	gt.True(t, results[0].Score > results[1].Score)
}

func TestHybridWeights(t *testing.T) {
	ctx := context.Background()
	chunks := []model.Chunk{
		{SourceID: "a.txt", Content: "whale song", Seq: 0},
	}
	embedder := &mockEmbedder{vectors: map[string][]float32{
		"whale song": {1, 0},
		"whale":      {1, 0},
	}}

	idx, err := retrieval.BuildVectorIndex(ctx, embedder, chunks)
	gt.NoError(t, err)

	// Zero distance: similarity = 1, keyword count = 1.
	r := retrieval.NewRetriever(idx, embedder,
		retrieval.WithWeights(retrieval.Weights{Vector: 0.5, Keyword: 2.0}))

	results, err := r.Retrieve(ctx, "whale", 1, retrieval.ModeHybrid)
	gt.NoError(t, err)
	gt.V(t, len(results)).Equal(1)
	gt.V(t, results[0].Score).Equal(0.5*1.0 + 2.0*1.0)
}

func TestRetrieveEmptyCorpus(t *testing.T) {
	r := retrieval.NewRetriever(retrieval.NewIndex(nil), nil)

	for _, mode := range []retrieval.Mode{retrieval.ModeKeyword, retrieval.ModeVector, retrieval.ModeHybrid} {
		results, err := r.Retrieve(context.Background(), "anything", 3, mode)
		gt.NoError(t, err)
		gt.V(t, len(results)).Equal(0)
	}
}

func TestRetrieveDefaultTopK(t *testing.T) {
	chunks := []model.Chunk{
		{SourceID: "a", Content: "tide tide tide", Seq: 0},
		{SourceID: "b", Content: "tide tide", Seq: 0},
		{SourceID: "c", Content: "tide", Seq: 1},
	}
	r := retrieval.NewRetriever(retrieval.NewIndex(chunks), nil, retrieval.WithTopK(2))

	results, err := r.Retrieve(context.Background(), "tide", 0, retrieval.ModeKeyword)
	gt.NoError(t, err)
	gt.V(t, len(results)).Equal(2)
}

func TestOceanScenario(t *testing.T) {
	// End-to-end keyword scenario: the ocean chunk must win for an ocean query
	docs := []model.Document{
		{ID: "ocean.txt", Content: "ocean pollution threat"},
		{ID: "travel.txt", Content: "travel culture"},
	}
	chunks := retrieval.ChunkDocuments(docs, retrieval.DefaultChunkSize)
	r := retrieval.NewRetriever(retrieval.NewIndex(chunks), nil)

	results, err := r.Retrieve(context.Background(), "threats to ocean health", 1, retrieval.ModeKeyword)
	gt.NoError(t, err)
	gt.V(t, len(results)).Equal(1)
	gt.V(t, results[0].Chunk.SourceID).Equal("ocean.txt")
}
