package retrieval_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/tidepool/pkg/model"
	"github.com/m-mizutani/tidepool/pkg/retrieval"
)

func TestSplit(t *testing.T) {
	testCases := []struct {
		name   string
		tokens int
		size   int
		want   int
	}{
		{"exact multiple", 10, 5, 2},
		{"short tail", 11, 5, 3},
		{"single window", 3, 5, 1},
		{"one per window", 4, 1, 4},
		{"empty", 0, 5, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			words := make([]string, tc.tokens)
			for i := range words {
				words[i] = fmt.Sprintf("w%d", i)
			}
			text := strings.Join(words, " ")

			windows := retrieval.Split(text, tc.size)
			gt.V(t, len(windows)).Equal(tc.want)

			// Concatenating all windows must reproduce the token sequence
			var joined []string
			for _, w := range windows {
				joined = append(joined, strings.Fields(w)...)
			}
			gt.V(t, len(joined)).Equal(tc.tokens)
			for i, w := range joined {
				gt.V(t, w).Equal(words[i])
			}
		})
	}
}

func TestSplitWhitespaceOnly(t *testing.T) {
	gt.V(t, len(retrieval.Split("   \n\t  ", 5))).Equal(0)
}

func TestSplitDeterministic(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog"
	a := retrieval.Split(text, 4)
	b := retrieval.Split(text, 4)
	gt.V(t, a).Equal(b)
}

func TestChunkDocument(t *testing.T) {
	doc := model.Document{ID: "doc1.txt", Content: "a b c d e f g"}
	chunks := retrieval.ChunkDocument(doc, 3)

	gt.V(t, len(chunks)).Equal(3)
	gt.V(t, chunks[0]).Equal(model.Chunk{SourceID: "doc1.txt", Content: "a b c", Seq: 0})
	gt.V(t, chunks[1]).Equal(model.Chunk{SourceID: "doc1.txt", Content: "d e f", Seq: 1})
	gt.V(t, chunks[2]).Equal(model.Chunk{SourceID: "doc1.txt", Content: "g", Seq: 2})
}

func TestChunkDocuments(t *testing.T) {
	docs := []model.Document{
		{ID: "a.txt", Content: "one two three"},
		{ID: "b.txt", Content: ""},
		{ID: "c.txt", Content: "four"},
	}
	chunks := retrieval.ChunkDocuments(docs, 2)

	gt.V(t, len(chunks)).Equal(3)
	gt.V(t, chunks[0].SourceID).Equal("a.txt")
	gt.V(t, chunks[1].SourceID).Equal("a.txt")
	gt.V(t, chunks[2].SourceID).Equal("c.txt")
	gt.V(t, chunks[2].Seq).Equal(0)
}
