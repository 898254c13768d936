package retrieval

import (
	"strings"

	"github.com/m-mizutani/tidepool/pkg/model"
)

// DefaultChunkSize is the number of words per chunk when the caller does not
// specify a window size.
const DefaultChunkSize = 120

// Split breaks text into consecutive windows of size whitespace-separated
// words. Windows do not overlap and only the final window may be shorter.
// Splitting is deterministic and empty text yields no windows.
func Split(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	windows := make([]string, 0, (len(words)+size-1)/size)
	for i := 0; i < len(words); i += size {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		windows = append(windows, strings.Join(words[i:end], " "))
	}

	return windows
}

// ChunkDocument splits a document into chunks of size words each. Chunk
// identity is (SourceID, Seq) with Seq numbered from zero in document order.
func ChunkDocument(doc model.Document, size int) []model.Chunk {
	windows := Split(doc.Content, size)
	chunks := make([]model.Chunk, 0, len(windows))
	for i, w := range windows {
		chunks = append(chunks, model.Chunk{
			SourceID: doc.ID,
			Content:  w,
			Seq:      i,
		})
	}
	return chunks
}

// ChunkDocuments chunks every document in order.
func ChunkDocuments(docs []model.Document, size int) []model.Chunk {
	var chunks []model.Chunk
	for _, doc := range docs {
		chunks = append(chunks, ChunkDocument(doc, size)...)
	}
	return chunks
}
