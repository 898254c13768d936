package model

// Document is a raw text supplied by a document source. How documents are
// discovered (filesystem, database) is outside the core; the core only sees
// (ID, Content) pairs.
type Document struct {
	ID      string
	Content string
}

// Chunk is a fixed-size contiguous slice of a document's tokens, the unit of
// retrieval. Identity is (SourceID, Seq). Chunks are immutable once created.
type Chunk struct {
	SourceID string
	Content  string
	Seq      int
}

// ScoredChunk pairs a chunk with its relevance score for one retrieval call.
// It is transient and never persisted.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}
