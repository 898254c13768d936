package tool

import (
	"github.com/m-mizutani/tidepool/pkg/adapter"
	"github.com/m-mizutani/tidepool/pkg/retrieval"
)

// Client contains shared resources that tools can use
type Client struct {
	Gemini    adapter.Gemini
	Retriever *retrieval.Retriever
}
