package docs

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/model"
	"github.com/m-mizutani/tidepool/pkg/retrieval"
	"github.com/m-mizutani/tidepool/pkg/tool"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

type retrieveInput struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
	Mode  string `json:"mode"`
}

// search exposes the retrieval engine to the model as the retrieve_chunks
// function. The default mode comes from CLI configuration; the model may
// override it per call.
type search struct {
	defaultMode string
	retriever   *retrieval.Retriever
}

// New creates a new document search tool
func New() *search {
	return &search{
		defaultMode: string(retrieval.ModeKeyword),
	}
}

// Flags returns CLI flags for this tool
func (x *search) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "retrieval-mode",
			Sources:     cli.EnvVars("TIDEPOOL_RETRIEVAL_MODE"),
			Usage:       "Default retrieval mode (keyword, vector, hybrid)",
			Value:       string(retrieval.ModeKeyword),
			Destination: &x.defaultMode,
		},
	}
}

// Init initializes the tool. Without a retriever there is nothing to search,
// so the tool drops out of the catalog.
func (x *search) Init(ctx context.Context, client *tool.Client) (bool, error) {
	if client.Retriever == nil {
		return false, nil
	}
	if _, err := retrieval.ParseMode(x.defaultMode); err != nil {
		return false, err
	}

	x.retriever = client.Retriever
	return true, nil
}

// Prompt returns additional information to be added to the system prompt
func (x *search) Prompt(ctx context.Context) string {
	return `Before answering questions about the documents, call retrieve_chunks to fetch relevant passages. Each passage is prefixed with its source in [brackets]; answer only from retrieved passages and cite sources as [filename].`
}

// Spec returns the tool specification for Gemini function calling
func (x *search) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			tool.MustDeclaration("retrieve_chunks",
				"Retrieve document chunks relevant to a query, ranked by relevance",
				&jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"query": {
							Type:        "string",
							Description: "Search query",
						},
						"top_k": {
							Type:        "integer",
							Description: "Maximum number of chunks to return",
						},
						"mode": {
							Type:        "string",
							Description: "Scoring mode",
							Enum:        []any{"keyword", "vector", "hybrid"},
						},
					},
					Required: []string{"query"},
				}),
		},
	}
}

// Execute runs the tool with the given function call
func (x *search) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	paramsJSON, err := json.Marshal(fc.Args)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal function arguments")
	}

	var input retrieveInput
	if err := json.Unmarshal(paramsJSON, &input); err != nil {
		return nil, goerr.Wrap(err, "failed to parse input parameters")
	}

	modeStr := input.Mode
	if modeStr == "" {
		modeStr = x.defaultMode
	}
	mode, err := retrieval.ParseMode(modeStr)
	if err != nil {
		return nil, err
	}

	results, err := x.retriever.Retrieve(ctx, input.Query, input.TopK, mode)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to retrieve chunks", goerr.V("query", input.Query))
	}

	return &genai.FunctionResponse{
		ID:       fc.ID,
		Name:     fc.Name,
		Response: map[string]any{"result": FormatContext(results)},
	}, nil
}

// FormatContext renders scored chunks as source-tagged passages the model can
// quote and cite.
func FormatContext(results []model.ScoredChunk) string {
	if len(results) == 0 {
		return "No relevant chunks found."
	}

	blocks := make([]string, 0, len(results))
	for _, sc := range results {
		blocks = append(blocks, "["+sc.Chunk.SourceID+"]\n"+sc.Chunk.Content)
	}
	return strings.Join(blocks, "\n\n")
}
