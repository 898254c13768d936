package tool

import (
	"context"

	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

// Tool represents an external capability that can be called by the LLM
type Tool interface {
	// Spec returns the tool specification for Gemini function calling
	Spec() *genai.Tool

	// Execute runs the tool with the given function call and returns the response.
	// Recoverable conditions should be reported in the response payload, not
	// as an error; returned errors are forwarded to the model as an error
	// payload by the agent loop.
	Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error)

	// Prompt returns additional information to be added to the system prompt
	// Returns empty string if no additional prompt is needed
	Prompt(ctx context.Context) string

	// Flags returns CLI flags for this tool
	// Returns nil if no flags are needed
	Flags() []cli.Flag

	// Init prepares the tool and reports whether it is enabled. Tools missing
	// required configuration return false to drop out of the catalog.
	Init(ctx context.Context, client *Client) (bool, error)
}
