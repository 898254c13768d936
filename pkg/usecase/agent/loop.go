package agent

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/tool"
	"github.com/m-mizutani/tidepool/pkg/utils/logging"
	"google.golang.org/genai"
)

var (
	// ErrProtocolViolation is returned when the model produces a turn with
	// neither text nor a function call. The turn is aborted; the conversation
	// keeps the contents accumulated so far.
	ErrProtocolViolation = goerr.New("model response has neither text nor function call")

	// ErrMaxTurnsExceeded is returned when a single Send exhausts its
	// model/tool round-trip budget without reaching a final answer.
	ErrMaxTurnsExceeded = goerr.New("max turns exceeded")
)

// Send runs one user turn through the agent loop: call the model, execute any
// requested tools, feed results back, and repeat until the model answers in
// text. Tool failures are reported back to the model as error payloads rather
// than aborting the turn.
func (s *Session) Send(ctx context.Context, message string) (string, error) {
	logger := logging.From(ctx)

	s.session.Contents = append(s.session.Contents,
		genai.NewContentFromText(message, genai.RoleUser))

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(s.systemPrompt, ""),
	}
	if specs := s.registry.Specs(); len(specs) > 0 {
		config.Tools = specs
	}

	for turn := 0; turn < s.maxTurns; turn++ {
		resp, err := s.gemini.GenerateContent(ctx, s.requestContents(), config)
		if err != nil {
			return "", goerr.Wrap(err, "failed to generate content",
				goerr.V("session", s.session.ID), goerr.V("turn", turn))
		}

		content := candidateContent(resp)
		if content == nil {
			return "", goerr.Wrap(ErrProtocolViolation, "empty candidate",
				goerr.V("session", s.session.ID))
		}

		text, calls := splitParts(content)

		if len(calls) == 0 {
			if text == "" {
				return "", goerr.Wrap(ErrProtocolViolation, "empty assistant content",
					goerr.V("session", s.session.ID))
			}
			s.session.Contents = append(s.session.Contents, content)
			s.session.UpdatedAt = time.Now()
			return text, nil
		}

		// The assistant content carrying the batch goes in first, then one
		// tool-response content per call keyed by its call ID, in arrival
		// order.
		s.session.Contents = append(s.session.Contents, content)
		for _, call := range calls {
			logger.Debug("executing tool",
				"name", call.Name, "call_id", call.ID, "turn", turn)

			funcResp := s.executeCall(ctx, call)
			s.session.Contents = append(s.session.Contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{FunctionResponse: funcResp}},
			})
		}
	}

	return "", goerr.Wrap(ErrMaxTurnsExceeded, "agent loop did not converge",
		goerr.V("session", s.session.ID), goerr.V("max_turns", s.maxTurns))
}

// requestContents prepends the memory summary, when present, to the
// conversation sent to the model.
func (s *Session) requestContents() []*genai.Content {
	if s.session.Memory == "" {
		return s.session.Contents
	}

	memoryContent := genai.NewContentFromText(
		"=== Conversation memory ===\n\n"+s.session.Memory, genai.RoleUser)
	contents := make([]*genai.Content, 0, len(s.session.Contents)+1)
	contents = append(contents, memoryContent)
	return append(contents, s.session.Contents...)
}

// executeCall normalizes the arguments and runs one tool call. Any failure
// becomes an error payload in the FunctionResponse so the model can react.
func (s *Session) executeCall(ctx context.Context, call genai.FunctionCall) *genai.FunctionResponse {
	args, err := tool.NormalizeArguments(call.Args)
	if err == nil {
		call.Args = args
		var resp *genai.FunctionResponse
		resp, err = s.registry.Execute(ctx, call)
		if err == nil {
			return resp
		}
	}

	logging.From(ctx).Warn("tool call failed",
		"name", call.Name, "call_id", call.ID, "error", err)

	return &genai.FunctionResponse{
		ID:       call.ID,
		Name:     call.Name,
		Response: map[string]any{"error": err.Error()},
	}
}

// candidateContent extracts the first candidate's content from a response
func candidateContent(resp *genai.GenerateContentResponse) *genai.Content {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	return resp.Candidates[0].Content
}

// splitParts separates the assistant content into its text and its function
// calls, preserving call arrival order.
func splitParts(content *genai.Content) (string, []genai.FunctionCall) {
	var text strings.Builder
	var calls []genai.FunctionCall

	for _, part := range content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			calls = append(calls, *part.FunctionCall)
		}
	}

	return text.String(), calls
}
