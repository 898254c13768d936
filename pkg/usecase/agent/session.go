package agent

import (
	"context"
	_ "embed"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/adapter"
	"github.com/m-mizutani/tidepool/pkg/model"
	"github.com/m-mizutani/tidepool/pkg/tool"
	"google.golang.org/genai"
)

//go:embed prompt/system.md
var systemPromptRaw string

//go:embed prompt/citation.md
var citationPromptRaw string

// DefaultMaxTurns bounds the model/tool round trips of a single Send call.
const DefaultMaxTurns = 10

// Session manages one agent conversation: the content history, the rolling
// memory summary, and the tools the model may call. All conversation state
// lives here; nothing is shared between sessions.
type Session struct {
	gemini   adapter.Gemini
	registry *tool.Registry

	session      *model.Session
	systemPrompt string
	maxTurns     int
}

// NewInput contains parameters for creating a new agent session
type NewInput struct {
	Gemini   adapter.Gemini
	Registry *tool.Registry

	// MaxTurns overrides DefaultMaxTurns when positive
	MaxTurns int

	// Citation appends the citation instruction to the system prompt
	Citation bool
}

// New creates a new agent session
func New(ctx context.Context, input NewInput) (*Session, error) {
	if input.Gemini == nil {
		return nil, goerr.New("gemini adapter is required")
	}
	if input.Registry == nil {
		return nil, goerr.New("tool registry is required")
	}

	maxTurns := input.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	sections := []string{strings.TrimSpace(systemPromptRaw)}
	if input.Citation {
		sections = append(sections, strings.TrimSpace(citationPromptRaw))
	}
	if toolPrompts := input.Registry.Prompts(ctx); toolPrompts != "" {
		sections = append(sections, toolPrompts)
	}

	now := time.Now()
	return &Session{
		gemini:   input.Gemini,
		registry: input.Registry,
		session: &model.Session{
			ID:        model.NewSessionID(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		systemPrompt: strings.Join(sections, "\n\n"),
		maxTurns:     maxTurns,
	}, nil
}

// ID returns the session identifier
func (s *Session) ID() model.SessionID {
	return s.session.ID
}

// Memory returns the current memory summary, empty until the first
// successful compaction.
func (s *Session) Memory() string {
	return s.session.Memory
}

// History returns the conversation contents accumulated so far
func (s *Session) History() []*genai.Content {
	return s.session.Contents
}

// Test helpers - exported versions of private state for testing

// SetMemoryForTest overwrites the memory summary directly
func (s *Session) SetMemoryForTest(memory string) {
	s.session.Memory = memory
}
