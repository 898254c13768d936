package agent

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

//go:embed prompt/memory.md
var memoryPromptRaw string

var memoryPromptTmpl = template.Must(template.New("memory").Parse(memoryPromptRaw))

// UpdateMemory folds the latest user/assistant exchange into the memory
// summary with an auxiliary model call. The result replaces the summary
// wholesale; on any failure the previous summary stays in place.
func (s *Session) UpdateMemory(ctx context.Context) error {
	userMsg, assistantMsg, ok := s.lastExchange()
	if !ok {
		return goerr.New("no completed exchange to summarize",
			goerr.V("session", s.session.ID))
	}

	var buf bytes.Buffer
	if err := memoryPromptTmpl.Execute(&buf, map[string]any{
		"Previous":  s.session.Memory,
		"User":      userMsg,
		"Assistant": assistantMsg,
	}); err != nil {
		return goerr.Wrap(err, "failed to execute memory prompt template")
	}

	thinkingBudget := int32(0)
	config := &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  &thinkingBudget,
		},
	}

	resp, err := s.gemini.GenerateContent(ctx,
		[]*genai.Content{genai.NewContentFromText(buf.String(), genai.RoleUser)}, config)
	if err != nil {
		return goerr.Wrap(err, "failed to generate memory summary",
			goerr.V("session", s.session.ID))
	}

	summary := responseText(resp)
	if summary == "" {
		return goerr.New("empty memory summary generated",
			goerr.V("session", s.session.ID))
	}

	s.session.Memory = summary
	s.session.UpdatedAt = time.Now()
	return nil
}

// lastExchange returns the text of the most recent user message and the
// assistant answer that followed it.
func (s *Session) lastExchange() (string, string, bool) {
	var userMsg, assistantMsg string

	for i := len(s.session.Contents) - 1; i >= 0; i-- {
		content := s.session.Contents[i]
		text := contentText(content)
		if text == "" {
			continue
		}

		if content.Role == genai.RoleModel && assistantMsg == "" {
			assistantMsg = text
		}
		if content.Role == genai.RoleUser && assistantMsg != "" {
			userMsg = text
			break
		}
	}

	if userMsg == "" || assistantMsg == "" {
		return "", "", false
	}
	return userMsg, assistantMsg, true
}

// contentText concatenates the plain text parts of a content. Contents that
// only carry function traffic yield an empty string.
func contentText(content *genai.Content) string {
	var text strings.Builder
	for _, part := range content.Parts {
		if part.FunctionResponse != nil || part.FunctionCall != nil {
			return ""
		}
		if part.Text != "" {
			text.WriteString(part.Text)
		}
	}
	return text.String()
}

// responseText extracts the concatenated text of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	content := candidateContent(resp)
	if content == nil {
		return ""
	}

	var text strings.Builder
	for _, part := range content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(text.String())
}
