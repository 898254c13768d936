package agent

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"text/template"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/adapter"
	"github.com/m-mizutani/tidepool/pkg/retrieval"
	"github.com/m-mizutani/tidepool/pkg/tool/docs"
	"google.golang.org/genai"
)

//go:embed prompt/plan.md
var planPromptRaw string

//go:embed prompt/worker.md
var workerPromptRaw string

var (
	planPromptTmpl   = template.Must(template.New("plan").Parse(planPromptRaw))
	workerPromptTmpl = template.Must(template.New("worker").Parse(workerPromptRaw))
)

// Plan is the structured output of the planning call
type Plan struct {
	Objective   string    `json:"objective"`
	Steps       []string  `json:"steps"`
	GeneratedAt time.Time `json:"generated_at"`
}

// PlanResult bundles the plan with the worker's answer
type PlanResult struct {
	Plan   *Plan
	Answer string
}

// Planner runs the two-stage plan/execute pipeline: one model call to produce
// a step list, one worker call to answer with the plan and retrieved context.
// There is no feedback loop; a failure in either stage is terminal.
type Planner struct {
	gemini    adapter.Gemini
	retriever *retrieval.Retriever
	topK      int
	mode      retrieval.Mode
}

// PlannerOption configures a Planner
type PlannerOption func(*Planner)

// WithPlannerTopK sets how many chunks the worker stage retrieves
func WithPlannerTopK(k int) PlannerOption {
	return func(p *Planner) {
		p.topK = k
	}
}

// WithPlannerMode sets the retrieval mode of the worker stage
func WithPlannerMode(mode retrieval.Mode) PlannerOption {
	return func(p *Planner) {
		p.mode = mode
	}
}

// NewPlanner creates a new planner. The retriever may be nil, in which case
// the worker runs without document context.
func NewPlanner(gemini adapter.Gemini, retriever *retrieval.Retriever, opts ...PlannerOption) *Planner {
	p := &Planner{
		gemini:    gemini,
		retriever: retriever,
		mode:      retrieval.ModeKeyword,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the pipeline for one query
func (p *Planner) Run(ctx context.Context, query string) (*PlanResult, error) {
	plan, err := p.generatePlan(ctx, query)
	if err != nil {
		return nil, err
	}

	answer, err := p.runWorker(ctx, query, plan)
	if err != nil {
		return nil, err
	}

	return &PlanResult{Plan: plan, Answer: answer}, nil
}

// generatePlan asks the model for a structured step list
func (p *Planner) generatePlan(ctx context.Context, query string) (*Plan, error) {
	var buf bytes.Buffer
	if err := planPromptTmpl.Execute(&buf, map[string]any{"Query": query}); err != nil {
		return nil, goerr.Wrap(err, "failed to execute plan prompt template")
	}

	thinkingBudget := int32(0)
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  &thinkingBudget,
		},
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"objective": {
					Type:        genai.TypeString,
					Description: "What the answer must establish",
				},
				"steps": {
					Type:        genai.TypeArray,
					Description: "Ordered retrieval and reasoning steps",
					Items: &genai.Schema{
						Type: genai.TypeString,
					},
				},
			},
			Required: []string{"objective", "steps"},
		},
	}

	resp, err := p.gemini.GenerateContent(ctx,
		[]*genai.Content{genai.NewContentFromText(buf.String(), genai.RoleUser)}, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate plan")
	}

	rawJSON := responseText(resp)
	if rawJSON == "" {
		return nil, goerr.New("empty plan generated")
	}

	var planData struct {
		Objective string   `json:"objective"`
		Steps     []string `json:"steps"`
	}
	if err := json.Unmarshal([]byte(rawJSON), &planData); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal plan JSON",
			goerr.V("json", rawJSON))
	}
	if len(planData.Steps) == 0 {
		return nil, goerr.New("plan has no steps", goerr.V("json", rawJSON))
	}

	return &Plan{
		Objective:   planData.Objective,
		Steps:       planData.Steps,
		GeneratedAt: time.Now(),
	}, nil
}

// runWorker answers the query with the plan and retrieved context
func (p *Planner) runWorker(ctx context.Context, query string, plan *Plan) (string, error) {
	docContext := "No relevant chunks found."
	if p.retriever != nil {
		results, err := p.retriever.Retrieve(ctx, query, p.topK, p.mode)
		if err != nil {
			return "", goerr.Wrap(err, "failed to retrieve worker context")
		}
		docContext = docs.FormatContext(results)
	}

	var buf bytes.Buffer
	if err := workerPromptTmpl.Execute(&buf, map[string]any{
		"Objective": plan.Objective,
		"Steps":     plan.Steps,
		"Context":   docContext,
		"Query":     query,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute worker prompt template")
	}

	resp, err := p.gemini.GenerateContent(ctx,
		[]*genai.Content{genai.NewContentFromText(buf.String(), genai.RoleUser)}, nil)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate worker answer")
	}

	answer := responseText(resp)
	if answer == "" {
		return "", goerr.New("empty worker answer")
	}
	return answer, nil
}
