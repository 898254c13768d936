package basic

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/tool"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

// Tool provides the built-in utility functions: clock, random numbers,
// arithmetic, and a per-session todo list. All state lives on the Tool
// instance, so separate sessions never see each other's todos.
type Tool struct {
	now     func() time.Time
	randInt func(min, max int) int
	todos   *TodoStore
}

// New creates a new basic tool
func New() *Tool {
	return &Tool{
		now: time.Now,
		randInt: func(min, max int) int {
			return min + rand.IntN(max-min+1)
		},
		todos: NewTodoStore(),
	}
}

// Flags returns CLI flags for this tool
func (t *Tool) Flags() []cli.Flag {
	return nil
}

// Init initializes the basic tool. Always enabled.
func (t *Tool) Init(ctx context.Context, client *tool.Client) (bool, error) {
	return true, nil
}

// Prompt returns additional information to be added to the system prompt
func (t *Tool) Prompt(ctx context.Context) string {
	return "Use calculate for any arithmetic instead of computing in your head. The todo list is scoped to this conversation."
}

// Spec returns the tool specification for Gemini function calling
func (t *Tool) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "get_time",
				Description: "Get the current date and time",
			},
			{
				Name:        "random_number",
				Description: "Generate a random integer between min and max (inclusive)",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"min": {
							Type:        genai.TypeInteger,
							Description: "Lower bound (inclusive)",
						},
						"max": {
							Type:        genai.TypeInteger,
							Description: "Upper bound (inclusive)",
						},
					},
					Required: []string{"min", "max"},
				},
			},
			{
				Name:        "calculate",
				Description: "Evaluate an arithmetic expression with +, -, *, / and parentheses",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"expression": {
							Type:        genai.TypeString,
							Description: "Arithmetic expression, e.g. (2 + 3) * 4",
						},
					},
					Required: []string{"expression"},
				},
			},
			{
				Name:        "todo_add",
				Description: "Add a task to the session todo list",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"task": {
							Type:        genai.TypeString,
							Description: "Task description",
						},
					},
					Required: []string{"task"},
				},
			},
			{
				Name:        "todo_list",
				Description: "List all tasks on the session todo list",
			},
		},
	}
}

// Execute runs the tool with the given function call
func (t *Tool) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	switch fc.Name {
	case "get_time":
		return t.executeGetTime(ctx, fc)
	case "random_number":
		return t.executeRandomNumber(ctx, fc)
	case "calculate":
		return t.executeCalculate(ctx, fc)
	case "todo_add":
		return t.executeTodoAdd(ctx, fc)
	case "todo_list":
		return t.executeTodoList(ctx, fc)
	default:
		return nil, goerr.New("unknown function", goerr.V("name", fc.Name))
	}
}

func (t *Tool) executeGetTime(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	return response(fc, t.now().Format("2006-01-02 15:04:05")), nil
}

func (t *Tool) executeRandomNumber(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	var input struct {
		Min int `json:"min"`
		Max int `json:"max"`
	}
	if err := bindInput(fc, &input); err != nil {
		return nil, err
	}

	if input.Min > input.Max {
		return nil, goerr.New("min must not exceed max",
			goerr.V("min", input.Min), goerr.V("max", input.Max))
	}

	return response(fc, t.randInt(input.Min, input.Max)), nil
}

func (t *Tool) executeCalculate(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	var input struct {
		Expression string `json:"expression"`
	}
	if err := bindInput(fc, &input); err != nil {
		return nil, err
	}

	value, err := Evaluate(input.Expression)
	if err != nil {
		return nil, err
	}

	return response(fc, value), nil
}

func (t *Tool) executeTodoAdd(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	var input struct {
		Task string `json:"task"`
	}
	if err := bindInput(fc, &input); err != nil {
		return nil, err
	}
	if input.Task == "" {
		return nil, goerr.New("task must not be empty")
	}

	t.todos.Add(input.Task)
	return response(fc, map[string]any{
		"added": input.Task,
		"count": t.todos.Len(),
	}), nil
}

func (t *Tool) executeTodoList(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	return response(fc, t.todos.List()), nil
}

func bindInput(fc genai.FunctionCall, dst any) error {
	raw, err := json.Marshal(fc.Args)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal function arguments")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return goerr.Wrap(err, "failed to parse input parameters")
	}
	return nil
}

func response(fc genai.FunctionCall, result any) *genai.FunctionResponse {
	return &genai.FunctionResponse{
		ID:       fc.ID,
		Name:     fc.Name,
		Response: map[string]any{"result": result},
	}
}
