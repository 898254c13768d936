package tool

import (
	"context"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

var (
	// ErrUnknownTool is returned when the model names a function absent from
	// the registry.
	ErrUnknownTool = goerr.New("unknown tool")

	// ErrInvalidArguments is returned when arguments cannot be bound to the
	// declared parameters: a required key is missing or an undeclared key is
	// present. Rejection is strict; undeclared keys are never silently
	// dropped.
	ErrInvalidArguments = goerr.New("invalid tool arguments")
)

// entry binds one function declaration to the tool that serves it
type entry struct {
	tool Tool
	decl *genai.FunctionDeclaration
}

// Registry manages available tools for the LLM
type Registry struct {
	allTools []Tool
	entries  map[string]entry
	enabled  []Tool
}

// New creates a new tool registry with the given tools. Call Init before use
// to run tool setup and build the function catalog.
func New(tools ...Tool) *Registry {
	return &Registry{
		allTools: tools,
		entries:  make(map[string]entry),
	}
}

// Init runs each tool's setup and registers the function declarations of the
// tools that report themselves enabled.
func (r *Registry) Init(ctx context.Context, client *Client) error {
	r.entries = make(map[string]entry)
	r.enabled = nil

	for _, t := range r.allTools {
		ok, err := t.Init(ctx, client)
		if err != nil {
			return goerr.Wrap(err, "failed to initialize tool")
		}
		if !ok {
			continue
		}

		spec := t.Spec()
		if spec == nil || len(spec.FunctionDeclarations) == 0 {
			continue
		}

		r.enabled = append(r.enabled, t)
		for _, fd := range spec.FunctionDeclarations {
			r.entries[fd.Name] = entry{tool: t, decl: fd}
		}
	}

	return nil
}

// Specs returns the tool specifications of all enabled tools for Gemini
// function calling.
func (r *Registry) Specs() []*genai.Tool {
	specs := make([]*genai.Tool, 0, len(r.enabled))
	for _, t := range r.enabled {
		specs = append(specs, t.Spec())
	}
	return specs
}

// EnabledTools returns the registered function names in sorted order.
func (r *Registry) EnabledTools() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Prompts returns all enabled tool prompts concatenated
func (r *Registry) Prompts(ctx context.Context) string {
	var prompts []string
	for _, t := range r.enabled {
		if prompt := t.Prompt(ctx); prompt != "" {
			prompts = append(prompts, prompt)
		}
	}
	return strings.Join(prompts, "\n\n")
}

// Flags returns all tool flags combined
func (r *Registry) Flags() []cli.Flag {
	var flags []cli.Flag
	for _, t := range r.allTools {
		if toolFlags := t.Flags(); toolFlags != nil {
			flags = append(flags, toolFlags...)
		}
	}
	return flags
}

// Execute validates the function call against its declaration and runs the
// tool. Argument binding is strict: missing required keys and undeclared keys
// both fail before the tool sees anything.
func (r *Registry) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	e, ok := r.entries[fc.Name]
	if !ok {
		return nil, goerr.Wrap(ErrUnknownTool, "tool not found", goerr.V("name", fc.Name))
	}

	if err := bindArguments(e.decl, fc.Args); err != nil {
		return nil, err
	}

	return e.tool.Execute(ctx, fc)
}

// bindArguments checks the argument mapping against the declared parameter
// schema.
func bindArguments(decl *genai.FunctionDeclaration, args map[string]any) error {
	var properties map[string]*genai.Schema
	var required []string
	if decl.Parameters != nil {
		properties = decl.Parameters.Properties
		required = decl.Parameters.Required
	}

	for _, key := range required {
		if _, ok := args[key]; !ok {
			return goerr.Wrap(ErrInvalidArguments, "missing required argument",
				goerr.V("tool", decl.Name), goerr.V("argument", key))
		}
	}

	for key := range args {
		if _, ok := properties[key]; !ok {
			return goerr.Wrap(ErrInvalidArguments, "unexpected argument",
				goerr.V("tool", decl.Name), goerr.V("argument", key))
		}
	}

	return nil
}
