package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/tool"
	"github.com/m-mizutani/tidepool/pkg/tool/basic"
	"github.com/m-mizutani/tidepool/pkg/tool/docs"
	"github.com/m-mizutani/tidepool/pkg/tool/weather"
	"github.com/m-mizutani/tidepool/pkg/usecase/agent"
	"github.com/urfave/cli/v3"
)

// newRegistry assembles the tool set every agent command offers
func newRegistry() *tool.Registry {
	return tool.New(docs.New(), basic.New(), weather.New())
}

// newSpinner creates the progress indicator shown during model calls
func newSpinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + suffix
	return s
}

func askCommand() *cli.Command {
	var (
		cfg   config
		query string
		cite  bool
	)
	registry := newRegistry()

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "query",
			Aliases:     []string{"q"},
			Usage:       "Question to ask about the documents",
			Destination: &query,
			Required:    true,
		},
		&cli.BoolFlag{
			Name:        "cite",
			Usage:       "Require source citations in the answer",
			Destination: &cite,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, retrievalFlags(&cfg)...)
	flags = append(flags, registry.Flags()...)

	return &cli.Command{
		Name:  "ask",
		Usage: "Ask a one-shot question about a document collection",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			if err := cfg.applyFile(c); err != nil {
				return err
			}

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			retriever, err := cfg.newRetriever(ctx, gemini)
			if err != nil {
				return err
			}

			if err := registry.Init(ctx, &tool.Client{Gemini: gemini, Retriever: retriever}); err != nil {
				return goerr.Wrap(err, "failed to initialize tools")
			}

			session, err := agent.New(ctx, agent.NewInput{
				Gemini:   gemini,
				Registry: registry,
				MaxTurns: int(cfg.maxTurns),
				Citation: cite,
			})
			if err != nil {
				return err
			}

			spin := newSpinner("thinking...")
			spin.Start()
			answer, err := session.Send(ctx, query)
			spin.Stop()
			if err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, answer)
			return nil
		},
	}
}
