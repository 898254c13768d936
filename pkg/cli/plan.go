package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/tidepool/pkg/retrieval"
	"github.com/m-mizutani/tidepool/pkg/usecase/agent"
	"github.com/urfave/cli/v3"
)

func planCommand() *cli.Command {
	var (
		cfg     config
		query   string
		modeStr string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "query",
			Aliases:     []string{"q"},
			Usage:       "Question to plan and answer",
			Destination: &query,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "retrieval-mode",
			Usage:       "Retrieval mode for the worker stage (keyword, vector, hybrid)",
			Value:       string(retrieval.ModeKeyword),
			Sources:     cli.EnvVars("TIDEPOOL_RETRIEVAL_MODE"),
			Destination: &modeStr,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, retrievalFlags(&cfg)...)

	return &cli.Command{
		Name:  "plan",
		Usage: "Answer via the two-stage planner/worker pipeline",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			if err := cfg.applyFile(c); err != nil {
				return err
			}

			mode, err := retrieval.ParseMode(modeStr)
			if err != nil {
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

			planner := agent.NewPlanner(gemini, retriever,
				agent.WithPlannerTopK(int(cfg.topK)),
				agent.WithPlannerMode(mode),
			)

			spin := newSpinner("planning...")
			spin.Start()
			result, err := planner.Run(ctx, query)
			spin.Stop()
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Objective: %s\n\n", result.Plan.Objective)
			for i, step := range result.Plan.Steps {
				fmt.Fprintf(c.Root().Writer, "  %d. %s\n", i+1, step)
			}
			fmt.Fprintf(c.Root().Writer, "\n%s\n", result.Answer)
			return nil
		},
	}
}
