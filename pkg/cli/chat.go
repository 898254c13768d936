package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/tool"
	"github.com/m-mizutani/tidepool/pkg/usecase/agent"
	"github.com/m-mizutani/tidepool/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var (
		cfg  config
		cite bool
	)
	registry := newRegistry()

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "cite",
			Usage:       "Require source citations in answers",
			Destination: &cite,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, retrievalFlags(&cfg)...)
	flags = append(flags, registry.Flags()...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive session over a document collection",
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

			rl, err := readline.New("> ")
			if err != nil {
				return goerr.Wrap(err, "failed to open terminal")
			}
			defer rl.Close()

			fmt.Fprintf(c.Root().Writer, "Chat session %s started. Type 'exit' to quit.\n", session.ID())

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				message := strings.TrimSpace(line)
				if message == "exit" {
					break
				}
				if message == "" {
					continue
				}

				spin := newSpinner("thinking...")
				spin.Start()
				answer, err := session.Send(ctx, message)
				spin.Stop()
				if err != nil {
					// The session survives a failed turn; report and keep going
					fmt.Fprintf(c.Root().Writer, "error: %v\n", err)
					continue
				}

				fmt.Fprintf(c.Root().Writer, "%s\n", answer)

				if err := session.UpdateMemory(ctx); err != nil {
					logging.From(ctx).Warn("memory compaction failed", "error", err)
				}
			}

			fmt.Fprintf(c.Root().Writer, "\nChat session completed\n")
			return nil
		},
	}
}
