package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chart-bot/api/internal/config"
	"chart-bot/api/internal/imaging"
	"chart-bot/api/internal/logger"
)

const analyzeLongDesc = `Run one screenshot through the forecast pipeline and print the reply
the bot would send. Only the inference credentials are needed.

Examples:
  bot analyze chart.png
  bot analyze --raw --env-file ./dev.env chart.jpg`

type analyzeCommander struct {
	root *rootCommander
	raw  bool
}

func newAnalyzeCmd(root *rootCommander) *cobra.Command {
	cmder := &analyzeCommander{root: root}

	cmd := &cobra.Command{
		Use:   "analyze <image>",
		Short: "Forecast a local chart screenshot",
		Long:  analyzeLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args[0])
		},
	}
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Also print the JSON extracted from the model answer")
	return cmd
}

func (c *analyzeCommander) run(ctx context.Context, cmd *cobra.Command, path string) error {
	log := logger.New(c.root.debug)
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load(config.Options{EnvFile: c.root.envFile})
	if err != nil {
		return err
	}
	pl, err := newPipeline(cfg, log)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read %s: %w", path, err)
	}

	res := pl.Run(ctx, imaging.Payload{Data: data, MimeType: http.DetectContentType(data)})
	log.Debug("analyze finished", zap.String("run_id", res.ID), zap.String("outcome", string(res.Outcome)))

	out := cmd.OutOrStdout()
	if c.raw && res.Extraction.Fields != nil {
		fmt.Fprintf(out, "%s (%s)\n\n", res.Extraction.Fields.JSON(), res.Extraction.Outcome)
	}
	fmt.Fprintln(out, res.Reply)
	return res.Err
}
