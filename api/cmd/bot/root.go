package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chart-bot/api/internal/config"
	"chart-bot/api/internal/inference"
	"chart-bot/api/internal/inference/gemini"
	"chart-bot/api/internal/inference/openai"
	"chart-bot/api/internal/pipeline"
)

const rootLongDesc = `Telegram bot that reads a trading chart screenshot (RSI + MACD)
and replies with a short-horizon direction forecast produced by a
multimodal model.

Without a subcommand the bot is started (same as "bot serve").`

type rootCommander struct {
	debug   bool
	envFile string
}

func newRootCmd() *cobra.Command {
	cmder := &rootCommander{}

	cmd := &cobra.Command{
		Use:          "bot",
		Short:        "Chart screenshot forecast bot",
		Long:         rootLongDesc,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.serve(cmd.Context())
		},
	}

	cmd.PersistentFlags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&cmder.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	cmd.AddCommand(newServeCmd(cmder))
	cmd.AddCommand(newAnalyzeCmd(cmder))
	return cmd
}

// newEngine returns the engine named by cfg.Provider.
func newEngine(cfg *config.Config) (inference.Engine, error) {
	engines := inference.Engines{
		OpenAI: openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIURL),
		Gemini: gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel),
	}
	return engines.GetEngine(cfg.Provider)
}

func newPipeline(cfg *config.Config, log *zap.Logger) (*pipeline.Pipeline, error) {
	eng, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("inference engine ready",
		zap.String("engine", eng.Name()),
		zap.String("model", eng.GetModel()),
		zap.Bool("prompt_from_file", cfg.PromptFromFile()),
		zap.Int("max_edge", cfg.Image.MaxEdge),
		zap.Int("jpeg_quality", cfg.Image.Quality),
	)
	return pipeline.New(pipeline.Options{
		Engine:       eng,
		SystemPrompt: cfg.SystemPrompt,
		Image:        cfg.Image,
		Logger:       log,
	})
}
