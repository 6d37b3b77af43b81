package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/martinemde/codeagent/agent"
	"github.com/martinemde/codeagent/llm"
)

var apiKeyEnvVars = map[string]string{
	"gemini":    "GEMINI_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

func main() {
	var (
		configPath    string
		workspaceDir  string
		provider      string
		model         string
		maxIterations int
		showSummary   bool
		logLevel      string
	)

	rootCmd := &cobra.Command{
		Use:   "codeagent [prompt]",
		Short: "AI coding assistant sandboxed to a workspace directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := agent.DefaultConfig()
			if configPath != "" {
				loaded, err := agent.LoadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if cmd.Flags().Changed("workspace") {
				cfg.Workspace = workspaceDir
			}
			if cmd.Flags().Changed("provider") {
				cfg.Provider = provider
			}
			if cmd.Flags().Changed("model") {
				cfg.Model = model
			}
			if cmd.Flags().Changed("max-iterations") {
				cfg.MaxIterations = maxIterations
			}

			logger, err := newLogger(logLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			envVar, ok := apiKeyEnvVars[cfg.Provider]
			if !ok {
				return fmt.Errorf("unsupported provider %q", cfg.Provider)
			}
			apiKey := os.Getenv(envVar)
			if apiKey == "" {
				return fmt.Errorf("%s environment variable not set", envVar)
			}

			var adapterOpts []llm.GollmOption
			if cfg.Model != "" {
				adapterOpts = append(adapterOpts, llm.WithModel(cfg.Model))
			}
			adapter, err := llm.NewGollmAdapter(cfg.Provider, apiKey, adapterOpts...)
			if err != nil {
				return err
			}
			client := llm.NewClient(llm.WithProvider(cfg.Provider, adapter))

			a, err := agent.New(cfg, client, agent.WithLogger(logger))
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			logger.Info("agent execution completed")
			fmt.Println("\nFinal response:")
			fmt.Println(result.Response)

			if showSummary {
				fmt.Println("\nSession Summary:")
				fmt.Printf("Iterations: %d\n", result.Iterations)
				fmt.Printf("Tokens used: %d\n", result.TokensUsed)
				fmt.Printf("Functions called: %d\n", result.FunctionsCalled)
				if len(result.Errors) > 0 {
					fmt.Printf("Errors: %d\n", len(result.Errors))
				}
				fmt.Println(result.Summary())
			}
			return nil
		},
	}

	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.Flags().StringVar(&workspaceDir, "workspace", ".", "Workspace directory")
	rootCmd.Flags().StringVar(&provider, "provider", "gemini", "Model provider")
	rootCmd.Flags().StringVar(&model, "model", "", "Model name (provider default if empty)")
	rootCmd.Flags().IntVar(&maxIterations, "max-iterations", 20, "Maximum agent iterations")
	rootCmd.Flags().BoolVar(&showSummary, "summary", false, "Show session summary")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Logging level (debug, info, warn, error)")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}
