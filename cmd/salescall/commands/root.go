package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/koscakluka/ema-sales/cmd/salescall/internal/config"
	"github.com/koscakluka/ema-sales/core/leads"
	"github.com/spf13/cobra"
)

var (
	verbose     bool
	envFile     string
	leadsFile   string
	profileFile string
)

var rootCmd = &cobra.Command{
	Use:   "salescall",
	Short: "Outbound sales calls that book meetings",
	Long: `salescall - An AI sales agent that calls leads, qualifies interest
and books meetings on a shared calendar.

Settings are read from the environment and an optional .env file:
  LLM_PROVIDER                    gemini (default), openai or groq
  GEMINI_API_KEY, OPENAI_API_KEY, GROQ_API_KEY
  TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, TWILIO_PHONE_NUMBER
  GOOGLE_APPLICATION_CREDENTIALS  service account for Google Calendar
  DEEPGRAM_API_KEY, DEEPGRAM_VOICE
  PUBLIC_BASE_URL (or NGROK_URL)  where Twilio reaches the server

Examples:
  # Run the webhook server and place a call
  salescall serve
  salescall call --lead-id lead_001

  # Rehearse a conversation without a phone
  salescall console --lead-id lead_001`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&leadsFile, "leads", "", "leads file (default $LEADS_FILE or "+config.DefaultLeadsFile+")")
	rootCmd.PersistentFlags().StringVar(&profileFile, "profile", "", "company profile file (default $PROFILE_FILE or "+config.DefaultProfileFile+")")

	rootCmd.AddCommand(serveCmd, callCmd, slotsCmd, consoleCmd, schemaCmd)
}

// loadConfig resolves settings, letting flags win over the environment.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, err
	}
	if leadsFile != "" {
		cfg.LeadsFile = leadsFile
	}
	if profileFile != "" {
		cfg.ProfileFile = profileFile
	}
	return cfg, nil
}

func loadDirectory(ctx context.Context, cfg config.Config) (*leads.Static, error) {
	directory, err := leads.Load(ctx, cfg.LeadsFile, cfg.ProfileFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load call data: %w", err)
	}
	return directory, nil
}
