package commands

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/koscakluka/ema-sales/core/metrics"
	"github.com/spf13/cobra"
)

var consoleLeadID string

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Talk to the agent in the terminal",
	Long: `Rehearse a call by typing the lead's side of the conversation.

The same orchestrator the webhook server uses answers every line. Submitting
an empty line counts as the lead staying silent. Without Google credentials
meetings are booked on an in-memory calendar.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		directory, err := loadDirectory(ctx, cfg)
		if err != nil {
			return err
		}
		lead, err := directory.Lead(ctx, consoleLeadID)
		if err != nil {
			return err
		}
		orchestrator, err := newOrchestrator(ctx, cfg, directory, metrics.NewMetrics(""))
		if err != nil {
			return err
		}

		model := newConsoleModel(ctx, orchestrator, "console-"+uuid.NewString(), lead)
		if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
			return fmt.Errorf("console failed: %w", err)
		}
		return nil
	},
}

func init() {
	consoleCmd.Flags().StringVar(&consoleLeadID, "lead-id", "", "lead to role-play")
	_ = consoleCmd.MarkFlagRequired("lead-id")
}
