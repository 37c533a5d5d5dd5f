package commands

import (
	"fmt"

	"github.com/koscakluka/ema-sales/core/telephony/twilio"
	"github.com/spf13/cobra"
)

var (
	callLeadID  string
	callTo      string
	callBaseURL string
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Place an outbound call to a lead",
	Long: `Place an outbound call through Twilio. The call is answered by the
webhook server started with "salescall serve".

Examples:
  salescall call --lead-id lead_001
  salescall call --lead-id lead_001 --to +15551234567`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if callBaseURL != "" {
			cfg.PublicBaseURL = callBaseURL
		}

		directory, err := loadDirectory(ctx, cfg)
		if err != nil {
			return err
		}
		lead, err := directory.Lead(ctx, callLeadID)
		if err != nil {
			return err
		}

		dialer, err := twilio.NewDialer(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber, cfg.PublicBaseURL)
		if err != nil {
			return err
		}
		sid, err := dialer.Dial(ctx, lead, callTo)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Call initiated to %s (%s), SID: %s\n", lead.Name, lead.ID, sid)
		return nil
	},
}

func init() {
	callCmd.Flags().StringVar(&callLeadID, "lead-id", "", "lead to call")
	callCmd.Flags().StringVar(&callTo, "to", "", "number to dial instead of the lead's own")
	callCmd.Flags().StringVar(&callBaseURL, "base-url", "", "public URL of the webhook server (default $PUBLIC_BASE_URL)")
	_ = callCmd.MarkFlagRequired("lead-id")
}
