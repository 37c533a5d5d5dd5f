package commands

import (
	"fmt"
	"time"

	"github.com/koscakluka/ema-sales/core/scheduling"
	"github.com/spf13/cobra"
)

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "Print the next open meeting slots",
	Long: `Print the slots the agent would propose right now, read from the
calendar in the company profile.`,
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
		profile, err := directory.Profile(ctx)
		if err != nil {
			return err
		}
		if err := profile.Validate(); err != nil {
			return err
		}
		hours, err := profile.Scheduling.BusinessHours()
		if err != nil {
			return err
		}
		cal, err := newCalendar(ctx, cfg)
		if err != nil {
			return err
		}

		params := profile.Scheduling
		loc, err := time.LoadLocation(params.Timezone)
		if err != nil {
			return err
		}
		from := time.Now().In(loc)
		to := from.Add(params.LookAhead())

		busy, err := cal.Busy(ctx, params.CalendarID, from.UTC(), to.UTC())
		if err != nil {
			return err
		}
		starts := scheduling.FindSlots(ctx, scheduling.Query{
			Busy:        busy,
			WindowStart: from,
			WindowEnd:   to,
			Hours:       hours,
			Duration:    params.MeetingDuration(),
			Count:       params.SlotsToPropose,
			Timezone:    params.Timezone,
		})

		out := cmd.OutOrStdout()
		if len(starts) == 0 {
			fmt.Fprintf(out, "No open slots in the next %d days.\n", params.DaysToCheckAvailability)
			return nil
		}
		for _, slot := range scheduling.ProposeSlots(starts, params.Timezone) {
			fmt.Fprintf(out, "%d: %s\n", slot.Index, slot.Label)
		}
		return nil
	},
}
