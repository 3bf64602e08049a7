package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/chompy-labs/chompy/internal/app/engagement"
	"github.com/chompy-labs/chompy/internal/daemon"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status USER",
	Short: "Show level, streak, pet and challenges for a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withSession(cmd.Context(), args[0], func(_ *daemon.Daemon, svc *engagement.Service) error {
		s := svc.Snapshot()
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "User:         %s\n", s.UserID)
		fmt.Fprintf(out, "Level:        %d  %s  (%d XP to next)\n", s.Progress.Level, renderBar(s.ProgressPct), s.XPToNext)
		fmt.Fprintf(out, "Total XP:     %d\n", s.TotalXP)
		fmt.Fprintf(out, "Streak:       %d day(s)\n", s.Streak)
		fmt.Fprintf(out, "Meals logged: %d\n", s.FoodLogCount)
		fmt.Fprintf(out, "Achievements: %d / %d\n", s.UnlockedCount, len(s.Achievements))
		fmt.Fprintf(out, "Pet:          %s (level %d, %s, %s)\n", s.Pet.Name, s.Pet.Level, s.Pet.Mood, hearts(s.Pet.Happiness))

		if len(s.Challenges) == 0 {
			return nil
		}
		fmt.Fprintln(out)
		now := time.Now()
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCHALLENGE\tPROGRESS\tSTATUS")
		for _, c := range s.Challenges {
			fmt.Fprintf(w, "%s\t%s %s\t%d/%d %s\t%s\n",
				c.ID,
				c.Icon, c.Title,
				c.DisplayCurrent(), c.Target, c.Unit,
				c.Status(now),
			)
		}
		return w.Flush()
	})
}
