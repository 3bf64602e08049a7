package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/chompy-labs/chompy/internal/app/engagement"
	"github.com/chompy-labs/chompy/internal/daemon"
)

func init() {
	challengeCmd.AddCommand(challengeListCmd, challengeAcceptCmd, challengeProgressCmd)
	rootCmd.AddCommand(challengeCmd)
}

var challengeCmd = &cobra.Command{
	Use:   "challenge",
	Short: "Browse, accept and advance weekly challenges",
}

var challengeListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the challenge templates",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tCHALLENGE\tTARGET\tREWARD")
		for i, t := range engagement.AllChallengeTemplates() {
			fmt.Fprintf(w, "%d\t%s %s\t%d %s\t%d XP\n", i, t.Icon, t.Title, t.Target, t.Unit, t.XPReward)
		}
		return w.Flush()
	},
}

var challengeAcceptCmd = &cobra.Command{
	Use:   "accept USER INDEX",
	Short: "Accept a challenge template",
	Args:  cobra.ExactArgs(2),
	RunE:  runChallengeAccept,
}

var challengeProgressCmd = &cobra.Command{
	Use:   "progress USER ID [INC]",
	Short: "Advance an accepted challenge (default +1)",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runChallengeProgress,
}

func runChallengeAccept(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid template index %q", args[1])
	}
	return withSession(cmd.Context(), args[0], func(_ *daemon.Daemon, svc *engagement.Service) error {
		out, err := svc.AcceptChallenge(cmd.Context(), index)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if out.Challenge != nil {
			c := out.Challenge
			fmt.Fprintf(w, "Accepted %s %s (%s)\n", c.Icon, c.Title, c.ID)
			fmt.Fprintf(w, "Ends %s\n", c.EndDate.Local().Format(time.RFC1123))
			return nil
		}
		fmt.Fprintln(w, "Challenge already in progress.")
		return nil
	})
}

func runChallengeProgress(cmd *cobra.Command, args []string) error {
	inc := 1
	if len(args) == 3 {
		v, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid increment %q", args[2])
		}
		inc = v
	}
	return withSession(cmd.Context(), args[0], func(_ *daemon.Daemon, svc *engagement.Service) error {
		out, err := svc.UpdateChallengeProgress(cmd.Context(), args[1], inc)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if c := out.Challenge; c != nil {
			fmt.Fprintf(w, "%s %s %s %d/%d %s\n", c.Icon, c.Title, renderBar(c.ProgressPct()), c.DisplayCurrent(), c.Target, c.Unit)
		}
		printOutcome(w, svc, out)
		return nil
	})
}
