package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chompy-labs/chompy/internal/app/engagement"
	"github.com/chompy-labs/chompy/internal/daemon"
)

func init() {
	rootCmd.AddCommand(feedCmd)
}

var feedCmd = &cobra.Command{
	Use:   "feed USER",
	Short: "Feed the user's pet",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeed,
}

func runFeed(cmd *cobra.Command, args []string) error {
	return withSession(cmd.Context(), args[0], func(_ *daemon.Daemon, svc *engagement.Service) error {
		out := svc.FeedPet(cmd.Context())
		pet := svc.Snapshot().Pet
		fmt.Fprintf(cmd.OutOrStdout(), "%s is %s %s\n", pet.Name, pet.Mood, hearts(pet.Happiness))
		printOutcome(cmd.OutOrStdout(), svc, out)
		return nil
	})
}
