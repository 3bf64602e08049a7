package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/chompy-labs/chompy/internal/app/engagement"
	"github.com/chompy-labs/chompy/internal/daemon"
)

// withSession opens the local daemon state, loads userID and runs fn.
func withSession(ctx context.Context, userID string, fn func(d *daemon.Daemon, svc *engagement.Service) error) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	svc, err := d.Session(ctx, userID)
	if err != nil {
		return err
	}
	return fn(d, svc)
}

// printOutcome reports what a mutation changed.
func printOutcome(w io.Writer, svc *engagement.Service, out engagement.Outcome) {
	if !out.Changed {
		fmt.Fprintln(w, "Nothing changed.")
	}
	snap := svc.Snapshot()
	if out.LeveledUp {
		fmt.Fprintf(w, "Level up! You are now level %d.\n", snap.Progress.Level)
	}
	for _, a := range out.Unlocked {
		fmt.Fprintf(w, "%s Achievement unlocked: %s\n", a.Icon, a.Title)
	}
	if out.Completed && out.Challenge != nil {
		fmt.Fprintf(w, "Challenge complete: %s (+%d XP)\n", out.Challenge.Title, out.Challenge.XPReward)
	}
	if out.PetLeveledUp {
		fmt.Fprintf(w, "%s grew to level %d!\n", snap.Pet.Name, snap.Pet.Level)
	}
	if out.PersistErr != nil {
		fmt.Fprintf(w, "warning: changes could not be saved: %v\n", out.PersistErr)
	}
}
