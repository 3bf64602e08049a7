package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chompy-labs/chompy/internal/app/engagement"
	"github.com/chompy-labs/chompy/internal/daemon"
	"github.com/chompy-labs/chompy/internal/domain"
)

func init() {
	logCmd.Flags().StringVarP(&logMeal, "meal", "m", "snack", "Meal slot (breakfast, lunch, dinner, snack)")
	logCmd.Flags().Float64Var(&logCalories, "calories", 0, "Calories (kcal)")
	logCmd.Flags().Float64Var(&logProtein, "protein", 0, "Protein (g)")
	logCmd.Flags().Float64Var(&logCarbs, "carbs", 0, "Carbohydrates (g)")
	logCmd.Flags().Float64Var(&logFats, "fats", 0, "Fats (g)")
	rootCmd.AddCommand(logCmd)
}

var (
	logMeal     string
	logCalories float64
	logProtein  float64
	logCarbs    float64
	logFats     float64
)

var logCmd = &cobra.Command{
	Use:   "log USER DESCRIPTION...",
	Short: "Log a meal for a user",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runLog,
}

func runLog(cmd *cobra.Command, args []string) error {
	return withSession(cmd.Context(), args[0], func(_ *daemon.Daemon, svc *engagement.Service) error {
		out, entry := svc.LogFood(cmd.Context(), domain.FoodLogEntry{
			Meal:        logMeal,
			Description: strings.Join(args[1:], " "),
			Calories:    logCalories,
			Protein:     logProtein,
			Carbs:       logCarbs,
			Fats:        logFats,
		})
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Logged %s: %s\n", entry.Meal, entry.Description)
		fmt.Fprintf(w, "Streak: %d day(s)\n", svc.Snapshot().Streak)
		printOutcome(w, svc, out)
		return nil
	})
}
