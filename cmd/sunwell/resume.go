package main

import (
	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the most recent checkpoint for a goal",
	Long: `Resume locates the most recent checkpoint keyed by (workspace, goal)
and continues the run from its successor phase. --phase is accepted for
operator intent/logging; the
orchestrator itself derives the resume point from the checkpoint it
finds, not from this flag.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		g, _ := cmd.Flags().GetString("goal")
		if g == "" {
			return exitWith(1, "resume: --goal is required")
		}
		return runGoal(cmd, g, sessionOptions{autoResume: true})
	},
}

func init() {
	resumeCmd.Flags().String("goal", "", "goal description to resume (must match the original run's description)")
	resumeCmd.Flags().String("phase", "", "expected phase to resume from (informational)")
	resumeCmd.Flags().String("trust", "", "trust level: conservative|guarded|supervised|full")
	resumeCmd.Flags().Int("time", 0, "goal timeout in seconds")
	resumeCmd.Flags().Bool("converge", true, "run the Convergence Loop after writes")
	resumeCmd.Flags().Bool("no-converge", false, "disable the Convergence Loop")
	resumeCmd.Flags().String("converge-gates", "", "comma-separated gate kinds")
	resumeCmd.Flags().Int("converge-max", 0, "max convergence iterations")
}
