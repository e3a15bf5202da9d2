package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sunwell-ai/core/guardrails"
	"github.com/sunwell-ai/core/guardrails/recovery"
	"github.com/sunwell-ai/core/planner"
)

var guardrailsCmd = &cobra.Command{
	Use:   "guardrails",
	Short: "Inspect and act on the Guardrail System",
}

var guardrailsCheckCmd = &cobra.Command{
	Use:   "check <path-or-command>",
	Short: "Classify a candidate path or shell command without acting on it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := guardrails.New().Classify(guardrails.Action{Type: guardrails.ActionEditFile, Path: args[0], Command: args[0]})
		fmt.Printf("risk=%-10s reason=%q escalation_required=%v\n", c.Risk, c.Reason, c.EscalationRequired)
		return nil
	},
}

var guardrailsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Summarize adaptive-guard suggestions from the violation log",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := workspaceRoot(cmd)
		if err != nil {
			return err
		}
		log, err := guardrails.OpenViolationLog(root)
		if err != nil {
			return err
		}
		minOccurrences, _ := cmd.Flags().GetInt("min-occurrences")
		suggestions, err := guardrails.NewAnalyzer(log).Analyze(minOccurrences)
		if err != nil {
			return err
		}
		if len(suggestions) == 0 {
			fmt.Println("no evolution suggestions")
			return nil
		}
		for _, s := range suggestions {
			fmt.Printf("%-14s guard=%-12s auto_applied=%-5v %s\n", s.Kind, s.GuardID, s.AutoApplied, s.Suggestion)
		}
		return nil
	},
}

var guardrailsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List every recorded guard violation",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := workspaceRoot(cmd)
		if err != nil {
			return err
		}
		log, err := guardrails.OpenViolationLog(root)
		if err != nil {
			return err
		}
		violations, err := log.All()
		if err != nil {
			return err
		}
		if len(violations) == 0 {
			fmt.Println("no violations recorded")
			return nil
		}
		for _, v := range violations {
			fmt.Printf("%s  guard=%-12s action=%s\n", v.Timestamp.Format("2006-01-02T15:04:05Z"), v.GuardID, v.ActionTaken)
		}
		return nil
	},
}

var guardrailsRollbackCmd = &cobra.Command{
	Use:   "rollback <session-id>",
	Short: "Hard-reset the workspace to a session's start tag and clean untracked files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := workspaceRoot(cmd)
		if err != nil {
			return err
		}
		if err := recovery.RollbackToSessionTag(root, args[0]); err != nil {
			return exitWith(5, "guardrails rollback: %v", err)
		}
		fmt.Printf("rolled back to the start of session %s\n", args[0])
		return nil
	},
}

var guardrailsRollbackGoalCmd = &cobra.Command{
	Use:   "rollback-goal <goal-id>",
	Short: "Revert the single commit recorded for a goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := workspaceRoot(cmd)
		if err != nil {
			return err
		}
		if err := recovery.RollbackGoalByID(root, args[0]); err != nil {
			return exitWith(5, "guardrails rollback-goal: %v", err)
		}
		fmt.Printf("reverted commit for goal %s\n", args[0])

		// When the caller names the goal's plan, rewind the operative plan
		// to match the reverted working tree.
		if goalHash, _ := cmd.Flags().GetString("plan"); goalHash != "" {
			versions, err := planner.OpenVersionStore(root)
			if err != nil {
				return err
			}
			if v, ok := versions.Revert(goalHash); ok {
				fmt.Printf("plan rewound to %s (%s)\n", v.ID, v.Reason)
			}
		}
		return nil
	},
}

func init() {
	guardrailsShowCmd.Flags().Int("min-occurrences", 3, "minimum repeated occurrences before suggesting a relaxation")
	guardrailsRollbackGoalCmd.Flags().String("plan", "", "goal hash whose plan history should be rewound alongside the revert")
	guardrailsCmd.AddCommand(guardrailsCheckCmd, guardrailsShowCmd, guardrailsHistoryCmd, guardrailsRollbackCmd, guardrailsRollbackGoalCmd)
}
