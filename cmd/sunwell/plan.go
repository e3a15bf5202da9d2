package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sunwell-ai/core/goal"
	"github.com/sunwell-ai/core/planner"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Inspect plan version history",
}

var planHistoryCmd = &cobra.Command{
	Use:   "history <goal-description>",
	Short: "List every retained PlanVersion for a goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := workspaceRoot(cmd)
		if err != nil {
			return err
		}
		store, err := planner.OpenVersionStore(root)
		if err != nil {
			return err
		}
		goalHash := goal.Goal{Description: args[0], Category: goal.CategoryFeature}.Hash()
		history := store.History(goalHash)
		if len(history) == 0 {
			fmt.Println("no plan versions found for this goal")
			return nil
		}
		for i, v := range history {
			fmt.Printf("v%d  reason=%-8s score=%.3f created=%s\n", i+1, v.Reason, v.Score, v.CreatedAt.Format("2006-01-02T15:04:05Z"))
		}
		return nil
	},
}

var planShowCmd = &cobra.Command{
	Use:   "show <goal-description> v<n>",
	Short: "Show one PlanVersion's tasks",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := versionAt(cmd, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("id=%s reason=%s score=%.3f\n", v.ID, v.Reason, v.Score)
		for _, t := range v.Tasks {
			fmt.Printf("  [%s] %s -> %s (%s)\n", t.ID, t.Mode, t.TargetPath, t.Description)
		}
		return nil
	},
}

var planDiffCmd = &cobra.Command{
	Use:   "diff <goal-description> v<n> v<m>",
	Short: "Show the task-set diff between two PlanVersions",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		vn, err := versionAt(cmd, args[0], args[1])
		if err != nil {
			return err
		}
		vm, err := versionAt(cmd, args[0], args[2])
		if err != nil {
			return err
		}
		fmt.Println(planner.DiffTasks(vn.Tasks, vm.Tasks))
		return nil
	},
}

func init() {
	planCmd.AddCommand(planHistoryCmd, planShowCmd, planDiffCmd)
}

func versionIndex(tag string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(tag, "v%d", &n); err != nil || n < 1 {
		return 0, fmt.Errorf("invalid version tag %q, expected form v<n>", tag)
	}
	return n, nil
}

func versionAt(cmd *cobra.Command, description, tag string) (planner.PlanVersion, error) {
	root, err := workspaceRoot(cmd)
	if err != nil {
		return planner.PlanVersion{}, err
	}
	n, err := versionIndex(tag)
	if err != nil {
		return planner.PlanVersion{}, err
	}
	store, err := planner.OpenVersionStore(root)
	if err != nil {
		return planner.PlanVersion{}, err
	}
	goalHash := goal.Goal{Description: description, Category: goal.CategoryFeature}.Hash()
	history := store.History(goalHash)
	if n > len(history) {
		return planner.PlanVersion{}, fmt.Errorf("no version %s for this goal (have %d)", tag, len(history))
	}
	return history[n-1], nil
}
