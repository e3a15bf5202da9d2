package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sunwell-ai/core/checkpoint"
	"github.com/sunwell-ai/core/workspace"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect session checkpoints for this workspace",
}

var sessionsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "List every tracked session's latest checkpoint phase",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := workspaceRoot(cmd)
		if err != nil {
			return err
		}
		if !workspace.Exists(root) {
			fmt.Println("no .sunwell workspace found here")
			return nil
		}
		cps, err := checkpoint.Open(root)
		if err != nil {
			return err
		}
		all, err := cps.All()
		if err != nil {
			return err
		}
		if len(all) == 0 {
			fmt.Println("no sessions recorded")
			return nil
		}
		sort.Slice(all, func(i, j int) bool { return all[i].CheckpointAt.Before(all[j].CheckpointAt) })
		for _, cp := range all {
			fmt.Printf("%s  session=%-24s goal=%-16s phase=%-24s tasks_done=%d\n",
				cp.CheckpointAt.Format("2006-01-02T15:04:05Z"), cp.SessionID, cp.Goal, cp.Phase, len(cp.CompletedTaskIDs))
		}
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsSummaryCmd)
}
