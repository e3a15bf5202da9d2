package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sunwell-ai/core/convergence"
	"github.com/sunwell-ai/core/goal"
	"github.com/sunwell-ai/core/ids"
	"github.com/sunwell-ai/core/lens"
	"github.com/sunwell-ai/core/memory/dag"
	"github.com/sunwell-ai/core/orchestrator"
	"github.com/sunwell-ai/core/planner"
	"github.com/sunwell-ai/core/session"
)

var runCmd = &cobra.Command{
	Use:   "run <goal>",
	Short: "Run a goal through the execution core",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGoal(cmd, args[0], sessionOptions{})
	},
}

var autonomousCmd = &cobra.Command{
	Use:   "autonomous <goal>",
	Short: "Run a goal with prefetch+memory, checkpoint, guards, and spawning all enabled",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGoal(cmd, args[0], sessionOptions{autonomous: true})
	},
}

func init() {
	for _, c := range []*cobra.Command{runCmd, autonomousCmd} {
		c.Flags().Bool("converge", true, "run the Convergence Loop after writes")
		c.Flags().Bool("no-converge", false, "disable the Convergence Loop")
		c.Flags().String("converge-gates", "", "comma-separated gate kinds (default: syntax,lint,type,test)")
		c.Flags().Int("converge-max", 0, "max convergence iterations (default from config)")
		c.Flags().String("trust", "", "trust level: conservative|guarded|supervised|full")
		c.Flags().Int("time", 0, "goal timeout in seconds (default from config)")
	}
}

type sessionOptions struct {
	autonomous bool
	autoResume bool
}

func runGoal(cmd *cobra.Command, description string, opts sessionOptions) error {
	sessionID := ids.NewPrefixed("session")
	deps, cleanup, err := buildDependencies(cmd, sessionID)
	if err != nil {
		return err
	}
	defer cleanup()

	store, err := deps.memoryStore.Store(deps.workspace)
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}

	noConverge, _ := cmd.Flags().GetBool("no-converge")
	gatesCSV, _ := cmd.Flags().GetString("converge-gates")
	maxIter, _ := cmd.Flags().GetInt("converge-max")

	convCfg := convergence.DefaultConfig
	if maxIter > 0 {
		convCfg.MaxIterations = maxIter
	}

	versions, err := planner.OpenVersionStore(deps.workspace)
	if err != nil {
		return fmt.Errorf("open plan version store: %w", err)
	}

	turns, err := dag.Open(deps.workspace, sessionID)
	if err != nil {
		return fmt.Errorf("open turn log: %w", err)
	}

	l := lens.Default()
	if opts.autonomous {
		l.CanSpawn = true
	}

	g := goal.Goal{
		ID:          ids.NewPrefixed("goal"),
		Description: description,
		Category:    goal.CategoryFeature,
		Complexity:  goal.ComplexityModerate,
	}

	sess := session.New(sessionID, g, session.Workspace{Path: deps.workspace})
	sess.Options = session.Options{
		Autonomous: opts.autonomous,
		AutoResume: opts.autonomous || opts.autoResume,
		MaxTokens:  deps.cfg.MaxIter * 10_000,
		Timeout:    timeoutFromFlag(cmd, deps.cfg),
	}

	o := orchestrator.New(orchestrator.Dependencies{
		Model:            deps.mdl,
		Bus:              deps.bus,
		Memory:           store,
		Checkpoints:      deps.checkpoints,
		Tools:            deps.toolExec,
		Guardrails:       deps.guards,
		Lens:             l,
		Telemetry:        deps.telemetry,
		Turns:            turns,
		Gates:            gatesFromCSV(gatesCSV, deps.workspace, noConverge),
		Convergence:      convCfg,
		Planner:          planner.DefaultOptions,
		PlanVersions:     versions,
		SpawnMaxDepth:    3,
		SpawnMaxChildren: l.MaxChildren,
	})

	result, err := o.Run(cmd.Context(), sess)
	if err != nil {
		return err
	}
	return exitForResult(result)
}

// gatesFromCSV resolves the --converge-gates flag (or its absence) into
// concrete convergence.Gate implementations rooted at the workspace.
func gatesFromCSV(csv, workspaceDir string, disabled bool) []convergence.Gate {
	if disabled {
		return nil
	}
	names := []string{"syntax", "lint", "type", "test"}
	if csv != "" {
		names = strings.Split(csv, ",")
	}
	var gates []convergence.Gate
	for _, n := range names {
		switch strings.TrimSpace(n) {
		case "syntax":
			gates = append(gates, convergence.NewSyntaxGate(workspaceDir))
		case "lint":
			gates = append(gates, convergence.NewLintGate(workspaceDir))
		case "type":
			gates = append(gates, convergence.NewTypeGate(workspaceDir))
		case "test":
			gates = append(gates, convergence.NewTestGate(workspaceDir))
		}
	}
	return gates
}

// exitForResult maps an orchestrator.Result onto the documented exit
// codes (0 stable/complete, 2 escalated, 3 timeout, 4 cancelled).
func exitForResult(result orchestrator.Result) error {
	switch result.Status {
	case "complete":
		return nil
	case "escalated":
		return exitWith(2, "escalated: %s", result.Summary)
	case "timeout":
		return exitWith(3, "timeout: %s", result.Summary)
	case "cancelled":
		return exitWith(4, "cancelled: %s", result.Summary)
	default:
		if result.Err != nil {
			return result.Err
		}
		return exitWith(1, "run ended with status %s", result.Status)
	}
}
