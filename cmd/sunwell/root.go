// Package main wires the Sunwell execution core's collaborators
// (Model, Memory, Guardrails, Checkpoints, Tools) into the CLI surface.
// This package stays the thinnest possible collaborator: it loads
// config, builds the dependency graph, and hands off to the engines.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sunwell-ai/core/checkpoint"
	"github.com/sunwell-ai/core/config"
	"github.com/sunwell-ai/core/events"
	"github.com/sunwell-ai/core/guardrails"
	"github.com/sunwell-ai/core/memory/cache"
	"github.com/sunwell-ai/core/model"
	"github.com/sunwell-ai/core/model/anthropic"
	"github.com/sunwell-ai/core/model/openai"
	"github.com/sunwell-ai/core/model/ratelimit"
	"github.com/sunwell-ai/core/telemetry"
	"github.com/sunwell-ai/core/tools"
	"github.com/sunwell-ai/core/workspace"
)

// version is set via ldflags at release build time.
var version = "dev"

// workspaceManager is constructed once per process, after config is
// first loaded, so an optional Redis layer can be attached from
// config.yaml's redis_addr.
var (
	workspaceManager     *cache.WorkspaceManager
	workspaceManagerOnce sync.Once
)

func managerFor(cfg config.Config) *cache.WorkspaceManager {
	workspaceManagerOnce.Do(func() {
		var opts []cache.Option
		if cfg.RedisAddr != "" {
			opts = append(opts, cache.WithRedis(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), 5*time.Minute))
		}
		workspaceManager = cache.NewWorkspaceManager(opts...)
	})
	return workspaceManager
}

var rootCmd = &cobra.Command{
	Use:     "sunwell",
	Short:   "Sunwell — an AI-agent runtime execution core",
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().String("workspace", "", "workspace root (defaults to the current directory)")
	rootCmd.PersistentFlags().Bool("json", false, "emit machine-readable JSON event output")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	rootCmd.AddCommand(runCmd, autonomousCmd, resumeCmd, debugCmd, planCmd, guardrailsCmd, sessionsCmd)
}

// Execute runs the command tree and maps the outcome to an exit code.
// This is the only place os.Exit is called.
func Execute() {
	rootCmd.SilenceUsage = true
	defer func() {
		if workspaceManager != nil {
			_ = workspaceManager.Close()
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		if ec, ok := err.(exitCodeError); ok {
			fmt.Fprintln(os.Stderr, ec.Error())
			os.Exit(ec.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// exitCodeError lets a command signal a specific exit code (2 escalated,
// 3 timeout, 4 cancelled, 5 guardrail blocked) while still flowing
// through cobra's normal RunE error return.
type exitCodeError struct {
	code int
	msg  string
}

func (e exitCodeError) Error() string { return e.msg }

func exitWith(code int, format string, args ...any) error {
	return exitCodeError{code: code, msg: fmt.Sprintf(format, args...)}
}

// workspaceRoot resolves --workspace, defaulting to the current directory.
func workspaceRoot(cmd *cobra.Command) (string, error) {
	root, _ := cmd.Flags().GetString("workspace")
	if root == "" {
		var err error
		root, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}
	return root, nil
}

// runtimeDeps bundles everything buildDependencies assembles, plus the
// pieces individual commands need directly (the checkpoint/guardrails
// stores, for subcommands that inspect state without running a goal).
type runtimeDeps struct {
	cfg         config.Config
	workspace   string
	sessionID   string
	bus         events.Bus
	sink        *events.Sink
	memoryStore *cache.WorkspaceManager
	checkpoints *checkpoint.FileStore
	guards      *guardrails.Guardrails
	toolExec    *tools.Executor
	mdl         model.Model
	telemetry   telemetry.Telemetry
}

// buildDependencies loads config, ensures the .sunwell layout exists, and
// constructs every collaborator a run needs: stores first, then tools,
// then the model, then the engines that consume them.
func buildDependencies(cmd *cobra.Command, sessionID string) (*runtimeDeps, func(), error) {
	root, err := workspaceRoot(cmd)
	if err != nil {
		return nil, nil, err
	}
	if err := workspace.Ensure(root); err != nil {
		return nil, nil, fmt.Errorf("ensure workspace: %w", err)
	}
	cfg, _, err := config.Load(root)
	if err != nil {
		return nil, nil, err
	}
	if _, err := workspace.EnsureManifest(root, string(trustLevelFromFlag(cmd, cfg))); err != nil {
		return nil, nil, fmt.Errorf("ensure project manifest: %w", err)
	}

	sink, err := events.Open(workspace.EventsLogPath(root))
	if err != nil {
		return nil, nil, fmt.Errorf("open event log: %w", err)
	}
	bus := events.NewBus()
	if _, err := bus.Register(sink); err != nil {
		return nil, nil, err
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	if !asJSON {
		if _, err := bus.Register(events.SubscriberFunc(printEvent)); err != nil {
			return nil, nil, err
		}
	} else {
		if _, err := bus.Register(events.SubscriberFunc(printEventJSON)); err != nil {
			return nil, nil, err
		}
	}

	manager := managerFor(cfg)
	if _, err := manager.Store(root); err != nil {
		return nil, nil, fmt.Errorf("open memory store: %w", err)
	}

	cps, err := checkpoint.Open(root)
	if err != nil {
		return nil, nil, fmt.Errorf("open checkpoint store: %w", err)
	}

	trust := trustLevelFromFlag(cmd, cfg)
	guards, err := guardrails.Open(root, sessionID, guardrails.Options{ScopeLimits: scopeLimitsForTrust(trust)})
	if err != nil {
		return nil, nil, fmt.Errorf("open guardrails: %w", err)
	}

	// The write-hook publishes every successful mutation onto the bus so
	// subscribers (event log, console) observe file writes as they land.
	onWrite := func(ctx context.Context, path string) error {
		return bus.Publish(ctx, events.New(events.Signal, map[string]any{"file_write": path}))
	}
	texec := tools.New(root, onWrite, defaultAllowedCommands())

	mdl, err := buildModel(cfg)
	if err != nil {
		return nil, nil, err
	}

	deps := &runtimeDeps{
		cfg:         cfg,
		workspace:   root,
		sessionID:   sessionID,
		bus:         bus,
		sink:        sink,
		memoryStore: manager,
		checkpoints: cps,
		guards:      guards,
		toolExec:    texec,
		mdl:         mdl,
		telemetry:   telemetry.New(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))),
	}
	cleanup := func() { _ = sink.Close() }
	return deps, cleanup, nil
}

// buildModel picks the Anthropic adapter when its API key is configured,
// falling back to OpenAI, then stacks the adaptive rate limiter and the
// provider-fault retry policy in front of the adapter.
func buildModel(cfg config.Config) (model.Model, error) {
	base, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}
	limiter := ratelimit.New(cfg.ModelTPM, 0)
	return model.WithRetry(limiter.Wrap(base)), nil
}

func buildProvider(cfg config.Config) (model.Model, error) {
	if key := cfg.AnthropicAPIKey; key != "" {
		return anthropic.NewFromAPIKey(key, cfg.AnthropicModel)
	}
	if key := cfg.OpenAIAPIKey; key != "" {
		return openai.NewFromAPIKey(key, cfg.OpenAIModel)
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return anthropic.NewFromAPIKey(key, cfg.AnthropicModel)
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return openai.NewFromAPIKey(key, cfg.OpenAIModel)
	}
	return nil, fmt.Errorf("no model credentials configured: set anthropic_api_key/openai_api_key in .sunwell/config.yaml or ANTHROPIC_API_KEY/OPENAI_API_KEY")
}

// defaultAllowedCommands is the Tool Executor's fixed run_shell
// allow-list, mirroring the gate subprocess commands the Convergence
// Loop itself runs.
func defaultAllowedCommands() []tools.AllowedCommand {
	return []tools.AllowedCommand{
		{Name: "go test", Path: "go", Args: []string{"test", "./..."}},
		{Name: "go build", Path: "go", Args: []string{"build", "./..."}},
		{Name: "go vet", Path: "go", Args: []string{"vet", "./..."}},
	}
}

// trustLevelFromFlag resolves --trust over config.yaml's default.
func trustLevelFromFlag(cmd *cobra.Command, cfg config.Config) config.TrustLevel {
	if v, _ := cmd.Flags().GetString("trust"); v != "" {
		return config.TrustLevel(v)
	}
	return cfg.Trust
}

func timeoutFromFlag(cmd *cobra.Command, cfg config.Config) time.Duration {
	if secs, _ := cmd.Flags().GetInt("time"); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return cfg.Timeout
}

// scopeLimitsForTrust scales the Scope Tracker's hard defaults by trust
// level: conservative halves every budget (more escalations, smaller
// blast radius), full doubles per-goal budgets and drops the
// require-test-change rule.
func scopeLimitsForTrust(level config.TrustLevel) guardrails.ScopeLimits {
	limits := guardrails.DefaultScopeLimits
	switch level {
	case config.TrustConservative:
		limits.FilesPerGoal /= 2
		limits.LinesPerGoal /= 2
		limits.FilesPerSession /= 2
		limits.LinesPerSession /= 2
	case config.TrustFull:
		limits.FilesPerGoal *= 2
		limits.LinesPerGoal *= 2
		limits.RequireTestChange = false
	}
	return limits
}
