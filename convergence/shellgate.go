package convergence

import (
	"bytes"
	"context"
	"go/parser"
	"go/token"
	"os/exec"
	"strings"
	"time"
)

// ShellGate runs a fixed, non-user-composed subprocess command against
// the workspace and reports pass/fail from its exit code. All gate
// execution is sandboxed to the workspace path, using the same
// exec.CommandContext shape tools.Executor.runShell uses.
type ShellGate struct {
	kind    GateKind
	dir     string
	path    string
	args    []string
	timeout time.Duration
}

// NewShellGate constructs a ShellGate for one of Lint/Type/Test, timed
// out per GateTimeouts unless timeout is non-zero.
func NewShellGate(kind GateKind, workspaceDir, path string, args []string, timeout time.Duration) *ShellGate {
	if timeout == 0 {
		timeout = GateTimeouts[kind]
	}
	return &ShellGate{kind: kind, dir: workspaceDir, path: path, args: args, timeout: timeout}
}

// NewLintGate wires `golangci-lint run` as the configured linter.
func NewLintGate(workspaceDir string) *ShellGate {
	return NewShellGate(GateLint, workspaceDir, "golangci-lint", []string{"run", "--timeout", "25s"}, 0)
}

// NewTypeGate wires `go build` as the primary type checker, the way a Go
// workspace's type errors surface through the compiler rather than a
// separate tsc-style pass; `go vet` is the secondary fallback.
func NewTypeGate(workspaceDir string) *ShellGate {
	return NewShellGate(GateType, workspaceDir, "go", []string{"build", "./..."}, 0)
}

// NewTestGate wires `go test ./...`, restricted to files identifiably in
// test locations by the Convergence Loop's changed-file filter before
// Run is even called.
func NewTestGate(workspaceDir string) *ShellGate {
	return NewShellGate(GateTest, workspaceDir, "go", []string{"test", "./..."}, 0)
}

func (g *ShellGate) Kind() GateKind { return g.kind }

func (g *ShellGate) Run(ctx context.Context, _ []string) GateResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.path, g.args...)
	cmd.Dir = g.dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	elapsed := time.Since(start).Milliseconds()

	if err == nil {
		return GateResult{Kind: g.kind, Passed: true, DurationMS: elapsed}
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) == 1 && lines[0] == "" {
		lines = []string{err.Error()}
	}
	return GateResult{Kind: g.kind, Passed: false, Errors: lines, DurationMS: elapsed}
}

// SyntaxGate parses each changed Go file in-process with go/parser,
// avoiding a subprocess for the cheapest gate.
type SyntaxGate struct {
	dir     string
	resolve func(relPath string) string
}

// NewSyntaxGate constructs a SyntaxGate rooted at workspaceDir.
func NewSyntaxGate(workspaceDir string) *SyntaxGate {
	return &SyntaxGate{dir: workspaceDir, resolve: func(rel string) string {
		if strings.HasPrefix(rel, workspaceDir) {
			return rel
		}
		return workspaceDir + "/" + rel
	}}
}

func (g *SyntaxGate) Kind() GateKind { return GateSyntax }

func (g *SyntaxGate) Run(_ context.Context, files []string) GateResult {
	start := time.Now()
	var errors []string
	fset := token.NewFileSet()
	for _, f := range files {
		if !strings.HasSuffix(f, ".go") {
			continue
		}
		if _, err := parser.ParseFile(fset, g.resolve(f), nil, parser.AllErrors); err != nil {
			errors = append(errors, err.Error())
		}
	}
	return GateResult{Kind: GateSyntax, Passed: len(errors) == 0, Errors: errors, DurationMS: time.Since(start).Milliseconds()}
}
