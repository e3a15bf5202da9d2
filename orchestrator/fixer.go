package orchestrator

import (
	"context"
	"strings"

	"github.com/sunwell-ai/core/convergence"
	"github.com/sunwell-ai/core/model"
	"github.com/sunwell-ai/core/session"
	"github.com/sunwell-ai/core/tools"
)

// modelFixer implements convergence.Fixer by prompting the model
// with the typed gate errors and the failing artifacts' content, then
// writing back whatever file the model decides to rewrite through the
// Tool Executor so the write-hook fires like any other mutation.
type modelFixer struct {
	model model.Model
	tools *tools.Executor
}

func newModelFixer(m model.Model, t *tools.Executor) *modelFixer {
	return &modelFixer{model: m, tools: t}
}

// Fix asks the model, per failing artifact, to rewrite it so the listed
// gate errors clear, and applies the result via write_file. Artifacts the
// model declines to touch (empty response) are left alone.
func (f *modelFixer) Fix(ctx context.Context, errs []convergence.TypedError, artifacts map[string]session.Artifact) (convergence.FixResult, error) {
	var written []string
	var usage model.Usage

	for path, artifact := range artifacts {
		prompt := buildFixPrompt(path, artifact.Content, errs)
		res, err := f.model.Generate(ctx, prompt, model.Options{Temperature: 0.1})
		if err != nil {
			return convergence.FixResult{WrittenFiles: written, Usage: usage}, err
		}
		usage.InputTokens += res.Usage.InputTokens
		usage.OutputTokens += res.Usage.OutputTokens

		fixed := strings.TrimSpace(res.Text)
		if fixed == "" || fixed == artifact.Content {
			continue
		}
		if _, err := f.tools.Execute(ctx, tools.Call{Tool: tools.WriteFile, Path: path, Content: fixed}); err != nil {
			return convergence.FixResult{WrittenFiles: written, Usage: usage}, err
		}
		written = append(written, path)
	}

	return convergence.FixResult{WrittenFiles: written, Usage: usage}, nil
}

func buildFixPrompt(path, content string, errs []convergence.TypedError) string {
	var b strings.Builder
	b.WriteString("Fix the following file so these gate failures clear. Return the full corrected file content only.\n\n")
	b.WriteString("File: " + path + "\n\nErrors:\n")
	for _, e := range errs {
		b.WriteString("- [" + string(e.Gate) + "] " + e.Message + "\n")
	}
	b.WriteString("\nCurrent content:\n")
	b.WriteString(content)
	return b.String()
}
