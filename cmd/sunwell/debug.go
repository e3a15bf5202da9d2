package main

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/sunwell-ai/core/workspace"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Diagnostics for bug reports",
}

var debugDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Write a redacted, size-capped diagnostics archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := workspaceRoot(cmd)
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			out = filepath.Join(workspace.Root(root), fmt.Sprintf("debug-dump-%d.tar.gz", time.Now().Unix()))
		}
		if err := writeDebugDump(root, out); err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

func init() {
	debugDumpCmd.Flags().StringP("output", "o", "", "archive path (default .sunwell/debug-dump-<unix>.tar.gz)")
	debugCmd.AddCommand(debugDumpCmd)
}

// maxDumpBytes bounds the uncompressed archive content at 5 MB;
// oversize sections are truncated with a marker.
const maxDumpBytes = 5 * 1024 * 1024

const truncationMarker = "\n... TRUNCATED (debug dump size cap reached) ...\n"

// secretPatterns match the same family of embedded-credential shapes
// the Guardrail System's forbidden-pattern set looks for,
// applied here to every byte written into the dump rather than just
// classifier subjects.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password)\s*[:=]\s*\S+`),
	regexp.MustCompile(`sk-[A-Za-z0-9]{16,}`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._-]+`),
}

func redact(data []byte) []byte {
	for _, p := range secretPatterns {
		data = p.ReplaceAll(data, []byte("[REDACTED]"))
	}
	return data
}

// writeDebugDump gathers config, event history, and guardrail state into
// a gzip-compressed tar archive at outPath, redacting secrets and
// enforcing maxDumpBytes across the sum of its entries.
func writeDebugDump(root, outPath string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("debug dump: create archive: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	budget := maxDumpBytes

	addFile(tw, &budget, "meta.txt", []byte(fmt.Sprintf("os=%s arch=%s go=%s generated=%s\n",
		runtime.GOOS, runtime.GOARCH, runtime.Version(), time.Now().Format(time.RFC3339))))
	addRedactedFile(tw, &budget, "config.yaml", workspace.ConfigPath(root))
	addRedactedFile(tw, &budget, "events.jsonl", workspace.EventsLogPath(root))
	addRedactedFile(tw, &budget, "guardrails/violations.jsonl", filepath.Join(workspace.Root(root), "guardrails", "violations.jsonl"))
	addDirListing(tw, &budget, "checkpoints.txt", filepath.Join(workspace.Root(root), "checkpoints"))
	addDirListing(tw, &budget, "plans.txt", filepath.Join(workspace.Root(root), "plans"))

	return nil
}

func addRedactedFile(tw *tar.Writer, budget *int, name, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return
	}
	addFile(tw, budget, name, redact(raw))
}

func addDirListing(tw *tar.Writer, budget *int, name, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	var listing []byte
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		listing = append(listing, []byte(fmt.Sprintf("%-40s %8d bytes\n", e.Name(), info.Size()))...)
	}
	addFile(tw, budget, name, listing)
}

// addFile writes one tar entry, truncating its content with
// truncationMarker once the remaining budget is exhausted. A zero or
// negative budget still writes a marker-only entry so the archive
// records that the section was dropped rather than silently omitting it.
func addFile(tw *tar.Writer, budget *int, name string, content []byte) {
	if *budget <= 0 {
		content = []byte(truncationMarker)
	} else if len(content) > *budget {
		content = append(content[:*budget], []byte(truncationMarker)...)
	}
	*budget -= len(content)

	hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content)), ModTime: time.Now()}
	if err := tw.WriteHeader(hdr); err != nil {
		return
	}
	_, _ = tw.Write(content)
}
