package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sunwell-ai/core/events"
)

// printEvent renders a one-line human-readable progress line per event,
// the non-JSON counterpart to --json.
func printEvent(_ context.Context, e events.Event) error {
	switch e.Severity {
	case events.SeverityCritical, events.SeverityError:
		fmt.Fprintf(os.Stderr, "[%s] %s %v\n", e.Severity, e.Type, e.Data)
	default:
		fmt.Fprintf(os.Stdout, "%-32s %v\n", e.Type, e.Data)
	}
	return nil
}

// printEventJSON renders one JSON object per line, for --json consumers.
func printEventJSON(_ context.Context, e events.Event) error {
	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(e)
}
