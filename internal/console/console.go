// Package console runs a single lookup from the command line and prints the interpreted result.
package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/woozymasta/laval/internal/query"
	"github.com/woozymasta/laval/internal/view"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Run looks up name through client, writes the result to w, and returns the process exit code.
func Run(ctx context.Context, client *query.Client, name, output string, w io.Writer) int {
	res, err := client.Submit(ctx, name)
	if err != nil {
		_, _ = fmt.Fprintln(w, err)
		return 1
	}

	node := view.FromResult(res)
	if output == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(node)
	} else {
		_, _ = io.WriteString(w, Render(node))
	}

	if res.Failed() {
		return 1
	}

	return 0
}

// Render formats node as human readable text.
func Render(node view.Node) string {
	var b strings.Builder

	if node.Status == view.StatusFailure {
		if node.Name != "" {
			fmt.Fprintf(&b, "Node:    %s\n", node.Name)
		}
		fmt.Fprintf(&b, "Error:   %s\n", node.Message)
		return b.String()
	}

	fmt.Fprintf(&b, "Node:    %s\n", node.Name)

	pm := node.PortMapping
	if pm == nil || pm.State == view.StateNone {
		b.WriteString("Mapping: " + view.NoPortMappingText + "\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Mode:    %s\n", pm.ModeLabel)
	if pm.NotJSON {
		b.WriteString("Warning: configuration is not valid JSON, showing raw text\n")
	}
	b.WriteString("Config:\n")
	b.WriteString(pm.Text)
	if !strings.HasSuffix(pm.Text, "\n") {
		b.WriteString("\n")
	}

	return b.String()
}
