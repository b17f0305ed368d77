// Package view turns query results into presentation models shared by the web page and the terminal.
package view

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/woozymasta/laval/internal/models"
)

// EmptyPlaceholder is displayed for a port mapping whose configuration text is empty.
const EmptyPlaceholder = "(empty)"

// NoPortMappingText is displayed when the node has no port mapping.
const NoPortMappingText = "No port mapping configured"

// State is the presentational state of a port mapping.
type State string

const (
	StateNone  State = "none"
	StateEmpty State = "empty"
	StateJSON  State = "json"
	StateRaw   State = "raw"
)

// PortMapping is the display form of a node's port mapping.
type PortMapping struct {
	State     State  `json:"state"`
	ModeLabel string `json:"mode_label,omitempty"`
	Text      string `json:"text"`
	NotJSON   bool   `json:"not_json"`
}

// Interpret classifies pm for display.
// Valid JSON is re-indented with two spaces whatever its shape; anything else
// is kept verbatim and flagged, so no data is lost.
// Payloads that are not valid UTF-8 are always raw. Text keeps their bytes, and
// the terminal prints them as is, but JSON encoding (the web API, --query-output json)
// replaces each invalid byte with U+FFFD.
func Interpret(pm *models.PortMapping) PortMapping {
	if pm == nil {
		return PortMapping{State: StateNone, Text: NoPortMappingText}
	}

	out := PortMapping{ModeLabel: ModeLabel(pm.Mode)}

	if pm.ConfigJSON == "" {
		out.State = StateEmpty
		out.Text = EmptyPlaceholder
		return out
	}

	if pretty, ok := indentJSON(pm.ConfigJSON); ok {
		out.State = StateJSON
		out.Text = pretty
		return out
	}

	out.State = StateRaw
	out.Text = pm.ConfigJSON
	out.NotJSON = true
	return out
}

// ModeLabel returns the human readable name of a port mapping mode.
func ModeLabel(mode models.Mode) string {
	switch mode {
	case models.ModeUnspecified:
		return "Unspecified"
	case models.ModeServer:
		return "Server"
	case models.ModeClient:
		return "Client"
	default:
		return "Unknown"
	}
}

func indentJSON(raw string) (string, bool) {
	// json.Valid accepts invalid UTF-8 inside strings
	if !utf8.ValidString(raw) {
		return "", false
	}

	src := []byte(strings.TrimSpace(raw))
	if !json.Valid(src) {
		return "", false
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, src, "", "  "); err != nil {
		return "", false
	}

	return buf.String(), true
}
