// Package models defines the data structures exchanged with the node manager and persisted in the audit log.
package models

import (
	"strconv"
	"time"
)

// Mode is the port-mapping role assigned to a node by the manager.
type Mode int32

const (
	ModeUnspecified Mode = 0
	ModeServer      Mode = 1
	ModeClient      Mode = 2
)

// String returns the wire enum name, or the numeric value for modes unknown to this build.
func (m Mode) String() string {
	switch m {
	case ModeUnspecified:
		return "PORT_MAPPING_MODE_UNSPECIFIED"
	case ModeServer:
		return "PORT_MAPPING_MODE_SERVER"
	case ModeClient:
		return "PORT_MAPPING_MODE_CLIENT"
	default:
		return "PORT_MAPPING_MODE(" + strconv.Itoa(int(m)) + ")"
	}
}

// PortMapping is a node's forwarding configuration.
// ConfigJSON is opaque: its schema depends on Mode and is owned by the manager.
type PortMapping struct {
	ConfigJSON string `json:"config_json"`
	Mode       Mode   `json:"mode"`
}

// NodeConfig is the manager's answer for a single node.
// PortMapping is nil when the node has no port-mapping configuration.
type NodeConfig struct {
	PortMapping *PortMapping `json:"port_mapping,omitempty"`
	Name        string       `json:"name"`
}

// Outcome classifies how a lookup ended.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeNoPortMapping Outcome = "no_port_mapping"
	OutcomeValidation    Outcome = "validation"
	OutcomeRemote        Outcome = "remote"
	OutcomeTransport     Outcome = "transport"
)

// Failed reports whether the outcome is one of the error categories.
func (o Outcome) Failed() bool {
	return o == OutcomeValidation || o == OutcomeRemote || o == OutcomeTransport
}

// Lookup is a single audit record. It never carries the returned configuration.
type Lookup struct {
	CreatedAt  time.Time `json:"created_at"`
	NodeName   string    `json:"node_name"`
	Outcome    Outcome   `json:"outcome"`
	Message    string    `json:"message,omitempty"`
	ID         int64     `json:"id"`
	DurationMs int64     `json:"duration_ms"`
}
