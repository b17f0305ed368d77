package view

import (
	"github.com/woozymasta/laval/internal/models"
	"github.com/woozymasta/laval/internal/query"
)

// Status is what the presentation layer observes: success, empty success, or failure.
type Status string

const (
	StatusSuccess       Status = "success"
	StatusNoPortMapping Status = "no_port_mapping"
	StatusFailure       Status = "failure"
)

// Node is the presentation model of one lookup result.
type Node struct {
	PortMapping *PortMapping   `json:"port_mapping,omitempty"`
	Status      Status         `json:"status"`
	Outcome     models.Outcome `json:"outcome"`
	Message     string         `json:"message,omitempty"`
	Name        string         `json:"name,omitempty"`
}

// FromResult builds the presentation model of res.
func FromResult(res query.Result) Node {
	if res.Failed() || res.Config == nil {
		return Node{
			Status:  StatusFailure,
			Outcome: res.Outcome,
			Message: res.Message,
			Name:    res.NodeName,
		}
	}

	pm := Interpret(res.Config.PortMapping)
	node := Node{
		PortMapping: &pm,
		Status:      StatusSuccess,
		Outcome:     res.Outcome,
		Name:        res.Config.Name,
	}
	if pm.State == StateNone {
		node.Status = StatusNoPortMapping
	}

	return node
}
