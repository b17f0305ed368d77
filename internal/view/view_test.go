package view

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/laval/internal/models"
	"github.com/woozymasta/laval/internal/query"
)

func TestInterpretStates(t *testing.T) {
	tests := []struct {
		name string
		pm   *models.PortMapping
		want PortMapping
	}{
		{
			name: "absent",
			pm:   nil,
			want: PortMapping{State: StateNone, Text: NoPortMappingText},
		},
		{
			name: "server json",
			pm:   &models.PortMapping{Mode: models.ModeServer, ConfigJSON: `{"port":8080}`},
			want: PortMapping{State: StateJSON, ModeLabel: "Server", Text: "{\n  \"port\": 8080\n}"},
		},
		{
			name: "client empty",
			pm:   &models.PortMapping{Mode: models.ModeClient, ConfigJSON: ""},
			want: PortMapping{State: StateEmpty, ModeLabel: "Client", Text: EmptyPlaceholder},
		},
		{
			name: "client not json",
			pm:   &models.PortMapping{Mode: models.ModeClient, ConfigJSON: "not json"},
			want: PortMapping{State: StateRaw, ModeLabel: "Client", Text: "not json", NotJSON: true},
		},
		{
			name: "whitespace only is raw",
			pm:   &models.PortMapping{Mode: models.ModeServer, ConfigJSON: "  \n"},
			want: PortMapping{State: StateRaw, ModeLabel: "Server", Text: "  \n", NotJSON: true},
		},
		{
			name: "unknown mode",
			pm:   &models.PortMapping{Mode: models.Mode(42), ConfigJSON: "[]"},
			want: PortMapping{State: StateJSON, ModeLabel: "Unknown", Text: "[]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Interpret(tt.pm))
		})
	}
}

func TestInterpretJSONRoundTrip(t *testing.T) {
	inputs := []string{
		`{"port":8080}`,
		`{"server":{"bind_addr":"0.0.0.0:2333","services":{"ssh":{"bind_addr":"0.0.0.0:5202"}}}}`,
		`[1, 2.5, "three", null, true, {"nested": [ ]}]`,
		`"just a string"`,
		`42`,
		`1e400`,
		`null`,
		"  {\"padded\" : true}\n\t",
		`{"unicode":"é中","escaped":"line\nbreak"}`,
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			out := Interpret(&models.PortMapping{Mode: models.ModeServer, ConfigJSON: input})
			require.Equal(t, StateJSON, out.State)
			assert.False(t, out.NotJSON)

			var want, got any
			dec := json.NewDecoder(strings.NewReader(input))
			dec.UseNumber()
			require.NoError(t, dec.Decode(&want))

			dec = json.NewDecoder(strings.NewReader(out.Text))
			dec.UseNumber()
			require.NoError(t, dec.Decode(&got))

			assert.Equal(t, want, got)
		})
	}
}

func TestInterpretNonJSONIsVerbatim(t *testing.T) {
	inputs := []string{
		"not json",
		"{broken",
		`{"a":1} trailing`,
		"[server]\nbind_addr = \"0.0.0.0:2333\"\n",
		"'single'",
	}

	for _, input := range inputs {
		out := Interpret(&models.PortMapping{Mode: models.ModeClient, ConfigJSON: input})
		assert.Equal(t, StateRaw, out.State, input)
		assert.True(t, out.NotJSON, input)
		assert.Equal(t, input, out.Text)
	}
}

func TestInterpretInvalidUTF8IsRaw(t *testing.T) {
	for _, input := range []string{"\"bad\xff\"", "{\"k\":\"\xc3\x28\"}", "bad\xffbytes"} {
		out := Interpret(&models.PortMapping{Mode: models.ModeServer, ConfigJSON: input})
		assert.Equal(t, StateRaw, out.State, "%q", input)
		assert.True(t, out.NotJSON)
		assert.Equal(t, input, out.Text)
	}
}

func TestModeLabel(t *testing.T) {
	assert.Equal(t, "Unspecified", ModeLabel(models.ModeUnspecified))
	assert.Equal(t, "Server", ModeLabel(models.ModeServer))
	assert.Equal(t, "Client", ModeLabel(models.ModeClient))

	for _, m := range []models.Mode{-1, 3, 99} {
		assert.Equal(t, "Unknown", ModeLabel(m))
	}
}

func TestFromResult(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		node := FromResult(query.Result{
			NodeName: "edge-01",
			Outcome:  models.OutcomeSuccess,
			Config: &models.NodeConfig{
				Name:        "edge-01",
				PortMapping: &models.PortMapping{Mode: models.ModeServer, ConfigJSON: `{"port":8080}`},
			},
		})

		assert.Equal(t, StatusSuccess, node.Status)
		assert.Equal(t, "edge-01", node.Name)
		require.NotNil(t, node.PortMapping)
		assert.Equal(t, "Server", node.PortMapping.ModeLabel)
	})

	t.Run("no port mapping", func(t *testing.T) {
		node := FromResult(query.Result{
			NodeName: "edge-02",
			Outcome:  models.OutcomeNoPortMapping,
			Config:   &models.NodeConfig{Name: "edge-02"},
		})

		assert.Equal(t, StatusNoPortMapping, node.Status)
		require.NotNil(t, node.PortMapping)
		assert.Equal(t, StateNone, node.PortMapping.State)
	})

	t.Run("failure", func(t *testing.T) {
		node := FromResult(query.Result{
			NodeName: "ghost",
			Outcome:  models.OutcomeRemote,
			Message:  "node not found",
		})

		assert.Equal(t, Node{
			Status:  StatusFailure,
			Outcome: models.OutcomeRemote,
			Message: "node not found",
			Name:    "ghost",
		}, node)
	})
}
