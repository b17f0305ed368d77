package rpc

import (
	"fmt"

	"github.com/woozymasta/laval/internal/models"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of manager.v1 messages.
const (
	fieldRequestName = 1

	fieldResponseName        = 1
	fieldResponsePortMapping = 2

	fieldPortMappingMode       = 1
	fieldPortMappingConfigJSON = 2
)

// GetNodeConfigRequest is manager.v1.GetNodeConfigRequest.
type GetNodeConfigRequest struct {
	Name string
}

// PortMappingConfig is manager.v1.PortMappingConfig.
type PortMappingConfig struct {
	ConfigJSON string
	Mode       int32
}

// GetNodeConfigResponse is manager.v1.GetNodeConfigResponse.
type GetNodeConfigResponse struct {
	PortMapping *PortMappingConfig
	Name        string
}

type wireMessage interface {
	marshalWire() []byte
	unmarshalWire(b []byte) error
}

func (m *GetNodeConfigRequest) marshalWire() []byte {
	var b []byte
	b = appendString(b, fieldRequestName, m.Name)
	return b
}

func (m *GetNodeConfigRequest) unmarshalWire(b []byte) error {
	*m = GetNodeConfigRequest{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == fieldRequestName && typ == protowire.BytesType {
			v, n := protowire.ConsumeString(b)
			m.Name = v
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
}

func (m *PortMappingConfig) marshalWire() []byte {
	var b []byte
	if m.Mode != 0 {
		b = protowire.AppendTag(b, fieldPortMappingMode, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(m.Mode)))
	}
	b = appendString(b, fieldPortMappingConfigJSON, m.ConfigJSON)
	return b
}

func (m *PortMappingConfig) unmarshalWire(b []byte) error {
	*m = PortMappingConfig{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == fieldPortMappingMode && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.Mode = int32(v)
			return n
		case num == fieldPortMappingConfigJSON && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			m.ConfigJSON = v
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
}

func (m *GetNodeConfigResponse) marshalWire() []byte {
	var b []byte
	b = appendString(b, fieldResponseName, m.Name)
	if m.PortMapping != nil {
		b = protowire.AppendTag(b, fieldResponsePortMapping, protowire.BytesType)
		b = protowire.AppendBytes(b, m.PortMapping.marshalWire())
	}
	return b
}

func (m *GetNodeConfigResponse) unmarshalWire(b []byte) error {
	*m = GetNodeConfigResponse{}

	var nestedErr error
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == fieldResponseName && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			m.Name = v
			return n
		case num == fieldResponsePortMapping && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n
			}
			// repeated occurrences of a message field merge in protobuf
			if m.PortMapping == nil {
				m.PortMapping = &PortMappingConfig{}
			}
			merged := m.PortMapping.marshalWire()
			if err := m.PortMapping.unmarshalWire(append(merged, v...)); err != nil {
				nestedErr = fmt.Errorf("port_mapping: %w", err)
				return -1
			}
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	if nestedErr != nil {
		return nestedErr
	}

	return err
}

// toModel converts the wire response into the domain model, preserving unknown modes.
func (m *GetNodeConfigResponse) toModel() *models.NodeConfig {
	cfg := &models.NodeConfig{Name: m.Name}
	if m.PortMapping != nil {
		cfg.PortMapping = &models.PortMapping{
			Mode:       models.Mode(m.PortMapping.Mode),
			ConfigJSON: m.PortMapping.ConfigJSON,
		}
	}

	return cfg
}

func responseFromModel(cfg *models.NodeConfig) *GetNodeConfigResponse {
	if cfg == nil {
		return &GetNodeConfigResponse{}
	}

	res := &GetNodeConfigResponse{Name: cfg.Name}
	if cfg.PortMapping != nil {
		res.PortMapping = &PortMappingConfig{
			Mode:       int32(cfg.PortMapping.Mode),
			ConfigJSON: cfg.PortMapping.ConfigJSON,
		}
	}

	return res
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}

	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// consumeFields walks the fields of an encoded message. field returns the
// number of bytes consumed for the value, or a negative protowire error code.
func consumeFields(b []byte, field func(num protowire.Number, typ protowire.Type, b []byte) int) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n = field(num, typ, b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
	}

	return nil
}
